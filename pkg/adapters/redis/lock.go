package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/facebook/flipper-sub000/pkg/domain"
	"github.com/facebook/flipper-sub000/pkg/ports"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// releaseScript deletes the lease only if it still holds our token.
var releaseScript = backend.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// extendScript moves the expiry only if the lease still holds our token.
var extendScript = backend.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
else
	return 0
end
`)

// Locker implements ports.DistributedLocker with SET NX PX.
type Locker struct {
	client backend.UniversalClient
	prefix string
}

var _ ports.DistributedLocker = (*Locker)(nil)

// NewLocker creates a locker whose keys start with prefix.
func NewLocker(client backend.UniversalClient, prefix string) *Locker {
	return &Locker{
		client: client,
		prefix: prefix,
	}
}

// Lock takes the lease for key, or fails with domain.ErrLeaseHeld.
// It does not wait for the current holder.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.Lease, error) {
	lockKey := l.prefix + "lock:" + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, lockKey, token, ttl).Result()
	if err != nil {
		return ports.Lease{}, fmt.Errorf("redis error acquiring lock: %w", err)
	}
	if !ok {
		return ports.Lease{}, fmt.Errorf("%w: %s", domain.ErrLeaseHeld, key)
	}
	return ports.Lease{
		Unlock: func(ctx context.Context) error {
			if err := releaseScript.Run(ctx, l.client, []string{lockKey}, token).Err(); err != nil {
				return fmt.Errorf("redis error releasing lock: %w", err)
			}
			return nil
		},
		Extend: func(ctx context.Context, ttl time.Duration) error {
			n, err := extendScript.Run(ctx, l.client, []string{lockKey}, token, ttl.Milliseconds()).Int()
			if err != nil {
				return fmt.Errorf("redis error extending lock: %w", err)
			}
			if n == 0 {
				return fmt.Errorf("%w: %s", domain.ErrLeaseLost, key)
			}
			return nil
		},
	}, nil
}
