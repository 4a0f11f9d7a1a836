package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/facebook/flipper-sub000/pkg/domain"
	"github.com/facebook/flipper-sub000/pkg/ports"
)

// Locker implements ports.DistributedLocker for a single process.
type Locker struct {
	mu    sync.Mutex
	held  map[string]lease
	now   func() time.Time
	token uint64
}

type lease struct {
	token   uint64
	expires time.Time
}

// NewLocker creates an empty locker.
func NewLocker() *Locker {
	return &Locker{held: make(map[string]lease), now: time.Now}
}

// Lock grants key until ttl elapses or the lease is unlocked.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if cur, ok := l.held[key]; ok && now.Before(cur.expires) {
		return ports.Lease{}, fmt.Errorf("%w: %s", domain.ErrLeaseHeld, key)
	}
	l.token++
	token := l.token
	l.held[key] = lease{token: token, expires: now.Add(ttl)}

	return ports.Lease{
		Unlock: func(ctx context.Context) error {
			l.mu.Lock()
			defer l.mu.Unlock()
			if cur, ok := l.held[key]; ok && cur.token == token {
				delete(l.held, key)
			}
			return nil
		},
		Extend: func(ctx context.Context, ttl time.Duration) error {
			l.mu.Lock()
			defer l.mu.Unlock()
			now := l.now()
			cur, ok := l.held[key]
			if !ok || cur.token != token || !now.Before(cur.expires) {
				return fmt.Errorf("%w: %s", domain.ErrLeaseLost, key)
			}
			l.held[key] = lease{token: token, expires: now.Add(ttl)}
			return nil
		},
	}, nil
}
