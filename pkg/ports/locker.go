package ports

import (
	"context"
	"time"
)

// UnlockFunc is a function that releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// ExtendFunc moves the expiry of a held lock to ttl from now. It fails with
// domain.ErrLeaseLost once the lock expired or another holder took it.
type ExtendFunc func(ctx context.Context, ttl time.Duration) error

// Lease is a granted lock.
type Lease struct {
	// Unlock MUST be called to release the lock.
	Unlock UnlockFunc
	Extend ExtendFunc
}

// DistributedLocker defines the interface for distributed concurrency control.
// The session manager uses it to grant one controller lease per inspected
// host across replicas.
type DistributedLocker interface {
	// Lock attempts to acquire the lock for key. It fails with
	// domain.ErrLeaseHeld if another holder owns it.
	Lock(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}
