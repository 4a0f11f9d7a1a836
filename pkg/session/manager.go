package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/facebook/flipper-sub000/internal/logging"
	"github.com/facebook/flipper-sub000/pkg/domain"
	"github.com/facebook/flipper-sub000/pkg/ports"
	"github.com/google/uuid"
)

// DefaultLeaseTTL bounds how long a controller lease survives a crashed replica.
const DefaultLeaseTTL = time.Hour

// Factory builds the session for a newly admitted controller. It should
// pass WithID(id) so logs and events carry the manager's id.
type Factory func(id string) *Session

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

type attached struct {
	session *Session
	lease   ports.Lease
	stop    chan struct{} // ends lease renewal
}

// Manager admits controllers, one Session per connection.
// Lifecycle operations on the same session id are serialized with
// reference-counted locks.
type Manager struct {
	factory Factory

	mu       sync.Mutex            // Global lock for the maps
	locks    map[string]*lockEntry // Map of active locks
	sessions map[string]*attached

	locker   ports.DistributedLocker // Optional distributed locker
	hostKey  string
	leaseTTL time.Duration
	logger   *slog.Logger
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithLocker requires a controller lease from locker before admitting a
// connection. Only one controller per host key can be attached at a time.
func WithLocker(locker ports.DistributedLocker) ManagerOption {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithHostKey names the inspected host for lease purposes.
func WithHostKey(key string) ManagerOption {
	return func(m *Manager) {
		m.hostKey = key
	}
}

// WithLeaseTTL sets the lease expiry.
func WithLeaseTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.leaseTTL = ttl
	}
}

// WithManagerLogger configures a logger for the Manager.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a manager that builds sessions with factory.
func NewManager(factory Factory, opts ...ManagerOption) *Manager {
	m := &Manager{
		factory:  factory,
		locks:    make(map[string]*lockEntry),
		sessions: make(map[string]*attached),
		hostKey:  "default",
		leaseTTL: DefaultLeaseTTL,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(key) after unlocking.
func (m *Manager) acquire(key string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		entry = &lockEntry{}
		m.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, key)
	}
}

// WithLock executes fn while holding the local lock for key.
func (m *Manager) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	entry := m.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(key)
	}()
	return fn(ctx)
}

// Attach admits conn and returns its connected session. With a locker the
// controller lease is extended every third of its TTL while the session is
// attached; a lost lease detaches the session.
func (m *Manager) Attach(ctx context.Context, conn ports.Connection) (*Session, error) {
	id := uuid.NewString()
	var a *attached
	err := m.WithLock(ctx, m.hostKey, func(ctx context.Context) error {
		var lease ports.Lease
		if m.locker != nil {
			var err error
			lease, err = m.locker.Lock(ctx, leaseKey(m.hostKey), m.leaseTTL)
			if err != nil {
				return fmt.Errorf("failed to acquire controller lease: %w", err)
			}
		}

		s := m.factory(id)
		if err := s.Connect(ctx, conn); err != nil {
			m.unlock(ctx, lease)
			return err
		}

		a = &attached{session: s, lease: lease, stop: make(chan struct{})}
		m.mu.Lock()
		m.sessions[s.ID()] = a
		m.mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if a.lease.Extend != nil && m.leaseTTL > 0 {
		go m.renew(a.session.ID(), a.lease, a.stop)
	}
	m.logger.Info("Controller attached", "session_id", a.session.ID(), "host", m.hostKey)
	return a.session, nil
}

func leaseKey(hostKey string) string { return "inspector:lease:" + hostKey }

// renew extends the lease until stop closes. Transient failures are retried
// while the lease is still known to be valid.
func (m *Manager) renew(id string, lease ports.Lease, stop <-chan struct{}) {
	interval := m.leaseTTL / 3
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	valid := time.Now().Add(m.leaseTTL)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), interval)
		err := lease.Extend(ctx, m.leaseTTL)
		cancel()
		if err == nil {
			valid = time.Now().Add(m.leaseTTL)
			continue
		}
		if !errors.Is(err, domain.ErrLeaseLost) && time.Now().Add(interval).Before(valid) {
			m.logger.Warn("Failed to extend controller lease, retrying", "session_id", id, "err", err)
			continue
		}

		m.logger.Warn("Controller lease lost, detaching", "session_id", id, "host", m.hostKey, "err", err)
		if err := m.Detach(context.Background(), id); err != nil && !errors.Is(err, domain.ErrUnknownID) {
			m.logger.Warn("Failed to detach controller", "session_id", id, "err", err)
		}
		return
	}
}

// Detach disconnects the session and releases its lease.
func (m *Manager) Detach(ctx context.Context, id string) error {
	return m.WithLock(ctx, m.hostKey, func(ctx context.Context) error {
		m.mu.Lock()
		a, ok := m.sessions[id]
		delete(m.sessions, id)
		m.mu.Unlock()
		if !ok {
			return fmt.Errorf("%w: session %s", domain.ErrUnknownID, id)
		}

		close(a.stop)
		err := a.session.Disconnect(ctx)
		m.unlock(ctx, a.lease)
		m.logger.Info("Controller detached", "session_id", id)
		return err
	})
}

// Get returns an attached session.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return a.session, true
}

// List returns the ids of attached sessions, sorted.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Close detaches every session.
func (m *Manager) Close(ctx context.Context) error {
	var errs []error
	for _, id := range m.List() {
		if err := m.Detach(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) unlock(ctx context.Context, lease ports.Lease) {
	if lease.Unlock == nil {
		return
	}
	if err := lease.Unlock(ctx); err != nil {
		m.logger.Warn("Failed to release controller lease (will expire via TTL)",
			"host", m.hostKey,
			"err", err,
		)
	}
}
