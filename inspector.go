package inspector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/facebook/flipper-sub000/internal/logging"
	"github.com/facebook/flipper-sub000/internal/metrics"
	"github.com/facebook/flipper-sub000/pkg/descriptor"
	"github.com/facebook/flipper-sub000/pkg/domain"
	"github.com/facebook/flipper-sub000/pkg/owner"
	"github.com/facebook/flipper-sub000/pkg/ports"
	"github.com/facebook/flipper-sub000/pkg/registry"
	"github.com/facebook/flipper-sub000/pkg/session"
)

// Version is the inspector release reported by the adapters.
const Version = "0.4.0"

// RPCSessionID names the connectionless session returned by Inspector.Session.
const RPCSessionID = "rpc"

// Inspector is the high-level entry point: it owns the descriptor registry,
// the owner executor and the controller sessions for one inspected root.
type Inspector struct {
	root     any
	registry *registry.Registry
	exec     owner.Executor
	loop     *owner.Loop // non-nil when the executor is owned by the Inspector
	manager  *session.Manager
	rpc      *session.Session

	descriptors  []func(*registry.Registry)
	overlay      ports.Overlay
	treeSelect   bool
	pollInterval time.Duration
	publishers   []ports.EventPublisher
	locker       ports.DistributedLocker
	hostKey      string
	leaseTTL     time.Duration
	hooks        domain.LifecycleHooks
	registerer   prometheus.Registerer
	logger       *slog.Logger
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithLogger sets the logger shared by sessions and the executor.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Inspector) {
		i.logger = logger
	}
}

// WithRegistry uses reg instead of a fresh registry.
func WithRegistry(reg *registry.Registry) Option {
	return func(i *Inspector) {
		i.registry = reg
	}
}

// WithDescriptor registers d for the runtime type T.
func WithDescriptor[T any](d descriptor.Descriptor) Option {
	return func(i *Inspector) {
		i.descriptors = append(i.descriptors, func(r *registry.Registry) {
			registry.Register[T](r, d)
		})
	}
}

// WithExecutor runs descriptor calls on ex. By default the Inspector starts
// its own owner loop; hosts with a UI thread should pass theirs.
func WithExecutor(ex owner.Executor) Option {
	return func(i *Inspector) {
		i.exec = ex
	}
}

// WithOverlay sets the surface installed while search mode is active.
func WithOverlay(o ports.Overlay) Option {
	return func(i *Inspector) {
		i.overlay = o
	}
}

// WithTreeSelect sends select events in the nested {tree, path} form.
func WithTreeSelect(enabled bool) Option {
	return func(i *Inspector) {
		i.treeSelect = enabled
	}
}

// WithPollInterval pushes invalidate events when child counts change.
func WithPollInterval(d time.Duration) Option {
	return func(i *Inspector) {
		i.pollInterval = d
	}
}

// WithPublisher mirrors push events of every session to p.
func WithPublisher(p ports.EventPublisher) Option {
	return func(i *Inspector) {
		if p != nil {
			i.publishers = append(i.publishers, p)
		}
	}
}

// WithLocker admits one controller per hostKey at a time.
func WithLocker(locker ports.DistributedLocker, hostKey string, ttl time.Duration) Option {
	return func(i *Inspector) {
		i.locker = locker
		i.hostKey = hostKey
		i.leaseTTL = ttl
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(i *Inspector) {
		i.hooks = hooks
	}
}

// WithMetrics registers the inspector collectors on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(i *Inspector) {
		i.registerer = reg
	}
}

// New creates an Inspector for root.
func New(root any, opts ...Option) (*Inspector, error) {
	if root == nil {
		return nil, errors.New("root object is required")
	}
	i := &Inspector{root: root}
	for _, opt := range opts {
		opt(i)
	}

	if i.logger == nil {
		i.logger = logging.NewNop()
	}
	if i.registry == nil {
		i.registry = registry.New()
	}
	for _, register := range i.descriptors {
		register(i.registry)
	}
	if i.exec == nil {
		i.loop = owner.NewLoop(owner.WithLogger(i.logger))
		i.exec = i.loop
	}

	hooks := i.hooks
	if i.registerer != nil {
		m, err := metrics.New(i.registerer)
		if err != nil {
			i.stop()
			return nil, err
		}
		hooks = m.Hooks(hooks)
	}
	i.hooks = hooks

	managerOpts := []session.ManagerOption{session.WithManagerLogger(i.logger)}
	if i.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(i.locker))
		if i.hostKey != "" {
			managerOpts = append(managerOpts, session.WithHostKey(i.hostKey))
		}
		if i.leaseTTL > 0 {
			managerOpts = append(managerOpts, session.WithLeaseTTL(i.leaseTTL))
		}
	}
	i.manager = session.NewManager(i.newSession, managerOpts...)
	i.rpc = i.newSession(RPCSessionID)

	return i, nil
}

func (i *Inspector) newSession(id string) *session.Session {
	opts := []session.Option{
		session.WithID(id),
		session.WithLogger(i.logger.With("session_id", id)),
		session.WithTreeSelect(i.treeSelect),
		session.WithHooks(i.hooks),
		session.WithPollInterval(i.pollInterval),
	}
	if i.overlay != nil {
		opts = append(opts, session.WithOverlay(i.overlay))
	}
	for _, p := range i.publishers {
		opts = append(opts, session.WithPublisher(p))
	}
	return session.New(i.root, i.registry, i.exec, opts...)
}

// Attach admits a controller on conn.
func (i *Inspector) Attach(ctx context.Context, conn ports.Connection) (*session.Session, error) {
	return i.manager.Attach(ctx, conn)
}

// Detach disconnects the controller session id.
func (i *Inspector) Detach(ctx context.Context, id string) error {
	return i.manager.Detach(ctx, id)
}

// Manager returns the controller session manager.
func (i *Inspector) Manager() *session.Manager { return i.manager }

// Session returns the connectionless session used for request/response
// integrations such as HTTP RPC and MCP.
func (i *Inspector) Session() *session.Session { return i.rpc }

// Registry returns the descriptor registry.
func (i *Inspector) Registry() *registry.Registry { return i.registry }

// Executor returns the owner executor. Host mutations that must be seen
// consistently by the inspector should run on it.
func (i *Inspector) Executor() owner.Executor { return i.exec }

// Do runs fn on the owner goroutine and waits for it.
func (i *Inspector) Do(ctx context.Context, fn func()) error {
	return owner.Call(ctx, i.exec, func() error {
		fn()
		return nil
	})
}

// Every runs fn on the owner goroutine every d. It needs the default owner
// loop or an executor passed as *owner.Loop.
func (i *Inspector) Every(d time.Duration, fn func()) (stop func(), err error) {
	loop, ok := i.exec.(*owner.Loop)
	if !ok {
		return nil, fmt.Errorf("executor %T cannot schedule periodic work", i.exec)
	}
	return loop.Every(d, fn), nil
}

// Close detaches every controller and stops the owned loop.
func (i *Inspector) Close(ctx context.Context) error {
	err := i.manager.Close(ctx)
	i.stop()
	return err
}

func (i *Inspector) stop() {
	if i.loop != nil {
		i.loop.Stop()
	}
}
