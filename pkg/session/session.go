package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/facebook/flipper-sub000/internal/logging"
	"github.com/facebook/flipper-sub000/internal/runtime"
	"github.com/facebook/flipper-sub000/pkg/domain"
	"github.com/facebook/flipper-sub000/pkg/owner"
	"github.com/facebook/flipper-sub000/pkg/ports"
	"github.com/facebook/flipper-sub000/pkg/registry"
	"github.com/google/uuid"
)

// ErrAlreadyConnected is returned when Connect is called twice.
var ErrAlreadyConnected = errors.New("session already connected")

// scheduler is implemented by executors that can run periodic work.
type scheduler interface {
	Every(d time.Duration, fn func()) (stop func())
}

type handler func(ctx context.Context, params map[string]any) (result any, id string, err error)

// Session serves one remote controller over one object graph.
type Session struct {
	id           string
	root         any
	registry     *registry.Registry
	engine       *runtime.Engine
	exec         owner.Executor
	logger       *slog.Logger
	overlay      ports.Overlay
	treeSelect   bool
	hooks        domain.LifecycleHooks
	publishers   []ports.EventPublisher
	pollInterval time.Duration
	handlers     map[string]handler

	// Everything below is owned by exec.
	conn         ports.Connection
	closed       bool
	highlighted  string
	alignment    bool
	searchActive bool
	batching     bool
	pending      [2][]domain.NodeRef
	childCounts  map[string]int
	stopPoll     func()
	relay        *relay
}

// New creates a session over root. Commands run on exec.
func New(root any, reg *registry.Registry, exec owner.Executor, opts ...Option) *Session {
	s := &Session{
		id:          uuid.NewString(),
		root:        root,
		registry:    reg,
		exec:        exec,
		logger:      logging.NewNop(),
		childCounts: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session_id", s.id)
	s.engine = runtime.NewEngine(reg, runtime.WithLogger(s.logger), runtime.WithReporter(s.reportError))
	s.handlers = map[string]handler{
		domain.MethodGetRoot:          s.getRoot,
		domain.MethodGetNodes:         s.getNodes,
		domain.MethodGetAllNodes:      s.getAllNodes,
		domain.MethodGetAXRoot:        s.getAXRoot,
		domain.MethodGetAXNodes:       s.getAXNodes,
		domain.MethodSetData:          s.setData,
		domain.MethodSetHighlighted:   s.setHighlighted,
		domain.MethodSetSearchActive:  s.setSearchActive,
		domain.MethodIsSearchActive:   s.isSearchActive,
		domain.MethodGetSearchResults: s.getSearchResults,
		domain.MethodHitTest:          s.hitTest,
		domain.MethodIsConsoleEnabled: s.isConsoleEnabled,
	}
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Connect admits conn, registers every command on it and attaches the
// session to the registry so descriptors can push invalidations. A rejected
// conn gets no receivers.
func (s *Session) Connect(ctx context.Context, conn ports.Connection) error {
	return owner.Call(ctx, s.exec, func() error {
		if s.closed {
			return domain.ErrSessionClosed
		}
		if s.conn != nil {
			return ErrAlreadyConnected
		}
		s.conn = conn
		for method := range s.handlers {
			conn.Receive(method, s.receiver(method))
		}
		if len(s.publishers) > 0 {
			s.relay = newRelay(s.publishers, s.logger)
		}
		s.registry.OnSessionStart(s)
		if s.pollInterval > 0 {
			if sch, ok := s.exec.(scheduler); ok {
				s.stopPoll = sch.Every(s.pollInterval, s.poll)
			} else {
				s.logger.Warn("Executor cannot schedule polling, structural changes will not be detected")
			}
		}
		if s.hooks.OnAttach != nil {
			s.hooks.OnAttach(ctx, s.event(domain.EventAttach))
		}
		s.logger.Info("Controller connected")
		return nil
	})
}

// Disconnect clears highlight and overlay, drops every tracked object and
// detaches descriptors. Later invalidations are no-ops. It is idempotent.
func (s *Session) Disconnect(ctx context.Context) error {
	err := owner.Call(ctx, s.exec, func() error {
		if s.closed {
			return nil
		}
		s.closed = true
		if s.stopPoll != nil {
			s.stopPoll()
		}
		if s.highlighted != "" {
			_ = s.engine.SetHighlighted(s.highlighted, false, s.alignment)
			s.highlighted = ""
		}
		if s.searchActive && s.overlay != nil {
			s.overlay.Remove()
		}
		s.searchActive = false
		s.registry.OnSessionEnd(s)
		s.engine.Tracker().Clear()
		clear(s.childCounts)
		if s.relay != nil {
			s.relay.Close()
			s.relay = nil
		}
		if s.hooks.OnDetach != nil {
			s.hooks.OnDetach(ctx, s.event(domain.EventDetach))
		}
		s.conn = nil
		s.logger.Info("Controller disconnected")
		return nil
	})
	if errors.Is(err, owner.ErrStopped) {
		return nil
	}
	return err
}

// Call runs a command without a connection and returns its result.
// A failed command returns an *Error.
func (s *Session) Call(ctx context.Context, method string, params map[string]any) (any, error) {
	if params == nil {
		params = map[string]any{}
	}
	return owner.Do(ctx, s.exec, func() (any, error) {
		return s.dispatch(ctx, method, params)
	})
}

// Tap runs a hit test at (x, y) in root coordinates and pushes the resulting
// select and selectAX events.
func (s *Session) Tap(x, y float64) error {
	return s.exec.Post(func() { s.tap(x, y) })
}

// Invalidate implements descriptor.Notifier.
func (s *Session) Invalidate(obj any) { s.invalidate(domain.AxisMain, obj) }

// InvalidateAX implements descriptor.Notifier.
func (s *Session) InvalidateAX(obj any) { s.invalidate(domain.AxisAX, obj) }

func (s *Session) receiver(method string) ports.Receiver {
	return func(params map[string]any, r ports.Responder) {
		if params == nil {
			params = map[string]any{}
		}
		err := s.exec.Post(func() {
			res, err := s.dispatch(context.Background(), method, params)
			if err != nil {
				r.Error(Response(err))
				return
			}
			r.Success(res)
		})
		if err != nil {
			r.Error(Response(fmt.Errorf("%w: %w", domain.ErrSessionClosed, err)))
		}
	}
}

func (s *Session) dispatch(ctx context.Context, method string, params map[string]any) (any, error) {
	if s.closed {
		return nil, &Error{Method: method, Err: domain.ErrSessionClosed}
	}
	h, ok := s.handlers[method]
	if !ok {
		return nil, &Error{Method: method, Err: fmt.Errorf("%w: %s", domain.ErrUnknownMethod, method)}
	}

	start := time.Now()
	s.batching = true
	res, id, err := h(ctx, params)
	s.batching = false
	s.flush()

	if s.hooks.OnCommand != nil {
		s.hooks.OnCommand(ctx, &domain.CommandEvent{
			EventBase: *s.event(domain.EventCommand),
			Method:    method,
			Duration:  time.Since(start),
			Tracked:   s.engine.Tracker().Len(),
			Err:       err,
		})
	}
	if err != nil {
		s.logger.Debug("Command failed", "method", method, "id", id, "err", err)
		return nil, &Error{Method: method, ID: id, Err: err}
	}
	return res, nil
}

func (s *Session) invalidate(axis domain.Axis, obj any) {
	if s.conn == nil || s.closed {
		return
	}
	id, err := s.engine.Track(obj)
	if err != nil {
		s.reportError(err)
		return
	}
	s.queue(axis, id)
}

func (s *Session) queue(axis domain.Axis, id string) {
	refs := s.pending[axis]
	if slices.ContainsFunc(refs, func(r domain.NodeRef) bool { return r.ID == id }) {
		return
	}
	s.pending[axis] = append(refs, domain.NodeRef{ID: id})
	if !s.batching {
		s.flush()
	}
}

func (s *Session) flush() {
	if refs := s.pending[domain.AxisMain]; len(refs) > 0 {
		s.pending[domain.AxisMain] = nil
		s.push(domain.EventInvalidate, domain.InvalidateEvent{Nodes: refs})
	}
	if refs := s.pending[domain.AxisAX]; len(refs) > 0 {
		s.pending[domain.AxisAX] = nil
		s.push(domain.EventInvalidateAX, domain.InvalidateEvent{Nodes: refs})
	}
}

func (s *Session) push(method string, params any) {
	if s.conn == nil {
		return
	}
	if err := s.conn.Send(method, params); err != nil {
		s.logger.Warn("Failed to push event", "method", method, "err", err)
		return
	}
	ev := &domain.PushEvent{EventBase: *s.event(domain.EventPush), Method: method, Params: params}
	if s.hooks.OnPush != nil {
		s.hooks.OnPush(context.Background(), ev)
	}
	if s.relay != nil {
		s.relay.publish(ev)
	}
}

func (s *Session) reportError(err error) {
	s.logger.Warn("Non-fatal inspector error", "err", err)
	if s.conn != nil {
		s.conn.ReportError(err)
	}
	if s.hooks.OnError != nil {
		s.hooks.OnError(context.Background(), err)
	}
}

func (s *Session) tap(x, y float64) {
	if s.closed {
		return
	}
	if path, err := s.engine.HitTest(s.root, x, y, domain.AxisMain); err != nil {
		s.reportError(fmt.Errorf("hit test: %w", err))
	} else {
		s.push(domain.EventSelect, s.selectEvent(path))
	}
	if path, err := s.engine.HitTest(s.root, x, y, domain.AxisAX); err != nil {
		s.reportError(fmt.Errorf("AX hit test: %w", err))
	} else {
		s.push(domain.EventSelectAX, s.selectEvent(path))
	}
}

func (s *Session) selectEvent(path []string) domain.SelectEvent {
	ev := domain.SelectEvent{Path: path}
	if s.treeSelect {
		ev.Tree = domain.PathTree(path)
	}
	return ev
}

// poll pushes invalidate for every tracked object whose child count changed
// since the previous poll.
func (s *Session) poll() {
	if s.closed || s.conn == nil {
		return
	}
	s.batching = true
	live := make(map[string]bool)
	for _, id := range s.engine.Tracker().IDs() {
		n, err := s.engine.ChildCount(id, domain.AxisMain)
		if err != nil {
			if !errors.Is(err, domain.ErrUnknownID) {
				s.reportError(fmt.Errorf("poll %s: %w", id, err))
			}
			continue
		}
		live[id] = true
		if prev, ok := s.childCounts[id]; ok && prev != n {
			s.queue(domain.AxisMain, id)
		}
		s.childCounts[id] = n
	}
	for id := range s.childCounts {
		if !live[id] {
			delete(s.childCounts, id)
		}
	}
	s.batching = false
	s.flush()
}

func (s *Session) event(t domain.EventType) *domain.EventBase {
	return &domain.EventBase{Timestamp: time.Now(), Type: t, SessionID: s.id}
}
