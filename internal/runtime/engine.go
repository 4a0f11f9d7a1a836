// Package runtime implements the traversal engines behind a session:
// tracking, snapshotting, hit testing and search.
//
// An Engine is not safe for concurrent use. All calls must happen in the
// owner context of the inspected object graph.
package runtime

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"runtime/debug"

	"github.com/facebook/flipper-sub000/pkg/descriptor"
	"github.com/facebook/flipper-sub000/pkg/domain"
	"github.com/facebook/flipper-sub000/pkg/registry"
	"github.com/facebook/flipper-sub000/pkg/tracker"
)

// Engine resolves descriptors for host objects and keeps the id table.
type Engine struct {
	registry *registry.Registry
	tracker  *tracker.Tracker
	logger   *slog.Logger
	report   func(error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for non-fatal descriptor failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithReporter sets the sink for non-fatal descriptor failures.
func WithReporter(fn func(error)) Option {
	return func(e *Engine) {
		e.report = fn
	}
}

// NewEngine creates an engine over reg with an empty tracker.
func NewEngine(reg *registry.Registry, opts ...Option) *Engine {
	e := &Engine{
		registry: reg,
		tracker:  tracker.New(),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tracker exposes the id table.
func (e *Engine) Tracker() *tracker.Tracker { return e.tracker }

// Registry exposes the descriptor registry.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Track returns obj's id, storing it and calling Init only if the id is not
// already bound to this very object.
func (e *Engine) Track(obj any) (string, error) {
	d := e.registry.For(obj)
	var id string
	if err := guard("id", obj, func() error {
		id = d.ID(obj)
		return nil
	}); err != nil {
		return "", err
	}
	if e.tracker.Holds(id, obj) {
		return id, nil
	}
	e.tracker.Put(id, obj)
	if err := guard("init", obj, func() error {
		d.Init(obj)
		return nil
	}); err != nil {
		e.fail(fmt.Errorf("init %s: %w", id, err))
	}
	return id, nil
}

// Lookup returns the live object behind id and its descriptor.
func (e *Engine) Lookup(id string) (any, descriptor.Descriptor, error) {
	obj, ok := e.tracker.Get(id)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrUnknownID, id)
	}
	return obj, e.registry.For(obj), nil
}

// SetValue applies a mutation to the object behind id.
func (e *Engine) SetValue(id string, path []string, kind domain.ValueKind, value any) error {
	obj, d, err := e.Lookup(id)
	if err != nil {
		return err
	}
	if len(path) == 0 {
		return fmt.Errorf("%w: empty path", domain.ErrInvalidPath)
	}
	return guard("setValue", obj, func() error {
		return d.SetValue(obj, path, kind, value)
	})
}

// SetHighlighted toggles the selection marker of the object behind id.
func (e *Engine) SetHighlighted(id string, selected, alignmentMode bool) error {
	obj, d, err := e.Lookup(id)
	if err != nil {
		return err
	}
	return guard("setHighlighted", obj, func() error {
		d.SetHighlighted(obj, selected, alignmentMode)
		return nil
	})
}

// ChildCount returns the current number of children of the object behind id.
func (e *Engine) ChildCount(id string, axis domain.Axis) (int, error) {
	obj, d, err := e.Lookup(id)
	if err != nil {
		return 0, err
	}
	var n int
	err = guard("childCount", obj, func() error {
		n = descriptor.ChildCount(d, obj, axis)
		return nil
	})
	return n, err
}

// children resolves every child implied by the child count.
// A nil child is a fatal ErrMissingChild.
func (e *Engine) children(obj any, d descriptor.Descriptor, axis domain.Axis) ([]any, error) {
	var n int
	if err := guard("childCount", obj, func() error {
		n = descriptor.ChildCount(d, obj, axis)
		return nil
	}); err != nil {
		return nil, err
	}
	out := make([]any, 0, n)
	for i := range n {
		child, err := e.childAt(obj, d, i, axis)
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	return out, nil
}

func (e *Engine) childAt(obj any, d descriptor.Descriptor, index int, axis domain.Axis) (any, error) {
	var child any
	if err := guard("childAt", obj, func() error {
		child = descriptor.ChildAt(d, obj, index, axis)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %T[%d]: %w", domain.ErrMissingChild, obj, index, err)
	}
	if isNil(child) {
		return nil, fmt.Errorf("%w: %T[%d] on %s axis", domain.ErrMissingChild, obj, index, axis)
	}
	return child, nil
}

func (e *Engine) fail(err error) {
	e.logger.Warn("descriptor failure", "err", err)
	if e.report != nil {
		e.report(err)
	}
}

// guard runs fn, converting a returned error or a panic into a
// *domain.DescriptorError.
func guard(op string, obj any, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &domain.DescriptorError{
				Op:    op,
				Type:  fmt.Sprintf("%T", obj),
				Err:   fmt.Errorf("panic: %v", r),
				Stack: string(debug.Stack()),
			}
		}
	}()
	if err := fn(); err != nil {
		var de *domain.DescriptorError
		if errors.As(err, &de) {
			return err
		}
		return &domain.DescriptorError{Op: op, Type: fmt.Sprintf("%T", obj), Err: err}
	}
	return nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
