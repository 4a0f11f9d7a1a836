// Package owner runs work on the single goroutine that owns host objects.
//
// Descriptors and the object tracker are not safe for concurrent use. Every
// command from a controller is posted to an Executor and runs there, one at a
// time, in arrival order.
package owner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// ErrStopped is returned when posting to a loop that has been stopped.
var ErrStopped = errors.New("owner loop stopped")

// Executor runs functions in the owner context.
type Executor interface {
	Post(fn func()) error
}

// Inline runs functions immediately on the caller's goroutine.
// Use it when the caller already is the owner.
type Inline struct{}

func (Inline) Post(fn func()) error {
	fn()
	return nil
}

// Loop is an Executor backed by a dedicated goroutine.
type Loop struct {
	tasks   chan func()
	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once
	logger  *slog.Logger
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger used to report recovered panics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithQueueSize sets the number of tasks that can be pending before Post blocks.
func WithQueueSize(n int) Option {
	return func(l *Loop) {
		l.tasks = make(chan func(), n)
	}
}

// NewLoop starts a loop goroutine. Call Stop to release it.
func NewLoop(opts ...Option) *Loop {
	l := &Loop{
		tasks:   make(chan func(), 64),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.stopped)
	for {
		select {
		case <-l.quit:
			return
		case fn := <-l.tasks:
			l.exec(fn)
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("owner task panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	fn()
}

// Post queues fn. It blocks while the queue is full.
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.quit:
		return ErrStopped
	default:
	}
	select {
	case l.tasks <- fn:
		return nil
	case <-l.quit:
		return ErrStopped
	}
}

// Every posts fn every d until the returned stop function is called or the
// loop stops. Ticks are skipped while a previous one is still queued.
func (l *Loop) Every(d time.Duration, fn func()) (stop func()) {
	done := make(chan struct{})
	var once sync.Once
	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		var pending sync.Mutex
		for {
			select {
			case <-done:
				return
			case <-l.quit:
				return
			case <-ticker.C:
				if !pending.TryLock() {
					continue
				}
				if err := l.Post(func() {
					defer pending.Unlock()
					fn()
				}); err != nil {
					pending.Unlock()
					return
				}
			}
		}
	}()
	return func() { once.Do(func() { close(done) }) }
}

// Stop terminates the loop and waits for the running task to return.
// Queued tasks are dropped.
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.quit) })
	<-l.stopped
}

// Call runs fn on ex and waits for it. If ctx ends first, Call returns
// ctx.Err() and fn may still run later.
func Call(ctx context.Context, ex Executor, fn func() error) error {
	_, err := Do(ctx, ex, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// Do runs fn on ex and returns its result.
func Do[T any](ctx context.Context, ex Executor, fn func() (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	ch := make(chan result, 1)
	err := ex.Post(func() {
		var res result
		defer func() {
			if r := recover(); r != nil {
				res.err = fmt.Errorf("owner task panicked: %v", r)
			}
			ch <- res
		}()
		res.val, res.err = fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	select {
	case res := <-ch:
		return res.val, res.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
