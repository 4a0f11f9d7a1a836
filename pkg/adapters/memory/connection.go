// Package memory provides in-process adapters: a Connection whose remote
// side is driven directly from Go, a snapshot archive and a locker.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/facebook/flipper-sub000/pkg/domain"
	"github.com/facebook/flipper-sub000/pkg/ports"
)

// Event is a push event captured by a Connection.
type Event struct {
	Method string
	Params json.RawMessage
}

// Connection implements ports.Connection in memory. Payloads go through JSON
// in both directions, so receivers see exactly what a wire transport delivers.
type Connection struct {
	mu        sync.RWMutex
	receivers map[string]ports.Receiver
	reported  []error
	events    chan Event
}

// NewConnection creates a connection that buffers up to 1024 push events.
func NewConnection() *Connection {
	return &Connection{
		receivers: make(map[string]ports.Receiver),
		events:    make(chan Event, 1024),
	}
}

func (c *Connection) Send(method string, params any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", method, err)
	}
	select {
	case c.events <- Event{Method: method, Params: raw}:
		return nil
	default:
		return errors.New("event buffer full")
	}
}

func (c *Connection) Receive(method string, fn ports.Receiver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.receivers[method] = fn
}

func (c *Connection) ReportError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reported = append(c.reported, err)
}

// Reported returns the errors reported so far.
func (c *Connection) Reported() []error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]error(nil), c.reported...)
}

// Call plays the controller: it delivers a command and waits for the answer.
// An error answer is returned as a domain.ErrorResponse.
func (c *Connection) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	decoded := map[string]any{}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, fmt.Errorf("params must be a JSON object: %w", err)
		}
	}

	c.mu.RLock()
	fn, ok := c.receivers[method]
	c.mu.RUnlock()

	r := &responder{done: make(chan struct{})}
	if !ok {
		r.Error(domain.NewErrorResponse(fmt.Errorf("%w: %s", domain.ErrUnknownMethod, method), ""))
	} else {
		fn(decoded, r)
	}

	select {
	case <-r.done:
		return r.result, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// NextEvent waits for the next push event.
func (c *Connection) NextEvent(ctx context.Context) (string, json.RawMessage, error) {
	select {
	case ev := <-c.events:
		return ev.Method, ev.Params, nil
	case <-ctx.Done():
		return "", nil, ctx.Err()
	}
}

// Events exposes the push event stream.
func (c *Connection) Events() <-chan Event { return c.events }

type responder struct {
	once   sync.Once
	done   chan struct{}
	result json.RawMessage
	err    error
}

func (r *responder) Success(result any) {
	r.once.Do(func() {
		raw, err := json.Marshal(result)
		if err != nil {
			r.err = fmt.Errorf("marshal result: %w", err)
		} else {
			r.result = raw
		}
		close(r.done)
	})
}

func (r *responder) Error(resp domain.ErrorResponse) {
	r.once.Do(func() {
		r.err = resp
		close(r.done)
	})
}

var (
	_ ports.Connection        = (*Connection)(nil)
	_ ports.RemoteController  = (*Connection)(nil)
	_ ports.SnapshotArchive   = (*Archive)(nil)
	_ ports.DistributedLocker = (*Locker)(nil)
)
