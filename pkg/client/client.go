// Package client is a remote controller for hosts served over websocket.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/facebook/flipper-sub000/internal/logging"
	"github.com/facebook/flipper-sub000/pkg/adapters/websocket"
	"github.com/facebook/flipper-sub000/pkg/ports"
	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
)

// ErrClosed is returned for calls pending or issued after the socket closed.
var ErrClosed = errors.New("client closed")

// Event is a push event received from the host.
type Event struct {
	Method string
	Params json.RawMessage
}

type result struct {
	frame websocket.Frame
	err   error
}

// Client sends commands and receives push events.
type Client struct {
	ws     *gws.Conn
	logger *slog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan result
	closed  bool
	err     error

	events chan Event
	done   chan struct{}
}

var _ ports.RemoteController = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithEventBuffer sets how many push events may wait unread. Events beyond it
// are dropped.
func WithEventBuffer(n int) Option {
	return func(c *Client) {
		c.events = make(chan Event, n)
	}
}

// Dial connects to a host endpoint such as ws://localhost:8080/ws.
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	ws, _, err := gws.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := &Client{
		ws:      ws,
		logger:  logging.NewNop(),
		pending: make(map[string]chan result),
		events:  make(chan Event, 1024),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer close(c.done)
	defer close(c.events)
	for {
		var f websocket.Frame
		if err := c.ws.ReadJSON(&f); err != nil {
			c.fail(err)
			return
		}
		if f.IsResponse() {
			c.mu.Lock()
			ch, ok := c.pending[f.ID]
			delete(c.pending, f.ID)
			c.mu.Unlock()
			if ok {
				ch <- result{frame: f}
			}
			continue
		}
		select {
		case c.events <- Event{Method: f.Method, Params: f.Params}:
		default:
			c.logger.Warn("Client event buffer full, dropping event", "method", f.Method)
		}
	}
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.err = err
	}
	c.closed = true
	for id, ch := range c.pending {
		ch <- result{err: fmt.Errorf("%w: %w", ErrClosed, err)}
		delete(c.pending, id)
	}
}

// Call sends a command and waits for its answer. An error answer is returned
// as a domain.ErrorResponse.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	if params == nil {
		raw = nil
	}

	id := uuid.NewString()
	ch := make(chan result, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.pending[id] = ch
	c.mu.Unlock()

	c.writeMu.Lock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	err = c.ws.WriteJSON(websocket.Frame{ID: id, Method: method, Params: raw})
	c.writeMu.Unlock()
	if err != nil {
		c.forget(id)
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		if res.frame.Error != nil {
			return nil, *res.frame.Error
		}
		return res.frame.Success, nil
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	}
}

// CallInto is Call followed by decoding the answer into out.
func (c *Client) CallInto(ctx context.Context, method string, params, out any) error {
	raw, err := c.Call(ctx, method, params)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s answer: %w", method, err)
	}
	return nil
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

// NextEvent waits for the next push event.
func (c *Client) NextEvent(ctx context.Context) (string, json.RawMessage, error) {
	select {
	case ev, ok := <-c.events:
		if !ok {
			return "", nil, ErrClosed
		}
		return ev.Method, ev.Params, nil
	case <-ctx.Done():
		return "", nil, ctx.Err()
	}
}

// Events exposes the push event stream. It is closed when the socket closes.
func (c *Client) Events() <-chan Event { return c.events }

// Err returns the error that closed the socket, if any.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close sends a close frame and waits for the reader to stop.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.writeMu.Lock()
	err := c.ws.WriteControl(gws.CloseMessage,
		gws.FormatCloseMessage(gws.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
	}
	if cerr := c.ws.Close(); err == nil && cerr != nil && !errors.Is(cerr, gws.ErrCloseSent) {
		err = cerr
	}
	return err
}
