// Package websocket carries the inspector protocol over a gorilla websocket.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/facebook/flipper-sub000/internal/logging"
	"github.com/facebook/flipper-sub000/pkg/domain"
	"github.com/facebook/flipper-sub000/pkg/ports"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 << 20
)

// ErrClosed is returned by Send after the socket has closed.
var ErrClosed = errors.New("websocket connection closed")

// ErrQueueFull is returned by Send when the writer cannot keep up.
var ErrQueueFull = errors.New("websocket write queue full")

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
}

// Connection implements ports.Connection on top of a websocket.
// Frames are written by a single goroutine fed from a bounded queue.
type Connection struct {
	ws      *websocket.Conn
	logger  *slog.Logger
	limiter *rate.Limiter
	queue   int

	mu        sync.RWMutex
	receivers map[string]ports.Receiver

	out       chan Frame
	done      chan struct{}
	closeOnce sync.Once
}

var _ ports.Connection = (*Connection)(nil)

// Option configures a Connection.
type Option func(*Connection)

// WithLogger sets the connection logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Connection) {
		c.logger = logger
	}
}

// WithRateLimit throttles inbound commands. Commands over the limit are
// answered with a RateLimited error.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Connection) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithWriteQueue sets how many outbound frames may be pending.
func WithWriteQueue(n int) Option {
	return func(c *Connection) {
		if n > 0 {
			c.queue = n
		}
	}
}

// New wraps an established socket.
func New(ws *websocket.Conn, opts ...Option) *Connection {
	c := &Connection{
		ws:        ws,
		logger:    logging.NewNop(),
		queue:     256,
		receivers: make(map[string]ports.Receiver),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.out = make(chan Frame, c.queue)
	return c
}

// Upgrade turns an HTTP request into a Connection.
func Upgrade(w http.ResponseWriter, r *http.Request, opts ...Option) (*Connection, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("upgrade websocket: %w", err)
	}
	return New(ws, opts...), nil
}

// Serve reads commands until the socket closes or ctx is done.
// A normal close by the peer returns nil.
func (c *Connection) Serve(ctx context.Context) error {
	go c.writeLoop()
	defer c.Close()

	stop := context.AfterFunc(ctx, c.Close)
	defer stop()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || ctx.Err() != nil {
				return nil
			}
			select {
			case <-c.done:
				return nil
			default:
			}
			return fmt.Errorf("read frame: %w", err)
		}
		c.handle(data)
	}
}

func (c *Connection) handle(data []byte) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		c.logger.Warn("Dropping malformed frame", "err", err)
		return
	}
	if f.Method == "" || f.ID == "" {
		c.logger.Debug("Ignoring frame without command", "id", f.ID)
		return
	}
	r := &responder{conn: c, id: f.ID}

	if c.limiter != nil && !c.limiter.Allow() {
		r.Error(domain.ErrorResponse{Message: "too many commands", Name: "RateLimited"})
		return
	}

	c.mu.RLock()
	fn, ok := c.receivers[f.Method]
	c.mu.RUnlock()
	if !ok {
		r.Error(domain.NewErrorResponse(fmt.Errorf("%w: %s", domain.ErrUnknownMethod, f.Method), ""))
		return
	}

	params := map[string]any{}
	if len(f.Params) > 0 && string(f.Params) != "null" {
		if err := json.Unmarshal(f.Params, &params); err != nil {
			r.Error(domain.NewErrorResponse(fmt.Errorf("%w: %w", domain.ErrInvalidParams, err), ""))
			return
		}
	}
	fn(params, r)
}

func (c *Connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case f := <-c.out:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(f); err != nil {
				c.logger.Warn("Failed to write frame", "method", f.Method, "id", f.ID, "err", err)
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Connection) enqueue(f Frame) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.out <- f:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		return ErrQueueFull
	}
}

// Send pushes an event to the controller.
func (c *Connection) Send(method string, params any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", method, err)
	}
	return c.enqueue(Frame{Method: method, Params: raw})
}

// Receive registers the handler for method.
func (c *Connection) Receive(method string, fn ports.Receiver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.receivers[method] = fn
}

// ReportError forwards a non-fatal host error as a reportError event.
func (c *Connection) ReportError(err error) {
	if sendErr := c.Send(EventReportError, domain.NewErrorResponse(err, "")); sendErr != nil {
		c.logger.Debug("Could not report error", "err", err, "send_err", sendErr)
	}
}

// Done is closed once the connection has shut down.
func (c *Connection) Done() <-chan struct{} { return c.done }

// Close sends a close frame and releases the socket. It is idempotent.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		_ = c.ws.Close()
	})
}

type responder struct {
	conn *Connection
	id   string
	once sync.Once
}

func (r *responder) Success(result any) {
	r.once.Do(func() {
		raw, err := json.Marshal(result)
		if err != nil {
			resp := domain.NewErrorResponse(fmt.Errorf("marshal result: %w", err), "")
			r.write(Frame{ID: r.id, Error: &resp})
			return
		}
		r.write(Frame{ID: r.id, Success: raw})
	})
}

func (r *responder) Error(resp domain.ErrorResponse) {
	r.once.Do(func() {
		r.write(Frame{ID: r.id, Error: &resp})
	})
}

func (r *responder) write(f Frame) {
	if err := r.conn.enqueue(f); err != nil {
		r.conn.logger.Warn("Dropped command answer", "id", r.id, "err", err)
	}
}
