// Package http serves the inspector over HTTP: a websocket endpoint for
// controllers, request/response commands under /rpc and an SSE push stream.
package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"

	inspector "github.com/facebook/flipper-sub000"
	"github.com/facebook/flipper-sub000/internal/logging"
	"github.com/facebook/flipper-sub000/pkg/adapters/websocket"
	"github.com/facebook/flipper-sub000/pkg/domain"
	"github.com/facebook/flipper-sub000/pkg/session"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"
)

//go:embed openapi.yaml
var rawSpec []byte

// Caller runs a command without a connection.
type Caller interface {
	Call(ctx context.Context, method string, params map[string]any) (any, error)
}

// Server holds the routes' collaborators.
type Server struct {
	manager *session.Manager
	rpc     Caller
	streams *StreamManager
	spec    *openapi3.T
	metrics http.Handler
	wsOpts  []websocket.Option
	logger  *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithStreams sets the SSE stream manager. Sessions must publish to the same
// manager for /events to see their pushes.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.streams = sm
	}
}

// WithMetrics serves h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithWebsocketOptions configures every controller socket.
func WithWebsocketOptions(opts ...websocket.Option) Option {
	return func(s *Server) {
		s.wsOpts = append(s.wsOpts, opts...)
	}
}

// LoadSpec parses and validates the embedded OpenAPI document.
func LoadSpec(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi spec: %w", err)
	}
	return doc, nil
}

// NewHandler builds the router. manager admits websocket controllers and rpc
// serves /rpc commands; either may be nil to disable its routes.
func NewHandler(manager *session.Manager, rpc Caller, opts ...Option) (http.Handler, error) {
	spec, err := LoadSpec(context.Background())
	if err != nil {
		return nil, err
	}
	s := &Server{
		manager: manager,
		rpc:     rpc,
		spec:    spec,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.streams == nil {
		s.streams = NewStreamManager(s.logger)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.getHealth)
	r.Get("/info", s.getInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	r.Get("/events", s.subscribeEvents)
	if s.manager != nil {
		r.Get("/ws", s.serveWebsocket)
	}
	if s.rpc != nil {
		r.Post("/rpc/{method}", s.call)
	}
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	return r, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if s.spec.Info != nil {
		apiVersion = s.spec.Info.Version
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"app":         "inspector-http",
		"version":     inspector.Version,
		"api_version": apiVersion,
		"methods":     domain.Methods,
	})
}

// serveWebsocket admits a controller for the lifetime of its socket.
func (s *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Upgrade(w, r, append([]websocket.Option{websocket.WithLogger(s.logger)}, s.wsOpts...)...)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", "err", err)
		return
	}
	ctx := r.Context()

	sess, err := s.manager.Attach(ctx, conn)
	if err != nil {
		s.logger.Warn("Controller rejected", "err", err)
		_ = conn.Send(websocket.EventReportError, domain.NewErrorResponse(err, ""))
		conn.Close()
		return
	}
	defer func() {
		if err := s.manager.Detach(context.WithoutCancel(ctx), sess.ID()); err != nil {
			s.logger.Warn("Detach failed", "session_id", sess.ID(), "err", err)
		}
	}()

	if err := conn.Serve(ctx); err != nil {
		s.logger.Info("Controller socket closed", "session_id", sess.ID(), "err", err)
	}
}

// call validates the request against the OpenAPI document, then runs it.
func (s *Server) call(w http.ResponseWriter, r *http.Request) {
	method := chi.URLParam(r, "method")
	path := "/rpc/" + method
	item := s.spec.Paths.Value(path)
	if item == nil || item.Post == nil {
		writeError(w, fmt.Errorf("%w: %s", domain.ErrUnknownMethod, method))
		return
	}

	route := &routers.Route{Spec: s.spec, Path: path, PathItem: item, Method: http.MethodPost, Operation: item.Post}
	if err := openapi3filter.ValidateRequest(r.Context(), &openapi3filter.RequestValidationInput{
		Request:    r,
		PathParams: map[string]string{},
		Route:      route,
	}); err != nil {
		writeError(w, fmt.Errorf("%w: %w", domain.ErrInvalidParams, err))
		return
	}

	params := map[string]any{}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, fmt.Errorf("%w: %w", domain.ErrInvalidParams, err))
			return
		}
	}

	res, err := s.rpc.Call(r.Context(), method, params)
	if err != nil {
		s.logger.Debug("RPC failed", "method", method, "err", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// subscribeEvents streams push events as SSE. ?session= narrows the stream
// to one session and ?events= to some event names.
func (s *Server) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	var (
		sessionID string
		events    []string
	)
	query := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "session", query, &sessionID); err != nil {
		http.Error(w, fmt.Sprintf("Invalid session parameter: %v", err), http.StatusBadRequest)
		return
	}
	if err := runtime.BindQueryParameter("form", false, false, "events", query, &events); err != nil {
		http.Error(w, fmt.Sprintf("Invalid events parameter: %v", err), http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.streams.Subscribe(sessionID)
	defer cancel()
	s.logger.Info("SSE: Subscribed", "session_id", sessionID, "events", events)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: Client disconnected", "session_id", sessionID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(events) > 0 && !slices.Contains(events, msg.Method) {
				continue
			}
			fmt.Fprintf(w, "event: %s\nid: %s\ndata: %s\n\n", msg.Method, msg.SessionID, msg.Data)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(err), session.Response(err))
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownMethod), errors.Is(err, domain.ErrUnknownID):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidParams), errors.Is(err, domain.ErrInvalidPath), errors.Is(err, domain.ErrNotMutable):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
