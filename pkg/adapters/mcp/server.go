// Package mcp exposes an inspected host to MCP clients: read the trees,
// search, hit test and edit properties through tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	inspector "github.com/facebook/flipper-sub000"
	"github.com/facebook/flipper-sub000/internal/logging"
	"github.com/facebook/flipper-sub000/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// TreeURI is the resource holding every node of the main tree.
const TreeURI = "inspector://tree"

// Caller runs inspector commands, typically a *session.Session.
type Caller interface {
	Call(ctx context.Context, method string, params map[string]any) (any, error)
}

// Server wraps a Caller as an MCP server.
type Server struct {
	caller    Caller
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer registers the inspector tools and resources.
func NewServer(caller Caller, opts ...Option) *Server {
	s := &Server{
		caller: caller,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mcpServer = server.NewMCPServer("inspector-mcp", inspector.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithRecovery(),
	)
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio serves on stdin/stdout until EOF.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_root",
		mcp.WithDescription("Snapshot the root node of the inspected host."),
		mcp.WithBoolean("ax", mcp.Description("Use the accessibility tree instead of the main tree")),
	), s.handleGetRoot)

	s.mcpServer.AddTool(mcp.NewTool("get_nodes",
		mcp.WithDescription("Snapshot nodes by id. Ids come from a previous get_root or get_nodes."),
		mcp.WithArray("ids", mcp.Required(), mcp.Description("Node ids"), mcp.WithStringItems()),
		mcp.WithBoolean("ax", mcp.Description("Use the accessibility tree")),
	), s.handleGetNodes)

	s.mcpServer.AddTool(mcp.NewTool("search",
		mcp.WithDescription("Find nodes whose name or id attribute contains the query (case-insensitive)."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
		mcp.WithBoolean("ax_enabled", mcp.Description("Attach the linked accessibility node to every result")),
	), s.handleSearch)

	s.mcpServer.AddTool(mcp.NewTool("set_data",
		mcp.WithDescription("Edit a property of a node. The value is parsed as JSON when possible."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Node id")),
		mcp.WithArray("path", mcp.Required(), mcp.Description("Property path, group first"), mcp.WithStringItems()),
		mcp.WithString("value", mcp.Required(), mcp.Description("New value")),
		mcp.WithString("kind", mcp.Description("Value kind hint: string, number, boolean, color, enum, object, array")),
		mcp.WithBoolean("ax", mcp.Description("Edit through the accessibility tree")),
	), s.handleSetData)

	s.mcpServer.AddTool(mcp.NewTool("set_highlighted",
		mcp.WithDescription("Highlight one node, or clear the highlight when id is omitted."),
		mcp.WithString("id", mcp.Description("Node id")),
	), s.handleSetHighlighted)

	s.mcpServer.AddTool(mcp.NewTool("hit_test",
		mcp.WithDescription("Find the nodes under a point in root coordinates."),
		mcp.WithNumber("x", mcp.Required()),
		mcp.WithNumber("y", mcp.Required()),
		mcp.WithOutputSchema[domain.HitTestResponse](),
	), mcp.NewStructuredToolHandler(s.handleHitTest))
}

func (s *Server) call(ctx context.Context, method string, params map[string]any) (*mcp.CallToolResult, error) {
	res, err := s.caller.Call(ctx, method, params)
	if err != nil {
		s.logger.Debug("MCP tool failed", "method", method, "err", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("marshal %s result: %w", method, err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func axis(request mcp.CallToolRequest, main, ax string) string {
	if request.GetBool("ax", false) {
		return ax
	}
	return main
}

func (s *Server) handleGetRoot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.call(ctx, axis(request, domain.MethodGetRoot, domain.MethodGetAXRoot), nil)
}

func (s *Server) handleGetNodes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := request.RequireStringSlice("ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.call(ctx, axis(request, domain.MethodGetNodes, domain.MethodGetAXNodes), map[string]any{"ids": ids})
}

func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.call(ctx, domain.MethodGetSearchResults, map[string]any{
		"query":     query,
		"axEnabled": request.GetBool("ax_enabled", false),
	})
}

func (s *Server) handleSetData(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := request.RequireStringSlice("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := request.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var value any = raw
	var parsed any
	if json.Unmarshal([]byte(raw), &parsed) == nil {
		value = parsed
	}
	if kind := request.GetString("kind", ""); kind != "" {
		value = map[string]any{"kind": kind, "data": value}
	}
	return s.call(ctx, domain.MethodSetData, map[string]any{
		"id":    id,
		"path":  path,
		"value": value,
		"ax":    request.GetBool("ax", false),
	})
}

func (s *Server) handleSetHighlighted(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var id any
	if v := request.GetString("id", ""); v != "" {
		id = v
	}
	return s.call(ctx, domain.MethodSetHighlighted, map[string]any{"id": id})
}

func (s *Server) handleHitTest(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (domain.HitTestResponse, error) {
	res, err := s.caller.Call(ctx, domain.MethodHitTest, map[string]any{
		"x": request.GetFloat("x", 0),
		"y": request.GetFloat("y", 0),
	})
	if err != nil {
		return domain.HitTestResponse{}, fmt.Errorf("hit test failed: %w", err)
	}
	hit, ok := res.(domain.HitTestResponse)
	if !ok {
		return domain.HitTestResponse{}, fmt.Errorf("unexpected hit test result %T", res)
	}
	return hit, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(TreeURI, "Main tree of the inspected host",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		res, err := s.caller.Call(ctx, domain.MethodGetAllNodes, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to walk tree: %w", err)
		}
		data, err := json.Marshal(res)
		if err != nil {
			return nil, fmt.Errorf("marshal tree: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      TreeURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
