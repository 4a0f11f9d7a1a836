// Package cli implements the inspector subcommands on top of the library.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	backend "github.com/redis/go-redis/v9"

	inspector "github.com/facebook/flipper-sub000"
	"github.com/facebook/flipper-sub000/internal/config"
	httpadapter "github.com/facebook/flipper-sub000/pkg/adapters/http"
	redisadapter "github.com/facebook/flipper-sub000/pkg/adapters/redis"
	"github.com/facebook/flipper-sub000/pkg/adapters/websocket"
	"github.com/facebook/flipper-sub000/pkg/domain"
	"github.com/facebook/flipper-sub000/pkg/registry"
	"github.com/facebook/flipper-sub000/pkg/sample"
)

// Host is the demo widget tree served by the CLI with everything the
// configuration asks for wired around it.
type Host struct {
	Inspector *inspector.Inspector
	Window    *sample.Window
	Streams   *httpadapter.StreamManager
	Metrics   *prometheus.Registry

	cfg    *config.Config
	redis  backend.UniversalClient
	logger *slog.Logger
}

// NewDemoHost builds the sample host and its inspector.
func NewDemoHost(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Host, error) {
	h := &Host{
		Window:  sample.NewDemo(),
		Streams: httpadapter.NewStreamManager(logger),
		Metrics: prometheus.NewRegistry(),
		cfg:     cfg,
		logger:  logger,
	}
	h.Metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	reg := registry.New()
	sample.Register(reg)

	opts := []inspector.Option{
		inspector.WithLogger(logger),
		inspector.WithRegistry(reg),
		inspector.WithOverlay(h.Window),
		inspector.WithTreeSelect(cfg.TreeSelect),
		inspector.WithPollInterval(cfg.PollInterval),
		inspector.WithPublisher(h.Streams),
		inspector.WithMetrics(h.Metrics),
	}
	if cfg.LogLevel == "debug" {
		opts = append(opts, inspector.WithLifecycleHooks(debugHooks(logger)))
	}

	if cfg.Redis.Enabled() {
		client, err := dialRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		h.redis = client
		opts = append(opts,
			inspector.WithPublisher(redisadapter.NewPublisher(client, cfg.Redis.Channel)),
			inspector.WithLocker(redisadapter.NewLocker(client, ""), "demo", cfg.Redis.LeaseTTL),
		)
		logger.Info("Redis enabled", "addr", cfg.Redis.Addr, "channel", cfg.Redis.Channel)
	}

	ins, err := inspector.New(h.Window, opts...)
	if err != nil {
		h.closeRedis()
		return nil, fmt.Errorf("error initializing inspector: %w", err)
	}
	h.Inspector = ins
	return h, nil
}

func dialRedis(ctx context.Context, cfg config.Redis) (backend.UniversalClient, error) {
	client := backend.NewClient(&backend.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// Handler returns the HTTP surface: websocket, RPC, SSE and metrics.
func (h *Host) Handler() (http.Handler, error) {
	wsOpts := []websocket.Option{websocket.WithLogger(h.logger)}
	if h.cfg.RateLimit.RPS > 0 {
		wsOpts = append(wsOpts, websocket.WithRateLimit(h.cfg.RateLimit.RPS, h.cfg.RateLimit.Burst))
	}
	return httpadapter.NewHandler(h.Inspector.Manager(), h.Inspector.Session(),
		httpadapter.WithLogger(h.logger),
		httpadapter.WithStreams(h.Streams),
		httpadapter.WithMetrics(promhttp.HandlerFor(h.Metrics, promhttp.HandlerOpts{})),
		httpadapter.WithWebsocketOptions(wsOpts...),
	)
}

// Animate mutates the demo tree every d on the owner goroutine.
func (h *Host) Animate(d time.Duration) (stop func(), err error) {
	tick := 0
	return h.Inspector.Every(d, func() {
		tick++
		sample.Animate(h.Window, tick)
	})
}

// Close detaches controllers and releases Redis.
func (h *Host) Close(ctx context.Context) error {
	err := h.Inspector.Close(ctx)
	return errors.Join(err, h.closeRedis())
}

func (h *Host) closeRedis() error {
	if h.redis == nil {
		return nil
	}
	return h.redis.Close()
}

func debugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnAttach: func(ctx context.Context, e *domain.EventBase) {
			logger.Debug("Session Attached", "session_id", e.SessionID)
		},
		OnDetach: func(ctx context.Context, e *domain.EventBase) {
			logger.Debug("Session Detached", "session_id", e.SessionID)
		},
		OnCommand: func(ctx context.Context, e *domain.CommandEvent) {
			if e.Err != nil {
				logger.Debug("Command (Error)", "session_id", e.SessionID, "method", e.Method, "err", e.Err)
				return
			}
			logger.Debug("Command", "session_id", e.SessionID, "method", e.Method,
				"duration", e.Duration, "tracked", e.Tracked)
		},
		OnPush: func(ctx context.Context, e *domain.PushEvent) {
			logger.Debug("Push", "session_id", e.SessionID, "method", e.Method)
		},
	}
}
