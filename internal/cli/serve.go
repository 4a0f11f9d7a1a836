package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/facebook/flipper-sub000/internal/config"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions tune Serve.
type ServeOptions struct {
	// Animate mutates the demo tree at this interval; zero disables it.
	Animate time.Duration
	// Ready is called once the host is listening.
	Ready func(addr net.Addr)
}

// Serve runs the demo host on ln until ctx is cancelled.
func Serve(ctx context.Context, ln net.Listener, cfg *config.Config, logger *slog.Logger, opts ServeOptions) error {
	host, err := NewDemoHost(ctx, cfg, logger)
	if err != nil {
		_ = ln.Close()
		return err
	}
	handler, err := host.Handler()
	if err != nil {
		_ = ln.Close()
		return errors.Join(err, host.Close(context.Background()))
	}

	if opts.Animate > 0 {
		stop, err := host.Animate(opts.Animate)
		if err != nil {
			_ = ln.Close()
			return errors.Join(err, host.Close(context.Background()))
		}
		defer stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Websocket handlers outlive Shutdown; they stop when gctx does.
		BaseContext: func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		logger.Info("Inspector listening", "address", ln.Addr().String())
		if opts.Ready != nil {
			opts.Ready(ln.Addr())
		}
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Start shutdown...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			_ = srv.Close()
		}
		if closeErr := host.Close(shutdownCtx); closeErr != nil {
			logger.Warn("Failed to close host", "err", closeErr)
		}
		logger.Info("Inspector stopped gracefully")
		return nil
	})
	return g.Wait()
}
