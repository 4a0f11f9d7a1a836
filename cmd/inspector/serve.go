package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/facebook/flipper-sub000/internal/cli"
	"github.com/facebook/flipper-sub000/internal/presentation/tui"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the demo widget tree",
	Long: `Starts the demo host and exposes it to controllers:
- /ws       WebSocket controller protocol
- /rpc/*    one-shot commands over HTTP (validated against /openapi.yaml)
- /events   push events as Server-Sent Events
- /metrics  Prometheus metrics`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if flags.Changed("listen") {
			cfg.Listen, _ = flags.GetString("listen")
		}
		if flags.Changed("poll-interval") {
			cfg.PollInterval, _ = flags.GetDuration("poll-interval")
		}
		if flags.Changed("tree-select") {
			cfg.TreeSelect, _ = flags.GetBool("tree-select")
		}
		if flags.Changed("redis-addr") {
			cfg.Redis.Addr, _ = flags.GetString("redis-addr")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		animate, _ := flags.GetDuration("animate")

		ln, err := net.Listen("tcp", cfg.Listen)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.Listen, err)
		}

		sc := cli.NewSignalContext(context.Background())
		defer sc.Cancel()

		if term.IsTerminal(int(os.Stderr.Fd())) {
			tui.PrintBanner(os.Stderr, termenv.NewOutput(os.Stderr).EnvColorProfile(), ln.Addr().String())
		}

		err = cli.Serve(sc, ln, cfg, logger, cli.ServeOptions{Animate: animate})
		if sig := sc.Signal(); sig != nil {
			logger.Info("Stopped by signal", "signal", sig.String())
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", ":8089", "Address to listen on")
	serveCmd.Flags().Duration("poll-interval", 0, "Push invalidate events when child counts change (0 disables)")
	serveCmd.Flags().Bool("tree-select", false, "Send select events in the nested {tree, path} form")
	serveCmd.Flags().String("redis-addr", "", "Redis address for event fan-out and the controller lease")
	serveCmd.Flags().Duration("animate", time.Second, "Mutate the demo tree at this interval (0 disables)")
}
