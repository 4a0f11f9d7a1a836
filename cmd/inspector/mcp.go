package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/facebook/flipper-sub000/internal/cli"
	mcpadapter "github.com/facebook/flipper-sub000/pkg/adapters/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the demo widget tree to MCP clients as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")
		animate, _ := cmd.Flags().GetDuration("animate")

		sc := cli.NewSignalContext(context.Background())
		defer sc.Cancel()

		host, err := cli.NewDemoHost(sc, cfg, logger)
		if err != nil {
			return err
		}
		defer host.Close(context.WithoutCancel(sc))
		if animate > 0 {
			stop, err := host.Animate(animate)
			if err != nil {
				return err
			}
			defer stop()
		}

		srv := mcpadapter.NewServer(host.Inspector.Session(), mcpadapter.WithLogger(logger))

		switch transport {
		case "stdio":
			// Keep stdout for JSON-RPC only.
			log.SetOutput(os.Stderr)
			logger.Info("Starting Inspector MCP Server (Stdio)...")
			return srv.ServeStdio()
		case "sse":
			addr := fmt.Sprintf(":%d", port)
			baseURL := fmt.Sprintf("http://localhost:%d", port)
			return srv.ServeSSE(sc, addr, baseURL)
		}
		return fmt.Errorf("unknown transport %q: use stdio or sse", transport)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringP("transport", "t", "stdio", "Transport: stdio or sse")
	mcpCmd.Flags().IntP("port", "p", 8090, "Port for the SSE transport")
	mcpCmd.Flags().Duration("animate", 0, "Mutate the demo tree at this interval (0 disables)")
}
