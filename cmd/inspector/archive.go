package main

import (
	"fmt"
	"os"
	"strings"

	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/facebook/flipper-sub000/internal/cli"
	loamadapter "github.com/facebook/flipper-sub000/pkg/adapters/loam"
	redisadapter "github.com/facebook/flipper-sub000/pkg/adapters/redis"
	"github.com/facebook/flipper-sub000/pkg/persistence/middleware"
	"github.com/facebook/flipper-sub000/pkg/ports"
)

// archiveKeyEnv holds the hex or base64 AES-256 key used to seal dumps.
const archiveKeyEnv = "INSPECTOR_ARCHIVE_KEY"

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Browse saved dumps",
}

func openArchive(cmd *cobra.Command) (ports.SnapshotArchive, func(), error) {
	dir := cfg.ArchiveDir
	if cmd.Flags().Changed("dir") || dir == "" {
		dir, _ = cmd.Flags().GetString("dir")
	}
	return buildArchive(dir, nil)
}

// buildArchive opens the archive at location, a directory for loam or a
// redis:// URL, masking properties that match redact and sealing dumps when
// archiveKeyEnv is set. The returned func releases the backend.
func buildArchive(location string, redact []string) (ports.SnapshotArchive, func(), error) {
	var (
		base    ports.SnapshotArchive
		release = func() {}
	)
	if strings.HasPrefix(location, "redis://") || strings.HasPrefix(location, "rediss://") {
		opts, err := backend.ParseURL(location)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid archive url: %w", err)
		}
		client := backend.NewClient(opts)
		release = func() { _ = client.Close() }
		base = redisadapter.NewArchive(client)
	} else {
		archive, err := loamadapter.Open(location)
		if err != nil {
			return nil, nil, err
		}
		base = archive
	}

	var mws []middleware.Middleware
	if len(redact) > 0 {
		mw, err := middleware.NewRedactMiddleware(redact)
		if err != nil {
			release()
			return nil, nil, err
		}
		mws = append(mws, mw)
	}
	if raw := os.Getenv(archiveKeyEnv); raw != "" {
		key, err := middleware.ParseKey(raw)
		if err != nil {
			release()
			return nil, nil, fmt.Errorf("%s: %w", archiveKeyEnv, err)
		}
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			release()
			return nil, nil, err
		}
		mws = append(mws, mw)
	}
	return middleware.Chain(base, mws...), release, nil
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved dumps",
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, release, err := openArchive(cmd)
		if err != nil {
			return err
		}
		defer release()
		names, err := archive.List(cmd.Context())
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var archiveShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a saved dump",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, release, err := openArchive(cmd)
		if err != nil {
			return err
		}
		defer release()
		snap, err := archive.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		return cli.Render(cmd.OutOrStdout(), snap, nil, cli.DumpOptions{
			Format: format,
			Styled: term.IsTerminal(int(os.Stdout.Fd())),
		})
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.AddCommand(archiveListCmd, archiveShowCmd)
	archiveCmd.PersistentFlags().String("dir", "dumps", "Archive directory or redis:// URL")
	archiveShowCmd.Flags().StringP("format", "f", cli.FormatTree, "Output: tree, markdown, mermaid or json")
}
