package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/facebook/flipper-sub000/internal/cli"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <ws-url>",
	Short: "Print the tree served by an inspector",
	Long: `Connects to a running inspector as a controller (for example
ws://localhost:8089/ws), fetches the main or accessibility tree and prints it.
With --query only the nodes leading to search matches are printed.

Dumps saved with --archive are sealed with AES-256-GCM when
INSPECTOR_ARCHIVE_KEY holds a 32 byte key (hex or base64).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		opts := cli.DumpOptions{Styled: term.IsTerminal(int(os.Stdout.Fd()))}
		opts.AX, _ = flags.GetBool("ax")
		opts.Query, _ = flags.GetString("query")
		opts.Name, _ = flags.GetString("name")
		opts.Format, _ = flags.GetString("format")
		opts.Properties, _ = flags.GetBool("properties")
		if opts.Styled {
			if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
				opts.Width = width
			}
		}

		dir := cfg.ArchiveDir
		if flags.Changed("archive") {
			dir, _ = flags.GetString("archive")
		}
		if dir != "" {
			redact, _ := flags.GetStringSlice("redact")
			archive, release, err := buildArchive(dir, redact)
			if err != nil {
				return err
			}
			defer release()
			opts.Archive = archive
		}

		sc := cli.NewSignalContext(context.Background())
		defer sc.Cancel()
		return cli.RunDump(sc, args[0], cmd.OutOrStdout(), opts)
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().Bool("ax", false, "Dump the accessibility tree")
	dumpCmd.Flags().StringP("query", "q", "", "Only print nodes leading to matches of this search")
	dumpCmd.Flags().String("name", "", "Name of the archived dump (default: timestamp)")
	dumpCmd.Flags().String("archive", "", "Directory or redis:// URL to save the dump into")
	dumpCmd.Flags().StringP("format", "f", cli.FormatTree, "Output: tree, markdown, mermaid or json")
	dumpCmd.Flags().Bool("properties", false, "Include node properties (markdown and styled tree)")
	dumpCmd.Flags().StringSlice("redact", nil, "Mask archived properties whose key matches these regular expressions")
}
