package main

import (
	"fmt"

	"github.com/spf13/cobra"

	inspector "github.com/facebook/flipper-sub000"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of inspector",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "inspector version %s\n", inspector.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
