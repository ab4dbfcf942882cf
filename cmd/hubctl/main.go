// Command hubctl talks to a learninghub server from the terminal.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "hubctl",
		Short:        "learninghub command line",
		Long:         `Normalizes links and imports lists of them into a learninghub server.`,
		SilenceUsage: true,
	}
	rootCmd.AddCommand(newNormalizeCmd(), newImportCmd())

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
