package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jdholdren/learninghub/internal/hub"
)

func newNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize URL...",
		Short: "Print the canonical form of each url",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				fmt.Fprintln(cmd.OutOrStdout(), hub.NormalizeURL(arg))
			}
			return nil
		},
	}
}
