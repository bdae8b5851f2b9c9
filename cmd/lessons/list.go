package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/stategraph/lessons"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available lessons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, l := range lessons.All() {
				fmt.Fprintf(out, "%-14s %s (%d samples)\n", l.Name, l.Title, len(l.Samples))
			}
			return nil
		},
	}
}
