package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/stategraph/lessons"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [lesson ...]",
		Short: "Compile lessons and report diagnostics",
		Long:  "Compiles each lesson graph, or all of them without arguments, and reports unreachable nodes as warnings.",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := args
			if len(names) == 0 {
				names = lessons.Names()
			}

			out := cmd.OutOrStdout()
			for _, name := range names {
				lesson, err := lookupLesson(name)
				if err != nil {
					return err
				}
				compiled, err := lesson.Build()
				if err != nil {
					return fmt.Errorf("validation failed: %w", err)
				}

				fmt.Fprintf(out, "%s: valid (%d nodes, entry %s)\n", name, len(compiled.Nodes()), compiled.Entry())
				for _, d := range compiled.Diagnostics() {
					fmt.Fprintf(out, "  warning: %s\n", d)
				}
			}
			return nil
		},
	}
}
