package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/stategraph/orchestrate/state"
)

func newGraphCmd() *cobra.Command {
	var sample string

	cmd := &cobra.Command{
		Use:   "graph <lesson>",
		Short: "Print a lesson graph as a Mermaid flowchart",
		Long:  "Prints the compiled graph as Mermaid. With --sample the nodes visited by that sample are highlighted.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lesson, err := lookupLesson(args[0])
			if err != nil {
				return err
			}
			compiled, err := lesson.Build()
			if err != nil {
				return err
			}

			var visited []string
			if sample != "" {
				input, ok := findSample(lesson.Samples, sample)
				if !ok {
					return fmt.Errorf("lesson %s has no sample %s", lesson.Name, sample)
				}
				initial, err := compiled.NewState(input)
				if err != nil {
					return err
				}
				res, err := state.Run(cmd.Context(), compiled, initial, 0)
				if err != nil {
					return err
				}
				visited = res.Path
			}

			fmt.Fprint(cmd.OutOrStdout(), compiled.Mermaid(visited...))
			return nil
		},
	}

	cmd.Flags().StringVar(&sample, "sample", "", "Highlight the path taken by this sample")
	return cmd
}
