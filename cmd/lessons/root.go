package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/stategraph/internal/logging"
	"github.com/tailored-agentic-units/stategraph/lessons"
	"github.com/tailored-agentic-units/stategraph/observability"
	"github.com/tailored-agentic-units/stategraph/orchestrate/config"
)

// app holds the settings shared by every subcommand.
type app struct {
	verbose    bool
	configPath string
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "lessons",
		Short: "Run tutorial state graphs",
		Long:  "lessons builds small state graphs, validates them and runs them with sample or custom input.",
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			a.logger = logging.NewWithWriter(cmd.ErrOrStderr(), logging.Level(a.verbose))
		},
	}
	root.Version = version

	pf := root.PersistentFlags()
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Show node narration and engine events")
	pf.StringVar(&a.configPath, "config", "", "Graph configuration file (YAML or JSON)")

	root.AddCommand(newListCmd())
	root.AddCommand(newRunCmd(a))
	root.AddCommand(newGraphCmd())
	root.AddCommand(newValidateCmd())
	return root
}

// graphConfig layers the configuration file over the defaults for a lesson.
func (a *app) graphConfig(lesson string) (config.GraphConfig, error) {
	if a.configPath == "" {
		return config.DefaultGraphConfig(lesson), nil
	}
	cfg, err := config.LoadGraphConfig(a.configPath, lesson)
	if err != nil {
		return config.GraphConfig{}, err
	}
	return *cfg, nil
}

// observer resolves the configured observer. The slog observer is bound to
// the command's logger rather than the process default.
func (a *app) observer(name string) (observability.Observer, error) {
	if name == "slog" {
		return observability.NewSlogObserver(a.logger), nil
	}
	return observability.GetObserver(name)
}

func lookupLesson(name string) (lessons.Lesson, error) {
	lesson, err := lessons.Lookup(name)
	if err != nil {
		return lessons.Lesson{}, fmt.Errorf("%w (available: %v)", err, lessons.Names())
	}
	return lesson, nil
}
