package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tailored-agentic-units/stategraph/internal/ctxlog"
	"github.com/tailored-agentic-units/stategraph/lessons"
	"github.com/tailored-agentic-units/stategraph/observability"
	"github.com/tailored-agentic-units/stategraph/orchestrate/batch"
	"github.com/tailored-agentic-units/stategraph/orchestrate/config"
	"github.com/tailored-agentic-units/stategraph/orchestrate/state"
)

type runOptions struct {
	input       string
	set         []string
	maxSteps    int
	workers     int
	keepGoing   bool
	metricsAddr string
}

// outcome is the printable result of one run.
type outcome struct {
	label  string
	result state.Result
	report string
}

func newRunCmd(a *app) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <lesson>",
		Short: "Run a lesson graph",
		Long: `Runs a lesson with the initial state from --input and --set, or, without
either, runs every sample of the lesson concurrently and prints the results in order.
By default the first failed sample cancels the rest; --keep-going reports every
failure after printing the samples that succeeded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runLesson(cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "YAML or JSON file with initial field values")
	f.StringArrayVar(&opts.set, "set", nil, "Set an initial field value (key=value, repeatable)")
	f.IntVar(&opts.maxSteps, "max-steps", 0, "Override the step ceiling")
	f.IntVar(&opts.workers, "workers", 0, "Number of samples run concurrently (0 = auto)")
	f.BoolVar(&opts.keepGoing, "keep-going", false, "Run every sample even after one fails")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address until interrupted")
	return cmd
}

func (a *app) runLesson(cmd *cobra.Command, name string, opts *runOptions) error {
	lesson, err := lookupLesson(name)
	if err != nil {
		return err
	}

	cfg, err := a.graphConfig(lesson.Name)
	if err != nil {
		return err
	}
	if opts.maxSteps > 0 {
		cfg.MaxSteps = opts.maxSteps
	}

	observer, err := a.observer(cfg.Observer)
	if err != nil {
		return err
	}

	var reg *prometheus.Registry
	if opts.metricsAddr != "" {
		reg = prometheus.NewRegistry()
		metrics, err := observability.NewMetricsObserver(reg)
		if err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
		observer = observability.NewMultiObserver(observer, metrics)
	}

	compiled, err := lesson.Build(state.WithObserver(observer))
	if err != nil {
		return err
	}
	engine := state.NewEngineWithDeps(cfg, observer)

	ctx := ctxlog.WithLogger(cmd.Context(), a.logger)

	var jobs []batch.Job
	if opts.input != "" || len(opts.set) > 0 {
		input, err := customInput(compiled.Schema(), opts.input, opts.set)
		if err != nil {
			return err
		}
		jobs = []batch.Job{{Name: "custom", Input: input}}
	} else {
		for _, sample := range lesson.Samples {
			jobs = append(jobs, batch.Job{Name: sample.Name, Input: sample.Input})
		}
	}

	batchCfg := config.DefaultBatchConfig()
	batchCfg.Merge(&config.BatchConfig{MaxWorkers: opts.workers})
	if opts.keepGoing {
		failFast := false
		batchCfg.FailFastNil = &failFast
	}
	runner := batch.NewRunnerWithDeps(batchCfg, engine, observer)

	res, runErr := runner.Run(ctx, compiled, jobs, nil)

	outcomes, err := reportOutcomes(lesson, res.Outcomes)
	if err != nil {
		return err
	}
	printOutcomes(cmd.OutOrStdout(), outcomes)

	if runErr != nil {
		return runErr
	}
	if len(res.Errors) > 0 {
		return &batch.Error{Errors: res.Errors}
	}

	if reg != nil {
		return serveMetrics(ctx, a, opts.metricsAddr, reg)
	}
	return nil
}

// reportOutcomes renders each successful run with the lesson's report.
func reportOutcomes(lesson lessons.Lesson, results []batch.Outcome) ([]outcome, error) {
	outcomes := make([]outcome, 0, len(results))
	for _, r := range results {
		report, err := lesson.Report(r.Result.State)
		if err != nil {
			return nil, fmt.Errorf("sample %s: %w", r.Name, err)
		}
		outcomes = append(outcomes, outcome{
			label:  lesson.Name + "/" + r.Name,
			result: r.Result,
			report: report,
		})
	}
	return outcomes, nil
}

func printOutcomes(out io.Writer, outcomes []outcome) {
	for i, o := range outcomes {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "=== %s ===\n", o.label)
		fmt.Fprintln(out, o.report)
		fmt.Fprintf(out, "--- %d steps: %s\n", o.result.Steps, strings.Join(o.result.Path, " -> "))
	}
}

// customInput builds initial values from an optional YAML or JSON file and
// key=value overrides. Override values are parsed as YAML scalars except for
// text fields, which take the raw string.
func customInput(schema *state.Schema, path string, overrides []string) (map[string]any, error) {
	values := make(map[string]any)

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read input file: %w", err)
		}
		if err := yaml.Unmarshal(data, &values); err != nil {
			return nil, fmt.Errorf("failed to parse input file: %w", err)
		}
	}

	for _, kv := range overrides {
		key, raw, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", kv)
		}

		field, declared := schema.Field(key)
		if !declared {
			return nil, &state.UndeclaredFieldError{Field: key}
		}
		if field.Kind == state.KindText {
			values[key] = raw
			continue
		}

		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", key, err)
		}
		values[key] = v
	}

	return values, nil
}

func serveMetrics(ctx context.Context, a *app, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	a.logger.Info("serving metrics", "addr", addr)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
