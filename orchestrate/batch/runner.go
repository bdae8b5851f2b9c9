package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tailored-agentic-units/stategraph/internal/ctxlog"
	"github.com/tailored-agentic-units/stategraph/observability"
	"github.com/tailored-agentic-units/stategraph/orchestrate/config"
	"github.com/tailored-agentic-units/stategraph/orchestrate/state"
)

// Job is one named initial state to run.
type Job struct {
	Name  string
	Input map[string]any
}

// Outcome is the result of a successful job.
type Outcome struct {
	Index  int
	Name   string
	Result state.Result
}

// Result holds successes and failures as dense slices in job order.
// Jobs skipped after a fail-fast cancellation appear in neither.
type Result struct {
	Outcomes []Outcome
	Errors   []JobError
}

// ProgressFunc is called after each successful job. It may be called from
// several goroutines at once.
type ProgressFunc func(completed, total int, outcome Outcome)

// Runner executes jobs against a compiled graph with a bounded worker pool.
type Runner struct {
	engine     *state.Engine
	observer   observability.Observer
	maxWorkers int
	workerCap  int
	failFast   bool
}

// NewRunner creates a runner, resolving cfg.Observer through the
// observability registry.
func NewRunner(cfg config.BatchConfig, engine *state.Engine) (*Runner, error) {
	observer, err := observability.GetObserver(cfg.Observer)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}
	return NewRunnerWithDeps(cfg, engine, observer), nil
}

// NewRunnerWithDeps creates a runner with an explicit observer. A nil
// observer disables batch events.
func NewRunnerWithDeps(cfg config.BatchConfig, engine *state.Engine, observer observability.Observer) *Runner {
	if observer == nil {
		observer = observability.NoOpObserver{}
	}

	workerCap := cfg.WorkerCap
	if workerCap <= 0 {
		workerCap = config.DefaultWorkerCap
	}

	return &Runner{
		engine:     engine,
		observer:   observer,
		maxWorkers: cfg.MaxWorkers,
		workerCap:  workerCap,
		failFast:   cfg.FailFast(),
	}
}

// WorkerCount returns the pool size for jobCount jobs. A positive maxWorkers
// is used as is; otherwise the size is NumCPU*2 capped by workerCap and
// jobCount, and never less than one.
func WorkerCount(maxWorkers, workerCap, jobCount int) int {
	if maxWorkers > 0 {
		return maxWorkers
	}

	workers := min(runtime.NumCPU()*2, workerCap, jobCount)
	if workers <= 0 {
		workers = 1
	}
	return workers
}

// Run executes every job on g and returns the outcomes in job order.
//
// The returned Result is populated even when err is non-nil.
func (r *Runner) Run(ctx context.Context, g *state.CompiledGraph, jobs []Job, progress ProgressFunc) (Result, error) {
	if len(jobs) == 0 {
		return Result{}, nil
	}

	workers := WorkerCount(r.maxWorkers, r.workerCap, len(jobs))
	r.emit(ctx, g, EventBatchStart, observability.LevelInfo, map[string]any{
		"job_count":    len(jobs),
		"worker_count": workers,
		"fail_fast":    r.failFast,
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make([]*Outcome, len(jobs))
	failures := make([]error, len(jobs))
	var completed atomic.Int32

	var eg errgroup.Group
	eg.SetLimit(workers)

	for i, job := range jobs {
		eg.Go(func() error {
			if runCtx.Err() != nil {
				return nil
			}

			r.emit(ctx, g, EventJobStart, observability.LevelVerbose, map[string]any{
				"job":   job.Name,
				"index": i,
			})

			res, err := r.runJob(runCtx, g, job)

			r.emit(ctx, g, EventJobComplete, observability.LevelVerbose, map[string]any{
				"job":   job.Name,
				"index": i,
				"error": err != nil,
			})

			if err != nil {
				if r.failFast && ctx.Err() == nil && runCtx.Err() != nil && interrupted(err) {
					return nil
				}
				failures[i] = err
				if r.failFast {
					cancel()
				}
				return nil
			}

			outcome := Outcome{Index: i, Name: job.Name, Result: res}
			outcomes[i] = &outcome
			if progress != nil {
				progress(int(completed.Add(1)), len(jobs), outcome)
			}
			return nil
		})
	}
	// Closures record failures by index and always return nil.
	_ = eg.Wait()

	var result Result
	for i := range jobs {
		if outcomes[i] != nil {
			result.Outcomes = append(result.Outcomes, *outcomes[i])
		}
		if failures[i] != nil {
			result.Errors = append(result.Errors, JobError{
				Index: i,
				Name:  jobs[i].Name,
				Err:   failures[i],
			})
		}
	}

	var err error
	switch {
	case ctx.Err() != nil:
		err = fmt.Errorf("batch cancelled: %w", ctx.Err())
	case len(result.Errors) > 0 && (r.failFast || len(result.Outcomes) == 0):
		err = &Error{Errors: result.Errors}
	}

	r.emit(ctx, g, EventBatchComplete, observability.LevelInfo, map[string]any{
		"jobs_completed": len(result.Outcomes),
		"jobs_failed":    len(result.Errors),
		"error":          err != nil,
	})

	return result, err
}

func interrupted(err error) bool {
	return state.IsCancelled(err) || errors.Is(err, context.Canceled)
}

func (r *Runner) runJob(ctx context.Context, g *state.CompiledGraph, job Job) (state.Result, error) {
	initial, err := g.NewState(job.Input)
	if err != nil {
		return state.Result{}, err
	}

	logger := ctxlog.FromContext(ctx).With("job", job.Name)
	return r.engine.Run(ctxlog.WithLogger(ctx, logger), g, initial)
}

func (r *Runner) emit(ctx context.Context, g *state.CompiledGraph, typ observability.EventType, level observability.Level, data map[string]any) {
	r.observer.OnEvent(ctx, observability.Event{
		Type:      typ,
		Level:     level,
		Timestamp: time.Now(),
		Source:    g.Name(),
		Data:      data,
	})
}
