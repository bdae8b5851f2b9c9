package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/stategraph/observability"
	"github.com/tailored-agentic-units/stategraph/orchestrate/config"
)

// Result is the outcome of a run.
//
// On failure State holds the state as of the last successful merge, Path the
// nodes executed so far and Steps the number of completed steps.
type Result struct {
	RunID string
	State State
	Steps int
	Path  []string
}

// Engine executes compiled graphs.
//
// An Engine carries only configuration and an observer. It keeps no per-run
// data, so a single Engine may run any number of graphs concurrently.
type Engine struct {
	name     string
	maxSteps int
	observer observability.Observer
}

// NewEngine creates an engine from configuration.
//
// The constructor resolves the observer from the observability registry.
//
// Example:
//
//	cfg := config.GraphConfig{
//	    Name:     "loan",
//	    Observer: "slog",
//	    MaxSteps: 25,
//	}
//	engine, err := state.NewEngine(cfg)
//	if err != nil {
//	    // Handle observer resolution error
//	}
func NewEngine(cfg config.GraphConfig) (*Engine, error) {
	observer, err := observability.GetObserver(cfg.Observer)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}
	return NewEngineWithDeps(cfg, observer), nil
}

// NewEngineWithDeps creates an engine with an explicit observer. A nil
// observer disables events.
func NewEngineWithDeps(cfg config.GraphConfig, observer observability.Observer) *Engine {
	if observer == nil {
		observer = observability.NoOpObserver{}
	}

	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = config.DefaultMaxSteps
	}

	return &Engine{
		name:     cfg.Name,
		maxSteps: maxSteps,
		observer: observer,
	}
}

// MaxSteps returns the step ceiling applied to every run.
func (e *Engine) MaxSteps() int {
	return e.maxSteps
}

// Run executes g once, bounded by maxSteps, without observer events.
// A non-positive maxSteps means config.DefaultMaxSteps.
func Run(ctx context.Context, g *CompiledGraph, initial State, maxSteps int) (Result, error) {
	engine := NewEngineWithDeps(config.GraphConfig{MaxSteps: maxSteps}, nil)
	return engine.Run(ctx, g, initial)
}

// Run executes g from its entry point, starting at initial.
//
// Execution follows this algorithm:
//  1. Stop with CancelledError if ctx is done
//  2. Stop with StepLimitExceededError if the step ceiling is reached
//  3. Execute the current node with a snapshot of the state
//  4. Merge the returned update into the state
//  5. Follow the static edge, or call the router on the merged state and
//     look its result up in the outcome map (UnmappedOutcomeError if absent)
//  6. Return when the next node is End, else repeat from step 1
//
// Cycles are legal; revisiting a node emits a cycle.detected warning and
// the step ceiling bounds the run.
//
// Returns ExecutionError with full context on failure.
func (e *Engine) Run(ctx context.Context, g *CompiledGraph, initial State) (Result, error) {
	res := Result{
		RunID: uuid.Must(uuid.NewV7()).String(),
		State: initial,
	}

	source := e.name
	if g != nil && g.Name() != "" {
		source = g.Name()
	}

	emit := func(t observability.EventType, level observability.Level, data map[string]any) {
		data["run_id"] = res.RunID
		e.observer.OnEvent(ctx, observability.Event{
			Type:      t,
			Level:     level,
			Timestamp: time.Now(),
			Source:    source,
			Data:      data,
		})
	}

	fail := func(node, reason string, err error) (Result, error) {
		emit(observability.EventGraphError, observability.LevelError, map[string]any{
			"node":   node,
			"reason": reason,
			"steps":  res.Steps,
			"error":  err.Error(),
		})
		return res, &ExecutionError{
			NodeName: node,
			State:    res.State,
			Path:     append([]string(nil), res.Path...),
			Steps:    res.Steps,
			Err:      err,
		}
	}

	if g == nil {
		return fail("", "invalid_graph", ErrNilGraph)
	}

	if initial.Schema() != g.Schema() {
		return fail(g.Entry(), "schema_mismatch", &SchemaMismatchError{Graph: source})
	}

	emit(observability.EventGraphStart, observability.LevelInfo, map[string]any{
		"entry_point": g.Entry(),
		"max_steps":   e.maxSteps,
	})

	current := g.Entry()
	visited := make(map[string]int)

	for {
		if err := ctx.Err(); err != nil {
			return fail(current, "cancelled", &CancelledError{Node: current, Cause: err})
		}

		if res.Steps >= e.maxSteps {
			return fail(current, "step_limit", &StepLimitExceededError{Node: current, MaxSteps: e.maxSteps})
		}

		visited[current]++
		res.Path = append(res.Path, current)

		if visited[current] > 1 {
			emit(observability.EventCycleDetected, observability.LevelWarning, map[string]any{
				"node":        current,
				"visit_count": visited[current],
				"step":        res.Steps + 1,
			})
		}

		emit(observability.EventNodeStart, observability.LevelVerbose, map[string]any{
			"node": current,
			"step": res.Steps + 1,
		})

		update, err := g.nodes[current].Execute(ctx, res.State)

		emit(observability.EventNodeComplete, observability.LevelVerbose, map[string]any{
			"node":  current,
			"step":  res.Steps + 1,
			"error": err != nil,
		})

		if err != nil {
			return fail(current, "node_failed", &NodeFailedError{Node: current, Err: err})
		}

		merged, err := res.State.Merge(update)
		if err != nil {
			return fail(current, "merge_failed", fmt.Errorf("merge update from node %s: %w", current, err))
		}
		res.State = merged
		res.Steps++

		emit(observability.EventStateMerge, observability.LevelVerbose, map[string]any{
			"node":   current,
			"fields": sortedKeys(update),
		})

		next, err := e.resolve(g, current, res.State, emit)
		if err != nil {
			return fail(current, "unmapped_outcome", err)
		}

		emit(observability.EventEdgeTransition, observability.LevelVerbose, map[string]any{
			"from": current,
			"to":   next,
		})

		if next == End {
			emit(observability.EventGraphComplete, observability.LevelInfo, map[string]any{
				"exit_point": current,
				"steps":      res.Steps,
			})
			return res, nil
		}

		current = next
	}
}

func (e *Engine) resolve(
	g *CompiledGraph,
	current string,
	s State,
	emit func(observability.EventType, observability.Level, map[string]any),
) (string, error) {
	if to, ok := g.edges[current]; ok {
		return to, nil
	}

	cond := g.conditional[current]
	key := cond.Router(s)
	to, ok := cond.Outcomes[key]
	if !ok {
		return "", &UnmappedOutcomeError{Node: current, Outcome: key, Known: cond.OutcomeKeys()}
	}

	emit(observability.EventRouteSelect, observability.LevelVerbose, map[string]any{
		"node":    current,
		"outcome": key,
		"to":      to,
	})
	return to, nil
}

// IsCancelled reports whether err stopped a run because its context ended.
func IsCancelled(err error) bool {
	var cancelled *CancelledError
	return errors.As(err, &cancelled)
}
