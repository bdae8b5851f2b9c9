package state_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/sync/errgroup"

	"github.com/tailored-agentic-units/stategraph/observability"
	"github.com/tailored-agentic-units/stategraph/orchestrate/config"
	"github.com/tailored-agentic-units/stategraph/orchestrate/state"
)

var creditSchema = state.MustSchema(
	state.IntField("score"),
	state.TextField("employment"),
	state.TextField("decision"),
)

func creditRouter(s state.State) string {
	if s.Text("employment") != "employed" {
		return "reject"
	}
	if s.Int("score") >= 700 {
		return "approve"
	}
	if s.Int("score") < 600 {
		return "reject"
	}
	return "manual_review"
}

func decide(decision string) state.Node {
	return state.Pure(func(state.State) state.Update {
		return state.Update{"decision": decision}
	})
}

func newCreditGraph(t *testing.T, outcomes map[string]string) *state.CompiledGraph {
	t.Helper()
	g := state.NewGraph("credit", creditSchema)
	g.AddNode("validate", state.Pure(func(state.State) state.Update { return nil }))
	g.AddNode("check_score", state.Pure(func(state.State) state.Update { return nil }))
	g.AddNode("approve", decide("approved"))
	g.AddNode("reject", decide("rejected"))
	g.AddEdge("validate", "check_score")
	if err := g.AddConditionalEdge("check_score", creditRouter, outcomes); err != nil {
		t.Fatalf("failed to add conditional edge: %v", err)
	}
	g.AddEdge("approve", state.End)
	g.AddEdge("reject", state.End)
	g.SetEntryPoint("validate")

	compiled, err := g.Compile()
	if err != nil {
		t.Fatalf("failed to compile: %v", err)
	}
	return compiled
}

var twoWay = map[string]string{"approve": "approve", "reject": "reject"}

func newAppendGraph(t *testing.T, opts ...state.GraphOption) *state.CompiledGraph {
	t.Helper()
	g := state.NewGraph("append", listSchema, opts...)
	g.AddNode("first", newTestNode("a"))
	g.AddNode("second", newTestNode("b"))
	g.AddNode("third", newTestNode("c"))
	g.AddEdge("first", "second")
	g.AddEdge("second", "third")
	g.AddEdge("third", state.End)
	g.SetEntryPoint("first")

	compiled, err := g.Compile()
	if err != nil {
		t.Fatalf("failed to compile: %v", err)
	}
	return compiled
}

func TestRun_CreditApproved(t *testing.T) {
	compiled := newCreditGraph(t, twoWay)
	initial, _ := compiled.NewState(map[string]any{"score": 750, "employment": "employed"})

	res, err := state.Run(context.Background(), compiled, initial, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.State.Text("decision") != "approved" {
		t.Errorf("decision = %q, want approved", res.State.Text("decision"))
	}
	if res.Steps != 3 {
		t.Errorf("Steps = %d, want 3", res.Steps)
	}
	if diff := cmp.Diff([]string{"validate", "check_score", "approve"}, res.Path); diff != "" {
		t.Errorf("Path mismatch (-want +got):\n%s", diff)
	}
	if res.RunID == "" {
		t.Error("RunID should be set")
	}
}

func TestRun_UnmappedOutcome(t *testing.T) {
	compiled := newCreditGraph(t, twoWay)
	initial, _ := compiled.NewState(map[string]any{"score": 650, "employment": "employed"})

	res, err := state.Run(context.Background(), compiled, initial, 10)

	var unmapped *state.UnmappedOutcomeError
	if !errors.As(err, &unmapped) {
		t.Fatalf("expected UnmappedOutcomeError, got %v", err)
	}
	if unmapped.Node != "check_score" || unmapped.Outcome != "manual_review" {
		t.Errorf("unexpected error fields: %+v", unmapped)
	}
	if res.Steps != 2 {
		t.Errorf("Steps = %d, want 2", res.Steps)
	}

	var execErr *state.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecutionError, got %T", err)
	}
	if execErr.NodeName != "check_score" {
		t.Errorf("NodeName = %q, want check_score", execErr.NodeName)
	}
}

func TestRun_AppendOrdering(t *testing.T) {
	compiled := newAppendGraph(t)

	for i := range 2 {
		initial, _ := compiled.NewState(nil)
		res, err := state.Run(context.Background(), compiled, initial, 10)
		if err != nil {
			t.Fatalf("run %d: unexpected error: %v", i, err)
		}
		if diff := cmp.Diff([]string{"a", "b", "c"}, res.State.TextList("log")); diff != "" {
			t.Errorf("run %d: log mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestRun_Deterministic(t *testing.T) {
	compiled := newCreditGraph(t, twoWay)
	initial, _ := compiled.NewState(map[string]any{"score": 550, "employment": "employed"})

	first, err := state.Run(context.Background(), compiled, initial, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := state.Run(context.Background(), compiled, initial, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !first.State.Equal(second.State) {
		t.Errorf("states differ: %s vs %s", first.State, second.State)
	}
	if diff := cmp.Diff(first.Path, second.Path); diff != "" {
		t.Errorf("paths differ (-first +second):\n%s", diff)
	}
	if first.State.Text("decision") != "rejected" {
		t.Errorf("decision = %q, want rejected", first.State.Text("decision"))
	}
}

func TestRun_InitialStateUnchanged(t *testing.T) {
	compiled := newAppendGraph(t)
	initial, _ := compiled.NewState(map[string]any{"log": []string{"seed"}})

	if _, err := state.Run(context.Background(), compiled, initial, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff([]string{"seed"}, initial.TextList("log")); diff != "" {
		t.Errorf("initial state changed (-want +got):\n%s", diff)
	}
}

func TestRun_StepLimitOnCycle(t *testing.T) {
	g := state.NewGraph("loop", listSchema)
	g.AddNode("ping", newTestNode("ping"))
	g.AddNode("pong", newTestNode("pong"))
	g.AddEdge("ping", "pong")
	g.AddEdge("pong", "ping")
	g.SetEntryPoint("ping")

	compiled, err := g.Compile()
	if err != nil {
		t.Fatalf("cycles must compile: %v", err)
	}

	initial, _ := compiled.NewState(nil)
	res, err := state.Run(context.Background(), compiled, initial, 5)

	var limit *state.StepLimitExceededError
	if !errors.As(err, &limit) {
		t.Fatalf("expected StepLimitExceededError, got %v", err)
	}
	if limit.MaxSteps != 5 || limit.Node != "pong" {
		t.Errorf("unexpected error fields: %+v", limit)
	}
	if res.Steps != 5 {
		t.Errorf("Steps = %d, want 5", res.Steps)
	}
	if len(res.State.TextList("log")) != 5 {
		t.Errorf("log has %d entries, want 5", len(res.State.TextList("log")))
	}
}

func TestRun_ConditionalLoopTerminates(t *testing.T) {
	g := state.NewGraph("counter", listSchema)
	g.AddNode("inc", state.Pure(func(s state.State) state.Update {
		return state.Update{"count": s.Int("count") + 1}
	}))
	g.AddConditionalEdge("inc", func(s state.State) string {
		if s.Int("count") >= 3 {
			return "done"
		}
		return "again"
	}, map[string]string{"again": "inc", "done": state.End})
	g.SetEntryPoint("inc")

	compiled, err := g.Compile()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	initial, _ := compiled.NewState(nil)
	res, err := state.Run(context.Background(), compiled, initial, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.State.Int("count") != 3 || res.Steps != 3 {
		t.Errorf("count = %d, steps = %d, want 3 and 3", res.State.Int("count"), res.Steps)
	}
}

func TestRun_Cancellation(t *testing.T) {
	t.Run("before first step", func(t *testing.T) {
		compiled := newAppendGraph(t)
		initial, _ := compiled.NewState(nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res, err := state.Run(ctx, compiled, initial, 10)

		var cancelled *state.CancelledError
		if !errors.As(err, &cancelled) {
			t.Fatalf("expected CancelledError, got %v", err)
		}
		if cancelled.Node != "first" || res.Steps != 0 {
			t.Errorf("node = %q, steps = %d", cancelled.Node, res.Steps)
		}
		if !errors.Is(err, context.Canceled) {
			t.Error("expected errors.Is(err, context.Canceled)")
		}
	})

	t.Run("between steps", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		g := state.NewGraph("cancel", listSchema)
		g.AddNode("first", state.NewFunctionNode(func(ctx context.Context, s state.State) (state.Update, error) {
			cancel()
			return state.Update{"log": []string{"a"}}, nil
		}))
		g.AddNode("second", newTestNode("b"))
		g.AddEdge("first", "second")
		g.AddEdge("second", state.End)
		g.SetEntryPoint("first")
		compiled, err := g.Compile()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		initial, _ := compiled.NewState(nil)
		res, err := state.Run(ctx, compiled, initial, 10)

		if !state.IsCancelled(err) {
			t.Fatalf("expected cancellation, got %v", err)
		}
		if diff := cmp.Diff([]string{"a"}, res.State.TextList("log")); diff != "" {
			t.Errorf("state should hold the last merge (-want +got):\n%s", diff)
		}
	})

	t.Run("cancellation wins over step limit", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		g := state.NewGraph("cancel", listSchema)
		g.AddNode("first", state.NewFunctionNode(func(ctx context.Context, s state.State) (state.Update, error) {
			cancel()
			return nil, nil
		}))
		g.AddEdge("first", "first")
		g.SetEntryPoint("first")
		compiled, err := g.Compile()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		initial, _ := compiled.NewState(nil)
		_, err = state.Run(ctx, compiled, initial, 1)
		if !state.IsCancelled(err) {
			t.Fatalf("expected cancellation, got %v", err)
		}
	})
}

func TestRun_NodeFailure(t *testing.T) {
	sentinel := errors.New("upstream unavailable")

	g := state.NewGraph("fail", listSchema)
	g.AddNode("ok", newTestNode("ok"))
	g.AddNode("bad", newErrorNode(sentinel))
	g.AddEdge("ok", "bad")
	g.AddEdge("bad", state.End)
	g.SetEntryPoint("ok")
	compiled, _ := g.Compile()

	initial, _ := compiled.NewState(nil)
	res, err := state.Run(context.Background(), compiled, initial, 10)

	var failed *state.NodeFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected NodeFailedError, got %v", err)
	}
	if failed.Node != "bad" {
		t.Errorf("Node = %q, want bad", failed.Node)
	}
	if !errors.Is(err, sentinel) {
		t.Error("expected errors.Is to find the node's error")
	}
	if diff := cmp.Diff([]string{"ok"}, res.State.TextList("log")); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_MergeFailure(t *testing.T) {
	g := state.NewGraph("merge", listSchema)
	g.AddNode("bad", state.Pure(func(state.State) state.Update {
		return state.Update{"undeclared": true}
	}))
	g.AddEdge("bad", state.End)
	g.SetEntryPoint("bad")
	compiled, _ := g.Compile()

	initial, _ := compiled.NewState(nil)
	_, err := state.Run(context.Background(), compiled, initial, 10)

	var undeclared *state.UndeclaredFieldError
	if !errors.As(err, &undeclared) {
		t.Fatalf("expected UndeclaredFieldError, got %v", err)
	}
	if undeclared.Field != "undeclared" {
		t.Errorf("Field = %q, want undeclared", undeclared.Field)
	}
}

func TestRun_SchemaMismatch(t *testing.T) {
	compiled := newAppendGraph(t)
	other, _ := state.NewState(creditSchema, nil)

	_, err := state.Run(context.Background(), compiled, other, 10)

	var mismatch *state.SchemaMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected SchemaMismatchError, got %v", err)
	}
}

func TestRun_NilGraph(t *testing.T) {
	initial, _ := state.NewState(creditSchema, nil)

	res, err := state.Run(context.Background(), nil, initial, 10)

	var execErr *state.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecutionError, got %v", err)
	}
	if !errors.Is(err, state.ErrNilGraph) {
		t.Errorf("errors.Is(err, ErrNilGraph) = false for %v", err)
	}
	if res.Steps != 0 || len(res.Path) != 0 {
		t.Errorf("nil graph executed: steps %d, path %v", res.Steps, res.Path)
	}
}

func TestRun_ConcurrentRunsShareGraph(t *testing.T) {
	compiled := newCreditGraph(t, twoWay)

	scores := make([]int, 50)
	for i := range scores {
		scores[i] = 500 + i*10
	}
	decisions := make([]string, len(scores))

	var group errgroup.Group
	for i, score := range scores {
		group.Go(func() error {
			initial, err := compiled.NewState(map[string]any{"score": score, "employment": "employed"})
			if err != nil {
				return err
			}
			res, err := state.Run(context.Background(), compiled, initial, 10)
			if err != nil {
				var unmapped *state.UnmappedOutcomeError
				if errors.As(err, &unmapped) {
					decisions[i] = unmapped.Outcome
					return nil
				}
				return fmt.Errorf("score %d: %w", score, err)
			}
			decisions[i] = res.State.Text("decision")
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, score := range scores {
		want := "manual_review"
		switch {
		case score >= 700:
			want = "approved"
		case score < 600:
			want = "rejected"
		}
		if decisions[i] != want {
			t.Errorf("score %d: decision = %q, want %q", score, decisions[i], want)
		}
	}
}

func TestEngine_ObserverEvents(t *testing.T) {
	observer := &captureObserver{}
	engine := state.NewEngineWithDeps(config.DefaultGraphConfig("events"), observer)

	g := state.NewGraph("events", listSchema)
	g.AddNode("only", newTestNode("x"))
	g.AddEdge("only", state.End)
	g.SetEntryPoint("only")
	compiled, _ := g.Compile()

	initial, _ := compiled.NewState(nil)
	res, err := engine.Run(context.Background(), compiled, initial)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []observability.EventType{
		observability.EventGraphStart,
		observability.EventNodeStart,
		observability.EventNodeComplete,
		observability.EventStateMerge,
		observability.EventEdgeTransition,
		observability.EventGraphComplete,
	}
	if diff := cmp.Diff(want, observer.types()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	for _, e := range observer.events {
		if e.Source != "events" {
			t.Errorf("%s: Source = %q, want events", e.Type, e.Source)
		}
		if e.Data["run_id"] != res.RunID {
			t.Errorf("%s: run_id = %v, want %s", e.Type, e.Data["run_id"], res.RunID)
		}
	}
}

func TestEngine_RouteAndCycleEvents(t *testing.T) {
	observer := &captureObserver{}
	engine := state.NewEngineWithDeps(config.GraphConfig{MaxSteps: 10}, observer)

	g := state.NewGraph("loop", listSchema)
	g.AddNode("inc", state.Pure(func(s state.State) state.Update {
		return state.Update{"count": s.Int("count") + 1}
	}))
	g.AddConditionalEdge("inc", func(s state.State) string {
		if s.Int("count") >= 2 {
			return "done"
		}
		return "again"
	}, map[string]string{"again": "inc", "done": state.End})
	g.SetEntryPoint("inc")
	compiled, _ := g.Compile()

	initial, _ := compiled.NewState(nil)
	if _, err := engine.Run(context.Background(), compiled, initial); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	counts := make(map[observability.EventType]int)
	for _, e := range observer.events {
		counts[e.Type]++
	}
	if counts[observability.EventRouteSelect] != 2 {
		t.Errorf("route.select count = %d, want 2", counts[observability.EventRouteSelect])
	}
	if counts[observability.EventCycleDetected] != 1 {
		t.Errorf("cycle.detected count = %d, want 1", counts[observability.EventCycleDetected])
	}
}

func TestNewEngine(t *testing.T) {
	tests := []struct {
		name        string
		config      config.GraphConfig
		expectError bool
		wantSteps   int
	}{
		{
			name:      "noop observer",
			config:    config.GraphConfig{Name: "test", Observer: "noop", MaxSteps: 7},
			wantSteps: 7,
		},
		{
			name:      "defaults max steps",
			config:    config.GraphConfig{Name: "test", Observer: "noop"},
			wantSteps: config.DefaultMaxSteps,
		},
		{
			name:        "invalid observer name",
			config:      config.GraphConfig{Name: "test", Observer: "invalid"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := state.NewEngine(tt.config)

			if tt.expectError {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if engine.MaxSteps() != tt.wantSteps {
				t.Errorf("MaxSteps() = %d, want %d", engine.MaxSteps(), tt.wantSteps)
			}
		})
	}
}

func TestEngine_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetricsObserver(reg)
	if err != nil {
		t.Fatalf("failed to create metrics observer: %v", err)
	}
	engine := state.NewEngineWithDeps(config.GraphConfig{MaxSteps: 10}, metrics)
	compiled := newCreditGraph(t, twoWay)

	for _, score := range []int{750, 500, 650} {
		initial, _ := compiled.NewState(map[string]any{"score": score, "employment": "employed"})
		engine.Run(context.Background(), compiled, initial)
	}

	if got := testutil.ToFloat64(metrics.Runs().WithLabelValues("credit", "completed")); got != 2 {
		t.Errorf("completed runs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.Runs().WithLabelValues("credit", "unmapped_outcome")); got != 1 {
		t.Errorf("unmapped runs = %v, want 1", got)
	}
}

func TestExecutionError(t *testing.T) {
	inner := errors.New("inner")
	err := &state.ExecutionError{NodeName: "n", Steps: 2, Err: inner}

	if !errors.Is(err, inner) {
		t.Error("Unwrap should expose the inner error")
	}
	want := "execution failed at node n after 2 steps: inner"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
