// Package state provides a LangGraph-inspired state graph engine for Go.
//
// A graph is a set of named nodes over a fixed Schema. Each node reads an
// immutable State snapshot and returns a partial Update; the engine merges
// the update field by field and then follows the node's single outgoing
// transition, either a static Edge or a ConditionalEdge whose Router picks
// an outcome key.
//
// # Core Components
//
// Schema - Ordered field declarations with a Kind and a MergePolicy
//
// State - Immutable record holding every schema field
//
// Node - Computation step returning an Update
//
// Graph - Builder that validates each addition immediately
//
// CompiledGraph - Validated, immutable graph shared by concurrent runs
//
// Engine - Executes a CompiledGraph under a step ceiling and a context
//
// # Merge Policies
//
// Overwrite replaces a field's value. Append concatenates a text list after
// the current one, preserving the order the node returned:
//
//	schema := state.MustSchema(
//	    state.AppendField("messages"),
//	    state.IntField("turn_count"),
//	)
//	s, _ := state.NewState(schema, nil)
//	s, _ = s.Merge(state.Update{"messages": []string{"hi"}, "turn_count": 1})
//	s, _ = s.Merge(state.Update{"messages": []string{"there"}})
//	s.TextList("messages") // [hi there]
//
// # Building and Running
//
//	g := state.NewGraph("hello", schema)
//	g.AddNode("welcome", welcome)
//	g.AddNode("farewell", farewell)
//	g.AddEdge("welcome", "farewell")
//	g.AddEdge("farewell", state.End)
//	g.SetEntryPoint("welcome")
//
//	compiled, err := g.Compile()
//	initial, err := compiled.NewState(map[string]any{"message": ""})
//	res, err := state.Run(ctx, compiled, initial, 25)
//
// Compile rejects graphs without an entry point or with a node lacking an
// outgoing transition, and reports unreachable nodes as Diagnostics. Cycles
// are allowed; the step ceiling stops them at run time.
//
// # Errors
//
// Every failure is a typed error naming the node involved. Run-time errors
// are wrapped in ExecutionError, which also carries the state as of the last
// successful merge:
//
//	var unmapped *state.UnmappedOutcomeError
//	if errors.As(err, &unmapped) {
//	    log.Printf("router at %s returned %q", unmapped.Node, unmapped.Outcome)
//	}
//
// # Observer Integration
//
// Compile and Run emit observability events (graph.start, node.complete,
// route.select, cycle.detected, ...) carrying node names and step counts,
// never field values. Use observability.NoOpObserver when events are not
// needed.
package state
