package state

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/tailored-agentic-units/stategraph/observability"
)

// Diagnostic is a non-fatal finding produced by Compile.
type Diagnostic struct {
	Node    string
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Node, d.Message)
}

// Compile validates the definition and freezes it into a CompiledGraph.
//
// Validation runs in this order:
//  1. An entry point is set (MissingEntryError)
//  2. Reachability from the entry, following static edges and every
//     declared outcome; unreachable nodes become warning Diagnostics
//  3. Every node has an outgoing transition (DanglingNodeError for the first
//     offender in registration order)
//
// Cycles are allowed. They are bounded at run time by the step limit.
//
// The returned graph shares nothing mutable with the builder, so further
// builder calls do not affect it.
func (g *Graph) Compile() (*CompiledGraph, error) {
	if g.schema == nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("graph %s has no schema", g.name)}
	}

	if g.entry == "" {
		return nil, &MissingEntryError{Graph: g.name}
	}

	reachable := g.reachable()
	var diagnostics []Diagnostic
	for _, name := range g.order {
		if !reachable[name] {
			diagnostics = append(diagnostics, Diagnostic{
				Node:    name,
				Message: "unreachable from entry point " + g.entry,
			})
		}
	}

	for _, name := range g.order {
		_, static := g.edges[name]
		_, conditional := g.conditional[name]
		if !static && !conditional {
			return nil, &DanglingNodeError{Node: name}
		}
	}

	ctx := context.Background()
	for _, d := range diagnostics {
		g.observer.OnEvent(ctx, observability.Event{
			Type:      observability.EventGraphDiagnostic,
			Level:     observability.LevelWarning,
			Timestamp: time.Now(),
			Source:    g.name,
			Data: map[string]any{
				"node":    d.Node,
				"message": d.Message,
			},
		})
	}

	g.observer.OnEvent(ctx, observability.Event{
		Type:      observability.EventGraphCompile,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    g.name,
		Data: map[string]any{
			"entry_point": g.entry,
			"nodes":       len(g.order),
			"diagnostics": len(diagnostics),
		},
	})

	conditional := make(map[string]ConditionalEdge, len(g.conditional))
	for from, c := range g.conditional {
		c.Outcomes = maps.Clone(c.Outcomes)
		conditional[from] = c
	}

	return &CompiledGraph{
		name:        g.name,
		schema:      g.schema,
		order:       append([]string(nil), g.order...),
		nodes:       maps.Clone(g.nodes),
		edges:       maps.Clone(g.edges),
		conditional: conditional,
		entry:       g.entry,
		diagnostics: diagnostics,
	}, nil
}

// reachable walks the graph breadth-first from the entry point.
func (g *Graph) reachable() map[string]bool {
	seen := map[string]bool{g.entry: true}
	queue := []string{g.entry}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		var next []string
		if to, ok := g.edges[current]; ok {
			next = append(next, to)
		}
		if c, ok := g.conditional[current]; ok {
			for _, key := range c.OutcomeKeys() {
				next = append(next, c.Outcomes[key])
			}
		}

		for _, to := range next {
			if to == End || seen[to] {
				continue
			}
			seen[to] = true
			queue = append(queue, to)
		}
	}

	return seen
}
