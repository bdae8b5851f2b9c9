// Package lessons contains the tutorial graphs run by the lessons CLI.
//
// Each lesson is a small graph over its own schema together with the sample
// inputs it is demonstrated with. Node bodies narrate through the logger
// found in their context (see internal/ctxlog) and never print directly.
package lessons

import (
	"fmt"

	"github.com/tailored-agentic-units/stategraph/orchestrate/state"
)

// Sample is a named initial state for a lesson.
type Sample struct {
	Name  string
	Input map[string]any
}

// Lesson describes one tutorial graph.
type Lesson struct {
	Name    string
	Title   string
	Samples []Sample

	build  func(opts ...state.GraphOption) (*state.CompiledGraph, error)
	report func(s state.State) (string, error)
}

// Build compiles the lesson's graph. Options are passed to state.NewGraph.
func (l Lesson) Build(opts ...state.GraphOption) (*state.CompiledGraph, error) {
	g, err := l.build(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build lesson %s: %w", l.Name, err)
	}
	return g, nil
}

// Report renders a final state as the lesson's human-readable result.
func (l Lesson) Report(s state.State) (string, error) {
	return l.report(s)
}

var registry = []Lesson{
	helloLesson,
	conversationLesson,
	loanLesson,
	faqLesson,
}

// All returns every lesson in presentation order.
func All() []Lesson {
	return append([]Lesson(nil), registry...)
}

// Lookup finds a lesson by name.
func Lookup(name string) (Lesson, error) {
	for _, l := range registry {
		if l.Name == name {
			return l, nil
		}
	}
	return Lesson{}, fmt.Errorf("unknown lesson: %s", name)
}

// Names returns the registered lesson names in presentation order.
func Names() []string {
	names := make([]string, len(registry))
	for i, l := range registry {
		names[i] = l.Name
	}
	return names
}

// builder collects the first error from a sequence of graph builder calls
// so lesson definitions read as a flat list of nodes and edges.
type builder struct {
	g   *state.Graph
	err error
}

func newBuilder(name string, schema *state.Schema, opts ...state.GraphOption) *builder {
	return &builder{g: state.NewGraph(name, schema, opts...)}
}

func (b *builder) node(name string, n state.Node) *builder {
	if b.err == nil {
		b.err = b.g.AddNode(name, n)
	}
	return b
}

func (b *builder) edge(from, to string) *builder {
	if b.err == nil {
		b.err = b.g.AddEdge(from, to)
	}
	return b
}

func (b *builder) route(from string, router state.Router, outcomes map[string]string) *builder {
	if b.err == nil {
		b.err = b.g.AddConditionalEdge(from, router, outcomes)
	}
	return b
}

func (b *builder) entry(name string) *builder {
	if b.err == nil {
		b.err = b.g.SetEntryPoint(name)
	}
	return b
}

func (b *builder) compile() (*state.CompiledGraph, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.g.Compile()
}
