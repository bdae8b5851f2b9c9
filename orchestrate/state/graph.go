package state

import (
	"github.com/tailored-agentic-units/stategraph/observability"
)

// Graph defines a workflow as a directed graph of nodes and transitions over
// a fixed schema.
//
// A Graph is only a definition. Every builder method validates its input
// immediately and returns a typed error naming the offending node. Compile
// checks whole-graph properties and produces the immutable CompiledGraph
// that the engine runs.
//
// Example workflow structure:
//
//	g := state.NewGraph("credit", schema)
//	g.AddNode("validate", validateNode)
//	g.AddNode("check_score", scoreNode)
//	g.AddNode("approve", approveNode)
//	g.AddNode("reject", rejectNode)
//	g.AddEdge("validate", "check_score")
//	g.AddConditionalEdge("check_score", router, map[string]string{
//	    "approve": "approve",
//	    "reject":  "reject",
//	})
//	g.AddEdge("approve", state.End)
//	g.AddEdge("reject", state.End)
//	g.SetEntryPoint("validate")
//	compiled, err := g.Compile()
type Graph struct {
	name        string
	schema      *Schema
	order       []string
	nodes       map[string]Node
	edges       map[string]string
	conditional map[string]ConditionalEdge
	entry       string
	observer    observability.Observer
}

// GraphOption configures a Graph at construction.
type GraphOption func(*Graph)

// WithObserver sets the observer that receives compile events.
func WithObserver(observer observability.Observer) GraphOption {
	return func(g *Graph) {
		if observer != nil {
			g.observer = observer
		}
	}
}

// NewGraph creates an empty graph definition over schema.
func NewGraph(name string, schema *Schema, opts ...GraphOption) *Graph {
	g := &Graph{
		name:        name,
		schema:      schema,
		nodes:       make(map[string]Node),
		edges:       make(map[string]string),
		conditional: make(map[string]ConditionalEdge),
		observer:    observability.NoOpObserver{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name returns the graph identifier for event metadata.
func (g *Graph) Name() string {
	return g.name
}

// AddNode registers a computation step in the graph.
//
// Nodes must have unique names. The name End is reserved.
func (g *Graph) AddNode(name string, node Node) error {
	if name == "" {
		return &InvalidNodeError{Reason: "node name cannot be empty"}
	}

	if name == End {
		return &InvalidNodeError{Node: name, Reason: "name is reserved for the terminal marker"}
	}

	if fn, ok := node.(NodeFunc); node == nil || (ok && fn == nil) {
		return &InvalidNodeError{Node: name, Reason: "node cannot be nil"}
	}

	if _, exists := g.nodes[name]; exists {
		return &DuplicateNodeError{Node: name}
	}

	g.nodes[name] = node
	g.order = append(g.order, name)
	return nil
}

// AddEdge creates an unconditional transition from one node to another or
// to End.
//
// Both endpoints must be registered first. A node has at most one outgoing
// transition of either kind.
func (g *Graph) AddEdge(from, to string) error {
	if _, exists := g.nodes[from]; !exists {
		return &UnknownNodeError{Node: from}
	}

	if to != End {
		if _, exists := g.nodes[to]; !exists {
			return &UnknownNodeError{Node: to}
		}
	}

	if err := g.checkOutgoing(from); err != nil {
		return err
	}

	g.edges[from] = to
	return nil
}

// AddConditionalEdge attaches a router to a node. After the node runs, the
// router's result is looked up in outcomes to find the next node. Every
// outcome destination must be a registered node or End.
func (g *Graph) AddConditionalEdge(from string, router Router, outcomes map[string]string) error {
	if _, exists := g.nodes[from]; !exists {
		return &UnknownNodeError{Node: from}
	}

	if err := g.checkOutgoing(from); err != nil {
		return err
	}

	if router == nil {
		return &InvalidEdgeError{From: from, Reason: "router cannot be nil"}
	}

	if len(outcomes) == 0 {
		return &EmptyOutcomeMapError{Node: from}
	}

	copied := make(map[string]string, len(outcomes))
	for _, key := range sortedKeys(outcomes) {
		to := outcomes[key]
		if to != End {
			if _, exists := g.nodes[to]; !exists {
				return &UnknownNodeError{Node: to}
			}
		}
		copied[key] = to
	}

	g.conditional[from] = ConditionalEdge{
		From:     from,
		Router:   router,
		Outcomes: copied,
	}
	return nil
}

// SetEntryPoint defines the starting node for execution.
//
// The entry point node must exist. Only one entry point is allowed.
func (g *Graph) SetEntryPoint(name string) error {
	if g.entry != "" {
		return &EntryAlreadySetError{Current: g.entry, Requested: name}
	}

	if _, exists := g.nodes[name]; !exists {
		return &UnknownNodeError{Node: name}
	}

	g.entry = name
	return nil
}

func (g *Graph) checkOutgoing(from string) error {
	if _, exists := g.edges[from]; exists {
		return &ConflictingEdgeError{Node: from, Existing: "static"}
	}
	if _, exists := g.conditional[from]; exists {
		return &ConflictingEdgeError{Node: from, Existing: "conditional"}
	}
	return nil
}
