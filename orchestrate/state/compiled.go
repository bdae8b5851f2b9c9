package state

// CompiledGraph is a validated, immutable graph ready for execution.
//
// A CompiledGraph holds no per-run data, so any number of runs may share one
// concurrently. All accessors return copies.
type CompiledGraph struct {
	name        string
	schema      *Schema
	order       []string
	nodes       map[string]Node
	edges       map[string]string
	conditional map[string]ConditionalEdge
	entry       string
	diagnostics []Diagnostic
}

// Name returns the graph identifier for event metadata.
func (c *CompiledGraph) Name() string {
	return c.name
}

// Schema returns the schema every state of this graph uses.
func (c *CompiledGraph) Schema() *Schema {
	return c.schema
}

// Entry returns the entry point node name.
func (c *CompiledGraph) Entry() string {
	return c.entry
}

// Nodes returns node names in registration order.
func (c *CompiledGraph) Nodes() []string {
	return append([]string(nil), c.order...)
}

// Diagnostics returns the warnings collected during compilation.
func (c *CompiledGraph) Diagnostics() []Diagnostic {
	return append([]Diagnostic(nil), c.diagnostics...)
}

// Successors lists the possible next nodes of name: the static target, or
// every outcome destination in outcome-key order. End may appear.
func (c *CompiledGraph) Successors(name string) []string {
	if to, ok := c.edges[name]; ok {
		return []string{to}
	}
	cond, ok := c.conditional[name]
	if !ok {
		return nil
	}
	keys := cond.OutcomeKeys()
	succ := make([]string, len(keys))
	for i, k := range keys {
		succ[i] = cond.Outcomes[k]
	}
	return succ
}

// Outcomes returns a copy of the outcome map of name's conditional edge, or
// nil if name has a static edge.
func (c *CompiledGraph) Outcomes(name string) map[string]string {
	cond, ok := c.conditional[name]
	if !ok {
		return nil
	}
	out := make(map[string]string, len(cond.Outcomes))
	for k, v := range cond.Outcomes {
		out[k] = v
	}
	return out
}

// NewState creates an initial state over the graph's schema.
func (c *CompiledGraph) NewState(values map[string]any) (State, error) {
	return NewState(c.schema, values)
}
