package state

import "context"

// Node represents a computation step in a state graph.
//
// A node receives a snapshot of the current state and returns the partial
// Update it wants merged. It never mutates the snapshot; the engine applies
// the update using each field's merge policy. Returning an error stops the
// run with NodeFailedError.
type Node interface {
	Execute(ctx context.Context, snapshot State) (Update, error)
}

// NodeFunc adapts an ordinary function to the Node interface.
type NodeFunc func(ctx context.Context, snapshot State) (Update, error)

// Execute calls f(ctx, snapshot).
func (f NodeFunc) Execute(ctx context.Context, snapshot State) (Update, error) {
	return f(ctx, snapshot)
}

// NewFunctionNode creates a Node from a function.
//
// This is the most common Node implementation, enabling inline node
// definitions without creating custom types.
//
// Example:
//
//	node := state.NewFunctionNode(func(ctx context.Context, s state.State) (state.Update, error) {
//	    return state.Update{"counter": s.Int("counter") + 1}, nil
//	})
func NewFunctionNode(fn func(context.Context, State) (Update, error)) Node {
	return NodeFunc(fn)
}

// Pure wraps a function that cannot fail and ignores the context.
// A nil fn yields a nil Node.
func Pure(fn func(State) Update) Node {
	if fn == nil {
		return nil
	}
	return NodeFunc(func(_ context.Context, s State) (Update, error) {
		return fn(s), nil
	})
}
