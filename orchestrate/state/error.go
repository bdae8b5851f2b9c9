package state

import (
	"errors"
	"fmt"
	"strings"
)

// Compile-time errors. Each is returned to the graph builder immediately and
// names the offending node so the definition can be corrected.

// DuplicateNodeError reports a second registration under the same name.
type DuplicateNodeError struct {
	Node string
}

func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("node %s already exists", e.Node)
}

// InvalidNodeError reports a node registration that can never be valid:
// an empty or reserved name, or a nil node.
type InvalidNodeError struct {
	Node   string
	Reason string
}

func (e *InvalidNodeError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("invalid node: %s", e.Reason)
	}
	return fmt.Sprintf("invalid node %s: %s", e.Node, e.Reason)
}

// UnknownNodeError reports a reference to a node that is not registered.
type UnknownNodeError struct {
	Node string
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("node %s does not exist", e.Node)
}

// ConflictingEdgeError reports a second outgoing transition from a node.
// A node has exactly one transition mechanism: a static edge or a
// conditional edge.
type ConflictingEdgeError struct {
	Node     string
	Existing string
}

func (e *ConflictingEdgeError) Error() string {
	return fmt.Sprintf("node %s already has an outgoing %s edge", e.Node, e.Existing)
}

// EmptyOutcomeMapError reports a conditional edge with no outcomes.
type EmptyOutcomeMapError struct {
	Node string
}

func (e *EmptyOutcomeMapError) Error() string {
	return fmt.Sprintf("conditional edge from %s has no outcomes", e.Node)
}

// InvalidEdgeError reports a structurally unusable edge, such as a
// conditional edge without a router.
type InvalidEdgeError struct {
	From   string
	Reason string
}

func (e *InvalidEdgeError) Error() string {
	return fmt.Sprintf("invalid edge from %s: %s", e.From, e.Reason)
}

// EntryAlreadySetError reports a second SetEntryPoint call.
type EntryAlreadySetError struct {
	Current   string
	Requested string
}

func (e *EntryAlreadySetError) Error() string {
	return fmt.Sprintf("entry point already set to %s, cannot set %s", e.Current, e.Requested)
}

// MissingEntryError reports a compile without an entry point.
type MissingEntryError struct {
	Graph string
}

func (e *MissingEntryError) Error() string {
	return fmt.Sprintf("graph %s has no entry point", e.Graph)
}

// DanglingNodeError reports a node with neither a static nor a conditional
// outgoing edge.
type DanglingNodeError struct {
	Node string
}

func (e *DanglingNodeError) Error() string {
	return fmt.Sprintf("node %s has no outgoing edge; add an edge to another node or to End", e.Node)
}

// SchemaError reports an invalid schema declaration.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid schema: %s", e.Reason)
	}
	return fmt.Sprintf("invalid schema field %s: %s", e.Field, e.Reason)
}

// State errors, raised by NewState and Merge.

// UndeclaredFieldError reports a value for a field the schema does not declare.
type UndeclaredFieldError struct {
	Field string
}

func (e *UndeclaredFieldError) Error() string {
	return fmt.Sprintf("field %s is not declared in the schema", e.Field)
}

// FieldTypeError reports a value that does not match its field's kind.
type FieldTypeError struct {
	Field string
	Kind  Kind
	Value any
}

func (e *FieldTypeError) Error() string {
	return fmt.Sprintf("field %s expects %s, got %T", e.Field, e.Kind, e.Value)
}

// Run-time errors. A run stops at the first one; the engine never guesses a
// default transition and never retries.

// StepLimitExceededError reports a run that reached its step ceiling before
// the terminal marker, usually a cycle.
type StepLimitExceededError struct {
	Node     string
	MaxSteps int
}

func (e *StepLimitExceededError) Error() string {
	return fmt.Sprintf("max steps (%d) exceeded before executing node %s", e.MaxSteps, e.Node)
}

// UnmappedOutcomeError reports a router result with no entry in the
// conditional edge's outcome map.
type UnmappedOutcomeError struct {
	Node    string
	Outcome string
	Known   []string
}

func (e *UnmappedOutcomeError) Error() string {
	return fmt.Sprintf("router for node %s returned unmapped outcome %q (known: %s)",
		e.Node, e.Outcome, strings.Join(e.Known, ", "))
}

// CancelledError reports a run stopped by its context between steps.
type CancelledError struct {
	Node  string
	Cause error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("run cancelled before node %s: %v", e.Node, e.Cause)
}

func (e *CancelledError) Unwrap() error {
	return e.Cause
}

// NodeFailedError reports an error returned by a node.
type NodeFailedError struct {
	Node string
	Err  error
}

func (e *NodeFailedError) Error() string {
	return fmt.Sprintf("node %s failed: %v", e.Node, e.Err)
}

func (e *NodeFailedError) Unwrap() error {
	return e.Err
}

// SchemaMismatchError reports an initial state built for a different schema
// than the graph's.
type SchemaMismatchError struct {
	Graph string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("initial state was not created with the schema of graph %s", e.Graph)
}

// ErrNilGraph is returned, wrapped in ExecutionError, when Run is given a
// nil graph.
var ErrNilGraph = errors.New("compiled graph cannot be nil")

// ExecutionError captures rich context when graph execution fails.
//
// This error type provides complete execution state for debugging:
//   - NodeName: Which node was current when the run stopped
//   - State: State as of the last successful merge
//   - Path: Nodes executed so far, in order
//   - Steps: Number of completed steps
//   - Err: One of the run-time errors above, or a merge error
type ExecutionError struct {
	NodeName string
	State    State
	Path     []string
	Steps    int
	Err      error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed at node %s after %d steps: %v", e.NodeName, e.Steps, e.Err)
}

// Unwrap enables error unwrapping for errors.Is and errors.As.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}
