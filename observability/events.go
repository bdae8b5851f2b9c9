package observability

// EventType identifies the kind of event.
type EventType string

const (
	// Compilation
	EventGraphCompile    EventType = "graph.compile"
	EventGraphDiagnostic EventType = "graph.diagnostic"

	// Execution
	EventGraphStart     EventType = "graph.start"
	EventGraphComplete  EventType = "graph.complete"
	EventGraphError     EventType = "graph.error"
	EventNodeStart      EventType = "node.start"
	EventNodeComplete   EventType = "node.complete"
	EventStateMerge     EventType = "state.merge"
	EventEdgeTransition EventType = "edge.transition"
	EventRouteSelect    EventType = "route.select"
	EventCycleDetected  EventType = "cycle.detected"
)
