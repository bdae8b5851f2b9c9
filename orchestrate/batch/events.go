package batch

import "github.com/tailored-agentic-units/stategraph/observability"

const (
	EventBatchStart    observability.EventType = "batch.start"
	EventBatchComplete observability.EventType = "batch.complete"
	EventJobStart      observability.EventType = "job.start"
	EventJobComplete   observability.EventType = "job.complete"
)
