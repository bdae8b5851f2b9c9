package config

// DefaultWorkerCap limits auto-detected batch workers.
const DefaultWorkerCap = 16

// BatchConfig defines configuration for running many initial states through
// one compiled graph.
//
// Example YAML:
//
//	max_workers: 4
//	fail_fast: false
type BatchConfig struct {
	// MaxWorkers specifies the exact number of concurrent runs (0 = auto-detect)
	MaxWorkers int `json:"max_workers" yaml:"max_workers"`

	// WorkerCap limits auto-detected workers
	WorkerCap int `json:"worker_cap" yaml:"worker_cap"`

	// FailFastNil controls error handling. Use FailFast() to read it.
	// A nil pointer means unset and defaults to true.
	FailFastNil *bool `json:"fail_fast" yaml:"fail_fast"`

	// Observer names a registered observer for batch-level events
	Observer string `json:"observer" yaml:"observer"`
}

// FailFast reports whether the first failed run cancels the rest.
func (c *BatchConfig) FailFast() bool {
	if c.FailFastNil == nil {
		return true
	}
	return *c.FailFastNil
}

// DefaultBatchConfig returns sensible defaults for batch execution.
//
// Default values:
//   - MaxWorkers: 0 (auto-detect: min(NumCPU*2, WorkerCap, len(jobs)))
//   - WorkerCap: DefaultWorkerCap
//   - FailFast: true
//   - Observer: "slog"
func DefaultBatchConfig() BatchConfig {
	failFast := true
	return BatchConfig{
		MaxWorkers:  0,
		WorkerCap:   DefaultWorkerCap,
		FailFastNil: &failFast,
		Observer:    "slog",
	}
}

// Merge applies set values from source into c.
func (c *BatchConfig) Merge(source *BatchConfig) {
	if source.MaxWorkers > 0 {
		c.MaxWorkers = source.MaxWorkers
	}

	if source.WorkerCap > 0 {
		c.WorkerCap = source.WorkerCap
	}

	if source.FailFastNil != nil {
		c.FailFastNil = source.FailFastNil
	}

	if source.Observer != "" {
		c.Observer = source.Observer
	}
}
