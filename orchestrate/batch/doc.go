// Package batch runs many initial states through one compiled graph
// concurrently.
//
// A Runner sizes a worker pool from config.BatchConfig, runs each Job on the
// shared state.Engine, and returns successful outcomes and failures in job
// order regardless of completion order.
//
// # Error Modes
//
// With FailFast (the default) the first failed run cancels the remaining
// ones and Run returns an *Error. Runs interrupted by that cancellation are
// dropped rather than reported.
//
// With FailFast disabled every job runs. Run returns an error only when all
// jobs failed or the caller's context was cancelled; partial failures are
// reported through Result.Errors.
//
//	runner := batch.NewRunnerWithDeps(config.DefaultBatchConfig(), engine, observer)
//	res, err := runner.Run(ctx, compiled, jobs, nil)
package batch
