package batch

import (
	"fmt"
	"sort"
	"strings"
)

// JobError captures the failure of a single job.
type JobError struct {
	// Index is the position of the job in the slice passed to Run
	Index int

	// Name is the job name
	Name string

	// Err is the error returned while preparing or running the job
	Err error
}

// Error wraps the job failures of a batch.
//
// Messages group failures by error text, most frequent first:
//
//	batch failed: job borderline: execution failed at node check_score after 2 steps: ...
//	batch failed: 3 jobs failed with 2 error types: 'boom' (2 jobs), 'bad input' (1 job)
type Error struct {
	Errors []JobError
}

func (e *Error) Error() string {
	if len(e.Errors) == 0 {
		return "batch failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("batch failed: job %s: %v", e.Errors[0].Name, e.Errors[0].Err)
	}

	counts := make(map[string]int)
	for _, jobErr := range e.Errors {
		counts[jobErr.Err.Error()]++
	}

	type summary struct {
		msg   string
		count int
	}
	summaries := make([]summary, 0, len(counts))
	for msg, count := range counts {
		summaries = append(summaries, summary{msg, count})
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].count != summaries[j].count {
			return summaries[i].count > summaries[j].count
		}
		return summaries[i].msg < summaries[j].msg
	})

	parts := make([]string, len(summaries))
	for i, s := range summaries {
		if s.count == 1 {
			parts[i] = fmt.Sprintf("'%s' (1 job)", s.msg)
		} else {
			parts[i] = fmt.Sprintf("'%s' (%d jobs)", s.msg, s.count)
		}
	}

	return fmt.Sprintf(
		"batch failed: %d jobs failed with %d error types: %s",
		len(e.Errors), len(counts), strings.Join(parts, ", "),
	)
}

// Unwrap exposes every job error to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, jobErr := range e.Errors {
		errs[i] = jobErr.Err
	}
	return errs
}
