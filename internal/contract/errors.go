package contract

import (
	"errors"
	"fmt"
)

// Sentinel errors used across the engine.
var (
	ErrNoFiles        = errors.New("glob expansion matched no files")
	ErrMissingFlag    = errors.New("missing required flag")
	ErrClassification = errors.New("owner classification failed")
	ErrJobsFailed     = errors.New("analysis jobs failed")
	ErrCancelled      = errors.New("job cancelled before it started")
	ErrNotSummarized  = errors.New("summaries have not been computed")
)

// ClassifyError describes a failed owner lookup for one module.
type ClassifyError struct {
	Module string
	Output string
	Err    error
}

func (e *ClassifyError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("classify %s: %v (output: %q)", e.Module, e.Err, e.Output)
	}
	return fmt.Sprintf("classify %s: %v", e.Module, e.Err)
}

// Unwrap exposes both ErrClassification and the underlying cause.
func (e *ClassifyError) Unwrap() []error {
	return []error{ErrClassification, e.Err}
}

// JobsFailedError is returned by a run in which some jobs permanently failed.
// Summaries and reports are still produced for the successful leaves.
type JobsFailedError struct {
	Failed int
	Total  int
}

func (e *JobsFailedError) Error() string {
	return fmt.Sprintf("%d of %d analysis jobs failed", e.Failed, e.Total)
}

// Unwrap returns ErrJobsFailed.
func (e *JobsFailedError) Unwrap() error {
	return ErrJobsFailed
}
