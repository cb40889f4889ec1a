package batch

import (
	"errors"
	"time"

	"accentabx/internal/layout"
)

// Status is the terminal state of one category within a run.
type Status string

const (
	StatusSucceeded        Status = "succeeded"
	StatusConversionFailed Status = "conversion_failed"
	StatusSetupFailed      Status = "setup_failed"
)

var (
	// ErrPartialFailure reports that at least one category did not succeed.
	ErrPartialFailure = errors.New("one or more categories failed")
	// ErrLocked reports that another driver holds the run lock.
	ErrLocked = errors.New("another accentabx run is in progress")
)

// Outcome is the result of processing one category.
type Outcome struct {
	Category string        `json:"category"`
	Paths    layout.Paths  `json:"paths"`
	Status   Status        `json:"status"`
	ExitCode int           `json:"exit_code"`
	Error    string        `json:"error,omitempty"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration_ns"`
}

// OK reports whether the category converted successfully.
func (o Outcome) OK() bool {
	return o.Status == StatusSucceeded
}

// Result aggregates one batch run.
type Result struct {
	RunID    string    `json:"run_id"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Outcomes []Outcome `json:"outcomes"`
}

// Succeeded returns the number of categories that converted successfully.
func (r Result) Succeeded() int {
	count := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			count++
		}
	}
	return count
}

// Failed returns the number of categories that did not succeed.
func (r Result) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}

// FailedCategories lists failed categories in processing order.
func (r Result) FailedCategories() []string {
	var failed []string
	for _, o := range r.Outcomes {
		if !o.OK() {
			failed = append(failed, o.Category)
		}
	}
	return failed
}

// OK reports whether every attempted category succeeded.
func (r Result) OK() bool {
	return r.Failed() == 0
}

// ByCategory maps each attempted category to its outcome.
func (r Result) ByCategory() map[string]Outcome {
	out := make(map[string]Outcome, len(r.Outcomes))
	for _, o := range r.Outcomes {
		out[o.Category] = o
	}
	return out
}

// Duration returns the wall-clock time of the run.
func (r Result) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}
