// Package orchestrator drives test cases through comparison jobs on the
// execution agent and classifies how each job ended.
package orchestrator

// State is the lifecycle position of one comparison job.
type State string

const (
	StateIdle      State = "idle"
	StateQueued    State = "queued"
	StateSubmitted State = "submitted"
	StatePolling   State = "polling"
	StatePassed    State = "passed"
	StateFailed    State = "failed"
	StateTimedOut  State = "timed_out"
	StateSkipped   State = "skipped"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	switch s {
	case StatePassed, StateFailed, StateTimedOut, StateSkipped:
		return true
	}
	return false
}

// Outcome is why a job reached its terminal state.
type Outcome string

const (
	OutcomePassed          Outcome = "passed"
	OutcomeDataMismatch    Outcome = "data_mismatch"
	OutcomeExecutionError  Outcome = "execution_error"
	OutcomeSubmissionError Outcome = "submission_error"
	OutcomePollError       Outcome = "poll_error"
	OutcomeTimedOut        Outcome = "timed_out"
	OutcomeCancelled       Outcome = "cancelled"
	OutcomeSkipped         Outcome = "skipped"
)
