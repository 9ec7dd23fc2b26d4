package orchestrator

import (
	"fmt"
	"time"

	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/adapters"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/plan"
)

// RunState is one state of the run lifecycle.
type RunState string

const (
	// StatePending is the initial state of every run.
	StatePending RunState = "pending"

	// StateAwaitingApproval means the run holds gated actions and waits for
	// a recorded approval before executing.
	StateAwaitingApproval RunState = "awaiting_approval"

	// StateExecuting means actions are being executed in order.
	StateExecuting RunState = "executing"

	// StateCompleted is the terminal success state.
	StateCompleted RunState = "completed"

	// StateFailed is the terminal failure state.
	StateFailed RunState = "failed"
)

// validTransitions encodes the run state machine. Terminal states have no
// outgoing edges, so a failed run can never reset to pending.
var validTransitions = map[RunState][]RunState{
	StatePending:          {StateAwaitingApproval, StateExecuting, StateFailed},
	StateAwaitingApproval: {StateExecuting, StateFailed},
	StateExecuting:        {StateCompleted, StateFailed},
}

// Terminal reports whether the state has no outgoing transitions.
func (s RunState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// TelemetryStatus is the outcome of one action attempt.
type TelemetryStatus string

const (
	// TelemetryOK marks a successful action attempt.
	TelemetryOK TelemetryStatus = "ok"

	// TelemetryFailed marks a failed action attempt.
	TelemetryFailed TelemetryStatus = "failed"
)

// TelemetryEntry records one action attempt.
type TelemetryEntry struct {
	// ActionID is the attempted action.
	ActionID string `json:"actionId"`

	// Status is ok or failed.
	Status TelemetryStatus `json:"status"`

	// Adapter is the backend that performed the attempt.
	Adapter string `json:"adapter"`

	// StartedAt and FinishedAt bound the attempt.
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	// ErrorCategory classifies the failure; empty on success.
	ErrorCategory adapters.ErrorCategory `json:"errorCategory,omitempty"`
}

// Replay trace outcomes.
const (
	// ReplaySuccess is a successful adapter call.
	ReplaySuccess = "success"

	// ReplayFailure is an adapter call that returned or reported a failure.
	ReplayFailure = "failure"

	// ReplayProbeFailed is a session probe that found the backend unusable.
	ReplayProbeFailed = "probe_failed"

	// ReplaySkippedDuplicate is an action skipped because its fingerprint
	// already appears in the ledger as executed.
	ReplaySkippedDuplicate = "skipped_duplicate"
)

// ReplayEntry is one adapter interaction in the ordered replay trace. The
// trace is complete enough to reconstruct a run without recontacting the
// external system.
type ReplayEntry struct {
	// Seq is the zero-based position within the run's trace.
	Seq int `json:"seq"`

	// ActionID is the affected action; empty for run-level entries such as
	// probe failures.
	ActionID string `json:"actionId,omitempty"`

	// ActionType is the action's type, when an action is involved.
	ActionType string `json:"actionType,omitempty"`

	// Adapter is the backend involved.
	Adapter string `json:"adapter"`

	// AccountID is the vendor account the call targeted.
	AccountID string `json:"accountId,omitempty"`

	// Outcome is one of success, failure, probe_failed, skipped_duplicate.
	Outcome string `json:"outcome"`

	// ErrorCategory and ErrorMessage carry failure detail.
	ErrorCategory adapters.ErrorCategory `json:"errorCategory,omitempty"`
	ErrorMessage  string                 `json:"errorMessage,omitempty"`

	// Details carries backend-specific output from successful calls.
	Details map[string]any `json:"details,omitempty"`

	// At is when the interaction finished.
	At time.Time `json:"at"`
}

// Run is one execution of a compiled plan.
type Run struct {
	// ID is the run identity.
	ID string `json:"id"`

	// PlanTitle and AccountID come from the submitted plan.
	PlanTitle string `json:"planTitle"`
	AccountID string `json:"accountId"`

	// Mode is the plan's execution mode.
	Mode plan.Mode `json:"mode"`

	// Adapter is the backend selected for this run.
	Adapter string `json:"adapter"`

	// ActionGraphHash is the compiled plan's stable hash.
	ActionGraphHash string `json:"actionGraphHash"`

	// State is the current lifecycle state.
	State RunState `json:"state"`

	// Actions is the compiled, ordered action list.
	Actions []plan.Action `json:"actions"`

	// Fingerprints maps action ID to content fingerprint.
	Fingerprints map[string]string `json:"fingerprints"`

	// Telemetry has one entry per action attempt.
	Telemetry []TelemetryEntry `json:"telemetry"`

	// ReplayTrace is the ordered record of every adapter interaction.
	ReplayTrace []ReplayEntry `json:"replayTrace"`

	// SubmittedBy is the submitting actor's ID.
	SubmittedBy string `json:"submittedBy"`

	// FailureReason is set when the run fails.
	FailureReason string `json:"failureReason,omitempty"`

	// CreatedAt, StartedAt and FinishedAt bound the lifecycle. StartedAt is
	// zero until the run begins executing.
	CreatedAt  time.Time `json:"createdAt"`
	StartedAt  time.Time `json:"startedAt,omitzero"`
	FinishedAt time.Time `json:"finishedAt,omitzero"`
}

// transition moves the run to a new state, rejecting edges the state machine
// does not allow.
func (r *Run) transition(to RunState) error {
	for _, allowed := range validTransitions[r.State] {
		if allowed == to {
			r.State = to
			return nil
		}
	}
	return fmt.Errorf("invalid run transition: %s -> %s", r.State, to)
}

// appendReplay appends a replay entry, stamping its sequence number.
func (r *Run) appendReplay(e ReplayEntry) {
	e.Seq = len(r.ReplayTrace)
	r.ReplayTrace = append(r.ReplayTrace, e)
}
