package state

import (
	"encoding/json"
	"time"
)

// CurrentVersion is the state document schema version this build reads and
// writes. Documents with any other version load as defaults.
const CurrentVersion = 1

// ControlPlaneState is the whole persisted control-plane document.
type ControlPlaneState struct {
	// Version is the document schema version.
	Version int `json:"version"`

	// UpdatedAt is when the document was last saved.
	UpdatedAt time.Time `json:"updatedAt"`

	// CapabilityMatrix maps adapter name to its supported action types.
	CapabilityMatrix map[string][]string `json:"capabilityMatrix,omitempty"`

	// Skills are the registered skills, keyed by name.
	Skills map[string]SkillRecord `json:"skills,omitempty"`

	// Workflows are the registered workflows, keyed by name.
	Workflows map[string]WorkflowRecord `json:"workflows,omitempty"`

	// Bindings map workflow names to the skills they invoke.
	Bindings map[string][]string `json:"bindings,omitempty"`

	// Runs are serialized run records, keyed by run ID. They stay opaque
	// here so the document does not depend on the orchestrator's types.
	Runs map[string]json.RawMessage `json:"runs,omitempty"`

	// Approvals are recorded approvals, keyed by approval ID.
	Approvals map[string]ApprovalRecord `json:"approvals,omitempty"`

	// Ledger is the append-only record of executed actions.
	Ledger []LedgerEntry `json:"ledger,omitempty"`

	// Drift are unresolved divergences found during reconciliation.
	Drift []DriftEntry `json:"drift,omitempty"`

	// SyncHealth summarizes the last reconciliation.
	SyncHealth SyncHealth `json:"syncHealth"`

	// Audit is the append-only operation trail.
	Audit []AuditEntry `json:"audit,omitempty"`
}

// SkillRecord is one registered skill.
type SkillRecord struct {
	Name         string    `json:"name"`
	Version      string    `json:"version,omitempty"`
	Description  string    `json:"description,omitempty"`
	Channels     []string  `json:"channels,omitempty"`
	Source       string    `json:"source,omitempty"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// WorkflowRecord is one registered workflow.
type WorkflowRecord struct {
	Name         string    `json:"name"`
	Version      string    `json:"version,omitempty"`
	Description  string    `json:"description,omitempty"`
	Steps        []string  `json:"steps,omitempty"`
	Source       string    `json:"source,omitempty"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// Approval decision statuses. A run with no recorded decision yet is
// pending, represented by the run's awaiting_approval state.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// ApprovalRecord is one recorded approval decision, granted or rejected.
type ApprovalRecord struct {
	// ID is the approval identity.
	ID string `json:"id"`

	// RunID is the run the decision belongs to.
	RunID string `json:"runId"`

	// Status is the decision: approved or rejected.
	Status string `json:"status"`

	// ActionIDs are the gated actions covered by this decision.
	ActionIDs []string `json:"actionIds"`

	// DecidedBy is the deciding actor's ID.
	DecidedBy string `json:"decidedBy"`

	// DecidedAt is when the decision was recorded.
	DecidedAt time.Time `json:"decidedAt"`

	// Note is an optional decision comment.
	Note string `json:"note,omitempty"`
}

// LedgerEntry is one executed action in the append-only ledger.
type LedgerEntry struct {
	// RunID is the run that executed the action.
	RunID string `json:"runId"`

	// ActionID is the executed action.
	ActionID string `json:"actionId"`

	// ActionType is the action's type.
	ActionType string `json:"actionType"`

	// Fingerprint is the action's content hash, used for idempotent
	// re-execution checks.
	Fingerprint string `json:"fingerprint"`

	// Adapter is the backend that executed the action.
	Adapter string `json:"adapter"`

	// AccountID is the vendor account the action ran against.
	AccountID string `json:"accountId,omitempty"`

	// ExecutedAt is when the action completed.
	ExecutedAt time.Time `json:"executedAt"`
}

// HasExecutedFingerprint reports whether an action with the given fingerprint
// already executed successfully.
func (s *ControlPlaneState) HasExecutedFingerprint(fp string) bool {
	for _, e := range s.Ledger {
		if e.Fingerprint == fp {
			return true
		}
	}
	return false
}

// Drift severities. Critical drift makes a workflow unusable; warning drift
// degrades it.
const (
	DriftSeverityWarning  = "warning"
	DriftSeverityCritical = "critical"
)

// DriftEntry is one divergence between expected and observed state.
type DriftEntry struct {
	// ID is the drift entry identity.
	ID string `json:"id"`

	// Kind names what drifted (e.g. "skill.unregistered", "workflow.unbound").
	Kind string `json:"kind"`

	// Subject is the drifted entity's name.
	Subject string `json:"subject"`

	// Severity is warning or critical.
	Severity string `json:"severity"`

	// Detail is a human-readable description.
	Detail string `json:"detail,omitempty"`

	// DetectedAt is when the drift was found.
	DetectedAt time.Time `json:"detectedAt"`
}

// SyncHealth summarizes the last reconciliation pass.
type SyncHealth struct {
	// LastSyncAt is when reconciliation last completed. Zero means never.
	LastSyncAt time.Time `json:"lastSyncAt,omitzero"`

	// ScannedSources is how many manifest sources the last pass read.
	ScannedSources int `json:"scannedSources"`

	// UnresolvedDrift is how many drift entries remain open.
	UnresolvedDrift int `json:"unresolvedDrift"`

	// UnresolvedCriticalDrift is how many of those are critical.
	UnresolvedCriticalDrift int `json:"unresolvedCriticalDrift"`
}

// Stale reports whether the last reconciliation is older than the given age.
// A zero LastSyncAt is always stale.
func (h SyncHealth) Stale(maxAge time.Duration, now time.Time) bool {
	if h.LastSyncAt.IsZero() {
		return true
	}
	return now.Sub(h.LastSyncAt) > maxAge
}

// AuditEntry is one operation in the append-only audit trail.
type AuditEntry struct {
	// Actor is the ID of who performed the operation.
	Actor string `json:"actor"`

	// Operation names what happened (e.g. "run.submit", "run.approve").
	Operation string `json:"operation"`

	// Subject is the affected entity (run ID, skill name).
	Subject string `json:"subject,omitempty"`

	// Detail is an optional human-readable note.
	Detail string `json:"detail,omitempty"`

	// At is when the operation happened.
	At time.Time `json:"at"`
}

// DefaultState returns a fresh, empty state document.
func DefaultState() *ControlPlaneState {
	return &ControlPlaneState{
		Version:          CurrentVersion,
		CapabilityMatrix: make(map[string][]string),
		Skills:           make(map[string]SkillRecord),
		Workflows:        make(map[string]WorkflowRecord),
		Bindings:         make(map[string][]string),
		Runs:             make(map[string]json.RawMessage),
		Approvals:        make(map[string]ApprovalRecord),
	}
}
