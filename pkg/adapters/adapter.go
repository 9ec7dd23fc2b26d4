package adapters

import (
	"context"
	"time"

	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/plan"
)

// ErrorCategory classifies an adapter failure for retry and reporting logic.
type ErrorCategory string

const (
	// CategoryValidation indicates the action payload was rejected by the
	// vendor surface as malformed.
	CategoryValidation ErrorCategory = "validation"

	// CategoryAuth indicates the session is unauthenticated or expired.
	CategoryAuth ErrorCategory = "auth"

	// CategoryPermission indicates the session lacks rights for the action.
	CategoryPermission ErrorCategory = "permission"

	// CategoryRateLimit indicates vendor throttling.
	CategoryRateLimit ErrorCategory = "rate_limit"

	// CategoryTimeout indicates the backend did not respond in time.
	CategoryTimeout ErrorCategory = "timeout"

	// CategoryUnknown is the fallback for unclassified failures.
	CategoryUnknown ErrorCategory = "unknown"
)

// ProbeResult reports whether an adapter's session is usable.
type ProbeResult struct {
	// OK is true when the session is authenticated and ready.
	OK bool `json:"ok"`

	// Adapter is the name of the adapter that performed the probe.
	Adapter string `json:"adapter"`

	// CheckedAt is when the probe ran.
	CheckedAt time.Time `json:"checkedAt"`

	// Detail is an optional human-readable status line.
	Detail string `json:"detail,omitempty"`
}

// Result is the structured outcome of executing one action.
type Result struct {
	// OK is true when the action succeeded.
	OK bool `json:"ok"`

	// ActionID is the ID of the executed action.
	ActionID string `json:"actionId"`

	// Adapter is the backend that executed the action.
	Adapter string `json:"adapter"`

	// AccountID is the vendor account the action ran against.
	AccountID string `json:"accountId,omitempty"`

	// ErrorCategory classifies the failure; empty on success.
	ErrorCategory ErrorCategory `json:"errorCategory,omitempty"`

	// ErrorMessage is the human-readable failure detail; empty on success.
	ErrorMessage string `json:"errorMessage,omitempty"`

	// Details carries backend-specific output (vendor entity IDs, URLs).
	Details map[string]any `json:"details,omitempty"`
}

// Adapter is the execution backend contract. Implementations must be safe
// for sequential reuse across actions within one run; the orchestrator never
// calls a single adapter concurrently.
type Adapter interface {
	// Name returns the stable adapter name used in results and telemetry.
	Name() string

	// ProbeSession verifies the backend session is authenticated and ready
	// without mutating any vendor state.
	ProbeSession(ctx context.Context, accountID string) (ProbeResult, error)

	// ExecuteAction performs one compiled action against the backend.
	// Failures that the backend itself reports are returned in the Result
	// with OK=false and a category; the error return is reserved for
	// transport-level breakage where no structured result exists.
	ExecuteAction(ctx context.Context, accountID string, action plan.Action) (Result, error)
}
