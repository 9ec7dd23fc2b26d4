package adapters

import (
	"context"
	"errors"
	"fmt"
)

// AdapterError is a classified adapter failure with context.
// nolint:revive // AdapterError is intentionally named to distinguish from standard errors
type AdapterError struct {
	// Category is the normalized failure classification.
	Category ErrorCategory `json:"category"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Adapter is the backend that produced the error.
	Adapter string `json:"adapter,omitempty"`

	// ActionID is the action being executed when the error occurred.
	ActionID string `json:"actionId,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *AdapterError) Error() string {
	if e.ActionID != "" {
		return fmt.Sprintf("[%s] %s (adapter=%s, action=%s): %s",
			e.Category, e.Message, e.Adapter, e.ActionID, e.unwrapMessage())
	}
	if e.Adapter != "" {
		return fmt.Sprintf("[%s] %s (adapter=%s): %s", e.Category, e.Message, e.Adapter, e.unwrapMessage())
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Message, e.unwrapMessage())
}

// Unwrap returns the underlying error for error chain inspection.
func (e *AdapterError) Unwrap() error {
	return e.Err
}

func (e *AdapterError) unwrapMessage() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

// NewAdapterError creates a classified adapter error.
func NewAdapterError(category ErrorCategory, message string, err error) *AdapterError {
	return &AdapterError{
		Category: category,
		Message:  message,
		Err:      err,
	}
}

// WithAdapter adds the adapter name to the error context.
func (e *AdapterError) WithAdapter(name string) *AdapterError {
	e.Adapter = name
	return e
}

// WithAction adds the action ID to the error context.
func (e *AdapterError) WithAction(actionID string) *AdapterError {
	e.ActionID = actionID
	return e
}

// Categorize extracts the error category from an error chain. Context
// cancellation and deadline expiry map to the timeout category; anything
// unclassified maps to unknown.
func Categorize(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae.Category
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CategoryTimeout
	}
	return CategoryUnknown
}

// IsRetryable reports whether the failure category is worth retrying.
// Rate limiting and timeouts are retryable; validation, auth and permission
// failures will not succeed without operator intervention.
func IsRetryable(category ErrorCategory) bool {
	switch category {
	case CategoryRateLimit, CategoryTimeout:
		return true
	default:
		return false
	}
}

// FailureResult builds a failed Result from a classified error.
func FailureResult(adapterName, accountID, actionID string, err error) Result {
	return Result{
		OK:            false,
		ActionID:      actionID,
		Adapter:       adapterName,
		AccountID:     accountID,
		ErrorCategory: Categorize(err),
		ErrorMessage:  err.Error(),
	}
}
