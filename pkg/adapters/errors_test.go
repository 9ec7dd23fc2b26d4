package adapters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, ""},
		{"adapter error", NewAdapterError(CategoryAuth, "session expired", nil), CategoryAuth},
		{"wrapped adapter error", fmt.Errorf("execute: %w", NewAdapterError(CategoryRateLimit, "throttled", nil)), CategoryRateLimit},
		{"deadline", context.DeadlineExceeded, CategoryTimeout},
		{"canceled", context.Canceled, CategoryTimeout},
		{"plain error", errors.New("boom"), CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Categorize(tt.err); got != tt.want {
				t.Errorf("Categorize() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	retryable := []ErrorCategory{CategoryRateLimit, CategoryTimeout}
	for _, c := range retryable {
		if !IsRetryable(c) {
			t.Errorf("%s should be retryable", c)
		}
	}

	terminal := []ErrorCategory{CategoryValidation, CategoryAuth, CategoryPermission, CategoryUnknown}
	for _, c := range terminal {
		if IsRetryable(c) {
			t.Errorf("%s should not be retryable", c)
		}
	}
}

func TestAdapterErrorMessage(t *testing.T) {
	err := NewAdapterError(CategoryPermission, "denied", errors.New("403")).
		WithAdapter("browser").
		WithAction("act-abc")

	msg := err.Error()
	for _, want := range []string{"permission", "denied", "browser", "act-abc", "403"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message %q missing %q", msg, want)
		}
	}
}

func TestFailureResult(t *testing.T) {
	err := NewAdapterError(CategoryValidation, "bad payload", nil)
	res := FailureResult("cli", "acct-1", "act-xyz", err)

	if res.OK {
		t.Error("failure result must not be OK")
	}
	if res.ErrorCategory != CategoryValidation {
		t.Errorf("category = %s", res.ErrorCategory)
	}
	if res.ActionID != "act-xyz" || res.Adapter != "cli" || res.AccountID != "acct-1" {
		t.Errorf("context fields wrong: %+v", res)
	}
}
