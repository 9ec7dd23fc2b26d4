package browser

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/adapters"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/plan"
)

func testAction() plan.Action {
	return plan.Action{
		ID:         "act-abc123def456",
		Type:       plan.ActionCampaignCreate,
		Parameters: map[string]any{"campaign": "summer", "channel": "search"},
	}
}

func TestExecuteActionSuccess(t *testing.T) {
	var gotReq executeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/actions/execute" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(executeResponse{Details: map[string]any{"vendorId": "cmp-7"}})
	}))
	defer srv.Close()

	a := New(Config{BaseURL: srv.URL}, zerolog.Nop())
	result, err := a.ExecuteAction(context.Background(), "acct-1", testAction())
	if err != nil {
		t.Fatalf("ExecuteAction() error = %v", err)
	}

	if !result.OK {
		t.Fatalf("result not OK: %+v", result)
	}
	if result.Details["vendorId"] != "cmp-7" {
		t.Errorf("details = %v", result.Details)
	}
	if gotReq.ActionID != "act-abc123def456" || gotReq.AccountID != "acct-1" {
		t.Errorf("request = %+v", gotReq)
	}
}

func TestExecuteActionStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   adapters.ErrorCategory
	}{
		{http.StatusBadRequest, adapters.CategoryValidation},
		{http.StatusUnprocessableEntity, adapters.CategoryValidation},
		{http.StatusUnauthorized, adapters.CategoryAuth},
		{http.StatusForbidden, adapters.CategoryPermission},
		{http.StatusTooManyRequests, adapters.CategoryRateLimit},
		{http.StatusRequestTimeout, adapters.CategoryTimeout},
		{http.StatusGatewayTimeout, adapters.CategoryTimeout},
		{http.StatusInternalServerError, adapters.CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(executeResponse{Error: "vendor rejected action"})
			}))
			defer srv.Close()

			a := New(Config{BaseURL: srv.URL}, zerolog.Nop())
			result, err := a.ExecuteAction(context.Background(), "acct-1", testAction())
			if err != nil {
				t.Fatalf("ExecuteAction() error = %v", err)
			}
			if result.OK {
				t.Fatal("expected failed result")
			}
			if result.ErrorCategory != tt.want {
				t.Errorf("category = %s, want %s", result.ErrorCategory, tt.want)
			}
		})
	}
}

func TestExecuteActionDaemonDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused

	a := New(Config{BaseURL: srv.URL}, zerolog.Nop())
	result, err := a.ExecuteAction(context.Background(), "acct-1", testAction())
	if err != nil {
		t.Fatalf("ExecuteAction() error = %v", err)
	}
	if result.OK {
		t.Fatal("expected failed result")
	}
	if result.ErrorCategory != adapters.CategoryUnknown {
		t.Errorf("category = %s, want unknown", result.ErrorCategory)
	}
}

func TestProbeSession(t *testing.T) {
	tests := []struct {
		name   string
		status sessionStatus
		wantOK bool
	}{
		{"authenticated", sessionStatus{Authenticated: true, Detail: "session active"}, true},
		{"expired", sessionStatus{Authenticated: false, Detail: "login required"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/session/acct-1/status" {
					t.Errorf("path = %s", r.URL.Path)
				}
				json.NewEncoder(w).Encode(tt.status)
			}))
			defer srv.Close()

			a := New(Config{BaseURL: srv.URL}, zerolog.Nop())
			probe, err := a.ProbeSession(context.Background(), "acct-1")
			if err != nil {
				t.Fatalf("ProbeSession() error = %v", err)
			}
			if probe.OK != tt.wantOK {
				t.Errorf("OK = %v, want %v", probe.OK, tt.wantOK)
			}
			if probe.Adapter != AdapterName {
				t.Errorf("adapter = %s", probe.Adapter)
			}
		})
	}
}

func TestProbeSessionDaemonError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := New(Config{BaseURL: srv.URL}, zerolog.Nop())
	probe, err := a.ProbeSession(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("ProbeSession() error = %v", err)
	}
	if probe.OK {
		t.Error("probe should fail on daemon error")
	}
	if probe.Detail == "" {
		t.Error("expected failure detail")
	}
}
