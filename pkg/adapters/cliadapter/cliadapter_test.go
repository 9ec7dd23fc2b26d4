package cliadapter

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/rs/zerolog"

	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/adapters"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/adapters/cliproto"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/plan"
)

// fakeHelper simulates a vendor helper on in-memory pipes. The handler
// receives each decoded command and returns either a result payload or a
// protocol error.
type fakeHelper struct {
	handle func(cmd *cliproto.CommandMessage) (any, *cliproto.ErrorMessage)
}

func (f *fakeHelper) launch(_ context.Context) (*session, error) {
	cmdReader, cmdWriter := io.Pipe()
	respReader, respWriter := io.Pipe()

	go func() {
		defer respWriter.Close()
		enc := cliproto.NewEncoder(respWriter)
		dec := cliproto.NewDecoder(cmdReader)

		if err := enc.EncodeReady(&cliproto.ReadyMessage{Version: "test", Vendor: "fake", PID: 1}); err != nil {
			return
		}

		cmd, err := dec.DecodeCommand()
		if err != nil {
			return
		}

		result, helperErr := f.handle(cmd)
		if helperErr != nil {
			helperErr.CommandID = cmd.ID
			enc.EncodeError(helperErr)
			return
		}

		raw, _ := json.Marshal(result)
		enc.EncodeDone(&cliproto.DoneMessage{CommandID: cmd.ID, Result: raw})
	}()

	return &session{
		enc:    cliproto.NewEncoder(cmdWriter),
		dec:    cliproto.NewDecoder(respReader),
		closer: cmdWriter,
	}, nil
}

func newTestAdapter(t *testing.T, helper *fakeHelper) *Adapter {
	t.Helper()
	a := New(Config{BinaryPath: "unused"}, zerolog.Nop())
	a.launch = helper.launch
	return a
}

func TestExecuteActionSuccess(t *testing.T) {
	var gotCmd *cliproto.CommandMessage
	helper := &fakeHelper{
		handle: func(cmd *cliproto.CommandMessage) (any, *cliproto.ErrorMessage) {
			gotCmd = cmd
			return cliproto.ExecuteResult{Details: map[string]any{"vendorId": "cmp-900"}}, nil
		},
	}
	a := newTestAdapter(t, helper)

	action := plan.Action{
		ID:         "act-abc123def456",
		Type:       plan.ActionCampaignCreate,
		Parameters: map[string]any{"campaign": "summer", "channel": "search"},
	}

	result, err := a.ExecuteAction(context.Background(), "acct-1", action)
	if err != nil {
		t.Fatalf("ExecuteAction() error = %v", err)
	}
	if !result.OK {
		t.Fatalf("result not OK: %+v", result)
	}
	if result.ActionID != action.ID || result.Adapter != AdapterName || result.AccountID != "acct-1" {
		t.Errorf("result context wrong: %+v", result)
	}
	if result.Details["vendorId"] != "cmp-900" {
		t.Errorf("details = %v", result.Details)
	}

	if gotCmd.Type != cliproto.CommandTypeExecute {
		t.Errorf("wire command type = %s", gotCmd.Type)
	}
	var ep cliproto.ExecuteParams
	if err := cliproto.ParseData(gotCmd.Params, &ep); err != nil {
		t.Fatalf("ParseData() error = %v", err)
	}
	if ep.ActionID != action.ID || ep.ActionType != action.Type {
		t.Errorf("wire params = %+v", ep)
	}
}

func TestExecuteActionHelperError(t *testing.T) {
	helper := &fakeHelper{
		handle: func(_ *cliproto.CommandMessage) (any, *cliproto.ErrorMessage) {
			return nil, &cliproto.ErrorMessage{Category: "rate_limit", Message: "vendor throttled", Retryable: true}
		},
	}
	a := newTestAdapter(t, helper)

	result, err := a.ExecuteAction(context.Background(), "acct-1", plan.Action{ID: "act-x", Type: plan.ActionBudgetSet})
	if err != nil {
		t.Fatalf("ExecuteAction() error = %v", err)
	}
	if result.OK {
		t.Fatal("expected failed result")
	}
	if result.ErrorCategory != adapters.CategoryRateLimit {
		t.Errorf("category = %s, want rate_limit", result.ErrorCategory)
	}
	if result.ErrorMessage == "" {
		t.Error("expected error message")
	}
}

func TestExecuteActionUnknownWireCategory(t *testing.T) {
	helper := &fakeHelper{
		handle: func(_ *cliproto.CommandMessage) (any, *cliproto.ErrorMessage) {
			return nil, &cliproto.ErrorMessage{Category: "martian", Message: "??"}
		},
	}
	a := newTestAdapter(t, helper)

	result, err := a.ExecuteAction(context.Background(), "acct-1", plan.Action{ID: "act-x", Type: plan.ActionBudgetSet})
	if err != nil {
		t.Fatalf("ExecuteAction() error = %v", err)
	}
	if result.ErrorCategory != adapters.CategoryUnknown {
		t.Errorf("category = %s, want unknown", result.ErrorCategory)
	}
}

func TestProbeSession(t *testing.T) {
	tests := []struct {
		name    string
		outcome cliproto.ProbeOutcome
		wantOK  bool
	}{
		{"authenticated", cliproto.ProbeOutcome{Authenticated: true, Detail: "session active"}, true},
		{"logged out", cliproto.ProbeOutcome{Authenticated: false, Detail: "login required"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			helper := &fakeHelper{
				handle: func(cmd *cliproto.CommandMessage) (any, *cliproto.ErrorMessage) {
					if cmd.Type != cliproto.CommandTypeProbe {
						t.Errorf("command type = %s", cmd.Type)
					}
					return tt.outcome, nil
				},
			}
			a := newTestAdapter(t, helper)

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

func TestProbeSessionHelperFailure(t *testing.T) {
	helper := &fakeHelper{
		handle: func(_ *cliproto.CommandMessage) (any, *cliproto.ErrorMessage) {
			return nil, &cliproto.ErrorMessage{Category: "auth", Message: "cookie expired"}
		},
	}
	a := newTestAdapter(t, helper)

	probe, err := a.ProbeSession(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("ProbeSession() error = %v", err)
	}
	if probe.OK {
		t.Error("probe should fail when the helper reports an error")
	}
	if probe.Detail == "" {
		t.Error("expected failure detail")
	}
}
