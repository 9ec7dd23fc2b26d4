package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/plan"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

func operatorInput(mode string, actions []plan.Action) *Input {
	return &Input{
		Mode:        mode,
		AccountID:   "acct-1",
		ActorRole:   "operator",
		ActorScopes: []string{"controlplane:read", "controlplane:write"},
		Actions:     actions,
	}
}

func TestLiveCriticalRequiresAdmin(t *testing.T) {
	e := testEngine(t)

	actions := []plan.Action{
		{ID: "act-launch", Type: plan.ActionCampaignLaunch, Risk: plan.RiskCritical, Parameters: map[string]any{"mode": "live"}},
	}

	result, err := e.EvaluatePlan(context.Background(), operatorInput("live", actions))
	if err != nil {
		t.Fatalf("EvaluatePlan() error = %v", err)
	}
	if result.Allowed {
		t.Fatal("live critical action by an operator must be denied")
	}

	found := false
	for _, v := range result.Violations {
		if v.Policy == "live-launch-guard" && v.ActionID == "act-launch" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected live-launch-guard violation, got %+v", result.Violations)
	}
}

func TestLiveCriticalAllowedForAdmin(t *testing.T) {
	e := testEngine(t)

	input := &Input{
		Mode:        "live",
		AccountID:   "acct-1",
		ActorRole:   "admin",
		ActorScopes: []string{"controlplane:admin"},
		Actions: []plan.Action{
			{ID: "act-launch", Type: plan.ActionCampaignLaunch, Risk: plan.RiskCritical, Parameters: map[string]any{"mode": "live"}},
		},
	}

	result, err := e.EvaluatePlan(context.Background(), input)
	if err != nil {
		t.Fatalf("EvaluatePlan() error = %v", err)
	}
	if !result.Allowed {
		t.Errorf("admin live launch should be allowed, violations: %+v", result.Violations)
	}
}

func TestSandboxCriticalAllowed(t *testing.T) {
	e := testEngine(t)

	actions := []plan.Action{
		{ID: "act-launch", Type: plan.ActionCampaignLaunch, Risk: plan.RiskCritical, Parameters: map[string]any{"mode": "sandbox"}},
	}

	result, err := e.EvaluatePlan(context.Background(), operatorInput("sandbox", actions))
	if err != nil {
		t.Fatalf("EvaluatePlan() error = %v", err)
	}
	if !result.Allowed {
		t.Errorf("sandbox plan should be allowed, violations: %+v", result.Violations)
	}
}

func TestBudgetCap(t *testing.T) {
	e := testEngine(t)

	actions := []plan.Action{
		{
			ID:         "act-budget",
			Type:       plan.ActionBudgetSet,
			Risk:       plan.RiskHigh,
			Parameters: map[string]any{"dailyBudgetCents": 200000000},
		},
	}

	result, err := e.EvaluatePlan(context.Background(), operatorInput("live", actions))
	if err != nil {
		t.Fatalf("EvaluatePlan() error = %v", err)
	}
	if result.Allowed {
		t.Fatal("budget above the live cap must be denied")
	}

	found := false
	for _, v := range result.Violations {
		if v.Policy == "budget-cap" && v.Severity == SeverityError {
			found = true
		}
	}
	if !found {
		t.Errorf("expected budget-cap error violation, got %+v", result.Violations)
	}
}

func TestEmptyCreativeDenied(t *testing.T) {
	e := testEngine(t)

	actions := []plan.Action{
		{
			ID:         "act-creative",
			Type:       plan.ActionCreativeUpload,
			Risk:       plan.RiskLow,
			Parameters: map[string]any{"campaign": "c", "channel": "search", "creative": "empty", "format": "image"},
		},
	}

	result, err := e.EvaluatePlan(context.Background(), operatorInput("sandbox", actions))
	if err != nil {
		t.Fatalf("EvaluatePlan() error = %v", err)
	}
	if result.Allowed {
		t.Fatal("creative with no content must be denied")
	}
}

func TestDisablePolicy(t *testing.T) {
	e := testEngine(t)

	if err := e.DisablePolicy("creative-content"); err != nil {
		t.Fatalf("DisablePolicy() error = %v", err)
	}

	actions := []plan.Action{
		{
			ID:         "act-creative",
			Type:       plan.ActionCreativeUpload,
			Risk:       plan.RiskLow,
			Parameters: map[string]any{"creative": "empty", "format": "image"},
		},
	}

	result, err := e.EvaluatePlan(context.Background(), operatorInput("sandbox", actions))
	if err != nil {
		t.Fatalf("EvaluatePlan() error = %v", err)
	}
	if !result.Allowed {
		t.Errorf("disabled policy must not block, violations: %+v", result.Violations)
	}
}

func TestLoadOperatorPolicy(t *testing.T) {
	dir := t.TempDir()
	regoFile := filepath.Join(dir, "no-email.rego")
	content := `# Blocks email channel campaigns
package controlplane.policies.noemail

import rego.v1

deny contains violation if {
	some action in input.actions
	action.parameters.channel == "email"

	violation := {
		"message": sprintf("action %s targets the blocked email channel", [action.id]),
		"severity": "error",
		"action_id": action.id,
	}
}`
	if err := os.WriteFile(regoFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	e := testEngine(t)
	if err := e.LoadPolicies(context.Background(), []string{dir}); err != nil {
		t.Fatalf("LoadPolicies() error = %v", err)
	}

	if _, err := e.GetPolicy("no-email"); err != nil {
		t.Fatalf("GetPolicy() error = %v", err)
	}

	actions := []plan.Action{
		{ID: "act-email", Type: plan.ActionCampaignCreate, Parameters: map[string]any{"campaign": "c", "channel": "email"}},
	}

	result, err := e.EvaluatePlan(context.Background(), operatorInput("sandbox", actions))
	if err != nil {
		t.Fatalf("EvaluatePlan() error = %v", err)
	}
	if result.Allowed {
		t.Error("operator policy should deny email channel")
	}
}

func TestWatchReloadsChangedPolicies(t *testing.T) {
	dir := t.TempDir()
	e := testEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := e.WatchPolicies(ctx, []string{dir}); err != nil {
		t.Fatalf("WatchPolicies() error = %v", err)
	}
	defer e.Close()

	content := `# Blocks video creatives
package controlplane.policies.novideo

import rego.v1

deny contains violation if {
	some action in input.actions
	action.parameters.format == "video"

	violation := {
		"message": sprintf("action %s uploads a blocked video creative", [action.id]),
		"severity": "error",
		"action_id": action.id,
	}
}`
	if err := os.WriteFile(filepath.Join(dir, "no-video.rego"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	// Reloads are debounced, so poll until the new policy appears.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := e.GetPolicy("no-video"); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("changed policy did not load before the deadline")
		}
		time.Sleep(50 * time.Millisecond)
	}

	if _, err := e.GetPolicy("live-launch-guard"); err != nil {
		t.Error("built-in policy lost after reload")
	}

	actions := []plan.Action{
		{ID: "act-video", Type: plan.ActionCreativeUpload, Parameters: map[string]any{"creative": "clip", "format": "video"}},
	}
	result, err := e.EvaluatePlan(context.Background(), operatorInput("sandbox", actions))
	if err != nil {
		t.Fatalf("EvaluatePlan() error = %v", err)
	}
	if result.Allowed {
		t.Error("reloaded policy should deny video creatives")
	}
}

func TestReplacePoliciesKeepsBuiltins(t *testing.T) {
	e := testEngine(t)

	if err := e.ReplacePolicies(nil); err != nil {
		t.Fatalf("ReplacePolicies() error = %v", err)
	}

	if _, err := e.GetPolicy("live-launch-guard"); err != nil {
		t.Error("built-in policy lost after replace")
	}
}
