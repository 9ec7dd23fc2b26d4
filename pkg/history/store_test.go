package history

import (
	"context"
	"testing"
	"time"

	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/adapters"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/orchestrator"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/plan"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func archivedRun() *orchestrator.Run {
	now := time.Now().UTC().Truncate(time.Second)
	return &orchestrator.Run{
		ID:              "run-001",
		PlanTitle:       "Spring promo",
		AccountID:       "acct-1",
		Mode:            plan.ModeSandbox,
		Adapter:         "cli",
		ActionGraphHash: "abc123",
		State:           orchestrator.StateCompleted,
		Actions: []plan.Action{
			{ID: "act-1", Type: plan.ActionCampaignCreate, Risk: plan.RiskLow},
		},
		Fingerprints: map[string]string{"act-1": "fp-1"},
		Telemetry: []orchestrator.TelemetryEntry{
			{ActionID: "act-1", Status: orchestrator.TelemetryOK, Adapter: "cli", StartedAt: now, FinishedAt: now},
		},
		ReplayTrace: []orchestrator.ReplayEntry{
			{Seq: 0, ActionID: "act-1", ActionType: plan.ActionCampaignCreate, Adapter: "cli",
				Outcome: orchestrator.ReplaySuccess, Details: map[string]any{"entityId": "ext-9"}, At: now},
		},
		SubmittedBy: "ops",
		CreatedAt:   now,
		StartedAt:   now,
		FinishedAt:  now,
	}
}

func TestStoreLifecycle(t *testing.T) {
	store, err := NewStore(Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func TestArchiveAndGetRun(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run := archivedRun()
	if err := store.ArchiveRun(ctx, run); err != nil {
		t.Fatalf("ArchiveRun: %v", err)
	}

	got, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.State != orchestrator.StateCompleted {
		t.Errorf("state = %s, want completed", got.State)
	}
	if got.PlanTitle != run.PlanTitle || got.AccountID != run.AccountID {
		t.Errorf("run identity mismatch: %+v", got)
	}
	if len(got.Actions) != 1 || got.Actions[0].ID != "act-1" {
		t.Errorf("actions not reconstructed: %+v", got.Actions)
	}
	if got.Fingerprints["act-1"] != "fp-1" {
		t.Errorf("fingerprints not reconstructed: %v", got.Fingerprints)
	}
	if len(got.Telemetry) != 1 || got.Telemetry[0].Status != orchestrator.TelemetryOK {
		t.Errorf("telemetry not reconstructed: %+v", got.Telemetry)
	}
	if len(got.ReplayTrace) != 1 {
		t.Fatalf("replay trace not reconstructed: %+v", got.ReplayTrace)
	}
	if got.ReplayTrace[0].Details["entityId"] != "ext-9" {
		t.Errorf("replay details lost: %v", got.ReplayTrace[0].Details)
	}
}

func TestArchiveFailedRunKeepsErrorDetail(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run := archivedRun()
	run.ID = "run-002"
	run.State = orchestrator.StateFailed
	run.FailureReason = "action act-1 failed: forced failure"
	run.Telemetry[0].Status = orchestrator.TelemetryFailed
	run.Telemetry[0].ErrorCategory = adapters.CategoryRateLimit
	run.ReplayTrace[0].Outcome = orchestrator.ReplayFailure
	run.ReplayTrace[0].ErrorCategory = adapters.CategoryRateLimit
	run.ReplayTrace[0].ErrorMessage = "forced failure"

	if err := store.ArchiveRun(ctx, run); err != nil {
		t.Fatalf("ArchiveRun: %v", err)
	}

	got, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.FailureReason == "" {
		t.Error("failure reason lost")
	}
	if got.Telemetry[0].ErrorCategory != adapters.CategoryRateLimit {
		t.Errorf("error category = %s, want rate_limit", got.Telemetry[0].ErrorCategory)
	}
	if got.ReplayTrace[0].ErrorMessage != "forced failure" {
		t.Errorf("replay error message lost: %+v", got.ReplayTrace[0])
	}
}

func TestReArchiveReplacesRows(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run := archivedRun()
	if err := store.ArchiveRun(ctx, run); err != nil {
		t.Fatalf("first ArchiveRun: %v", err)
	}
	if err := store.ArchiveRun(ctx, run); err != nil {
		t.Fatalf("second ArchiveRun: %v", err)
	}

	got, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if len(got.Telemetry) != 1 || len(got.ReplayTrace) != 1 {
		t.Fatalf("re-archiving duplicated rows: %d telemetry, %d replay",
			len(got.Telemetry), len(got.ReplayTrace))
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	older := archivedRun()
	older.ID = "run-old"
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)

	newer := archivedRun()
	newer.ID = "run-new"

	if err := store.ArchiveRun(ctx, older); err != nil {
		t.Fatalf("ArchiveRun old: %v", err)
	}
	if err := store.ArchiveRun(ctx, newer); err != nil {
		t.Fatalf("ArchiveRun new: %v", err)
	}

	runs, err := store.ListRuns(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "run-new" || runs[1].ID != "run-old" {
		t.Errorf("unexpected order: %s, %s", runs[0].ID, runs[1].ID)
	}
}

func TestGetMissingRun(t *testing.T) {
	store := setupTestStore(t)
	if _, err := store.GetRun(context.Background(), "run-missing"); err == nil {
		t.Fatal("expected error for missing run")
	}
}
