package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/adapters"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/approval"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/plan"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/policy"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/state"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/telemetry"
)

// Archiver receives completed runs for long-term storage, in addition to the
// state document. Archive failures must not fail the run.
type Archiver interface {
	ArchiveRun(ctx context.Context, run *Run) error
}

// Config wires the orchestrator's collaborators.
type Config struct {
	// StateStore persists runs, the ledger and the audit trail. Required.
	StateStore *state.Store

	// Adapters holds the execution backends. Required.
	Adapters *adapters.Registry

	// Policy admits compiled plans before a run is created. Optional; nil
	// skips admission.
	Policy *policy.Engine

	// Metrics records run and action outcomes. Optional.
	Metrics *telemetry.Metrics

	// Tracer emits run and action spans. Optional.
	Tracer *telemetry.Tracer

	// Archive receives terminal runs. Optional.
	Archive Archiver

	// DefaultAdapter is used when a plan does not pin preferredAdapter.
	DefaultAdapter string

	// Logger is the parent logger.
	Logger zerolog.Logger
}

// Orchestrator creates runs from submitted plans and executes them.
type Orchestrator struct {
	cfg    Config
	logger zerolog.Logger
}

// New creates an orchestrator. The state store and adapter registry are
// required; everything else is optional.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.StateStore == nil {
		return nil, errors.New("state store is required")
	}
	if cfg.Adapters == nil {
		return nil, errors.New("adapter registry is required")
	}
	if cfg.DefaultAdapter == "" {
		cfg.DefaultAdapter = "cli"
	}
	return &Orchestrator{
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "orchestrator").Logger(),
	}, nil
}

// SubmitResult is the outcome of submitting a plan.
type SubmitResult struct {
	// OK is false when the plan was rejected before a run was created,
	// either by validation or by policy. A failed run still reports OK=true;
	// execution failure is run state, not submission failure.
	OK bool `json:"ok"`

	// ValidationErrors are compiler messages when validation rejected the plan.
	ValidationErrors []string `json:"validationErrors,omitempty"`

	// PolicyResult is set when policy admission ran.
	PolicyResult *policy.Result `json:"policyResult,omitempty"`

	// Run is the created run; nil when the plan was rejected.
	Run *Run `json:"run,omitempty"`
}

// SubmitPlan compiles, admits and executes a plan on behalf of an actor.
//
// Rejections (validation failure, policy denial) return OK=false with no run.
// Plans whose actions include gated risk tiers produce a run parked in
// awaiting_approval; everything else executes immediately. The returned error
// is reserved for infrastructure problems such as an unregistered adapter.
func (o *Orchestrator) SubmitPlan(ctx context.Context, p *plan.MarketingPlan, actor state.Actor) (*SubmitResult, error) {
	compiled, err := plan.Compile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to compile plan: %w", err)
	}
	if !compiled.Valid {
		return &SubmitResult{OK: false, ValidationErrors: compiled.Errors}, nil
	}

	fingerprints, err := plan.FingerprintAll(compiled.Actions)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint actions: %w", err)
	}

	mode := p.Mode
	if mode == "" {
		mode = plan.ModeSandbox
	}

	var policyResult *policy.Result
	if o.cfg.Policy != nil {
		policyResult, err = o.cfg.Policy.EvaluatePlan(ctx, &policy.Input{
			Mode:        string(mode),
			AccountID:   p.AccountID,
			ActorRole:   actor.Role,
			ActorScopes: actor.Scopes,
			Actions:     compiled.Actions,
		})
		if err != nil {
			return nil, fmt.Errorf("policy evaluation failed: %w", err)
		}
		if !policyResult.Allowed {
			o.logger.Warn().
				Str("actor", actor.ID).
				Int("violations", len(policyResult.Violations)).
				Msg("plan rejected by policy")
			return &SubmitResult{OK: false, PolicyResult: policyResult}, nil
		}
	}

	adapterName := p.PreferredAdapter
	if adapterName == "" {
		adapterName = o.cfg.DefaultAdapter
	}
	adapter, err := o.cfg.Adapters.Get(adapterName)
	if err != nil {
		return nil, err
	}

	run := &Run{
		ID:              "run-" + uuid.NewString(),
		PlanTitle:       p.Title,
		AccountID:       p.AccountID,
		Mode:            mode,
		Adapter:         adapter.Name(),
		ActionGraphHash: compiled.ActionGraphHash,
		State:           StatePending,
		Actions:         compiled.Actions,
		Fingerprints:    fingerprints,
		SubmittedBy:     actor.ID,
		CreatedAt:       time.Now().UTC(),
	}

	if o.cfg.Metrics != nil {
		o.cfg.Metrics.RecordRunSubmitted(string(mode))
	}

	logger := telemetry.WithRunID(o.logger, run.ID)
	logger.Info().
		Str("adapter", run.Adapter).
		Str("mode", string(mode)).
		Int("actions", len(run.Actions)).
		Msg("run created")

	if approval.PlanRequiresApproval(run.Actions) {
		if err := run.transition(StateAwaitingApproval); err != nil {
			return nil, err
		}
		if err := o.persistRun(run, state.AuditEntry{
			Actor:     actor.ID,
			Operation: "run.submit",
			Subject:   run.ID,
			Detail:    "awaiting approval",
			At:        time.Now().UTC(),
		}); err != nil {
			return nil, err
		}
		o.refreshApprovalGauge()
		logger.Info().Msg("run awaiting approval")
		return &SubmitResult{OK: true, PolicyResult: policyResult, Run: run}, nil
	}

	if err := o.persistRun(run, state.AuditEntry{
		Actor:     actor.ID,
		Operation: "run.submit",
		Subject:   run.ID,
		At:        time.Now().UTC(),
	}); err != nil {
		return nil, err
	}

	if err := o.execute(ctx, run, adapter, actor); err != nil {
		return nil, err
	}

	return &SubmitResult{OK: true, PolicyResult: policyResult, Run: run}, nil
}

// Approve records an approval for a run in awaiting_approval and executes it.
// The approving actor needs the write scope.
func (o *Orchestrator) Approve(ctx context.Context, runID string, actor state.Actor, note string) (*Run, error) {
	if !actor.CanWrite() {
		return nil, fmt.Errorf("actor %s lacks %s scope", actor.ID, state.ScopeWrite)
	}

	run, err := o.GetRun(runID)
	if err != nil {
		return nil, err
	}
	if run.State != StateAwaitingApproval {
		return nil, fmt.Errorf("run %s is %s, not awaiting approval", runID, run.State)
	}

	adapter, err := o.cfg.Adapters.Get(run.Adapter)
	if err != nil {
		return nil, err
	}

	gated := approval.RequiredApprovals(run.Actions)
	actionIDs := make([]string, 0, len(gated))
	for _, a := range gated {
		actionIDs = append(actionIDs, a.ID)
	}

	record := state.ApprovalRecord{
		ID:        "appr-" + uuid.NewString(),
		RunID:     run.ID,
		Status:    state.ApprovalApproved,
		ActionIDs: actionIDs,
		DecidedBy: actor.ID,
		DecidedAt: time.Now().UTC(),
		Note:      note,
	}

	if err := o.cfg.StateStore.Update(func(doc *state.ControlPlaneState) error {
		doc.Approvals[record.ID] = record
		doc.Audit = append(doc.Audit, state.AuditEntry{
			Actor:     actor.ID,
			Operation: "run.approve",
			Subject:   run.ID,
			Detail:    note,
			At:        record.DecidedAt,
		})
		return nil
	}); err != nil {
		return nil, err
	}

	if o.cfg.Metrics != nil {
		o.cfg.Metrics.RecordApprovalGranted()
	}

	runLogger := telemetry.WithRunID(o.logger, run.ID)
	runLogger.Info().
		Str("approved_by", actor.ID).
		Int("gated_actions", len(actionIDs)).
		Msg("run approved")

	if err := o.execute(ctx, run, adapter, actor); err != nil {
		return nil, err
	}
	o.refreshApprovalGauge()

	return run, nil
}

// Reject records a rejection for a run in awaiting_approval and fails it
// without executing anything. The rejecting actor needs the write scope.
func (o *Orchestrator) Reject(ctx context.Context, runID string, actor state.Actor, note string) (*Run, error) {
	if !actor.CanWrite() {
		return nil, fmt.Errorf("actor %s lacks %s scope", actor.ID, state.ScopeWrite)
	}

	run, err := o.GetRun(runID)
	if err != nil {
		return nil, err
	}
	if run.State != StateAwaitingApproval {
		return nil, fmt.Errorf("run %s is %s, not awaiting approval", runID, run.State)
	}

	if err := run.transition(StateFailed); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	run.FinishedAt = now
	run.FailureReason = "rejected by " + actor.ID
	if note != "" {
		run.FailureReason += ": " + note
	}

	gated := approval.RequiredApprovals(run.Actions)
	actionIDs := make([]string, 0, len(gated))
	for _, a := range gated {
		actionIDs = append(actionIDs, a.ID)
	}

	record := state.ApprovalRecord{
		ID:        "appr-" + uuid.NewString(),
		RunID:     run.ID,
		Status:    state.ApprovalRejected,
		ActionIDs: actionIDs,
		DecidedBy: actor.ID,
		DecidedAt: now,
		Note:      note,
	}

	raw, err := json.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run: %w", err)
	}

	if err := o.cfg.StateStore.Update(func(doc *state.ControlPlaneState) error {
		doc.Runs[run.ID] = raw
		doc.Approvals[record.ID] = record
		doc.Audit = append(doc.Audit, state.AuditEntry{
			Actor:     actor.ID,
			Operation: "run.reject",
			Subject:   run.ID,
			Detail:    note,
			At:        now,
		})
		return nil
	}); err != nil {
		return nil, err
	}
	o.refreshApprovalGauge()

	logger := telemetry.WithRunID(o.logger, run.ID)
	logger.Warn().
		Str("rejected_by", actor.ID).
		Str("note", note).
		Msg("run rejected")

	if o.cfg.Archive != nil {
		if err := o.cfg.Archive.ArchiveRun(ctx, run); err != nil {
			logger.Warn().Err(err).Msg("failed to archive run")
		}
	}

	return run, nil
}

// execute drives a run from its current state to a terminal one: probe the
// adapter session, then execute actions strictly in order, skipping true
// duplicates and stopping at the first failure.
func (o *Orchestrator) execute(ctx context.Context, run *Run, adapter adapters.Adapter, actor state.Actor) error {
	logger := telemetry.WithRunID(telemetry.WithAdapter(o.logger, run.Adapter), run.ID)

	if o.cfg.Tracer != nil {
		var span trace.Span
		ctx, span = o.cfg.Tracer.StartRunSpan(ctx, run.ID, string(run.Mode))
		defer span.End()
	}

	if err := run.transition(StateExecuting); err != nil {
		return err
	}
	run.StartedAt = time.Now().UTC()
	if err := o.persistRun(run); err != nil {
		return err
	}

	doc := o.cfg.StateStore.Load()

	probe, probeErr := adapter.ProbeSession(ctx, run.AccountID)
	if probeErr != nil || !probe.OK {
		detail := probe.Detail
		if probeErr != nil {
			detail = probeErr.Error()
		}
		run.appendReplay(ReplayEntry{
			Adapter:       run.Adapter,
			AccountID:     run.AccountID,
			Outcome:       ReplayProbeFailed,
			ErrorCategory: adapters.Categorize(probeErr),
			ErrorMessage:  detail,
			At:            time.Now().UTC(),
		})
		if o.cfg.Metrics != nil {
			o.cfg.Metrics.RecordProbeFailure(run.Adapter)
		}
		logger.Error().Str("detail", detail).Msg("session probe failed, aborting run")
		return o.finishRun(ctx, run, StateFailed, "session probe failed: "+detail, nil, actor)
	}

	var ledger []state.LedgerEntry
	failReason := ""

	for _, action := range run.Actions {
		fp := run.Fingerprints[action.ID]
		if doc.HasExecutedFingerprint(fp) {
			run.appendReplay(ReplayEntry{
				ActionID:   action.ID,
				ActionType: action.Type,
				Adapter:    run.Adapter,
				AccountID:  run.AccountID,
				Outcome:    ReplaySkippedDuplicate,
				At:         time.Now().UTC(),
			})
			if o.cfg.Metrics != nil {
				o.cfg.Metrics.RecordActionSkipped()
			}
			skipLogger := telemetry.WithActionID(logger, action.ID)
			skipLogger.Info().Msg("skipping already-executed action")
			continue
		}

		actionCtx := ctx
		var actionSpan trace.Span
		if o.cfg.Tracer != nil {
			actionCtx, actionSpan = o.cfg.Tracer.StartActionSpan(ctx, action.ID, action.Type, run.Adapter)
		}

		startedAt := time.Now().UTC()
		result, execErr := adapter.ExecuteAction(actionCtx, run.AccountID, action)
		finishedAt := time.Now().UTC()

		if actionSpan != nil {
			if execErr != nil {
				telemetry.RecordError(actionSpan, execErr)
			} else if !result.OK {
				telemetry.RecordError(actionSpan, errors.New(result.ErrorMessage))
			} else {
				telemetry.RecordSuccess(actionSpan)
			}
			actionSpan.End()
		}

		if execErr != nil {
			category := adapters.Categorize(execErr)
			run.Telemetry = append(run.Telemetry, TelemetryEntry{
				ActionID:      action.ID,
				Status:        TelemetryFailed,
				Adapter:       run.Adapter,
				StartedAt:     startedAt,
				FinishedAt:    finishedAt,
				ErrorCategory: category,
			})
			run.appendReplay(ReplayEntry{
				ActionID:      action.ID,
				ActionType:    action.Type,
				Adapter:       run.Adapter,
				AccountID:     run.AccountID,
				Outcome:       ReplayFailure,
				ErrorCategory: category,
				ErrorMessage:  execErr.Error(),
				At:            finishedAt,
			})
			o.recordActionMetrics(run.Adapter, string(category), action.Type, finishedAt.Sub(startedAt))
			failReason = fmt.Sprintf("action %s failed: %s", action.ID, execErr.Error())
			actionLogger := telemetry.WithActionID(logger, action.ID)
			actionLogger.Error().Err(execErr).Msg("action failed")
			break
		}

		if !result.OK {
			run.Telemetry = append(run.Telemetry, TelemetryEntry{
				ActionID:      action.ID,
				Status:        TelemetryFailed,
				Adapter:       run.Adapter,
				StartedAt:     startedAt,
				FinishedAt:    finishedAt,
				ErrorCategory: result.ErrorCategory,
			})
			run.appendReplay(ReplayEntry{
				ActionID:      action.ID,
				ActionType:    action.Type,
				Adapter:       run.Adapter,
				AccountID:     run.AccountID,
				Outcome:       ReplayFailure,
				ErrorCategory: result.ErrorCategory,
				ErrorMessage:  result.ErrorMessage,
				Details:       result.Details,
				At:            finishedAt,
			})
			o.recordActionMetrics(run.Adapter, string(result.ErrorCategory), action.Type, finishedAt.Sub(startedAt))
			failReason = fmt.Sprintf("action %s failed: %s", action.ID, result.ErrorMessage)
			actionLogger := telemetry.WithActionID(logger, action.ID)
			actionLogger.Error().
				Str("category", string(result.ErrorCategory)).
				Str("detail", result.ErrorMessage).
				Msg("action failed")
			break
		}

		run.Telemetry = append(run.Telemetry, TelemetryEntry{
			ActionID:   action.ID,
			Status:     TelemetryOK,
			Adapter:    run.Adapter,
			StartedAt:  startedAt,
			FinishedAt: finishedAt,
		})
		run.appendReplay(ReplayEntry{
			ActionID:   action.ID,
			ActionType: action.Type,
			Adapter:    run.Adapter,
			AccountID:  run.AccountID,
			Outcome:    ReplaySuccess,
			Details:    result.Details,
			At:         finishedAt,
		})
		ledger = append(ledger, state.LedgerEntry{
			RunID:       run.ID,
			ActionID:    action.ID,
			ActionType:  action.Type,
			Fingerprint: fp,
			Adapter:     run.Adapter,
			AccountID:   run.AccountID,
			ExecutedAt:  finishedAt,
		})
		o.recordActionMetrics(run.Adapter, "success", action.Type, finishedAt.Sub(startedAt))
		actionLogger := telemetry.WithActionID(logger, action.ID)
		actionLogger.Info().Str("type", action.Type).Msg("action executed")
	}

	if failReason != "" {
		return o.finishRun(ctx, run, StateFailed, failReason, ledger, actor)
	}
	return o.finishRun(ctx, run, StateCompleted, "", ledger, actor)
}

// finishRun moves the run to a terminal state and persists everything in one
// read-modify-write: the run record, the successful ledger entries, and an
// audit entry. Ledger entries stay recorded even when the run failed.
func (o *Orchestrator) finishRun(ctx context.Context, run *Run, final RunState, reason string, ledger []state.LedgerEntry, actor state.Actor) error {
	if err := run.transition(final); err != nil {
		return err
	}
	run.FinishedAt = time.Now().UTC()
	run.FailureReason = reason

	raw, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	if err := o.cfg.StateStore.Update(func(doc *state.ControlPlaneState) error {
		doc.Runs[run.ID] = raw
		doc.Ledger = append(doc.Ledger, ledger...)
		doc.Audit = append(doc.Audit, state.AuditEntry{
			Actor:     actor.ID,
			Operation: "run." + string(final),
			Subject:   run.ID,
			Detail:    reason,
			At:        run.FinishedAt,
		})
		return nil
	}); err != nil {
		if o.cfg.Metrics != nil {
			o.cfg.Metrics.RecordStateSave("error")
		}
		return err
	}
	if o.cfg.Metrics != nil {
		o.cfg.Metrics.RecordStateSave("ok")
		o.cfg.Metrics.RecordRunCompleted(string(final), run.FinishedAt.Sub(run.StartedAt))
	}

	logger := telemetry.WithRunID(o.logger, run.ID)
	if final == StateFailed {
		logger.Error().Str("reason", reason).Msg("run failed")
	} else {
		logger.Info().Int("executed", len(ledger)).Msg("run completed")
	}

	if o.cfg.Archive != nil {
		if err := o.cfg.Archive.ArchiveRun(ctx, run); err != nil {
			logger.Warn().Err(err).Msg("failed to archive run")
		}
	}

	return nil
}

// persistRun writes the run record plus optional audit entries.
func (o *Orchestrator) persistRun(run *Run, audit ...state.AuditEntry) error {
	raw, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	return o.cfg.StateStore.Update(func(doc *state.ControlPlaneState) error {
		doc.Runs[run.ID] = raw
		doc.Audit = append(doc.Audit, audit...)
		return nil
	})
}

// GetRun loads one run from the state document.
func (o *Orchestrator) GetRun(runID string) (*Run, error) {
	doc := o.cfg.StateStore.Load()
	raw, ok := doc.Runs[runID]
	if !ok {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	var run Run
	if err := json.Unmarshal(raw, &run); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", runID, err)
	}
	return &run, nil
}

// ListRuns returns every stored run, newest first.
func (o *Orchestrator) ListRuns() ([]*Run, error) {
	doc := o.cfg.StateStore.Load()
	runs := make([]*Run, 0, len(doc.Runs))
	for id, raw := range doc.Runs {
		var run Run
		if err := json.Unmarshal(raw, &run); err != nil {
			return nil, fmt.Errorf("failed to decode run %s: %w", id, err)
		}
		runs = append(runs, &run)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs, nil
}

// recordActionMetrics records one action outcome when metrics are enabled.
func (o *Orchestrator) recordActionMetrics(adapter, outcome, actionType string, duration time.Duration) {
	if o.cfg.Metrics == nil {
		return
	}
	o.cfg.Metrics.RecordActionExecuted(adapter, outcome, actionType, duration)
}

// refreshApprovalGauge recounts runs awaiting approval.
func (o *Orchestrator) refreshApprovalGauge() {
	if o.cfg.Metrics == nil {
		return
	}
	runs, err := o.ListRuns()
	if err != nil {
		return
	}
	pending := 0
	for _, r := range runs {
		if r.State == StateAwaitingApproval {
			pending++
		}
	}
	o.cfg.Metrics.SetApprovalsPending(float64(pending))
}
