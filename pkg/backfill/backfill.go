package backfill

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/state"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/telemetry"
)

// driftKindUnresolvedBinding marks a binding whose workflow or skill has no
// live registration.
const driftKindUnresolvedBinding = "binding.unresolved"

// finding is one unresolved binding. A missing workflow is critical since
// nothing can run the binding at all; a missing skill only degrades an
// otherwise usable workflow.
type finding struct {
	subject  string
	severity string
}

// Result reports one reconciliation pass.
type Result struct {
	// OK is true when the pass ran to completion, regardless of drift.
	OK bool `json:"ok"`

	// CreatedSkills and CreatedWorkflows count new registrations written to
	// the state document. Both are zero when nothing changed.
	CreatedSkills    int `json:"createdSkills"`
	CreatedWorkflows int `json:"createdWorkflows"`

	// Unresolved lists bindings that could not be matched to a live
	// registration, for operator investigation.
	Unresolved []string `json:"unresolved,omitempty"`
}

// Job runs reconciliation passes against one state store.
type Job struct {
	store        *state.Store
	source       Source
	metrics      *telemetry.Metrics
	logger       zerolog.Logger
	capabilities map[string][]string
}

// NewJob creates a reconciliation job. Metrics may be nil.
func NewJob(store *state.Store, source Source, metrics *telemetry.Metrics, logger zerolog.Logger) *Job {
	return &Job{
		store:   store,
		source:  source,
		metrics: metrics,
		logger:  logger.With().Str("component", "backfill").Logger(),
	}
}

// SetCapabilities sets the adapter capability matrix the next pass writes
// into the state document, mapping adapter name to supported action types.
func (j *Job) SetCapabilities(matrix map[string][]string) {
	j.capabilities = matrix
}

// Backfill reconciles live registrations into the state document: missing
// skills and workflows are created, bindings are recorded, and any binding
// referencing nothing live is reported as unresolved and tracked as drift.
// A pass over unchanged registrations creates nothing and leaves the drift
// list as it was.
//
// Only actors holding the write scope may run it; the pass mutates state.
func (j *Job) Backfill(ctx context.Context, actor state.Actor) (*Result, error) {
	if !actor.CanWrite() {
		return nil, fmt.Errorf("actor %s lacks %s scope", actor.ID, state.ScopeWrite)
	}

	regs, err := j.source.Registrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read registrations: %w", err)
	}

	result := &Result{OK: true}
	now := time.Now().UTC()

	err = j.store.Update(func(doc *state.ControlPlaneState) error {
		if j.capabilities != nil {
			doc.CapabilityMatrix = make(map[string][]string, len(j.capabilities))
			for adapter, types := range j.capabilities {
				doc.CapabilityMatrix[adapter] = append([]string(nil), types...)
			}
		}

		for name, skill := range regs.Skills {
			if _, exists := doc.Skills[name]; exists {
				continue
			}
			doc.Skills[name] = state.SkillRecord{
				Name:         name,
				Version:      skill.Version,
				Description:  skill.Description,
				Channels:     skill.Channels,
				Source:       regs.SkillSource[name],
				RegisteredAt: now,
			}
			result.CreatedSkills++
		}

		for name, wf := range regs.Workflows {
			if _, exists := doc.Workflows[name]; exists {
				continue
			}
			doc.Workflows[name] = state.WorkflowRecord{
				Name:         name,
				Version:      wf.Version,
				Description:  wf.Description,
				Steps:        wf.Steps,
				Source:       regs.WorkflowSource[name],
				RegisteredAt: now,
			}
			result.CreatedWorkflows++
		}

		var findings []finding
		for wf, skills := range regs.Bindings {
			if _, exists := doc.Workflows[wf]; !exists {
				findings = append(findings, finding{
					subject:  fmt.Sprintf("binding references unregistered workflow %q", wf),
					severity: state.DriftSeverityCritical,
				})
				continue
			}
			var resolved []string
			for _, skill := range skills {
				if _, exists := doc.Skills[skill]; !exists {
					findings = append(findings, finding{
						subject:  fmt.Sprintf("workflow %q binds unregistered skill %q", wf, skill),
						severity: state.DriftSeverityWarning,
					})
					continue
				}
				resolved = append(resolved, skill)
			}
			doc.Bindings[wf] = resolved
		}
		sort.Slice(findings, func(i, k int) bool { return findings[i].subject < findings[k].subject })
		for _, f := range findings {
			result.Unresolved = append(result.Unresolved, f.subject)
		}

		j.reconcileDrift(doc, findings, now)

		critical := 0
		for _, d := range doc.Drift {
			if d.Severity == state.DriftSeverityCritical {
				critical++
			}
		}
		doc.SyncHealth = state.SyncHealth{
			LastSyncAt:              now,
			ScannedSources:          regs.ScannedSources,
			UnresolvedDrift:         len(doc.Drift),
			UnresolvedCriticalDrift: critical,
		}

		doc.Audit = append(doc.Audit, state.AuditEntry{
			Actor:     actor.ID,
			Operation: "backfill.run",
			Detail: fmt.Sprintf("created %d skills, %d workflows, %d unresolved",
				result.CreatedSkills, result.CreatedWorkflows, len(result.Unresolved)),
			At: now,
		})

		if j.metrics != nil {
			j.metrics.SetDriftOpen(float64(len(doc.Drift)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if j.metrics != nil {
		j.metrics.RecordBackfillCreated("skill", result.CreatedSkills)
		j.metrics.RecordBackfillCreated("workflow", result.CreatedWorkflows)
	}

	j.logger.Info().
		Str("actor", actor.ID).
		Int("created_skills", result.CreatedSkills).
		Int("created_workflows", result.CreatedWorkflows).
		Int("unresolved", len(result.Unresolved)).
		Msg("reconciliation pass complete")

	return result, nil
}

// Audit reports the current reconciliation health without mutating anything,
// so it needs no elevated scope.
func (j *Job) Audit(ctx context.Context) (state.SyncHealth, []state.DriftEntry, error) {
	if err := ctx.Err(); err != nil {
		return state.SyncHealth{}, nil, err
	}
	doc := j.store.Load()
	return doc.SyncHealth, doc.Drift, nil
}

// reconcileDrift updates the open drift list to match the current unresolved
// set: entries for findings that resolved are dropped, new findings get
// entries, and repeated findings keep their original entry and timestamp.
func (j *Job) reconcileDrift(doc *state.ControlPlaneState, findings []finding, now time.Time) {
	current := make(map[string]string, len(findings))
	for _, f := range findings {
		current[f.subject] = f.severity
	}

	var kept []state.DriftEntry
	existing := make(map[string]bool)
	for _, d := range doc.Drift {
		if d.Kind != driftKindUnresolvedBinding {
			kept = append(kept, d)
			continue
		}
		if severity, open := current[d.Subject]; open {
			d.Severity = severity
			kept = append(kept, d)
			existing[d.Subject] = true
		}
	}

	for _, f := range findings {
		if existing[f.subject] {
			continue
		}
		kept = append(kept, state.DriftEntry{
			ID:         "drift-" + uuid.NewString(),
			Kind:       driftKindUnresolvedBinding,
			Subject:    f.subject,
			Severity:   f.severity,
			Detail:     "reconciliation could not match the binding to a live registration",
			DetectedAt: now,
		})
	}

	doc.Drift = kept
}
