package history

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"

	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/adapters"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/orchestrator"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/plan"
)

// nullableTime maps the zero time to NULL.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func adapterCategory(s string) adapters.ErrorCategory {
	return adapters.ErrorCategory(s)
}

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Config holds archive store configuration.
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store is the SQLite-backed run archive. It implements
// orchestrator.Archiver.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates an archive store instance. Call Init and Migrate before
// use.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("archive path is required")
	}
	return &Store{path: cfg.Path}, nil
}

// Init opens the database connection and enables WAL mode.
func (s *Store) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open archive database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping archive database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs the embedded schema migrations.
func (s *Store) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("archive database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// ArchiveRun writes a terminal run, its telemetry and its replay trace in one
// transaction. Re-archiving a run replaces its rows.
func (s *Store) ArchiveRun(ctx context.Context, run *orchestrator.Run) error {
	if s.db == nil {
		return fmt.Errorf("archive database not initialized")
	}

	actionsJSON, err := json.Marshal(run.Actions)
	if err != nil {
		return fmt.Errorf("failed to marshal actions: %w", err)
	}
	fingerprintsJSON, err := json.Marshal(run.Fingerprints)
	if err != nil {
		return fmt.Errorf("failed to marshal fingerprints: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, plan_title, account_id, mode, adapter, state,
			action_graph_hash, submitted_by, failure_reason,
			actions, fingerprints, created_at, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			failure_reason = excluded.failure_reason,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at
	`,
		run.ID,
		run.PlanTitle,
		run.AccountID,
		string(run.Mode),
		run.Adapter,
		string(run.State),
		run.ActionGraphHash,
		run.SubmittedBy,
		run.FailureReason,
		string(actionsJSON),
		string(fingerprintsJSON),
		run.CreatedAt,
		nullableTime(run.StartedAt),
		nullableTime(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to archive run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_telemetry WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("failed to clear telemetry: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM run_replay WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("failed to clear replay trace: %w", err)
	}

	for _, entry := range run.Telemetry {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_telemetry (run_id, action_id, status, adapter, error_category, started_at, finished_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			entry.ActionID,
			string(entry.Status),
			entry.Adapter,
			string(entry.ErrorCategory),
			entry.StartedAt,
			entry.FinishedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to archive telemetry entry: %w", err)
		}
	}

	for _, entry := range run.ReplayTrace {
		detailsJSON, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal replay details: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_replay (
				run_id, seq, action_id, action_type, adapter, account_id,
				outcome, error_category, error_message, details, at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			entry.Seq,
			entry.ActionID,
			entry.ActionType,
			entry.Adapter,
			entry.AccountID,
			entry.Outcome,
			string(entry.ErrorCategory),
			entry.ErrorMessage,
			string(detailsJSON),
			entry.At,
		)
		if err != nil {
			return fmt.Errorf("failed to archive replay entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit archive: %w", err)
	}
	return nil
}

// GetRun reconstructs a full archived run, including its telemetry and
// replay trace.
func (s *Store) GetRun(ctx context.Context, id string) (*orchestrator.Run, error) {
	run := &orchestrator.Run{}
	var mode, runState, actionsJSON, fingerprintsJSON string
	var startedAt, finishedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT id, plan_title, account_id, mode, adapter, state,
		       action_graph_hash, submitted_by, failure_reason,
		       actions, fingerprints, created_at, started_at, finished_at
		FROM runs
		WHERE id = ?
	`, id).Scan(
		&run.ID,
		&run.PlanTitle,
		&run.AccountID,
		&mode,
		&run.Adapter,
		&runState,
		&run.ActionGraphHash,
		&run.SubmittedBy,
		&run.FailureReason,
		&actionsJSON,
		&fingerprintsJSON,
		&run.CreatedAt,
		&startedAt,
		&finishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("archived run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get archived run: %w", err)
	}

	run.Mode = plan.Mode(mode)
	run.State = orchestrator.RunState(runState)
	if startedAt.Valid {
		run.StartedAt = startedAt.Time
	}
	if finishedAt.Valid {
		run.FinishedAt = finishedAt.Time
	}
	if err := json.Unmarshal([]byte(actionsJSON), &run.Actions); err != nil {
		return nil, fmt.Errorf("failed to decode archived actions: %w", err)
	}
	if err := json.Unmarshal([]byte(fingerprintsJSON), &run.Fingerprints); err != nil {
		return nil, fmt.Errorf("failed to decode archived fingerprints: %w", err)
	}

	if run.Telemetry, err = s.telemetryFor(ctx, id); err != nil {
		return nil, err
	}
	if run.ReplayTrace, err = s.replayFor(ctx, id); err != nil {
		return nil, err
	}

	return run, nil
}

// RunSummary is one archived run without its per-action detail.
type RunSummary struct {
	ID            string    `json:"id"`
	PlanTitle     string    `json:"planTitle"`
	AccountID     string    `json:"accountId"`
	Mode          string    `json:"mode"`
	Adapter       string    `json:"adapter"`
	State         string    `json:"state"`
	FailureReason string    `json:"failureReason,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ListRuns lists archived runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit, offset int) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, plan_title, account_id, mode, adapter, state, failure_reason, created_at
		FROM runs
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list archived runs: %w", err)
	}
	defer rows.Close()

	summaries := []RunSummary{}
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(
			&s.ID, &s.PlanTitle, &s.AccountID, &s.Mode,
			&s.Adapter, &s.State, &s.FailureReason, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan archived run: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating archived runs: %w", err)
	}

	return summaries, nil
}

// HealthCheck verifies the database connection is healthy.
func (s *Store) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("archive database not initialized")
	}
	return s.db.PingContext(ctx)
}

func (s *Store) telemetryFor(ctx context.Context, runID string) ([]orchestrator.TelemetryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT action_id, status, adapter, error_category, started_at, finished_at
		FROM run_telemetry
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query telemetry: %w", err)
	}
	defer rows.Close()

	var entries []orchestrator.TelemetryEntry
	for rows.Next() {
		var e orchestrator.TelemetryEntry
		var status, category string
		if err := rows.Scan(&e.ActionID, &status, &e.Adapter, &category, &e.StartedAt, &e.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan telemetry entry: %w", err)
		}
		e.Status = orchestrator.TelemetryStatus(status)
		e.ErrorCategory = adapterCategory(category)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) replayFor(ctx context.Context, runID string) ([]orchestrator.ReplayEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, action_id, action_type, adapter, account_id,
		       outcome, error_category, error_message, details, at
		FROM run_replay
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query replay trace: %w", err)
	}
	defer rows.Close()

	var entries []orchestrator.ReplayEntry
	for rows.Next() {
		var e orchestrator.ReplayEntry
		var category, detailsJSON string
		if err := rows.Scan(
			&e.Seq, &e.ActionID, &e.ActionType, &e.Adapter, &e.AccountID,
			&e.Outcome, &category, &e.ErrorMessage, &detailsJSON, &e.At,
		); err != nil {
			return nil, fmt.Errorf("failed to scan replay entry: %w", err)
		}
		e.ErrorCategory = adapterCategory(category)
		if detailsJSON != "" && detailsJSON != "null" {
			if err := json.Unmarshal([]byte(detailsJSON), &e.Details); err != nil {
				return nil, fmt.Errorf("failed to decode replay details: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
