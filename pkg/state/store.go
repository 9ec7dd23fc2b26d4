package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Store persists the control-plane state document as JSON on disk.
// Load never fails: missing, unreadable or corrupt documents come back as
// defaults so the control plane always starts. Save writes atomically via a
// temp file and rename.
type Store struct {
	path   string
	logger zerolog.Logger
	mu     sync.Mutex
}

// NewStore creates a store backed by the given file path.
func NewStore(path string, logger zerolog.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger.With().Str("component", "state").Logger(),
	}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load reads the state document. Corruption is logged and replaced with
// defaults rather than surfaced as an error.
func (s *Store) Load() *ControlPlaneState {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("path", s.path).Msg("state unreadable, starting fresh")
		}
		return DefaultState()
	}

	var doc ControlPlaneState
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("state corrupt, starting fresh")
		return DefaultState()
	}

	return Normalize(&doc, s.logger)
}

// Normalize brings a decoded document to a usable shape: wrong versions are
// replaced with defaults, and nil maps are allocated so callers can write
// into them directly.
func Normalize(doc *ControlPlaneState, logger zerolog.Logger) *ControlPlaneState {
	if doc.Version != CurrentVersion {
		logger.Warn().Int("version", doc.Version).Msg("unsupported state version, starting fresh")
		return DefaultState()
	}

	if doc.CapabilityMatrix == nil {
		doc.CapabilityMatrix = make(map[string][]string)
	}
	if doc.Skills == nil {
		doc.Skills = make(map[string]SkillRecord)
	}
	if doc.Workflows == nil {
		doc.Workflows = make(map[string]WorkflowRecord)
	}
	if doc.Bindings == nil {
		doc.Bindings = make(map[string][]string)
	}
	if doc.Runs == nil {
		doc.Runs = make(map[string]json.RawMessage)
	}
	if doc.Approvals == nil {
		doc.Approvals = make(map[string]ApprovalRecord)
	}

	return doc
}

// Save writes the document atomically, stamping the version and update time.
func (s *Store) Save(doc *ControlPlaneState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(doc)
}

// saveLocked writes the document. Callers hold s.mu.
func (s *Store) saveLocked(doc *ControlPlaneState) error {
	doc.Version = CurrentVersion
	doc.UpdatedAt = time.Now().UTC()

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	return nil
}

// Update runs a read-modify-write cycle: load, apply fn, save. The whole
// cycle holds the store lock, so concurrent in-process updates cannot lose
// each other's writes.
func (s *Store) Update(fn func(*ControlPlaneState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.Load()
	if err := fn(doc); err != nil {
		return err
	}
	return s.saveLocked(doc)
}
