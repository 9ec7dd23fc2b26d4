package backfill

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Manifest is one skill manifest file. A manifest registers one skill, the
// workflows it ships, and the bindings declaring which skills each workflow
// invokes.
type Manifest struct {
	Skill     SkillManifest       `yaml:"skill"`
	Workflows []WorkflowManifest  `yaml:"workflows,omitempty"`
	Bindings  map[string][]string `yaml:"bindings,omitempty"`
}

// SkillManifest declares one skill.
type SkillManifest struct {
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Channels    []string `yaml:"channels,omitempty"`
}

// WorkflowManifest declares one workflow.
type WorkflowManifest struct {
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Steps       []string `yaml:"steps,omitempty"`
}

// Registrations is the aggregated live view handed to the reconciler.
type Registrations struct {
	// Skills and Workflows are keyed by name; the value records which
	// source file declared them.
	Skills    map[string]SkillManifest
	Workflows map[string]WorkflowManifest

	// SkillSource and WorkflowSource map names to their declaring source.
	SkillSource    map[string]string
	WorkflowSource map[string]string

	// Bindings map workflow name to the skill names it invokes.
	Bindings map[string][]string

	// ScannedSources is how many manifest sources were read.
	ScannedSources int
}

// Source supplies the live registrations to reconcile against.
type Source interface {
	Registrations(ctx context.Context) (*Registrations, error)
}

// ManifestDirSource reads skill manifests from a directory of YAML files.
type ManifestDirSource struct {
	dir    string
	logger zerolog.Logger
}

// NewManifestDirSource creates a source over the given directory.
func NewManifestDirSource(dir string, logger zerolog.Logger) *ManifestDirSource {
	return &ManifestDirSource{
		dir:    dir,
		logger: logger.With().Str("component", "manifest-source").Logger(),
	}
}

// Registrations reads every *.yaml and *.yml file in the directory and
// aggregates the declared skills, workflows and bindings. Later files win on
// name collisions.
func (s *ManifestDirSource) Registrations(ctx context.Context) (*Registrations, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest dir %s: %w", s.dir, err)
	}

	regs := &Registrations{
		Skills:         make(map[string]SkillManifest),
		Workflows:      make(map[string]WorkflowManifest),
		SkillSource:    make(map[string]string),
		WorkflowSource: make(map[string]string),
		Bindings:       make(map[string][]string),
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := filepath.Join(s.dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
		}

		var m Manifest
		if err := yaml.Unmarshal(raw, &m); err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("skipping unparseable manifest")
			continue
		}
		if m.Skill.Name == "" {
			s.logger.Warn().Str("path", path).Msg("skipping manifest without a skill name")
			continue
		}

		regs.Skills[m.Skill.Name] = m.Skill
		regs.SkillSource[m.Skill.Name] = name
		for _, wf := range m.Workflows {
			if wf.Name == "" {
				continue
			}
			regs.Workflows[wf.Name] = wf
			regs.WorkflowSource[wf.Name] = name
		}
		for wf, skills := range m.Bindings {
			regs.Bindings[wf] = append(regs.Bindings[wf], skills...)
		}
		regs.ScannedSources++
	}

	return regs, nil
}
