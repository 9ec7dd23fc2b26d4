package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/state"
)

var (
	// Global flags
	configPath  string
	jsonOutput  bool
	actorID     string
	actorRole   string
	actorScopes []string
)

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "clawctl",
		Short: "OpenClaw - Control-Plane Orchestration Engine",
		Long: `clawctl compiles declarative marketing plans into deterministic action
graphs and drives them through execution adapters.

Features:
  - Deterministic plan compilation with content-addressed action IDs
  - Risk-tier approval gating for live operations
  - Pluggable execution adapters (browser, cli, ssh)
  - Policy admission via OPA/rego with hot reload
  - Versioned JSON state with ledger, audit trail and drift tracking
  - SQLite run archive with full replay traces`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().StringVar(&actorID, "actor-id", "local", "acting identity")
	rootCmd.PersistentFlags().StringVar(&actorRole, "actor-role", "operator", "acting role (viewer, operator, admin)")
	rootCmd.PersistentFlags().StringSliceVar(&actorScopes, "scope", []string{state.ScopeRead, state.ScopeWrite},
		"granted permission scopes")

	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newCompileCommand())
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newApproveCommand())
	rootCmd.AddCommand(newBackfillCommand())
	rootCmd.AddCommand(newStateCommand())
	rootCmd.AddCommand(newRunsCommand())
	rootCmd.AddCommand(newRenderCommand())

	return rootCmd
}

// actorFromFlags builds the acting identity every mutating command passes
// down.
func actorFromFlags() state.Actor {
	return state.Actor{
		ID:     actorID,
		Role:   actorRole,
		Scopes: actorScopes,
	}
}
