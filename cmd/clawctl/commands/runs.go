package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/orchestrator"
)

func newRunsCommand() *cobra.Command {
	var (
		limit   int
		archive bool
	)

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List runs or inspect one run",
		Long: `Without arguments, list stored runs newest first. With a run ID, show
the full run including its telemetry and replay trace.

Runs live in the state document; terminal runs are additionally archived to
SQLite when an archive path is configured. The archive flag reads from the
archive instead.`,
		Example: `  # Recent runs
  clawctl runs

  # One run with its replay trace
  clawctl runs run-1b9f...

  # Query the SQLite archive
  clawctl runs --archive`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close(cmd.Context())

			if len(args) == 1 {
				return showRun(cmd.Context(), rt, args[0], archive)
			}
			return listRuns(cmd.Context(), rt, limit, archive)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	cmd.Flags().BoolVar(&archive, "archive", false, "read from the SQLite archive")

	return cmd
}

func showRun(ctx context.Context, rt *runtime, id string, fromArchive bool) error {
	var run *orchestrator.Run
	var err error

	if fromArchive {
		if rt.archive == nil {
			return fmt.Errorf("archive_path is not configured")
		}
		run, err = rt.archive.GetRun(ctx, id)
	} else {
		run, err = rt.orch.GetRun(id)
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(run)
	}

	fmt.Printf("run %s\n", run.ID)
	fmt.Printf("  plan:    %s (%s)\n", run.PlanTitle, run.Mode)
	fmt.Printf("  account: %s\n", run.AccountID)
	fmt.Printf("  adapter: %s\n", run.Adapter)
	fmt.Printf("  state:   %s\n", run.State)
	if run.FailureReason != "" {
		fmt.Printf("  failure: %s\n", run.FailureReason)
	}
	fmt.Printf("  actions: %d, telemetry: %d, replay: %d\n",
		len(run.Actions), len(run.Telemetry), len(run.ReplayTrace))
	for _, entry := range run.ReplayTrace {
		line := fmt.Sprintf("  [%d] %s %s", entry.Seq, entry.Outcome, entry.ActionID)
		if entry.ErrorMessage != "" {
			line += ": " + entry.ErrorMessage
		}
		fmt.Println(line)
	}
	return nil
}

func listRuns(ctx context.Context, rt *runtime, limit int, fromArchive bool) error {
	if fromArchive {
		if rt.archive == nil {
			return fmt.Errorf("archive_path is not configured")
		}
		summaries, err := rt.archive.ListRuns(ctx, limit, 0)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(summaries)
		}
		for _, s := range summaries {
			fmt.Printf("%s  %-10s %-18s %s\n", s.CreatedAt.Format(time.RFC3339), s.State, s.ID, s.PlanTitle)
		}
		return nil
	}

	runs, err := rt.orch.ListRuns()
	if err != nil {
		return err
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	if jsonOutput {
		return printJSON(runs)
	}
	for _, r := range runs {
		fmt.Printf("%s  %-10s %-18s %s\n", r.CreatedAt.Format(time.RFC3339), r.State, r.ID, r.PlanTitle)
	}
	return nil
}
