package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/orchestrator"
)

func newApproveCommand() *cobra.Command {
	var note string
	var reject bool

	cmd := &cobra.Command{
		Use:   "approve <run-id>",
		Short: "Approve or reject a run awaiting approval",
		Long: `Record a decision for a run parked in awaiting_approval.

Approving executes the run; rejecting fails it without executing anything.
Either decision covers the run's gated actions and is recorded in the state
document with the deciding actor's identity. Both require the write scope.`,
		Example: `  # Approve and execute a held run
  clawctl approve run-1b9f... --note "budgets reviewed"

  # Reject a held run
  clawctl approve run-1b9f... --reject --note "budget over plan"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close(cmd.Context())

			var run *orchestrator.Run
			if reject {
				run, err = rt.orch.Reject(cmd.Context(), args[0], actorFromFlags(), note)
			} else {
				run, err = rt.orch.Approve(cmd.Context(), args[0], actorFromFlags(), note)
			}
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(run)
			}

			fmt.Printf("run %s: %s\n", run.ID, run.State)
			if run.FailureReason != "" {
				fmt.Println("failure:", run.FailureReason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "decision comment recorded in the audit trail")
	cmd.Flags().BoolVar(&reject, "reject", false, "reject the run instead of approving it")

	return cmd
}
