package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/orchestrator"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <plan.json>",
		Short: "Submit a plan for execution",
		Long: `Compile a plan, admit it through policy, and execute it.

Plans containing high or critical risk actions park in awaiting_approval;
use 'clawctl approve' to release them. Execution failure is reported in the
run state, not as a command error: the command fails only when the plan is
rejected before a run exists.`,
		Example: `  # Execute a sandbox plan
  clawctl run plan.json

  # Submit as a specific actor
  clawctl run --actor-id alice --actor-role admin --scope controlplane:admin plan.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := readPlanFile(args[0])
			if err != nil {
				return err
			}

			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close(cmd.Context())

			result, err := rt.orch.SubmitPlan(cmd.Context(), p, actorFromFlags())
			if err != nil {
				return err
			}

			if jsonOutput {
				if err := printJSON(result); err != nil {
					return err
				}
			} else {
				printSubmitResult(result)
			}

			if !result.OK {
				return fmt.Errorf("plan rejected")
			}
			return nil
		},
	}

	return cmd
}

func printSubmitResult(result *orchestrator.SubmitResult) {
	if !result.OK {
		for _, msg := range result.ValidationErrors {
			fmt.Println("error:", msg)
		}
		if result.PolicyResult != nil {
			for _, v := range result.PolicyResult.Violations {
				fmt.Printf("policy %s [%s]: %s\n", v.Policy, v.Severity, v.Message)
			}
		}
		return
	}

	run := result.Run
	fmt.Printf("run %s: %s\n", run.ID, run.State)
	if run.State == orchestrator.StateAwaitingApproval {
		fmt.Printf("approve with: clawctl approve %s\n", run.ID)
		return
	}
	if run.FailureReason != "" {
		fmt.Println("failure:", run.FailureReason)
	}
	for _, entry := range run.Telemetry {
		line := fmt.Sprintf("  %s  %s", entry.ActionID, entry.Status)
		if entry.ErrorCategory != "" {
			line += fmt.Sprintf(" (%s)", entry.ErrorCategory)
		}
		fmt.Println(line)
	}
}
