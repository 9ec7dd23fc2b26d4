package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBackfillCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Reconcile live skill manifests into the state document",
		Long: `Compare the skill manifests in the configured manifest directory against
the registered skills and workflows, creating missing entries and reporting
bindings that match nothing live.

Strict mode exits non-zero when any binding stays unresolved, for CI gating
on silent capability drift.`,
		Example: `  # One reconciliation pass
  clawctl backfill

  # Fail the pipeline on unresolved bindings
  clawctl backfill --strict`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close(cmd.Context())

			job, err := rt.newBackfillJob()
			if err != nil {
				return err
			}

			result, err := job.Backfill(cmd.Context(), actorFromFlags())
			if err != nil {
				return err
			}

			if jsonOutput {
				if err := printJSON(result); err != nil {
					return err
				}
			} else {
				fmt.Printf("created %d skills, %d workflows\n",
					result.CreatedSkills, result.CreatedWorkflows)
				for _, u := range result.Unresolved {
					fmt.Println("unresolved:", u)
				}
			}

			if strict && len(result.Unresolved) > 0 {
				return fmt.Errorf("%d unresolved bindings", len(result.Unresolved))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when bindings stay unresolved")

	return cmd
}
