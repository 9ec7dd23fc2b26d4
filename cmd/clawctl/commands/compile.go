package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/approval"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/plan"
)

func newCompileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile <plan.json>",
		Short: "Compile a plan into its deterministic action graph",
		Long: `Compile a marketing plan into its flat, ordered action list without
executing anything. Compilation is deterministic: an unchanged plan always
produces the same action IDs and the same graph hash.`,
		Example: `  # Show the compiled actions
  clawctl compile plan.json

  # Machine-readable output
  clawctl compile --json plan.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := readPlanFile(args[0])
			if err != nil {
				return err
			}

			result, err := plan.Compile(p)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(result)
			}

			if !result.Valid {
				for _, msg := range result.Errors {
					fmt.Println("error:", msg)
				}
				return fmt.Errorf("plan is invalid (%d errors)", len(result.Errors))
			}

			fmt.Printf("graph hash: %s\n", result.ActionGraphHash)
			fmt.Printf("%d actions:\n", len(result.Actions))
			for _, a := range result.Actions {
				gate := ""
				if approval.ActionRequiresApproval(a) {
					gate = "  [approval required]"
				}
				fmt.Printf("  %s  %-20s risk=%s%s\n", a.ID, a.Type, a.Risk, gate)
			}
			return nil
		},
	}

	return cmd
}
