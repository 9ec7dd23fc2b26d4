package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/plan"
)

func newValidateCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate <plan.json>",
		Short: "Validate a marketing plan document",
		Long: `Validate a marketing plan document before compiling it.

Structural validation checks required fields and enum values and reports
operator-facing messages. Strict mode additionally checks the document
against the CUE plan schema, rejecting unknown fields and type mismatches.`,
		Example: `  # Validate a plan
  clawctl validate plan.json

  # Strict schema validation
  clawctl validate --strict plan.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, doc, err := readPlanFile(args[0])
			if err != nil {
				return err
			}

			if strict {
				registry := plan.NewSchemaRegistry()
				if err := registry.ValidateDocument("plan", doc); err != nil {
					return fmt.Errorf("schema validation failed: %w", err)
				}
			}

			result := plan.Validate(p)
			if jsonOutput {
				if err := printJSON(result); err != nil {
					return err
				}
			} else if result.OK {
				fmt.Println("plan is valid")
			} else {
				for _, msg := range result.Errors {
					fmt.Println("error:", msg)
				}
			}

			if !result.OK {
				return fmt.Errorf("plan is invalid (%d errors)", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "also validate against the CUE plan schema")

	return cmd
}
