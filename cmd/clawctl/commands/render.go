package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/plan"
)

func newRenderCommand() *cobra.Command {
	var (
		vars    []string
		output  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "render <script.star>",
		Short: "Render a plan from a Starlark script",
		Long: `Evaluate a sandboxed Starlark script that builds the plan document
procedurally and emit the resulting plan as JSON. The script must define a
global named 'plan'. Variables passed with --var are available in the 'vars'
dict.

Rendering is a pre-compilation step: feed the output to 'clawctl run' or
'clawctl compile'.`,
		Example: `  # Render to stdout
  clawctl render promo.star

  # Parameterize the script and write a plan file
  clawctl render promo.star --var budget=250000 -o plan.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read script %s: %w", args[0], err)
			}

			scriptVars := make(map[string]any, len(vars))
			for _, v := range vars {
				key, value, ok := strings.Cut(v, "=")
				if !ok {
					return fmt.Errorf("invalid --var %q, want key=value", v)
				}
				scriptVars[key] = value
			}

			renderer := plan.NewRenderer(timeout)
			rendered, err := renderer.Render(cmd.Context(), string(script), scriptVars)
			if err != nil {
				return err
			}

			if output == "" {
				return printJSON(rendered)
			}

			raw, err := jsonIndent(rendered)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, raw, 0o644); err != nil {
				return fmt.Errorf("failed to write plan %s: %w", output, err)
			}
			fmt.Printf("wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&vars, "var", nil, "script variable as key=value")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the rendered plan to a file")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "script evaluation timeout")

	return cmd
}
