package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStateCommand() *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show the control-plane state document",
		Long: `Summarize the state document for the configured environment: registered
skills and workflows, stored runs, ledger size, open drift and sync health.

The full flag dumps the whole document as JSON.`,
		Example: `  # Summary
  clawctl state

  # Whole document
  clawctl state --full`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close(cmd.Context())

			doc := rt.store.Load()

			if full || jsonOutput {
				return printJSON(doc)
			}

			fmt.Printf("environment: %s\n", rt.cfg.Environment)
			fmt.Printf("document:    %s (version %d)\n", rt.store.Path(), doc.Version)
			if !doc.UpdatedAt.IsZero() {
				fmt.Printf("updated:     %s\n", doc.UpdatedAt.Format(time.RFC3339))
			}
			fmt.Printf("skills:      %d\n", len(doc.Skills))
			fmt.Printf("workflows:   %d\n", len(doc.Workflows))
			fmt.Printf("runs:        %d\n", len(doc.Runs))
			fmt.Printf("approvals:   %d\n", len(doc.Approvals))
			fmt.Printf("ledger:      %d entries\n", len(doc.Ledger))
			fmt.Printf("drift:       %d open\n", len(doc.Drift))

			if doc.SyncHealth.LastSyncAt.IsZero() {
				fmt.Println("sync:        never reconciled")
			} else {
				staleNote := ""
				if doc.SyncHealth.Stale(rt.cfg.StaleAfter, time.Now()) {
					staleNote = " (stale)"
				}
				fmt.Printf("sync:        %s, %d sources%s\n",
					doc.SyncHealth.LastSyncAt.Format(time.RFC3339),
					doc.SyncHealth.ScannedSources, staleNote)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "dump the whole document as JSON")

	return cmd
}
