package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass over all active connections",
		Long: `Fetch transaction deltas for every active connection, apply them to the
ledger, advance each connection's cursor, and refresh account balances.
Connections fail independently; the summary lists any that did.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := initAppState()
			if err != nil {
				return err
			}
			defer app.close()

			result, err := app.syncer().RunSync(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Sync complete: %d added, %d modified, %d removed",
				result.Added, result.Modified, result.Removed)
			if result.Skipped > 0 {
				fmt.Printf(" (%d deltas skipped for unknown accounts)", result.Skipped)
			}
			fmt.Println()

			if len(result.Failures) > 0 {
				fmt.Printf("%d connection(s) failed:\n", len(result.Failures))
				for _, failure := range result.Failures {
					fmt.Printf("  %s (connection %d): [%s] %s\n",
						failure.InstitutionName, failure.ConnectionID, failure.Kind, failure.Reason)
				}
			}
			return nil
		},
	}
}
