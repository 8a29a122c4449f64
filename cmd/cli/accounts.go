package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/finledger/bankfeed/pkg/models"
)

func newAccountsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Inspect ledger accounts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all accounts with balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := initAppState()
			if err != nil {
				return err
			}
			defer app.close()

			accounts, err := app.store.ListAccounts(cmd.Context())
			if err != nil {
				return err
			}

			if len(accounts) == 0 {
				fmt.Println("No accounts found")
				return nil
			}

			fmt.Printf("Found %d accounts:\n\n", len(accounts))
			fmt.Printf("%-5s %-30s %-12s %15s %-6s %-8s\n", "ID", "Name", "Type", "Balance", "Mask", "Source")
			fmt.Println(strings.Repeat("-", 85))
			for _, account := range accounts {
				source := "manual"
				if account.ProviderAccountID != "" {
					source = "linked"
				}
				fmt.Printf("%-5d %-30s %-12s %15s %-6s %-8s\n",
					account.ID,
					truncate(account.Name, 30),
					account.Type,
					models.FormatMinor(account.BalanceMinor, account.Currency),
					account.Mask,
					source)
			}
			return nil
		},
	})

	return cmd
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
