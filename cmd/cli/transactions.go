package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/finledger/bankfeed/pkg/models"
)

func newTransactionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"tx"},
		Short:   "Inspect and edit ledger transactions",
	}

	cmd.AddCommand(newTransactionsListCommand(), newTransactionsAddCommand(), newTransactionsRemoveCommand())
	return cmd
}

func newTransactionsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all transactions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := initAppState()
			if err != nil {
				return err
			}
			defer app.close()

			transactions, err := app.store.ListTransactions(cmd.Context())
			if err != nil {
				return err
			}

			if len(transactions) == 0 {
				fmt.Println("No transactions found")
				return nil
			}

			fmt.Printf("Found %d transactions:\n\n", len(transactions))
			fmt.Printf("%-6s %-12s %12s %-5s %-30s %-11s\n", "ID", "Date", "Amount", "Dir", "Merchant", "Source")
			fmt.Println(strings.Repeat("-", 82))
			for _, tx := range transactions {
				direction := "in"
				if tx.IsExpense {
					direction = "out"
				}
				fmt.Printf("%-6d %-12s %12d %-5s %-30s %-11s\n",
					tx.ID, tx.Date, tx.AmountMinor, direction, truncate(tx.MerchantName, 30), tx.Source)
			}
			return nil
		},
	}
}

func newTransactionsAddCommand() *cobra.Command {
	var isExpense bool
	var date string

	cmd := &cobra.Command{
		Use:   "add <account-id> <amount-minor> <description>",
		Short: "Add a manual transaction in integer minor units",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid account id: %w", err)
			}
			amountMinor, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid amount: %w", err)
			}
			if amountMinor < 0 {
				return fmt.Errorf("amount must be non-negative minor units; use --expense=false for inflows")
			}

			app, err := initAppState()
			if err != nil {
				return err
			}
			defer app.close()

			if date == "" {
				date = time.Now().Format(time.DateOnly)
			}

			tx := &models.Transaction{
				AccountID:    accountID,
				AmountMinor:  amountMinor,
				Date:         date,
				Description:  args[2],
				MerchantName: args[2],
				IsExpense:    isExpense,
			}
			if err := app.store.SaveManualTransaction(cmd.Context(), tx); err != nil {
				return err
			}

			fmt.Printf("Transaction %d added\n", tx.ID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&isExpense, "expense", true, "Whether the transaction is an outflow")
	cmd.Flags().StringVar(&date, "date", "", "Transaction date (YYYY-MM-DD, default today)")
	return cmd
}

func newTransactionsRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a transaction by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid transaction id: %w", err)
			}

			app, err := initAppState()
			if err != nil {
				return err
			}
			defer app.close()

			if err := app.store.RemoveTransaction(cmd.Context(), id); err != nil {
				return err
			}

			fmt.Printf("Transaction %d removed\n", id)
			return nil
		},
	}
}
