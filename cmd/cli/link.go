package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/finledger/bankfeed/pkg/models"
)

func newLinkCommand() *cobra.Command {
	var institutionID, institutionName string

	cmd := &cobra.Command{
		Use:   "link <public-token>",
		Short: "Link an institution from a completed linking flow",
		Long: `Exchange the public token produced by the provider's link UI, store the
connection, and onboard the accounts discovered under it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := initAppState()
			if err != nil {
				return err
			}
			defer app.close()

			conn, accounts, err := app.linker().LinkInstitution(cmd.Context(), args[0], institutionID, institutionName)
			if err != nil {
				return err
			}

			fmt.Printf("Linked %s (connection %d), %d account(s) onboarded:\n",
				conn.InstitutionName, conn.ID, len(accounts))
			for _, account := range accounts {
				fmt.Printf("  %-30s %-12s %s\n",
					account.Name, account.Type, models.FormatMinor(account.BalanceMinor, account.Currency))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&institutionID, "institution-id", "", "Provider institution identifier")
	cmd.Flags().StringVar(&institutionName, "institution-name", "", "Institution display name")
	return cmd
}
