package main

import (
	"github.com/spf13/cobra"

	"github.com/brandon/mailsync/internal/display"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List linked accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		accounts, err := st.ListAccounts(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), accounts)
		}
		display.Header(cmd.OutOrStdout(), "Accounts")
		display.Accounts(cmd.OutOrStdout(), accounts)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(accountsCmd)
}
