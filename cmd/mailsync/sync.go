package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brandon/mailsync/internal/display"
	"github.com/brandon/mailsync/internal/email"
)

var (
	syncAccount int64
	syncFolder  int64
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch remote mail into the local store",
	Long: `Sync one folder, or every folder of an account.

Examples:
  mailsync sync --account 1             # All folders of account 1
  mailsync sync --account 1 --folder 4  # Just folder 4
  mailsync sync                         # Every account`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		var accountIDs []int64
		if syncAccount != 0 {
			accountIDs = []int64{syncAccount}
		} else {
			if syncFolder != 0 {
				return fmt.Errorf("--folder requires --account")
			}
			accounts, err := st.ListAccounts(ctx)
			if err != nil {
				return err
			}
			for _, a := range accounts {
				accountIDs = append(accountIDs, a.ID)
			}
		}
		if len(accountIDs) == 0 {
			return fmt.Errorf("no accounts configured")
		}

		var results []*email.SyncResult
		var firstErr error
		for _, id := range accountIDs {
			var result *email.SyncResult
			var err error
			if syncFolder != 0 {
				result, err = manager.SyncFolder(ctx, id, syncFolder)
			} else {
				result, err = manager.SyncAllFolders(ctx, id)
			}
			if result != nil {
				results = append(results, result)
				if !jsonOutput {
					display.SyncResult(cmd.OutOrStdout(), result)
				}
			}
			if err != nil {
				display.ErrorMsg(cmd.ErrOrStderr(), "account %d: %v", id, err)
				if firstErr == nil {
					firstErr = err
				}
			}
		}

		if jsonOutput {
			if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
				return err
			}
		}
		return firstErr
	},
}

func init() {
	syncCmd.Flags().Int64Var(&syncAccount, "account", 0, "Account ID (default: all accounts)")
	syncCmd.Flags().Int64Var(&syncFolder, "folder", 0, "Folder ID within the account")
	rootCmd.AddCommand(syncCmd)
}
