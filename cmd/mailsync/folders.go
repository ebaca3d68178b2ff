package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brandon/mailsync/internal/display"
	"github.com/brandon/mailsync/pkg/types"
)

var (
	foldersAccount int64
	foldersRefresh bool
)

var foldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "List an account's folders",
	Long: `List the folders of an account with unread and total counts.

With --refresh the folder list is rediscovered from the provider first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if foldersAccount == 0 {
			return fmt.Errorf("--account is required")
		}
		ctx := cmd.Context()

		var folders []*types.Folder
		var err error
		if foldersRefresh {
			folders, err = manager.RefreshFolders(ctx, foldersAccount)
		} else {
			if _, err = st.GetAccount(ctx, foldersAccount); err != nil {
				return err
			}
			folders, err = st.ListFolders(ctx, foldersAccount)
		}
		if err != nil {
			return err
		}

		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), folders)
		}
		display.Header(cmd.OutOrStdout(), fmt.Sprintf("Folders of account %d", foldersAccount))
		display.Folders(cmd.OutOrStdout(), folders)
		return nil
	},
}

func init() {
	foldersCmd.Flags().Int64Var(&foldersAccount, "account", 0, "Account ID")
	foldersCmd.Flags().BoolVar(&foldersRefresh, "refresh", false, "Rediscover folders from the provider")
	rootCmd.AddCommand(foldersCmd)
}
