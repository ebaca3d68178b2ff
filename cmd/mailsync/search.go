package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/brandon/mailsync/internal/display"
)

var (
	searchFolder int64
	searchLimit  int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the local store",
	Long: `Search stored messages. Structured tokens (from:, to:, subject:, is:unread,
has:attachment, before:, after:) combine with free text.

Examples:
  mailsync search from:alice is:unread
  mailsync search --folder 4 invoice`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit := searchLimit
		if limit <= 0 {
			limit = cfg.SearchResultLimit
		}
		var folderID *int64
		if searchFolder != 0 {
			folderID = &searchFolder
		}

		messages, err := st.Search(cmd.Context(), strings.Join(args, " "), folderID, limit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), messages)
		}
		display.Messages(cmd.OutOrStdout(), messages)
		return nil
	},
}

func init() {
	searchCmd.Flags().Int64Var(&searchFolder, "folder", 0, "Restrict to a folder ID")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "Maximum results (default: SEARCH_RESULT_LIMIT)")
	rootCmd.AddCommand(searchCmd)
}
