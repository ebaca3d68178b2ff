package tools

import (
	"context"
)

// ListFoldersTool lists stored folders for an account
type ListFoldersTool struct{ deps }

func (t *ListFoldersTool) Name() string { return "list_folders" }

func (t *ListFoldersTool) Description() string {
	return "List stored folders/labels for an account with unread and total counts"
}

func (t *ListFoldersTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"account_id": prop("integer", "Account id"),
	}, "account_id")
}

func (t *ListFoldersTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	accountID, err := requireID(params, "account_id")
	if err != nil {
		return nil, err
	}
	if _, err := t.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return t.store.ListFolders(ctx, accountID)
}

// RefreshFoldersTool rediscovers folders from the provider without fetching messages
type RefreshFoldersTool struct{ deps }

func (t *RefreshFoldersTool) Name() string { return "refresh_folders" }

func (t *RefreshFoldersTool) Description() string {
	return "Discover folders/labels from the provider and store any new ones"
}

func (t *RefreshFoldersTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"account_id": prop("integer", "Account id"),
	}, "account_id")
}

func (t *RefreshFoldersTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	accountID, err := requireID(params, "account_id")
	if err != nil {
		return nil, err
	}
	return t.manager.RefreshFolders(ctx, accountID)
}
