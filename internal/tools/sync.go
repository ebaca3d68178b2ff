package tools

import (
	"context"
)

// SyncFolderTool fetches one folder from the provider
type SyncFolderTool struct{ deps }

func (t *SyncFolderTool) Name() string { return "sync_folder" }

func (t *SyncFolderTool) Description() string {
	return "Fetch a folder's messages from the provider into the local store"
}

func (t *SyncFolderTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"account_id": prop("integer", "Account id"),
		"folder_id":  prop("integer", "Folder id"),
	}, "account_id", "folder_id")
}

func (t *SyncFolderTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	accountID, err := requireID(params, "account_id")
	if err != nil {
		return nil, err
	}
	folderID, err := requireID(params, "folder_id")
	if err != nil {
		return nil, err
	}
	return t.manager.SyncFolder(ctx, accountID, folderID)
}

// SyncAllFoldersTool discovers and fetches every folder of an account
type SyncAllFoldersTool struct{ deps }

func (t *SyncAllFoldersTool) Name() string { return "sync_all_folders" }

func (t *SyncAllFoldersTool) Description() string {
	return "Discover folders and fetch all of them; Gmail accounts are resynced in full"
}

func (t *SyncAllFoldersTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"account_id": prop("integer", "Account id"),
	}, "account_id")
}

func (t *SyncAllFoldersTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	accountID, err := requireID(params, "account_id")
	if err != nil {
		return nil, err
	}
	return t.manager.SyncAllFolders(ctx, accountID)
}
