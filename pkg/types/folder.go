package types

import "time"

// FolderKind classifies a folder
type FolderKind string

const (
	FolderInbox  FolderKind = "inbox"
	FolderSent   FolderKind = "sent"
	FolderDrafts FolderKind = "drafts"
	FolderTrash  FolderKind = "trash"
	FolderCustom FolderKind = "custom"
)

// Folder represents an email folder/mailbox or provider label
type Folder struct {
	ID           int64      `json:"id"`
	AccountID    int64      `json:"account_id"`
	Name         string     `json:"name"`
	Path         string     `json:"path"`
	Kind         FolderKind `json:"kind"`
	UnreadCount  int        `json:"unread_count"`
	TotalCount   int        `json:"total_count"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

// FolderDraft is the input for upserting a folder during discovery
type FolderDraft struct {
	AccountID int64
	Name      string
	Path      string
	Kind      FolderKind
}
