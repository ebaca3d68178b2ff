package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/brandon/mailsync/pkg/types"
)

type folderRow struct {
	ID           int64         `db:"id"`
	AccountID    int64         `db:"account_id"`
	Name         string        `db:"name"`
	Path         string        `db:"path"`
	Kind         string        `db:"kind"`
	UnreadCount  int           `db:"unread_count"`
	TotalCount   int           `db:"total_count"`
	LastSyncedAt sql.NullInt64 `db:"last_synced_at"`
}

func (r *folderRow) toFolder() *types.Folder {
	folder := &types.Folder{
		ID:          r.ID,
		AccountID:   r.AccountID,
		Name:        r.Name,
		Path:        r.Path,
		Kind:        types.FolderKind(r.Kind),
		UnreadCount: r.UnreadCount,
		TotalCount:  r.TotalCount,
	}
	if r.LastSyncedAt.Valid {
		t := fromMillis(r.LastSyncedAt.Int64)
		folder.LastSyncedAt = &t
	}
	return folder
}

const folderColumns = `id, account_id, name, path, kind, unread_count, total_count, last_synced_at`

// UpsertFolder inserts a folder unless (account, path) already exists, then returns the stored row
func (s *Store) UpsertFolder(ctx context.Context, draft types.FolderDraft) (*types.Folder, error) {
	kind := draft.Kind
	if kind == "" {
		kind = types.FolderCustom
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO folders (account_id, name, path, kind)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(account_id, path) DO NOTHING
	`, draft.AccountID, draft.Name, draft.Path, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert folder: %w", err)
	}

	var row folderRow
	err = s.db.GetContext(ctx, &row,
		"SELECT "+folderColumns+" FROM folders WHERE account_id = ? AND path = ?", draft.AccountID, draft.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}
	return row.toFolder(), nil
}

// GetFolder returns a folder by id
func (s *Store) GetFolder(ctx context.Context, id int64) (*types.Folder, error) {
	var row folderRow
	err := s.db.GetContext(ctx, &row, "SELECT "+folderColumns+" FROM folders WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("folder %d: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}
	return row.toFolder(), nil
}

// ListFolders returns all folders for an account
func (s *Store) ListFolders(ctx context.Context, accountID int64) ([]*types.Folder, error) {
	var rows []folderRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT "+folderColumns+" FROM folders WHERE account_id = ? ORDER BY id", accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	folders := make([]*types.Folder, len(rows))
	for i := range rows {
		folders[i] = rows[i].toFolder()
	}
	return folders, nil
}

// RecomputeFolderCounts sets unread/total counts from the folder's actual message rows
func (s *Store) RecomputeFolderCounts(ctx context.Context, folderID int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE folders SET
			total_count = (SELECT COUNT(*) FROM messages WHERE folder_id = folders.id),
			unread_count = (SELECT COUNT(*) FROM messages WHERE folder_id = folders.id AND is_read = 0),
			last_synced_at = ?
		WHERE id = ?
	`, now(), folderID)
	if err != nil {
		return fmt.Errorf("failed to recompute folder counts: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("folder %d: %w", folderID, types.ErrNotFound)
	}
	return nil
}
