package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/brandon/mailsync/pkg/types"
)

type messageRow struct {
	ID             int64  `db:"id"`
	AccountID      int64  `db:"account_id"`
	FolderID       int64  `db:"folder_id"`
	UID            string `db:"uid"`
	ThreadID       string `db:"thread_id"`
	MessageID      string `db:"message_id"`
	Subject        string `db:"subject"`
	Sender         string `db:"sender"`
	Recipients     string `db:"recipients"`
	Cc             string `db:"cc"`
	Bcc            string `db:"bcc"`
	BodyText       string `db:"body_text"`
	BodyHTML       string `db:"body_html"`
	Date           int64  `db:"date"`
	IsRead         bool   `db:"is_read"`
	IsFlagged      bool   `db:"is_flagged"`
	IsAnswered     bool   `db:"is_answered"`
	IsForwarded    bool   `db:"is_forwarded"`
	SizeBytes      int64  `db:"size_bytes"`
	CreatedAt      int64  `db:"created_at"`
	HasAttachments bool   `db:"has_attachments"`
}

func (r *messageRow) toMessage() *types.Message {
	return &types.Message{
		ID:             r.ID,
		AccountID:      r.AccountID,
		FolderID:       r.FolderID,
		UID:            r.UID,
		ThreadID:       r.ThreadID,
		MessageID:      r.MessageID,
		Subject:        r.Subject,
		Sender:         r.Sender,
		Recipients:     decodeList(r.Recipients),
		Cc:             decodeList(r.Cc),
		Bcc:            decodeList(r.Bcc),
		BodyText:       r.BodyText,
		BodyHTML:       r.BodyHTML,
		Date:           fromMillis(r.Date),
		IsRead:         r.IsRead,
		IsFlagged:      r.IsFlagged,
		IsAnswered:     r.IsAnswered,
		IsForwarded:    r.IsForwarded,
		SizeBytes:      r.SizeBytes,
		HasAttachments: r.HasAttachments,
		CreatedAt:      fromMillis(r.CreatedAt),
	}
}

func toMessages(rows []messageRow) []*types.Message {
	messages := make([]*types.Message, len(rows))
	for i := range rows {
		messages[i] = rows[i].toMessage()
	}
	return messages
}

// messageColumns selects a full message row from "messages m"
const messageColumns = `m.id, m.account_id, m.folder_id, m.uid, m.thread_id, m.message_id, m.subject, m.sender,
	m.recipients, m.cc, m.bcc, m.body_text, m.body_html, m.date,
	m.is_read, m.is_flagged, m.is_answered, m.is_forwarded, m.size_bytes, m.created_at,
	EXISTS(SELECT 1 FROM attachments a WHERE a.message_id = m.id) AS has_attachments`

// AddMessage stores a message keyed on (account, uid). When the key already exists the
// stored row is returned unchanged and created is false.
func (s *Store) AddMessage(ctx context.Context, draft types.MessageDraft) (*types.Message, bool, error) {
	if draft.UID == "" {
		return nil, false, fmt.Errorf("message uid is required")
	}

	var (
		row     messageRow
		created bool
	)
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &row,
			"SELECT "+messageColumns+" FROM messages m WHERE m.account_id = ? AND m.uid = ?", draft.AccountID, draft.UID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to look up message: %w", err)
		}

		var owner int64
		err = tx.GetContext(ctx, &owner, "SELECT account_id FROM folders WHERE id = ?", draft.FolderID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("folder %d: %w", draft.FolderID, types.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to check folder: %w", err)
		}
		if owner != draft.AccountID {
			return fmt.Errorf("folder %d does not belong to account %d: %w", draft.FolderID, draft.AccountID, types.ErrNotFound)
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO messages (account_id, folder_id, uid, thread_id, message_id, subject, sender,
				recipients, cc, bcc, body_text, body_html, date,
				is_read, is_flagged, is_answered, is_forwarded, size_bytes, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, draft.AccountID, draft.FolderID, draft.UID, draft.ThreadID, draft.MessageID, draft.Subject, draft.Sender,
			encodeList(draft.Recipients), encodeList(draft.Cc), encodeList(draft.Bcc),
			draft.BodyText, draft.BodyHTML, toMillis(draft.Date),
			draft.Flags.IsRead, draft.Flags.IsFlagged, draft.Flags.IsAnswered, draft.Flags.IsForwarded,
			draft.SizeBytes, now())
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("message %s: %w", draft.UID, types.ErrConflict)
			}
			return fmt.Errorf("failed to insert message: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return err
		}

		for _, att := range draft.Attachments {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO attachments (message_id, filename, content_type, size, content_id, storage_path)
				VALUES (?, ?, ?, ?, ?, ?)
			`, id, att.Filename, att.ContentType, att.Size, att.ContentID, toNullString(att.StoragePath))
			if err != nil {
				return fmt.Errorf("failed to insert attachment: %w", err)
			}
		}

		created = true
		return tx.GetContext(ctx, &row, "SELECT "+messageColumns+" FROM messages m WHERE m.id = ?", id)
	})
	if err != nil {
		return nil, false, err
	}

	return row.toMessage(), created, nil
}

// GetMessage returns a message by id
func (s *Store) GetMessage(ctx context.Context, id int64) (*types.Message, error) {
	var row messageRow
	err := s.db.GetContext(ctx, &row, "SELECT "+messageColumns+" FROM messages m WHERE m.id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("message %d: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return row.toMessage(), nil
}

// GetMessageByUID returns a message by its provider uid within an account
func (s *Store) GetMessageByUID(ctx context.Context, accountID int64, uid string) (*types.Message, error) {
	var row messageRow
	err := s.db.GetContext(ctx, &row,
		"SELECT "+messageColumns+" FROM messages m WHERE m.account_id = ? AND m.uid = ?", accountID, uid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("message %s: %w", uid, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return row.toMessage(), nil
}

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// ListMessages pages through a folder newest first. Total is the folder's full row count.
func (s *Store) ListMessages(ctx context.Context, folderID int64, limit, offset int) (*types.MessagePage, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM messages WHERE folder_id = ?", folderID); err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}

	var rows []messageRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+messageColumns+`
		FROM messages m
		WHERE m.folder_id = ?
		ORDER BY m.date DESC, m.id DESC
		LIMIT ? OFFSET ?
	`, folderID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	return &types.MessagePage{Items: toMessages(rows), Total: total}, nil
}

// GetMessagesByThread returns a conversation oldest first
func (s *Store) GetMessagesByThread(ctx context.Context, threadID string) ([]*types.Message, error) {
	var rows []messageRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+messageColumns+`
		FROM messages m
		WHERE m.thread_id = ?
		ORDER BY m.date ASC, m.id ASC
	`, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list thread: %w", err)
	}
	return toMessages(rows), nil
}

// ClearAccountMessages removes every message and attachment of an account and returns
// the number of messages removed
func (s *Store) ClearAccountMessages(ctx context.Context, accountID int64) (int64, error) {
	var removed int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM attachments WHERE message_id IN (SELECT id FROM messages WHERE account_id = ?)", accountID); err != nil {
			return fmt.Errorf("failed to delete attachments: %w", err)
		}
		result, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE account_id = ?", accountID)
		if err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}
		removed, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{
		"account_id": accountID,
		"removed":    removed,
	}).Info("Cleared account messages")
	return removed, nil
}

// MessageFlagsByUID snapshots the flag state of every message in an account
func (s *Store) MessageFlagsByUID(ctx context.Context, accountID int64) (map[string]types.MessageFlags, error) {
	var rows []struct {
		UID         string `db:"uid"`
		IsRead      bool   `db:"is_read"`
		IsFlagged   bool   `db:"is_flagged"`
		IsAnswered  bool   `db:"is_answered"`
		IsForwarded bool   `db:"is_forwarded"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT uid, is_read, is_flagged, is_answered, is_forwarded
		FROM messages WHERE account_id = ?
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot message flags: %w", err)
	}

	flags := make(map[string]types.MessageFlags, len(rows))
	for _, r := range rows {
		flags[r.UID] = types.MessageFlags{
			IsRead:      r.IsRead,
			IsFlagged:   r.IsFlagged,
			IsAnswered:  r.IsAnswered,
			IsForwarded: r.IsForwarded,
		}
	}
	return flags, nil
}

// SetMessageFlags overwrites the flag state of a message and updates its folder counts
func (s *Store) SetMessageFlags(ctx context.Context, id int64, flags types.MessageFlags) (*types.Message, error) {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE messages SET is_read = ?, is_flagged = ?, is_answered = ?, is_forwarded = ?
			WHERE id = ?
		`, flags.IsRead, flags.IsFlagged, flags.IsAnswered, flags.IsForwarded, id)
		if err != nil {
			return fmt.Errorf("failed to update message flags: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fmt.Errorf("message %d: %w", id, types.ErrNotFound)
		}

		// Counts follow the change; last_synced_at is left alone.
		if _, err := tx.ExecContext(ctx, `
			UPDATE folders SET
				total_count = (SELECT COUNT(*) FROM messages WHERE folder_id = folders.id),
				unread_count = (SELECT COUNT(*) FROM messages WHERE folder_id = folders.id AND is_read = 0)
			WHERE id = (SELECT folder_id FROM messages WHERE id = ?)
		`, id); err != nil {
			return fmt.Errorf("failed to update folder counts: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetMessage(ctx, id)
}

// ListAttachments returns attachment metadata for a message
func (s *Store) ListAttachments(ctx context.Context, messageID int64) ([]*types.Attachment, error) {
	var rows []struct {
		ID          int64          `db:"id"`
		MessageID   int64          `db:"message_id"`
		Filename    string         `db:"filename"`
		ContentType string         `db:"content_type"`
		Size        int64          `db:"size"`
		ContentID   string         `db:"content_id"`
		StoragePath sql.NullString `db:"storage_path"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, message_id, filename, content_type, size, content_id, storage_path
		FROM attachments WHERE message_id = ? ORDER BY id
	`, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}

	attachments := make([]*types.Attachment, len(rows))
	for i, r := range rows {
		attachments[i] = &types.Attachment{
			ID:          r.ID,
			MessageID:   r.MessageID,
			Filename:    r.Filename,
			ContentType: r.ContentType,
			Size:        r.Size,
			ContentID:   r.ContentID,
			StoragePath: fromNullString(r.StoragePath),
		}
	}
	return attachments, nil
}

func encodeList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(items); err != nil {
		return "[]"
	}
	return strings.TrimSpace(buf.String())
}

func decodeList(raw string) []string {
	var items []string
	if raw == "" {
		return items
	}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil
	}
	return items
}
