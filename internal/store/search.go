package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/brandon/mailsync/pkg/types"
)

const (
	defaultSearchLimit = 100
	maxSearchLimit     = 1000
)

// Search runs a query over stored messages, newest first. A blank query matches nothing.
func (s *Store) Search(ctx context.Context, query string, folderID *int64, limit int) ([]*types.Message, error) {
	if strings.TrimSpace(query) == "" {
		return []*types.Message{}, nil
	}

	q, err := ParseQuery(query)
	if err != nil {
		return nil, err
	}

	conditions, args := q.where()
	if len(conditions) == 0 {
		return []*types.Message{}, nil
	}

	if folderID != nil {
		conditions = append(conditions, "m.folder_id = ?")
		args = append(args, *folderID)
	}

	// Set default limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	sqlQuery := fmt.Sprintf(`
		SELECT %s
		FROM messages m
		WHERE %s
		ORDER BY m.date DESC, m.id DESC
		LIMIT ?
	`, messageColumns, strings.Join(conditions, " AND "))

	args = append(args, limit)

	var rows []messageRow
	if err := s.db.SelectContext(ctx, &rows, sqlQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}

	s.logger.WithField("query", query).WithField("results", len(rows)).Debug("Search complete")
	return toMessages(rows), nil
}
