package tools

import (
	"context"
	"fmt"
)

// SearchMessagesTool searches stored messages
type SearchMessagesTool struct{ deps }

func (t *SearchMessagesTool) Name() string { return "search_messages" }

func (t *SearchMessagesTool) Description() string {
	return "Search stored messages. Supports subject:, from:, to:, is:read|unread|flagged|answered, " +
		"has:attachment, after:YYYY-MM-DD, before:YYYY-MM-DD and free text; quote multi-word values"
}

func (t *SearchMessagesTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"query":     prop("string", "Search query, e.g. from:alice is:unread \"quarterly report\""),
		"folder_id": prop("integer", "Optional: Restrict to one folder"),
		"limit":     prop("integer", "Optional: Maximum results (1-1000)"),
	}, "query")
}

func (t *SearchMessagesTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	query, _ := params["query"].(string)

	folderID, err := optionalID(params, "folder_id")
	if err != nil {
		return nil, err
	}
	limit, err := optionalInt(params, "limit", t.config.SearchResultLimit)
	if err != nil {
		return nil, err
	}

	results, err := t.store.Search(ctx, query, folderID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	return results, nil
}
