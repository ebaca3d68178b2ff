package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/brandon/mailsync/pkg/types"
)

// messageDetail is a message with its attachment metadata
type messageDetail struct {
	*types.Message
	Attachments []*types.Attachment `json:"attachments"`
}

func (d deps) detail(ctx context.Context, msg *types.Message) (*messageDetail, error) {
	attachments, err := d.store.ListAttachments(ctx, msg.ID)
	if err != nil {
		return nil, err
	}
	return &messageDetail{Message: msg, Attachments: attachments}, nil
}

// ListMessagesTool pages through a folder, newest first
type ListMessagesTool struct{ deps }

func (t *ListMessagesTool) Name() string { return "list_messages" }

func (t *ListMessagesTool) Description() string {
	return "List messages in a folder, newest first, with the folder's total count"
}

func (t *ListMessagesTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"folder_id": prop("integer", "Folder id"),
		"limit":     prop("integer", "Optional: Page size (default 50, max 500)"),
		"offset":    prop("integer", "Optional: Number of messages to skip"),
	}, "folder_id")
}

func (t *ListMessagesTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	folderID, err := requireID(params, "folder_id")
	if err != nil {
		return nil, err
	}
	limit, err := optionalInt(params, "limit", 0)
	if err != nil {
		return nil, err
	}
	offset, err := optionalInt(params, "offset", 0)
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		return nil, invalid("offset must not be negative")
	}

	if _, err := t.store.GetFolder(ctx, folderID); err != nil {
		return nil, err
	}
	return t.store.ListMessages(ctx, folderID, limit, offset)
}

// GetMessageTool returns one message by id, or null
type GetMessageTool struct{ deps }

func (t *GetMessageTool) Name() string { return "get_message" }

func (t *GetMessageTool) Description() string {
	return "Get a stored message with its attachments by id; returns null when absent"
}

func (t *GetMessageTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"message_id": prop("integer", "Message id"),
	}, "message_id")
}

func (t *GetMessageTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	id, err := requireID(params, "message_id")
	if err != nil {
		return nil, err
	}

	msg, err := t.store.GetMessage(ctx, id)
	if errors.Is(err, types.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t.detail(ctx, msg)
}

// GetMessageByUIDTool returns one message by its provider uid, or null
type GetMessageByUIDTool struct{ deps }

func (t *GetMessageByUIDTool) Name() string { return "get_message_by_uid" }

func (t *GetMessageByUIDTool) Description() string {
	return "Get a stored message by account and provider uid; returns null when absent"
}

func (t *GetMessageByUIDTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"account_id": prop("integer", "Account id"),
		"uid":        prop("string", "Provider uid (Gmail message id, or mailbox:uid for IMAP)"),
	}, "account_id", "uid")
}

func (t *GetMessageByUIDTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	accountID, err := requireID(params, "account_id")
	if err != nil {
		return nil, err
	}
	uid, err := requireString(params, "uid")
	if err != nil {
		return nil, err
	}

	msg, err := t.store.GetMessageByUID(ctx, accountID, uid)
	if errors.Is(err, types.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t.detail(ctx, msg)
}

// ListThreadTool lists a conversation oldest first
type ListThreadTool struct{ deps }

func (t *ListThreadTool) Name() string { return "list_thread" }

func (t *ListThreadTool) Description() string {
	return "List every stored message of a thread, oldest first"
}

func (t *ListThreadTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"thread_id": prop("string", "Thread id"),
	}, "thread_id")
}

func (t *ListThreadTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	threadID, err := requireString(params, "thread_id")
	if err != nil {
		return nil, err
	}
	return t.store.GetMessagesByThread(ctx, threadID)
}

// SetMessageFlagsTool changes local read/flag state; omitted flags are unchanged
type SetMessageFlagsTool struct{ deps }

func (t *SetMessageFlagsTool) Name() string { return "set_message_flags" }

func (t *SetMessageFlagsTool) Description() string {
	return "Mark a stored message read/unread, flagged, answered or forwarded"
}

func (t *SetMessageFlagsTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"message_id":   prop("integer", "Message id"),
		"is_read":      prop("boolean", "Optional: Read state"),
		"is_flagged":   prop("boolean", "Optional: Flagged/starred state"),
		"is_answered":  prop("boolean", "Optional: Answered state"),
		"is_forwarded": prop("boolean", "Optional: Forwarded state"),
	}, "message_id")
}

func (t *SetMessageFlagsTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	id, err := requireID(params, "message_id")
	if err != nil {
		return nil, err
	}

	msg, err := t.store.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}

	flags := msg.Flags()
	for key, dst := range map[string]*bool{
		"is_read":      &flags.IsRead,
		"is_flagged":   &flags.IsFlagged,
		"is_answered":  &flags.IsAnswered,
		"is_forwarded": &flags.IsForwarded,
	} {
		v, err := optionalBool(params, key)
		if err != nil {
			return nil, err
		}
		if v != nil {
			*dst = *v
		}
	}

	updated, err := t.store.SetMessageFlags(ctx, id, flags)
	if err != nil {
		return nil, fmt.Errorf("failed to set flags: %w", err)
	}
	return updated, nil
}
