package tools

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/brandon/mailsync/pkg/types"
)

// SendMessageTool sends a new message from a linked account
type SendMessageTool struct{ deps }

func (t *SendMessageTool) Name() string { return "send_message" }

func (t *SendMessageTool) Description() string {
	return "Send a new email with support for text, HTML, attachments, CC, BCC and reply headers"
}

func (t *SendMessageTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"account_id":  prop("integer", "Account to send from"),
		"to":          stringArrayProp("Recipient address(es); a comma-separated string is also accepted"),
		"cc":          stringArrayProp("Optional: CC recipients"),
		"bcc":         stringArrayProp("Optional: BCC recipients"),
		"subject":     prop("string", "Email subject"),
		"body_text":   prop("string", "Optional: Plain text body"),
		"body_html":   prop("string", "Optional: HTML body"),
		"in_reply_to": prop("string", "Optional: Message-Id this replies to"),
		"references":  stringArrayProp("Optional: Message-Ids of the conversation"),
		"attachments": map[string]interface{}{
			"type":        "array",
			"description": "Optional: Attachments with base64 content",
			"items": objectSchema(map[string]interface{}{
				"filename":     prop("string", "File name"),
				"content_type": prop("string", "Optional: MIME type"),
				"content":      prop("string", "Base64-encoded content"),
			}, "filename", "content"),
		},
	}, "account_id", "to", "subject")
}

func (t *SendMessageTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	accountID, err := requireID(params, "account_id")
	if err != nil {
		return nil, err
	}

	draft := &types.ComposeDraft{
		AccountID: accountID,
		Subject:   optionalString(params, "subject"),
		BodyText:  optionalString(params, "body_text"),
		BodyHTML:  optionalString(params, "body_html"),
		InReplyTo: optionalString(params, "in_reply_to"),
	}

	for key, dst := range map[string]*[]string{
		"to":         &draft.To,
		"cc":         &draft.Cc,
		"bcc":        &draft.Bcc,
		"references": &draft.References,
	} {
		if *dst, err = stringList(params, key); err != nil {
			return nil, err
		}
	}

	if len(draft.To) == 0 {
		return nil, invalid("to is required")
	}
	if draft.BodyText == "" && draft.BodyHTML == "" {
		return nil, invalid("either body_text or body_html is required")
	}

	if draft.Attachments, err = attachmentsParam(params); err != nil {
		return nil, err
	}

	sent, err := t.manager.SendMessage(ctx, draft)
	if err != nil {
		return nil, err
	}

	t.logger.WithField("account_id", accountID).Info("Message sent")

	return map[string]interface{}{"sent": sent}, nil
}

func attachmentsParam(params map[string]interface{}) ([]types.ComposeAttachment, error) {
	raw, ok := params["attachments"].([]interface{})
	if !ok {
		return nil, nil
	}

	attachments := make([]types.ComposeAttachment, 0, len(raw))
	for i, item := range raw {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, invalid("attachments[%d] must be an object", i)
		}
		filename, err := requireString(obj, "filename")
		if err != nil {
			return nil, invalid("attachments[%d]: filename is required", i)
		}
		content, err := base64.StdEncoding.DecodeString(optionalString(obj, "content"))
		if err != nil {
			return nil, fmt.Errorf("%w: attachments[%d]: content is not base64: %v", ErrInvalidParams, i, err)
		}
		attachments = append(attachments, types.ComposeAttachment{
			Filename:    filename,
			ContentType: optionalString(obj, "content_type"),
			Content:     content,
		})
	}
	return attachments, nil
}
