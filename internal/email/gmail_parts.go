package email

import (
	"encoding/base64"
	"strings"

	gm "google.golang.org/api/gmail/v1"

	"github.com/brandon/mailsync/pkg/types"
)

// extractBodies walks a payload depth-first and returns the first text/plain and
// text/html bodies it meets
func extractBodies(payload *gm.MessagePart) (text, html string) {
	var walk func(part *gm.MessagePart)
	walk = func(part *gm.MessagePart) {
		if part == nil || (text != "" && html != "") {
			return
		}

		if part.Filename == "" && part.Body != nil && part.Body.Data != "" {
			mimeType := strings.ToLower(part.MimeType)
			switch {
			case text == "" && strings.HasPrefix(mimeType, "text/plain"):
				if decoded, err := decodeBase64URL(part.Body.Data); err == nil {
					text = decoded
				}
			case html == "" && strings.HasPrefix(mimeType, "text/html"):
				if decoded, err := decodeBase64URL(part.Body.Data); err == nil {
					html = decoded
				}
			}
		}

		for _, child := range part.Parts {
			walk(child)
		}
	}
	walk(payload)

	return text, html
}

// extractAttachments collects metadata for every part carrying a filename
func extractAttachments(payload *gm.MessagePart) []types.AttachmentDraft {
	var attachments []types.AttachmentDraft

	var scan func(parts []*gm.MessagePart)
	scan = func(parts []*gm.MessagePart) {
		for _, part := range parts {
			if part.Filename != "" {
				att := types.AttachmentDraft{
					Filename:    part.Filename,
					ContentType: part.MimeType,
				}
				if part.Body != nil {
					att.Size = part.Body.Size
				}
				for _, h := range part.Headers {
					if strings.EqualFold(h.Name, "Content-ID") {
						att.ContentID = strings.Trim(h.Value, "<>")
					}
				}
				attachments = append(attachments, att)
			}
			if len(part.Parts) > 0 {
				scan(part.Parts)
			}
		}
	}

	if payload != nil {
		scan(payload.Parts)
	}
	return attachments
}

// headerFields groups payload headers by name, keeping repeated fields
func headerFields(headers []*gm.MessagePartHeader) map[string][]string {
	m := make(map[string][]string, len(headers))
	for _, h := range headers {
		m[h.Name] = append(m[h.Name], h.Value)
	}
	return m
}

// decodeBase64URL decodes Gmail's base64url content, padded or not
func decodeBase64URL(data string) (string, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
