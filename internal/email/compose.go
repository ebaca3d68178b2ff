package email

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/brandon/mailsync/pkg/types"
)

// composeMessage renders a draft as an RFC 5322 message sent from account.
// Bcc recipients are envelope-only and never appear in the headers.
func composeMessage(account *types.Account, draft *types.ComposeDraft) ([]byte, error) {
	if len(draft.Recipients()) == 0 {
		return nil, fmt.Errorf("message has no recipients")
	}

	var h mail.Header
	h.SetDate(time.Now())
	h.SetSubject(draft.Subject)
	h.SetAddressList("From", []*mail.Address{{Name: account.DisplayName, Address: account.EmailAddress}})

	for _, field := range []struct {
		key   string
		addrs []string
	}{{"To", draft.To}, {"Cc", draft.Cc}} {
		if len(field.addrs) == 0 {
			continue
		}
		list, err := parseAddresses(field.addrs)
		if err != nil {
			return nil, err
		}
		h.SetAddressList(field.key, list)
	}

	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}
	if draft.InReplyTo != "" {
		h.SetMsgIDList("In-Reply-To", []string{draft.InReplyTo})
	}
	if len(draft.References) > 0 {
		h.SetMsgIDList("References", draft.References)
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("failed to create body writer: %w", err)
	}

	bodies := []struct {
		contentType string
		content     string
	}{{"text/plain", draft.BodyText}, {"text/html", draft.BodyHTML}}
	wrote := false
	for _, body := range bodies {
		if body.content == "" {
			continue
		}
		if err := writeInline(tw, body.contentType, body.content); err != nil {
			return nil, err
		}
		wrote = true
	}
	if !wrote {
		if err := writeInline(tw, "text/plain", ""); err != nil {
			return nil, err
		}
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close body writer: %w", err)
	}

	for _, att := range draft.Attachments {
		var ah mail.AttachmentHeader
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		ah.SetContentType(contentType, nil)
		ah.SetFilename(att.Filename)

		w, err := mw.CreateAttachment(ah)
		if err != nil {
			return nil, fmt.Errorf("failed to create attachment %s: %w", att.Filename, err)
		}
		if _, err := w.Write(att.Content); err != nil {
			return nil, fmt.Errorf("failed to write attachment %s: %w", att.Filename, err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("failed to close attachment %s: %w", att.Filename, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close message writer: %w", err)
	}

	return buf.Bytes(), nil
}

func writeInline(tw *mail.InlineWriter, contentType, content string) error {
	var ih mail.InlineHeader
	ih.SetContentType(contentType, map[string]string{"charset": "utf-8"})

	w, err := tw.CreatePart(ih)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(w, content); err != nil {
		return fmt.Errorf("failed to write %s part: %w", contentType, err)
	}
	return w.Close()
}

func parseAddresses(addrs []string) ([]*mail.Address, error) {
	list := make([]*mail.Address, 0, len(addrs))
	for _, s := range addrs {
		addr, err := mail.ParseAddress(s)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", s, err)
		}
		list = append(list, addr)
	}
	return list, nil
}
