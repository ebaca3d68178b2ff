package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"iter"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/jhillyerd/enmime"
	"github.com/sirupsen/logrus"

	"github.com/brandon/mailsync/pkg/types"
)

// specialUseKinds maps RFC 6154 mailbox attributes to folder kinds
var specialUseKinds = map[string]types.FolderKind{
	imap.SentAttr:   types.FolderSent,
	imap.DraftsAttr: types.FolderDrafts,
	imap.TrashAttr:  types.FolderTrash,
}

// IMAPClient is a logged-in IMAP session used as a Fetcher
type IMAPClient struct {
	account *types.Account
	client  *client.Client
	logger  *logrus.Logger
}

// DialIMAP connects and logs in. Port 993 dials TLS; other ports dial plain and
// upgrade with STARTTLS when the server advertises it.
func DialIMAP(ctx context.Context, account *types.Account, timeout time.Duration, logger *logrus.Logger) (*IMAPClient, error) {
	if account.Password == nil {
		return nil, fmt.Errorf("%w: account %s has no password", types.ErrAuthFailed, account.EmailAddress)
	}

	addr := net.JoinHostPort(account.IMAPHost, strconv.Itoa(account.IMAPPort))
	tlsConfig := &tls.Config{
		ServerName: account.IMAPHost,
		MinVersion: tls.VersionTLS12,
	}
	dialer := &net.Dialer{Timeout: timeout}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	var (
		cl  *client.Client
		err error
	)
	if account.IMAPPort == 993 {
		cl, err = client.DialWithDialerTLS(dialer, addr, tlsConfig)
	} else {
		cl, err = client.DialWithDialer(dialer, addr)
		if err == nil {
			if ok, _ := cl.SupportStartTLS(); ok {
				if err = cl.StartTLS(tlsConfig); err != nil {
					cl.Logout() //nolint:errcheck
				}
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to IMAP server: %w", types.ErrRemoteUnavailable, err)
	}

	if err := cl.Login(account.EmailAddress, *account.Password); err != nil {
		logger.WithError(err).WithField("account", account.EmailAddress).Error("Failed to login to IMAP server")
		cl.Logout() //nolint:errcheck
		return nil, fmt.Errorf("%w: failed to login to IMAP server: %w", types.ErrAuthFailed, err)
	}

	logger.WithField("account", account.EmailAddress).Debug("Connected to IMAP server")

	return &IMAPClient{
		account: account,
		client:  cl,
		logger:  logger,
	}, nil
}

// Close logs out and closes the connection
func (c *IMAPClient) Close() error {
	if c.client == nil {
		return nil
	}
	err := c.client.Logout()
	c.client = nil
	return err
}

// DiscoverFolders lists all selectable mailboxes
func (c *IMAPClient) DiscoverFolders(ctx context.Context) ([]RemoteFolder, error) {
	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)

	go func() {
		done <- c.client.List("", "*", mailboxes)
	}()

	var folders []RemoteFolder
	for m := range mailboxes {
		if hasAttr(m.Attributes, imap.NoSelectAttr) {
			continue
		}
		folders = append(folders, RemoteFolder{
			Name: m.Name,
			Path: m.Name,
			Kind: mailboxKind(m),
		})
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("%w: failed to list folders: %w", types.ErrRemoteUnavailable, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return folders, nil
}

func mailboxKind(m *imap.MailboxInfo) types.FolderKind {
	if strings.EqualFold(m.Name, "INBOX") {
		return types.FolderInbox
	}
	for _, attr := range m.Attributes {
		if kind, ok := specialUseKinds[attr]; ok {
			return kind
		}
	}
	return types.FolderCustom
}

func hasAttr(attrs []string, want string) bool {
	for _, attr := range attrs {
		if strings.EqualFold(attr, want) {
			return true
		}
	}
	return false
}

// Messages examines the mailbox and yields its newest limit messages in sequence order
func (c *IMAPClient) Messages(ctx context.Context, path string, limit int) iter.Seq2[*RemoteMessage, error] {
	return func(yield func(*RemoteMessage, error) bool) {
		mbox, err := c.client.Select(path, true)
		if err != nil {
			yield(nil, fmt.Errorf("%w: failed to select folder %s: %w", types.ErrRemoteUnavailable, path, err))
			return
		}
		if mbox.Messages == 0 {
			return
		}

		start := uint32(1)
		if limit > 0 && mbox.Messages > uint32(limit) {
			start = mbox.Messages - uint32(limit) + 1
		}
		seqSet := new(imap.SeqSet)
		seqSet.AddRange(start, mbox.Messages)

		section := &imap.BodySectionName{Peek: true}
		items := []imap.FetchItem{
			imap.FetchUid,
			imap.FetchFlags,
			imap.FetchEnvelope,
			imap.FetchInternalDate,
			imap.FetchRFC822Size,
			section.FetchItem(),
		}

		messages := make(chan *imap.Message, 10)
		done := make(chan error, 1)

		go func() {
			done <- c.client.Fetch(seqSet, items, messages)
		}()

		// Once stopped, the channel is still drained so the fetch can finish.
		stopped := false
		for msg := range messages {
			if stopped {
				continue
			}
			if err := ctx.Err(); err != nil {
				stopped = true
				yield(nil, err)
				continue
			}

			remote, err := c.parseMessage(path, msg, section)
			if err != nil {
				err = &ItemError{ID: fmt.Sprintf("%s:%d", path, msg.Uid), Err: err}
				stopped = !yield(nil, err)
				continue
			}
			stopped = !yield(remote, nil)
		}

		if err := <-done; err != nil && !stopped {
			yield(nil, fmt.Errorf("%w: failed to fetch messages: %w", types.ErrRemoteUnavailable, err))
		}
	}
}

// parseMessage parses a fetched message with enmime, taking headers from go-message
func (c *IMAPClient) parseMessage(path string, msg *imap.Message, section *imap.BodySectionName) (*RemoteMessage, error) {
	literal := msg.GetBody(section)
	if literal == nil {
		return nil, fmt.Errorf("%w: no body returned", types.ErrParseFailure)
	}

	raw, err := io.ReadAll(literal)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read body: %w", types.ErrParseFailure, err)
	}

	h, err := readHeader(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrParseFailure, err)
	}

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrParseFailure, err)
	}

	remote := &RemoteMessage{
		UID:        fmt.Sprintf("%s:%d", path, msg.Uid),
		ThreadID:   deriveThreadID(h),
		Subject:    subject(h),
		Recipients: addressList(h, "To"),
		Cc:         addressList(h, "Cc"),
		Bcc:        addressList(h, "Bcc"),
		BodyText:   env.Text,
		BodyHTML:   env.HTML,
		Flags:      imapFlags(msg.Flags),
		SizeBytes:  int64(msg.Size),
	}

	if id, err := h.MessageID(); err == nil {
		remote.MessageID = id
	}
	if from := addressList(h, "From"); len(from) > 0 {
		remote.Sender = from[0]
	}
	if remote.Subject == "" && msg.Envelope != nil {
		remote.Subject = msg.Envelope.Subject
	}
	if remote.BodyText == "" && remote.BodyHTML != "" {
		remote.BodyText = htmlToText(remote.BodyHTML)
	}

	date, err := h.Date()
	if err != nil || date.IsZero() {
		date = msg.InternalDate
	}
	if date.IsZero() && msg.Envelope != nil {
		date = msg.Envelope.Date
	}
	remote.Date = date.UTC()

	for _, part := range append(env.Attachments, env.Inlines...) {
		if part.FileName == "" {
			continue
		}
		remote.Attachments = append(remote.Attachments, types.AttachmentDraft{
			Filename:    part.FileName,
			ContentType: part.ContentType,
			Size:        int64(len(part.Content)),
			ContentID:   part.ContentID,
		})
	}

	c.logger.WithFields(logrus.Fields{
		"uid":         remote.UID,
		"text_len":    len(remote.BodyText),
		"html_len":    len(remote.BodyHTML),
		"attachments": len(remote.Attachments),
	}).Debug("Parsed message")

	return remote, nil
}

func imapFlags(flags []string) types.MessageFlags {
	var f types.MessageFlags
	for _, flag := range flags {
		switch flag {
		case imap.SeenFlag:
			f.IsRead = true
		case imap.FlaggedFlag:
			f.IsFlagged = true
		case imap.AnsweredFlag:
			f.IsAnswered = true
		case "$Forwarded":
			f.IsForwarded = true
		}
	}
	return f
}
