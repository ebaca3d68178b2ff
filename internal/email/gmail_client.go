package email

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	gm "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/brandon/mailsync/pkg/types"
)

const (
	gmailUser = "me"

	// maxAuthRetries bounds how many times one call may refresh the token
	maxAuthRetries = 1

	// gmailPageSize is the largest page Users.Messages.List accepts
	gmailPageSize = 500
)

// labelKinds maps Gmail system labels to folder kinds
var labelKinds = map[string]types.FolderKind{
	"INBOX": types.FolderInbox,
	"SENT":  types.FolderSent,
	"DRAFT": types.FolderDrafts,
	"TRASH": types.FolderTrash,
}

// GmailClient fetches and sends mail through the Gmail REST API.
// It owns the access token for the lifetime of one sync call.
type GmailClient struct {
	account   *types.Account
	refresher TokenRefresher
	opts      []option.ClientOption
	logger    *logrus.Logger
	token     string
}

// NewGmailClient creates a client for account. Extra options are passed to the
// Gmail service, e.g. option.WithEndpoint for a non-default API host.
func NewGmailClient(account *types.Account, refresher TokenRefresher, logger *logrus.Logger, opts ...option.ClientOption) *GmailClient {
	c := &GmailClient{
		account:   account,
		refresher: refresher,
		opts:      opts,
		logger:    logger,
	}
	if account.AccessToken != nil {
		c.token = *account.AccessToken
	}
	return c
}

func (c *GmailClient) service(ctx context.Context) (*gm.Service, error) {
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: c.token,
		TokenType:   "Bearer",
	}))

	opts := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, c.opts...)
	svc, err := gm.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return svc, nil
}

// do runs call with the current token. A 401 refreshes the token and retries the
// call; a second 401 is final.
func (c *GmailClient) do(ctx context.Context, op string, call func(svc *gm.Service) error) error {
	// A refresh made up front spends the retry budget.
	attempt := 0
	if c.token == "" {
		if err := c.refresh(ctx); err != nil {
			return err
		}
		attempt = maxAuthRetries
	}

	for ; ; attempt++ {
		svc, err := c.service(ctx)
		if err != nil {
			return err
		}

		err = call(svc)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !isUnauthorized(err) {
			return fmt.Errorf("%w: failed to %s: %w", types.ErrRemoteUnavailable, op, err)
		}
		if attempt >= maxAuthRetries {
			return fmt.Errorf("%w: %s rejected after token refresh: %w", types.ErrAuthFailed, op, err)
		}

		c.logger.WithFields(logrus.Fields{
			"account": c.account.EmailAddress,
			"op":      op,
		}).Info("Access token expired, refreshing")

		if err := c.refresh(ctx); err != nil {
			return err
		}
	}
}

func (c *GmailClient) refresh(ctx context.Context) error {
	if c.refresher == nil {
		return fmt.Errorf("%w: %w: no token refresher configured", types.ErrAuthFailed, types.ErrAuthExpired)
	}

	token, err := c.refresher.Refresh(ctx, c.account)
	if err != nil {
		return fmt.Errorf("failed to refresh token: %w", err)
	}
	c.token = token
	return nil
}

// isUnauthorized reports whether err is a 401 from the API
func isUnauthorized(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized
}

// DiscoverFolders lists the account's labels
func (c *GmailClient) DiscoverFolders(ctx context.Context) ([]RemoteFolder, error) {
	var labels []*gm.Label
	err := c.do(ctx, "list labels", func(svc *gm.Service) error {
		resp, err := svc.Users.Labels.List(gmailUser).Context(ctx).Do()
		if err != nil {
			return err
		}
		labels = resp.Labels
		return nil
	})
	if err != nil {
		return nil, err
	}

	folders := make([]RemoteFolder, 0, len(labels))
	for _, label := range labels {
		kind, ok := labelKinds[label.Id]
		if !ok {
			kind = types.FolderCustom
		}
		folders = append(folders, RemoteFolder{
			Name: label.Name,
			Path: label.Id,
			Kind: kind,
		})
	}
	return folders, nil
}

// ListMessageIDs returns up to limit message ids carrying label, newest first.
// limit <= 0 lists every page.
func (c *GmailClient) ListMessageIDs(ctx context.Context, label string, limit int) ([]string, error) {
	var ids []string
	pageToken := ""

	for {
		pageSize := int64(gmailPageSize)
		if limit > 0 && limit-len(ids) < gmailPageSize {
			pageSize = int64(limit - len(ids))
		}

		var resp *gm.ListMessagesResponse
		err := c.do(ctx, "list messages", func(svc *gm.Service) error {
			call := svc.Users.Messages.List(gmailUser).LabelIds(label).MaxResults(pageSize).Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			var err error
			resp, err = call.Do()
			return err
		})
		if err != nil {
			return nil, err
		}

		for _, msg := range resp.Messages {
			ids = append(ids, msg.Id)
		}

		if resp.NextPageToken == "" || (limit > 0 && len(ids) >= limit) {
			break
		}
		pageToken = resp.NextPageToken
	}

	return ids, nil
}

// FetchMessage fetches and parses one message in full format
func (c *GmailClient) FetchMessage(ctx context.Context, id string) (*RemoteMessage, error) {
	var msg *gm.Message
	err := c.do(ctx, "get message "+id, func(svc *gm.Service) error {
		var err error
		msg, err = svc.Users.Messages.Get(gmailUser, id).Format("full").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	return parseGmailMessage(msg)
}

// Messages yields the messages carrying label
func (c *GmailClient) Messages(ctx context.Context, label string, limit int) iter.Seq2[*RemoteMessage, error] {
	return func(yield func(*RemoteMessage, error) bool) {
		ids, err := c.ListMessageIDs(ctx, label, limit)
		if err != nil {
			yield(nil, err)
			return
		}

		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			msg, err := c.FetchMessage(ctx, id)
			switch {
			case err == nil:
				if !yield(msg, nil) {
					return
				}
			case errors.Is(err, types.ErrAuthFailed), ctx.Err() != nil:
				yield(nil, err)
				return
			default:
				if !yield(nil, &ItemError{ID: id, Err: err}) {
					return
				}
			}
		}
	}
}

// Send submits a composed message through Users.Messages.Send
func (c *GmailClient) Send(ctx context.Context, draft *types.ComposeDraft) error {
	raw, err := composeMessage(c.account, draft)
	if err != nil {
		return err
	}

	encoded := base64.URLEncoding.EncodeToString(raw)
	return c.do(ctx, "send message", func(svc *gm.Service) error {
		_, err := svc.Users.Messages.Send(gmailUser, &gm.Message{Raw: encoded}).Context(ctx).Do()
		return err
	})
}

// Close is a no-op; the HTTP client holds no session
func (c *GmailClient) Close() error {
	return nil
}

func parseGmailMessage(msg *gm.Message) (*RemoteMessage, error) {
	if msg.Payload == nil {
		return nil, fmt.Errorf("%w: message %s has no payload", types.ErrParseFailure, msg.Id)
	}

	h := headerFromMap(headerFields(msg.Payload.Headers))

	remote := &RemoteMessage{
		UID:        msg.Id,
		ThreadID:   msg.ThreadId,
		Subject:    subject(h),
		Recipients: addressList(h, "To"),
		Cc:         addressList(h, "Cc"),
		Bcc:        addressList(h, "Bcc"),
		SizeBytes:  msg.SizeEstimate,
		Flags: types.MessageFlags{
			IsRead:    !slices.Contains(msg.LabelIds, "UNREAD"),
			IsFlagged: slices.Contains(msg.LabelIds, "STARRED"),
		},
		Attachments: extractAttachments(msg.Payload),
	}

	if remote.ThreadID == "" {
		remote.ThreadID = uuid.NewString()
	}
	if id, err := h.MessageID(); err == nil {
		remote.MessageID = id
	}
	if from := addressList(h, "From"); len(from) > 0 {
		remote.Sender = from[0]
	}

	date, err := h.Date()
	if err != nil || date.IsZero() {
		date = time.UnixMilli(msg.InternalDate)
	}
	remote.Date = date.UTC()

	remote.BodyText, remote.BodyHTML = extractBodies(msg.Payload)
	if remote.BodyText == "" && remote.BodyHTML != "" {
		remote.BodyText = htmlToText(remote.BodyHTML)
	}

	return remote, nil
}
