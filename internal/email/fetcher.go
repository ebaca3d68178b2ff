package email

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/brandon/mailsync/pkg/types"
)

// Fetcher retrieves folder metadata and messages from one provider family.
// A fetcher lives for a single sync call.
type Fetcher interface {
	// DiscoverFolders lists the provider's folders or labels
	DiscoverFolders(ctx context.Context) ([]RemoteFolder, error)

	// Messages opens the mailbox at path and yields up to limit messages (all when limit <= 0).
	// A failure confined to one message is yielded as an *ItemError and the sequence
	// continues; any other error is yielded once and ends the sequence.
	Messages(ctx context.Context, path string, limit int) iter.Seq2[*RemoteMessage, error]

	// Close releases the session
	Close() error
}

// RemoteFolder is a folder as reported by the provider
type RemoteFolder struct {
	Name string
	Path string
	Kind types.FolderKind
}

// RemoteMessage is a parsed message as reported by the provider
type RemoteMessage struct {
	UID         string
	ThreadID    string
	MessageID   string
	Subject     string
	Sender      string
	Recipients  []string
	Cc          []string
	Bcc         []string
	BodyText    string
	BodyHTML    string
	Date        time.Time
	Flags       types.MessageFlags
	SizeBytes   int64
	Attachments []types.AttachmentDraft
}

// ItemError reports a failure confined to a single message
type ItemError struct {
	ID  string
	Err error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("message %s: %v", e.ID, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// TokenRefresher exchanges an account's refresh token for a new access token
type TokenRefresher interface {
	Refresh(ctx context.Context, account *types.Account) (string, error)
}

// Strategy is the provider-specific half of the orchestrator: how to fetch and how to send
type Strategy struct {
	NewFetcher func(ctx context.Context, account *types.Account) (Fetcher, error)
	Send       func(ctx context.Context, account *types.Account, draft *types.ComposeDraft) error
}
