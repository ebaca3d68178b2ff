package store

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/brandon/mailsync/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s, err := Open(filepath.Join(t.TempDir(), "mail.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedAccount(t *testing.T, s *Store, email string) *types.Account {
	t.Helper()
	acc, err := s.AddAccount(context.Background(), types.AccountDraft{
		DisplayName:  "Test",
		EmailAddress: email,
		Provider:     types.ProviderIMAP,
		IMAPHost:     "imap.example.com",
		IMAPPort:     993,
		SMTPHost:     "smtp.example.com",
		SMTPPort:     587,
	})
	require.NoError(t, err)
	return acc
}

func seedFolder(t *testing.T, s *Store, accountID int64, path string) *types.Folder {
	t.Helper()
	folder, err := s.UpsertFolder(context.Background(), types.FolderDraft{
		AccountID: accountID,
		Name:      path,
		Path:      path,
		Kind:      types.FolderInbox,
	})
	require.NoError(t, err)
	return folder
}

var baseDate = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func draftFor(folder *types.Folder, uid string, offset time.Duration) types.MessageDraft {
	return types.MessageDraft{
		AccountID:  folder.AccountID,
		FolderID:   folder.ID,
		UID:        uid,
		ThreadID:   "thread-" + uid,
		Subject:    "Subject " + uid,
		Sender:     "alice@example.com",
		Recipients: []string{"bob@example.com"},
		BodyText:   "body " + uid,
		Date:       baseDate.Add(offset),
		SizeBytes:  100,
	}
}

func seedMessage(t *testing.T, s *Store, draft types.MessageDraft) *types.Message {
	t.Helper()
	msg, _, err := s.AddMessage(context.Background(), draft)
	require.NoError(t, err)
	return msg
}
