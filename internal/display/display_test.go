package display

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/brandon/mailsync/internal/email"
	"github.com/brandon/mailsync/pkg/types"
)

func TestTimeAgo(t *testing.T) {
	base := time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)
	Now = func() time.Time { return base }
	t.Cleanup(func() { Now = time.Now })

	assert.Equal(t, "", TimeAgo(time.Time{}))
	assert.Equal(t, "just now", TimeAgo(base.Add(-10*time.Second)))
	assert.Equal(t, "5m ago", TimeAgo(base.Add(-5*time.Minute)))
	assert.Equal(t, "3h ago", TimeAgo(base.Add(-3*time.Hour)))
	assert.Equal(t, "2d ago", TimeAgo(base.Add(-48*time.Hour)))
	assert.Equal(t, "May 1", TimeAgo(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
	assert.Equal(t, "héllo...", Truncate("héllo wörld", 8))
}

func TestMessagesAndFolders(t *testing.T) {
	var buf bytes.Buffer
	Messages(&buf, []*types.Message{
		{ID: 1, Sender: "alice@example.com", Subject: "Lunch?"},
		{ID: 2, Sender: "bob@example.com", IsRead: true},
	})
	out := buf.String()
	assert.Contains(t, out, "alice@example.com")
	assert.Contains(t, out, "Lunch?")
	assert.Contains(t, out, "(no subject)")

	buf.Reset()
	Folders(&buf, []*types.Folder{{ID: 3, Name: "INBOX", Kind: types.FolderInbox, UnreadCount: 2, TotalCount: 5}})
	assert.Contains(t, buf.String(), "2/5")
	assert.Contains(t, buf.String(), "never synced")

	buf.Reset()
	Accounts(&buf, nil)
	assert.Contains(t, buf.String(), "No accounts")
}

func TestSyncResult(t *testing.T) {
	var buf bytes.Buffer
	SyncResult(&buf, &email.SyncResult{AccountID: 1, Fetched: 4, Created: 3, Skipped: 1})
	assert.Contains(t, buf.String(), "4 fetched, 3 new, 1 unchanged")

	buf.Reset()
	SyncResult(&buf, &email.SyncResult{AccountID: 1, Folders: 2, FailedFolders: 1})
	assert.Contains(t, buf.String(), "0 messages and 1 folders failed")
}
