package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandon/mailsync/pkg/types"
)

func TestAddMessageIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acc := seedAccount(t, s, "u@x.com")
	folder := seedFolder(t, s, acc.ID, "INBOX")

	first, created, err := s.AddMessage(ctx, draftFor(folder, "7", 0))
	require.NoError(t, err)
	assert.True(t, created)

	changed := draftFor(folder, "7", time.Hour)
	changed.Subject = "a different subject"
	second, created, err := s.AddMessage(ctx, changed)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, second)

	page, err := s.ListMessages(ctx, folder.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, "Subject 7", page.Items[0].Subject)
}

func TestOverlappingFetchesDoNotDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acc := seedAccount(t, s, "u@x.com")
	folder := seedFolder(t, s, acc.ID, "INBOX")

	for i, uid := range []string{"1", "2", "3"} {
		seedMessage(t, s, draftFor(folder, uid, time.Duration(i)*time.Minute))
	}
	for i, uid := range []string{"2", "3", "4"} {
		seedMessage(t, s, draftFor(folder, uid, time.Duration(i+1)*time.Minute))
	}

	require.NoError(t, s.RecomputeFolderCounts(ctx, folder.ID))

	got, err := s.GetFolder(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.TotalCount)
	assert.Equal(t, 4, got.UnreadCount)
	assert.NotNil(t, got.LastSyncedAt)
}

func TestAddMessageRejectsForeignFolder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := seedAccount(t, s, "a@x.com")
	b := seedAccount(t, s, "b@x.com")
	folder := seedFolder(t, s, b.ID, "INBOX")

	draft := draftFor(folder, "1", 0)
	draft.AccountID = a.ID
	_, _, err := s.AddMessage(ctx, draft)
	assert.ErrorIs(t, err, types.ErrNotFound)

	draft = draftFor(folder, "1", 0)
	draft.FolderID = 999
	_, _, err = s.AddMessage(ctx, draft)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestAddMessageStoresFieldsAndAttachments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acc := seedAccount(t, s, "u@x.com")
	folder := seedFolder(t, s, acc.ID, "INBOX")

	path := "/tmp/att/1"
	draft := draftFor(folder, "1", 0)
	draft.Recipients = []string{"Doe, John <john@example.com>", "jane@example.com"}
	draft.Cc = []string{"carol@example.com"}
	draft.Flags = types.MessageFlags{IsRead: true, IsAnswered: true}
	draft.Attachments = []types.AttachmentDraft{
		{Filename: "report.pdf", ContentType: "application/pdf", Size: 2048, ContentID: "c1", StoragePath: &path},
	}

	msg := seedMessage(t, s, draft)
	assert.Equal(t, draft.Recipients, msg.Recipients)
	assert.Equal(t, draft.Cc, msg.Cc)
	assert.Empty(t, msg.Bcc)
	assert.True(t, msg.IsRead)
	assert.True(t, msg.IsAnswered)
	assert.False(t, msg.IsFlagged)
	assert.True(t, msg.HasAttachments)
	assert.True(t, msg.Date.Equal(baseDate))

	attachments, err := s.ListAttachments(ctx, msg.ID)
	require.NoError(t, err)
	require.Len(t, attachments, 1)
	assert.Equal(t, "report.pdf", attachments[0].Filename)
	require.NotNil(t, attachments[0].StoragePath)
	assert.Equal(t, path, *attachments[0].StoragePath)

	byUID, err := s.GetMessageByUID(ctx, acc.ID, "1")
	require.NoError(t, err)
	assert.Equal(t, msg.ID, byUID.ID)

	_, err = s.GetMessageByUID(ctx, acc.ID, "nope")
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = s.GetMessage(ctx, 999)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestListMessagesPagesNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acc := seedAccount(t, s, "u@x.com")
	folder := seedFolder(t, s, acc.ID, "INBOX")
	for i := 0; i < 5; i++ {
		seedMessage(t, s, draftFor(folder, fmt.Sprint(i), time.Duration(i)*time.Hour))
	}

	page, err := s.ListMessages(ctx, folder.ID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "4", page.Items[0].UID)
	assert.Equal(t, "3", page.Items[1].UID)

	page, err = s.ListMessages(ctx, folder.ID, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "0", page.Items[0].UID)

	page, err = s.ListMessages(ctx, folder.ID, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 5, page.Total)
}

func TestThreadListingIsAscendingForAnyInsertionOrder(t *testing.T) {
	orders := [][]int{
		{0, 1, 2, 3},
		{3, 2, 1, 0},
		{2, 0, 3, 1},
		{1, 3, 0, 2},
	}

	for _, order := range orders {
		t.Run(fmt.Sprint(order), func(t *testing.T) {
			s := newTestStore(t)
			ctx := context.Background()
			acc := seedAccount(t, s, "u@x.com")
			inbox := seedFolder(t, s, acc.ID, "INBOX")
			sent := seedFolder(t, s, acc.ID, "SENT")

			for _, i := range order {
				folder := inbox
				if i%2 == 1 {
					folder = sent
				}
				draft := draftFor(folder, fmt.Sprint(i), time.Duration(i)*time.Hour)
				draft.ThreadID = "conv-1"
				seedMessage(t, s, draft)
			}
			seedMessage(t, s, draftFor(inbox, "other", 0))

			thread, err := s.GetMessagesByThread(ctx, "conv-1")
			require.NoError(t, err)
			require.Len(t, thread, 4)
			for i := 1; i < len(thread); i++ {
				assert.False(t, thread[i].Date.Before(thread[i-1].Date))
			}
		})
	}
}

func TestRecomputeFolderCountsOverwritesStaleValues(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acc := seedAccount(t, s, "u@x.com")
	folder := seedFolder(t, s, acc.ID, "INBOX")
	for i := 0; i < 3; i++ {
		draft := draftFor(folder, fmt.Sprint(i), 0)
		draft.Flags.IsRead = i == 0
		seedMessage(t, s, draft)
	}

	_, err := s.db.Exec("UPDATE folders SET total_count = 99, unread_count = 42 WHERE id = ?", folder.ID)
	require.NoError(t, err)

	require.NoError(t, s.RecomputeFolderCounts(ctx, folder.ID))

	got, err := s.GetFolder(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalCount)
	assert.Equal(t, 2, got.UnreadCount)

	assert.ErrorIs(t, s.RecomputeFolderCounts(ctx, 999), types.ErrNotFound)
}

func TestSetMessageFlagsUpdatesFolderCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acc := seedAccount(t, s, "u@x.com")
	folder := seedFolder(t, s, acc.ID, "INBOX")
	first := seedMessage(t, s, draftFor(folder, "1", 0))
	seedMessage(t, s, draftFor(folder, "2", time.Minute))
	require.NoError(t, s.RecomputeFolderCounts(ctx, folder.ID))

	synced, err := s.GetFolder(ctx, folder.ID)
	require.NoError(t, err)
	require.Equal(t, 2, synced.UnreadCount)
	require.NotNil(t, synced.LastSyncedAt)

	msg, err := s.SetMessageFlags(ctx, first.ID, types.MessageFlags{IsRead: true})
	require.NoError(t, err)
	assert.True(t, msg.IsRead)

	got, err := s.GetFolder(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.UnreadCount)
	assert.Equal(t, 2, got.TotalCount)
	assert.Equal(t, synced.LastSyncedAt, got.LastSyncedAt)

	_, err = s.SetMessageFlags(ctx, first.ID, types.MessageFlags{})
	require.NoError(t, err)
	got, err = s.GetFolder(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.UnreadCount)

	_, err = s.SetMessageFlags(ctx, 999, types.MessageFlags{IsRead: true})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestClearAccountMessagesAndFlagSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acc := seedAccount(t, s, "u@x.com")
	folder := seedFolder(t, s, acc.ID, "INBOX")
	draft := draftFor(folder, "1", 0)
	draft.Attachments = []types.AttachmentDraft{{Filename: "x"}}
	first := seedMessage(t, s, draft)
	second := seedMessage(t, s, draftFor(folder, "2", 0))

	_, err := s.SetMessageFlags(ctx, second.ID, types.MessageFlags{IsRead: true, IsFlagged: true})
	require.NoError(t, err)

	flags, err := s.MessageFlagsByUID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, types.MessageFlags{}, flags["1"])
	assert.Equal(t, types.MessageFlags{IsRead: true, IsFlagged: true}, flags["2"])

	removed, err := s.ClearAccountMessages(ctx, acc.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)

	_, err = s.GetMessage(ctx, first.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	folders, err := s.ListFolders(ctx, acc.ID)
	require.NoError(t, err)
	assert.Len(t, folders, 1)

	_, err = s.SetMessageFlags(ctx, first.ID, types.MessageFlags{})
	assert.ErrorIs(t, err, types.ErrNotFound)
}
