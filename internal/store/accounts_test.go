package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandon/mailsync/pkg/types"
)

func TestAddAccountRejectsDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acc := seedAccount(t, s, "u@x.com")
	assert.NotZero(t, acc.ID)
	assert.False(t, acc.CreatedAt.IsZero())
	assert.Equal(t, types.ProviderIMAP, acc.Provider)

	_, err := s.AddAccount(ctx, types.AccountDraft{EmailAddress: "u@x.com", Provider: types.ProviderREST})
	assert.ErrorIs(t, err, types.ErrConflict)

	accounts, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestGetAccountNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetAccount(context.Background(), 42)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestUpdateAccount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acc := seedAccount(t, s, "u@x.com")
	other := seedAccount(t, s, "v@x.com")

	pw := "app-password"
	acc.DisplayName = "Renamed"
	acc.Password = &pw
	updated, err := s.UpdateAccount(ctx, acc)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.DisplayName)
	require.NotNil(t, updated.Password)
	assert.Equal(t, pw, *updated.Password)

	other.EmailAddress = "u@x.com"
	_, err = s.UpdateAccount(ctx, other)
	assert.ErrorIs(t, err, types.ErrConflict)

	missing := *acc
	missing.ID = 999
	missing.EmailAddress = "nobody@x.com"
	_, err = s.UpdateAccount(ctx, &missing)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestUpdateAccountTokensKeepsRefreshTokenWhenNil(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rt := "refresh-1"
	acc, err := s.AddAccount(ctx, types.AccountDraft{
		EmailAddress: "g@gmail.com",
		Provider:     types.ProviderREST,
		RefreshToken: &rt,
	})
	require.NoError(t, err)

	require.NoError(t, s.UpdateAccountTokens(ctx, acc.ID, "access-2", nil))

	got, err := s.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AccessToken)
	assert.Equal(t, "access-2", *got.AccessToken)
	require.NotNil(t, got.RefreshToken)
	assert.Equal(t, "refresh-1", *got.RefreshToken)

	rotated := "refresh-2"
	require.NoError(t, s.UpdateAccountTokens(ctx, acc.ID, "access-3", &rotated))
	got, err = s.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "refresh-2", *got.RefreshToken)

	assert.ErrorIs(t, s.UpdateAccountTokens(ctx, 999, "x", nil), types.ErrNotFound)
}

func TestDeleteAccountCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acc := seedAccount(t, s, "u@x.com")
	keep := seedAccount(t, s, "keep@x.com")
	folder := seedFolder(t, s, acc.ID, "INBOX")
	keepFolder := seedFolder(t, s, keep.ID, "INBOX")

	draft := draftFor(folder, "1", 0)
	draft.Attachments = []types.AttachmentDraft{{Filename: "a.pdf", ContentType: "application/pdf", Size: 10}}
	msg := seedMessage(t, s, draft)
	seedMessage(t, s, draftFor(keepFolder, "1", 0))

	existed, err := s.DeleteAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, existed)

	_, err = s.GetAccount(ctx, acc.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	folders, err := s.ListFolders(ctx, acc.ID)
	require.NoError(t, err)
	assert.Empty(t, folders)

	_, err = s.GetMessage(ctx, msg.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	attachments, err := s.ListAttachments(ctx, msg.ID)
	require.NoError(t, err)
	assert.Empty(t, attachments)

	// The other account is untouched
	page, err := s.ListMessages(ctx, keepFolder.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	existed, err = s.DeleteAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestDeleteAccountRollsBackOnFailure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acc := seedAccount(t, s, "u@x.com")
	folder := seedFolder(t, s, acc.ID, "INBOX")
	draft := draftFor(folder, "1", 0)
	draft.Attachments = []types.AttachmentDraft{{Filename: "a.txt", ContentType: "text/plain", Size: 3}}
	msg := seedMessage(t, s, draft)

	// Fail after attachments and messages are deleted, before folders go.
	_, err := s.db.Exec(`CREATE TRIGGER fail_folder_delete BEFORE DELETE ON folders
		BEGIN SELECT RAISE(ABORT, 'injected failure'); END;`)
	require.NoError(t, err)

	existed, err := s.DeleteAccount(ctx, acc.ID)
	require.Error(t, err)
	assert.False(t, existed)

	_, err = s.GetAccount(ctx, acc.ID)
	assert.NoError(t, err)

	got, err := s.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, got.HasAttachments)

	attachments, err := s.ListAttachments(ctx, msg.ID)
	require.NoError(t, err)
	assert.Len(t, attachments, 1)

	folders, err := s.ListFolders(ctx, acc.ID)
	require.NoError(t, err)
	assert.Len(t, folders, 1)
}
