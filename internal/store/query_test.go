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

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		structured bool
		check      func(t *testing.T, q *Query)
	}{
		{
			name:  "free text keeps quoted phrase",
			input: `"quarterly report" draft`,
			check: func(t *testing.T, q *Query) {
				assert.Equal(t, "quarterly report draft", q.Text)
				assert.Equal(t, []string{"quarterly report", "draft"}, q.Terms)
			},
		},
		{
			name:       "quoted subject and from",
			input:      `subject:"hello world" from:alice`,
			structured: true,
			check: func(t *testing.T, q *Query) {
				assert.Equal(t, []string{"hello world"}, q.Subjects)
				assert.Equal(t, []string{"alice"}, q.From)
				assert.Empty(t, q.Terms)
			},
		},
		{
			name:       "flags and attachment",
			input:      "is:unread is:flagged has:attachment",
			structured: true,
			check: func(t *testing.T, q *Query) {
				require.NotNil(t, q.Read)
				assert.False(t, *q.Read)
				require.NotNil(t, q.Flagged)
				assert.True(t, *q.Flagged)
				assert.True(t, q.HasAttachment)
			},
		},
		{
			name:       "date range",
			input:      "after:2024-01-01 before:2024-02-01 invoice",
			structured: true,
			check: func(t *testing.T, q *Query) {
				require.NotNil(t, q.After)
				require.NotNil(t, q.Before)
				assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *q.After)
				assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), *q.Before)
				assert.Equal(t, []string{"invoice"}, q.Terms)
			},
		},
		{
			name:  "unknown key is free text",
			input: "re:meeting",
			check: func(t *testing.T, q *Query) {
				assert.Equal(t, []string{"re:meeting"}, q.Terms)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := ParseQuery(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.structured, q.Structured())
			tt.check(t, q)
		})
	}
}

func TestParseQueryRejectsBadValues(t *testing.T) {
	for _, input := range []string{"after:yesterday", "before:2024-13-01", "is:sleepy", "has:pets"} {
		_, err := ParseQuery(input)
		assert.ErrorIs(t, err, types.ErrInvalidQuery, input)
	}
}

func TestSearchUnreadInFolder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acc := seedAccount(t, s, "u@x.com")
	folder := seedFolder(t, s, acc.ID, "INBOX")
	other := seedFolder(t, s, acc.ID, "Archive")

	for i := 0; i < 5; i++ {
		draft := draftFor(folder, fmt.Sprint(i), time.Duration(i)*time.Hour)
		draft.Flags.IsRead = i != 1 && i != 3
		seedMessage(t, s, draft)
	}
	seedMessage(t, s, draftFor(other, "elsewhere", 10*time.Hour))

	results, err := s.Search(ctx, "is:unread", &folder.ID, 50)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "3", results[0].UID)
	assert.Equal(t, "1", results[1].UID)

	all, err := s.Search(ctx, "is:unread", nil, 50)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSearchFiltersAndFreeText(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acc := seedAccount(t, s, "u@x.com")
	folder := seedFolder(t, s, acc.ID, "INBOX")

	invoice := draftFor(folder, "inv", 0)
	invoice.Subject = "Invoice March"
	invoice.Sender = "billing@vendor.com"
	invoice.Attachments = []types.AttachmentDraft{{Filename: "march.pdf"}}
	seedMessage(t, s, invoice)

	lunch := draftFor(folder, "lunch", 48*time.Hour)
	lunch.Subject = "Lunch?"
	lunch.Sender = "carol@example.com"
	lunch.Recipients = []string{"team@example.com"}
	lunch.BodyText = "100% free pizza"
	seedMessage(t, s, lunch)

	tests := []struct {
		query string
		uids  []string
	}{
		{`subject:"invoice march"`, []string{"inv"}},
		{"from:vendor", []string{"inv"}},
		{"has:attachment", []string{"inv"}},
		{"to:team@", []string{"lunch"}},
		{"after:2024-03-02", []string{"lunch"}},
		{"before:2024-03-02", []string{"inv"}},
		{"pizza", []string{"lunch"}},
		{"team@example.com", []string{"lunch"}},
		{"100%", []string{"lunch"}},
		{"from:carol pizza", []string{"lunch"}},
		{"from:carol invoice", nil},
		{"example.com", []string{"lunch", "inv"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			results, err := s.Search(ctx, tt.query, nil, 0)
			require.NoError(t, err)
			var uids []string
			for _, m := range results {
				uids = append(uids, m.UID)
			}
			assert.Equal(t, tt.uids, uids)
		})
	}
}

func TestSearchBlankQueryReturnsEmpty(t *testing.T) {
	s := newTestStore(t)

	results, err := s.Search(context.Background(), "   ", nil, 10)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)

	_, err = s.Search(context.Background(), "after:someday", nil, 10)
	assert.ErrorIs(t, err, types.ErrInvalidQuery)
}
