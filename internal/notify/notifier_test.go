package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	events []Event
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, event Event) error {
	r.events = append(r.events, event)
	return r.err
}

func TestLogNotifier(t *testing.T) {
	logger, hook := test.NewNullLogger()
	n := NewLogNotifier(logger)

	folder := int64(7)
	require.NoError(t, n.Notify(context.Background(), Event{
		Kind:      KindSyncFolder,
		AccountID: 3,
		FolderID:  &folder,
		Status:    StatusCompleted,
		At:        time.Now(),
	}))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, KindSyncFolder, entry.Data["event"])
	assert.Equal(t, int64(7), entry.Data["folder"])

	require.NoError(t, n.Notify(context.Background(), Event{
		Kind:      KindSyncAllFolders,
		AccountID: 3,
		Status:    StatusFailed,
		Error:     "boom",
	}))
	entry = hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "boom", entry.Data["error"])
	assert.NotContains(t, entry.Data, "folder")
}

func TestMultiDeliversToAllAndJoinsErrors(t *testing.T) {
	first := &recordingNotifier{err: errors.New("first down")}
	second := &recordingNotifier{}

	err := Multi{first, second}.Notify(context.Background(), Event{Kind: KindRefreshFolders, AccountID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first down")
	assert.Len(t, first.events, 1)
	assert.Len(t, second.events, 1)
}

func TestSubjectAndMsgID(t *testing.T) {
	assert.Equal(t, "mail.sync.42", Subject(42))

	at := time.Unix(0, 1000)
	folder := int64(5)
	a := MsgID(Event{Kind: KindSyncFolder, AccountID: 42, FolderID: &folder, At: at})
	b := MsgID(Event{Kind: KindSyncFolder, AccountID: 42, FolderID: &folder, At: at})
	c := MsgID(Event{Kind: KindSyncFolder, AccountID: 42, At: at})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
