package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runJetStream(t *testing.T) string {
	t.Helper()
	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	opts.JetStream = true
	opts.StoreDir = t.TempDir()

	srv := natsserver.RunServer(&opts)
	t.Cleanup(srv.Shutdown)
	return srv.ClientURL()
}

func TestNATSNotifierPublishesAndDedupes(t *testing.T) {
	url := runJetStream(t)
	logger, _ := test.NewNullLogger()

	n, err := NewNATSNotifier(url, "MAIL_EVENTS", logger)
	require.NoError(t, err)
	t.Cleanup(n.Close)

	info, err := n.js.StreamInfo("MAIL_EVENTS")
	require.NoError(t, err)
	assert.Equal(t, []string{"mail.sync.>"}, info.Config.Subjects)

	ctx := context.Background()
	folder := int64(3)
	event := Event{
		Kind:      KindSyncFolder,
		AccountID: 7,
		FolderID:  &folder,
		Status:    StatusCompleted,
		At:        time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	require.NoError(t, n.Notify(ctx, event))
	require.NoError(t, n.Notify(ctx, event))

	info, err = n.js.StreamInfo("MAIL_EVENTS")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.State.Msgs)

	raw, err := n.js.GetLastMsg("MAIL_EVENTS", Subject(7))
	require.NoError(t, err)
	assert.Equal(t, MsgID(event), raw.Header.Get(nats.MsgIdHdr))

	var got Event
	require.NoError(t, json.Unmarshal(raw.Data, &got))
	assert.Equal(t, KindSyncFolder, got.Kind)
	assert.Equal(t, int64(7), got.AccountID)
	require.NotNil(t, got.FolderID)
	assert.Equal(t, folder, *got.FolderID)
	assert.Equal(t, StatusCompleted, got.Status)

	later := event
	later.At = event.At.Add(time.Second)
	require.NoError(t, n.Notify(ctx, later))

	info, err = n.js.StreamInfo("MAIL_EVENTS")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), info.State.Msgs)
}

func TestNATSNotifierReusesExistingStream(t *testing.T) {
	url := runJetStream(t)
	logger, _ := test.NewNullLogger()

	first, err := NewNATSNotifier(url, "MAIL_EVENTS", logger)
	require.NoError(t, err)
	t.Cleanup(first.Close)
	require.NoError(t, first.Notify(context.Background(), Event{Kind: KindRefreshFolders, AccountID: 1, At: time.Unix(1, 0)}))

	second, err := NewNATSNotifier(url, "MAIL_EVENTS", logger)
	require.NoError(t, err)
	t.Cleanup(second.Close)

	info, err := second.js.StreamInfo("MAIL_EVENTS")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.State.Msgs)
}

func TestNewNATSNotifierUnreachable(t *testing.T) {
	logger, _ := test.NewNullLogger()
	_, err := NewNATSNotifier("nats://127.0.0.1:1", "MAIL_EVENTS", logger)
	assert.ErrorContains(t, err, "failed to connect to NATS")
}
