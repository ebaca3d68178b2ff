package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// subjectPrefix is followed by the account id
const subjectPrefix = "mail.sync"

// NATSNotifier publishes events to a JetStream stream
type NATSNotifier struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	stream string
	logger *logrus.Logger
}

// NewNATSNotifier connects to url and ensures stream exists
func NewNATSNotifier(url, stream string, logger *logrus.Logger) (*NATSNotifier, error) {
	nc, err := nats.Connect(url, nats.Name("mailsync"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	n := &NATSNotifier{nc: nc, js: js, stream: stream, logger: logger}
	if err := n.ensureStream(); err != nil {
		nc.Close()
		return nil, err
	}

	return n, nil
}

func (n *NATSNotifier) ensureStream() error {
	if info, err := n.js.StreamInfo(n.stream); err == nil && info != nil {
		return nil
	}

	_, err := n.js.AddStream(&nats.StreamConfig{
		Name:       n.stream,
		Subjects:   []string{subjectPrefix + ".>"},
		Storage:    nats.FileStorage,
		Retention:  nats.LimitsPolicy,
		Duplicates: 10 * time.Minute,
		MaxAge:     7 * 24 * time.Hour,
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// Subject returns the subject events for accountID are published on
func Subject(accountID int64) string {
	return fmt.Sprintf("%s.%d", subjectPrefix, accountID)
}

// MsgID is the dedupe id for an event; a retried publish of the same event is dropped
func MsgID(event Event) string {
	folder := int64(0)
	if event.FolderID != nil {
		folder = *event.FolderID
	}
	return fmt.Sprintf("%s-%d-%d-%d", event.Kind, event.AccountID, folder, event.At.UnixNano())
}

// Notify publishes the event as JSON
func (n *NATSNotifier) Notify(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := n.js.Publish(Subject(event.AccountID), payload, nats.MsgId(MsgID(event)), nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	n.logger.WithField("subject", Subject(event.AccountID)).Debug("Published sync event")
	return nil
}

// Close drains and closes the connection
func (n *NATSNotifier) Close() {
	if n.nc != nil {
		n.nc.Close()
	}
}
