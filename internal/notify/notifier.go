// Package notify publishes sync completion events.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// Kind names the operation an event reports on
type Kind string

const (
	KindSyncFolder     Kind = "sync_folder"
	KindSyncAllFolders Kind = "sync_all_folders"
	KindRefreshFolders Kind = "refresh_folders"
)

// Status is the outcome of the operation
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Event reports the completion of a sync operation
type Event struct {
	Kind      Kind        `json:"kind"`
	AccountID int64       `json:"account_id"`
	FolderID  *int64      `json:"folder_id,omitempty"`
	Status    Status      `json:"status"`
	Error     string      `json:"error,omitempty"`
	Result    interface{} `json:"result,omitempty"`
	At        time.Time   `json:"at"`
}

// Notifier delivers events
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// LogNotifier writes events to a logger
type LogNotifier struct {
	logger *logrus.Logger
}

// NewLogNotifier creates a notifier that logs every event
func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the event at info level, or warn when it failed
func (n *LogNotifier) Notify(_ context.Context, event Event) error {
	entry := n.logger.WithFields(logrus.Fields{
		"event":   event.Kind,
		"account": event.AccountID,
		"status":  event.Status,
	})
	if event.FolderID != nil {
		entry = entry.WithField("folder", *event.FolderID)
	}

	if event.Status == StatusFailed {
		entry.WithField("error", event.Error).Warn("Sync event")
		return nil
	}
	entry.Info("Sync event")
	return nil
}

// Multi fans an event out to several notifiers
type Multi []Notifier

// Notify delivers to every notifier and joins their errors
func (m Multi) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
