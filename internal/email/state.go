package email

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// SyncState is where an account's sync currently stands
type SyncState string

const (
	StateIdle        SyncState = "idle"
	StateDiscovering SyncState = "discovering_folders"
	StateFetching    SyncState = "fetching_folder"
	StateNormalizing SyncState = "normalizing"
	StateRecomputing SyncState = "recomputing_counts"
	StateFailed      SyncState = "failed"
)

// SyncState reports the last recorded state for accountID
func (m *Manager) SyncState(accountID int64) SyncState {
	m.mu.Lock()
	defer m.mu.Unlock()

	if state, ok := m.states[accountID]; ok {
		return state
	}
	return StateIdle
}

func (m *Manager) setState(accountID int64, state SyncState) {
	m.mu.Lock()
	prev := m.states[accountID]
	m.states[accountID] = state
	m.mu.Unlock()

	if prev != state {
		m.logger.WithFields(logrus.Fields{
			"account": accountID,
			"from":    prev,
			"to":      state,
		}).Debug("Sync state changed")
	}
}

// SyncResult counts what one sync call did
type SyncResult struct {
	AccountID     int64 `json:"account_id"`
	Folders       int   `json:"folders"`
	FailedFolders int   `json:"failed_folders"`
	Fetched       int   `json:"fetched"`
	Created       int   `json:"created"`
	Skipped       int   `json:"skipped"`
	Failed        int   `json:"failed"`
}

func (r *SyncResult) add(other *SyncResult) {
	if other == nil {
		return
	}
	r.Fetched += other.Fetched
	r.Created += other.Created
	r.Skipped += other.Skipped
	r.Failed += other.Failed
}

// SyncError summarizes a sync-all run in which some folders failed.
// Messages written before the failure are kept.
type SyncError struct {
	AccountID int64
	Failed    int
	Total     int
	Cause     error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync of account %d failed for %d of %d folders: %v", e.AccountID, e.Failed, e.Total, e.Cause)
}

func (e *SyncError) Unwrap() error {
	return e.Cause
}

// IsSyncError reports whether err carries a *SyncError
func IsSyncError(err error) bool {
	var syncErr *SyncError
	return errors.As(err, &syncErr)
}
