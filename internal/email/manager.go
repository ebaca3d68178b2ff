package email

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/brandon/mailsync/internal/config"
	"github.com/brandon/mailsync/internal/notify"
	"github.com/brandon/mailsync/internal/store"
	"github.com/brandon/mailsync/pkg/types"
)

// Manager orchestrates folder discovery, message fetch and sending across accounts
type Manager struct {
	store       *store.Store
	strategies  map[types.Provider]Strategy
	notifier    notify.Notifier
	pageSize    int
	concurrency int
	logger      *logrus.Logger

	mu     sync.Mutex
	states map[int64]SyncState
}

// NewManager creates a new sync manager
func NewManager(cfg *config.Config, st *store.Store, strategies map[types.Provider]Strategy, notifier notify.Notifier, logger *logrus.Logger) *Manager {
	concurrency := cfg.SyncConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}

	return &Manager{
		store:       st,
		strategies:  strategies,
		notifier:    notifier,
		pageSize:    cfg.SyncPageSize,
		concurrency: concurrency,
		logger:      logger,
		states:      make(map[int64]SyncState),
	}
}

func (m *Manager) strategy(account *types.Account) (Strategy, error) {
	s, ok := m.strategies[account.Provider]
	if !ok {
		return Strategy{}, fmt.Errorf("no strategy for provider %q", account.Provider)
	}
	return s, nil
}

// openFetcher opens a fetcher on a private copy of the account so token refreshes
// in concurrent fetchers do not share state
func (m *Manager) openFetcher(ctx context.Context, account *types.Account) (Fetcher, error) {
	s, err := m.strategy(account)
	if err != nil {
		return nil, err
	}

	acct := *account
	fetcher, err := s.NewFetcher(ctx, &acct)
	if err != nil {
		return nil, fmt.Errorf("failed to open fetcher: %w", err)
	}
	return fetcher, nil
}

// SyncFolder fetches one folder into the store and recomputes its counts
func (m *Manager) SyncFolder(ctx context.Context, accountID, folderID int64) (*SyncResult, error) {
	account, err := m.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	folder, err := m.store.GetFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder.AccountID != accountID {
		return nil, fmt.Errorf("folder %d does not belong to account %d: %w", folderID, accountID, types.ErrNotFound)
	}

	result := &SyncResult{AccountID: accountID, Folders: 1}

	fetcher, err := m.openFetcher(ctx, account)
	if err == nil {
		var folderResult *SyncResult
		folderResult, err = m.syncFolder(ctx, fetcher, account, folder, nil)
		result.add(folderResult)
		if closeErr := fetcher.Close(); closeErr != nil {
			m.logger.WithError(closeErr).Debug("Failed to close fetcher")
		}
	}

	if err != nil {
		result.FailedFolders = 1
		m.setState(accountID, StateFailed)
	} else {
		m.setState(accountID, StateIdle)
	}

	m.notify(ctx, notify.KindSyncFolder, accountID, &folderID, result, err)
	return result, err
}

// syncFolder streams a folder's messages into the store. Per-message parse failures
// are skipped and per-message store failures are counted; any other fetch error ends
// the folder. Counts are recomputed for whatever was written.
func (m *Manager) syncFolder(ctx context.Context, fetcher Fetcher, account *types.Account, folder *types.Folder, localFlags map[string]types.MessageFlags) (*SyncResult, error) {
	log := m.logger.WithFields(logrus.Fields{
		"account": account.ID,
		"folder":  folder.Path,
	})
	result := &SyncResult{AccountID: account.ID}

	m.setState(account.ID, StateFetching)

	var fetchErr error
	for remote, err := range fetcher.Messages(ctx, folder.Path, m.pageSize) {
		if err != nil {
			var itemErr *ItemError
			if errors.As(err, &itemErr) {
				result.Skipped++
				log.WithError(err).Warn("Skipping message")
				continue
			}
			fetchErr = err
			break
		}
		if err := ctx.Err(); err != nil {
			fetchErr = err
			break
		}

		result.Fetched++
		m.setState(account.ID, StateNormalizing)

		draft := normalize(account.ID, folder.ID, remote)
		if local, ok := localFlags[draft.UID]; ok {
			draft.Flags = draft.Flags.Merge(local)
		}

		_, created, err := m.store.AddMessage(ctx, draft)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				fetchErr = ctxErr
				break
			}
			result.Failed++
			log.WithError(err).WithField("uid", draft.UID).Warn("Failed to store message")
			continue
		}
		if created {
			result.Created++
		}
		m.setState(account.ID, StateFetching)
	}

	m.setState(account.ID, StateRecomputing)
	if err := m.store.RecomputeFolderCounts(context.WithoutCancel(ctx), folder.ID); err != nil {
		log.WithError(err).Error("Failed to recompute folder counts")
		if fetchErr == nil {
			fetchErr = err
		}
	}

	log.WithFields(logrus.Fields{
		"fetched": result.Fetched,
		"created": result.Created,
		"skipped": result.Skipped,
		"failed":  result.Failed,
	}).Info("Synced folder")

	if fetchErr != nil {
		return result, fmt.Errorf("failed to sync folder %s: %w", folder.Path, fetchErr)
	}
	return result, nil
}

// SyncAllFolders discovers folders and syncs each of them. REST accounts are resynced
// from scratch, keeping locally set flags. A failing folder does not stop the others
// unless authentication failed; the run then returns a *SyncError.
func (m *Manager) SyncAllFolders(ctx context.Context, accountID int64) (*SyncResult, error) {
	account, err := m.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	result, err := m.syncAll(ctx, account)
	if err != nil {
		m.setState(accountID, StateFailed)
	} else {
		m.setState(accountID, StateIdle)
	}

	m.notify(ctx, notify.KindSyncAllFolders, accountID, nil, result, err)
	return result, err
}

func (m *Manager) syncAll(ctx context.Context, account *types.Account) (*SyncResult, error) {
	result := &SyncResult{AccountID: account.ID}

	fetcher, err := m.openFetcher(ctx, account)
	if err != nil {
		return result, err
	}

	folders, err := m.discover(ctx, fetcher, account)
	if err != nil {
		fetcher.Close() //nolint:errcheck
		return result, err
	}
	result.Folders = len(folders)

	var localFlags map[string]types.MessageFlags
	if account.Provider == types.ProviderREST {
		if localFlags, err = m.store.MessageFlagsByUID(ctx, account.ID); err != nil {
			fetcher.Close() //nolint:errcheck
			return result, err
		}
		cleared, err := m.store.ClearAccountMessages(ctx, account.ID)
		if err != nil {
			fetcher.Close() //nolint:errcheck
			return result, err
		}
		m.logger.WithFields(logrus.Fields{
			"account": account.ID,
			"cleared": cleared,
		}).Info("Cleared messages for full resync")
	}

	pool := newFetcherPool(m, account, fetcher)
	defer pool.close()

	var (
		mu     sync.Mutex
		failed int
		cause  error
	)
	record := func(folderResult *SyncResult, err error) {
		mu.Lock()
		defer mu.Unlock()
		result.add(folderResult)
		if err != nil {
			failed++
			if cause == nil {
				cause = err
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for _, folder := range folders {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				record(nil, err)
				return nil
			}

			f, err := pool.acquire(gctx)
			if err != nil {
				record(nil, err)
				return nil
			}
			folderResult, err := m.syncFolder(gctx, f, account, folder, localFlags)
			pool.release(f)

			record(folderResult, err)
			if err != nil {
				m.logger.WithError(err).WithFields(logrus.Fields{
					"account": account.ID,
					"folder":  folder.Path,
				}).Warn("Failed to sync folder")
			}
			if errors.Is(err, types.ErrAuthFailed) {
				return err
			}
			return nil
		})
	}
	_ = g.Wait()

	// Folders not seen in this discovery may still hold stale counts.
	m.setState(account.ID, StateRecomputing)
	all, err := m.store.ListFolders(context.WithoutCancel(ctx), account.ID)
	if err != nil {
		return result, err
	}
	for _, folder := range all {
		if err := m.store.RecomputeFolderCounts(context.WithoutCancel(ctx), folder.ID); err != nil {
			m.logger.WithError(err).WithField("folder", folder.Path).Error("Failed to recompute folder counts")
		}
	}

	result.FailedFolders = failed
	if failed > 0 {
		return result, &SyncError{
			AccountID: account.ID,
			Failed:    failed,
			Total:     len(folders),
			Cause:     cause,
		}
	}
	return result, nil
}

// RefreshFolders runs folder discovery only
func (m *Manager) RefreshFolders(ctx context.Context, accountID int64) ([]*types.Folder, error) {
	account, err := m.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var folders []*types.Folder
	fetcher, err := m.openFetcher(ctx, account)
	if err == nil {
		folders, err = m.discover(ctx, fetcher, account)
		fetcher.Close() //nolint:errcheck
	}

	if err != nil {
		m.setState(accountID, StateFailed)
	} else {
		m.setState(accountID, StateIdle)
	}

	m.notify(ctx, notify.KindRefreshFolders, accountID, nil, map[string]int{"folders": len(folders)}, err)
	return folders, err
}

func (m *Manager) discover(ctx context.Context, fetcher Fetcher, account *types.Account) ([]*types.Folder, error) {
	m.setState(account.ID, StateDiscovering)

	remote, err := fetcher.DiscoverFolders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to discover folders: %w", err)
	}

	folders := make([]*types.Folder, 0, len(remote))
	for _, rf := range remote {
		folder, err := m.store.UpsertFolder(ctx, types.FolderDraft{
			AccountID: account.ID,
			Name:      rf.Name,
			Path:      rf.Path,
			Kind:      rf.Kind,
		})
		if err != nil {
			return nil, err
		}
		folders = append(folders, folder)
	}

	m.logger.WithFields(logrus.Fields{
		"account": account.ID,
		"folders": len(folders),
	}).Info("Discovered folders")

	return folders, nil
}

// SendMessage submits a draft through the account's provider
func (m *Manager) SendMessage(ctx context.Context, draft *types.ComposeDraft) (bool, error) {
	account, err := m.store.GetAccount(ctx, draft.AccountID)
	if err != nil {
		return false, err
	}

	s, err := m.strategy(account)
	if err != nil {
		return false, err
	}

	acct := *account
	if err := s.Send(ctx, &acct, draft); err != nil {
		return false, fmt.Errorf("failed to send message: %w", err)
	}
	return true, nil
}

func (m *Manager) notify(ctx context.Context, kind notify.Kind, accountID int64, folderID *int64, result interface{}, err error) {
	event := notify.Event{
		Kind:      kind,
		AccountID: accountID,
		FolderID:  folderID,
		Status:    notify.StatusCompleted,
		Result:    result,
		At:        time.Now().UTC(),
	}
	if err != nil {
		event.Status = notify.StatusFailed
		event.Error = err.Error()
	}

	if err := m.notifier.Notify(context.WithoutCancel(ctx), event); err != nil {
		m.logger.WithError(err).Warn("Failed to deliver sync notification")
	}
}

// normalize maps a fetched message to a store draft
func normalize(accountID, folderID int64, remote *RemoteMessage) types.MessageDraft {
	threadID := remote.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}
	date := remote.Date
	if date.IsZero() {
		date = time.Now()
	}

	return types.MessageDraft{
		AccountID:   accountID,
		FolderID:    folderID,
		UID:         remote.UID,
		ThreadID:    threadID,
		MessageID:   remote.MessageID,
		Subject:     remote.Subject,
		Sender:      remote.Sender,
		Recipients:  remote.Recipients,
		Cc:          remote.Cc,
		Bcc:         remote.Bcc,
		BodyText:    remote.BodyText,
		BodyHTML:    remote.BodyHTML,
		Date:        date.UTC(),
		Flags:       remote.Flags,
		SizeBytes:   remote.SizeBytes,
		Attachments: remote.Attachments,
	}
}

// fetcherPool hands out at most concurrency fetchers for one account, opening
// extra sessions on demand. A single IMAP session cannot serve two folders at once.
type fetcherPool struct {
	m       *Manager
	account *types.Account
	idle    chan Fetcher

	mu     sync.Mutex
	opened int
}

func newFetcherPool(m *Manager, account *types.Account, first Fetcher) *fetcherPool {
	p := &fetcherPool{
		m:       m,
		account: account,
		idle:    make(chan Fetcher, m.concurrency),
		opened:  1,
	}
	p.idle <- first
	return p
}

func (p *fetcherPool) acquire(ctx context.Context) (Fetcher, error) {
	select {
	case f := <-p.idle:
		return f, nil
	default:
	}

	p.mu.Lock()
	if p.opened < cap(p.idle) {
		p.opened++
		p.mu.Unlock()
		f, err := p.m.openFetcher(ctx, p.account)
		if err != nil {
			p.mu.Lock()
			p.opened--
			p.mu.Unlock()
			return nil, err
		}
		return f, nil
	}
	p.mu.Unlock()

	select {
	case f := <-p.idle:
		return f, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *fetcherPool) release(f Fetcher) {
	p.idle <- f
}

func (p *fetcherPool) close() {
	close(p.idle)
	for f := range p.idle {
		if err := f.Close(); err != nil {
			p.m.logger.WithError(err).Debug("Failed to close fetcher")
		}
	}
}
