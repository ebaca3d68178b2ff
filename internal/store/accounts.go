package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/brandon/mailsync/pkg/types"
)

type accountRow struct {
	ID           int64          `db:"id"`
	DisplayName  string         `db:"display_name"`
	EmailAddress string         `db:"email_address"`
	Provider     string         `db:"provider"`
	AccessToken  sql.NullString `db:"access_token"`
	RefreshToken sql.NullString `db:"refresh_token"`
	Password     sql.NullString `db:"password"`
	IMAPHost     string         `db:"imap_host"`
	IMAPPort     int            `db:"imap_port"`
	SMTPHost     string         `db:"smtp_host"`
	SMTPPort     int            `db:"smtp_port"`
	CreatedAt    int64          `db:"created_at"`
	UpdatedAt    int64          `db:"updated_at"`
}

func (r *accountRow) toAccount() *types.Account {
	return &types.Account{
		ID:           r.ID,
		DisplayName:  r.DisplayName,
		EmailAddress: r.EmailAddress,
		Provider:     types.Provider(r.Provider),
		AccessToken:  fromNullString(r.AccessToken),
		RefreshToken: fromNullString(r.RefreshToken),
		Password:     fromNullString(r.Password),
		IMAPHost:     r.IMAPHost,
		IMAPPort:     r.IMAPPort,
		SMTPHost:     r.SMTPHost,
		SMTPPort:     r.SMTPPort,
		CreatedAt:    fromMillis(r.CreatedAt),
		UpdatedAt:    fromMillis(r.UpdatedAt),
	}
}

const accountColumns = `id, display_name, email_address, provider, access_token, refresh_token, password,
	imap_host, imap_port, smtp_host, smtp_port, created_at, updated_at`

// AddAccount inserts a new account. A duplicate email address is ErrConflict.
func (s *Store) AddAccount(ctx context.Context, draft types.AccountDraft) (*types.Account, error) {
	if draft.EmailAddress == "" {
		return nil, fmt.Errorf("email address is required")
	}
	if !draft.Provider.Valid() {
		return nil, fmt.Errorf("unknown provider %q", draft.Provider)
	}

	var id int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var exists int
		if err := tx.GetContext(ctx, &exists, "SELECT COUNT(*) FROM accounts WHERE email_address = ?", draft.EmailAddress); err != nil {
			return fmt.Errorf("failed to check account: %w", err)
		}
		if exists > 0 {
			return fmt.Errorf("account %s: %w", draft.EmailAddress, types.ErrConflict)
		}

		ts := now()
		result, err := tx.ExecContext(ctx, `
			INSERT INTO accounts (display_name, email_address, provider, access_token, refresh_token, password,
				imap_host, imap_port, smtp_host, smtp_port, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, draft.DisplayName, draft.EmailAddress, string(draft.Provider),
			toNullString(draft.AccessToken), toNullString(draft.RefreshToken), toNullString(draft.Password),
			draft.IMAPHost, draft.IMAPPort, draft.SMTPHost, draft.SMTPPort, ts, ts)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("account %s: %w", draft.EmailAddress, types.ErrConflict)
			}
			return fmt.Errorf("failed to insert account: %w", err)
		}

		id, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithField("account_id", id).Debug("Account added")
	return s.GetAccount(ctx, id)
}

// GetAccount returns an account by id
func (s *Store) GetAccount(ctx context.Context, id int64) (*types.Account, error) {
	var row accountRow
	err := s.db.GetContext(ctx, &row, "SELECT "+accountColumns+" FROM accounts WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %d: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return row.toAccount(), nil
}

// ListAccounts returns every account ordered by id
func (s *Store) ListAccounts(ctx context.Context) ([]*types.Account, error) {
	var rows []accountRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT "+accountColumns+" FROM accounts ORDER BY id"); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	accounts := make([]*types.Account, len(rows))
	for i := range rows {
		accounts[i] = rows[i].toAccount()
	}
	return accounts, nil
}

// UpdateAccount overwrites the mutable fields of an existing account
func (s *Store) UpdateAccount(ctx context.Context, account *types.Account) (*types.Account, error) {
	if !account.Provider.Valid() {
		return nil, fmt.Errorf("unknown provider %q", account.Provider)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET
			display_name = ?, email_address = ?, provider = ?,
			access_token = ?, refresh_token = ?, password = ?,
			imap_host = ?, imap_port = ?, smtp_host = ?, smtp_port = ?,
			updated_at = ?
		WHERE id = ?
	`, account.DisplayName, account.EmailAddress, string(account.Provider),
		toNullString(account.AccessToken), toNullString(account.RefreshToken), toNullString(account.Password),
		account.IMAPHost, account.IMAPPort, account.SMTPHost, account.SMTPPort,
		now(), account.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("account %s: %w", account.EmailAddress, types.ErrConflict)
		}
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("account %d: %w", account.ID, types.ErrNotFound)
	}

	return s.GetAccount(ctx, account.ID)
}

// UpdateAccountTokens writes refreshed credentials. A nil refresh token leaves the stored one in place.
func (s *Store) UpdateAccountTokens(ctx context.Context, id int64, accessToken string, refreshToken *string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET
			access_token = ?,
			refresh_token = COALESCE(?, refresh_token),
			updated_at = ?
		WHERE id = ?
	`, accessToken, toNullString(refreshToken), now(), id)
	if err != nil {
		return fmt.Errorf("failed to update account tokens: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("account %d: %w", id, types.ErrNotFound)
	}
	return nil
}

// DeleteAccount removes the account with its attachments, messages and folders in one
// transaction. It reports whether the account row existed.
func (s *Store) DeleteAccount(ctx context.Context, id int64) (bool, error) {
	var existed bool
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		steps := []struct {
			what  string
			query string
		}{
			{"attachments", "DELETE FROM attachments WHERE message_id IN (SELECT id FROM messages WHERE account_id = ?)"},
			{"messages", "DELETE FROM messages WHERE account_id = ?"},
			{"folders", "DELETE FROM folders WHERE account_id = ?"},
		}
		for _, step := range steps {
			if _, err := tx.ExecContext(ctx, step.query, id); err != nil {
				return fmt.Errorf("failed to delete %s: %w", step.what, err)
			}
		}

		result, err := tx.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to delete account: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		existed = n > 0
		return nil
	})
	if err != nil {
		return false, err
	}

	s.logger.WithFields(logrus.Fields{
		"account_id": id,
		"existed":    existed,
	}).Info("Account deleted")
	return existed, nil
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
