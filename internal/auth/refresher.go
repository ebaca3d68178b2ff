// Package auth exchanges stored refresh tokens for fresh access tokens.
package auth

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"

	"github.com/brandon/mailsync/pkg/types"
)

// DefaultScopes are the scopes requested when an account is linked.
var DefaultScopes = []string{
	gmail.GmailReadonlyScope,
	gmail.GmailSendScope,
}

// TokenWriter persists refreshed credentials onto the owning account
type TokenWriter interface {
	UpdateAccountTokens(ctx context.Context, id int64, accessToken string, refreshToken *string) error
}

// Refresher performs refresh-token grants against an OAuth token endpoint
type Refresher struct {
	config *oauth2.Config
	tokens TokenWriter
	logger *logrus.Logger
}

// NewRefresher creates a refresher. An empty tokenURL uses Google's endpoint.
func NewRefresher(clientID, clientSecret, tokenURL string, tokens TokenWriter, logger *logrus.Logger) *Refresher {
	endpoint := google.Endpoint
	if tokenURL != "" {
		endpoint.TokenURL = tokenURL
	}
	// Fixed auth style: autodetection would retry a failed exchange with the other style.
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	return &Refresher{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoint,
			Scopes:       DefaultScopes,
		},
		tokens: tokens,
		logger: logger,
	}
}

// Refresh makes exactly one refresh-token exchange for the account, persists the
// result and returns the new access token. Any failure is ErrAuthFailed.
func (r *Refresher) Refresh(ctx context.Context, account *types.Account) (string, error) {
	if account.RefreshToken == nil || *account.RefreshToken == "" {
		return "", fmt.Errorf("account %d has no refresh token: %w", account.ID, types.ErrAuthFailed)
	}

	// An empty access token forces the token source to hit the endpoint.
	src := r.config.TokenSource(ctx, &oauth2.Token{RefreshToken: *account.RefreshToken})
	token, err := src.Token()
	if err != nil {
		r.logger.WithError(err).WithField("account_id", account.ID).Warn("Token refresh failed")
		return "", fmt.Errorf("failed to refresh token: %v: %w", err, types.ErrAuthFailed)
	}

	var rotated *string
	if token.RefreshToken != "" && token.RefreshToken != *account.RefreshToken {
		rotated = &token.RefreshToken
	}

	if err := r.tokens.UpdateAccountTokens(ctx, account.ID, token.AccessToken, rotated); err != nil {
		return "", fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	access := token.AccessToken
	account.AccessToken = &access
	if rotated != nil {
		account.RefreshToken = rotated
	}

	r.logger.WithField("account_id", account.ID).Info("Access token refreshed")
	return token.AccessToken, nil
}
