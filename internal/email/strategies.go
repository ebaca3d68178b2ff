package email

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"github.com/brandon/mailsync/pkg/types"
)

// StrategyOptions configures the built-in provider strategies
type StrategyOptions struct {
	Refresher    TokenRefresher
	GmailOptions []option.ClientOption
	DialTimeout  time.Duration
	Logger       *logrus.Logger
}

// NewStrategies returns the strategy registry for the REST and IMAP providers
func NewStrategies(opts StrategyOptions) map[types.Provider]Strategy {
	gmail := func(account *types.Account) *GmailClient {
		return NewGmailClient(account, opts.Refresher, opts.Logger, opts.GmailOptions...)
	}
	smtp := NewSMTPSender(opts.DialTimeout, opts.Logger)

	return map[types.Provider]Strategy{
		types.ProviderREST: {
			NewFetcher: func(_ context.Context, account *types.Account) (Fetcher, error) {
				return gmail(account), nil
			},
			Send: func(ctx context.Context, account *types.Account, draft *types.ComposeDraft) error {
				return gmail(account).Send(ctx, draft)
			},
		},
		types.ProviderIMAP: {
			NewFetcher: func(ctx context.Context, account *types.Account) (Fetcher, error) {
				return DialIMAP(ctx, account, opts.DialTimeout, opts.Logger)
			},
			Send: smtp.Send,
		},
	}
}
