package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/brandon/mailsync/pkg/types"
)

// Config holds the application configuration
type Config struct {
	// Store settings
	DatabasePath      string `env:"DATABASE_PATH" envDefault:"./data/mailsync.db"`
	SearchResultLimit int    `env:"SEARCH_RESULT_LIMIT" envDefault:"100"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"` // "json" or "text"

	// Sync
	SyncPageSize    int           `env:"SYNC_PAGE_SIZE" envDefault:"100"`
	SyncConcurrency int           `env:"SYNC_CONCURRENCY" envDefault:"1"`
	IMAPDialTimeout time.Duration `env:"IMAP_DIAL_TIMEOUT" envDefault:"30s"`

	// OAuth / REST provider
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	OAuthTokenURL      string `env:"OAUTH_TOKEN_URL"`
	GmailEndpoint      string `env:"GMAIL_ENDPOINT"`

	// Notifications (optional)
	NATSURL    string `env:"NATS_URL"`
	NATSStream string `env:"NATS_STREAM" envDefault:"MAIL_EVENTS"`

	// Seed accounts, added to the store at startup
	Accounts []AccountConfig `env:"-"`
}

// AccountConfig holds a seed account read from ACCOUNT_* or ACCOUNT_n_* variables
type AccountConfig struct {
	Name         string `env:"NAME"`
	Email        string `env:"EMAIL,required"`
	Provider     string `env:"PROVIDER" envDefault:"imap-capable"`
	Password     string `env:"PASSWORD"`
	AccessToken  string `env:"ACCESS_TOKEN"`
	RefreshToken string `env:"REFRESH_TOKEN"`

	IMAPHost string `env:"IMAP_HOST"`
	IMAPPort int    `env:"IMAP_PORT" envDefault:"993"`
	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort int    `env:"SMTP_PORT" envDefault:"587"`
}

// LoadConfig loads configuration from environment variables and an optional .env file
func LoadConfig() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	accounts, err := loadAccounts()
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	cfg.Accounts = accounts

	return cfg, nil
}

// loadAccounts loads seed accounts. A single ACCOUNT_EMAIL takes precedence over
// the numbered ACCOUNT_1_*, ACCOUNT_2_*, ... scheme.
func loadAccounts() ([]AccountConfig, error) {
	if os.Getenv("ACCOUNT_EMAIL") != "" {
		account, err := loadAccount("ACCOUNT_")
		if err != nil {
			return nil, err
		}
		return []AccountConfig{*account}, nil
	}

	var accounts []AccountConfig
	for num := 1; ; num++ {
		prefix := fmt.Sprintf("ACCOUNT_%d_", num)
		if os.Getenv(prefix+"EMAIL") == "" {
			break // No more accounts
		}
		account, err := loadAccount(prefix)
		if err != nil {
			return nil, fmt.Errorf("account %d: %w", num, err)
		}
		accounts = append(accounts, *account)
	}

	return accounts, nil
}

func loadAccount(prefix string) (*AccountConfig, error) {
	account := &AccountConfig{}
	if err := env.ParseWithOptions(account, env.Options{Prefix: prefix}); err != nil {
		return nil, err
	}
	if account.Name == "" {
		account.Name = account.Email
	}
	return account, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}

	if c.SearchResultLimit < 1 || c.SearchResultLimit > 1000 {
		return fmt.Errorf("SEARCH_RESULT_LIMIT must be between 1 and 1000")
	}

	if c.SyncPageSize < 1 || c.SyncPageSize > 500 {
		return fmt.Errorf("SYNC_PAGE_SIZE must be between 1 and 500")
	}

	if c.SyncConcurrency < 1 || c.SyncConcurrency > 16 {
		return fmt.Errorf("SYNC_CONCURRENCY must be between 1 and 16")
	}

	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("LOG_FORMAT must be json or text")
	}

	for i := range c.Accounts {
		if err := c.Accounts[i].Validate(); err != nil {
			return err
		}
	}

	return nil
}

// Validate validates a single seed account
func (a *AccountConfig) Validate() error {
	provider := types.Provider(a.Provider)
	if !provider.Valid() {
		return fmt.Errorf("account %s: unknown PROVIDER %q", a.Name, a.Provider)
	}

	if provider == types.ProviderREST {
		if a.AccessToken == "" && a.RefreshToken == "" {
			return fmt.Errorf("account %s: ACCESS_TOKEN or REFRESH_TOKEN is required", a.Name)
		}
		return nil
	}

	if a.IMAPHost == "" {
		return fmt.Errorf("account %s: IMAP_HOST is required", a.Name)
	}
	if a.SMTPHost == "" {
		return fmt.Errorf("account %s: SMTP_HOST is required", a.Name)
	}
	if a.IMAPPort < 1 || a.IMAPPort > 65535 {
		return fmt.Errorf("account %s: invalid IMAP_PORT", a.Name)
	}
	if a.SMTPPort < 1 || a.SMTPPort > 65535 {
		return fmt.Errorf("account %s: invalid SMTP_PORT", a.Name)
	}

	return nil
}

// Draft converts the seed account into a store draft
func (a *AccountConfig) Draft() types.AccountDraft {
	return types.AccountDraft{
		DisplayName:  a.Name,
		EmailAddress: a.Email,
		Provider:     types.Provider(a.Provider),
		AccessToken:  optional(a.AccessToken),
		RefreshToken: optional(a.RefreshToken),
		Password:     optional(a.Password),
		IMAPHost:     a.IMAPHost,
		IMAPPort:     a.IMAPPort,
		SMTPHost:     a.SMTPHost,
		SMTPPort:     a.SMTPPort,
	}
}

// OAuthConfigured reports whether refresh-token exchange is possible
func (c *Config) OAuthConfigured() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
