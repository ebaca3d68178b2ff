package types

import "time"

// Provider selects the remote fetch strategy for an account
type Provider string

const (
	// ProviderREST is a label-based REST API provider (Gmail)
	ProviderREST Provider = "rest-api"
	// ProviderIMAP is any provider reachable over IMAP/SMTP
	ProviderIMAP Provider = "imap-capable"
)

// Valid reports whether p is a known provider
func (p Provider) Valid() bool {
	return p == ProviderREST || p == ProviderIMAP
}

// Account represents a linked mailbox identity
type Account struct {
	ID           int64     `json:"id"`
	DisplayName  string    `json:"display_name"`
	EmailAddress string    `json:"email_address"`
	Provider     Provider  `json:"provider"`
	AccessToken  *string   `json:"-"`
	RefreshToken *string   `json:"-"`
	Password     *string   `json:"-"`
	IMAPHost     string    `json:"imap_host,omitempty"`
	IMAPPort     int       `json:"imap_port,omitempty"`
	SMTPHost     string    `json:"smtp_host,omitempty"`
	SMTPPort     int       `json:"smtp_port,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasCredentials reports whether any secret is stored for the account
func (a *Account) HasCredentials() bool {
	return a.AccessToken != nil || a.RefreshToken != nil || a.Password != nil
}

// AccountDraft is the input for creating an account
type AccountDraft struct {
	DisplayName  string   `json:"display_name"`
	EmailAddress string   `json:"email_address"`
	Provider     Provider `json:"provider"`
	AccessToken  *string  `json:"access_token,omitempty"`
	RefreshToken *string  `json:"refresh_token,omitempty"`
	Password     *string  `json:"password,omitempty"`
	IMAPHost     string   `json:"imap_host,omitempty"`
	IMAPPort     int      `json:"imap_port,omitempty"`
	SMTPHost     string   `json:"smtp_host,omitempty"`
	SMTPPort     int      `json:"smtp_port,omitempty"`
}
