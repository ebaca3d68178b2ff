package tools

import (
	"context"
	"fmt"

	"github.com/brandon/mailsync/pkg/types"
)

// ListAccountsTool lists linked accounts. Credentials are never returned.
type ListAccountsTool struct{ deps }

func (t *ListAccountsTool) Name() string { return "list_accounts" }

func (t *ListAccountsTool) Description() string {
	return "List linked email accounts"
}

func (t *ListAccountsTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{})
}

func (t *ListAccountsTool) Execute(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	return t.store.ListAccounts(ctx)
}

// AddAccountTool links a new account
type AddAccountTool struct{ deps }

func (t *AddAccountTool) Name() string { return "add_account" }

func (t *AddAccountTool) Description() string {
	return "Link a new email account (rest-api for Gmail, imap-capable for IMAP/SMTP providers)"
}

func (t *AddAccountTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"display_name":  prop("string", "Optional: Display name, defaults to the email address"),
		"email_address": prop("string", "Account email address"),
		"provider":      prop("string", "rest-api or imap-capable"),
		"access_token":  prop("string", "Optional: OAuth access token (rest-api)"),
		"refresh_token": prop("string", "Optional: OAuth refresh token (rest-api)"),
		"password":      prop("string", "Optional: Password or app password (imap-capable)"),
		"imap_host":     prop("string", "Optional: IMAP host (imap-capable)"),
		"imap_port":     prop("integer", "Optional: IMAP port, default 993"),
		"smtp_host":     prop("string", "Optional: SMTP host (imap-capable)"),
		"smtp_port":     prop("integer", "Optional: SMTP port, default 587"),
	}, "email_address", "provider")
}

func (t *AddAccountTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	emailAddress, err := requireString(params, "email_address")
	if err != nil {
		return nil, err
	}

	provider := types.Provider(optionalString(params, "provider"))
	if !provider.Valid() {
		return nil, invalid("provider must be rest-api or imap-capable")
	}

	imapPort, err := optionalInt(params, "imap_port", 993)
	if err != nil {
		return nil, err
	}
	smtpPort, err := optionalInt(params, "smtp_port", 587)
	if err != nil {
		return nil, err
	}

	draft := types.AccountDraft{
		DisplayName:  optionalString(params, "display_name"),
		EmailAddress: emailAddress,
		Provider:     provider,
		AccessToken:  optionalStringPtr(params, "access_token"),
		RefreshToken: optionalStringPtr(params, "refresh_token"),
		Password:     optionalStringPtr(params, "password"),
		IMAPHost:     optionalString(params, "imap_host"),
		IMAPPort:     imapPort,
		SMTPHost:     optionalString(params, "smtp_host"),
		SMTPPort:     smtpPort,
	}
	if draft.DisplayName == "" {
		draft.DisplayName = emailAddress
	}
	if provider == types.ProviderIMAP && draft.IMAPHost == "" {
		return nil, invalid("imap_host is required for imap-capable accounts")
	}

	account, err := t.store.AddAccount(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("failed to add account: %w", err)
	}
	return account, nil
}

// UpdateAccountTool changes an account's settings; omitted fields keep their values
type UpdateAccountTool struct{ deps }

func (t *UpdateAccountTool) Name() string { return "update_account" }

func (t *UpdateAccountTool) Description() string {
	return "Update an account's settings or credentials"
}

func (t *UpdateAccountTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"account_id":    prop("integer", "Account id"),
		"display_name":  prop("string", "Optional: New display name"),
		"email_address": prop("string", "Optional: New email address"),
		"provider":      prop("string", "Optional: rest-api or imap-capable"),
		"access_token":  prop("string", "Optional: New OAuth access token"),
		"refresh_token": prop("string", "Optional: New OAuth refresh token"),
		"password":      prop("string", "Optional: New password"),
		"imap_host":     prop("string", "Optional: IMAP host"),
		"imap_port":     prop("integer", "Optional: IMAP port"),
		"smtp_host":     prop("string", "Optional: SMTP host"),
		"smtp_port":     prop("integer", "Optional: SMTP port"),
	}, "account_id")
}

func (t *UpdateAccountTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	id, err := requireID(params, "account_id")
	if err != nil {
		return nil, err
	}

	account, err := t.store.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	if v := optionalString(params, "display_name"); v != "" {
		account.DisplayName = v
	}
	if v := optionalString(params, "email_address"); v != "" {
		account.EmailAddress = v
	}
	if v := optionalString(params, "provider"); v != "" {
		account.Provider = types.Provider(v)
		if !account.Provider.Valid() {
			return nil, invalid("provider must be rest-api or imap-capable")
		}
	}
	if v := optionalStringPtr(params, "access_token"); v != nil {
		account.AccessToken = v
	}
	if v := optionalStringPtr(params, "refresh_token"); v != nil {
		account.RefreshToken = v
	}
	if v := optionalStringPtr(params, "password"); v != nil {
		account.Password = v
	}
	if v := optionalString(params, "imap_host"); v != "" {
		account.IMAPHost = v
	}
	if account.IMAPPort, err = optionalInt(params, "imap_port", account.IMAPPort); err != nil {
		return nil, err
	}
	if v := optionalString(params, "smtp_host"); v != "" {
		account.SMTPHost = v
	}
	if account.SMTPPort, err = optionalInt(params, "smtp_port", account.SMTPPort); err != nil {
		return nil, err
	}

	updated, err := t.store.UpdateAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}
	return updated, nil
}

// DeleteAccountTool removes an account and everything stored for it
type DeleteAccountTool struct{ deps }

func (t *DeleteAccountTool) Name() string { return "delete_account" }

func (t *DeleteAccountTool) Description() string {
	return "Delete an account with all its folders, messages and attachments"
}

func (t *DeleteAccountTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"account_id": prop("integer", "Account id"),
	}, "account_id")
}

func (t *DeleteAccountTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	id, err := requireID(params, "account_id")
	if err != nil {
		return nil, err
	}

	deleted, err := t.store.DeleteAccount(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete account: %w", err)
	}
	return map[string]interface{}{"deleted": deleted}, nil
}
