package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mailsync/pkg/types"
)

// SMTPSender submits composed mail for IMAP-capable accounts
type SMTPSender struct {
	timeout time.Duration
	logger  *logrus.Logger
}

// NewSMTPSender creates a sender whose dials time out after timeout
func NewSMTPSender(timeout time.Duration, logger *logrus.Logger) *SMTPSender {
	return &SMTPSender{timeout: timeout, logger: logger}
}

// Send delivers draft from account. Port 465 uses implicit TLS; other ports upgrade
// with STARTTLS when the server offers it.
func (s *SMTPSender) Send(ctx context.Context, account *types.Account, draft *types.ComposeDraft) error {
	msg, err := composeMessage(account, draft)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	host := account.SMTPHost
	addr := net.JoinHostPort(host, strconv.Itoa(account.SMTPPort))
	tlsConfig := &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}

	dialer := &net.Dialer{Timeout: s.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: failed to connect to SMTP server: %w", types.ErrRemoteUnavailable, err)
	}
	if account.SMTPPort == 465 {
		conn = tls.Client(conn, tlsConfig)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("%w: failed to create SMTP client: %w", types.ErrRemoteUnavailable, err)
	}
	defer client.Close()

	if account.SMTPPort != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("%w: failed to start TLS: %w", types.ErrRemoteUnavailable, err)
			}
		}
	}

	if account.Password != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", account.EmailAddress, *account.Password, host)
			if err := client.Auth(auth); err != nil {
				return fmt.Errorf("%w: failed to authenticate: %w", types.ErrAuthFailed, err)
			}
		}
	}

	if err := client.Mail(account.EmailAddress); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	recipients, err := parseAddresses(draft.Recipients())
	if err != nil {
		return err
	}
	for _, to := range recipients {
		if err := client.Rcpt(to.Address); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", to.Address, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to send data command: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"account":    account.EmailAddress,
		"recipients": len(recipients),
	}).Info("Sent message")

	return client.Quit()
}
