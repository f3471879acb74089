// Package notify delivers best-effort notifications. Delivery failures never
// roll back ledger state; callers log and move on, or rely on the dispatch
// layer's retry when the send happens inside a scheduled job.
package notify

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"

	"github.com/finledger/finledger/internal/domain"
)

// Mailer is the notification collaborator contract.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// ResendMailer sends email through the Resend API.
type ResendMailer struct {
	client *resend.Client
	from   string
	log    zerolog.Logger
}

// NewResendMailer creates a mailer with the given API key and sender address.
func NewResendMailer(apiKey, from string, log zerolog.Logger) *ResendMailer {
	return &ResendMailer{
		client: resend.NewClient(apiKey),
		from:   from,
		log:    log,
	}
}

// Send implements Mailer.
func (m *ResendMailer) Send(ctx context.Context, to, subject, body string) error {
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		Text:    body,
	}

	sent, err := m.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("%w: send email to %s: %v", domain.ErrUpstream, to, err)
	}

	m.log.Info().Str("to", to).Str("subject", subject).Str("email_id", sent.Id).Msg("Email sent")
	return nil
}

// LogMailer logs instead of sending. Used when no email API key is
// configured, typically in local development.
type LogMailer struct {
	log zerolog.Logger
}

// NewLogMailer creates a mailer that only logs.
func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

// Send implements Mailer.
func (m *LogMailer) Send(ctx context.Context, to, subject, body string) error {
	m.log.Info().Str("to", to).Str("subject", subject).Msg("Email delivery disabled, logging only")
	return nil
}

var _ Mailer = (*ResendMailer)(nil)
var _ Mailer = (*LogMailer)(nil)
