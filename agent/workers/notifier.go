package workers

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/chative-task-router/agent/contract"
	"github.com/tanpawarit/chative-task-router/pkg/mailer"
	"github.com/tanpawarit/chative-task-router/pkg/qstash"
)

const (
	sentFormat   = "Email successfully sent to %s"
	failedFormat = "Failed to send email: %s"
)

// Notifier drafts an email from the conversation and dispatches it. The
// dispatch is a side effect outside the session: a mail that went out stays
// sent even if the turn fails afterwards.
type Notifier struct {
	composer         contractx.MailComposer
	transport        contractx.MailTransport
	defaultRecipient string
}

func NewNotifier(composer contractx.MailComposer, transport contractx.MailTransport, defaultRecipient string) *Notifier {
	return &Notifier{
		composer:         composer,
		transport:        transport,
		defaultRecipient: strings.TrimSpace(defaultRecipient),
	}
}

// Invoke reports the dispatch outcome as text. Only composition failures
// surface as errors.
func (w *Notifier) Invoke(ctx context.Context, req contractx.WorkerRequest) (contractx.WorkerResult, error) {
	mail, err := w.composer.Compose(ctx, req)
	if err != nil {
		return contractx.WorkerResult{}, err
	}
	if mail.To == "" {
		mail.To = w.defaultRecipient
	}
	if mail.To == "" {
		return contractx.TextResult(fmt.Sprintf(failedFormat, "no recipient address"), nil), nil
	}

	if err := w.transport.Send(ctx, mail); err != nil {
		log.Warn().Err(err).Str("to", mail.To).Msg("notification dispatch failed")
		return contractx.TextResult(fmt.Sprintf(failedFormat, err), nil), nil
	}
	log.Info().Str("to", mail.To).Str("subject", mail.Subject).Msg("notification sent")
	return contractx.TextResult(fmt.Sprintf(sentFormat, mail.To), nil), nil
}

// SMTPTransport sends mail directly over SMTP.
type SMTPTransport struct {
	client *mailer.Client
}

var _ contractx.MailTransport = (*SMTPTransport)(nil)

func NewSMTPTransport(client *mailer.Client) *SMTPTransport {
	return &SMTPTransport{client: client}
}

func (t *SMTPTransport) Send(ctx context.Context, mail contractx.Mail) error {
	return t.client.Send(ctx, mail.To, mail.Subject, mail.Body)
}

// QStashTransport queues the mail as JSON for a webhook that delivers it.
type QStashTransport struct {
	client      *qstash.Client
	destination string
}

var _ contractx.MailTransport = (*QStashTransport)(nil)

func NewQStashTransport(client *qstash.Client, destination string) *QStashTransport {
	return &QStashTransport{client: client, destination: strings.TrimSpace(destination)}
}

func (t *QStashTransport) Send(ctx context.Context, mail contractx.Mail) error {
	id, err := t.client.Publish(ctx, t.destination, mail)
	if err != nil {
		return err
	}
	log.Debug().Str("message_id", id).Str("to", mail.To).Msg("notification queued")
	return nil
}

// LogTransport only logs the mail. It backs local runs without a mail relay.
type LogTransport struct{}

var _ contractx.MailTransport = LogTransport{}

func (LogTransport) Send(ctx context.Context, mail contractx.Mail) error {
	log.Info().Str("to", mail.To).Str("subject", mail.Subject).Str("body", mail.Body).Msg("notification (log transport)")
	return nil
}
