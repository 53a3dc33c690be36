package email

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v3"
	"github.com/rs/zerolog/log"
)

// Message represents an email to send
type Message struct {
	To          string
	ToName      string
	Subject     string
	HTMLContent string
}

// Sender delivers rendered messages.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// Config holds email delivery configuration
type Config struct {
	ResendAPIKey string
	From         string
}

// NewSender returns a Resend sender, or a sender that only logs when no API
// key is configured.
func NewSender(cfg Config) Sender {
	if cfg.ResendAPIKey == "" {
		return LogSender{}
	}
	return &ResendSender{client: resend.NewClient(cfg.ResendAPIKey), from: cfg.From}
}

// ResendSender sends emails through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

func (s *ResendSender) Send(ctx context.Context, msg *Message) error {
	to := msg.To
	if msg.ToName != "" {
		to = fmt.Sprintf("%s <%s>", msg.ToName, msg.To)
	}
	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: msg.Subject,
		Html:    msg.HTMLContent,
	})
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	log.Debug().Str("to", msg.To).Str("email_id", sent.Id).Msg("email sent")
	return nil
}

// LogSender logs instead of sending. Used in development.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg *Message) error {
	log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("email delivery disabled, message logged")
	return nil
}
