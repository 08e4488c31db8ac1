package notify

import (
	"context"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"

	"github.com/middlemark/middlemark/internal/config"
)

// Message is a rendered notification ready for delivery.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers a single message to one recipient.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer builds the configured mail transport (smtp or noop).
func NewMailer(cfg config.Config, logger *zap.Logger) Mailer {
	if !cfg.Mail.Enabled {
		if logger != nil {
			logger.Info("mail disabled; using noop mailer")
		}
		return noopMailer{}
	}
	return &smtpMailer{
		dialer: gomail.NewDialer(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.Username, cfg.Mail.Password),
		from:   cfg.Mail.From,
	}
}

type noopMailer struct{}

func (noopMailer) Send(context.Context, Message) error { return nil }

// smtpMailer sends mail through gomail. gomail has no context support, so
// delivery runs in a goroutine and the caller's deadline is honored here.
type smtpMailer struct {
	dialer *gomail.Dialer
	from   string
}

func (m *smtpMailer) Send(ctx context.Context, msg Message) error {
	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Body)

	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(gm) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
