package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
)

// SMTPConfig holds the SMTP relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender delivers messages through an SMTP relay with STARTTLS
type SMTPSender struct {
	config SMTPConfig
	send   func(e *email.Email, addr string, a smtp.Auth, t *tls.Config) error
}

// NewSMTPSender creates a new SMTP sender
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: SMTP host is required", ErrInvalidConfig)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("%w: SMTP port must be between 1 and 65535", ErrInvalidConfig)
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("%w: sender address is required", ErrInvalidConfig)
	}
	return &SMTPSender{
		config: cfg,
		send: func(e *email.Email, addr string, a smtp.Auth, t *tls.Config) error {
			return e.SendWithStartTLS(addr, a, t)
		},
	}, nil
}

// Build assembles the outgoing email for msg
func (sc *SMTPSender) Build(msg Message) *email.Email {
	e := email.NewEmail()
	e.From = sc.config.From
	e.To = []string{msg.To}
	e.Subject = msg.Subject

	if msg.TextBody != "" {
		e.Text = []byte(msg.TextBody)
	}
	if msg.HTMLBody != "" {
		e.HTML = []byte(msg.HTMLBody)
	}
	return e
}

// Send sends msg to its single recipient
func (sc *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	if err := msg.Validate(); err != nil {
		return err
	}

	e := sc.Build(msg.WithTextBody())
	addr := fmt.Sprintf("%s:%d", sc.config.Host, sc.config.Port)

	var auth smtp.Auth
	if sc.config.Username != "" {
		auth = smtp.PlainAuth("", sc.config.Username, sc.config.Password, sc.config.Host)
	}

	// jordan-wright/email has no context support, so the call runs aside and
	// a cancelled context stops the wait, not the transfer
	done := make(chan error, 1)
	go func() {
		done <- sc.send(e, addr, auth, &tls.Config{ServerName: sc.config.Host})
	}()

	select {
	case err := <-done:
		if err != nil {
			return errors.Join(ErrFailedToSendEmail, err)
		}
		return nil
	case <-ctx.Done():
		return errors.Join(ErrFailedToSendEmail, ctx.Err())
	}
}
