package email

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrFailedToSendEmail = errors.New("failed to send email")
	ErrInvalidConfig     = errors.New("invalid email configuration")
	ErrInvalidMessage    = errors.New("invalid email message")
)

// Message is what the composer hands to the send operation: exactly one
// recipient, a subject and the delivery HTML.
type Message struct {
	To       string `yaml:"to" json:"to"`
	Subject  string `yaml:"subject" json:"subject"`
	HTMLBody string `yaml:"html_body" json:"html_body"`
	TextBody string `yaml:"text_body,omitempty" json:"text_body,omitempty"`
}

// Validate checks the fields every sender needs.
func (m Message) Validate() error {
	var errs []error
	if strings.TrimSpace(m.To) == "" {
		errs = append(errs, fmt.Errorf("%w: recipient is required", ErrInvalidMessage))
	}
	if strings.TrimSpace(m.Subject) == "" {
		errs = append(errs, fmt.Errorf("%w: subject is required", ErrInvalidMessage))
	}
	if m.HTMLBody == "" && m.TextBody == "" {
		errs = append(errs, fmt.Errorf("%w: email body is required", ErrInvalidMessage))
	}
	return errors.Join(errs...)
}

// WithTextBody fills TextBody from the HTML when it is empty.
func (m Message) WithTextBody() Message {
	if m.TextBody == "" && m.HTMLBody != "" {
		m.TextBody, _ = ConvertHTMLToText(m.HTMLBody)
	}
	return m
}

// Sender is the external single-recipient send operation.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }
