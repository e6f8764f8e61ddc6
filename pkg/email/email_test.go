package email

import (
	"context"
	"crypto/tls"
	"errors"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/jordan-wright/email"
	"github.com/mrz1836/postmark"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageValidate(t *testing.T) {
	assert.NoError(t, Message{To: "a@b.co", Subject: "Hi", HTMLBody: "<b>x</b>"}.Validate())

	err := Message{}.Validate()
	require.ErrorIs(t, err, ErrInvalidMessage)
	assert.Contains(t, err.Error(), "recipient is required")
	assert.Contains(t, err.Error(), "subject is required")
	assert.Contains(t, err.Error(), "email body is required")
}

func TestNewSMTPSenderValidatesConfig(t *testing.T) {
	_, err := NewSMTPSender(SMTPConfig{Port: 587, From: "me@x.com"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewSMTPSender(SMTPConfig{Host: "smtp.x.com", Port: 0, From: "me@x.com"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewSMTPSender(SMTPConfig{Host: "smtp.x.com", Port: 587})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSMTPSenderSend(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{Host: "smtp.x.com", Port: 587, Username: "me", Password: "pw", From: "me@x.com"})
	require.NoError(t, err)

	var gotAddr string
	var got *email.Email
	s.send = func(e *email.Email, addr string, _ smtp.Auth, cfg *tls.Config) error {
		gotAddr, got = addr, e
		assert.Equal(t, "smtp.x.com", cfg.ServerName)
		return nil
	}

	msg := Message{To: "you@y.com", Subject: "Hello", HTMLBody: "<strong>Hi</strong>"}
	require.NoError(t, s.Send(context.Background(), msg))
	assert.Equal(t, "smtp.x.com:587", gotAddr)
	assert.Equal(t, []string{"you@y.com"}, got.To)
	assert.Equal(t, "me@x.com", got.From)
	assert.Equal(t, "<strong>Hi</strong>", string(got.HTML))
	assert.Equal(t, "Hi", string(got.Text))

	s.send = func(*email.Email, string, smtp.Auth, *tls.Config) error { return errors.New("550 rejected") }
	err = s.Send(context.Background(), msg)
	assert.ErrorIs(t, err, ErrFailedToSendEmail)
	assert.Contains(t, err.Error(), "550 rejected")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, msg), context.Canceled)
}

type fakePostmark struct {
	sent []postmark.Email
	resp postmark.EmailResponse
	err  error
}

func (f *fakePostmark) SendEmail(_ context.Context, e postmark.Email) (postmark.EmailResponse, error) {
	f.sent = append(f.sent, e)
	return f.resp, f.err
}

func TestPostmarkSender(t *testing.T) {
	_, err := NewPostmarkSender(PostmarkConfig{AccountToken: "a", From: "me@x.com"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	p, err := NewPostmarkSender(PostmarkConfig{ServerToken: "s", AccountToken: "a", From: "me@x.com", Tag: "composer"})
	require.NoError(t, err)
	fake := &fakePostmark{}
	p.client = fake

	require.NoError(t, p.Send(context.Background(), Message{To: "you@y.com", Subject: "S", HTMLBody: "<p>body</p>"}))
	require.Len(t, fake.sent, 1)
	assert.Equal(t, "you@y.com", fake.sent[0].To)
	assert.Equal(t, "me@x.com", fake.sent[0].From)
	assert.Equal(t, "composer", fake.sent[0].Tag)
	assert.Equal(t, "body", fake.sent[0].TextBody)

	fake.resp = postmark.EmailResponse{ErrorCode: 406, Message: "inactive recipient"}
	err = p.Send(context.Background(), Message{To: "you@y.com", Subject: "S", HTMLBody: "x"})
	assert.ErrorIs(t, err, ErrFailedToSendEmail)
	assert.Contains(t, err.Error(), "406")
}

func TestDevSenderWritesOutbox(t *testing.T) {
	dir := t.TempDir()
	d := NewDevSender(dir, "me@x.com")
	d.now = func() time.Time { return time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC) }

	msg := Message{To: "you@y.com", Subject: "Weekly update", HTMLBody: "<strong>Hi</strong> there"}
	require.NoError(t, d.Send(context.Background(), msg))

	emls, err := filepath.Glob(filepath.Join(dir, "*.eml"))
	require.NoError(t, err)
	require.Len(t, emls, 1)
	assert.True(t, strings.HasSuffix(emls[0], "you_at_y.com_weekly_update.eml"), emls[0])

	raw, err := os.ReadFile(emls[0])
	require.NoError(t, err)
	got, err := ParseMIME(raw)
	require.NoError(t, err)
	assert.Equal(t, "you@y.com", got.To)
	assert.Equal(t, "Weekly update", got.Subject)
	assert.Equal(t, msg.HTMLBody, got.HTMLBody)
	assert.Contains(t, got.TextBody, "Hi")

	meta, err := os.ReadFile(strings.TrimSuffix(emls[0], ".eml") + ".json")
	require.NoError(t, err)
	assert.Contains(t, string(meta), `"send_to": "you@y.com"`)

	assert.ErrorIs(t, d.Send(context.Background(), Message{To: "you@y.com"}), ErrInvalidMessage)
}

func TestPickSentFolder(t *testing.T) {
	assert.Equal(t, "Outbox/Done", pickSentFolder([]*imap.MailboxInfo{
		{Name: "INBOX"},
		{Name: "Sent"},
		{Name: "Outbox/Done", Attributes: []string{imap.SentAttr}},
	}))
	assert.Equal(t, "[Gmail]/Sent Mail", pickSentFolder([]*imap.MailboxInfo{
		{Name: "INBOX"},
		{Name: "[Gmail]/Sent Mail"},
	}))
	assert.Equal(t, "Sent", pickSentFolder(nil))
}

func TestConvertHTMLToText(t *testing.T) {
	text, err := ConvertHTMLToText("")
	require.NoError(t, err)
	assert.Empty(t, text)

	text, err = ConvertHTMLToText("<strong>Hi</strong><br><br><br><br>there &amp; back")
	require.NoError(t, err)
	assert.Contains(t, text, "Hi")
	assert.Contains(t, text, "there & back")
	assert.NotContains(t, text, "\n\n\n")
	assert.NotContains(t, text, "<strong>")
}
