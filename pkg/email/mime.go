package email

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"
)

// BuildMIME renders msg as an RFC 5322 message with a text and an HTML
// alternative. It is used for the dev outbox and for Sent-folder copies.
func BuildMIME(from string, msg Message, date time.Time) ([]byte, error) {
	msg = msg.WithTextBody()

	var h mail.Header
	h.SetDate(date)
	h.SetSubject(msg.Subject)
	h.SetMessageID(uuid.NewString() + "@composer")
	h.SetAddressList("From", []*mail.Address{{Address: from}})
	h.SetAddressList("To", []*mail.Address{{Address: msg.To}})

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	iw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("failed to create message body: %w", err)
	}

	parts := []struct {
		contentType string
		body        string
	}{
		{"text/plain", msg.TextBody},
		{"text/html", msg.HTMLBody},
	}
	for _, p := range parts {
		if p.body == "" {
			continue
		}
		var ph mail.InlineHeader
		ph.SetContentType(p.contentType, map[string]string{"charset": "utf-8"})
		w, err := iw.CreatePart(ph)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s part: %w", p.contentType, err)
		}
		if _, err := io.WriteString(w, p.body); err != nil {
			return nil, fmt.Errorf("failed to write %s part: %w", p.contentType, err)
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	}

	if err := iw.Close(); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseMIME reads a message written by BuildMIME back into a Message.
func ParseMIME(raw []byte) (Message, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return Message{}, fmt.Errorf("failed to read message: %w", err)
	}
	defer mr.Close()

	var msg Message
	if msg.Subject, err = mr.Header.Subject(); err != nil {
		return Message{}, fmt.Errorf("failed to read subject: %w", err)
	}
	if to, err := mr.Header.AddressList("To"); err == nil && len(to) > 0 {
		msg.To = to[0].Address
	}

	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Message{}, fmt.Errorf("failed to read part: %w", err)
		}
		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		b, err := io.ReadAll(p.Body)
		if err != nil {
			return Message{}, fmt.Errorf("failed to read part: %w", err)
		}
		ct, _, _ := h.ContentType()
		switch ct {
		case "text/html":
			msg.HTMLBody = string(b)
		case "text/plain":
			msg.TextBody = string(b)
		}
	}
	return msg, nil
}
