package email

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DevSender writes every message to an outbox directory instead of
// delivering it: a .eml file plus a .json file with the metadata.
type DevSender struct {
	dir  string
	from string
	now  func() time.Time
}

func NewDevSender(dir, from string) *DevSender {
	if from == "" {
		from = "composer@localhost"
	}
	return &DevSender{dir: dir, from: from, now: time.Now}
}

type outboxMetadata struct {
	Timestamp string `json:"timestamp"`
	SendTo    string `json:"send_to"`
	Subject   string `json:"subject"`
	File      string `json:"file"`
}

func (d *DevSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return fmt.Errorf("%w: failed to create outbox: %v", ErrFailedToSendEmail, err)
	}

	now := d.now()
	raw, err := BuildMIME(d.from, msg, now)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToSendEmail, err)
	}

	base := fmt.Sprintf("%s_%s_%s", now.Format("2006_01_02_150405.000"), sanitizeFilename(msg.To), sanitizeFilename(msg.Subject))
	emlPath := filepath.Join(d.dir, base+".eml")
	if err := os.WriteFile(emlPath, raw, 0644); err != nil {
		return fmt.Errorf("%w: failed to write message: %v", ErrFailedToSendEmail, err)
	}

	meta, err := json.MarshalIndent(outboxMetadata{
		Timestamp: now.Format(time.RFC3339),
		SendTo:    msg.To,
		Subject:   msg.Subject,
		File:      filepath.Base(emlPath),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to marshal metadata: %v", ErrFailedToSendEmail, err)
	}
	if err := os.WriteFile(filepath.Join(d.dir, base+".json"), meta, 0644); err != nil {
		return fmt.Errorf("%w: failed to write metadata: %v", ErrFailedToSendEmail, err)
	}
	return nil
}

var unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "@", "_at_")
	s = unsafeFilename.ReplaceAllString(s, "")
	if len(s) > 60 {
		s = s[:60]
	}
	if s == "" {
		s = "email"
	}
	return strings.ToLower(s)
}
