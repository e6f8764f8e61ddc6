package email

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/prasanthmj/composer/pkg/logger"
)

// IMAPConfig holds the mailbox used for Sent-folder copies. An empty Folder
// means the server's \Sent mailbox.
type IMAPConfig struct {
	Server   string
	Port     int
	Username string
	Password string
	Folder   string
	Timeout  time.Duration
}

// commonSentFolders are tried when the server does not mark a \Sent mailbox
var commonSentFolders = []string{"Sent", "[Gmail]/Sent Mail", "Sent Items", "Sent Messages"}

// SentArchiver appends a copy of every delivered message to the Sent folder
type SentArchiver struct {
	config IMAPConfig
	from   string
	log    *slog.Logger
}

// NewSentArchiver creates a new archiver
func NewSentArchiver(cfg IMAPConfig, from string, log *slog.Logger) *SentArchiver {
	return &SentArchiver{config: cfg, from: from, log: logger.OrDiscard(log)}
}

// connect establishes a connection to the IMAP server
func (a *SentArchiver) connect() (*client.Client, error) {
	addr := fmt.Sprintf("%s:%d", a.config.Server, a.config.Port)

	c, err := client.DialTLS(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to email server: %w", err)
	}
	if a.config.Timeout > 0 {
		c.Timeout = a.config.Timeout
	}

	if err := c.Login(a.config.Username, a.config.Password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("authentication failed")
	}
	return c, nil
}

// Archive stores msg, marked as seen, in the Sent folder
func (a *SentArchiver) Archive(ctx context.Context, msg Message, sentAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := BuildMIME(a.from, msg, sentAt)
	if err != nil {
		return err
	}

	c, err := a.connect()
	if err != nil {
		return err
	}
	defer c.Logout()

	folder, err := a.sentFolder(c)
	if err != nil {
		return err
	}
	if err := c.Append(folder, []string{imap.SeenFlag}, sentAt, bytes.NewBuffer(raw)); err != nil {
		return fmt.Errorf("failed to append to %s: %w", folder, err)
	}

	a.log.Debug("archived sent message", slog.String("folder", folder), logger.Recipient(msg.To))
	return nil
}

// sentFolder resolves the configured folder or discovers the Sent mailbox
func (a *SentArchiver) sentFolder(c *client.Client) (string, error) {
	if a.config.Folder != "" {
		return a.config.Folder, nil
	}

	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.List("", "*", mailboxes)
	}()

	var boxes []*imap.MailboxInfo
	for m := range mailboxes {
		boxes = append(boxes, m)
	}
	if err := <-done; err != nil {
		return "", fmt.Errorf("failed to list folders: %w", err)
	}
	return pickSentFolder(boxes), nil
}

func pickSentFolder(boxes []*imap.MailboxInfo) string {
	for _, m := range boxes {
		if slices.Contains(m.Attributes, imap.SentAttr) {
			return m.Name
		}
	}
	for _, name := range commonSentFolders {
		for _, m := range boxes {
			if m.Name == name {
				return m.Name
			}
		}
	}
	return commonSentFolders[0]
}
