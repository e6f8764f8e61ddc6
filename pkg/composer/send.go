package composer

import (
	"context"
	"log/slog"
	"strings"

	"github.com/prasanthmj/composer/pkg/email"
	"github.com/prasanthmj/composer/pkg/formatting"
	"github.com/prasanthmj/composer/pkg/logger"
	"github.com/prasanthmj/composer/pkg/recipients"
	"github.com/prasanthmj/composer/pkg/sentlog"
	"github.com/prasanthmj/composer/pkg/validation"
)

func validateState(st State) error {
	return validation.ValidateComposition(st.Recipients.Validation(), st.Subject, st.Message)
}

// Send validates the composition and hands it to the sender, one call per
// to address. cc and bcc cannot be carried by the single-recipient
// operation; they are reported in NotTransmitted and in the result warning.
//
// On success the form is cleared after the reset delay. On failure the
// fields are kept and the error is stored as the last result.
func (c *Composer) Send(ctx context.Context) (SendReport, error) {
	c.mu.Lock()
	if c.state.Sending {
		c.mu.Unlock()
		return SendReport{}, ErrSendInProgress
	}
	st := c.snapshot()
	if err := validateState(st); err != nil {
		c.state.LastResult = &Result{Error: err.Error()}
		c.mu.Unlock()
		c.log.DebugContext(ctx, "composition rejected", logger.Error(err))
		return SendReport{}, err
	}
	exp, err := recipients.ExportForSending(st.Recipients)
	if err != nil {
		c.state.LastResult = &Result{Error: err.Error()}
		c.mu.Unlock()
		return SendReport{}, err
	}
	if c.resetTimer != nil {
		c.resetTimer.Stop()
		c.resetTimer = nil
	}
	c.state.Sending = true
	c.state.LastResult = nil
	c.mu.Unlock()

	report, sendErr := c.deliver(ctx, st, exp)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Sending = false
	if sendErr != nil {
		c.state.LastResult = &Result{Error: sendErr.Error()}
		return report, sendErr
	}

	res := &Result{Success: true}
	if len(report.NotTransmitted) > 0 {
		res.Warning = "not sent to cc/bcc recipients: " + strings.Join(report.NotTransmitted, ", ")
	}
	c.state.LastResult = res
	c.resetTimer = c.afterFunc(c.resetDelay, c.resetAfterSend)
	return report, nil
}

func (c *Composer) deliver(ctx context.Context, st State, exp recipients.Export) (SendReport, error) {
	start := c.now()
	targets := append([]string{exp.Primary}, exp.Additional...)

	var report SendReport
	report.NotTransmitted = append(append(report.NotTransmitted, exp.CC...), exp.BCC...)
	if len(report.NotTransmitted) > 0 {
		c.log.WarnContext(ctx, "cc/bcc recipients are not transmitted",
			slog.Any("addresses", report.NotTransmitted))
	}

	body := formatting.ConvertToHTML(st.Message)
	for i, to := range targets {
		msg := email.Message{To: to, Subject: st.Subject, HTMLBody: body}

		sendCtx, cancel := context.WithTimeout(ctx, c.sendTimeout)
		err := c.sender.Send(sendCtx, msg)
		cancel()

		if id, ok := c.record(ctx, msg, err); ok {
			report.RecordIDs = append(report.RecordIDs, id)
		}

		if err != nil {
			c.log.ErrorContext(ctx, "send failed", logger.Recipient(to), logger.Error(err))
			if len(report.Sent) == 0 {
				return report, err
			}
			return report, &PartialSendError{
				Sent:      report.Sent,
				Failed:    to,
				Remaining: targets[i+1:],
				Err:       err,
			}
		}

		report.Sent = append(report.Sent, to)
		c.archive(ctx, msg)
	}

	c.log.InfoContext(ctx, "email sent",
		logger.Count("recipients", len(report.Sent)),
		logger.Elapsed(start))
	return report, nil
}

// record writes the attempt to the sent log. Failures to record are logged
// and do not fail the send.
func (c *Composer) record(ctx context.Context, msg email.Message, sendErr error) (string, bool) {
	if c.sentLog == nil {
		return "", false
	}
	r := sentlog.Record{
		ID:        c.newID(),
		Recipient: msg.To,
		Subject:   msg.Subject,
		SentAt:    c.now(),
		Status:    sentlog.StatusPending,
	}
	if sendErr != nil {
		r.Status = sentlog.StatusFailed
		r.Error = sendErr.Error()
	}
	if err := c.sentLog.Insert(ctx, r); err != nil {
		c.log.WarnContext(ctx, "failed to record sent email", logger.Recipient(msg.To), logger.Error(err))
		return "", false
	}
	return r.ID, true
}

func (c *Composer) archive(ctx context.Context, msg email.Message) {
	if c.archiver == nil {
		return
	}
	if err := c.archiver.Archive(ctx, msg, c.now()); err != nil {
		c.log.WarnContext(ctx, "failed to archive sent email", logger.Recipient(msg.To), logger.Error(err))
	}
}

func (c *Composer) resetAfterSend() {
	c.log.Debug("clearing form after send", logger.Duration(c.resetDelay))
	c.Clear()
}

// SentHistory returns the most recent sent records, newest first.
func (c *Composer) SentHistory(ctx context.Context, limit int) ([]sentlog.Record, error) {
	if c.sentLog == nil {
		return nil, nil
	}
	return c.sentLog.List(ctx, limit)
}

var _ Archiver = (*email.SentArchiver)(nil)
