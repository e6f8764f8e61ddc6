// Package composer holds the state of one email composition and ties the
// recipient, formatting, template, editor and shortcut packages to the send
// operation.
package composer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prasanthmj/composer/pkg/editor"
	"github.com/prasanthmj/composer/pkg/email"
	"github.com/prasanthmj/composer/pkg/formatting"
	"github.com/prasanthmj/composer/pkg/logger"
	"github.com/prasanthmj/composer/pkg/recipients"
	"github.com/prasanthmj/composer/pkg/sentlog"
	"github.com/prasanthmj/composer/pkg/templates"
)

const (
	DefaultResetDelay  = 3 * time.Second
	DefaultSendTimeout = 30 * time.Second

	maxHistory = 100
)

var (
	ErrSendInProgress     = errors.New("a send is already in progress")
	ErrInvalidPriority    = errors.New("invalid priority")
	ErrNoTemplates        = errors.New("no template service configured")
	ErrNothingToUndo      = errors.New("nothing to undo")
	ErrNothingToRedo      = errors.New("nothing to redo")
	ErrEditorNotAttached  = errors.New("no editor attached")
	ErrInvalidSelection   = errors.New("invalid selection")
	ErrUnsupportedCommand = errors.New("unsupported command")
	ErrNoLinkPrompt       = errors.New("no link prompt configured")
)

// Priority of the outgoing message.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPriority, s)
}

// Result is the outcome of the last send attempt.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Warning string `json:"warning,omitempty"`
}

// State is a snapshot of the composition.
type State struct {
	Recipients     recipients.Set         `json:"recipients"`
	Subject        string                 `json:"subject"`
	Message        string                 `json:"message"`
	Priority       Priority               `json:"priority"`
	RequestReceipt bool                   `json:"request_receipt"`
	Confidential   bool                   `json:"confidential"`
	ScheduleTime   string                 `json:"schedule_time,omitempty"`
	ShowCC         bool                   `json:"show_cc"`
	ShowBCC        bool                   `json:"show_bcc"`
	Sending        bool                   `json:"sending"`
	LastResult     *Result                `json:"last_result,omitempty"`
	FormatState    formatting.FormatState `json:"format_state"`
	Selection      formatting.Selection   `json:"selection"`
	Focus          string                 `json:"focus,omitempty"`
}

func emptyState() State {
	return State{Priority: PriorityNormal}
}

// SendReport lists what one Send call did.
type SendReport struct {
	Sent           []string `json:"sent"`
	NotTransmitted []string `json:"not_transmitted,omitempty"`
	RecordIDs      []string `json:"record_ids,omitempty"`
}

// PartialSendError is returned when some to addresses were sent before a
// later send failed. Remaining holds the addresses not attempted.
type PartialSendError struct {
	Sent      []string
	Failed    string
	Remaining []string
	Err       error
}

func (e *PartialSendError) Error() string {
	return fmt.Sprintf("sent to %s but failed for %s: %v",
		strings.Join(e.Sent, ", "), e.Failed, e.Err)
}

func (e *PartialSendError) Unwrap() error { return e.Err }

// Archiver stores a copy of a delivered message, e.g. in an IMAP Sent folder.
type Archiver interface {
	Archive(ctx context.Context, msg email.Message, sentAt time.Time) error
}

// Timer is the handle of a scheduled reset.
type Timer interface {
	Stop() bool
}

// LinkPrompt supplies the url and text for the insert-link shortcut.
type LinkPrompt func() (url, text string, ok bool)

// Composer is safe for concurrent use. Editor access is serialized
// separately from state access; editMu is always taken before mu.
type Composer struct {
	sender      email.Sender
	sentLog     sentlog.Store
	archiver    Archiver
	recents     *recipients.RecentList
	templates   *templates.Service
	linkPrompt  LinkPrompt
	resetDelay  time.Duration
	sendTimeout time.Duration
	afterFunc   func(time.Duration, func()) Timer
	now         func() time.Time
	newID       func() string
	log         *slog.Logger

	editMu sync.Mutex
	editor *editor.Surface

	mu         sync.Mutex
	state      State
	resetTimer Timer
	history    []string
	future     []string
	restoring  bool
}

type Option func(*Composer)

func WithSentLog(store sentlog.Store) Option {
	return func(c *Composer) { c.sentLog = store }
}

func WithArchiver(a Archiver) Option {
	return func(c *Composer) { c.archiver = a }
}

func WithRecents(r *recipients.RecentList) Option {
	return func(c *Composer) { c.recents = r }
}

func WithTemplates(t *templates.Service) Option {
	return func(c *Composer) { c.templates = t }
}

func WithLinkPrompt(p LinkPrompt) Option {
	return func(c *Composer) { c.linkPrompt = p }
}

// WithResetDelay sets how long a successful result stays visible before the
// form is cleared.
func WithResetDelay(d time.Duration) Option {
	return func(c *Composer) { c.resetDelay = d }
}

// WithSendTimeout bounds each call to the sender.
func WithSendTimeout(d time.Duration) Option {
	return func(c *Composer) { c.sendTimeout = d }
}

// WithAfterFunc replaces time.AfterFunc for scheduling the reset.
func WithAfterFunc(fn func(time.Duration, func()) Timer) Option {
	return func(c *Composer) { c.afterFunc = fn }
}

func WithClock(now func() time.Time) Option {
	return func(c *Composer) { c.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(c *Composer) { c.newID = gen }
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Composer) { c.log = log }
}

// New creates an empty composer that delivers through sender.
func New(sender email.Sender, opts ...Option) *Composer {
	c := &Composer{
		sender:      sender,
		resetDelay:  DefaultResetDelay,
		sendTimeout: DefaultSendTimeout,
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
		now:   time.Now,
		newID: uuid.NewString,
		state: emptyState(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logger.OrDiscard(c.log).With(logger.Component("composer"))
	return c
}

// State returns a copy of the current state.
func (c *Composer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Composer) snapshot() State {
	st := c.state
	st.Recipients = c.state.Recipients.Clone()
	if c.state.LastResult != nil {
		r := *c.state.LastResult
		st.LastResult = &r
	}
	return st
}

// AddRecipient validates and adds an address. Duplicates are ignored.
func (c *Composer) AddRecipient(ctx context.Context, field recipients.Field, address string) error {
	c.mu.Lock()
	set, err := recipients.Add(c.state.Recipients, field, address)
	if err == nil {
		c.state.Recipients = set
	}
	c.mu.Unlock()

	if err != nil {
		return err
	}
	c.remember(ctx, address)
	return nil
}

func (c *Composer) remember(ctx context.Context, address string) {
	if c.recents == nil {
		return
	}
	if err := c.recents.Remember(ctx, address); err != nil {
		c.log.WarnContext(ctx, "failed to remember recipient", logger.Recipient(address), logger.Error(err))
	}
}

func (c *Composer) RemoveRecipient(field recipients.Field, address string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	set, err := recipients.Remove(c.state.Recipients, field, address)
	if err != nil {
		return err
	}
	c.state.Recipients = set
	return nil
}

// AddMultipleRecipients adds every valid address in raw and returns the
// skipped ones.
func (c *Composer) AddMultipleRecipients(ctx context.Context, field recipients.Field, raw string) []error {
	c.mu.Lock()
	before := c.state.Recipients
	set, skipped := recipients.AddMultiple(before, field, raw)
	c.state.Recipients = set
	c.mu.Unlock()

	for _, addr := range set.Get(field) {
		if !before.Contains(addr) {
			c.remember(ctx, addr)
		}
	}
	return skipped
}

func (c *Composer) MoveRecipient(address string, from, to recipients.Field) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	set, err := recipients.Move(c.state.Recipients, address, from, to)
	if err != nil {
		return err
	}
	c.state.Recipients = set
	return nil
}

// ClearRecipients empties the given fields, or all of them when none are given.
func (c *Composer) ClearRecipients(fields ...recipients.Field) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(fields) == 0 {
		c.state.Recipients = recipients.Set{}
		return nil
	}
	set := c.state.Recipients
	for _, f := range fields {
		var err error
		if set, err = recipients.ClearField(set, f); err != nil {
			return err
		}
	}
	c.state.Recipients = set
	return nil
}

// Suggestions returns address suggestions for the partial input.
func (c *Composer) Suggestions(ctx context.Context, input string) []recipients.Suggestion {
	if c.recents == nil {
		return nil
	}
	return c.recents.Suggestions(ctx, input)
}

func (c *Composer) SetSubject(subject string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Subject = subject
}

// SetMessage replaces the canonical message. With an editor attached the
// editor content is replaced as well.
func (c *Composer) SetMessage(text string) error {
	c.editMu.Lock()
	defer c.editMu.Unlock()

	if c.editor != nil && c.editor.Live() {
		return c.replaceEditor(text, false)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setMessage(text)
	c.state.Selection = formatting.Selection{Start: len(text), End: len(text)}
	c.refreshTextareaState()
	return nil
}

// setMessage records the previous text for undo. Callers hold mu.
func (c *Composer) setMessage(text string) {
	if text == c.state.Message {
		return
	}
	if !c.restoring {
		c.history = append(c.history, c.state.Message)
		if len(c.history) > maxHistory {
			c.history = c.history[len(c.history)-maxHistory:]
		}
		c.future = nil
	}
	c.state.Message = text
}

// replaceEditor pushes text into the attached editor. Callers hold editMu.
func (c *Composer) replaceEditor(text string, restoring bool) error {
	c.mu.Lock()
	c.restoring = restoring
	c.mu.Unlock()

	err := c.editor.ReplaceHTML(editor.CanonicalToHTML(text))

	c.mu.Lock()
	c.restoring = false
	c.mu.Unlock()
	return err
}

// Select sets the selection used when no editor is attached. Offsets are
// byte offsets into the canonical message.
func (c *Composer) Select(start, end int) error {
	c.editMu.Lock()
	defer c.editMu.Unlock()

	if c.editor != nil && c.editor.Live() {
		return c.editor.Select(start, end)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if start < 0 || end < start || end > len(c.state.Message) {
		return fmt.Errorf("%w: [%d, %d) in %d bytes", ErrInvalidSelection, start, end, len(c.state.Message))
	}
	c.state.Selection = formatting.Selection{Start: start, End: end}
	c.refreshTextareaState()
	return nil
}

// refreshTextareaState recomputes the format state with the marker
// heuristic. Callers hold mu.
func (c *Composer) refreshTextareaState() {
	ta := formatting.TextareaState{Text: c.state.Message, Caret: c.state.Selection.Start}
	c.state.FormatState = ta.FormatState()
}

// ApplyFormatting runs an editor command. Without an attached editor the
// command is applied to the canonical text at the current selection.
func (c *Composer) ApplyFormatting(cmd editor.Command, value, preview string) error {
	c.editMu.Lock()
	defer c.editMu.Unlock()

	if c.editor != nil && c.editor.Live() {
		return c.editor.ApplyFormatting(cmd, value, preview)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	text, sel := c.state.Message, c.state.Selection
	switch cmd {
	case editor.CmdBold, editor.CmdItalic, editor.CmdUnderline, editor.CmdStrikethrough:
		f, err := formatting.ParseFormat(string(cmd))
		if err != nil {
			return err
		}
		text, sel = formatting.ApplyFormat(text, sel, f)
	case editor.CmdInsertOrderedList, editor.CmdInsertUnorderedList:
		kind := formatting.BulletList
		if cmd == editor.CmdInsertOrderedList {
			kind = formatting.NumberedList
		}
		var caret int
		text, caret = formatting.InsertList(text, sel.Start, kind)
		sel = formatting.Selection{Start: caret, End: caret}
	case editor.CmdInsertLink:
		if value == "" {
			return editor.ErrEmptyURL
		}
		var caret int
		text, caret = formatting.InsertLink(text, sel.Start, value, preview)
		sel = formatting.Selection{Start: caret, End: caret}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedCommand, cmd)
	}

	c.setMessage(text)
	c.state.Selection = sel
	c.refreshTextareaState()
	return nil
}

// InsertList toggles a list on the selected lines.
func (c *Composer) InsertList(kind formatting.ListKind) error {
	cmd := editor.CmdInsertUnorderedList
	if kind == formatting.NumberedList {
		cmd = editor.CmdInsertOrderedList
	}
	return c.ApplyFormatting(cmd, "", "")
}

// InsertLink inserts a link at the selection. An empty text links the
// selection, or the url itself at a caret.
func (c *Composer) InsertLink(url, text string) error {
	return c.ApplyFormatting(editor.CmdInsertLink, url, text)
}

// Undo restores the message before the last change.
func (c *Composer) Undo() error {
	return c.travel(true)
}

// Redo reapplies a change reverted by Undo.
func (c *Composer) Redo() error {
	return c.travel(false)
}

func (c *Composer) travel(back bool) error {
	c.editMu.Lock()
	defer c.editMu.Unlock()

	c.mu.Lock()
	from, to := &c.history, &c.future
	if !back {
		from, to = &c.future, &c.history
	}
	if len(*from) == 0 {
		c.mu.Unlock()
		if back {
			return ErrNothingToUndo
		}
		return ErrNothingToRedo
	}
	text := (*from)[len(*from)-1]
	*from = (*from)[:len(*from)-1]
	*to = append(*to, c.state.Message)
	live := c.editor != nil && c.editor.Live()
	if !live {
		c.state.Message = text
		c.state.Selection = formatting.Selection{Start: len(text), End: len(text)}
		c.refreshTextareaState()
	}
	c.mu.Unlock()

	if live {
		return c.replaceEditor(text, true)
	}
	return nil
}

func (c *Composer) SetShowCC(show bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ShowCC = show
}

func (c *Composer) SetShowBCC(show bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ShowBCC = show
}

func (c *Composer) ToggleCC() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ShowCC = !c.state.ShowCC
}

func (c *Composer) ToggleBCC() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ShowBCC = !c.state.ShowBCC
}

func (c *Composer) SetPriority(p Priority) error {
	if _, err := ParsePriority(string(p)); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Priority = p
	return nil
}

func (c *Composer) SetRequestReceipt(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.RequestReceipt = on
}

func (c *Composer) SetConfidential(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Confidential = on
}

// SetScheduleTime stores the requested send time as given. Scheduling itself
// is left to the send operation.
func (c *Composer) SetScheduleTime(t string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ScheduleTime = t
}

// LoadTemplate fills subject and message from a template, substituting vars.
func (c *Composer) LoadTemplate(ctx context.Context, id string, vars map[string]string) error {
	if c.templates == nil {
		return ErrNoTemplates
	}
	t, err := c.templates.Get(ctx, id)
	if err != nil {
		return err
	}
	subject, body := templates.Apply(t, vars)

	c.SetSubject(subject)
	if err := c.SetMessage(body); err != nil {
		return err
	}
	c.log.DebugContext(ctx, "template loaded", slog.String("template_id", id))
	return nil
}

// SaveDraft only logs: drafts are not persisted.
func (c *Composer) SaveDraft(ctx context.Context) {
	st := c.State()
	c.log.InfoContext(ctx, "save draft requested",
		slog.String("subject", st.Subject),
		logger.Count("recipients", recipients.Total(st.Recipients)))
}

// Validate checks the composition as Send would.
func (c *Composer) Validate() error {
	st := c.State()
	return validateState(st)
}

// Clear resets the form to its empty state and cancels a pending reset.
func (c *Composer) Clear() {
	c.editMu.Lock()
	defer c.editMu.Unlock()

	c.mu.Lock()
	if c.resetTimer != nil {
		c.resetTimer.Stop()
		c.resetTimer = nil
	}
	c.state = emptyState()
	c.history, c.future = nil, nil
	live := c.editor != nil && c.editor.Live()
	c.mu.Unlock()

	if live {
		if err := c.replaceEditor("", true); err != nil {
			c.log.Warn("failed to clear editor", logger.Error(err))
		}
	}
}

// AttachEditor makes s the editing surface. The surface is painted with the
// current message once; afterwards the message follows the surface.
func (c *Composer) AttachEditor(s *editor.Surface) {
	c.editMu.Lock()
	defer c.editMu.Unlock()

	s.OnChange(func(text string) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.setMessage(text)
	})
	s.OnFormatStateChange(func(fs formatting.FormatState) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.state.FormatState = fs
	})

	c.mu.Lock()
	text := c.state.Message
	c.mu.Unlock()
	painted := s.Initialize(text)
	c.editor = s

	st := s.FormatState()
	c.mu.Lock()
	if !painted {
		// already live elsewhere: its content wins
		c.setMessage(s.Canonical())
	}
	c.state.FormatState = st
	c.mu.Unlock()
}

// Editor returns the attached surface, if any.
func (c *Composer) Editor() *editor.Surface {
	c.editMu.Lock()
	defer c.editMu.Unlock()
	return c.editor
}

// EditKey forwards a key press to the attached editor.
func (c *Composer) EditKey(key string) error {
	c.editMu.Lock()
	defer c.editMu.Unlock()
	if c.editor == nil {
		return ErrEditorNotAttached
	}
	return c.editor.PressKey(key)
}

// Type inserts text at the caret of the attached editor.
func (c *Composer) Type(text string) error {
	c.editMu.Lock()
	defer c.editMu.Unlock()
	if c.editor == nil {
		return ErrEditorNotAttached
	}
	return c.editor.Type(text)
}

// Paste inserts the plain clipboard text into the attached editor.
func (c *Composer) Paste(plain, rich string) error {
	c.editMu.Lock()
	defer c.editMu.Unlock()
	if c.editor == nil {
		return ErrEditorNotAttached
	}
	return c.editor.HandlePaste(plain, rich)
}

func (c *Composer) focus(field string) {
	if field == "body" {
		c.editMu.Lock()
		if c.editor != nil {
			c.editor.Focus()
		}
		c.editMu.Unlock()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Focus = field
}
