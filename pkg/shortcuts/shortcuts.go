// Package shortcuts maps key chords to composer actions and fans matched
// actions out to registered listeners.
package shortcuts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// Action is the semantic name of a shortcut.
type Action string

const (
	Send               Action = "send"
	SaveDraft          Action = "save_draft"
	Bold               Action = "bold"
	Italic             Action = "italic"
	Underline          Action = "underline"
	InsertLink         Action = "insert_link"
	ToggleCC           Action = "toggle_cc"
	ToggleBCC          Action = "toggle_bcc"
	FocusTo            Action = "focus_to"
	FocusSubject       Action = "focus_subject"
	FocusBody          Action = "focus_body"
	InsertBulletList   Action = "insert_bullet_list"
	InsertNumberedList Action = "insert_numbered_list"
	Undo               Action = "undo"
	Redo               Action = "redo"
)

// Chord is a key plus the exact set of modifiers held.
type Chord struct {
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrl,omitempty"`
	Shift bool   `json:"shift,omitempty"`
	Alt   bool   `json:"alt,omitempty"`
	Meta  bool   `json:"meta,omitempty"`
}

type Shortcut struct {
	Chord
	Description string `json:"description"`
	Action      Action `json:"action"`
}

func defaultTable() []Shortcut {
	return []Shortcut{
		{Chord{Key: "Enter", Ctrl: true}, "Send email", Send},
		{Chord{Key: "s", Ctrl: true}, "Save draft", SaveDraft},
		{Chord{Key: "b", Ctrl: true}, "Bold text", Bold},
		{Chord{Key: "i", Ctrl: true}, "Italic text", Italic},
		{Chord{Key: "u", Ctrl: true}, "Underline text", Underline},
		{Chord{Key: "k", Ctrl: true}, "Insert link", InsertLink},
		{Chord{Key: "c", Ctrl: true, Shift: true}, "Toggle CC field", ToggleCC},
		{Chord{Key: "b", Ctrl: true, Shift: true}, "Toggle BCC field", ToggleBCC},
		{Chord{Key: "t", Ctrl: true}, "Focus To field", FocusTo},
		{Chord{Key: "j", Ctrl: true}, "Focus Subject field", FocusSubject},
		{Chord{Key: "m", Ctrl: true}, "Focus message body", FocusBody},
		{Chord{Key: "l", Ctrl: true, Shift: true}, "Insert bullet list", InsertBulletList},
		{Chord{Key: "n", Ctrl: true, Shift: true}, "Insert numbered list", InsertNumberedList},
		{Chord{Key: "z", Ctrl: true}, "Undo", Undo},
		{Chord{Key: "y", Ctrl: true}, "Redo", Redo},
	}
}

// KeyEvent is a key press delivered to the dispatcher.
type KeyEvent struct {
	Key   string
	Ctrl  bool
	Shift bool
	Alt   bool
	Meta  bool

	prevented bool
	ctx       context.Context
}

// WithContext returns a shallow copy of e carrying ctx. Listeners use it for
// work started by the key press.
func (e *KeyEvent) WithContext(ctx context.Context) *KeyEvent {
	ev := *e
	ev.ctx = ctx
	return &ev
}

// Context returns the context attached with WithContext, or nil.
func (e *KeyEvent) Context() context.Context { return e.ctx }

// PreventDefault marks the event as consumed.
func (e *KeyEvent) PreventDefault() { e.prevented = true }

func (e *KeyEvent) DefaultPrevented() bool { return e.prevented }

var ErrInvalidChord = errors.New("invalid chord")

// ParseChord parses "ctrl+shift+b" style input into an event. Modifier names
// are case-insensitive; "cmd" is an alias for meta and "control" for ctrl.
func ParseChord(s string) (*KeyEvent, error) {
	parts := strings.Split(s, "+")
	ev := &KeyEvent{}
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if i == len(parts)-1 {
			if p == "" {
				return nil, fmt.Errorf("%w: %q", ErrInvalidChord, s)
			}
			ev.Key = p
			break
		}
		switch strings.ToLower(p) {
		case "ctrl", "control":
			ev.Ctrl = true
		case "shift":
			ev.Shift = true
		case "alt", "option":
			ev.Alt = true
		case "meta", "cmd":
			ev.Meta = true
		default:
			return nil, fmt.Errorf("%w: unknown modifier %q", ErrInvalidChord, p)
		}
	}
	return ev, nil
}

// Listener receives every dispatched action.
type Listener func(action Action, ev *KeyEvent)

type listener struct {
	id      string
	fn      Listener
	removed bool
}

// Dispatcher owns a shortcut table and a set of listeners keyed by id.
// Listeners are not scoped by focus: every listener receives every action.
type Dispatcher struct {
	table    []Shortcut
	modifier string
	log      *slog.Logger

	mu        sync.Mutex
	listeners []*listener
}

type Option func(*Dispatcher)

// WithPlatform rewrites the table for platforms whose primary modifier is
// Cmd: every chord using Ctrl uses Meta instead.
func WithPlatform(platform string) Option {
	return func(d *Dispatcher) {
		if !usesCmd(platform) {
			return
		}
		d.modifier = "Cmd"
		for i := range d.table {
			if d.table[i].Ctrl {
				d.table[i].Ctrl = false
				d.table[i].Meta = true
			}
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(d *Dispatcher) { d.log = log }
}

func usesCmd(platform string) bool {
	p := strings.ToUpper(platform)
	return p == "DARWIN" || p == "IOS" || strings.Contains(p, "MAC")
}

// NewDispatcher creates a dispatcher with the default shortcut table.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		table:    defaultTable(),
		modifier: "Ctrl",
		log:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register adds a listener. Registering an existing id replaces its callback
// and keeps its position.
func (d *Dispatcher) Register(id string, fn Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, l := range d.listeners {
		if l.id == id {
			l.removed = true
			d.listeners[i] = &listener{id: id, fn: fn}
			return
		}
	}
	d.listeners = append(d.listeners, &listener{id: id, fn: fn})
}

// Unregister removes a listener. It is safe to call from inside a listener;
// a listener removed mid-dispatch is not called for the rest of it.
func (d *Dispatcher) Unregister(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.listeners = slices.DeleteFunc(d.listeners, func(l *listener) bool {
		if l.id == id {
			l.removed = true
			return true
		}
		return false
	})
}

// Listeners returns the registered ids in registration order.
func (d *Dispatcher) Listeners() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	ids := make([]string, len(d.listeners))
	for i, l := range d.listeners {
		ids[i] = l.id
	}
	return ids
}

// Matches reports whether ev triggers s. Keys compare case-insensitively and
// all four modifiers must match exactly.
func Matches(ev *KeyEvent, s Shortcut) bool {
	return strings.EqualFold(ev.Key, s.Key) &&
		ev.Ctrl == s.Ctrl &&
		ev.Shift == s.Shift &&
		ev.Alt == s.Alt &&
		ev.Meta == s.Meta
}

// ActionFor returns the first action in table order matching ev.
func (d *Dispatcher) ActionFor(ev *KeyEvent) (Action, bool) {
	for _, s := range d.table {
		if Matches(ev, s) {
			return s.Action, true
		}
	}
	return "", false
}

// Handle resolves ev to an action, prevents its default handling and calls
// every listener once. It reports whether a shortcut matched.
func (d *Dispatcher) Handle(ev *KeyEvent) bool {
	action, ok := d.ActionFor(ev)
	if !ok {
		return false
	}
	ev.PreventDefault()

	d.mu.Lock()
	snapshot := slices.Clone(d.listeners)
	d.mu.Unlock()

	d.log.Debug("shortcut dispatched",
		slog.String("action", string(action)),
		slog.Int("listeners", len(snapshot)))

	for _, l := range snapshot {
		d.mu.Lock()
		removed := l.removed
		d.mu.Unlock()
		if removed {
			continue
		}
		l.fn(action, ev)
	}
	return true
}

// Shortcut returns the table entry for action.
func (d *Dispatcher) Shortcut(action Action) (Shortcut, bool) {
	for _, s := range d.table {
		if s.Action == action {
			return s, true
		}
	}
	return Shortcut{}, false
}

// Shortcuts returns a copy of the table in its fixed order.
func (d *Dispatcher) Shortcuts() []Shortcut {
	return slices.Clone(d.table)
}

// Format renders a shortcut for display, e.g. "Ctrl + Shift + B".
func Format(s Shortcut) string {
	var parts []string
	if s.Ctrl {
		parts = append(parts, "Ctrl")
	}
	if s.Shift {
		parts = append(parts, "Shift")
	}
	if s.Alt {
		parts = append(parts, "Alt")
	}
	if s.Meta {
		parts = append(parts, "Meta")
	}
	parts = append(parts, strings.ToUpper(s.Key))
	return strings.Join(parts, " + ")
}

// Help lists every shortcut with its description, one per line.
func (d *Dispatcher) Help() string {
	lines := make([]string, len(d.table))
	for i, s := range d.table {
		lines[i] = Format(s) + ": " + s.Description
	}
	return strings.Join(lines, "\n")
}

// ModifierLabel is "Cmd" on Cmd platforms and "Ctrl" elsewhere.
func (d *Dispatcher) ModifierLabel() string { return d.modifier }

// ShouldIgnore reports whether key events from an element with the given tag
// are text input that shortcuts should leave alone.
func ShouldIgnore(tag string, contentEditable bool) bool {
	switch strings.ToUpper(tag) {
	case "INPUT", "TEXTAREA", "SELECT":
		return true
	}
	return contentEditable
}
