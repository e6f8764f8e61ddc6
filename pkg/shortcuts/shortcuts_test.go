package shortcuts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleFansOutToEveryListener(t *testing.T) {
	d := NewDispatcher()

	got := map[string][]Action{}
	d.Register("composer-1", func(a Action, _ *KeyEvent) { got["composer-1"] = append(got["composer-1"], a) })
	d.Register("composer-2", func(a Action, _ *KeyEvent) { got["composer-2"] = append(got["composer-2"], a) })

	ev := &KeyEvent{Key: "b", Ctrl: true}
	require.True(t, d.Handle(ev))
	assert.True(t, ev.DefaultPrevented())

	assert.Equal(t, []Action{Bold}, got["composer-1"])
	assert.Equal(t, []Action{Bold}, got["composer-2"])
}

func TestHandleRequiresExactModifiers(t *testing.T) {
	d := NewDispatcher()
	calls := 0
	d.Register("l", func(Action, *KeyEvent) { calls++ })

	for _, ev := range []*KeyEvent{
		{Key: "b"},
		{Key: "b", Ctrl: true, Alt: true},
		{Key: "b", Meta: true},
		{Key: "x", Ctrl: true},
	} {
		assert.False(t, d.Handle(ev), "event %+v", ev)
		assert.False(t, ev.DefaultPrevented())
	}
	assert.Zero(t, calls)

	action, ok := d.ActionFor(&KeyEvent{Key: "B", Ctrl: true, Shift: true})
	require.True(t, ok)
	assert.Equal(t, ToggleBCC, action)

	action, ok = d.ActionFor(&KeyEvent{Key: "enter", Ctrl: true})
	require.True(t, ok)
	assert.Equal(t, Send, action)
}

func TestWithPlatformUsesMeta(t *testing.T) {
	d := NewDispatcher(WithPlatform("darwin"))
	assert.Equal(t, "Cmd", d.ModifierLabel())

	_, ok := d.ActionFor(&KeyEvent{Key: "b", Ctrl: true})
	assert.False(t, ok)
	action, ok := d.ActionFor(&KeyEvent{Key: "b", Meta: true})
	require.True(t, ok)
	assert.Equal(t, Bold, action)

	s, ok := d.Shortcut(InsertBulletList)
	require.True(t, ok)
	assert.Equal(t, "Shift + Meta + L", Format(s))

	// Other dispatchers keep the default table
	assert.Equal(t, "Ctrl", NewDispatcher(WithPlatform("linux")).ModifierLabel())
	_, ok = NewDispatcher().ActionFor(&KeyEvent{Key: "b", Ctrl: true})
	assert.True(t, ok)
}

func TestUnregisterDuringDispatch(t *testing.T) {
	d := NewDispatcher()
	var order []string

	d.Register("self", func(Action, *KeyEvent) {
		order = append(order, "self")
		d.Unregister("self")
	})
	d.Register("first", func(Action, *KeyEvent) {
		order = append(order, "first")
		d.Unregister("second")
	})
	d.Register("second", func(Action, *KeyEvent) { order = append(order, "second") })
	d.Register("third", func(Action, *KeyEvent) { order = append(order, "third") })

	require.True(t, d.Handle(&KeyEvent{Key: "i", Ctrl: true}))
	assert.Equal(t, []string{"self", "first", "third"}, order)
	assert.Equal(t, []string{"first", "third"}, d.Listeners())

	order = nil
	d.Handle(&KeyEvent{Key: "i", Ctrl: true})
	assert.Equal(t, []string{"first", "third"}, order)
}

func TestRegisterReplacesInPlace(t *testing.T) {
	d := NewDispatcher()
	var calls []string
	d.Register("a", func(Action, *KeyEvent) { calls = append(calls, "a1") })
	d.Register("b", func(Action, *KeyEvent) { calls = append(calls, "b") })
	d.Register("a", func(Action, *KeyEvent) { calls = append(calls, "a2") })

	d.Handle(&KeyEvent{Key: "u", Ctrl: true})
	assert.Equal(t, []string{"a2", "b"}, calls)
}

func TestFormatAndHelp(t *testing.T) {
	d := NewDispatcher()

	s, ok := d.Shortcut(ToggleCC)
	require.True(t, ok)
	assert.Equal(t, "Ctrl + Shift + C", Format(s))

	_, ok = d.Shortcut(Action("nope"))
	assert.False(t, ok)

	all := d.Shortcuts()
	require.Len(t, all, 15)
	assert.Equal(t, Send, all[0].Action)

	help := d.Help()
	assert.Contains(t, help, "Ctrl + ENTER: Send email")
	assert.Contains(t, help, "Ctrl + Shift + N: Insert numbered list")
}

func TestParseChord(t *testing.T) {
	ev, err := ParseChord("Ctrl+Shift+b")
	require.NoError(t, err)
	assert.Equal(t, &KeyEvent{Key: "b", Ctrl: true, Shift: true}, ev)

	ev, err = ParseChord("cmd+Enter")
	require.NoError(t, err)
	assert.Equal(t, &KeyEvent{Key: "Enter", Meta: true}, ev)

	_, err = ParseChord("hyper+b")
	assert.ErrorIs(t, err, ErrInvalidChord)
	_, err = ParseChord("ctrl+")
	assert.ErrorIs(t, err, ErrInvalidChord)
}

func TestShouldIgnore(t *testing.T) {
	assert.True(t, ShouldIgnore("input", false))
	assert.True(t, ShouldIgnore("TEXTAREA", false))
	assert.True(t, ShouldIgnore("div", true))
	assert.False(t, ShouldIgnore("div", false))
}

func TestKeyEventWithContext(t *testing.T) {
	type key struct{}
	ev := &KeyEvent{Key: "b", Ctrl: true}
	assert.Nil(t, ev.Context())

	ctx := context.WithValue(context.Background(), key{}, "v")
	withCtx := ev.WithContext(ctx)
	assert.Equal(t, ctx, withCtx.Context())
	assert.Nil(t, ev.Context())
	assert.Equal(t, "b", withCtx.Key)
}
