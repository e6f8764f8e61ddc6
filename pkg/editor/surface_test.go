package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prasanthmj/composer/pkg/formatting"
)

func newLive(t *testing.T, text string) (*Surface, *[]string) {
	t.Helper()
	s := NewSurface()
	var changes []string
	s.OnChange(func(c string) { changes = append(changes, c) })
	require.True(t, s.Initialize(text))
	return s, &changes
}

func TestInitializeIsOneWay(t *testing.T) {
	s, changes := newLive(t, "**hi**")
	assert.Equal(t, "<div><strong>hi</strong></div>", s.HTML())
	assert.Equal(t, "**hi**", s.Canonical())
	assert.Empty(t, *changes)

	assert.False(t, s.Initialize("replaced"))
	assert.Equal(t, "<div><strong>hi</strong></div>", s.HTML())
}

func TestNotInitialized(t *testing.T) {
	s := NewSurface()
	assert.ErrorIs(t, s.Type("x"), ErrNotInitialized)
	assert.ErrorIs(t, s.ApplyFormatting(CmdBold, "", ""), ErrNotInitialized)
	assert.ErrorIs(t, s.Select(0, 0), ErrNotInitialized)
}

func TestTypeReportsCanonical(t *testing.T) {
	s, changes := newLive(t, "Hello")
	require.NoError(t, s.Type(" world"))
	assert.Equal(t, []string{"Hello world"}, *changes)

	require.NoError(t, s.Type("\nnext"))
	assert.Equal(t, "Hello world\nnext", s.Canonical())
	assert.Equal(t, "Hello world\nnext", s.PlainText())
}

func TestTypeReplacesSelection(t *testing.T) {
	s, _ := newLive(t, "hello world")
	require.NoError(t, s.Select(0, 6))
	require.NoError(t, s.Type("bye "))
	assert.Equal(t, "bye world", s.Canonical())

	s, _ = newLive(t, "ab\ncd")
	require.NoError(t, s.Select(1, 4))
	require.NoError(t, s.Type("X"))
	assert.Equal(t, "aXd", s.Canonical())
}

func TestBoldToggleOnRange(t *testing.T) {
	s, _ := newLive(t, "Hello world")
	var states []formatting.FormatState
	s.OnFormatStateChange(func(st formatting.FormatState) { states = append(states, st) })

	require.NoError(t, s.Select(6, 11))
	require.NoError(t, s.ApplyFormatting(CmdBold, "", ""))
	assert.Equal(t, "Hello **world**", s.Canonical())
	require.NotEmpty(t, states)
	assert.True(t, states[len(states)-1].Bold)

	require.NoError(t, s.Select(6, 11))
	require.NoError(t, s.ApplyFormatting(CmdBold, "", ""))
	assert.Equal(t, "Hello world", s.Canonical())
	assert.False(t, s.FormatState().Bold)
}

func TestInlineCommands(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{CmdItalic, "go *now*"},
		{CmdUnderline, "go <u>now</u>"},
		{CmdStrikethrough, "go ~~now~~"},
	}
	for _, tt := range tests {
		t.Run(string(tt.cmd), func(t *testing.T) {
			s, _ := newLive(t, "go now")
			require.NoError(t, s.Select(3, 6))
			require.NoError(t, s.ApplyFormatting(tt.cmd, "", ""))
			assert.Equal(t, tt.want, s.Canonical())
		})
	}
}

func TestBoldAtCollapsedCaret(t *testing.T) {
	s, _ := newLive(t, "Hello")
	require.NoError(t, s.ApplyFormatting(CmdBold, "", ""))
	assert.Equal(t, "Hello", s.Canonical())
	assert.True(t, s.FormatState().Bold)

	require.NoError(t, s.Type(" there"))
	assert.Equal(t, "Hello **there**", s.Canonical())
	assert.NotContains(t, s.Canonical(), zwsp)

	require.NoError(t, s.ApplyFormatting(CmdBold, "", ""))
	assert.False(t, s.FormatState().Bold)
	require.NoError(t, s.Type("!"))
	assert.Equal(t, "Hello **there**!", s.Canonical())
}

func TestListToggle(t *testing.T) {
	s, _ := newLive(t, "one\ntwo")
	require.NoError(t, s.Select(0, 7))

	require.NoError(t, s.ApplyFormatting(CmdInsertUnorderedList, "", ""))
	assert.Equal(t, "• one\n• two", s.Canonical())
	assert.True(t, s.FormatState().UnorderedList)

	require.NoError(t, s.ApplyFormatting(CmdInsertOrderedList, "", ""))
	assert.Equal(t, "1. one\n2. two", s.Canonical())
	st := s.FormatState()
	assert.True(t, st.OrderedList)
	assert.False(t, st.UnorderedList)

	require.NoError(t, s.ApplyFormatting(CmdInsertOrderedList, "", ""))
	assert.Equal(t, "one\ntwo", s.Canonical())
	assert.False(t, s.FormatState().OrderedList)
}

func TestEnterOnEmptyItemLeavesList(t *testing.T) {
	s, _ := newLive(t, "• one")

	require.NoError(t, s.PressKey("Enter"))
	assert.True(t, s.FormatState().UnorderedList)

	require.NoError(t, s.PressKey("Enter"))
	assert.Equal(t, "• one\n", s.Canonical())
	assert.False(t, s.FormatState().UnorderedList)

	require.NoError(t, s.Type("next"))
	assert.Equal(t, "• one\nnext", s.Canonical())
	assert.NotContains(t, s.HTML(), "<br")
}

func TestTypeIntoEmptyLineDropsPlaceholder(t *testing.T) {
	s, _ := newLive(t, "")
	assert.Equal(t, "<div><br/></div>", s.HTML())

	require.NoError(t, s.Type("hi"))
	assert.Equal(t, "<div>hi</div>", s.HTML())
	assert.Equal(t, "hi", s.Canonical())
}

func TestBackspaceAtItemStartUnlists(t *testing.T) {
	s, _ := newLive(t, "• one\n• two")
	require.NoError(t, s.Select(4, 4))

	assert.True(t, s.HandleKey("Backspace"))
	assert.Equal(t, "• one\ntwo", s.Canonical())
	assert.False(t, s.FormatState().UnorderedList)

	// not at the start: left to the default behavior
	require.NoError(t, s.Select(2, 2))
	assert.False(t, s.HandleKey("Backspace"))
}

func TestBackspaceJoinsLines(t *testing.T) {
	s, _ := newLive(t, "ab\ncd")
	require.NoError(t, s.Select(3, 3))

	require.NoError(t, s.PressKey("Backspace"))
	assert.Equal(t, "abcd", s.Canonical())
	start, end := s.Selection()
	assert.Equal(t, 2, start)
	assert.Equal(t, 2, end)

	require.NoError(t, s.PressKey("Backspace"))
	assert.Equal(t, "acd", s.Canonical())
}

func TestPasteIsPlainOnly(t *testing.T) {
	s, changes := newLive(t, "")
	require.NoError(t, s.HandlePaste("a\r\nb", "<b>a</b><br><i>b</i>"))
	assert.Equal(t, "a\nb", s.Canonical())
	assert.Equal(t, []string{"a\nb"}, *changes)
}

func TestInsertLink(t *testing.T) {
	s, _ := newLive(t, "See ")
	require.NoError(t, s.ApplyFormatting(CmdInsertLink, "https://x.io", "site"))
	assert.Equal(t, "See [site](https://x.io)", s.Canonical())
	assert.False(t, s.FormatState().Link)

	require.NoError(t, s.Type("!"))
	assert.Equal(t, "See [site](https://x.io)!", s.Canonical())

	s, _ = newLive(t, "go here")
	require.NoError(t, s.Select(3, 7))
	require.NoError(t, s.ApplyFormatting(CmdInsertLink, "https://a.b", ""))
	assert.Equal(t, "go [here](https://a.b)", s.Canonical())
	assert.True(t, s.FormatState().Link)

	assert.ErrorIs(t, s.ApplyFormatting(CmdInsertLink, "", "x"), ErrEmptyURL)
	assert.ErrorIs(t, s.ApplyFormatting(Command("shout"), "", ""), ErrUnknownCommand)
}

func TestFormatStateFollowsSelection(t *testing.T) {
	s, _ := newLive(t, "a **b** *c*")

	require.NoError(t, s.Select(3, 3))
	st := s.FormatState()
	assert.True(t, st.Bold)
	assert.False(t, st.Italic)

	require.NoError(t, s.Select(5, 5))
	st = s.FormatState()
	assert.False(t, st.Bold)
	assert.True(t, st.Italic)
}

func TestDetachedCaretIsRelocated(t *testing.T) {
	s, _ := newLive(t, "• a\nplain")
	root := s.Root()
	root.RemoveChild(root.LastChild)
	s.Input()
	assert.Equal(t, "• a", s.Canonical())

	require.NoError(t, s.ApplyFormatting(CmdBold, "", ""))
	st := s.FormatState()
	assert.True(t, st.UnorderedList)
	assert.True(t, st.Bold)
	assert.Equal(t, "• a", s.Canonical())
}

func TestReplaceHTML(t *testing.T) {
	s := NewSurface()
	var got string
	s.OnChange(func(c string) { got = c })

	require.NoError(t, s.ReplaceHTML("<div>x <b>y</b></div><ul><li>z</li></ul>"))
	assert.Equal(t, "x **y**\n• z", got)
	assert.True(t, s.Live())

	require.NoError(t, s.Type("!"))
	assert.Equal(t, "x **y**\n• z!", s.Canonical())
}

func TestReplaceHTMLWithEmptyLine(t *testing.T) {
	s, _ := newLive(t, "hello")
	require.NoError(t, s.ReplaceHTML(CanonicalToHTML("")))
	assert.Equal(t, "", s.Canonical())
	assert.Equal(t, "<div><br/></div>", s.HTML())

	require.NoError(t, s.Type("x"))
	assert.Equal(t, "x", s.Canonical())
}

func TestParseCommand(t *testing.T) {
	cmd, err := ParseCommand("insert_unordered_list")
	require.NoError(t, err)
	assert.Equal(t, CmdInsertUnorderedList, cmd)

	_, err = ParseCommand("justify")
	assert.ErrorIs(t, err, ErrUnknownCommand)
}
