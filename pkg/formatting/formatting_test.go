package formatting

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFormatBoldToggle(t *testing.T) {
	text := "hello world"
	sel := Selection{Start: 6, End: 11}

	bolded, sel := ApplyFormat(text, sel, Bold)
	assert.Equal(t, "hello **world**", bolded)
	assert.Equal(t, Selection{Start: 6, End: 15}, sel)

	restored, sel := ApplyFormat(bolded, sel, Bold)
	assert.Equal(t, "hello world", restored)
	assert.Equal(t, Selection{Start: 6, End: 11}, sel)
}

func TestApplyFormatIsSymmetric(t *testing.T) {
	texts := []string{"a", "a*", "*a*", "**", "x ~~y~~ z", "line one\nline two", "<u>u</u>", "héllo wörld"}
	formats := []Format{Bold, Italic, Underline, Strikethrough}

	for _, text := range texts {
		for _, f := range formats {
			for start := 0; start < len(text); start++ {
				for end := start + 1; end <= len(text); end++ {
					// "*" + "*x" + "*" reads as bold, not italic
					if f == Italic && strings.HasPrefix(text[start:end], "*") && !HasFormat(text[start:end], Italic) {
						continue
					}
					once, sel := ApplyFormat(text, Selection{Start: start, End: end}, f)
					twice, _ := ApplyFormat(once, sel, f)
					require.Equal(t, text, twice, "format %s on %q [%d:%d]", f, text, start, end)
				}
			}
		}
	}
}

func TestApplyFormatEmptySelection(t *testing.T) {
	out, sel := ApplyFormat("hello", Selection{Start: 2, End: 2}, Bold)
	assert.Equal(t, "hello", out)
	assert.True(t, sel.Empty())

	out, _ = ApplyFormat("hello", Selection{Start: 3, End: 99}, Italic)
	assert.Equal(t, "hel*lo*", out)
}

func TestHasFormat(t *testing.T) {
	assert.True(t, HasFormat("**x**", Bold))
	assert.False(t, HasFormat("**x**", Italic))
	assert.True(t, HasFormat("*x*", Italic))
	assert.False(t, HasFormat("*x*", Bold))
	assert.False(t, HasFormat("*", Italic))
	assert.True(t, HasFormat("<u>x</u>", Underline))
	assert.True(t, HasFormat("~~x~~", Strikethrough))

	assert.Equal(t, "x", RemoveFormat("~~x~~", Strikethrough))
	assert.Equal(t, "plain", RemoveFormat("plain", Bold))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" Bold ")
	require.NoError(t, err)
	assert.Equal(t, Bold, f)

	_, err = ParseFormat("blink")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestInsertList(t *testing.T) {
	text := "first\nsecond"

	bulleted, caret := InsertList(text, 8, BulletList)
	assert.Equal(t, "first\n• second", bulleted)
	assert.Equal(t, 8+len(BulletPrefix), caret)

	restored, caret := InsertList(bulleted, caret, BulletList)
	assert.Equal(t, text, restored)
	assert.Equal(t, 8, caret)

	numbered, caret := InsertList(text, 0, NumberedList)
	assert.Equal(t, "1. first\nsecond", numbered)
	assert.Equal(t, 3, caret)

	// Any existing prefix toggles off, regardless of kind
	out, caret := InsertList("- item", 0, NumberedList)
	assert.Equal(t, "item", out)
	assert.Equal(t, 0, caret)
}

func TestInsertListIsSymmetric(t *testing.T) {
	texts := []string{"", "one", "one\ntwo\nthree", "  indented", "*italic* start", "**bold** start"}
	for _, text := range texts {
		for _, kind := range []ListKind{BulletList, NumberedList} {
			for caret := 0; caret <= len(text); caret++ {
				once, c := InsertList(text, caret, kind)
				twice, _ := InsertList(once, c, kind)
				assert.Equal(t, text, twice, "kind %s on %q at %d", kind, text, caret)
			}
		}
	}
}

func TestInsertLink(t *testing.T) {
	out, caret := InsertLink("see here", 4, "https://example.com", "")
	assert.Equal(t, "see [https://example.com](https://example.com)here", out)
	assert.Equal(t, 4+len("[https://example.com](https://example.com)"), caret)

	out, caret = InsertLink("", 0, "https://example.com", "docs")
	assert.Equal(t, "[docs](https://example.com)", out)
	assert.Equal(t, len(out), caret)
}

func TestConvertToHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"World", "World"},
		{"**a** & b", "<strong>a</strong> &amp; b"},
		{"one\ntwo", "one<br>two"},
		{"*i* ~~s~~ <u>u</u>", "<em>i</em> <del>s</del> <u>u</u>"},
		{"[site](https://example.com?a=1&b=2)", `<a href="https://example.com?a=1&amp;b=2">site</a>`},
		{"intro\n• a\n• b\n1. c\nend", "intro<ul><li>a</li><li>b</li></ul><ol><li>c</li></ol>end"},
		{"<script>x</script>", "&lt;script&gt;x&lt;/script&gt;"},
	}

	for _, test := range tests {
		assert.Equal(t, test.want, ConvertToHTML(test.in), "input %q", test.in)
	}
}

func TestStripFormatting(t *testing.T) {
	assert.Equal(t, "hello world", StripFormatting("hello **world**"))
	assert.Equal(t, "a b c d", StripFormatting("*a* ~~b~~ <u>c</u> d"))
	assert.Equal(t, "site\nfirst\nsecond", StripFormatting("[site](https://x.io)\n• first\n2. second"))
	assert.Equal(t, "5 * 3", StripFormatting("5 * 3"))
}

func TestParseInlineNesting(t *testing.T) {
	text := func(s string) Span { return Span{Kind: TextSpan, Text: s} }

	assert.Equal(t,
		[]Span{{Kind: BoldSpan, Children: []Span{{Kind: ItalicSpan, Children: []Span{text("x")}}}}},
		ParseInline("***x***"))

	assert.Equal(t,
		[]Span{{Kind: ItalicSpan, Children: []Span{text("a "), {Kind: BoldSpan, Children: []Span{text("b")}}}}},
		ParseInline("*a **b***"))

	assert.Equal(t,
		[]Span{{Kind: BoldSpan, Children: []Span{text("a "), {Kind: ItalicSpan, Children: []Span{text("y")}}}}},
		ParseInline("**a *y***"))

	assert.Equal(t,
		[]Span{{Kind: ItalicSpan, Children: []Span{{Kind: BoldSpan, Children: []Span{text("a")}}, text("b")}}},
		ParseInline("***a**b*"))

	assert.Equal(t, []Span{text("**unclosed")}, ParseInline("**unclosed"))
	assert.Equal(t, []Span{text("a ** b")}, ParseInline("a ** b"))
}

func TestFormatMarkupRoundTrip(t *testing.T) {
	texts := []string{
		"hello **world**",
		"***both***",
		"*a **b***",
		"***a**b*",
		"***a**",
		"<u>under</u> and ~~gone~~",
		"[docs](https://example.com) here",
		"• one\n• two\n\n1. first\n2. second",
		"",
		"\n\nplain\n",
	}
	for _, text := range texts {
		assert.Equal(t, text, FormatMarkup(ParseMarkup(text)), "input %q", text)
	}

	// Numbering is normalized, bullets are canonicalized
	assert.Equal(t, "1. a\n2. b\n• c", FormatMarkup(ParseMarkup("3. a\n7. b\n- c")))
}

func TestTextareaState(t *testing.T) {
	tests := []struct {
		name  string
		state TextareaState
		want  FormatState
	}{
		{"bold", TextareaState{Text: "hello **world**", Caret: 10}, FormatState{Bold: true}},
		{"italic", TextareaState{Text: "hello *world*", Caret: 9}, FormatState{Italic: true}},
		{"underline", TextareaState{Text: "<u>x</u>", Caret: 3}, FormatState{Underline: true}},
		{"strike", TextareaState{Text: "~~x~~", Caret: 3}, FormatState{Strikethrough: true}},
		{"bullet", TextareaState{Text: "a\n• item", Caret: 6}, FormatState{UnorderedList: true}},
		{"numbered", TextareaState{Text: "1. item", Caret: 4}, FormatState{OrderedList: true}},
		{"link", TextareaState{Text: "go [here](https://x.io) now", Caret: 6}, FormatState{Link: true}},
		{"plain", TextareaState{Text: "nothing", Caret: 3}, FormatState{}},
		{"caret past end", TextareaState{Text: "x", Caret: 40}, FormatState{}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var p FormatStateProvider = test.state
			assert.Equal(t, test.want, p.FormatState())
		})
	}
}
