package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html/atom"

	"github.com/prasanthmj/composer/pkg/formatting"
)

func TestHTMLToCanonical(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"div lines", "<div>Hello <b>world</b></div><div><br></div><div>x</div>", "Hello **world**\n\nx"},
		{"br", "a<br>b", "a\nb"},
		{"paragraphs", "<p>a</p><p>b</p>", "a\nb"},
		{"inline tags", "<i>x</i> <s>y</s> <strike>z</strike> <u>w</u>", "*x* ~~y~~ ~~z~~ <u>w</u>"},
		{"strong em", "<strong>a</strong> <em>b</em> <del>c</del>", "**a** *b* ~~c~~"},
		{"lists", "<ul><li>a</li><li>b</li></ul><ol><li>c</li></ol>", "• a\n• b\n1. c"},
		{"nested list", "<ul><li>a<ul><li>b</li></ul></li></ul>", "• a\n• b"},
		{"link", `<a href="https://e.com">site</a> after`, "[site](https://e.com) after"},
		{"link without href", "<a>plain</a>", "plain"},
		{"caret placeholder", "<div>a<strong>\u200b</strong></div>", "a"},
		{"source whitespace", "<div>\n  <b>x</b>\n</div>", "**x**"},
		{"trailing text", "<div>a</div>b", "a\nb"},
		{"edge whitespace", "<b>bold </b>text", "**bold** text"},
		{"script dropped", "<script>x</script>ok", "ok"},
		{"unknown tags stripped", "<span style=\"color:red\">red</span>", "red"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HTMLToCanonical(tt.html)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalToHTML(t *testing.T) {
	assert.Equal(t, "<div><strong>hi</strong></div>", CanonicalToHTML("**hi**"))
	assert.Equal(t, "<ul><li>one</li><li>two</li></ul><div>plain</div>", CanonicalToHTML("• one\n• two\nplain"))
	assert.Equal(t, "<div>a</div><div><br/></div><div>b</div>", CanonicalToHTML("a\n\nb"))
	assert.Equal(t, "<div>a &lt; b</div>", CanonicalToHTML("a < b"))
	assert.Equal(t, `<div><a href="https://e.com">site</a></div>`, CanonicalToHTML("[site](https://e.com)"))
}

func TestCanonicalRoundTrip(t *testing.T) {
	for _, text := range []string{
		"Hello **world**",
		"• one\n• two\nplain",
		"1. a\n2. b",
		"*it* and ~~gone~~ and <u>under</u>",
		"[site](https://e.com) after",
		"a\n\nb",
		"***both***",
		"",
	} {
		t.Run(text, func(t *testing.T) {
			root := newElement(atom.Div)
			for _, n := range CanonicalToNodes(text) {
				root.AppendChild(n)
			}
			got := NodesToCanonical(root)
			assert.Equal(t, text, got)
			assert.Equal(t, formatting.StripFormatting(text), formatting.StripFormatting(got))
		})
	}
}
