// Package formatting implements the text-level operations on canonical
// message text: toggling inline markers, list prefixes, link insertion and
// conversion to delivery HTML or plain text.
//
// Canonical text uses **bold**, *italic*, ~~strikethrough~~, <u>underline</u>,
// [text](url) and "• " / "1. " line prefixes. All offsets are byte offsets
// into the UTF-8 string.
package formatting

import (
	"errors"
	"fmt"
	"html"
	"strings"
)

// Format is an inline formatting kind.
type Format string

const (
	Bold          Format = "bold"
	Italic        Format = "italic"
	Underline     Format = "underline"
	Strikethrough Format = "strikethrough"
)

var ErrUnknownFormat = errors.New("unknown format")

// ParseFormat maps a command name to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case Bold, Italic, Underline, Strikethrough:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Markers returns the opening and closing markup for a format.
func (f Format) Markers() (string, string) {
	switch f {
	case Bold:
		return "**", "**"
	case Italic:
		return "*", "*"
	case Underline:
		return "<u>", "</u>"
	case Strikethrough:
		return "~~", "~~"
	}
	return "", ""
}

// Selection is a half-open byte range [Start, End).
type Selection struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Empty reports whether the selection covers no text.
func (s Selection) Empty() bool { return s.End <= s.Start }

func (s Selection) clamp(n int) Selection {
	if s.Start > s.End {
		s.Start, s.End = s.End, s.Start
	}
	s.Start = max(0, min(s.Start, n))
	s.End = max(0, min(s.End, n))
	return s
}

// HasFormat reports whether text is wrapped in the markers for f. Bold wins
// over italic: "**x**" is bold, never italic.
func HasFormat(text string, f Format) bool {
	prefix, suffix := f.Markers()
	if prefix == "" || len(text) < len(prefix)+len(suffix) {
		return false
	}
	if !strings.HasPrefix(text, prefix) || !strings.HasSuffix(text, suffix) {
		return false
	}
	if f == Italic && strings.HasPrefix(text, "**") {
		return false
	}
	return true
}

// RemoveFormat strips one layer of f's markers. Text without them is
// returned unchanged.
func RemoveFormat(text string, f Format) string {
	if !HasFormat(text, f) {
		return text
	}
	prefix, suffix := f.Markers()
	return text[len(prefix) : len(text)-len(suffix)]
}

// ApplyFormat toggles f on the selected substring and returns the new text
// together with the selection covering the same logical content, so calling
// it again with the returned selection restores the input.
func ApplyFormat(text string, sel Selection, f Format) (string, Selection) {
	prefix, suffix := f.Markers()
	sel = sel.clamp(len(text))
	if prefix == "" || sel.Empty() {
		return text, sel
	}

	selected := text[sel.Start:sel.End]
	var replacement string
	if HasFormat(selected, f) {
		replacement = RemoveFormat(selected, f)
	} else {
		replacement = prefix + selected + suffix
	}

	out := text[:sel.Start] + replacement + text[sel.End:]
	return out, Selection{Start: sel.Start, End: sel.Start + len(replacement)}
}

// lineAt returns the start and end byte offsets of the line containing
// offset. Offsets past the end resolve to the last line.
func lineAt(text string, offset int) (int, int) {
	offset = max(0, min(offset, len(text)))
	pos := 0
	for {
		n := strings.IndexByte(text[pos:], '\n')
		if n < 0 {
			return pos, len(text)
		}
		if pos+n >= offset {
			return pos, pos + n
		}
		pos += n + 1
	}
}

// InsertList toggles a list prefix on the line holding caret. A line that
// already carries any list prefix has it removed; otherwise the prefix for
// kind is prepended. The returned caret is shifted by the length change,
// never moving before the start of the line.
func InsertList(text string, caret int, kind ListKind) (string, int) {
	start, end := lineAt(text, caret)
	caret = max(0, min(caret, len(text)))
	line := text[start:end]

	var newLine string
	if existing, n := listPrefix(line); existing != NoList {
		newLine = line[n:]
	} else {
		prefix := BulletPrefix
		if kind == NumberedList {
			prefix = NumberedPrefix
		}
		newLine = prefix + line
	}

	delta := len(newLine) - len(line)
	newCaret := max(start, caret+delta)
	return text[:start] + newLine + text[end:], newCaret
}

// InsertLink inserts [display](url) at caret. An empty display uses the url.
// The returned caret sits right after the inserted markup.
func InsertLink(text string, caret int, url, display string) (string, int) {
	caret = max(0, min(caret, len(text)))
	if display == "" {
		display = url
	}
	link := "[" + display + "](" + url + ")"
	return text[:caret] + link + text[caret:], caret + len(link)
}

// ConvertToHTML renders canonical text as delivery HTML. Text content is
// escaped; consecutive list lines become one <ul> or <ol>; other lines are
// joined with <br>.
func ConvertToHTML(text string) string {
	var b strings.Builder
	openList := NoList
	prevText := false

	closeList := func() {
		switch openList {
		case BulletList:
			b.WriteString("</ul>")
		case NumberedList:
			b.WriteString("</ol>")
		}
		openList = NoList
	}

	for _, line := range ParseMarkup(text) {
		if line.List != NoList {
			if line.List != openList {
				closeList()
				if line.List == BulletList {
					b.WriteString("<ul>")
				} else {
					b.WriteString("<ol>")
				}
				openList = line.List
			}
			b.WriteString("<li>")
			writeHTML(&b, line.Content)
			b.WriteString("</li>")
			prevText = false
			continue
		}
		closeList()
		if prevText {
			b.WriteString("<br>")
		}
		writeHTML(&b, line.Content)
		prevText = true
	}
	closeList()
	return b.String()
}

func writeHTML(b *strings.Builder, spans []Span) {
	for _, s := range spans {
		switch s.Kind {
		case TextSpan:
			b.WriteString(html.EscapeString(s.Text))
		case BoldSpan:
			wrapHTML(b, "strong", s.Children)
		case ItalicSpan:
			wrapHTML(b, "em", s.Children)
		case UnderlineSpan:
			wrapHTML(b, "u", s.Children)
		case StrikeSpan:
			wrapHTML(b, "del", s.Children)
		case LinkSpan:
			b.WriteString(`<a href="`)
			b.WriteString(html.EscapeString(s.Href))
			b.WriteString(`">`)
			writeHTML(b, s.Children)
			b.WriteString("</a>")
		}
	}
}

func wrapHTML(b *strings.Builder, tag string, children []Span) {
	b.WriteString("<" + tag + ">")
	writeHTML(b, children)
	b.WriteString("</" + tag + ">")
}

// StripFormatting removes all markup, including list prefixes, and keeps
// link text without its url.
func StripFormatting(text string) string {
	lines := ParseMarkup(text)
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = PlainText(l.Content)
	}
	return strings.Join(out, "\n")
}
