package formatting

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SpanKind identifies an inline markup element.
type SpanKind int

const (
	TextSpan SpanKind = iota
	BoldSpan
	ItalicSpan
	UnderlineSpan
	StrikeSpan
	LinkSpan
)

// ListKind is the list marker carried by a line.
type ListKind string

const (
	NoList       ListKind = ""
	BulletList   ListKind = "bullet"
	NumberedList ListKind = "numbered"
)

const (
	BulletPrefix   = "• "
	NumberedPrefix = "1. "
)

// Span is one node of parsed inline markup. Text is set for TextSpan, Href
// for LinkSpan; the other kinds only carry Children.
type Span struct {
	Kind     SpanKind
	Text     string
	Href     string
	Children []Span
}

// Line is one line of canonical text.
type Line struct {
	List    ListKind
	Content []Span
}

var (
	bulletLine   = regexp.MustCompile(`^\s*[•\-*]\s`)
	numberedLine = regexp.MustCompile(`^\s*\d+\.\s`)
	linkMarkup   = regexp.MustCompile(`^\[([^\]]+)\]\(([^)]+)\)`)
	linkAnywhere = regexp.MustCompile(`\[[^\]]+\]\([^)]+\)`)
)

// listPrefix returns the kind and byte length of a leading list marker.
func listPrefix(line string) (ListKind, int) {
	if loc := numberedLine.FindStringIndex(line); loc != nil {
		return NumberedList, loc[1]
	}
	if loc := bulletLine.FindStringIndex(line); loc != nil {
		return BulletList, loc[1]
	}
	return NoList, 0
}

// ParseMarkup splits canonical text into lines and parses each one.
func ParseMarkup(text string) []Line {
	raw := strings.Split(text, "\n")
	lines := make([]Line, 0, len(raw))
	for _, l := range raw {
		kind, n := listPrefix(l)
		lines = append(lines, Line{List: kind, Content: ParseInline(l[n:])})
	}
	return lines
}

type frame struct {
	kind     SpanKind
	marker   string
	run      int // offset of the delimiter run that opened it
	children []Span
}

// ParseInline parses bold, italic, underline, strikethrough and link markup.
// Star and tilde runs open when followed by a non-space and close when
// preceded by one; unmatched markers stay literal.
func ParseInline(s string) []Span {
	stack := []*frame{{kind: TextSpan}}
	var buf strings.Builder

	top := func() *frame { return stack[len(stack)-1] }
	flush := func() {
		if buf.Len() > 0 {
			t := top()
			t.children = appendText(t.children, buf.String())
			buf.Reset()
		}
	}
	push := func(kind SpanKind, marker string, run int) {
		stack = append(stack, &frame{kind: kind, marker: marker, run: run})
	}
	closeTop := func() {
		f := top()
		stack = stack[:len(stack)-1]
		parent := top()
		if len(f.children) == 0 {
			parent.children = appendText(parent.children, f.marker+closingMarker(f))
			return
		}
		parent.children = append(parent.children, Span{Kind: f.kind, Children: f.children})
	}

	i := 0
	for i < len(s) {
		switch {
		case s[i] == '*':
			j := i
			for j < len(s) && s[j] == '*' {
				j++
			}
			n := j - i
			canClose, canOpen := flanking(s, i, j)
			flush()
			if canClose {
				// "***a**b*": the opening run was italic around bold
				if n == 2 && len(stack) > 2 {
					t, below := stack[len(stack)-1], stack[len(stack)-2]
					if t.kind == ItalicSpan && below.kind == BoldSpan && t.run == below.run && len(below.children) == 0 {
						t.kind, t.marker = BoldSpan, "**"
						below.kind, below.marker = ItalicSpan, "*"
					}
				}
				for n > 0 {
					if t := top(); t.kind == BoldSpan && n >= 2 {
						closeTop()
						n -= 2
					} else if t.kind == ItalicSpan {
						closeTop()
						n--
					} else {
						break
					}
				}
			}
			if n > 0 && canOpen {
				for n >= 2 {
					push(BoldSpan, "**", i)
					n -= 2
				}
				if n == 1 {
					push(ItalicSpan, "*", i)
					n = 0
				}
			}
			buf.WriteString(strings.Repeat("*", n))
			i = j

		case strings.HasPrefix(s[i:], "~~"):
			canClose, canOpen := flanking(s, i, i+2)
			flush()
			if canClose && top().kind == StrikeSpan {
				closeTop()
			} else if canOpen {
				push(StrikeSpan, "~~", i)
			} else {
				buf.WriteString("~~")
			}
			i += 2

		case strings.HasPrefix(s[i:], "<u>"):
			flush()
			push(UnderlineSpan, "<u>", i)
			i += 3

		case strings.HasPrefix(s[i:], "</u>"):
			flush()
			if top().kind == UnderlineSpan {
				closeTop()
			} else {
				buf.WriteString("</u>")
			}
			i += 4

		case s[i] == '[':
			if m := linkMarkup.FindStringSubmatch(s[i:]); m != nil {
				flush()
				t := top()
				t.children = append(t.children, Span{
					Kind:     LinkSpan,
					Href:     m[2],
					Children: []Span{{Kind: TextSpan, Text: m[1]}},
				})
				i += len(m[0])
				continue
			}
			buf.WriteByte('[')
			i++

		default:
			buf.WriteByte(s[i])
			i++
		}
	}
	flush()

	// Unclosed openers fall back to literal text inside their parent
	for len(stack) > 1 {
		f := top()
		stack = stack[:len(stack)-1]
		parent := top()
		parent.children = appendText(parent.children, f.marker)
		for _, c := range f.children {
			if c.Kind == TextSpan {
				parent.children = appendText(parent.children, c.Text)
			} else {
				parent.children = append(parent.children, c)
			}
		}
	}

	return stack[0].children
}

func closingMarker(f *frame) string {
	if f.kind == UnderlineSpan {
		return "</u>"
	}
	return f.marker
}

// flanking reports whether the delimiter run s[i:j] can close (preceded by
// a non-space) and can open (followed by a non-space).
func flanking(s string, i, j int) (canClose, canOpen bool) {
	if i > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:i])
		canClose = !unicode.IsSpace(r)
	}
	if j < len(s) {
		r, _ := utf8.DecodeRuneInString(s[j:])
		canOpen = !unicode.IsSpace(r)
	}
	return canClose, canOpen
}

func appendText(spans []Span, text string) []Span {
	if text == "" {
		return spans
	}
	if n := len(spans); n > 0 && spans[n-1].Kind == TextSpan {
		spans[n-1].Text += text
		return spans
	}
	return append(spans, Span{Kind: TextSpan, Text: text})
}

// FormatMarkup serializes lines back to canonical text. Consecutive numbered
// lines are numbered from 1; spans with no visible text are dropped.
func FormatMarkup(lines []Line) string {
	var b strings.Builder
	number := 0
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch l.List {
		case BulletList:
			number = 0
			b.WriteString(BulletPrefix)
		case NumberedList:
			number++
			b.WriteString(strconv.Itoa(number))
			b.WriteString(". ")
		default:
			number = 0
		}
		writeMarkup(&b, l.Content)
	}
	return b.String()
}

func writeMarkup(b *strings.Builder, spans []Span) {
	for _, s := range spans {
		if s.Kind != TextSpan && PlainText(s.Children) == "" {
			continue
		}
		switch s.Kind {
		case TextSpan:
			b.WriteString(s.Text)
		case BoldSpan:
			b.WriteString("**")
			writeMarkup(b, s.Children)
			b.WriteString("**")
		case ItalicSpan:
			b.WriteString("*")
			writeMarkup(b, s.Children)
			b.WriteString("*")
		case UnderlineSpan:
			b.WriteString("<u>")
			writeMarkup(b, s.Children)
			b.WriteString("</u>")
		case StrikeSpan:
			b.WriteString("~~")
			writeMarkup(b, s.Children)
			b.WriteString("~~")
		case LinkSpan:
			b.WriteString("[")
			b.WriteString(PlainText(s.Children))
			b.WriteString("](")
			b.WriteString(s.Href)
			b.WriteString(")")
		}
	}
}

// PlainText concatenates the visible text of spans.
func PlainText(spans []Span) string {
	var b strings.Builder
	var walk func([]Span)
	walk = func(spans []Span) {
		for _, s := range spans {
			if s.Kind == TextSpan {
				b.WriteString(s.Text)
				continue
			}
			walk(s.Children)
		}
	}
	walk(spans)
	return b.String()
}
