package editor

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/prasanthmj/composer/pkg/formatting"
)

// zwsp holds a caret inside otherwise empty formatting; it never reaches
// canonical text.
const zwsp = "\u200b"

var blockTags = map[atom.Atom]bool{
	atom.Div:        true,
	atom.P:          true,
	atom.Li:         true,
	atom.Ul:         true,
	atom.Ol:         true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.H5:         true,
	atom.H6:         true,
	atom.Blockquote: true,
	atom.Pre:        true,
	atom.Section:    true,
	atom.Article:    true,
	atom.Header:     true,
	atom.Footer:     true,
}

func isBlock(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && blockTags[n.DataAtom]
}

// mark is one inline formatting ancestor of a text run.
type mark struct {
	kind formatting.SpanKind
	href string
}

func markFor(n *html.Node) (mark, bool) {
	switch n.DataAtom {
	case atom.Strong, atom.B:
		return mark{kind: formatting.BoldSpan}, true
	case atom.Em, atom.I:
		return mark{kind: formatting.ItalicSpan}, true
	case atom.U:
		return mark{kind: formatting.UnderlineSpan}, true
	case atom.Del, atom.S, atom.Strike:
		return mark{kind: formatting.StrikeSpan}, true
	case atom.A:
		if href := attr(n, "href"); href != "" {
			return mark{kind: formatting.LinkSpan, href: href}, true
		}
	}
	return mark{}, false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func listKindOf(list *html.Node) formatting.ListKind {
	if list != nil && list.DataAtom == atom.Ol {
		return formatting.NumberedList
	}
	return formatting.BulletList
}

func visibleText(s string) string {
	return strings.ReplaceAll(s, zwsp, "")
}

// ignorable reports text that carries no content: empty, caret placeholders
// or source formatting whitespace such as "\n  " between tags.
func ignorable(n *html.Node) bool {
	if n.Type != html.TextNode {
		return false
	}
	t := visibleText(n.Data)
	return t == "" || (strings.TrimSpace(t) == "" && strings.Contains(t, "\n"))
}

// isPlaceholderBR reports a <br> that only keeps an empty block open: the
// last meaningful child of a block element.
func isPlaceholderBR(n *html.Node) bool {
	if n.Parent != nil && !isBlock(n.Parent) {
		return false
	}
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if !ignorable(s) {
			return false
		}
	}
	return true
}

type segment struct {
	text  string
	chain []mark
}

type lineBuf struct {
	list formatting.ListKind
	segs []segment
}

// textRef records where a text node's visible text starts in the plain
// rendering of the document.
type textRef struct {
	node  *html.Node
	start int
}

// walker linearizes a node tree into lines of formatted segments. Blocks
// start a new line unless one was just started; a pending break from a
// closed block is applied lazily by the next content.
type walker struct {
	lines       []lineBuf
	atLineStart bool
	needBreak   bool
	plain       int
	refs        []textRef
}

func newWalker() *walker {
	return &walker{lines: []lineBuf{{}}, atLineStart: true}
}

func (w *walker) newline() {
	w.lines = append(w.lines, lineBuf{})
	w.plain++
	w.atLineStart = true
}

func (w *walker) flushBreak() {
	if w.needBreak {
		w.newline()
		w.needBreak = false
	}
}

func (w *walker) blockStart() {
	if !w.atLineStart || w.needBreak {
		w.newline()
	}
	w.needBreak = false
}

func (w *walker) blockEnd() { w.needBreak = true }

func (w *walker) text(n *html.Node, chain []mark) {
	if ignorable(n) {
		start := w.plain
		if w.needBreak {
			start++
		}
		w.refs = append(w.refs, textRef{node: n, start: start})
		return
	}
	t := strings.ReplaceAll(visibleText(n.Data), "\n", " ")
	w.flushBreak()
	w.refs = append(w.refs, textRef{node: n, start: w.plain})
	cur := &w.lines[len(w.lines)-1]
	cur.segs = append(cur.segs, segment{text: t, chain: slices.Clone(chain)})
	w.plain += len(t)
	w.atLineStart = false
}

func (w *walker) children(n *html.Node, chain []mark) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c, chain)
	}
}

func (w *walker) walk(n *html.Node, chain []mark) {
	switch n.Type {
	case html.TextNode:
		w.text(n, chain)
	case html.DocumentNode:
		w.children(n, chain)
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Br:
			if !isPlaceholderBR(n) {
				w.flushBreak()
				w.newline()
			}
			return
		case atom.Script, atom.Style, atom.Head, atom.Title:
			return
		case atom.Li:
			w.blockStart()
			w.lines[len(w.lines)-1].list = listKindOf(n.Parent)
			w.children(n, chain)
			w.blockEnd()
			return
		}
		if m, ok := markFor(n); ok && !slices.ContainsFunc(chain, func(c mark) bool { return c.kind == m.kind }) {
			chain = append(slices.Clip(chain), m)
		}
		block := isBlock(n)
		if block {
			w.blockStart()
		}
		w.children(n, chain)
		if block {
			w.blockEnd()
		}
	}
}

func (w *walker) markup() []formatting.Line {
	lines := make([]formatting.Line, len(w.lines))
	for i, l := range w.lines {
		lines[i] = formatting.Line{List: l.list, Content: buildSpans(l.segs, 0)}
	}
	return lines
}

// buildSpans groups consecutive segments sharing the same mark at depth into
// one span. Link text is flattened; whitespace at the edges of other spans
// is moved outside so the markers stay adjacent to text.
func buildSpans(segs []segment, depth int) []formatting.Span {
	var out []formatting.Span
	for i := 0; i < len(segs); {
		s := segs[i]
		if len(s.chain) == depth {
			out = appendText(out, s.text)
			i++
			continue
		}
		m := s.chain[depth]
		j := i + 1
		for j < len(segs) && len(segs[j].chain) > depth && segs[j].chain[depth] == m {
			j++
		}
		children := buildSpans(segs[i:j], depth+1)
		i = j

		if m.kind == formatting.LinkSpan {
			out = append(out, formatting.Span{
				Kind:     formatting.LinkSpan,
				Href:     m.href,
				Children: []formatting.Span{{Kind: formatting.TextSpan, Text: formatting.PlainText(children)}},
			})
			continue
		}

		lead, children, trail := hoistSpace(children)
		out = appendText(out, lead)
		if len(children) > 0 {
			out = append(out, formatting.Span{Kind: m.kind, Children: children})
		}
		out = appendText(out, trail)
	}
	return out
}

func hoistSpace(spans []formatting.Span) (string, []formatting.Span, string) {
	var lead, trail string
	if len(spans) > 0 && spans[0].Kind == formatting.TextSpan {
		t := spans[0].Text
		rest := strings.TrimLeftFunc(t, unicode.IsSpace)
		lead = t[:len(t)-len(rest)]
		if rest == "" {
			spans = spans[1:]
		} else {
			spans = slices.Clone(spans)
			spans[0].Text = rest
		}
	}
	if n := len(spans); n > 0 && spans[n-1].Kind == formatting.TextSpan {
		t := spans[n-1].Text
		rest := strings.TrimRightFunc(t, unicode.IsSpace)
		trail = t[len(rest):]
		if rest == "" {
			spans = spans[:n-1]
		} else {
			spans = slices.Clone(spans)
			spans[n-1].Text = rest
		}
	}
	return lead, spans, trail
}

func appendText(spans []formatting.Span, text string) []formatting.Span {
	if text == "" {
		return spans
	}
	if n := len(spans); n > 0 && spans[n-1].Kind == formatting.TextSpan {
		spans[n-1].Text += text
		return spans
	}
	return append(spans, formatting.Span{Kind: formatting.TextSpan, Text: text})
}

// NodesToCanonical converts the children of root to canonical text.
func NodesToCanonical(root *html.Node) string {
	w := newWalker()
	w.children(root, nil)
	return formatting.FormatMarkup(w.markup())
}

// HTMLToCanonical parses an HTML fragment and converts it to canonical text.
func HTMLToCanonical(src string) (string, error) {
	root := newElement(atom.Div)
	nodes, err := html.ParseFragment(strings.NewReader(src), root)
	if err != nil {
		return "", err
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return NodesToCanonical(root), nil
}

// CanonicalToNodes builds the editable node tree for canonical text: one
// <div> per plain line and one <ul>/<ol> per run of list lines. Empty lines
// hold an empty text node for the caret and a placeholder <br>.
func CanonicalToNodes(text string) []*html.Node {
	var out []*html.Node
	var list *html.Node
	for _, line := range formatting.ParseMarkup(text) {
		if line.List == formatting.NoList {
			list = nil
			div := newElement(atom.Div)
			appendLine(div, line.Content)
			out = append(out, div)
			continue
		}
		if list == nil || listKindOf(list) != line.List {
			if line.List == formatting.NumberedList {
				list = newElement(atom.Ol)
			} else {
				list = newElement(atom.Ul)
			}
			out = append(out, list)
		}
		li := newElement(atom.Li)
		appendLine(li, line.Content)
		list.AppendChild(li)
	}
	return out
}

// CanonicalToHTML renders CanonicalToNodes as an HTML string.
func CanonicalToHTML(text string) string {
	var b strings.Builder
	for _, n := range CanonicalToNodes(text) {
		_ = html.Render(&b, n)
	}
	return b.String()
}

func appendLine(parent *html.Node, spans []formatting.Span) {
	if len(spans) == 0 {
		parent.AppendChild(newText(""))
		parent.AppendChild(newElement(atom.Br))
		return
	}
	appendSpans(parent, spans)
}

func appendSpans(parent *html.Node, spans []formatting.Span) {
	for _, s := range spans {
		var el *html.Node
		switch s.Kind {
		case formatting.TextSpan:
			parent.AppendChild(newText(s.Text))
			continue
		case formatting.BoldSpan:
			el = newElement(atom.Strong)
		case formatting.ItalicSpan:
			el = newElement(atom.Em)
		case formatting.UnderlineSpan:
			el = newElement(atom.U)
		case formatting.StrikeSpan:
			el = newElement(atom.Del)
		case formatting.LinkSpan:
			el = newElement(atom.A)
			el.Attr = []html.Attribute{{Key: "href", Val: s.Href}}
		default:
			continue
		}
		appendSpans(el, s.Children)
		parent.AppendChild(el)
	}
}

func newElement(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a}
}

func newText(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
