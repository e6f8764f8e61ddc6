// Package editor implements the rich editing surface: a live node tree kept
// in sync with canonical message text, with caret-relative format state and
// formatting commands applied to the tree in place.
//
// The tree is golang.org/x/net/html nodes, so the surface can be driven
// without a browser; a front end mirrors its HTML and forwards input.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/prasanthmj/composer/pkg/formatting"
)

var (
	ErrNotInitialized  = errors.New("editor is not initialized")
	ErrUnknownCommand  = errors.New("unknown editor command")
	ErrEmptyURL        = errors.New("link url is required")
	ErrInvalidPosition = errors.New("invalid position")
)

// Position is a caret location: a text node and a byte offset into its data.
type Position struct {
	Node   *html.Node
	Offset int
}

// Surface owns the editable tree. It is painted once from canonical text by
// Initialize; afterwards canonical text is only derived from the tree.
type Surface struct {
	root       *html.Node
	start, end Position
	live       bool
	focused    bool
	canonical  string

	onChange func(string)
	onFormat func(formatting.FormatState)
	log      *slog.Logger
}

type Option func(*Surface)

func WithLogger(log *slog.Logger) Option {
	return func(s *Surface) { s.log = log }
}

func NewSurface(opts ...Option) *Surface {
	s := &Surface{
		root: newElement(atom.Div),
		log:  slog.New(slog.DiscardHandler),
	}
	s.root.Attr = []html.Attribute{{Key: "contenteditable", Val: "true"}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers the callback receiving canonical text after every edit.
func (s *Surface) OnChange(fn func(string)) { s.onChange = fn }

// OnFormatStateChange registers the callback receiving the format state after
// selection changes and commands.
func (s *Surface) OnFormatStateChange(fn func(formatting.FormatState)) { s.onFormat = fn }

// Initialize paints text into the surface. It only has an effect the first
// time; later calls return false and leave the tree and caret alone.
func (s *Surface) Initialize(text string) bool {
	if s.live {
		return false
	}
	for _, n := range CanonicalToNodes(text) {
		s.root.AppendChild(n)
	}
	s.live = true
	s.canonical = NodesToCanonical(s.root)
	s.collapse(s.endOfDocument())
	s.log.Debug("editor initialized", slog.Int("length", len(s.canonical)))
	return true
}

func (s *Surface) Live() bool { return s.live }

// Root exposes the tree for callers that mutate it directly. Call Input
// afterwards.
func (s *Surface) Root() *html.Node { return s.root }

// HTML renders the current tree content.
func (s *Surface) HTML() string {
	var b strings.Builder
	for c := s.root.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&b, c)
	}
	return b.String()
}

// Canonical returns the canonical text derived by the last input.
func (s *Surface) Canonical() string { return s.canonical }

// PlainText is the visible text, lines separated by "\n". Selection offsets
// are byte offsets into it.
func (s *Surface) PlainText() string {
	return formatting.StripFormatting(NodesToCanonical(s.root))
}

// Input re-reads the tree after it changed and reports the canonical text.
func (s *Surface) Input() {
	s.canonical = NodesToCanonical(s.root)
	if s.onChange != nil {
		s.onChange(s.canonical)
	}
}

// ReplaceHTML swaps the whole tree for src, as an external edit would, and
// runs the input transition.
func (s *Surface) ReplaceHTML(src string) error {
	nodes, err := html.ParseFragment(strings.NewReader(src), newElement(atom.Div))
	if err != nil {
		return err
	}
	for c := s.root.FirstChild; c != nil; {
		next := c.NextSibling
		s.root.RemoveChild(c)
		c = next
	}
	for _, n := range nodes {
		s.root.AppendChild(n)
	}
	s.live = true
	s.normalize()
	s.collapse(s.endOfDocument())
	s.Input()
	return nil
}

// Focus puts the caret into the surface, at the end if it has none yet.
func (s *Surface) Focus() {
	s.focused = true
	if s.start.Node == nil || !s.attached(s.start.Node) {
		s.collapse(s.endOfDocument())
	}
}

func (s *Surface) Focused() bool { return s.focused }

// Select sets the selection by plain-text byte offsets.
func (s *Surface) Select(start, end int) error {
	if !s.live {
		return ErrNotInitialized
	}
	if start > end {
		start, end = end, start
	}
	refs := s.refs()
	s.start = s.position(refs, start)
	s.end = s.position(refs, end)
	s.SelectionChanged()
	return nil
}

// SelectRange sets the selection to node positions, as a selection-change
// event from the front end would.
func (s *Surface) SelectRange(start, end Position) error {
	if !s.live {
		return ErrNotInitialized
	}
	if start.Node == nil || !s.attached(start.Node) || end.Node == nil || !s.attached(end.Node) {
		return fmt.Errorf("%w: position outside the editor", ErrInvalidPosition)
	}
	s.start, s.end = start, end
	s.SelectionChanged()
	return nil
}

// Selection returns the selection as plain-text byte offsets.
func (s *Surface) Selection() (int, int) {
	refs := s.refs()
	return s.plainOffset(refs, s.start), s.plainOffset(refs, s.end)
}

// SelectionChanged recomputes the format state and reports it.
func (s *Surface) SelectionChanged() {
	st := s.FormatState()
	if s.onFormat != nil {
		s.onFormat(st)
	}
}

// FormatState walks from the selection anchor up to the root.
func (s *Surface) FormatState() formatting.FormatState {
	var st formatting.FormatState
	if s.start.Node == nil {
		return st
	}
	for p := s.start.Node.Parent; p != nil && p != s.root; p = p.Parent {
		switch p.DataAtom {
		case atom.B, atom.Strong:
			st.Bold = true
		case atom.I, atom.Em:
			st.Italic = true
		case atom.U:
			st.Underline = true
		case atom.Del, atom.S, atom.Strike:
			st.Strikethrough = true
		case atom.A:
			st.Link = true
		case atom.Ol:
			st.OrderedList = true
		case atom.Ul:
			st.UnorderedList = true
		case atom.Li:
			switch {
			case p.Parent != nil && p.Parent.DataAtom == atom.Ol:
				st.OrderedList = true
			case p.Parent != nil && p.Parent.DataAtom == atom.Ul:
				st.UnorderedList = true
			}
		}
	}
	return st
}

var _ formatting.FormatStateProvider = (*Surface)(nil)

// Type inserts text at the caret, replacing any selection. "\n" starts a new
// line the way Enter does.
func (s *Surface) Type(text string) error {
	if !s.live {
		return ErrNotInitialized
	}
	s.normalize()
	s.heal()
	for i, part := range strings.Split(text, "\n") {
		if i > 0 {
			s.insertParagraph()
		}
		s.insertText(part)
	}
	s.prune()
	s.Input()
	s.SelectionChanged()
	return nil
}

// HandlePaste inserts the plain clipboard text. Rich clipboard content is
// always discarded.
func (s *Surface) HandlePaste(plain, rich string) error {
	if rich != "" {
		s.log.Debug("discarding rich clipboard content", slog.Int("length", len(rich)))
	}
	plain = strings.ReplaceAll(plain, "\r\n", "\n")
	return s.Type(plain)
}

// HandleKey applies the list refinements for Enter and Backspace. It
// reports whether the key was consumed; if not, the default behavior should
// run.
func (s *Surface) HandleKey(key string) bool {
	if !s.live || !s.collapsed() {
		return false
	}
	li := closest(s.start.Node, s.root, func(n *html.Node) bool { return n.DataAtom == atom.Li })
	if li == nil {
		return false
	}

	switch key {
	case "Enter":
		// Enter in an empty item leaves the list
		if hasVisibleText(li) {
			return false
		}
		div := unlistItem(li)
		s.collapse(Position{Node: firstText(div)})
	case "Backspace":
		// Backspace at the start of an item un-lists it
		if !s.atStartOf(li, s.start) {
			return false
		}
		unlistItem(li)
	default:
		return false
	}

	s.heal()
	s.prune()
	s.Input()
	s.SelectionChanged()
	return true
}

// PressKey runs HandleKey and falls back to the default editing behavior of
// Enter and Backspace.
func (s *Surface) PressKey(key string) error {
	if !s.live {
		return ErrNotInitialized
	}
	if s.HandleKey(key) {
		return nil
	}
	s.normalize()
	s.heal()
	switch key {
	case "Enter":
		s.insertParagraph()
	case "Backspace":
		s.deleteBackward()
	default:
		return nil
	}
	s.heal()
	s.prune()
	s.Input()
	s.SelectionChanged()
	return nil
}

func (s *Surface) collapsed() bool { return s.start == s.end }

func (s *Surface) collapse(p Position) {
	s.start, s.end = p, p
}

func (s *Surface) attached(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == s.root {
			return true
		}
	}
	return false
}

func (s *Surface) refs() []textRef {
	w := newWalker()
	w.children(s.root, nil)
	return w.refs
}

func (s *Surface) plainOffset(refs []textRef, p Position) int {
	for _, r := range refs {
		if r.node != p.Node {
			continue
		}
		if ignorable(r.node) {
			return r.start
		}
		return r.start + len(visibleText(r.node.Data[:min(p.Offset, len(r.node.Data))]))
	}
	return 0
}

// position maps a plain-text offset to a caret. Text carrying content wins
// over empty caret holders at the same offset.
func (s *Surface) position(refs []textRef, off int) Position {
	var holder *html.Node
	for _, r := range refs {
		if ignorable(r.node) {
			if holder == nil && r.start == off {
				holder = r.node
			}
			continue
		}
		n := len(visibleText(r.node.Data))
		if off >= r.start && off <= r.start+n {
			return Position{Node: r.node, Offset: byteOffset(r.node.Data, off-r.start)}
		}
	}
	if holder != nil {
		return Position{Node: holder, Offset: len(holder.Data)}
	}
	return s.endOfDocument()
}

// byteOffset converts an offset in visible text to an offset in data,
// skipping caret placeholders.
func byteOffset(data string, visible int) int {
	i, count := 0, 0
	for i < len(data) && count < visible {
		if strings.HasPrefix(data[i:], zwsp) {
			i += len(zwsp)
			continue
		}
		i++
		count++
	}
	return i
}

func (s *Surface) endOfDocument() Position {
	texts := textNodes(s.root)
	if len(texts) == 0 {
		s.normalize()
		texts = textNodes(s.root)
	}
	if len(texts) == 0 {
		div := newElement(atom.Div)
		s.root.AppendChild(div)
		ensureLineContent(div)
		texts = textNodes(s.root)
	}
	last := texts[len(texts)-1]
	for i := len(texts) - 1; i >= 0; i-- {
		if s.lineOf(texts[i]) != nil {
			last = texts[i]
			break
		}
	}
	return Position{Node: last, Offset: len(last.Data)}
}

// atStartOf reports whether no visible text precedes p inside block.
func (s *Surface) atStartOf(block *html.Node, p Position) bool {
	for _, t := range textNodes(block) {
		if t == p.Node {
			return visibleText(t.Data[:min(p.Offset, len(t.Data))]) == ""
		}
		if !ignorable(t) {
			return false
		}
	}
	return false
}

// lineOf returns the line block holding n.
func (s *Surface) lineOf(n *html.Node) *html.Node {
	return closest(n, s.root, isLineBlock)
}

// lineBlocks lists the line blocks in document order.
func (s *Surface) lineBlocks() []*html.Node {
	var out []*html.Node
	seen := make(map[*html.Node]bool)
	for _, t := range textNodes(s.root) {
		if l := s.lineOf(t); l != nil && !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}

// normalize wraps inline content sitting directly in the root into <div>
// lines and gives every line block a caret holder. Canonical text is not
// changed by it.
func (s *Surface) normalize() {
	for c := s.root.FirstChild; c != nil; {
		if isBlock(c) || ignorable(c) {
			c = c.NextSibling
			continue
		}
		if c.DataAtom == atom.Br && c.Type == html.ElementNode && isPlaceholderBR(c) {
			next := c.NextSibling
			s.root.RemoveChild(c)
			c = next
			continue
		}

		div := newElement(atom.Div)
		s.root.InsertBefore(div, c)
		for c != nil && !isBlock(c) && !(c.Type == html.ElementNode && c.DataAtom == atom.Br) {
			next := c.NextSibling
			s.root.RemoveChild(c)
			div.AppendChild(c)
			c = next
		}
		if c != nil && c.Type == html.ElementNode && c.DataAtom == atom.Br {
			next := c.NextSibling
			s.root.RemoveChild(c)
			c = next
		}
		ensureLineContent(div)
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !isBlock(c) {
				continue
			}
			if isLineBlock(c) && closestChild(c, isBlock) == nil {
				ensureLineContent(c)
			}
			walk(c)
		}
	}
	walk(s.root)
}

// heal moves a caret that was detached by a tree change back into the
// document: into the first list item if there is one, else to the end.
func (s *Surface) heal() {
	if s.start.Node != nil && s.attached(s.start.Node) {
		if s.end.Node == nil || !s.attached(s.end.Node) {
			s.end = s.start
		}
		return
	}

	s.log.Debug("relocating detached caret")
	var li *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		for c := n.FirstChild; c != nil && li == nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.Li {
				li = c
				return
			}
			find(c)
		}
	}
	find(s.root)
	if li != nil {
		ensureLineContent(li)
		s.collapse(Position{Node: firstText(li)})
		return
	}
	s.collapse(s.endOfDocument())
}

// prune drops empty text nodes and empty inline elements left behind by
// splits, keeping the caret nodes.
func (s *Surface) prune() {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			walk(c)
			switch {
			case c == s.start.Node || c == s.end.Node:
			case c.Type == html.TextNode && c.Data == "" && !isBlock(n) && n != s.root:
				n.RemoveChild(c)
			case c.Type == html.ElementNode && !isBlock(c) && c.DataAtom != atom.Br && c.FirstChild == nil:
				n.RemoveChild(c)
			}
			c = next
		}
	}
	walk(s.root)
}

func (s *Surface) insertText(t string) {
	if !s.collapsed() {
		s.deleteSelection()
	}
	if t == "" {
		return
	}
	p := s.start
	if visibleText(p.Node.Data) == "" && p.Node.Data != "" {
		// replace a caret placeholder
		p.Node.Data = t
		s.collapse(Position{Node: p.Node, Offset: len(t)})
	} else {
		off := min(p.Offset, len(p.Node.Data))
		p.Node.Data = p.Node.Data[:off] + t + p.Node.Data[off:]
		s.collapse(Position{Node: p.Node, Offset: off + len(t)})
	}
	if block := s.lineOf(p.Node); block != nil && hasVisibleText(block) {
		dropPlaceholder(block)
	}
}

// insertParagraph splits the current line at the caret.
func (s *Surface) insertParagraph() {
	if !s.collapsed() {
		s.deleteSelection()
	}
	block := s.lineOf(s.start.Node)
	if block == nil {
		return
	}
	right := splitBlock(block, s.start)
	ensureLineContent(block)
	ensureLineContent(right)
	s.collapse(Position{Node: firstText(right)})
}

// deleteBackward removes the visible character before the caret, or joins
// the line with the previous one when the caret is at its start.
func (s *Surface) deleteBackward() {
	if !s.collapsed() {
		s.deleteSelection()
		return
	}

	block := s.lineOf(s.start.Node)
	if block == nil {
		return
	}
	texts := textNodes(block)
	idx := -1
	for i, t := range texts {
		if t == s.start.Node {
			idx = i
			break
		}
	}

	n, off := s.start.Node, s.start.Offset
	for idx >= 0 {
		d := n.Data[:min(off, len(n.Data))]
		for strings.HasSuffix(d, zwsp) {
			d = d[:len(d)-len(zwsp)]
		}
		if d != "" {
			_, size := utf8.DecodeLastRuneInString(d)
			n.Data = d[:len(d)-size] + n.Data[off:]
			if n == s.start.Node {
				s.collapse(Position{Node: n, Offset: len(d) - size})
			}
			return
		}
		idx--
		if idx >= 0 {
			n = texts[idx]
			off = len(n.Data)
		}
	}

	lines := s.lineBlocks()
	for i, l := range lines {
		if l != block || i == 0 {
			continue
		}
		prev := lines[i-1]
		dropPlaceholder(prev)
		moveChildren(block, prev)
		removeLine(block)
		ensureLineContent(prev)
		return
	}
}

// selectedTextNodes splits the text at both selection ends and returns every
// text node inside the selection in document order. The selection start is
// left collapsed at the end of the text before the range.
func (s *Surface) selectedTextNodes() []*html.Node {
	splitText(s.end.Node, s.end.Offset)
	endNode := s.end.Node

	first := splitText(s.start.Node, s.start.Offset)
	if s.start.Node == endNode {
		endNode = first
	}

	var out []*html.Node
	in := false
	for _, t := range textNodes(s.root) {
		if t == first {
			in = true
		}
		if in {
			out = append(out, t)
		}
		if t == endNode {
			break
		}
	}
	s.collapse(Position{Node: s.start.Node, Offset: len(s.start.Node.Data)})
	return out
}

// deleteSelection removes the selected text and joins the first and last
// selected lines.
func (s *Surface) deleteSelection() {
	firstLine, lastLine := s.lineOf(s.start.Node), s.lineOf(s.end.Node)
	for _, t := range s.selectedTextNodes() {
		t.Data = ""
	}
	if firstLine == nil || lastLine == nil || firstLine == lastLine {
		return
	}

	lines := s.lineBlocks()
	in := false
	for _, l := range lines {
		switch {
		case l == firstLine:
			in = true
		case l == lastLine:
			dropPlaceholder(firstLine)
			moveChildren(l, firstLine)
			removeLine(l)
			ensureLineContent(firstLine)
			return
		case in:
			removeLine(l)
		}
	}
}
