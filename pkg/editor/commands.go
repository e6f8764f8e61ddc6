package editor

import (
	"fmt"
	"log/slog"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/prasanthmj/composer/pkg/formatting"
)

// Command is a formatting command executed against the current selection.
type Command string

const (
	CmdBold                Command = "bold"
	CmdItalic              Command = "italic"
	CmdUnderline           Command = "underline"
	CmdStrikethrough       Command = "strikethrough"
	CmdInsertLink          Command = "insert_link"
	CmdInsertOrderedList   Command = "insert_ordered_list"
	CmdInsertUnorderedList Command = "insert_unordered_list"
)

func ParseCommand(s string) (Command, error) {
	switch c := Command(s); c {
	case CmdBold, CmdItalic, CmdUnderline, CmdStrikethrough,
		CmdInsertLink, CmdInsertOrderedList, CmdInsertUnorderedList:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}

// ApplyFormatting runs cmd at the current selection, then re-reads the tree
// and reports both the canonical text and the new format state. value is
// the link url for CmdInsertLink; preview, when set, is inserted as the link
// text in place of the selection.
func (s *Surface) ApplyFormatting(cmd Command, value, preview string) error {
	if !s.live {
		return ErrNotInitialized
	}
	s.normalize()
	s.heal()

	var err error
	switch cmd {
	case CmdBold:
		s.toggleInline(formatting.BoldSpan, atom.Strong)
	case CmdItalic:
		s.toggleInline(formatting.ItalicSpan, atom.Em)
	case CmdUnderline:
		s.toggleInline(formatting.UnderlineSpan, atom.U)
	case CmdStrikethrough:
		s.toggleInline(formatting.StrikeSpan, atom.Del)
	case CmdInsertOrderedList:
		s.toggleList(atom.Ol)
	case CmdInsertUnorderedList:
		s.toggleList(atom.Ul)
	case CmdInsertLink:
		err = s.insertLink(value, preview)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}
	if err != nil {
		return err
	}

	s.log.Debug("editor command applied", slog.String("command", string(cmd)))
	s.heal()
	s.prune()
	s.Input()
	s.SelectionChanged()
	return nil
}

func hasKind(kind formatting.SpanKind) func(*html.Node) bool {
	return func(n *html.Node) bool {
		m, ok := markFor(n)
		return ok && m.kind == kind
	}
}

// toggleInline toggles an inline format. A collapsed caret gets a
// placeholder text node inside (or lifted out of) the format element so the
// next typed text picks up the new state.
func (s *Surface) toggleInline(kind formatting.SpanKind, tag atom.Atom) {
	match := hasKind(kind)

	if s.collapsed() {
		n := s.start.Node
		z := n
		if n.Data == "" || visibleText(n.Data) != "" {
			tail := splitText(n, s.start.Offset)
			z = newText(zwsp)
			n.Parent.InsertBefore(z, tail)
		}
		if el := closest(z, s.root, match); el != nil {
			for el != nil {
				liftOut(z, el)
				el = closest(z, s.root, match)
			}
		} else {
			wrap(z, newElement(tag))
		}
		s.collapse(Position{Node: z, Offset: len(z.Data)})
		return
	}

	var visible []*html.Node
	for _, t := range s.selectedTextNodes() {
		if !ignorable(t) {
			visible = append(visible, t)
		}
	}
	if len(visible) == 0 {
		return
	}

	all := true
	for _, t := range visible {
		if closest(t, s.root, match) == nil {
			all = false
			break
		}
	}
	for _, t := range visible {
		switch {
		case all:
			for el := closest(t, s.root, match); el != nil; el = closest(t, s.root, match) {
				liftOut(t, el)
			}
		case closest(t, s.root, match) == nil:
			wrap(t, newElement(tag))
		}
	}

	last := visible[len(visible)-1]
	s.start = Position{Node: visible[0]}
	s.end = Position{Node: last, Offset: len(last.Data)}
}

// toggleList turns the selected lines into items of a list. If they already
// all are items of that kind of list, they become plain lines instead.
func (s *Surface) toggleList(tag atom.Atom) {
	first, last := s.lineOf(s.start.Node), s.lineOf(s.end.Node)
	if first == nil || last == nil {
		return
	}

	var selected []*html.Node
	in := false
	for _, l := range s.lineBlocks() {
		if l == first {
			in = true
		}
		if in {
			selected = append(selected, l)
		}
		if l == last {
			break
		}
	}

	all := true
	for _, l := range selected {
		if l.DataAtom != atom.Li || l.Parent == nil || l.Parent.DataAtom != tag {
			all = false
			break
		}
	}

	blocks := make([]*html.Node, 0, len(selected))
	for _, l := range selected {
		if l.DataAtom == atom.Li {
			l = unlistItem(l)
		}
		blocks = append(blocks, l)
	}
	if !all {
		wrapInList(blocks, tag)
	}
}

// insertLink inserts a new link at the caret, or links the selected text
// when there is no preview text to insert.
func (s *Surface) insertLink(url, preview string) error {
	if url == "" {
		return ErrEmptyURL
	}

	if preview != "" || s.collapsed() {
		if !s.collapsed() {
			s.deleteSelection()
		}
		text := preview
		if text == "" {
			text = url
		}
		n := s.start.Node
		tail := splitText(n, s.start.Offset)
		a := newElement(atom.A)
		a.Attr = []html.Attribute{{Key: "href", Val: url}}
		a.AppendChild(newText(text))
		n.Parent.InsertBefore(a, tail)
		s.collapse(Position{Node: tail})
		return nil
	}

	var visible []*html.Node
	for _, t := range s.selectedTextNodes() {
		if !ignorable(t) {
			visible = append(visible, t)
		}
	}
	if len(visible) == 0 {
		return nil
	}
	isLink := hasKind(formatting.LinkSpan)
	for _, t := range visible {
		if a := closest(t, s.root, isLink); a != nil {
			setAttr(a, "href", url)
			continue
		}
		a := newElement(atom.A)
		a.Attr = []html.Attribute{{Key: "href", Val: url}}
		wrap(t, a)
	}
	last := visible[len(visible)-1]
	s.start = Position{Node: visible[0]}
	s.end = Position{Node: last, Offset: len(last.Data)}
	return nil
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
