package editor

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func isList(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && (n.DataAtom == atom.Ul || n.DataAtom == atom.Ol)
}

// isLineBlock reports an element that holds one line: a list item or a
// non-list block.
func isLineBlock(n *html.Node) bool {
	return isBlock(n) && !isList(n)
}

func shallowClone(n *html.Node) *html.Node {
	c := &html.Node{Type: n.Type, Data: n.Data, DataAtom: n.DataAtom, Namespace: n.Namespace}
	if len(n.Attr) > 0 {
		c.Attr = append([]html.Attribute(nil), n.Attr...)
	}
	return c
}

func insertAfter(n, ref *html.Node) {
	ref.Parent.InsertBefore(n, ref.NextSibling)
}

func moveChildren(from, to *html.Node) {
	for c := from.FirstChild; c != nil; {
		next := c.NextSibling
		from.RemoveChild(c)
		to.AppendChild(c)
		c = next
	}
}

// moveFrom moves n and all of its following siblings to the end of to.
func moveFrom(n, to *html.Node) {
	for c := n; c != nil; {
		next := c.NextSibling
		c.Parent.RemoveChild(c)
		to.AppendChild(c)
		c = next
	}
}

func wrap(n, el *html.Node) {
	n.Parent.InsertBefore(el, n)
	n.Parent.RemoveChild(n)
	el.AppendChild(n)
}

// splitText cuts a text node at a byte offset. The tail, possibly empty, is
// inserted right after n and returned.
func splitText(n *html.Node, off int) *html.Node {
	off = max(0, min(off, len(n.Data)))
	tail := newText(n.Data[off:])
	n.Data = n.Data[:off]
	insertAfter(tail, n)
	return tail
}

// liftOut moves n out of its ancestor target so that it becomes a sibling
// of target. Ancestors between the two are split; n keeps copies of them.
func liftOut(n, target *html.Node) {
	stop := target.Parent
	for n.Parent != nil && n.Parent != stop {
		p := n.Parent
		right := shallowClone(p)
		if n.NextSibling != nil {
			moveFrom(n.NextSibling, right)
		}

		moved := n
		if p != target {
			moved = shallowClone(p)
			p.RemoveChild(n)
			moved.AppendChild(n)
		} else {
			p.RemoveChild(n)
		}
		insertAfter(moved, p)
		if right.FirstChild != nil {
			insertAfter(right, moved)
		}
		if p.FirstChild == nil {
			p.Parent.RemoveChild(p)
		}
		n = moved
	}
}

// splitBlock splits block at pos. Everything after the position moves into
// a copy of block inserted after it; inline ancestors are copied along.
func splitBlock(block *html.Node, pos Position) *html.Node {
	cur := splitText(pos.Node, pos.Offset)
	for {
		p := cur.Parent
		clone := shallowClone(p)
		moveFrom(cur, clone)
		insertAfter(clone, p)
		if p == block {
			return clone
		}
		cur = clone
	}
}

func textNodes(root *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				out = append(out, c)
				continue
			}
			walk(c)
		}
	}
	walk(root)
	return out
}

func firstText(n *html.Node) *html.Node {
	if texts := textNodes(n); len(texts) > 0 {
		return texts[0]
	}
	return nil
}

func hasVisibleText(n *html.Node) bool {
	for _, t := range textNodes(n) {
		if !ignorable(t) {
			return true
		}
	}
	return false
}

func closest(n *html.Node, stop *html.Node, match func(*html.Node) bool) *html.Node {
	for p := n.Parent; p != nil && p != stop; p = p.Parent {
		if match(p) {
			return p
		}
	}
	return nil
}

// ensureLineContent gives a line block a text node for the caret and a
// placeholder <br> when it has no visible text.
func ensureLineContent(block *html.Node) {
	if firstText(block) == nil {
		block.InsertBefore(newText(""), block.FirstChild)
	}
	if hasVisibleText(block) {
		return
	}
	for c := block.FirstChild; c != nil; c = c.NextSibling {
		if c.DataAtom == atom.Br {
			return
		}
	}
	block.AppendChild(newElement(atom.Br))
}

// dropPlaceholder removes a trailing placeholder <br> from block.
func dropPlaceholder(block *html.Node) {
	for c := block.LastChild; c != nil; c = c.PrevSibling {
		if ignorable(c) {
			continue
		}
		if c.Type == html.ElementNode && c.DataAtom == atom.Br {
			block.RemoveChild(c)
		}
		return
	}
}

// removeLine detaches a line block and any list left empty by it.
func removeLine(block *html.Node) {
	parent := block.Parent
	parent.RemoveChild(block)
	if isList(parent) && closestChild(parent, func(c *html.Node) bool { return c.DataAtom == atom.Li }) == nil {
		parent.Parent.RemoveChild(parent)
	}
}

func closestChild(n *html.Node, match func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && match(c) {
			return c
		}
	}
	return nil
}

// unlistItem turns a list item into a plain <div> in place. The list is
// split around it and dropped if nothing is left in it.
func unlistItem(li *html.Node) *html.Node {
	div := newElement(atom.Div)
	list := li.Parent
	if !isList(list) {
		list.InsertBefore(div, li)
		moveChildren(li, div)
		list.RemoveChild(li)
		ensureLineContent(div)
		return div
	}

	after := shallowClone(list)
	if li.NextSibling != nil {
		moveFrom(li.NextSibling, after)
	}
	moveChildren(li, div)
	list.RemoveChild(li)
	insertAfter(div, list)
	if closestChild(after, func(c *html.Node) bool { return c.DataAtom == atom.Li }) != nil {
		insertAfter(after, div)
	}
	if closestChild(list, func(c *html.Node) bool { return c.DataAtom == atom.Li }) == nil {
		list.Parent.RemoveChild(list)
	}
	ensureLineContent(div)
	return div
}

// wrapInList converts line blocks into items of a list of the given tag,
// joining adjacent lists of the same tag.
func wrapInList(blocks []*html.Node, tag atom.Atom) {
	var list *html.Node
	for _, b := range blocks {
		li := newElement(atom.Li)
		moveChildren(b, li)
		if list == nil || b.PrevSibling != list {
			if p := b.PrevSibling; isList(p) && p.DataAtom == tag {
				list = p
			} else {
				list = newElement(tag)
				b.Parent.InsertBefore(list, b)
			}
		}
		list.AppendChild(li)
		b.Parent.RemoveChild(b)
		ensureLineContent(li)
	}
	if list == nil {
		return
	}
	if next := list.NextSibling; isList(next) && next.DataAtom == tag {
		moveChildren(next, list)
		next.Parent.RemoveChild(next)
	}
}
