package vdom

import (
	"strings"
	"sync/atomic"
)

// MemNode is one node of the in-memory native tree.
type MemNode struct {
	ID       uint64
	Kind     VKind
	Tag      string
	Text     string
	Parent   *MemNode
	Children []*MemNode
}

// MemDOM is an in-memory Adapter. It backs the test suite, the
// benchmark command, and the structural mirror of the remote adapter.
type MemDOM struct {
	counter atomic.Uint64

	// Created counts handle creations; tests assert on it to check
	// diff minimality.
	Created atomic.Int64

	// Removed counts physical detachments.
	Removed atomic.Int64
}

// NewMemDOM creates an empty in-memory native tree.
func NewMemDOM() *MemDOM {
	return &MemDOM{}
}

// NewRoot creates a detached container node to mount into.
func (d *MemDOM) NewRoot() *MemNode {
	return &MemNode{ID: d.counter.Add(1), Kind: KindElement, Tag: "#root"}
}

// CreateElement implements Adapter.
func (d *MemDOM) CreateElement(n *VNode) Handle {
	d.Created.Add(1)
	return &MemNode{ID: d.counter.Add(1), Kind: KindElement, Tag: n.Tag}
}

// CreateText implements Adapter.
func (d *MemDOM) CreateText(text string) Handle {
	d.Created.Add(1)
	return &MemNode{ID: d.counter.Add(1), Kind: KindText, Text: text}
}

// CreateComment implements Adapter.
func (d *MemDOM) CreateComment(text string) Handle {
	d.Created.Add(1)
	return &MemNode{ID: d.counter.Add(1), Kind: KindComment, Text: text}
}

// Insert implements Adapter. Inserting an attached node moves it.
func (d *MemDOM) Insert(parent, h, before Handle) {
	p := parent.(*MemNode)
	node := h.(*MemNode)

	if node.Parent != nil {
		detach(node)
	}

	idx := len(p.Children)
	if before != nil {
		b := before.(*MemNode)
		for i, c := range p.Children {
			if c == b {
				idx = i
				break
			}
		}
	}

	p.Children = append(p.Children, nil)
	copy(p.Children[idx+1:], p.Children[idx:])
	p.Children[idx] = node
	node.Parent = p
}

// Remove implements Adapter.
func (d *MemDOM) Remove(h Handle) {
	node := h.(*MemNode)
	if node.Parent != nil {
		detach(node)
		d.Removed.Add(1)
	}
}

// SetText implements Adapter.
func (d *MemDOM) SetText(h Handle, text string) {
	h.(*MemNode).Text = text
}

// Parent implements Adapter.
func (d *MemDOM) Parent(h Handle) Handle {
	node := h.(*MemNode)
	if node.Parent == nil {
		return nil
	}
	return node.Parent
}

// NextSibling implements Adapter.
func (d *MemDOM) NextSibling(h Handle) Handle {
	node := h.(*MemNode)
	p := node.Parent
	if p == nil {
		return nil
	}
	for i, c := range p.Children {
		if c == node && i+1 < len(p.Children) {
			return p.Children[i+1]
		}
	}
	return nil
}

func detach(node *MemNode) {
	p := node.Parent
	for i, c := range p.Children {
		if c == node {
			p.Children = append(p.Children[:i], p.Children[i+1:]...)
			break
		}
	}
	node.Parent = nil
}

// TextContent returns the concatenated text of the subtree.
func (n *MemNode) TextContent() string {
	if n.Kind == KindText {
		return n.Text
	}
	var b strings.Builder
	b.WriteString(n.Text)
	for _, c := range n.Children {
		b.WriteString(c.TextContent())
	}
	return b.String()
}

// String renders the subtree in a compact HTML-ish form for test
// failure messages.
func (n *MemNode) String() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *MemNode) write(b *strings.Builder) {
	switch n.Kind {
	case KindText:
		b.WriteString(n.Text)
	case KindComment:
		b.WriteString("<!--")
		b.WriteString(n.Text)
		b.WriteString("-->")
	default:
		b.WriteString("<")
		b.WriteString(n.Tag)
		b.WriteString(">")
		if n.Text != "" {
			b.WriteString(n.Text)
		}
		for _, c := range n.Children {
			c.write(b)
		}
		b.WriteString("</")
		b.WriteString(n.Tag)
		b.WriteString(">")
	}
}
