package vdom

// Element creates an element node.
func Element(tag string, props Props, children ...*VNode) *VNode {
	return &VNode{Kind: KindElement, Tag: tag, Props: props, Children: children}
}

// KeyedElement creates an element node with a reconciliation key.
func KeyedElement(tag, key string, props Props, children ...*VNode) *VNode {
	n := Element(tag, props, children...)
	n.Key = key
	return n
}

// Text creates a text node.
func Text(text string) *VNode {
	return &VNode{Kind: KindText, Text: text}
}

// Comment creates a comment node.
func Comment(text string) *VNode {
	return &VNode{Kind: KindComment, Text: text}
}

// Mount wraps a component into a component-boundary node.
func Mount(c Component, props Props) *VNode {
	return &VNode{Kind: KindComponent, Comp: c, Props: props}
}

// Static marks a node (and by convention its subtree) as free of
// reactive reads, letting the patcher reuse it verbatim.
func Static(n *VNode) *VNode {
	n.Static = true
	n.StaticRoot = true
	return n
}

// Common HTML shorthands used by the demo app and tests.

// Div creates a <div> element.
func Div(props Props, children ...*VNode) *VNode {
	return Element("div", props, children...)
}

// Span creates a <span> element.
func Span(props Props, children ...*VNode) *VNode {
	return Element("span", props, children...)
}

// Button creates a <button> element.
func Button(props Props, children ...*VNode) *VNode {
	return Element("button", props, children...)
}

// Ul creates a <ul> element.
func Ul(props Props, children ...*VNode) *VNode {
	return Element("ul", props, children...)
}

// Li creates a keyed <li> element.
func Li(key string, props Props, children ...*VNode) *VNode {
	return KeyedElement("li", key, props, children...)
}

// H1 creates an <h1> element.
func H1(props Props, children ...*VNode) *VNode {
	return Element("h1", props, children...)
}

// P creates a <p> element.
func P(props Props, children ...*VNode) *VNode {
	return Element("p", props, children...)
}
