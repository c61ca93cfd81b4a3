package vdom

// VKind is the node type discriminator.
type VKind uint8

const (
	KindElement   VKind = iota // <div>, <button>, etc.
	KindText                   // Plain text node
	KindComment                // Comment / placeholder node
	KindComponent              // Nested component boundary
)

// String returns the string representation of the VKind.
func (k VKind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindComment:
		return "Comment"
	case KindComponent:
		return "Component"
	default:
		return "Unknown"
	}
}

// Handle is an opaque native-tree handle owned by the Adapter.
type Handle any

// Props holds attributes, properties, and event bindings. The core
// never interprets them; attribute/style/event modules do.
type Props map[string]any

// VNode is one node of the virtual tree. Produced fresh on every
// render evaluation; the previous generation is retained only long
// enough to diff against the new one.
type VNode struct {
	Kind     VKind    // Node type
	Tag      string   // Element tag name (e.g., "div")
	Props    Props    // Attributes and event handlers (opaque)
	Children []*VNode // Child nodes
	Key      string   // Reconciliation key, unique among siblings
	Text     string   // For KindText/KindComment, or terminal element text

	// Comp carries the component payload for KindComponent nodes,
	// consumed by the component-instantiation collaborator.
	Comp Component

	// Instance is attached by the component collaborator so the next
	// generation can find the live instance. Opaque to the core.
	Instance any

	// Handle is the native-tree handle this node last produced.
	// Filled in by the Patcher, never by the producer.
	Handle Handle

	// Static marks a node proven free of reactive reads; StaticRoot
	// marks a maximal static subtree worth reusing verbatim. Set by
	// the production step, honored by the Patcher.
	Static     bool
	StaticRoot bool
}

// Same reports whether a and b are the same logical node across a
// diff: equal key, equal kind, equal tag, and matching component-ness.
// Sameness decides reuse of the native handle versus replacement.
func Same(a, b *VNode) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Key == b.Key &&
		a.Kind == b.Kind &&
		a.Tag == b.Tag &&
		(a.Comp == nil) == (b.Comp == nil)
}

// Component is anything that can render to a VNode.
type Component interface {
	Render() *VNode
}

// FuncComponent wraps a render function.
type FuncComponent struct {
	render func() *VNode
}

// Render implements Component.
func (f *FuncComponent) Render() *VNode {
	return f.render()
}

// Func creates a component from a render function.
func Func(render func() *VNode) Component {
	return &FuncComponent{render: render}
}
