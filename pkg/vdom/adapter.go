package vdom

// Adapter is the native-tree contract: the fixed set of callbacks the
// reconciler invokes to mutate the real UI. Implementations include
// the in-memory MemDOM and the session server's remote adapter.
type Adapter interface {
	// CreateElement creates a native handle for an element node.
	// Children are created and inserted separately.
	CreateElement(n *VNode) Handle

	// CreateText creates a native text node.
	CreateText(text string) Handle

	// CreateComment creates a native comment/placeholder node.
	CreateComment(text string) Handle

	// Insert places h under parent, before the given sibling handle.
	// A nil before appends. Inserting an already-attached handle
	// moves it.
	Insert(parent, h, before Handle)

	// Remove detaches h from its parent.
	Remove(h Handle)

	// SetText replaces the terminal text of h.
	SetText(h Handle, text string)

	// Parent returns the parent handle of h, or nil.
	Parent(h Handle) Handle

	// NextSibling returns the handle following h under its parent,
	// or nil.
	NextSibling(h Handle) Handle
}

// Module is an extensible hook set invoked at every create, patch,
// remove, and teardown step. The excluded attribute/class/style/event
// binding collaborators attach through modules, as do metrics and
// tracing.
type Module struct {
	// Create fires after a node's handle is created, before insertion.
	Create func(old, new *VNode)

	// Update fires when a node is patched in place.
	Update func(old, new *VNode)

	// Remove fires when the root of a removed subtree is about to be
	// detached. The handle is only physically removed once every
	// module's done callback has been called exactly once, which lets
	// a transition collaborator delay detachment.
	Remove func(n *VNode, done func())

	// Destroy fires for every node of a removed subtree, children
	// before parents.
	Destroy func(n *VNode)

	// Activate fires after a freshly created subtree has been
	// inserted into the native tree.
	Activate func(n *VNode)
}

// ComponentHooks is the contract with the component-instantiation
// collaborator (the runtime). All fields are optional.
type ComponentHooks struct {
	// Init instantiates the component of a KindComponent node and
	// returns the root handle of its rendered subtree.
	Init func(n *VNode) Handle

	// Prepatch carries the live instance from the previous generation
	// onto the new node and applies prop changes.
	Prepatch func(old, new *VNode)

	// Destroy tears the component instance down.
	Destroy func(n *VNode)
}
