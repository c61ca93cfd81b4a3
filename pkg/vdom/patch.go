package vdom

import (
	"log"

	"github.com/WangZhekun/vue/internal/errors"
)

// Op classifies one native-tree mutation, for instrumentation.
type Op uint8

const (
	OpCreate Op = iota // Handle created
	OpInsert           // Handle inserted or moved into position
	OpRemove           // Handle physically detached
	OpUpdate           // Node patched in place
	OpText             // Terminal text replaced
)

// String returns the string representation of the Op.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "Create"
	case OpInsert:
		return "Insert"
	case OpRemove:
		return "Remove"
	case OpUpdate:
		return "Update"
	case OpText:
		return "Text"
	default:
		return "Unknown"
	}
}

// Patcher diffs two virtual trees and applies the minimal mutation
// sequence against an Adapter.
type Patcher struct {
	api     Adapter
	modules []Module
	comp    ComponentHooks

	opHook func(Op)
	warnFn func(*errors.RuntimeError)

	// inserted collects freshly created nodes during one patch cycle;
	// their Activate hooks fire in a secondary pass once the subtree
	// is physically in the tree. depth guards re-entrant patches
	// (a component boundary patching its own subtree mid-cycle) so
	// the queue flushes only when the outermost patch finishes.
	inserted []*VNode
	depth    int
}

// PatcherOption configures a Patcher.
type PatcherOption func(*Patcher)

// WithModules attaches module hook sets.
func WithModules(mods ...Module) PatcherOption {
	return func(p *Patcher) {
		p.modules = append(p.modules, mods...)
	}
}

// WithComponentHooks attaches the component-instantiation collaborator.
func WithComponentHooks(h ComponentHooks) PatcherOption {
	return func(p *Patcher) {
		p.comp = h
	}
}

// WithOpHook installs an instrumentation callback invoked once per
// native-tree mutation.
func WithOpHook(fn func(Op)) PatcherOption {
	return func(p *Patcher) {
		p.opHook = fn
	}
}

// WithWarnHandler overrides the destination for programmer-error
// warnings (duplicate keys etc.).
func WithWarnHandler(fn func(*errors.RuntimeError)) PatcherOption {
	return func(p *Patcher) {
		p.warnFn = fn
	}
}

// NewPatcher creates a Patcher bound to a native-tree adapter.
func NewPatcher(api Adapter, opts ...PatcherOption) *Patcher {
	p := &Patcher{
		api: api,
		warnFn: func(err *errors.RuntimeError) {
			log.Printf("[vue warn] %v", err)
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Patcher) op(o Op) {
	if p.opHook != nil {
		p.opHook(o)
	}
}

func (p *Patcher) warn(err *errors.RuntimeError) {
	p.warnFn(err)
}

// PatchRoot reconciles a mounted tree inside container. On first
// render (old nil) the new subtree is created and appended to the
// container; afterwards it delegates to Patch. Returns the root
// handle of the new generation.
func (p *Patcher) PatchRoot(container Handle, old, new *VNode) Handle {
	if old == nil {
		if new == nil {
			return nil
		}
		p.begin()
		h := p.createNode(new)
		p.api.Insert(container, h, nil)
		p.op(OpInsert)
		p.end()
		return h
	}
	return p.Patch(old, new)
}

func (p *Patcher) begin() {
	p.depth++
	if p.depth == 1 {
		p.inserted = p.inserted[:0]
	}
}

func (p *Patcher) end() {
	p.depth--
	if p.depth == 0 {
		p.flushActivate()
	}
}

// Patch reconciles old against new and returns the handle carrying
// the new generation.
//
//   - new absent: the old subtree is torn down (destroy hooks
//     children-first, reference-counted removal) and nil is returned.
//   - old absent: the new subtree is created detached; the caller
//     inserts it.
//   - different logical nodes: the new subtree is created and
//     inserted adjacent to the old before the old is removed, so both
//     handles coexist briefly for transition collaborators.
//   - same logical node: the old handle is reused and the subtrees
//     are reconciled in place.
func (p *Patcher) Patch(old, new *VNode) Handle {
	if new == nil {
		if old != nil {
			p.invokeDestroy(old)
			p.removeWithHooks(old)
		}
		return nil
	}

	p.begin()
	defer p.end()

	if old == nil {
		return p.createNode(new)
	}

	if Same(old, new) {
		p.patchVNode(old, new)
		return new.Handle
	}

	// Replacement: create first, insert next to the old node, then
	// remove the old subtree.
	h := p.createNode(new)
	if parent := p.api.Parent(old.Handle); parent != nil {
		p.api.Insert(parent, h, p.api.NextSibling(old.Handle))
		p.op(OpInsert)
	}
	p.invokeDestroy(old)
	p.removeWithHooks(old)
	return h
}

// createNode builds native handles for n's entire subtree and returns
// the root handle. The subtree is not inserted anywhere.
func (p *Patcher) createNode(n *VNode) Handle {
	var h Handle

	switch n.Kind {
	case KindComponent:
		if p.comp.Init != nil {
			h = p.comp.Init(n)
		} else {
			// No component collaborator: leave a placeholder so the
			// tree shape stays stable.
			h = p.api.CreateComment("component")
		}
	case KindText:
		h = p.api.CreateText(n.Text)
	case KindComment:
		h = p.api.CreateComment(n.Text)
	default:
		h = p.api.CreateElement(n)
		if len(n.Children) > 0 {
			for _, c := range n.Children {
				ch := p.createNode(c)
				p.api.Insert(h, ch, nil)
			}
		} else if n.Text != "" {
			p.api.SetText(h, n.Text)
		}
	}

	n.Handle = h
	p.op(OpCreate)

	for _, m := range p.modules {
		if m.Create != nil {
			m.Create(nil, n)
		}
	}
	p.inserted = append(p.inserted, n)
	return h
}

// flushActivate runs the deferred Activate hooks for nodes created in
// this patch cycle.
func (p *Patcher) flushActivate() {
	for _, n := range p.inserted {
		for _, m := range p.modules {
			if m.Activate != nil {
				m.Activate(n)
			}
		}
	}
	p.inserted = p.inserted[:0]
}

// patchVNode reconciles two versions of the same logical node,
// carrying the native handle forward.
func (p *Patcher) patchVNode(old, new *VNode) {
	if old == new {
		return
	}

	new.Handle = old.Handle
	h := old.Handle

	// Static subtrees are reused verbatim: a static root is never
	// diffed twice.
	if old.Static && new.Static && old.Key == new.Key {
		new.Instance = old.Instance
		return
	}

	if new.Kind == KindComponent {
		if p.comp.Prepatch != nil {
			p.comp.Prepatch(old, new)
		}
		p.invokeUpdate(old, new)
		return
	}

	p.invokeUpdate(old, new)

	if new.Kind == KindText || new.Kind == KindComment {
		if old.Text != new.Text {
			p.api.SetText(h, new.Text)
			p.op(OpText)
		}
		return
	}

	oldCh, newCh := old.Children, new.Children
	switch {
	case new.Text != "":
		// Terminal text replaces whatever was there.
		if len(oldCh) > 0 {
			p.removeNodes(oldCh, 0, len(oldCh)-1)
		}
		if old.Text != new.Text {
			p.api.SetText(h, new.Text)
			p.op(OpText)
		}
	case len(oldCh) > 0 && len(newCh) > 0:
		p.updateChildren(h, oldCh, newCh)
	case len(newCh) > 0:
		if old.Text != "" {
			p.api.SetText(h, "")
			p.op(OpText)
		}
		p.addNodes(h, nil, newCh, 0, len(newCh)-1)
	case len(oldCh) > 0:
		p.removeNodes(oldCh, 0, len(oldCh)-1)
	case old.Text != "":
		p.api.SetText(h, "")
		p.op(OpText)
	}
}

func (p *Patcher) invokeUpdate(old, new *VNode) {
	for _, m := range p.modules {
		if m.Update != nil {
			m.Update(old, new)
		}
	}
	p.op(OpUpdate)
}

// updateChildren is the keyed list diff: four cursors, up to four
// O(1) identity probes per iteration, then an indexed lookup over the
// unconsumed old range.
func (p *Patcher) updateChildren(parent Handle, oldCh, newCh []*VNode) {
	// The old list is tombstoned in place as nodes are consumed out
	// of order; work on a copy so the caller's tree stays intact.
	oldCh = append([]*VNode(nil), oldCh...)

	p.checkDuplicateKeys(newCh)

	oldStartIdx, newStartIdx := 0, 0
	oldEndIdx, newEndIdx := len(oldCh)-1, len(newCh)-1

	var keyToOldIdx map[string]int

	for oldStartIdx <= oldEndIdx && newStartIdx <= newEndIdx {
		oldStart, oldEnd := oldCh[oldStartIdx], oldCh[oldEndIdx]
		newStart, newEnd := newCh[newStartIdx], newCh[newEndIdx]

		switch {
		case oldStart == nil:
			// Consumed by the indexed lookup below.
			oldStartIdx++
		case oldEnd == nil:
			oldEndIdx--
		case Same(oldStart, newStart):
			p.patchVNode(oldStart, newStart)
			oldStartIdx++
			newStartIdx++
		case Same(oldEnd, newEnd):
			p.patchVNode(oldEnd, newEnd)
			oldEndIdx--
			newEndIdx--
		case Same(oldStart, newEnd):
			// Node moved right.
			p.patchVNode(oldStart, newEnd)
			p.api.Insert(parent, oldStart.Handle, p.api.NextSibling(oldEnd.Handle))
			p.op(OpInsert)
			oldStartIdx++
			newEndIdx--
		case Same(oldEnd, newStart):
			// Node moved left.
			p.patchVNode(oldEnd, newStart)
			p.api.Insert(parent, oldEnd.Handle, oldStart.Handle)
			p.op(OpInsert)
			oldEndIdx--
			newStartIdx++
		default:
			if keyToOldIdx == nil {
				keyToOldIdx = buildKeyIndex(oldCh, oldStartIdx, oldEndIdx)
			}

			idxInOld := -1
			if newStart.Key != "" {
				if i, ok := keyToOldIdx[newStart.Key]; ok {
					idxInOld = i
				}
			} else {
				// Keyless node in a keyed list: linear identity scan.
				for i := oldStartIdx; i <= oldEndIdx; i++ {
					if oldCh[i] != nil && Same(oldCh[i], newStart) {
						idxInOld = i
						break
					}
				}
			}

			if idxInOld < 0 || oldCh[idxInOld] == nil {
				// No match: fresh creation in place.
				h := p.createNode(newStart)
				p.api.Insert(parent, h, oldStart.Handle)
				p.op(OpInsert)
			} else if matched := oldCh[idxInOld]; Same(matched, newStart) {
				p.patchVNode(matched, newStart)
				oldCh[idxInOld] = nil // tombstone
				p.api.Insert(parent, matched.Handle, oldStart.Handle)
				p.op(OpInsert)
			} else {
				// Key collision across different tag/kind: the key
				// match is not a logical match, create fresh.
				h := p.createNode(newStart)
				p.api.Insert(parent, h, oldStart.Handle)
				p.op(OpInsert)
			}
			newStartIdx++
		}
	}

	if oldStartIdx > oldEndIdx {
		// Old range exhausted: insert the remaining new nodes before
		// the node following new-end (nil appends at the end).
		var before Handle
		if newEndIdx+1 < len(newCh) {
			before = newCh[newEndIdx+1].Handle
		}
		p.addNodes(parent, before, newCh, newStartIdx, newEndIdx)
	} else if newStartIdx > newEndIdx {
		p.removeNodes(oldCh, oldStartIdx, oldEndIdx)
	}
}

// buildKeyIndex maps keys to indexes over oldCh[start..end].
// First occurrence wins; duplicates were already warned about.
func buildKeyIndex(oldCh []*VNode, start, end int) map[string]int {
	idx := make(map[string]int, end-start+1)
	for i := start; i <= end; i++ {
		if n := oldCh[i]; n != nil && n.Key != "" {
			if _, ok := idx[n.Key]; !ok {
				idx[n.Key] = i
			}
		}
	}
	return idx
}

// checkDuplicateKeys diagnoses key problems among siblings: duplicate
// keys, and elements left keyless in an otherwise keyed list (they
// fall back to linear identity scans). Both are tolerated, not
// rejected; with duplicates behavior is undefined beyond
// first-match-wins.
func (p *Patcher) checkDuplicateKeys(children []*VNode) {
	var seen map[string]bool
	keyless := false
	for _, c := range children {
		if c == nil {
			continue
		}
		if c.Key == "" {
			if c.Kind == KindElement || c.Kind == KindComponent {
				keyless = true
			}
			continue
		}
		if seen == nil {
			seen = make(map[string]bool, len(children))
		}
		if seen[c.Key] {
			p.warn(errors.New("E013").WithContext("key %q", c.Key))
			continue
		}
		seen[c.Key] = true
	}
	if keyless && seen != nil {
		p.warn(errors.New("E015"))
	}
}

// addNodes creates and inserts newCh[start..end] before the given
// sibling handle.
func (p *Patcher) addNodes(parent, before Handle, newCh []*VNode, start, end int) {
	for i := start; i <= end; i++ {
		h := p.createNode(newCh[i])
		p.api.Insert(parent, h, before)
		p.op(OpInsert)
	}
}

// removeNodes tears down oldCh[start..end], skipping tombstones.
func (p *Patcher) removeNodes(oldCh []*VNode, start, end int) {
	for i := start; i <= end; i++ {
		n := oldCh[i]
		if n == nil {
			continue
		}
		p.invokeDestroy(n)
		p.removeWithHooks(n)
	}
}

// invokeDestroy runs destroy hooks over the subtree, children before
// parents, so a child never outlives its parent's teardown
// notification.
func (p *Patcher) invokeDestroy(n *VNode) {
	for _, c := range n.Children {
		p.invokeDestroy(c)
	}
	if n.Kind == KindComponent && p.comp.Destroy != nil {
		p.comp.Destroy(n)
	}
	for _, m := range p.modules {
		if m.Destroy != nil {
			m.Destroy(n)
		}
	}
}

// removeWithHooks detaches the root of a removed subtree. Every
// module Remove hook holds one reference; the handle is physically
// removed only when all of them (plus the patcher's own reference)
// have called done exactly once.
func (p *Patcher) removeWithHooks(n *VNode) {
	if n.Handle == nil {
		return
	}

	if n.Kind == KindText || n.Kind == KindComment {
		p.api.Remove(n.Handle)
		p.op(OpRemove)
		return
	}

	listeners := 1
	for _, m := range p.modules {
		if m.Remove != nil {
			listeners++
		}
	}
	done := p.removalCallback(n.Handle, listeners)

	for _, m := range p.modules {
		if m.Remove != nil {
			m.Remove(n, done)
		}
	}
	done()
}

// removalCallback returns the reference-counted done callback for a
// pending removal.
func (p *Patcher) removalCallback(h Handle, listeners int) func() {
	remaining := listeners
	return func() {
		remaining--
		if remaining == 0 {
			p.api.Remove(h)
			p.op(OpRemove)
		}
	}
}
