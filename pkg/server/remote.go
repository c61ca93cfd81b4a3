package server

import (
	"sync"

	"github.com/WangZhekun/vue/pkg/protocol"
	"github.com/WangZhekun/vue/pkg/vdom"
)

// RemoteAdapter is a vdom.Adapter that mirrors the native tree in
// memory and records every mutation for transmission. The mirror
// answers the patcher's structural queries (Parent, NextSibling); the
// recorded mutations are what the client replays.
//
// The mount container is wire ID 0: the client substitutes its own
// mount point wherever 0 appears as a parent.
type RemoteAdapter struct {
	mirror *vdom.MemDOM
	root   *vdom.MemNode

	mu        sync.Mutex
	mutations []protocol.Mutation
}

// NewRemoteAdapter creates an adapter with an empty mirror.
func NewRemoteAdapter() *RemoteAdapter {
	mirror := vdom.NewMemDOM()
	return &RemoteAdapter{
		mirror: mirror,
		root:   mirror.NewRoot(),
	}
}

// Root returns the mount container handle.
func (a *RemoteAdapter) Root() vdom.Handle {
	return a.root
}

// TakeBatch returns the mutations recorded since the last call, as a
// sequenced batch, or nil if none accumulated.
func (a *RemoteAdapter) TakeBatch(seq uint64) *protocol.Batch {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.mutations) == 0 {
		return nil
	}
	b := &protocol.Batch{Seq: seq, Mutations: a.mutations}
	a.mutations = nil
	return b
}

// Lookup resolves a wire ID back to the mirror node, or nil. Event
// dispatch uses it to identify the event target.
func (a *RemoteAdapter) Lookup(id uint64) *vdom.MemNode {
	if id == 0 {
		return a.root
	}
	return findNode(a.root, id)
}

func findNode(n *vdom.MemNode, id uint64) *vdom.MemNode {
	if n.ID == id {
		return n
	}
	for _, c := range n.Children {
		if found := findNode(c, id); found != nil {
			return found
		}
	}
	return nil
}

func (a *RemoteAdapter) record(m protocol.Mutation) {
	a.mu.Lock()
	a.mutations = append(a.mutations, m)
	a.mu.Unlock()
}

// wireID maps a handle to its wire ID; nil and the root both map to 0.
func (a *RemoteAdapter) wireID(h vdom.Handle) uint64 {
	if h == nil {
		return 0
	}
	node := h.(*vdom.MemNode)
	if node == a.root {
		return 0
	}
	return node.ID
}

// CreateElement implements vdom.Adapter.
func (a *RemoteAdapter) CreateElement(n *vdom.VNode) vdom.Handle {
	h := a.mirror.CreateElement(n)
	a.record(protocol.NewCreateElement(a.wireID(h), n.Tag))

	// Props travel as part of creation so the client sees a complete
	// node before it is inserted.
	for k, v := range n.Props {
		if s, ok := v.(string); ok {
			a.record(protocol.NewSetProp(a.wireID(h), k, s))
		}
	}
	return h
}

// CreateText implements vdom.Adapter.
func (a *RemoteAdapter) CreateText(text string) vdom.Handle {
	h := a.mirror.CreateText(text)
	a.record(protocol.NewCreateText(a.wireID(h), text))
	return h
}

// CreateComment implements vdom.Adapter.
func (a *RemoteAdapter) CreateComment(text string) vdom.Handle {
	h := a.mirror.CreateComment(text)
	a.record(protocol.NewCreateComment(a.wireID(h), text))
	return h
}

// Insert implements vdom.Adapter.
func (a *RemoteAdapter) Insert(parent, h, before vdom.Handle) {
	a.mirror.Insert(parent, h, before)
	a.record(protocol.NewInsert(a.wireID(h), a.wireID(parent), a.wireID(before)))
}

// Remove implements vdom.Adapter.
func (a *RemoteAdapter) Remove(h vdom.Handle) {
	a.mirror.Remove(h)
	a.record(protocol.NewRemove(a.wireID(h)))
}

// SetText implements vdom.Adapter.
func (a *RemoteAdapter) SetText(h vdom.Handle, text string) {
	a.mirror.SetText(h, text)
	a.record(protocol.NewSetText(a.wireID(h), text))
}

// PropsModule returns a patch module that diffs string props on
// update and records the changes. Creation props are recorded by
// CreateElement; this covers in-place patches.
func (a *RemoteAdapter) PropsModule() vdom.Module {
	return vdom.Module{
		Update: func(old, new *vdom.VNode) {
			id := a.wireID(new.Handle)
			for k, ov := range old.Props {
				os, ok := ov.(string)
				if !ok {
					continue
				}
				nv, exists := new.Props[k]
				if !exists {
					a.record(protocol.NewRemoveProp(id, k))
					continue
				}
				if ns, ok := nv.(string); ok && ns != os {
					a.record(protocol.NewSetProp(id, k, ns))
				}
			}
			for k, nv := range new.Props {
				if _, existed := old.Props[k]; existed {
					continue
				}
				if ns, ok := nv.(string); ok {
					a.record(protocol.NewSetProp(id, k, ns))
				}
			}
		},
	}
}

// Parent implements vdom.Adapter.
func (a *RemoteAdapter) Parent(h vdom.Handle) vdom.Handle {
	return a.mirror.Parent(h)
}

// NextSibling implements vdom.Adapter.
func (a *RemoteAdapter) NextSibling(h vdom.Handle) vdom.Handle {
	return a.mirror.NextSibling(h)
}
