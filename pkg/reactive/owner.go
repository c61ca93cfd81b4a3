package reactive

import (
	"sync"
	"sync/atomic"
)

// Owner represents a component scope that owns watchers and cleanup
// callbacks. Disposing an owner tears down everything it owns and
// every child owner, which is how a component's computations are
// unsubscribed when the component is destroyed.
//
// Owners form a hierarchy mirroring the component tree: each child
// component's owner is registered on its parent's.
type Owner struct {
	id uint64

	// parent is nil for the root owner (the mounted app).
	parent *Owner

	children   []*Owner
	childrenMu sync.Mutex

	watchers   []*Watcher
	watchersMu sync.Mutex

	cleanups   []func()
	cleanupsMu sync.Mutex

	disposed atomic.Bool
}

// NewOwner creates an owner registered as a child of parent.
// A nil parent creates a root owner.
func NewOwner(parent *Owner) *Owner {
	o := &Owner{
		id:     nextID(),
		parent: parent,
	}
	if parent != nil {
		parent.addChild(o)
	}
	return o
}

// ID returns the unique identifier for this owner.
func (o *Owner) ID() uint64 {
	return o.id
}

// Parent returns the parent owner, or nil for a root owner.
func (o *Owner) Parent() *Owner {
	return o.parent
}

// IsDisposed reports whether Dispose was called.
func (o *Owner) IsDisposed() bool {
	return o.disposed.Load()
}

func (o *Owner) addChild(child *Owner) {
	o.childrenMu.Lock()
	defer o.childrenMu.Unlock()
	o.children = append(o.children, child)
}

func (o *Owner) removeChild(child *Owner) {
	o.childrenMu.Lock()
	defer o.childrenMu.Unlock()
	for i, c := range o.children {
		if c == child {
			o.children = append(o.children[:i], o.children[i+1:]...)
			return
		}
	}
}

// registerWatcher adds a watcher to this owner. It is torn down when
// the owner is disposed.
func (o *Owner) registerWatcher(w *Watcher) {
	if o.disposed.Load() {
		return
	}
	o.watchersMu.Lock()
	defer o.watchersMu.Unlock()
	o.watchers = append(o.watchers, w)
}

func (o *Owner) removeWatcher(w *Watcher) {
	o.watchersMu.Lock()
	defer o.watchersMu.Unlock()
	for i, existing := range o.watchers {
		if existing == w {
			o.watchers = append(o.watchers[:i], o.watchers[i+1:]...)
			return
		}
	}
}

// OnCleanup registers a function to run when this owner is disposed.
// On an already disposed owner the function runs immediately.
func (o *Owner) OnCleanup(fn func()) {
	if o.disposed.Load() {
		fn()
		return
	}
	o.cleanupsMu.Lock()
	defer o.cleanupsMu.Unlock()
	o.cleanups = append(o.cleanups, fn)
}

// Dispose tears down this owner: children first (in reverse creation
// order), then owned watchers, then cleanups in reverse order.
func (o *Owner) Dispose() {
	if o.disposed.Swap(true) {
		return
	}

	if o.parent != nil {
		o.parent.removeChild(o)
	}

	o.childrenMu.Lock()
	children := make([]*Owner, len(o.children))
	copy(children, o.children)
	o.children = nil
	o.childrenMu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}

	o.watchersMu.Lock()
	watchers := o.watchers
	o.watchers = nil
	o.watchersMu.Unlock()

	for _, w := range watchers {
		w.Teardown()
	}

	o.cleanupsMu.Lock()
	cleanups := o.cleanups
	o.cleanups = nil
	o.cleanupsMu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}
