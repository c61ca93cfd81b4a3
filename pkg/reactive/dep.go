package reactive

import (
	"sort"
	"sync"
)

// Dep is the minimal publish/subscribe node linking one observable
// slot (a field, or a collection's structure) to the watchers that
// read it.
type Dep struct {
	id uint64

	// subs are the watchers subscribed to this dep.
	subs []*Watcher

	// subMu protects the subs slice.
	subMu sync.RWMutex
}

// NewDep creates a dependency node with a fresh ID.
func NewDep() *Dep {
	return &Dep{id: nextID()}
}

// ID returns the unique identifier for this dep.
func (d *Dep) ID() uint64 {
	return d.id
}

// Depend registers the currently evaluating watcher (if any) as a
// subscriber of this dep. The subscription is recorded on the watcher
// side first so stale edges can be pruned after evaluation.
func (d *Dep) Depend() {
	if w := currentWatcher(); w != nil {
		w.addDep(d)
	}
}

// addSub adds a watcher to this dep's subscribers.
// Deduplicates by watcher ID.
func (d *Dep) addSub(w *Watcher) {
	if w == nil {
		return
	}

	d.subMu.Lock()
	defer d.subMu.Unlock()

	for _, existing := range d.subs {
		if existing.id == w.id {
			return
		}
	}
	d.subs = append(d.subs, w)
}

// removeSub removes a watcher from this dep's subscribers.
func (d *Dep) removeSub(w *Watcher) {
	if w == nil {
		return
	}

	d.subMu.Lock()
	defer d.subMu.Unlock()

	for i, existing := range d.subs {
		if existing.id == w.id {
			// Order does not matter; swap with the last element.
			d.subs[i] = d.subs[len(d.subs)-1]
			d.subs = d.subs[:len(d.subs)-1]
			return
		}
	}
}

// Notify tells every subscriber that this slot changed.
//
// The subscriber list is snapshotted before iteration so a subscriber
// reacting synchronously (and mutating the list) cannot corrupt it.
// The snapshot is sorted by watcher ID so sync watchers fire in
// creation order. Inside a Batch the dispatch is deferred to the end
// of the outermost batch.
func (d *Dep) Notify() {
	d.subMu.RLock()
	subs := make([]*Watcher, len(d.subs))
	copy(subs, d.subs)
	d.subMu.RUnlock()

	sort.Slice(subs, func(i, j int) bool { return subs[i].id < subs[j].id })

	if inBatch() {
		for _, w := range subs {
			queueBatchNotify(w)
		}
		return
	}

	for _, w := range subs {
		w.Update()
	}
}

// subscriberCount reports the current number of subscribers.
// Used by tests to check stale-dependency pruning.
func (d *Dep) subscriberCount() int {
	d.subMu.RLock()
	defer d.subMu.RUnlock()
	return len(d.subs)
}
