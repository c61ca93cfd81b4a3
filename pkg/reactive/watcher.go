package reactive

import (
	"sync"
	"sync/atomic"

	"github.com/WangZhekun/vue/internal/errors"
)

// Watcher is a unit of derived work: a render, a computed value, or a
// user watch. Evaluating it records which deps it read; when any of
// them fires the watcher re-evaluates, immediately (sync), lazily
// (computed), or through the scheduler (the default).
type Watcher struct {
	id uint64

	// getter is the zero-argument evaluator.
	getter func() any

	// cb receives (new, old) after a scheduled or sync re-evaluation.
	// nil for render watchers, whose getter performs the side effect.
	cb func(newVal, oldVal any)

	// expr describes the watcher for diagnostics ("render", "user
	// watcher #3", ...).
	expr string

	// owner is the scope that tears this watcher down on dispose.
	owner *Owner

	// deps is the dep set from the previous evaluation; newDeps is the
	// set being built during the current one. After cleanupDeps the
	// new set replaces the previous one and stale subscriptions are
	// removed.
	depsMu    sync.Mutex
	deps      []*Dep
	depIDs    map[uint64]struct{}
	newDeps   []*Dep
	newDepIDs map[uint64]struct{}

	// Role flags. lazy watchers only mark themselves dirty on change;
	// sync watchers re-run inline; deep watchers traverse their value
	// to subscribe to the full tree; user watchers get their panics
	// recovered and reported instead of propagated.
	lazy bool
	sync bool
	deep bool
	user bool

	// before runs just before each scheduled re-evaluation (used for
	// pre-update lifecycle callbacks; parents run before descendants).
	before func()

	// dirty is meaningful for lazy watchers only.
	dirty bool

	// active is cleared on teardown. A torn-down watcher still queued
	// in the scheduler is skipped at run time.
	active atomic.Bool

	// value is the cached result of the last evaluation.
	value any
}

// WatcherOption configures a Watcher at creation.
type WatcherOption func(*Watcher)

// Deep makes the watcher traverse its value after evaluation,
// subscribing to every nested dep.
func Deep() WatcherOption {
	return func(w *Watcher) { w.deep = true }
}

// Sync makes the watcher re-run inline on dependency change instead of
// going through the scheduler.
func Sync() WatcherOption {
	return func(w *Watcher) { w.sync = true }
}

// Lazy makes the watcher evaluate only on demand; dependency changes
// just mark it dirty. Used for computed values.
func Lazy() WatcherOption {
	return func(w *Watcher) { w.lazy = true }
}

// User marks the watcher as user-authored: panics in its getter or
// callback are recovered and routed to the error handler instead of
// propagating.
func User() WatcherOption {
	return func(w *Watcher) { w.user = true }
}

// Before sets a hook that runs before each scheduled re-evaluation.
func Before(fn func()) WatcherOption {
	return func(w *Watcher) { w.before = fn }
}

// Expr sets the description used in diagnostics.
func Expr(expr string) WatcherOption {
	return func(w *Watcher) { w.expr = expr }
}

// NewWatcher creates a watcher and, unless it is lazy, evaluates it
// immediately to establish its dependency set. A non-nil owner tears
// the watcher down when disposed.
func NewWatcher(owner *Owner, getter func() any, cb func(newVal, oldVal any), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		id:        nextID(),
		getter:    getter,
		cb:        cb,
		expr:      "watcher",
		owner:     owner,
		depIDs:    make(map[uint64]struct{}),
		newDepIDs: make(map[uint64]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.active.Store(true)

	if owner != nil {
		owner.registerWatcher(w)
	}

	if w.lazy {
		w.dirty = true
	} else {
		w.value = w.Get()
	}
	return w
}

// ID returns the unique identifier for this watcher.
func (w *Watcher) ID() uint64 {
	return w.id
}

// Value returns the cached result of the last evaluation.
func (w *Watcher) Value() any {
	return w.value
}

// Get evaluates the getter with this watcher active, committing the
// dependency set it reads.
//
// The watcher is pushed onto the goroutine-local active stack for the
// duration so nested evaluations restore correctly. Afterwards, deps
// read last time but not this time are unsubscribed.
func (w *Watcher) Get() any {
	pushWatcher(w)

	var value any
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = recoveredError(r)
			}
		}()
		value = w.getter()
		return nil
	}()

	if err == nil && w.deep {
		Traverse(value)
	}

	popWatcher()
	w.cleanupDeps()

	if err != nil {
		if w.user {
			handleError(errors.New("E012").WithContext("getter for %s", w.expr).Wrap(err))
			return value
		}
		// Render evaluator errors propagate; the mount layer keeps
		// the previous tree as fallback.
		panic(err)
	}
	return value
}

// addDep records a dep read during the current evaluation and
// subscribes to it if this watcher was not already subscribed.
func (w *Watcher) addDep(d *Dep) {
	w.depsMu.Lock()
	id := d.id
	if _, ok := w.newDepIDs[id]; ok {
		w.depsMu.Unlock()
		return
	}
	w.newDepIDs[id] = struct{}{}
	w.newDeps = append(w.newDeps, d)
	_, known := w.depIDs[id]
	w.depsMu.Unlock()

	if !known {
		d.addSub(w)
	}
}

// cleanupDeps commits the dependency set built during the current
// evaluation: deps no longer read are unsubscribed, then the new set
// becomes the previous set. This prevents re-triggers from deps the
// watcher conditionally stopped reading.
func (w *Watcher) cleanupDeps() {
	w.depsMu.Lock()
	var stale []*Dep
	for _, d := range w.deps {
		if _, ok := w.newDepIDs[d.id]; !ok {
			stale = append(stale, d)
		}
	}

	w.deps, w.newDeps = w.newDeps, w.deps[:0]
	w.depIDs, w.newDepIDs = w.newDepIDs, w.depIDs
	clear(w.newDepIDs)
	w.depsMu.Unlock()

	for _, d := range stale {
		d.removeSub(w)
	}
}

// Update is called by a dep's Notify when a dependency changed.
func (w *Watcher) Update() {
	if !w.active.Load() {
		return
	}
	switch {
	case w.lazy:
		w.dirty = true
	case w.sync:
		w.run()
	default:
		queueWatcher(w)
	}
}

// run re-evaluates and invokes the callback if the value changed.
// Collections and deep watchers always fire the callback: the value
// may have mutated in place, leaving old and new indistinguishable.
func (w *Watcher) run() {
	if !w.active.Load() {
		return
	}

	value := w.Get()
	if !sameValue(value, w.value) || isCollection(value) || w.deep {
		oldValue := w.value
		w.value = value
		w.invokeCallback(value, oldValue)
	}
}

func (w *Watcher) invokeCallback(newVal, oldVal any) {
	if w.cb == nil {
		return
	}
	if w.user {
		defer func() {
			if r := recover(); r != nil {
				handleError(errors.New("E012").WithContext("callback for %s", w.expr).Wrap(recoveredError(r)))
			}
		}()
	}
	w.cb(newVal, oldVal)
}

// Evaluate computes the value of a lazy watcher. Only called for lazy
// watchers when dirty.
func (w *Watcher) Evaluate() {
	w.value = w.Get()
	w.dirty = false
}

// Depend re-registers every dep of this watcher on the currently
// active watcher. Lets a computed value's reader subscribe to the
// computed's own sources.
func (w *Watcher) Depend() {
	w.depsMu.Lock()
	deps := make([]*Dep, len(w.deps))
	copy(deps, w.deps)
	w.depsMu.Unlock()

	for _, d := range deps {
		d.Depend()
	}
}

// Teardown unsubscribes the watcher from every dep. Safe to call at
// any time; a torn-down watcher still queued in the scheduler is
// skipped when the queue reaches it.
func (w *Watcher) Teardown() {
	if !w.active.Swap(false) {
		return
	}
	if w.owner != nil {
		w.owner.removeWatcher(w)
	}

	w.depsMu.Lock()
	deps := make([]*Dep, len(w.deps))
	copy(deps, w.deps)
	w.deps = nil
	clear(w.depIDs)
	w.depsMu.Unlock()

	for _, d := range deps {
		d.removeSub(w)
	}
}

// isCollection reports whether v is an observed container, whose
// identity can be unchanged while its contents mutated.
func isCollection(v any) bool {
	switch v.(type) {
	case *Map, *Slice:
		return true
	}
	return false
}
