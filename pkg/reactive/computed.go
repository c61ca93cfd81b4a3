package reactive

// Computed is a lazily evaluated derived value backed by a lazy
// watcher. It recomputes at most once per invalidation, on the next
// read, and readers evaluating inside a watcher subscribe to the
// computed's own sources.
type Computed struct {
	w *Watcher
}

// NewComputed creates a computed value owned by owner (may be nil).
// The computation does not run until the first Get.
func NewComputed(owner *Owner, fn func() any, opts ...WatcherOption) *Computed {
	opts = append(opts, Lazy())
	return &Computed{w: NewWatcher(owner, fn, nil, opts...)}
}

// Get returns the computed value, recomputing if a dependency fired
// since the last read. When called during another watcher's
// evaluation, that watcher inherits this computed's dependencies.
func (c *Computed) Get() any {
	if c.w.dirty {
		c.w.Evaluate()
	}
	if currentWatcher() != nil {
		c.w.Depend()
	}
	return c.w.value
}

// Teardown unsubscribes the underlying watcher.
func (c *Computed) Teardown() {
	c.w.Teardown()
}
