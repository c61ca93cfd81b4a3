package reactive

import (
	"runtime"
	"sync"
)

// trackingContext holds the reactive state for a goroutine.
// Each goroutine has its own context so that concurrent evaluations
// (e.g. two sessions rendering at once) do not see each other's
// watcher stack.
type trackingContext struct {
	// watcherStack is the stack of currently evaluating watchers.
	// Reads register against the top. A stack (not a single slot)
	// supports re-entrant evaluation, e.g. a computed read during a
	// render.
	watcherStack []*Watcher

	// batchDepth tracks nested Batch() calls. When > 0, dep
	// notifications queue instead of dispatching immediately.
	batchDepth int

	// pendingBatch accumulates watchers to notify when the outermost
	// batch completes. Deduplicated by ID before dispatch.
	pendingBatch []*Watcher
}

// trackingContexts stores per-goroutine tracking contexts.
var trackingContexts sync.Map

// getGoroutineID returns a unique identifier for the current goroutine
// by parsing the runtime stack header ("goroutine <id> ...").
// Implementation detail; never exposed.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	for i := 10; i < n; i++ { // Skip "goroutine "
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

// getTrackingContext returns the tracking context for the current
// goroutine, creating one if none exists.
func getTrackingContext() *trackingContext {
	gid := getGoroutineID()

	if ctx, ok := trackingContexts.Load(gid); ok {
		return ctx.(*trackingContext)
	}

	ctx := &trackingContext{}
	trackingContexts.Store(gid, ctx)
	return ctx
}

// currentWatcher returns the watcher currently evaluating on this
// goroutine, or nil if reads should not be tracked.
func currentWatcher() *Watcher {
	ctx := getTrackingContext()
	if n := len(ctx.watcherStack); n > 0 {
		return ctx.watcherStack[n-1]
	}
	return nil
}

// pushWatcher makes w the active watcher for the current goroutine.
func pushWatcher(w *Watcher) {
	ctx := getTrackingContext()
	ctx.watcherStack = append(ctx.watcherStack, w)
}

// popWatcher restores the previously active watcher.
func popWatcher() {
	ctx := getTrackingContext()
	if n := len(ctx.watcherStack); n > 0 {
		ctx.watcherStack[n-1] = nil
		ctx.watcherStack = ctx.watcherStack[:n-1]
	}
}

// Untracked runs fn without tracking reads as dependencies.
// Reads inside fn do not subscribe the current watcher.
func Untracked(fn func()) {
	pushWatcher(nil)
	defer popWatcher()
	fn()
}

// Batch groups multiple state writes into a single notification phase.
// Notifications raised inside fn are collected, deduplicated by
// watcher ID, and dispatched once when the outermost batch completes.
//
// Example:
//
//	reactive.Batch(func() {
//	    state.Set("first", "John")
//	    state.Set("last", "Doe")
//	})
//	// affected watchers are queued exactly once
func Batch(fn func()) {
	ctx := getTrackingContext()
	ctx.batchDepth++

	defer func() {
		ctx.batchDepth--
		if ctx.batchDepth == 0 {
			dispatchPendingBatch(ctx)
		}
	}()

	fn()
}

// inBatch reports whether the current goroutine is inside a Batch.
func inBatch() bool {
	return getTrackingContext().batchDepth > 0
}

// queueBatchNotify records a watcher to notify when the current batch
// completes.
func queueBatchNotify(w *Watcher) {
	ctx := getTrackingContext()
	ctx.pendingBatch = append(ctx.pendingBatch, w)
}

// dispatchPendingBatch deduplicates and dispatches queued batch
// notifications.
func dispatchPendingBatch(ctx *trackingContext) {
	pending := ctx.pendingBatch
	ctx.pendingBatch = nil
	if len(pending) == 0 {
		return
	}

	seen := make(map[uint64]bool, len(pending))
	for _, w := range pending {
		if seen[w.id] {
			continue
		}
		seen[w.id] = true
		w.Update()
	}
}

// cleanupGoroutineContext removes the tracking context for the current
// goroutine. Optional; contexts are lightweight and overwritten on
// goroutine-id reuse.
func cleanupGoroutineContext() {
	trackingContexts.Delete(getGoroutineID())
}
