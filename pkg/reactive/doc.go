// Package reactive implements the fine-grained dependency-tracking
// engine: observed state containers, watchers, and the batching
// scheduler.
//
// # Model
//
// State lives in observed containers (Map for string-keyed mappings,
// Slice for sequences). Every field read during a watcher's evaluation
// registers a dependency edge; every write notifies exactly the
// watchers that read that field. Watchers re-evaluate through the
// scheduler, which deduplicates and orders pending work so that N
// writes in one synchronous block produce one re-evaluation per
// affected watcher.
//
// # Tracking
//
// Go has no implicit property interception, so containers expose an
// explicit Get/Set API. The currently evaluating watcher is kept on a
// goroutine-local stack; reads register against the top of that stack.
//
// # Flush boundary
//
// Writes are synchronous; derived work is deferred. The queue drains
// when the host reaches a flush boundary: the runtime's event loop
// calls Flush after each event, and NextTick schedules a deferred
// drain for everyone else. Within one flush, watchers run in ascending
// creation-id order, so ancestors update before descendants.
package reactive
