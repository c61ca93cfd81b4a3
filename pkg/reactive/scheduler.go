package reactive

import (
	"sort"
	"sync"
	"time"

	"github.com/WangZhekun/vue/internal/errors"
)

// DefaultMaxUpdateCount is the circuit-breaker threshold: how many
// times a single watcher may be re-queued within one flush before it
// is excluded as an infinite update loop.
const DefaultMaxUpdateCount = 100

// FlushHooks receive scheduler lifecycle events. Used by the metrics
// and tracing packages; all fields are optional.
type FlushHooks struct {
	// OnFlushStart fires when a flush cycle begins.
	OnFlushStart func()

	// OnFlushEnd fires when a flush cycle ends, with the number of
	// watcher runs and the cycle duration.
	OnFlushEnd func(ran int, d time.Duration)

	// OnWatcherRun fires after each watcher re-evaluation.
	OnWatcherRun func()

	// OnCircuitBreak fires when a watcher is excluded for exceeding
	// the re-enqueue limit.
	OnCircuitBreak func(watcherID uint64)
}

// scheduler deduplicates and orders pending watcher re-evaluations
// into batched flush cycles.
type scheduler struct {
	// mu guards the queue state below.
	mu       sync.Mutex
	queue    []*Watcher
	has      map[uint64]bool
	circular map[uint64]int
	excluded map[uint64]bool
	flushing bool
	index    int
	cbs      []func()

	// flushMu serializes whole flush cycles.
	flushMu sync.Mutex

	// ticks wakes the deferred-drain runner. Buffered so scheduling
	// is non-blocking; a pending tick absorbs further schedules.
	ticks      chan struct{}
	runnerOnce sync.Once

	maxUpdate int

	hooksMu sync.RWMutex
	hooks   FlushHooks
}

var sched = &scheduler{
	has:       make(map[uint64]bool),
	circular:  make(map[uint64]int),
	excluded:  make(map[uint64]bool),
	ticks:     make(chan struct{}, 1),
	maxUpdate: DefaultMaxUpdateCount,
}

// SetFlushHooks installs scheduler instrumentation hooks.
func SetFlushHooks(h FlushHooks) {
	sched.hooksMu.Lock()
	sched.hooks = h
	sched.hooksMu.Unlock()
}

// CombineFlushHooks merges hook sets so several consumers (metrics,
// tracing) can observe the same scheduler. Hooks fire in argument
// order.
func CombineFlushHooks(hooks ...FlushHooks) FlushHooks {
	return FlushHooks{
		OnFlushStart: func() {
			for _, h := range hooks {
				if h.OnFlushStart != nil {
					h.OnFlushStart()
				}
			}
		},
		OnFlushEnd: func(ran int, d time.Duration) {
			for _, h := range hooks {
				if h.OnFlushEnd != nil {
					h.OnFlushEnd(ran, d)
				}
			}
		},
		OnWatcherRun: func() {
			for _, h := range hooks {
				if h.OnWatcherRun != nil {
					h.OnWatcherRun()
				}
			}
		},
		OnCircuitBreak: func(watcherID uint64) {
			for _, h := range hooks {
				if h.OnCircuitBreak != nil {
					h.OnCircuitBreak(watcherID)
				}
			}
		},
	}
}

// SetMaxUpdateCount overrides the circuit-breaker threshold.
// Values below 1 restore the default.
func SetMaxUpdateCount(n int) {
	sched.mu.Lock()
	if n < 1 {
		n = DefaultMaxUpdateCount
	}
	sched.maxUpdate = n
	sched.mu.Unlock()
}

// Flush synchronously drains the pending queue and runs queued
// NextTick callbacks. Hosts with their own loop (e.g. the session
// server) call this after each event; everyone else reaches the same
// boundary through NextTick.
func Flush() {
	sched.flush()
}

// NextTick registers fn to run after the next flush cycle completes
// and schedules a deferred flush. This is the runtime's stand-in for
// the microtask boundary: fn observes every state write issued before
// the call.
func NextTick(fn func()) {
	sched.mu.Lock()
	sched.cbs = append(sched.cbs, fn)
	sched.mu.Unlock()
	sched.scheduleTick()
}

// queueWatcher enqueues a watcher for the next flush, deduplicating by
// ID. When called during a flush the watcher is spliced into the queue
// by ID, so a late arrival whose ID is past the cursor still runs in
// the current pass. Acyclic dependency chains converge within one
// flush.
func queueWatcher(w *Watcher) {
	s := sched
	s.mu.Lock()
	if s.excluded[w.id] || s.has[w.id] {
		s.mu.Unlock()
		return
	}
	s.has[w.id] = true

	if !s.flushing {
		s.queue = append(s.queue, w)
		s.mu.Unlock()
		s.scheduleTick()
		return
	}

	i := len(s.queue) - 1
	for i > s.index && s.queue[i].id > w.id {
		i--
	}
	s.queue = append(s.queue, nil)
	copy(s.queue[i+2:], s.queue[i+1:])
	s.queue[i+1] = w
	s.mu.Unlock()
}

// scheduleTick wakes the runner goroutine, starting it on first use.
func (s *scheduler) scheduleTick() {
	s.runnerOnce.Do(func() {
		go func() {
			for range s.ticks {
				s.flush()
			}
		}()
	})
	select {
	case s.ticks <- struct{}{}:
	default:
	}
}

// flush runs one flush cycle: sort by watcher ID ascending (parents
// were created before children, so ancestors update first), run each
// watcher's before hook and re-evaluation, then the deferred NextTick
// callbacks.
func (s *scheduler) flush() {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.hooksMu.RLock()
	hooks := s.hooks
	s.hooksMu.RUnlock()

	if hooks.OnFlushStart != nil {
		hooks.OnFlushStart()
	}
	start := time.Now()
	ran := 0

	s.mu.Lock()
	s.flushing = true
	sort.Slice(s.queue, func(i, j int) bool { return s.queue[i].id < s.queue[j].id })

	// Queue length is re-read every iteration: watchers queued during
	// the flush are picked up in this same pass.
	for s.index = 0; s.index < len(s.queue); s.index++ {
		w := s.queue[s.index]
		delete(s.has, w.id)
		s.mu.Unlock()

		runQueued(w)
		ran++
		if hooks.OnWatcherRun != nil {
			hooks.OnWatcherRun()
		}

		s.mu.Lock()
		// The watcher re-queued itself (directly or through a cycle).
		// Count it; past the limit it is an infinite update loop.
		if s.has[w.id] {
			s.circular[w.id]++
			if s.circular[w.id] > s.maxUpdate {
				s.excluded[w.id] = true
				delete(s.has, w.id)
				for j := s.index + 1; j < len(s.queue); j++ {
					if s.queue[j].id == w.id {
						s.queue = append(s.queue[:j], s.queue[j+1:]...)
						break
					}
				}
				s.mu.Unlock()
				handleError(errors.Newf("E020", "watcher #%d (%s)", w.id, w.expr))
				if hooks.OnCircuitBreak != nil {
					hooks.OnCircuitBreak(w.id)
				}
				s.mu.Lock()
			}
		}
	}

	s.queue = s.queue[:0]
	clear(s.has)
	clear(s.circular)
	s.flushing = false
	s.index = 0
	cbs := s.cbs
	s.cbs = nil
	s.mu.Unlock()

	if hooks.OnFlushEnd != nil {
		hooks.OnFlushEnd(ran, time.Since(start))
	}

	for _, cb := range cbs {
		cb()
	}
}

// runQueued runs one queued watcher, containing panics so a failing
// watcher skips only itself: the rest of the flush proceeds and the
// failed watcher is retried on its next natural trigger.
func runQueued(w *Watcher) {
	defer func() {
		if r := recover(); r != nil {
			handleError(errors.New("E030").WithContext("%s", w.expr).Wrap(recoveredError(r)))
		}
	}()
	if w.before != nil && w.active.Load() {
		w.before()
	}
	w.run()
}

// resetScheduler clears queue state and exclusions. Test helper.
func resetScheduler() {
	s := sched
	s.flushMu.Lock()
	s.mu.Lock()
	s.queue = s.queue[:0]
	clear(s.has)
	clear(s.circular)
	clear(s.excluded)
	s.flushing = false
	s.index = 0
	s.cbs = nil
	s.maxUpdate = DefaultMaxUpdateCount
	s.mu.Unlock()
	s.flushMu.Unlock()
}
