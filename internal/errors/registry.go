package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Reactivity (E010-E019)
	// ============================================

	"E010": {
		Category:   CategoryReactivity,
		Message:    "cannot add or delete fields on root state",
		Detail:     "The map is used as the reactive root of a component. Adding or removing top-level fields after mount cannot be observed by existing watchers.",
		Suggestion: "Declare all root fields up front, or nest dynamic fields under a sub-map.",
	},
	"E011": {
		Category:   CategoryReactivity,
		Message:    "write to read-only value",
		Detail:     "The value was marked read-only; the write is ignored.",
		Suggestion: "Copy the value before mutating it.",
	},
	"E012": {
		Category:   CategoryReactivity,
		Message:    "watcher callback failed",
		Detail:     "A user-authored watch callback panicked. The watcher stays registered and will run again on the next change.",
		Suggestion: "Guard the callback against nil or unexpected values.",
	},

	// ============================================
	// Patch / reconciliation (E013-E019)
	// ============================================

	"E013": {
		Category:   CategoryPatch,
		Message:    "duplicate keys in child list",
		Detail:     "Two siblings share the same key. The diff uses the first match and behavior for the rest is undefined.",
		Suggestion: "Keys must be unique among siblings; derive them from stable identities.",
	},
	"E014": {
		Category:   CategoryPatch,
		Message:    "evaluator returned multiple roots",
		Detail:     "A render function must produce a single root node. Only the first root is used.",
		Suggestion: "Wrap the nodes in a single container element.",
	},
	"E015": {
		Category:   CategoryPatch,
		Message:    "missing key on list item",
		Detail:     "Children of a keyed list should all carry keys; keyless items fall back to linear identity scans.",
		Suggestion: "Give every sibling a unique key.",
	},

	// ============================================
	// Scheduler (E020-E029)
	// ============================================

	"E020": {
		Category:   CategoryScheduler,
		Message:    "infinite update loop",
		Detail:     "A watcher was re-queued more times than the circuit-breaker limit within one flush. It has been excluded from further flushes.",
		Suggestion: "The watcher probably writes to state it also reads. Break the cycle or move the write out of the watcher.",
	},

	// ============================================
	// Runtime / mount (E030-E039)
	// ============================================

	"E030": {
		Category:   CategoryRuntime,
		Message:    "render failed",
		Detail:     "The render evaluator panicked. The previously rendered tree is kept on screen.",
		Suggestion: "Check the render function for nil dereferences on first render.",
	},
	"E031": {
		Category:   CategoryRuntime,
		Message:    "mount target already in use",
		Detail:     "The adapter handle passed to Mount is already owned by another app.",
		Suggestion: "Unmount the previous app first.",
	},

	// ============================================
	// Protocol / server (E040-E049)
	// ============================================

	"E040": {
		Category: CategoryProtocol,
		Message:  "malformed frame",
		Detail:   "The frame header or payload could not be decoded.",
	},
	"E041": {
		Category: CategoryServer,
		Message:  "unknown event target",
		Detail:   "The client referenced a handle id the server does not know. The session may be stale.",
	},
}

// Register adds a template at init time. Used by packages that own
// their error codes but want them formatted consistently.
func Register(code string, tmpl ErrorTemplate) {
	registry[code] = tmpl
}
