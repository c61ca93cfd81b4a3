package runtime

import (
	"fmt"
	"sync"

	"github.com/WangZhekun/vue/internal/errors"
	"github.com/WangZhekun/vue/pkg/reactive"
	"github.com/WangZhekun/vue/pkg/vdom"
)

// RenderFunc produces one tree generation. It must perform only
// reactive reads; it may panic, in which case the previous generation
// is kept on screen and the error is reported.
type RenderFunc func() *vdom.VNode

// mounted tracks which container handles currently host an App, so a
// second Mount into the same container is refused instead of silently
// interleaving two generation chains.
var (
	mountedMu sync.Mutex
	mounted   = map[vdom.Handle]*App{}
)

// App is one mounted application: root state, a render function, and
// the render watcher driving the patcher.
type App struct {
	state   *reactive.Map
	render  RenderFunc
	adapter vdom.Adapter
	patcher *vdom.Patcher
	owner   *reactive.Owner

	container   vdom.Handle
	watcher     *reactive.Watcher
	tree        *vdom.VNode
	patcherOpts []vdom.PatcherOption
}

// AppOption configures an App.
type AppOption func(*App)

// WithPatcherOptions forwards options to the App's patcher, e.g.
// modules or an op hook.
func WithPatcherOptions(opts ...vdom.PatcherOption) AppOption {
	return func(a *App) {
		a.patcherOpts = append(a.patcherOpts, opts...)
	}
}

// New creates an unmounted App over the given adapter and state.
// state is marked as a reactive root: adding or deleting top-level
// fields after this point is diagnosed and ignored.
func New(adapter vdom.Adapter, state *reactive.Map, render RenderFunc, opts ...AppOption) *App {
	a := &App{
		state:   state,
		render:  render,
		adapter: adapter,
		owner:   reactive.NewOwner(nil),
	}
	for _, opt := range opts {
		opt(a)
	}
	state.MarkRoot()

	hooks := newComponentHooks(a)
	a.patcherOpts = append(a.patcherOpts, vdom.WithComponentHooks(hooks))
	a.patcher = vdom.NewPatcher(adapter, a.patcherOpts...)
	return a
}

// State returns the root state container.
func (a *App) State() *reactive.Map {
	return a.state
}

// Mount renders the first generation into container and starts
// reacting to state writes. It fails if this App is already mounted
// or another App occupies the container.
func (a *App) Mount(container vdom.Handle) error {
	if a.watcher != nil {
		return errors.New("E031").WithContext("app already mounted")
	}
	mountedMu.Lock()
	if other, ok := mounted[container]; ok && other != a {
		mountedMu.Unlock()
		return errors.New("E031")
	}
	mounted[container] = a
	mountedMu.Unlock()

	a.container = container

	// The render watcher's getter performs the whole render-and-patch
	// step so every reactive read lands in its dependency set. The
	// initial evaluation inside NewWatcher is the first mount.
	a.watcher = reactive.NewWatcher(a.owner, func() any {
		a.update()
		return nil
	}, nil, reactive.Expr("root render"))
	return nil
}

// update renders the next generation and patches it against the
// previous one. A panicking render keeps the previous generation.
func (a *App) update() {
	next, ok := a.renderTree()
	if !ok {
		return
	}
	a.patcher.PatchRoot(a.container, a.tree, next)
	a.tree = next
}

func (a *App) renderTree() (n *vdom.VNode, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			reactive.ReportError(errors.New("E030").WithContext("root render").Wrap(recoveredErr(r)))
			n, ok = nil, false
		}
	}()
	n = a.render()
	if n == nil {
		// An empty render still needs a stable root to diff against.
		n = vdom.Comment("")
	}
	return n, true
}

// Unmount tears the tree down and releases the container. Watchers
// and component scopes created under this App are disposed.
func (a *App) Unmount() {
	if a.watcher == nil {
		return
	}
	a.owner.Dispose()
	a.patcher.Patch(a.tree, nil)
	a.tree = nil
	a.watcher = nil

	mountedMu.Lock()
	delete(mounted, a.container)
	mountedMu.Unlock()
	a.container = nil
}

// Watch registers a user watcher over an arbitrary getter. The
// callback runs on the next flush after any dependency of the getter
// changes. The returned function stops the watcher.
func (a *App) Watch(getter func() any, cb func(newVal, oldVal any), opts ...reactive.WatcherOption) func() {
	opts = append([]reactive.WatcherOption{reactive.User()}, opts...)
	w := reactive.NewWatcher(a.owner, getter, cb, opts...)
	return w.Teardown
}

// Computed declares a lazily cached derived value scoped to this App.
func (a *App) Computed(fn func() any, opts ...reactive.WatcherOption) *reactive.Computed {
	return reactive.NewComputed(a.owner, fn, opts...)
}

// Flush synchronously applies this app's pending re-renders. The
// scheduler is shared, so pending work of other apps flushes too.
func (a *App) Flush() {
	reactive.Flush()
}

// NextTick runs fn after the pending re-renders have been applied.
func (a *App) NextTick(fn func()) {
	reactive.NextTick(fn)
}

// Flush synchronously applies all pending re-renders. Hosts driving
// their own event loop call this after delivering events.
func Flush() {
	reactive.Flush()
}

// NextTick runs fn after the pending re-renders have been applied.
func NextTick(fn func()) {
	reactive.NextTick(fn)
}

// Collapse reduces an evaluator's node sequence to a single root.
// A single node passes through; more than one root is diagnosed and
// the first is used.
func Collapse(nodes []*vdom.VNode) *vdom.VNode {
	switch len(nodes) {
	case 0:
		return nil
	case 1:
		return nodes[0]
	}
	reactive.ReportWarning(errors.New("E014").WithContext("%d roots", len(nodes)))
	return nodes[0]
}

func recoveredErr(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}
