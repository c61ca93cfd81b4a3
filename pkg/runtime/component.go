package runtime

import (
	"github.com/WangZhekun/vue/internal/errors"
	"github.com/WangZhekun/vue/pkg/reactive"
	"github.com/WangZhekun/vue/pkg/vdom"
)

// PropsReceiver is implemented by components that consume props from
// their mount point. SetProps runs before each re-render triggered by
// a parent update.
type PropsReceiver interface {
	SetProps(vdom.Props)
}

// componentInstance is the runtime state behind one mounted component
// boundary: its own owner scope, render watcher, and subtree
// generation chain.
type componentInstance struct {
	app     *App
	comp    vdom.Component
	owner   *reactive.Owner
	watcher *reactive.Watcher
	tree    *vdom.VNode
	handle  vdom.Handle
}

// newComponentHooks wires component boundaries to per-instance render
// watchers. Init evaluates the component synchronously to produce its
// first subtree; later dependency changes re-render only that
// subtree.
func newComponentHooks(a *App) vdom.ComponentHooks {
	return vdom.ComponentHooks{
		Init: func(n *vdom.VNode) vdom.Handle {
			inst := &componentInstance{
				app:   a,
				comp:  n.Comp,
				owner: reactive.NewOwner(a.owner),
			}
			n.Instance = inst
			if pr, ok := inst.comp.(PropsReceiver); ok && n.Props != nil {
				pr.SetProps(n.Props)
			}

			inst.watcher = reactive.NewWatcher(inst.owner, func() any {
				inst.update()
				return nil
			}, nil, reactive.Expr("component render"))

			if inst.handle == nil {
				// First render failed; hold the slot with a comment
				// so a later successful render can take its place.
				inst.handle = a.adapter.CreateComment("")
			}
			return inst.handle
		},
		Prepatch: func(old, new *vdom.VNode) {
			inst, ok := old.Instance.(*componentInstance)
			if !ok {
				return
			}
			new.Instance = inst
			if pr, isPR := inst.comp.(PropsReceiver); isPR {
				pr.SetProps(new.Props)
			}
			// Props are plain values, not tracked reads, so a parent
			// update forces the child through the scheduler.
			inst.watcher.Update()
		},
		Destroy: func(n *vdom.VNode) {
			inst, ok := n.Instance.(*componentInstance)
			if !ok {
				return
			}
			inst.owner.Dispose()
			inst.app.patcher.Patch(inst.tree, nil)
			inst.tree = nil
		},
	}
}

// update renders the component's next subtree generation and patches
// it against the previous one. A panicking render keeps the previous
// subtree, matching the root render policy.
func (inst *componentInstance) update() {
	next, ok := inst.renderTree()
	if !ok {
		return
	}
	if inst.tree == nil && inst.handle != nil {
		// Recovering from a failed first render: swap the new subtree
		// in where the placeholder sits.
		h := inst.app.patcher.Patch(nil, next)
		api := inst.app.adapter
		if parent := api.Parent(inst.handle); parent != nil {
			api.Insert(parent, h, inst.handle)
			api.Remove(inst.handle)
		}
		inst.handle = h
	} else {
		inst.handle = inst.app.patcher.Patch(inst.tree, next)
	}
	inst.tree = next
}

func (inst *componentInstance) renderTree() (n *vdom.VNode, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			reactive.ReportError(errors.New("E030").WithContext("component render").Wrap(recoveredErr(r)))
			n, ok = nil, false
		}
	}()
	n = inst.comp.Render()
	if n == nil {
		n = vdom.Comment("")
	}
	return n, true
}
