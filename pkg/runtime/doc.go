// Package runtime ties the reactive graph to the virtual-tree patcher.
//
// An App owns one root state container, one render function, and one
// render watcher. Reads the render function performs are tracked;
// writes to the state queue a re-render, and the next flush diffs the
// new tree against the previous generation and applies the minimal
// mutations through the App's adapter.
//
// Components mounted inside the tree get their own render watcher and
// owner scope, so a component re-renders independently when only its
// own reads changed, and tears its subscriptions down when it leaves
// the tree.
package runtime
