// Package vdom provides the virtual tree model and the reconciler.
//
// A VNode describes one UI element, text span, comment, or component
// boundary. Render evaluators produce a fresh tree every run; the
// Patcher diffs the previous generation against the new one and emits
// the minimal set of create/move/update/remove operations against a
// native-tree Adapter.
//
// # Diffing
//
// Two nodes are the same logical node iff key, kind, tag, and
// component-ness all agree; identity decides reuse versus replace.
// Keyed sibling lists are reconciled with a four-cursor algorithm that
// resolves rotations and moves with O(1) probes before falling back to
// a lazily built key index.
//
// # Adapters
//
// The Adapter interface is the only way the reconciler touches a real
// UI: tests use the in-memory MemDOM, the session server streams the
// same operations to a thin client. Module hooks observe every
// create/update/remove/destroy step; removal is reference-counted so
// asynchronous exit transitions can hold a node until every removal
// listener has called back.
package vdom
