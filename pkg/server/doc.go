// Package server hosts reactive apps for thin remote tree clients.
//
// The runtime, state, and patcher live server-side. Each WebSocket
// session owns one app mounted on a RemoteAdapter: the adapter applies
// every native-tree mutation to an in-memory mirror and records it as
// a protocol mutation. After each delivered client event the scheduler
// is flushed and the recorded batch is sent down the socket, where the
// client replays it against the real UI.
package server
