// Package protocol implements the binary wire protocol between a
// server-side runtime and a thin remote tree client.
//
// The server runs the reactive graph and the patcher; the client only
// mirrors native-tree mutations and sends back user events. Mutations
// flow server to client, events flow client to server, both over one
// WebSocket connection.
//
// # Wire Format
//
// All messages are framed with a 4-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (2 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// Payloads use varint integers and length-prefixed UTF-8 strings.
// Nodes are identified by the server-assigned numeric handle ID; ID 0
// is reserved for "none" (append position, detached parent).
//
// # Frame Types
//
//   - FrameHello (0x00): connection setup, version negotiation
//   - FrameEvent (0x01): client to server user events
//   - FrameMutations (0x02): server to client mutation batches
//   - FrameControl (0x03): ping/pong
//   - FrameError (0x04): terminal error with code
package protocol
