package server

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/WangZhekun/vue/pkg/instrument"
	"github.com/WangZhekun/vue/pkg/metrics"
	"github.com/WangZhekun/vue/pkg/protocol"
	"github.com/WangZhekun/vue/pkg/runtime"
)

// EventHandler reacts to one client event, typically by writing
// reactive state. The flush and the resulting mutation batch are the
// session's responsibility, not the handler's.
type EventHandler func(ev *protocol.Event)

// Session is one connected client: a socket, an app mounted on a
// RemoteAdapter, and the event dispatch loop.
type Session struct {
	ID      string
	adapter *RemoteAdapter

	conn    *websocket.Conn
	app     *runtime.App
	handler EventHandler
	logger  *slog.Logger

	seq       atomic.Uint64
	writeMu   sync.Mutex
	closeOnce sync.Once
}

// run performs the handshake, mounts the app, and then dispatches
// events until the connection drops.
func (s *Session) run() {
	defer s.close()

	if err := s.handshake(); err != nil {
		s.logger.Warn("handshake failed", "session", s.ID, "error", err)
		return
	}

	metrics.RecordSessionStart()
	defer metrics.RecordSessionEnd()

	if err := s.app.Mount(s.adapter.Root()); err != nil {
		s.logger.Error("mount failed", "session", s.ID, "error", err)
		s.sendError("E031", err.Error())
		return
	}
	defer s.app.Unmount()

	// First generation goes down immediately.
	if err := s.sendPending(); err != nil {
		return
	}

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.logger.Debug("session closed", "session", s.ID, "error", err)
			return
		}
		frame, err := protocol.DecodeFrame(data)
		if err != nil {
			s.sendError("E040", err.Error())
			return
		}
		if err := s.handleFrame(frame); err != nil {
			s.logger.Warn("frame handling failed", "session", s.ID, "error", err)
			return
		}
	}
}

// handshake reads the client hello and answers with the negotiated
// version and the session ID.
func (s *Session) handshake() error {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return err
	}
	frame, err := protocol.DecodeFrame(data)
	if err != nil {
		return err
	}
	if frame.Type != protocol.FrameHello {
		s.sendError("E040", "expected hello frame")
		return protocol.ErrInvalidFrameType
	}
	if _, err := protocol.DecodeHello(frame.Payload); err != nil {
		return err
	}

	return s.writeFrame(&protocol.Frame{
		Type: protocol.FrameHello,
		Payload: protocol.EncodeHello(&protocol.Hello{
			Version:   protocol.ProtocolVersion,
			SessionID: s.ID,
		}),
	})
}

func (s *Session) handleFrame(frame *protocol.Frame) error {
	switch frame.Type {
	case protocol.FrameEvent:
		ev, err := protocol.DecodeEvent(frame.Payload)
		if err != nil {
			s.sendError("E040", err.Error())
			return err
		}
		if ev.Node != 0 && s.adapter.Lookup(ev.Node) == nil {
			// Stale target, likely a race with a removal. Drop the
			// event but keep the session.
			s.logger.Debug("unknown event target", "session", s.ID, "node", ev.Node)
			s.sendError("E041", "unknown event target")
			return nil
		}
		s.dispatch(ev)
		return s.sendPending()

	case protocol.FrameControl:
		if len(frame.Payload) == 1 && frame.Payload[0] == protocol.ControlPing {
			return s.writeFrame(&protocol.Frame{
				Type:    protocol.FrameControl,
				Payload: []byte{protocol.ControlPong},
			})
		}
		return nil

	default:
		s.sendError("E040", "unexpected frame type "+frame.Type.String())
		return protocol.ErrInvalidFrameType
	}
}

// dispatch delivers one event to the app and flushes the resulting
// re-renders, all inside one trace span.
func (s *Session) dispatch(ev *protocol.Event) {
	_, span := instrument.EventSpan(context.Background(), ev.Type, "")
	defer span.End()

	if s.handler != nil {
		s.handler(ev)
	}
	runtime.Flush()
}

// sendPending ships the mutations accumulated on the adapter, if any.
func (s *Session) sendPending() error {
	batch := s.adapter.TakeBatch(s.seq.Add(1))
	if batch == nil {
		return nil
	}
	return s.writeFrame(&protocol.Frame{
		Type:    protocol.FrameMutations,
		Payload: protocol.EncodeBatch(batch),
	})
}

func (s *Session) writeFrame(frame *protocol.Frame) error {
	raw, err := frame.Encode()
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, raw)
}

func (s *Session) sendError(code, msg string) {
	frame := &protocol.Frame{
		Type:    protocol.FrameError,
		Payload: protocol.EncodeError(&protocol.ErrorFrame{Code: code, Message: msg}),
	}
	if err := s.writeFrame(frame); err != nil {
		s.logger.Debug("error frame not delivered", "session", s.ID, "error", err)
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.conn.Close()
	})
}
