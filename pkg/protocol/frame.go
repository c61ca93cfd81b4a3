package protocol

import (
	"errors"
	"io"
)

const (
	// FrameHeaderSize is the size of the frame header in bytes.
	FrameHeaderSize = 4

	// MaxPayloadSize is the maximum payload size (2^16 - 1 bytes).
	MaxPayloadSize = 65535
)

// FrameType identifies the type of frame.
type FrameType uint8

const (
	FrameHello     FrameType = 0x00 // Connection setup
	FrameEvent     FrameType = 0x01 // Client to server events
	FrameMutations FrameType = 0x02 // Server to client mutations
	FrameControl   FrameType = 0x03 // Ping/pong
	FrameError     FrameType = 0x04 // Terminal error
)

// String returns the string representation of the frame type.
func (ft FrameType) String() string {
	switch ft {
	case FrameHello:
		return "Hello"
	case FrameEvent:
		return "Event"
	case FrameMutations:
		return "Mutations"
	case FrameControl:
		return "Control"
	case FrameError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Control payload bytes.
const (
	ControlPing byte = 0x01
	ControlPong byte = 0x02
)

// Frame errors.
var (
	ErrFrameTooLarge    = errors.New("protocol: frame payload too large")
	ErrInvalidFrameType = errors.New("protocol: invalid frame type")
)

// Frame is one protocol message: header plus payload.
type Frame struct {
	Type    FrameType
	Flags   uint8
	Payload []byte
}

// Encode encodes the frame to bytes including the header.
func (f *Frame) Encode() ([]byte, error) {
	if len(f.Payload) > MaxPayloadSize {
		return nil, ErrFrameTooLarge
	}
	buf := make([]byte, FrameHeaderSize+len(f.Payload))
	buf[0] = byte(f.Type)
	buf[1] = f.Flags
	buf[2] = byte(len(f.Payload) >> 8)
	buf[3] = byte(len(f.Payload))
	copy(buf[FrameHeaderSize:], f.Payload)
	return buf, nil
}

// DecodeFrame decodes a frame from data. The input must contain the
// full header and payload.
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) < FrameHeaderSize {
		return nil, io.ErrUnexpectedEOF
	}
	ft := FrameType(data[0])
	if ft > FrameError {
		return nil, ErrInvalidFrameType
	}
	length := int(data[2])<<8 | int(data[3])
	if len(data) < FrameHeaderSize+length {
		return nil, io.ErrUnexpectedEOF
	}
	return &Frame{
		Type:    ft,
		Flags:   data[1],
		Payload: data[FrameHeaderSize : FrameHeaderSize+length],
	}, nil
}

// Hello is the connection-setup payload.
type Hello struct {
	// Version is the protocol version the peer speaks.
	Version uint8

	// SessionID resumes an existing session when non-empty.
	SessionID string
}

// ProtocolVersion is the version this package implements.
const ProtocolVersion uint8 = 1

// EncodeHello encodes a hello payload.
func EncodeHello(h *Hello) []byte {
	e := NewEncoder()
	e.WriteByte(h.Version)
	e.WriteString(h.SessionID)
	return e.Bytes()
}

// DecodeHello decodes a hello payload.
func DecodeHello(data []byte) (*Hello, error) {
	d := NewDecoder(data)
	version, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	sessionID, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	return &Hello{Version: version, SessionID: sessionID}, nil
}

// ErrorFrame is the terminal-error payload.
type ErrorFrame struct {
	// Code is the stable error code, e.g. "E041".
	Code string

	// Message is a human-readable description.
	Message string
}

// EncodeError encodes an error payload.
func EncodeError(ef *ErrorFrame) []byte {
	e := NewEncoder()
	e.WriteString(ef.Code)
	e.WriteString(ef.Message)
	return e.Bytes()
}

// DecodeError decodes an error payload.
func DecodeError(data []byte) (*ErrorFrame, error) {
	d := NewDecoder(data)
	code, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	msg, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	return &ErrorFrame{Code: code, Message: msg}, nil
}
