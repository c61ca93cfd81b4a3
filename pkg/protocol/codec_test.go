package protocol

import (
	"errors"
	"io"
	"testing"
)

func TestUvarintBoundaries(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 16383, 16384, 1<<32 - 1, 1<<64 - 1}
	for _, v := range values {
		e := NewEncoder()
		e.WriteUvarint(v)
		d := NewDecoder(e.Bytes())
		got, err := d.ReadUvarint()
		if err != nil {
			t.Fatalf("value %d: %v", v, err)
		}
		if got != v {
			t.Errorf("value %d decoded as %d", v, got)
		}
		if !d.EOF() {
			t.Errorf("value %d left %d bytes unread", v, d.Remaining())
		}
	}
}

func TestUvarintTruncated(t *testing.T) {
	// A continuation bit with no following byte.
	d := NewDecoder([]byte{0x80})
	if _, err := d.ReadUvarint(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected unexpected EOF, got %v", err)
	}
}

func TestUvarintOverflow(t *testing.T) {
	// Eleven continuation bytes exceed 64 bits.
	buf := make([]byte, 11)
	for i := range buf {
		buf[i] = 0xFF
	}
	d := NewDecoder(buf)
	if _, err := d.ReadUvarint(); !errors.Is(err, ErrVarintOverflow) {
		t.Errorf("expected overflow error, got %v", err)
	}
}

func TestStringLimit(t *testing.T) {
	e := NewEncoder()
	e.WriteUvarint(MaxStringLen + 1)
	d := NewDecoder(e.Bytes())
	if _, err := d.ReadString(); !errors.Is(err, ErrStringTooLong) {
		t.Errorf("expected string-length error, got %v", err)
	}
}

func TestStringTruncatedPayload(t *testing.T) {
	e := NewEncoder()
	e.WriteUvarint(10)
	e.WriteBytes([]byte("short"))
	d := NewDecoder(e.Bytes())
	if _, err := d.ReadString(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected unexpected EOF, got %v", err)
	}
}

func TestBoolRejectsJunk(t *testing.T) {
	d := NewDecoder([]byte{7})
	if _, err := d.ReadBool(); !errors.Is(err, ErrInvalidBool) {
		t.Errorf("expected invalid-bool error, got %v", err)
	}
}

func TestEncoderReset(t *testing.T) {
	e := NewEncoder()
	e.WriteString("hello")
	if e.Len() == 0 {
		t.Fatal("expected bytes written")
	}
	e.Reset()
	if e.Len() != 0 {
		t.Errorf("expected empty encoder after reset, got %d bytes", e.Len())
	}
}
