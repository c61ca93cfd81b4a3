package protocol

import (
	"errors"
	"testing"
)

func TestBatchRoundTrip(t *testing.T) {
	in := &Batch{
		Seq: 7,
		Mutations: []Mutation{
			NewCreateElement(1, "div"),
			NewCreateText(2, "hello"),
			NewInsert(2, 1, 0),
			NewSetText(2, "goodbye"),
			NewSetProp(1, "class", "active"),
			NewRemoveProp(1, "class"),
			NewCreateComment(3, "placeholder"),
			NewInsert(3, 1, 2),
			NewRemove(3),
		},
	}

	out, err := DecodeBatch(EncodeBatch(in))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out.Seq != in.Seq {
		t.Errorf("seq = %d, want %d", out.Seq, in.Seq)
	}
	if len(out.Mutations) != len(in.Mutations) {
		t.Fatalf("got %d mutations, want %d", len(out.Mutations), len(in.Mutations))
	}
	for i := range in.Mutations {
		if out.Mutations[i] != in.Mutations[i] {
			t.Errorf("mutation %d = %+v, want %+v", i, out.Mutations[i], in.Mutations[i])
		}
	}
}

func TestDecodeBatchUnknownOp(t *testing.T) {
	e := NewEncoder()
	e.WriteUvarint(1) // seq
	e.WriteUvarint(1) // count
	e.WriteByte(0xEE) // bogus op
	e.WriteUvarint(5) // node

	if _, err := DecodeBatch(e.Bytes()); err == nil {
		t.Error("expected error for unknown op")
	}
}

func TestDecodeBatchCountLimit(t *testing.T) {
	e := NewEncoder()
	e.WriteUvarint(1)
	e.WriteUvarint(MaxBatchLen + 1)

	if _, err := DecodeBatch(e.Bytes()); !errors.Is(err, ErrBatchTooLong) {
		t.Errorf("expected batch-count error, got %v", err)
	}
}

func TestDecodeBatchTruncated(t *testing.T) {
	full := EncodeBatch(&Batch{
		Seq:       1,
		Mutations: []Mutation{NewCreateElement(1, "section")},
	})
	// Every proper prefix must fail cleanly, not panic.
	for n := 0; n < len(full); n++ {
		if _, err := DecodeBatch(full[:n]); err == nil {
			t.Errorf("prefix of %d bytes decoded without error", n)
		}
	}
}

func TestEventRoundTrip(t *testing.T) {
	in := &Event{Seq: 42, Node: 9, Type: "click", Value: ""}
	out, err := DecodeEvent(EncodeEvent(in))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if *out != *in {
		t.Errorf("got %+v, want %+v", out, in)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	payload := EncodeBatch(&Batch{Seq: 1, Mutations: []Mutation{NewRemove(4)}})
	f := &Frame{Type: FrameMutations, Payload: payload}

	raw, err := f.Encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	got, err := DecodeFrame(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Type != FrameMutations {
		t.Errorf("type = %v, want %v", got.Type, FrameMutations)
	}
	if string(got.Payload) != string(payload) {
		t.Error("payload mismatch")
	}
}

func TestFrameTooLarge(t *testing.T) {
	f := &Frame{Type: FrameMutations, Payload: make([]byte, MaxPayloadSize+1)}
	if _, err := f.Encode(); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("expected frame-too-large error, got %v", err)
	}
}

func TestDecodeFrameRejectsUnknownType(t *testing.T) {
	if _, err := DecodeFrame([]byte{0x7F, 0, 0, 0}); !errors.Is(err, ErrInvalidFrameType) {
		t.Errorf("expected invalid-frame-type error, got %v", err)
	}
}

func TestHelloRoundTrip(t *testing.T) {
	in := &Hello{Version: ProtocolVersion, SessionID: "abc123"}
	out, err := DecodeHello(EncodeHello(in))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if *out != *in {
		t.Errorf("got %+v, want %+v", out, in)
	}
}
