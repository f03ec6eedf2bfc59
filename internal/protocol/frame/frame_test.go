package frame

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestReadWriteFrameRoundTrip(t *testing.T) {
	in := Frame{
		Header:  Header{Timestamp: 1700000000, Level: 2, Type: 1},
		Payload: []byte("payload"),
	}
	var buf bytes.Buffer
	if err := WriteFrame(&buf, in, DefaultLimits()); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	if buf.Len() != HeaderLen+len(in.Payload) {
		t.Fatalf("unexpected encoded length: %d", buf.Len())
	}
	out, err := ReadFrame(&buf, DefaultLimits())
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if out.Header.Timestamp != in.Header.Timestamp || out.Header.Level != in.Header.Level || out.Header.Type != in.Header.Type {
		t.Fatalf("header mismatch: got=%+v want=%+v", out.Header, in.Header)
	}
	if out.Header.PayloadLen != uint32(len(in.Payload)) {
		t.Fatalf("payload len not set: %d", out.Header.PayloadLen)
	}
	if !bytes.Equal(out.Payload, in.Payload) {
		t.Fatalf("payload mismatch")
	}
	if _, err := ReadFrame(&buf, DefaultLimits()); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF at frame boundary, got %v", err)
	}
}

func TestHeaderIsLittleEndian(t *testing.T) {
	b := EncodeHeader(Header{Timestamp: 0x01020304, Level: 0x0506, Type: 0x0708, PayloadLen: 0x090a0b0c})
	want := [HeaderLen]byte{0x04, 0x03, 0x02, 0x01, 0x06, 0x05, 0x08, 0x07, 0x0c, 0x0b, 0x0a, 0x09}
	if b != want {
		t.Fatalf("unexpected header bytes: % x", b)
	}
}

func TestReadFrameShortHeaderIsDeterministic(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{1, 2, 3, 4, 5}), DefaultLimits())
	if !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
}

func TestReadFrameShortPayload(t *testing.T) {
	hb := EncodeHeader(Header{Type: 1, PayloadLen: 10})
	buf := append(hb[:], []byte{1, 2, 3}...)
	f, err := ReadFrame(bytes.NewReader(buf), DefaultLimits())
	if !errors.Is(err, ErrShortPayload) {
		t.Fatalf("expected ErrShortPayload, got %v", err)
	}
	if f.Payload != nil {
		t.Fatalf("partial payload must not be returned")
	}
}

func TestReadFramePayloadLimit(t *testing.T) {
	hb := EncodeHeader(Header{PayloadLen: 64})
	_, err := ReadFrame(bytes.NewReader(hb[:]), Limits{MaxPayloadBytes: 32})
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
	if err := WriteFrame(io.Discard, Frame{Payload: make([]byte, 64)}, Limits{MaxPayloadBytes: 32}); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected write limit error, got %v", err)
	}
}

func TestReadFrameZeroLengthPayload(t *testing.T) {
	hb := EncodeHeader(Header{Type: 3})
	f, err := ReadFrame(bytes.NewReader(hb[:]), DefaultLimits())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(f.Payload) != 0 {
		t.Fatalf("expected empty payload")
	}
}
