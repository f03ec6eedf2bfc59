package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// HeaderLen is timestamp(4) + level(2) + type(2) + payload_size(4).
const HeaderLen = 12

var (
	ErrShortHeader     = errors.New("frame: short header")
	ErrShortPayload    = errors.New("frame: short payload")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
)

// Header is the fixed little-endian record header.
type Header struct {
	Timestamp  uint32
	Level      uint16
	Type       uint16
	PayloadLen uint32
}

// Frame is one complete log record.
type Frame struct {
	Header  Header
	Payload []byte
}

// Limits constrains frame decode/encode memory use.
type Limits struct {
	// MaxPayloadBytes of 0 disables the check.
	MaxPayloadBytes uint32
}

// DefaultLimits matches the 24-bit data_size field of the device-side entry.
func DefaultLimits() Limits {
	return Limits{
		MaxPayloadBytes: 16 * 1024 * 1024,
	}
}

// ReadFrame reads one frame. A clean end of stream before any header byte
// returns io.EOF; every other short read is reported as ErrShortHeader or
// ErrShortPayload.
func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return Frame{}, err
	}
	payload, err := ReadPayload(r, h, limits)
	if err != nil {
		return Frame{Header: h}, err
	}
	return Frame{Header: h, Payload: payload}, nil
}

func ReadHeader(r io.Reader) (Header, error) {
	var fixed [HeaderLen]byte
	n, err := io.ReadFull(r, fixed[:])
	if err != nil {
		if errors.Is(err, io.EOF) && n == 0 {
			return Header{}, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Header{}, fmt.Errorf("%w: got %d of %d bytes", ErrShortHeader, n, HeaderLen)
		}
		return Header{}, err
	}
	return DecodeHeader(fixed), nil
}

// ReadPayload reads exactly h.PayloadLen bytes. A partial payload is
// discarded.
func ReadPayload(r io.Reader, h Header, limits Limits) ([]byte, error) {
	if limits.MaxPayloadBytes > 0 && h.PayloadLen > limits.MaxPayloadBytes {
		return nil, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, h.PayloadLen, limits.MaxPayloadBytes)
	}
	payload := make([]byte, h.PayloadLen)
	if h.PayloadLen == 0 {
		return payload, nil
	}
	n, err := io.ReadFull(r, payload)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrShortPayload, h.PayloadLen, n)
		}
		return nil, err
	}
	return payload, nil
}

// WriteFrame sets PayloadLen from the payload and writes header + payload.
func WriteFrame(w io.Writer, f Frame, limits Limits) error {
	if uint64(len(f.Payload)) > uint64(^uint32(0)) {
		return ErrPayloadTooLarge
	}
	payloadLen := uint32(len(f.Payload))
	if limits.MaxPayloadBytes > 0 && payloadLen > limits.MaxPayloadBytes {
		return ErrPayloadTooLarge
	}

	h := f.Header
	h.PayloadLen = payloadLen
	hb := EncodeHeader(h)
	if _, err := w.Write(hb[:]); err != nil {
		return err
	}
	if payloadLen > 0 {
		if _, err := w.Write(f.Payload); err != nil {
			return err
		}
	}
	return nil
}

func EncodeHeader(h Header) [HeaderLen]byte {
	var buf [HeaderLen]byte
	binary.LittleEndian.PutUint32(buf[0:4], h.Timestamp)
	binary.LittleEndian.PutUint16(buf[4:6], h.Level)
	binary.LittleEndian.PutUint16(buf[6:8], h.Type)
	binary.LittleEndian.PutUint32(buf[8:12], h.PayloadLen)
	return buf
}

func DecodeHeader(b [HeaderLen]byte) Header {
	return Header{
		Timestamp:  binary.LittleEndian.Uint32(b[0:4]),
		Level:      binary.LittleEndian.Uint16(b[4:6]),
		Type:       binary.LittleEndian.Uint16(b[6:8]),
		PayloadLen: binary.LittleEndian.Uint32(b[8:12]),
	}
}
