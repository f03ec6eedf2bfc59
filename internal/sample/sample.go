// Package sample writes binary log streams from readable descriptions. The
// frames are byte-for-byte what a device would emit, which makes it the
// source of fixtures for the decoder and the HTTP service.
package sample

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/danmuck/litelog/internal/header"
	"github.com/danmuck/litelog/internal/protocol/frame"
	"github.com/valyala/fastjson"
)

var (
	ErrUnknownLevel = errors.New("sample: unknown level")
	ErrUnknownType  = errors.New("sample: unknown type")
	ErrNoSchema     = errors.New("sample: no schema for type")
)

// Record describes one frame. Raw, when set, is written as the payload
// instead of encoding Values.
type Record struct {
	Timestamp uint32
	Level     string
	Type      string
	Values    map[string]any
	Raw       []byte
}

type Writer struct {
	w      io.Writer
	defs   *header.Definitions
	limits frame.Limits
	n      int
}

func NewWriter(w io.Writer, defs *header.Definitions) *Writer {
	if defs == nil {
		defs = &header.Definitions{}
	}
	return &Writer{w: w, defs: defs, limits: frame.DefaultLimits()}
}

func (w *Writer) Write(r Record) error {
	level, ok := w.defs.Levels.Code(r.Level)
	if !ok || level > math.MaxUint16 {
		return fmt.Errorf("%w: %q", ErrUnknownLevel, r.Level)
	}
	typ, ok := w.defs.Types.Code(r.Type)
	if !ok || typ > math.MaxUint16 {
		return fmt.Errorf("%w: %q", ErrUnknownType, r.Type)
	}

	payload := r.Raw
	if payload == nil {
		rec, ok := w.defs.Schemas.Lookup(typ)
		if !ok {
			return fmt.Errorf("%w: %s (%d)", ErrNoSchema, r.Type, typ)
		}
		var err error
		if payload, err = rec.Encode(r.Values); err != nil {
			return err
		}
	}

	f := frame.Frame{
		Header:  frame.Header{Timestamp: r.Timestamp, Level: uint16(level), Type: uint16(typ)},
		Payload: payload,
	}
	if err := frame.WriteFrame(w.w, f, w.limits); err != nil {
		return fmt.Errorf("sample: frame %d: %w", w.n, err)
	}
	w.n++
	return nil
}

// Count is the number of frames written so far.
func (w *Writer) Count() int {
	return w.n
}

// ReadJSONLines parses one record per non-blank line:
//
//	{"ts":1700000000,"level":"INFO","type":"MSG","fields":{"msg":"hi"}}
//	{"ts":1700000001,"level":"ERROR","type":"UNKNOWN(9)","raw":"deadbeef"}
func ReadJSONLines(r io.Reader) ([]Record, error) {
	var (
		p   fastjson.Parser
		out []Record
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		v, err := p.Parse(text)
		if err != nil {
			return nil, fmt.Errorf("sample: line %d: %w", line, err)
		}
		rec, err := recordFromJSON(v)
		if err != nil {
			return nil, fmt.Errorf("sample: line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func recordFromJSON(v *fastjson.Value) (Record, error) {
	var rec Record
	if ts := v.Get("ts"); ts != nil {
		n, err := ts.Uint64()
		if err != nil || n > math.MaxUint32 {
			return rec, fmt.Errorf("ts must be a uint32")
		}
		rec.Timestamp = uint32(n)
	}
	rec.Level = string(v.GetStringBytes("level"))
	rec.Type = string(v.GetStringBytes("type"))
	if rec.Level == "" || rec.Type == "" {
		return rec, fmt.Errorf("level and type are required")
	}

	if raw := v.Get("raw"); raw != nil {
		b, err := hex.DecodeString(string(raw.GetStringBytes()))
		if err != nil {
			return rec, fmt.Errorf("raw: %w", err)
		}
		rec.Raw = b
		return rec, nil
	}

	rec.Values = map[string]any{}
	obj := v.GetObject("fields")
	if obj == nil {
		return rec, nil
	}
	var ferr error
	obj.Visit(func(key []byte, fv *fastjson.Value) {
		if ferr != nil {
			return
		}
		switch fv.Type() {
		case fastjson.TypeString:
			rec.Values[string(key)] = string(fv.GetStringBytes())
		case fastjson.TypeNumber:
			n, err := fv.Int64()
			if err != nil {
				ferr = fmt.Errorf("field %s: %w", key, err)
				return
			}
			rec.Values[string(key)] = n
		default:
			ferr = fmt.Errorf("field %s: unsupported %s value", key, fv.Type())
		}
	})
	return rec, ferr
}
