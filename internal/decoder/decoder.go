// Package decoder turns a stream of binary log frames into entries.
//
// Decoding is pull-based: each call to Next reads exactly one frame. A clean
// end of stream at a frame boundary finishes the sequence; any truncation
// aborts it, since frames carry no sync marker to resynchronise on.
package decoder

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"iter"
	"time"

	"github.com/danmuck/litelog/internal/entry"
	"github.com/danmuck/litelog/internal/header"
	"github.com/danmuck/litelog/internal/observability"
	"github.com/danmuck/litelog/internal/protocol/frame"
	"github.com/danmuck/litelog/internal/protocol/schema"
	"github.com/rs/zerolog/log"
)

type State int

const (
	StateReadingHeader State = iota
	StateReadingPayload
	StateEmitting
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateReadingHeader:
		return "reading_header"
	case StateReadingPayload:
		return "reading_payload"
	case StateEmitting:
		return "emitting"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// AbortError ends a stream early. Count entries were produced before it.
type AbortError struct {
	Count  int
	Offset int64
	Err    error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("decoder: aborted after %d entries at offset %d: %v", e.Count, e.Offset, e.Err)
}

func (e *AbortError) Unwrap() error {
	return e.Err
}

// Reason is a short label for metrics and logs.
func (e *AbortError) Reason() string {
	switch {
	case errors.Is(e.Err, frame.ErrShortHeader):
		return "short_header"
	case errors.Is(e.Err, frame.ErrShortPayload):
		return "short_payload"
	case errors.Is(e.Err, frame.ErrPayloadTooLarge):
		return "payload_too_large"
	default:
		return "read_error"
	}
}

type Options struct {
	// Location renders log_time; nil means time.Local.
	Location *time.Location
	Charset  schema.Charset
	Limits   frame.Limits
}

func DefaultOptions() Options {
	return Options{
		Location: time.Local,
		Charset:  schema.UTF8,
		Limits:   frame.DefaultLimits(),
	}
}

// Decoder reads frames from one stream. It is not safe for concurrent use;
// defs is only read.
type Decoder struct {
	r     *countingReader
	defs  *header.Definitions
	opts  Options
	state State
	cur   entry.Entry
	count int
	err   error
}

func New(r io.Reader, defs *header.Definitions, opts Options) *Decoder {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if defs == nil {
		defs = &header.Definitions{}
	}
	return &Decoder{
		r:    &countingReader{r: r},
		defs: defs,
		opts: opts,
	}
}

// Next advances to the next entry. It returns false once the stream is done
// or aborted; Err tells the two apart.
func (d *Decoder) Next() bool {
	if d.state == StateDone || d.state == StateAborted {
		return false
	}

	start := d.r.n
	d.state = StateReadingHeader
	h, err := frame.ReadHeader(d.r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			d.state = StateDone
			log.Debug().Int("entries", d.count).Msg("decoder: stream complete")
			return false
		}
		d.abort(start, err)
		return false
	}

	d.state = StateReadingPayload
	payload, err := frame.ReadPayload(d.r, h, d.opts.Limits)
	if err != nil {
		d.abort(start, err)
		return false
	}

	d.state = StateEmitting
	d.cur = d.build(frame.Frame{Header: h, Payload: payload})
	d.count++
	d.state = StateReadingHeader
	return true
}

func (d *Decoder) abort(offset int64, err error) {
	ae := &AbortError{Count: d.count, Offset: offset, Err: err}
	d.err = ae
	observability.RecordAbort(ae.Reason())
	log.Warn().
		Err(err).
		Str("state", d.state.String()).
		Int("entries", d.count).
		Int64("offset", offset).
		Msg("decoder: stream aborted")
	d.state = StateAborted
}

func (d *Decoder) build(f frame.Frame) entry.Entry {
	h := f.Header
	fields := []entry.Field{
		{Key: entry.KeyTime, Value: time.Unix(int64(h.Timestamp), 0).In(d.opts.Location).Format(entry.TimeLayout)},
		{Key: entry.KeyLevel, Value: d.defs.Levels.Name(int(h.Level))},
		{Key: entry.KeyType, Value: d.defs.Types.Name(int(h.Type))},
	}

	rec, ok := d.defs.Schemas.Lookup(int(h.Type))
	if !ok {
		observability.RecordFrame(observability.OutcomeNoSchema, len(f.Payload))
		fields = append(fields, entry.Field{Key: entry.KeyRaw, Value: hex.EncodeToString(f.Payload)})
		return entry.New(fields...)
	}

	values, err := rec.Decode(f.Payload, d.opts.Charset)
	if err != nil {
		observability.RecordFrame(observability.OutcomeMismatch, len(f.Payload))
		log.Warn().
			Str("record", rec.Name).
			Int("type", int(h.Type)).
			Int("entry", d.count).
			Err(err).
			Msg("decoder: payload falls back to raw")
		fields = append(fields,
			entry.Field{Key: entry.KeyRaw, Value: hex.EncodeToString(f.Payload)},
			entry.Field{Key: entry.KeyNote, Value: err.Error()},
		)
		return entry.New(fields...)
	}

	observability.RecordFrame(observability.OutcomeDecoded, len(f.Payload))
	for _, v := range values {
		fields = append(fields, entry.Field{Key: v.Name, Value: v.Value})
	}
	return entry.New(fields...)
}

// Entry is the entry produced by the last successful Next.
func (d *Decoder) Entry() entry.Entry {
	return d.cur
}

// Err is nil after a clean finish and an *AbortError otherwise.
func (d *Decoder) Err() error {
	return d.err
}

func (d *Decoder) Count() int {
	return d.count
}

func (d *Decoder) State() State {
	return d.state
}

// Entries yields entries until the stream ends. Check Err afterwards.
func (d *Decoder) Entries() iter.Seq[entry.Entry] {
	return func(yield func(entry.Entry) bool) {
		for d.Next() {
			if !yield(d.cur) {
				return
			}
		}
	}
}

// DecodeAll collects every entry. On abort it returns the entries produced
// before the truncation together with the *AbortError.
func DecodeAll(r io.Reader, defs *header.Definitions, opts Options) ([]entry.Entry, error) {
	d := New(r, defs, opts)
	var out []entry.Entry
	for e := range d.Entries() {
		out = append(out, e)
	}
	return out, d.Err()
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
