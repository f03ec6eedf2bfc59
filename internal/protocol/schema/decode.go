package schema

import (
	"encoding/binary"
	"fmt"
)

// SizeMismatchError reports a payload whose length disagrees with the
// record's packed size. No field is decoded in that case.
type SizeMismatchError struct {
	Record   string
	Expected int
	Actual   int
}

func (e SizeMismatchError) Error() string {
	return fmt.Sprintf("size mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Value is one decoded field. Value holds uint16, uint32, int16, int32 or
// string depending on the field encoding.
type Value struct {
	Name  string
	Value any
}

// Decode unpacks payload in declaration order.
func (r Record) Decode(payload []byte, cs Charset) ([]Value, error) {
	if want := r.Size(); want != len(payload) {
		return nil, SizeMismatchError{Record: r.Name, Expected: want, Actual: len(payload)}
	}
	out := make([]Value, 0, len(r.Fields))
	off := 0
	for _, f := range r.Fields {
		w := f.Width()
		b := payload[off : off+w]
		off += w
		var v any
		switch f.Encoding {
		case EncodingU16:
			v = binary.LittleEndian.Uint16(b)
		case EncodingU32:
			v = binary.LittleEndian.Uint32(b)
		case EncodingI16:
			v = int16(binary.LittleEndian.Uint16(b))
		case EncodingI32:
			v = int32(binary.LittleEndian.Uint32(b))
		case EncodingBytes:
			v = cs.Decode(b)
		default:
			continue
		}
		out = append(out, Value{Name: f.Name, Value: v})
	}
	return out, nil
}

// Encode packs values by field name. Missing fields are zero-filled and text
// longer than a char array is truncated to fit.
func (r Record) Encode(values map[string]any) ([]byte, error) {
	buf := make([]byte, r.Size())
	off := 0
	for _, f := range r.Fields {
		w := f.Width()
		b := buf[off : off+w]
		off += w
		raw, ok := values[f.Name]
		if !ok {
			continue
		}
		if f.Encoding == EncodingBytes {
			switch v := raw.(type) {
			case string:
				copy(b, v)
			case []byte:
				copy(b, v)
			default:
				return nil, fmt.Errorf("schema: field %s: want text, got %T", f.Name, raw)
			}
			continue
		}
		n, err := toInt64(raw)
		if err != nil {
			return nil, fmt.Errorf("schema: field %s: %w", f.Name, err)
		}
		switch f.Encoding {
		case EncodingU16, EncodingI16:
			binary.LittleEndian.PutUint16(b, uint16(n))
		case EncodingU32, EncodingI32:
			binary.LittleEndian.PutUint32(b, uint32(n))
		}
	}
	return buf, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("want integer, got %T", v)
	}
}
