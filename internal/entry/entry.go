// Package entry holds the decoded form of one log frame: an ordered set of
// named values that keeps the synthetic header fields first and the payload
// fields in declaration order.
package entry

import (
	"fmt"

	"github.com/valyala/fastjson"
)

const (
	KeyTime  = "log_time"
	KeyLevel = "log_level"
	KeyType  = "log_type"
	KeyRaw   = "raw"
	KeyNote  = "note"
)

// TimeLayout renders log_time as YYYY-MM-DD HH:MM:SS.
const TimeLayout = "2006-01-02 15:04:05"

type Field struct {
	Key   string
	Value any
}

// Entry is immutable; With returns a modified copy.
type Entry struct {
	fields []Field
}

// New keeps the first occurrence position of each key and the last value.
func New(fields ...Field) Entry {
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		out = set(out, f.Key, f.Value)
	}
	return Entry{fields: out}
}

func (e Entry) With(key string, v any) Entry {
	out := make([]Field, len(e.fields), len(e.fields)+1)
	copy(out, e.fields)
	return Entry{fields: set(out, key, v)}
}

func set(fields []Field, key string, v any) []Field {
	for i := range fields {
		if fields[i].Key == key {
			fields[i].Value = v
			return fields
		}
	}
	return append(fields, Field{Key: key, Value: v})
}

func (e Entry) Get(key string) (any, bool) {
	for _, f := range e.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Text returns the value for key formatted as a string, or "" when absent.
func (e Entry) Text(key string) string {
	v, ok := e.Get(key)
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func (e Entry) Has(key string) bool {
	_, ok := e.Get(key)
	return ok
}

func (e Entry) Fields() []Field {
	out := make([]Field, len(e.fields))
	copy(out, e.fields)
	return out
}

func (e Entry) Keys() []string {
	out := make([]string, len(e.fields))
	for i, f := range e.fields {
		out[i] = f.Key
	}
	return out
}

func (e Entry) Len() int {
	return len(e.fields)
}

// AppendJSON appends e as a JSON object in field order. a may be reused by
// the caller after Reset.
func (e Entry) AppendJSON(dst []byte, a *fastjson.Arena) []byte {
	return e.Value(a).MarshalTo(dst)
}

// Value builds e as a fastjson object owned by a.
func (e Entry) Value(a *fastjson.Arena) *fastjson.Value {
	obj := a.NewObject()
	for _, f := range e.fields {
		obj.Set(f.Key, jsonValue(a, f.Value))
	}
	return obj
}

func (e Entry) MarshalJSON() ([]byte, error) {
	var a fastjson.Arena
	return e.AppendJSON(nil, &a), nil
}

func jsonValue(a *fastjson.Arena, v any) *fastjson.Value {
	switch x := v.(type) {
	case nil:
		return a.NewNull()
	case string:
		return a.NewString(x)
	case []byte:
		return a.NewStringBytes(x)
	case bool:
		if x {
			return a.NewTrue()
		}
		return a.NewFalse()
	case int:
		return a.NewNumberInt(x)
	case int16:
		return a.NewNumberInt(int(x))
	case int32:
		return a.NewNumberInt(int(x))
	case int64:
		return a.NewNumberString(fmt.Sprint(x))
	case uint16:
		return a.NewNumberInt(int(x))
	case uint32:
		return a.NewNumberString(fmt.Sprint(x))
	case uint64:
		return a.NewNumberString(fmt.Sprint(x))
	case float64:
		return a.NewNumberFloat64(x)
	default:
		return a.NewString(fmt.Sprint(x))
	}
}
