package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Encoding is the fixed-width binary encoding of one payload field.
type Encoding uint8

const (
	EncodingUnknown Encoding = iota
	EncodingU16
	EncodingU32
	EncodingI16
	EncodingI32
	EncodingBytes
)

func (e Encoding) String() string {
	switch e {
	case EncodingU16:
		return "uint16"
	case EncodingU32:
		return "uint32"
	case EncodingI16:
		return "int16"
	case EncodingI32:
		return "int32"
	case EncodingBytes:
		return "bytes"
	default:
		return "unknown"
	}
}

// EncodingForCType maps a primitive C type name to its encoding. char is only
// valid with an array length and is handled by the caller.
func EncodingForCType(ctype string) (Encoding, bool) {
	switch ctype {
	case "uint16_t":
		return EncodingU16, true
	case "uint32_t":
		return EncodingU32, true
	case "int16_t":
		return EncodingI16, true
	case "int32_t":
		return EncodingI32, true
	default:
		return EncodingUnknown, false
	}
}

// Field is one named payload field.
type Field struct {
	Name     string
	Encoding Encoding
	// Len is the array length for EncodingBytes and ignored otherwise.
	Len int
}

func (f Field) Width() int {
	switch f.Encoding {
	case EncodingU16, EncodingI16:
		return 2
	case EncodingU32, EncodingI32:
		return 4
	case EncodingBytes:
		return f.Len
	default:
		return 0
	}
}

func (f Field) layout() string {
	switch f.Encoding {
	case EncodingU16:
		return "H"
	case EncodingU32:
		return "I"
	case EncodingI16:
		return "h"
	case EncodingI32:
		return "i"
	case EncodingBytes:
		return strconv.Itoa(f.Len) + "s"
	default:
		return "?"
	}
}

// Record is the decoded layout of one payload type.
type Record struct {
	ID     int
	Name   string
	Fields []Field
	// Explicit is set when ID came from an annotation rather than the
	// struct's position in the header.
	Explicit bool
}

// Size is the packed little-endian size with no padding.
func (r Record) Size() int {
	n := 0
	for _, f := range r.Fields {
		n += f.Width()
	}
	return n
}

func (r Record) FieldNames() []string {
	out := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		out[i] = f.Name
	}
	return out
}

// Layout renders the packed descriptor, e.g. "<I32s".
func (r Record) Layout() string {
	var b strings.Builder
	b.WriteByte('<')
	for _, f := range r.Fields {
		b.WriteString(f.layout())
	}
	return b.String()
}

func (r Record) String() string {
	return fmt.Sprintf("%d: (%s, [%s]) # %s", r.ID, r.Layout(), strings.Join(r.FieldNames(), ", "), r.Name)
}

// Table is an ordered, read-only set of records keyed by discriminant.
type Table struct {
	records []Record
	byID    map[int]int
}

// NewTable keeps records in the given order. A later record with a duplicate
// ID replaces the earlier one in place.
func NewTable(records []Record) *Table {
	t := &Table{
		records: make([]Record, 0, len(records)),
		byID:    make(map[int]int, len(records)),
	}
	for _, r := range records {
		if i, ok := t.byID[r.ID]; ok {
			t.records[i] = r
			continue
		}
		t.byID[r.ID] = len(t.records)
		t.records = append(t.records, r)
	}
	return t
}

func (t *Table) Lookup(id int) (Record, bool) {
	if t == nil {
		return Record{}, false
	}
	i, ok := t.byID[id]
	if !ok {
		return Record{}, false
	}
	return t.records[i], true
}

func (t *Table) Records() []Record {
	if t == nil {
		return nil
	}
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}
