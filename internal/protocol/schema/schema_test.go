package schema

import (
	"errors"
	"testing"

	"github.com/danmuck/litelog/internal/testutil/testlog"
)

func sampleRecord() Record {
	return Record{
		ID:   1,
		Name: "LOG_DATA_EXAMPLE2",
		Fields: []Field{
			{Name: "src_ip", Encoding: EncodingBytes, Len: 16},
			{Name: "dst_ip", Encoding: EncodingBytes, Len: 16},
			{Name: "port", Encoding: EncodingU16},
			{Name: "delta", Encoding: EncodingI32},
		},
	}
}

func TestRecordSizeIsSumOfWidths(t *testing.T) {
	testlog.Start(t)
	r := Record{Fields: []Field{
		{Name: "a", Encoding: EncodingU32},
		{Name: "b", Encoding: EncodingBytes, Len: 8},
	}}
	if r.Size() != 12 {
		t.Fatalf("expected packed size 12, got %d", r.Size())
	}
	if r.Layout() != "<I8s" {
		t.Fatalf("unexpected layout: %q", r.Layout())
	}
	names := r.FieldNames()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("unexpected field order: %v", names)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	testlog.Start(t)
	r := sampleRecord()
	payload, err := r.Encode(map[string]any{
		"src_ip": "10.0.0.1",
		"dst_ip": "8.8.8.8",
		"port":   8080,
		"delta":  -42,
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(payload) != r.Size() {
		t.Fatalf("payload size %d, want %d", len(payload), r.Size())
	}
	values, err := r.Decode(payload, UTF8)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []Value{
		{Name: "src_ip", Value: "10.0.0.1"},
		{Name: "dst_ip", Value: "8.8.8.8"},
		{Name: "port", Value: uint16(8080)},
		{Name: "delta", Value: int32(-42)},
	}
	if len(values) != len(want) {
		t.Fatalf("got %d values, want %d", len(values), len(want))
	}
	for i := range want {
		if values[i] != want[i] {
			t.Fatalf("value[%d] = %#v, want %#v", i, values[i], want[i])
		}
	}
}

func TestDecodeSizeMismatchDecodesNothing(t *testing.T) {
	testlog.Start(t)
	r := sampleRecord()
	values, err := r.Decode(make([]byte, r.Size()-1), UTF8)
	var mismatch SizeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected SizeMismatchError, got %v", err)
	}
	if mismatch.Expected != r.Size() || mismatch.Actual != r.Size()-1 {
		t.Fatalf("unexpected mismatch: %+v", mismatch)
	}
	if values != nil {
		t.Fatalf("expected no partial values, got %v", values)
	}
}

func TestDecodeSignedNegative(t *testing.T) {
	testlog.Start(t)
	r := Record{Fields: []Field{{Name: "v", Encoding: EncodingI16}}}
	values, err := r.Decode([]byte{0xff, 0xff}, UTF8)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if values[0].Value != int16(-1) {
		t.Fatalf("expected -1, got %#v", values[0].Value)
	}
}

func TestCharsetDropsInvalidBytesAndStopsAtNul(t *testing.T) {
	testlog.Start(t)
	got := UTF8.Decode([]byte{'o', 'k', 0xff, '!', 0, 'x'})
	if got != "ok!" {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestLookupCharsetWindows1252(t *testing.T) {
	testlog.Start(t)
	cs, err := LookupCharset("windows-1252")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if cs.Name() != "windows-1252" {
		t.Fatalf("unexpected name: %q", cs.Name())
	}
	if got := cs.Decode([]byte{'c', 'a', 'f', 0xe9, 0}); got != "café" {
		t.Fatalf("unexpected text: %q", got)
	}
	if _, err := LookupCharset("klingon"); err == nil {
		t.Fatalf("expected unknown charset error")
	}
	if cs, _ := LookupCharset(""); cs.Name() != "utf-8" {
		t.Fatalf("expected utf-8 default, got %q", cs.Name())
	}
}

func TestTableLookupKeepsOrder(t *testing.T) {
	testlog.Start(t)
	tbl := NewTable([]Record{
		{ID: 2, Name: "b"},
		{ID: 0, Name: "a"},
		{ID: 2, Name: "c"},
	})
	if tbl.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", tbl.Len())
	}
	recs := tbl.Records()
	if recs[0].Name != "c" || recs[1].Name != "a" {
		t.Fatalf("unexpected order: %+v", recs)
	}
	if _, ok := tbl.Lookup(7); ok {
		t.Fatalf("unexpected record for 7")
	}
	var nilTable *Table
	if _, ok := nilTable.Lookup(0); ok || nilTable.Len() != 0 {
		t.Fatalf("nil table must be empty")
	}
}
