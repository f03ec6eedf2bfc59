package entry

import (
	"encoding/json"
	"testing"

	"github.com/valyala/fastjson"
)

func TestEntryKeepsInsertionOrder(t *testing.T) {
	e := New(
		Field{Key: KeyTime, Value: "2024-01-02 03:04:05"},
		Field{Key: KeyLevel, Value: "INFO"},
		Field{Key: KeyType, Value: "MSG"},
		Field{Key: "port", Value: uint16(8080)},
		Field{Key: KeyLevel, Value: "WARNING"},
	)
	keys := e.Keys()
	want := []string{KeyTime, KeyLevel, KeyType, "port"}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys = %v, want %v", keys, want)
		}
	}
	if e.Text(KeyLevel) != "WARNING" {
		t.Fatalf("duplicate key must keep last value, got %q", e.Text(KeyLevel))
	}
	if e.Text("port") != "8080" || e.Text("missing") != "" {
		t.Fatalf("unexpected Text results")
	}
}

func TestWithDoesNotMutateOriginal(t *testing.T) {
	base := New(Field{Key: KeyLevel, Value: "INFO"})
	next := base.With(KeyLevel, "ERROR").With(KeyNote, "x")
	if base.Text(KeyLevel) != "INFO" || base.Has(KeyNote) {
		t.Fatalf("original entry mutated: %v", base.Fields())
	}
	if next.Text(KeyLevel) != "ERROR" || next.Len() != 2 {
		t.Fatalf("unexpected copy: %v", next.Fields())
	}
}

func TestMarshalJSONOrderedAndTyped(t *testing.T) {
	e := New(
		Field{Key: KeyTime, Value: "2024-01-02 03:04:05"},
		Field{Key: "count", Value: uint32(4000000000)},
		Field{Key: "delta", Value: int16(-3)},
		Field{Key: "name", Value: "a\"b"},
	)
	got, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"log_time":"2024-01-02 03:04:05","count":4000000000,"delta":-3,"name":"a\"b"}`
	if string(got) != want {
		t.Fatalf("json = %s\nwant  %s", got, want)
	}
}

func TestAppendJSONReusesArena(t *testing.T) {
	var a fastjson.Arena
	var buf []byte
	for i := 0; i < 2; i++ {
		a.Reset()
		buf = New(Field{Key: "i", Value: i}).AppendJSON(buf[:0], &a)
	}
	if string(buf) != `{"i":1}` {
		t.Fatalf("unexpected json: %s", buf)
	}
}
