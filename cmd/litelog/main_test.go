package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/litelog/internal/decoder"
	"github.com/danmuck/litelog/internal/protocol/frame"
	"github.com/danmuck/litelog/internal/testutil/testlog"
)

const cliHeader = `
#define LOG_LEVEL_INFO (0U)
#define LOG_LEVEL_WARNING (1U)
#define LOG_LEVEL_ALL (2U)
#define LOG_DATA_TYPE_MSG (0U)
#define LOG_DATA_TYPE_PORT (1U)

typedef struct {
    char msg[16];
} LOG_DATA_MSG;

typedef struct {
    uint16_t port;
    uint32_t bytes;
} LOG_DATA_PORT;
`

const cliFrames = `{"ts":0,"level":"INFO","type":"MSG","fields":{"msg":"boot ok"}}
{"ts":60,"level":"WARNING","type":"PORT","fields":{"port":443,"bytes":1024}}
`

type fixture struct {
	dir    string
	header string
	frames string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	fx := fixture{
		dir:    dir,
		header: filepath.Join(dir, "litelog.h"),
		frames: filepath.Join(dir, "frames.jsonl"),
	}
	if err := os.WriteFile(fx.header, []byte(cliHeader), 0o600); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if err := os.WriteFile(fx.frames, []byte(cliFrames), 0o600); err != nil {
		t.Fatalf("write frames: %v", err)
	}
	return fx
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSampleThenDecode(t *testing.T) {
	testlog.Start(t)
	fx := newFixture(t)
	bin := filepath.Join(fx.dir, "device.bin.zst")

	out, err := run(t, "sample", "--header", fx.header, "--in", fx.frames, "--out", bin, "--zstd")
	if err != nil {
		t.Fatalf("sample: %v\n%s", err, out)
	}
	if !strings.Contains(out, "wrote 2 frames") {
		t.Fatalf("unexpected sample output: %s", out)
	}

	jsonPath := filepath.Join(fx.dir, "out", "device.json")
	out, err = run(t, "decode", "--header", fx.header, "--tz", "UTC", "--json", jsonPath, bin)
	if err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	want := []string{
		`[1] log_time="1970-01-01 00:00:00" log_level=INFO log_type=MSG msg="boot ok"`,
		`[2] log_time="1970-01-01 00:01:00" log_level=WARNING log_type=PORT port=443 bytes=1024`,
	}
	for _, line := range want {
		if !strings.Contains(out, line) {
			t.Fatalf("missing %q in output:\n%s", line, out)
		}
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	var doc []map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("json output: %v\n%s", err, data)
	}
	if len(doc) != 2 || doc[1]["port"].(float64) != 443 {
		t.Fatalf("unexpected json document: %v", doc)
	}
}

func TestDecodeTruncatedStreamKeepsPartialOutput(t *testing.T) {
	testlog.Start(t)
	fx := newFixture(t)

	var buf bytes.Buffer
	f := frame.Frame{Header: frame.Header{Level: 0, Type: 0}, Payload: make([]byte, 16)}
	copy(f.Payload, "first")
	if err := frame.WriteFrame(&buf, f, frame.DefaultLimits()); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	buf.Write([]byte{1, 2, 3, 4, 5})
	bin := filepath.Join(fx.dir, "cut.bin")
	if err := os.WriteFile(bin, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := run(t, "decode", "--header", fx.header, "--tz", "UTC", bin)
	var abort *decoder.AbortError
	if !errors.As(err, &abort) || abort.Reason() != "short_header" || abort.Count != 1 {
		t.Fatalf("expected short_header abort after one entry, got %v", err)
	}
	if !strings.Contains(out, "msg=first") {
		t.Fatalf("entry before the truncation should be printed:\n%s", out)
	}
}

func TestSchemaListing(t *testing.T) {
	testlog.Start(t)
	fx := newFixture(t)

	out, err := run(t, "schema", "--header", fx.header)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	for _, line := range []string{
		"  1: WARNING",
		"  1: PORT",
		"  0: (<16s, [msg]) # LOG_DATA_MSG",
		"  1: (<HI, [port, bytes]) # LOG_DATA_PORT",
	} {
		if !strings.Contains(out, line) {
			t.Fatalf("missing %q in schema output:\n%s", line, out)
		}
	}
	if strings.Contains(out, "ALL") {
		t.Fatalf("sentinel should not be listed:\n%s", out)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "litelog.toml")

	if out, err := run(t, "config", "init", path); err != nil {
		t.Fatalf("config init: %v\n%s", err, out)
	}
	if _, err := run(t, "config", "init", path); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	out, err := run(t, "config", "validate", path)
	if err != nil || !strings.Contains(out, "is valid") {
		t.Fatalf("config validate: %v\n%s", err, out)
	}
}

func TestMissingHeaderFails(t *testing.T) {
	testlog.Start(t)
	if _, err := run(t, "schema", "--header", filepath.Join(t.TempDir(), "nope.h")); err == nil {
		t.Fatalf("expected header load error")
	}
}
