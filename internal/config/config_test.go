package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/litelog/internal/header"
)

func TestLoadDefaultsAndOverrides(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "ex.config.toml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Header != "firmware/litelog.h" {
		t.Fatalf("unexpected header: %q", cfg.Header)
	}
	if cfg.LevelPrefix != header.DefaultLevelPrefix {
		t.Fatalf("level prefix default lost: %q", cfg.LevelPrefix)
	}
	if cfg.TypePrefix != "EVENT_TYPE_" {
		t.Fatalf("unexpected type prefix: %q", cfg.TypePrefix)
	}
	if len(cfg.Sentinels) != 2 || cfg.Sentinels[1] != "COUNT" {
		t.Fatalf("unexpected sentinels: %v", cfg.Sentinels)
	}
	if cfg.MaxPayloadBytes != 4096 {
		t.Fatalf("unexpected max payload: %d", cfg.MaxPayloadBytes)
	}
	if cfg.Output.Console || cfg.Output.JSONPath != "out/log.json" || !cfg.Output.JSONLines {
		t.Fatalf("unexpected output: %+v", cfg.Output)
	}
	if cfg.Server.Addr != ":9300" || cfg.Server.Token != "s3cret" {
		t.Fatalf("unexpected server: %+v", cfg.Server)
	}
	if !cfg.ClickHouse.Enabled || cfg.ClickHouse.Table != "device_logs" || cfg.ClickHouse.Database != "default" {
		t.Fatalf("unexpected clickhouse: %+v", cfg.ClickHouse)
	}

	opts, err := cfg.DecoderOptions()
	if err != nil {
		t.Fatalf("decoder options: %v", err)
	}
	if opts.Location != time.UTC {
		t.Fatalf("unexpected location: %v", opts.Location)
	}
	if opts.Charset.Name() != "windows-1252" || opts.Limits.MaxPayloadBytes != 4096 {
		t.Fatalf("unexpected decoder options: %+v", opts)
	}
	hopts := cfg.HeaderOptions()
	if hopts.TypePrefix != "EVENT_TYPE_" || len(hopts.Sentinels) != 2 {
		t.Fatalf("unexpected header options: %+v", hopts)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"timezone":   `timezone = "Mars/Olympus"`,
		"charset":    `charset = "klingon"`,
		"header":     `header = " "`,
		"clickhouse": "[clickhouse]\nenabled = true\ntable = \"\"",
		"table":      "[clickhouse]\nenabled = true\ntable = \"logs; drop\"",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name+".toml")
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := Load(path); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil || !strings.Contains(err.Error(), "config load failed") {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestTemplateRoundTripsToDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "litelog.toml")
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := WriteTemplate(path, false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	if err := WriteTemplate(path, true); err != nil {
		t.Fatalf("overwrite template: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	def := Default()
	if cfg.Header != def.Header || cfg.Timezone != def.Timezone || cfg.Charset != def.Charset {
		t.Fatalf("template drifted from defaults: %+v", cfg)
	}
	if cfg.MaxPayloadBytes != def.MaxPayloadBytes || cfg.ClickHouse.BatchSize != def.ClickHouse.BatchSize {
		t.Fatalf("numeric defaults drifted: %+v", cfg)
	}
	if len(cfg.Sentinels) != len(def.Sentinels) || cfg.Output.Console != def.Output.Console {
		t.Fatalf("list/bool defaults drifted: %+v", cfg)
	}
}
