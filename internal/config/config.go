package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/litelog/internal/decoder"
	"github.com/danmuck/litelog/internal/emit"
	"github.com/danmuck/litelog/internal/header"
	"github.com/danmuck/litelog/internal/protocol/frame"
	"github.com/danmuck/litelog/internal/protocol/schema"
)

type Config struct {
	Header          string           `toml:"header"`
	LevelPrefix     string           `toml:"level_prefix"`
	TypePrefix      string           `toml:"type_prefix"`
	Sentinels       []string         `toml:"sentinels"`
	Timezone        string           `toml:"timezone"`
	Charset         string           `toml:"charset"`
	MaxPayloadBytes uint32           `toml:"max_payload_bytes"`
	MetricsTextfile string           `toml:"metrics_textfile"`
	Output          OutputConfig     `toml:"output"`
	Server          ServerConfig     `toml:"server"`
	ClickHouse      ClickHouseConfig `toml:"clickhouse"`
}

type OutputConfig struct {
	Console   bool   `toml:"console"`
	JSONPath  string `toml:"json_path"`
	JSONLines bool   `toml:"json_lines"`
}

type ServerConfig struct {
	Addr        string   `toml:"addr"`
	CorsOrigins []string `toml:"cors_origins"`
	// Token, when set, is required as a bearer token on POST /decode.
	Token string `toml:"token"`
}

type ClickHouseConfig struct {
	Enabled   bool   `toml:"enabled"`
	Addr      string `toml:"addr"`
	Database  string `toml:"database"`
	User      string `toml:"user"`
	Password  string `toml:"password"`
	Table     string `toml:"table"`
	BatchSize int    `toml:"batch_size"`
}

func Default() Config {
	return Config{
		Header:          "litelog.h",
		LevelPrefix:     header.DefaultLevelPrefix,
		TypePrefix:      header.DefaultTypePrefix,
		Sentinels:       append([]string(nil), header.DefaultSentinels...),
		Timezone:        "Local",
		Charset:         "utf-8",
		MaxPayloadBytes: frame.DefaultLimits().MaxPayloadBytes,
		Output: OutputConfig{
			Console: true,
		},
		Server: ServerConfig{
			Addr:        ":9300",
			CorsOrigins: []string{"http://localhost:3000"},
		},
		ClickHouse: ClickHouseConfig{
			Addr:      "localhost:9000",
			Database:  "default",
			User:      "default",
			Table:     "litelog_entries",
			BatchSize: 1000,
		},
	}
}

// Load overlays the keys present in the TOML file at path onto Default.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw Config
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	if meta.IsDefined("header") {
		cfg.Header = strings.TrimSpace(raw.Header)
	}
	if meta.IsDefined("level_prefix") {
		cfg.LevelPrefix = strings.TrimSpace(raw.LevelPrefix)
	}
	if meta.IsDefined("type_prefix") {
		cfg.TypePrefix = strings.TrimSpace(raw.TypePrefix)
	}
	if meta.IsDefined("sentinels") {
		cfg.Sentinels = normalizeList(raw.Sentinels)
	}
	if meta.IsDefined("timezone") {
		cfg.Timezone = strings.TrimSpace(raw.Timezone)
	}
	if meta.IsDefined("charset") {
		cfg.Charset = strings.TrimSpace(raw.Charset)
	}
	if meta.IsDefined("max_payload_bytes") {
		cfg.MaxPayloadBytes = raw.MaxPayloadBytes
	}
	if meta.IsDefined("metrics_textfile") {
		cfg.MetricsTextfile = strings.TrimSpace(raw.MetricsTextfile)
	}

	if meta.IsDefined("output", "console") {
		cfg.Output.Console = raw.Output.Console
	}
	if meta.IsDefined("output", "json_path") {
		cfg.Output.JSONPath = strings.TrimSpace(raw.Output.JSONPath)
	}
	if meta.IsDefined("output", "json_lines") {
		cfg.Output.JSONLines = raw.Output.JSONLines
	}

	if meta.IsDefined("server", "addr") {
		cfg.Server.Addr = strings.TrimSpace(raw.Server.Addr)
	}
	if meta.IsDefined("server", "cors_origins") {
		cfg.Server.CorsOrigins = normalizeList(raw.Server.CorsOrigins)
	}
	if meta.IsDefined("server", "token") {
		cfg.Server.Token = strings.TrimSpace(raw.Server.Token)
	}

	if meta.IsDefined("clickhouse", "enabled") {
		cfg.ClickHouse.Enabled = raw.ClickHouse.Enabled
	}
	if meta.IsDefined("clickhouse", "addr") {
		cfg.ClickHouse.Addr = strings.TrimSpace(raw.ClickHouse.Addr)
	}
	if meta.IsDefined("clickhouse", "database") {
		cfg.ClickHouse.Database = strings.TrimSpace(raw.ClickHouse.Database)
	}
	if meta.IsDefined("clickhouse", "user") {
		cfg.ClickHouse.User = strings.TrimSpace(raw.ClickHouse.User)
	}
	if meta.IsDefined("clickhouse", "password") {
		cfg.ClickHouse.Password = raw.ClickHouse.Password
	}
	if meta.IsDefined("clickhouse", "table") {
		cfg.ClickHouse.Table = strings.TrimSpace(raw.ClickHouse.Table)
	}
	if meta.IsDefined("clickhouse", "batch_size") {
		cfg.ClickHouse.BatchSize = raw.ClickHouse.BatchSize
	}

	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Header) == "" {
		return fmt.Errorf("header path is required")
	}
	if strings.TrimSpace(cfg.LevelPrefix) == "" || strings.TrimSpace(cfg.TypePrefix) == "" {
		return fmt.Errorf("level_prefix and type_prefix are required")
	}
	if _, err := cfg.Location(); err != nil {
		return err
	}
	if _, err := schema.LookupCharset(cfg.Charset); err != nil {
		return err
	}
	if cfg.ClickHouse.Enabled {
		if strings.TrimSpace(cfg.ClickHouse.Addr) == "" {
			return fmt.Errorf("clickhouse addr is required when enabled")
		}
		if !emit.ValidTableName(cfg.ClickHouse.Table) {
			return fmt.Errorf("clickhouse table %q is not a valid identifier", cfg.ClickHouse.Table)
		}
		if cfg.ClickHouse.BatchSize <= 0 {
			return fmt.Errorf("clickhouse batch_size must be positive")
		}
	}
	return nil
}

// Location resolves the timezone used to render log_time.
func (c Config) Location() (*time.Location, error) {
	switch tz := strings.TrimSpace(c.Timezone); tz {
	case "", "Local", "local":
		return time.Local, nil
	default:
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("timezone %q: %w", tz, err)
		}
		return loc, nil
	}
}

func (c Config) HeaderOptions() header.Options {
	return header.Options{
		LevelPrefix: c.LevelPrefix,
		TypePrefix:  c.TypePrefix,
		Sentinels:   c.Sentinels,
	}
}

func (c Config) DecoderOptions() (decoder.Options, error) {
	loc, err := c.Location()
	if err != nil {
		return decoder.Options{}, err
	}
	cs, err := schema.LookupCharset(c.Charset)
	if err != nil {
		return decoder.Options{}, err
	}
	return decoder.Options{
		Location: loc,
		Charset:  cs,
		Limits:   frame.Limits{MaxPayloadBytes: c.MaxPayloadBytes},
	}, nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
