package emit

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/danmuck/litelog/internal/entry"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fastjson"
)

type ClickHouseConfig struct {
	Addr      string
	Database  string
	User      string
	Password  string
	Table     string
	BatchSize int
	// Source tags every row, usually the input file name.
	Source string
	// Location parses log_time back into a timestamp.
	Location *time.Location
}

// Row is one entry flattened for the entries table. Payload fields are kept
// as a JSON object since every record type has its own layout.
type Row struct {
	LogTime time.Time
	Level   string
	Type    string
	Fields  string
	Raw     string
	Note    string
	Source  string
}

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

func ValidTableName(name string) bool {
	return tableNameRe.MatchString(name)
}

func RowFromEntry(e entry.Entry, loc *time.Location, source string) Row {
	if loc == nil {
		loc = time.Local
	}
	row := Row{
		Level:  e.Text(entry.KeyLevel),
		Type:   e.Text(entry.KeyType),
		Raw:    e.Text(entry.KeyRaw),
		Note:   e.Text(entry.KeyNote),
		Source: source,
	}
	if ts, err := time.ParseInLocation(entry.TimeLayout, e.Text(entry.KeyTime), loc); err == nil {
		row.LogTime = ts
	}

	var a fastjson.Arena
	payload := make([]entry.Field, 0, e.Len())
	for _, f := range e.Fields() {
		switch f.Key {
		case entry.KeyTime, entry.KeyLevel, entry.KeyType, entry.KeyRaw, entry.KeyNote:
			continue
		}
		payload = append(payload, f)
	}
	row.Fields = string(entry.New(payload...).AppendJSON(nil, &a))
	return row
}

// ClickHouse buffers rows and inserts them in batches.
type ClickHouse struct {
	ctx     context.Context
	conn    driver.Conn
	cfg     ClickHouseConfig
	pending []Row
}

func NewClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouse, error) {
	if !ValidTableName(cfg.Table) {
		return nil, fmt.Errorf("clickhouse: invalid table name %q", cfg.Table)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
	})
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return &ClickHouse{ctx: ctx, conn: conn, cfg: cfg}, nil
}

func (c *ClickHouse) Migrate() error {
	ddl := `
	CREATE TABLE IF NOT EXISTS ` + c.cfg.Table + ` (
		log_time DateTime,
		log_level LowCardinality(String),
		log_type LowCardinality(String),
		fields String,
		raw String,
		note String,
		source String
	) ENGINE = MergeTree()
	ORDER BY log_time
	`
	return c.conn.Exec(c.ctx, ddl)
}

func (c *ClickHouse) Emit(e entry.Entry) error {
	c.pending = append(c.pending, RowFromEntry(e, c.cfg.Location, c.cfg.Source))
	if len(c.pending) >= c.cfg.BatchSize {
		return c.Flush()
	}
	return nil
}

func (c *ClickHouse) Flush() error {
	if len(c.pending) == 0 {
		return nil
	}
	batch, err := c.conn.PrepareBatch(c.ctx, "INSERT INTO "+c.cfg.Table)
	if err != nil {
		return err
	}
	for _, r := range c.pending {
		if err := batch.Append(r.LogTime, r.Level, r.Type, r.Fields, r.Raw, r.Note, r.Source); err != nil {
			return err
		}
	}
	if err := batch.Send(); err != nil {
		return err
	}
	log.Debug().Int("rows", len(c.pending)).Str("table", c.cfg.Table).Msg("clickhouse: batch sent")
	c.pending = c.pending[:0]
	return nil
}

func (c *ClickHouse) Close() error {
	ferr := c.Flush()
	cerr := c.conn.Close()
	if ferr != nil {
		return ferr
	}
	return cerr
}

func (c *ClickHouse) String() string {
	return fmt.Sprintf("clickhouse(%s/%s)", strings.TrimSpace(c.cfg.Addr), c.cfg.Table)
}
