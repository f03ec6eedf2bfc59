// Package header derives constant tables and record schemas from a C header.
//
// Only a narrow dialect is accepted: one-line `#define PREFIX_NAME (N)`
// constants and flat `typedef struct { ... } Name;` blocks. Anything else is
// skipped, and skipped struct members are reported as Diagnostics.
package header

import (
	"fmt"
	"os"

	"github.com/danmuck/litelog/internal/observability"
	"github.com/danmuck/litelog/internal/protocol/schema"
	"github.com/rs/zerolog/log"
)

const (
	DefaultLevelPrefix = "LOG_LEVEL_"
	DefaultTypePrefix  = "LOG_DATA_TYPE_"
)

type Options struct {
	LevelPrefix string
	TypePrefix  string
	Sentinels   []string
}

func DefaultOptions() Options {
	return Options{
		LevelPrefix: DefaultLevelPrefix,
		TypePrefix:  DefaultTypePrefix,
		Sentinels:   append([]string(nil), DefaultSentinels...),
	}
}

func (o Options) withDefaults() Options {
	if o.LevelPrefix == "" {
		o.LevelPrefix = DefaultLevelPrefix
	}
	if o.TypePrefix == "" {
		o.TypePrefix = DefaultTypePrefix
	}
	if o.Sentinels == nil {
		o.Sentinels = append([]string(nil), DefaultSentinels...)
	}
	return o
}

// Definitions is everything derived from one header. It is read-only once
// built and safe to share between decoders.
type Definitions struct {
	Levels      Constants
	Types       Constants
	Schemas     *schema.Table
	Blocks      []StructBlock
	Diagnostics []Diagnostic
}

// Parse never fails; unsupported constructs end up in Diagnostics.
func Parse(src string, opts Options) *Definitions {
	opts = opts.withDefaults()
	blocks := Discover(src)
	records, diags := buildRecords(blocks)
	defs := &Definitions{
		Levels:      ParseConstants(src, opts.LevelPrefix, opts.Sentinels),
		Types:       ParseConstants(src, opts.TypePrefix, opts.Sentinels),
		Schemas:     schema.NewTable(records),
		Blocks:      blocks,
		Diagnostics: diags,
	}

	for _, d := range diags {
		observability.RecordHeaderDiagnostic(d.Kind)
		log.Warn().
			Str("kind", d.Kind).
			Str("struct", d.Struct).
			Str("field", d.Field).
			Str("type", d.Type).
			Int("line", d.Line).
			Str("detail", d.Detail).
			Msg("header: construct skipped")
	}
	log.Debug().
		Int("levels", len(defs.Levels)).
		Int("types", len(defs.Types)).
		Int("structs", len(blocks)).
		Int("schemas", defs.Schemas.Len()).
		Msg("header: parsed")
	return defs
}

func Load(path string, opts Options) (*Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("header load failed (%s): %w", path, err)
	}
	return Parse(string(data), opts), nil
}
