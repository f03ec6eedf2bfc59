package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/danmuck/litelog/internal/decoder"
	"github.com/danmuck/litelog/internal/emit"
	"github.com/danmuck/litelog/internal/header"
	"github.com/danmuck/litelog/internal/observability"
	"github.com/danmuck/litelog/internal/source"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newDecodeCommand(g *globals) *cobra.Command {
	var (
		jsonPath   string
		jsonLines  bool
		noConsole  bool
		clickhouse bool
		textfile   string
		timezone   string
		charset    string
		maxPayload uint32
	)

	cmd := &cobra.Command{
		Use:   "decode [log.bin ...]",
		Short: "Decode binary log streams",
		Example: `litelog decode --header firmware/litelog.h device.bin
litelog decode --json out/device.json device.bin.zst
cat device.bin | litelog decode -`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &g.cfg
			if cmd.Flag("json").Changed {
				cfg.Output.JSONPath = jsonPath
			}
			if cmd.Flag("json-lines").Changed {
				cfg.Output.JSONLines = jsonLines
			}
			if noConsole {
				cfg.Output.Console = false
			}
			if cmd.Flag("clickhouse").Changed {
				cfg.ClickHouse.Enabled = clickhouse
			}
			if cmd.Flag("metrics-textfile").Changed {
				cfg.MetricsTextfile = textfile
			}
			if cmd.Flag("tz").Changed {
				cfg.Timezone = timezone
			}
			if cmd.Flag("charset").Changed {
				cfg.Charset = charset
			}
			if cmd.Flag("max-payload").Changed {
				cfg.MaxPayloadBytes = maxPayload
			}
			if len(args) == 0 {
				args = []string{source.Stdin}
			}

			defs, err := g.definitions()
			if err != nil {
				return err
			}
			opts, err := cfg.DecoderOptions()
			if err != nil {
				return err
			}
			observability.RegisterMetrics()

			tag := ""
			if len(args) == 1 && args[0] != source.Stdin {
				tag = filepath.Base(args[0])
			}
			out, err := g.emitters(cmd, tag)
			if err != nil {
				return err
			}

			var aborted []error
			for _, path := range args {
				n, err := decodeFile(path, defs, opts, out)
				var abort *decoder.AbortError
				switch {
				case errors.As(err, &abort):
					aborted = append(aborted, fmt.Errorf("%s: %w", path, err))
				case err != nil:
					out.Close()
					return fmt.Errorf("%s: %w", path, err)
				}
				log.Info().Str("input", path).Int("entries", n).Msg("decode finished")
			}
			if err := out.Close(); err != nil {
				return err
			}

			if cfg.MetricsTextfile != "" {
				if err := observability.WriteTextfile(cfg.MetricsTextfile); err != nil {
					return fmt.Errorf("metrics textfile: %w", err)
				}
			}
			return errors.Join(aborted...)
		},
	}

	cmd.Flags().StringVar(&jsonPath, "json", "", "also write entries as JSON to this path")
	cmd.Flags().BoolVar(&jsonLines, "json-lines", false, "write JSON lines instead of one array")
	cmd.Flags().BoolVar(&noConsole, "no-console", false, "do not print entries to stdout")
	cmd.Flags().BoolVar(&clickhouse, "clickhouse", false, "insert entries into ClickHouse")
	cmd.Flags().StringVar(&textfile, "metrics-textfile", "", "write decode metrics to this file when done")
	cmd.Flags().StringVar(&timezone, "tz", "", "timezone for log_time (IANA name or Local)")
	cmd.Flags().StringVar(&charset, "charset", "", "charset for char arrays (WHATWG label)")
	cmd.Flags().Uint32Var(&maxPayload, "max-payload", 0, "largest accepted payload in bytes, 0 for no limit")
	return cmd
}

// decodeFile streams one input into out and returns the number of entries.
// The error is an *decoder.AbortError when the stream was truncated.
func decodeFile(path string, defs *header.Definitions, opts decoder.Options, out emit.Emitter) (int, error) {
	in, err := source.Open(path)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	d := decoder.New(in, defs, opts)
	for e := range d.Entries() {
		if err := out.Emit(e); err != nil {
			return d.Count(), err
		}
	}
	return d.Count(), d.Err()
}

// emitters builds the configured outputs. tag labels ClickHouse rows.
func (g *globals) emitters(cmd *cobra.Command, tag string) (emit.Multi, error) {
	cfg := g.cfg
	var out emit.Multi
	if cfg.Output.Console {
		out = append(out, emit.NewConsole(cmd.OutOrStdout()))
	}
	if cfg.Output.JSONPath != "" {
		j, err := emit.CreateJSON(cfg.Output.JSONPath, cfg.Output.JSONLines)
		if err != nil {
			out.Close()
			return nil, err
		}
		out = append(out, j)
	}
	if cfg.ClickHouse.Enabled {
		loc, err := cfg.Location()
		if err != nil {
			out.Close()
			return nil, err
		}
		ch, err := emit.NewClickHouse(context.Background(), emit.ClickHouseConfig{
			Addr:      cfg.ClickHouse.Addr,
			Database:  cfg.ClickHouse.Database,
			User:      cfg.ClickHouse.User,
			Password:  cfg.ClickHouse.Password,
			Table:     cfg.ClickHouse.Table,
			BatchSize: cfg.ClickHouse.BatchSize,
			Source:    tag,
			Location:  loc,
		})
		if err != nil {
			out.Close()
			return nil, fmt.Errorf("clickhouse: %w", err)
		}
		if err := ch.Migrate(); err != nil {
			ch.Close()
			out.Close()
			return nil, fmt.Errorf("clickhouse migrate: %w", err)
		}
		out = append(out, ch)
	}
	return out, nil
}
