package main

import (
	"fmt"
	"strings"

	"github.com/danmuck/litelog/internal/config"
	"github.com/danmuck/litelog/internal/header"
	"github.com/danmuck/litelog/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// globals is filled in by the root command before any subcommand runs.
type globals struct {
	configPath string
	headerPath string
	logLevel   string

	cfg config.Config
}

// NewCommand returns the root command for the litelog CLI.
func NewCommand() *cobra.Command {
	g := &globals{}

	cmd := &cobra.Command{
		Use:   "litelog",
		Short: "decode binary device logs using their C header",
		Long: `litelog reads the LOG_LEVEL_* / LOG_DATA_TYPE_* defines and record structs
from a C header and uses them to decode binary log streams into readable entries.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.load()
		},
	}

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "TOML config file (defaults apply when empty)")
	cmd.PersistentFlags().StringVar(&g.headerPath, "header", "", "C header path, overrides the config")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level: trace|debug|info|warn|error")

	cmd.AddCommand(
		newDecodeCommand(g),
		newSchemaCommand(g),
		newServeCommand(g),
		newSampleCommand(g),
		newConfigCommand(),
	)
	return cmd
}

func (g *globals) load() error {
	if g.logLevel != "" && !logging.SetLevel(g.logLevel) {
		return fmt.Errorf("invalid log level %q", g.logLevel)
	}

	g.cfg = config.Default()
	if g.configPath != "" {
		cfg, err := config.Load(g.configPath)
		if err != nil {
			return err
		}
		g.cfg = cfg
		log.Debug().Str("path", g.configPath).Msg("loaded config")
	}
	if h := strings.TrimSpace(g.headerPath); h != "" {
		g.cfg.Header = h
	}
	return nil
}

func (g *globals) definitions() (*header.Definitions, error) {
	defs, err := header.Load(g.cfg.Header, g.cfg.HeaderOptions())
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("header", g.cfg.Header).
		Int("levels", len(defs.Levels)).
		Int("types", len(defs.Types)).
		Int("schemas", defs.Schemas.Len()).
		Int("diagnostics", len(defs.Diagnostics)).
		Msg("header loaded")
	return defs, nil
}
