package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/litelog/internal/auth"
	"github.com/danmuck/litelog/internal/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCommand(g *globals) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve POST /decode and GET /schema over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flag("addr").Changed {
				g.cfg.Server.Addr = addr
			}
			defs, err := g.definitions()
			if err != nil {
				return err
			}
			opts, err := g.cfg.DecoderOptions()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(g.cfg.Server.Addr, g.cfg.Server.CorsOrigins, defs, opts)
			if token := g.cfg.Server.Token; token != "" {
				srv.Protect(auth.StaticToken{Token: token})
			}
			log.Info().Str("addr", srv.Addr).Str("header", g.cfg.Header).Msg("litelog server started")
			return srv.Serve(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides the config")
	return cmd
}
