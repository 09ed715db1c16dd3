package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/danmuck/durctl/internal/harness"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP test harness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			if addr != "" {
				a.cfg.HTTP.Addr = addr
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := harness.New(a.cfg.HTTP.Node, a.cfg.HTTP.Addr, a.cfg.HTTP.CorsOrigins, svc)
			log.Info().
				Str("id", srv.ID).
				Str("addr", srv.Addr).
				Str("broker", a.cfg.Broker.Address).
				Msg("harness started")
			if err := srv.Serve(ctx); err != nil {
				return err
			}
			log.Info().Str("id", srv.ID).Msg("harness stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}
