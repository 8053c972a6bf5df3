package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"constitution-rag/internal/app"
	"constitution-rag/internal/web"
)

func newServeCmd(opts *options) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the question form",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := opts.cfg
			if addr != "" {
				cfg.Server.Addr = addr
			}

			rt, err := app.New(ctx, cfg, app.ModeQuery)
			if err != nil {
				return err
			}
			defer rt.Close()

			querier, err := rt.Querier()
			if err != nil {
				return err
			}
			srv, err := web.NewServer(querier, cfg.Server.Title)
			if err != nil {
				return err
			}
			return srv.ListenAndServe(ctx, cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overrides server.addr")
	return cmd
}
