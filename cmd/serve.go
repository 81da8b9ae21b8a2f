package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tanpawarit/chative-task-router/agent/api"
	configx "github.com/tanpawarit/chative-task-router/pkg/config"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API (/supervisor, /review, /ratings, /healthz)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			apiConf, err := configx.New[api.Config]("")
			if err != nil {
				return fmt.Errorf("load http config: %w", err)
			}
			if addr != "" {
				apiConf.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := wireApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			srv, err := api.NewServer(app.orchestrator, app.ratings, *apiConf)
			if err != nil {
				return err
			}
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	return cmd
}
