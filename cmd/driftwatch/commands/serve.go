package commands

import (
	"github.com/spf13/cobra"
	"github.com/yairfalse/driftwatch/internal/server"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP trigger API",
		Long: `Start an HTTP server exposing detection over a small JSON API:

  GET  /healthz
  POST /api/v1/detect?environments=dev,prod
  POST /api/v1/environments/{env}/detect
  GET  /api/v1/environments/{env}/reports/latest
  GET  /metrics (when server.metrics is true)`,
		Example: `  driftwatch serve --addr :9090`,
		Args:    cobra.NoArgs,
		RunE:    runServe,
	}

	cmd.Flags().String("addr", "", "listen address (default server.addr)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	serverConfig := server.Config{
		Addr:            cfg.Server.Addr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Environments:    cfg.Environments,
	}
	if a.metrics != nil && cfg.Server.Metrics {
		serverConfig.Metrics = a.metrics.Handler()
	}

	api := server.NewWebAPI(a.logger, a.service, serverConfig)
	return api.Run(cmd.Context())
}
