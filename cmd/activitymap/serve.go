package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/activitymap/internal/server"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the output directory for previewing",
		Long: `Serve generated artifacts over HTTP:

  /                 redirects to heatmap.html
  /health           which JSON models exist
  /api/v1/heatmap   last heatmap.json
  /api/v1/tags      last word_cloud.json
  /metrics          Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd.Context(), func(ctx context.Context, app *application) error {
				cfg := server.ConfigFrom(app.cfg.Serve)
				if cmd.Flags().Changed("host") {
					cfg.Host = host
				}
				if cmd.Flags().Changed("port") {
					cfg.Port = port
				}
				httpMetrics := server.NewHTTPMetrics(app.tel.Meter(instrumentationName), app.logger)
				srv, err := server.NewServer(app.cfg.Output.Dir, app.metrics, app.logger.Named("http"), cfg,
					server.WithHTTPMetrics(httpMetrics), server.WithTelemetry(app.tel))
				if err != nil {
					return err
				}

				errCh := make(chan error, 1)
				go func() { errCh <- srv.Start(ctx) }()

				select {
				case err := <-errCh:
					return err
				case <-ctx.Done():
				}
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (default serve.host)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default serve.port)")
	return cmd
}
