// ABOUTME: Serve command running the HTTP API and optional MQTT ingester
// ABOUTME: Both run under one errgroup and stop together on SIGINT or SIGTERM

package main

import (
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/harper/tagtrack/internal/api"
	"github.com/harper/tagtrack/internal/ingest"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and ingest MQTT reports",
	Long: `Serve the location REST API, the HTML index page, and /metrics.

When MQTT is enabled (config "mqtt.enabled" or --mqtt), location reports
published to the configured topic filter are ingested as well.

Examples:
  tagtrack serve
  tagtrack serve --addr :9090
  tagtrack serve --mqtt --mqtt-broker tcp://broker:1883`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if addr, _ := flags.GetString("addr"); addr != "" {
			cfg.HTTPAddr = addr
		}
		if flags.Changed("mqtt") {
			cfg.MQTT.Enabled, _ = flags.GetBool("mqtt")
		}
		if broker, _ := flags.GetString("mqtt-broker"); broker != "" {
			cfg.MQTT.Broker = broker
		}

		if cfg.GetLogLevel() != "debug" && cfg.GetLogLevel() != "trace" {
			gin.SetMode(gin.ReleaseMode)
		}

		ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		handler := api.NewHandler(service, logger.Logger, display)
		router := api.NewRouter(handler, api.RouterOptions{
			Metrics:        recorder,
			MetricsHandler: recorder.Handler(),
		})
		server := api.NewServer(cfg.GetHTTPAddr(), router, logger.Logger)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return server.Run(gctx)
		})

		if cfg.MQTT.Enabled {
			ing := ingest.New(
				ingest.NewClient(cfg, logger.Logger),
				cfg.GetMQTTTopic(),
				cfg.MQTT.QoS,
				service,
				logger.Logger,
				ingest.WithMetrics(recorder),
			)
			g.Go(func() error {
				return ing.Run(gctx)
			})
		}

		logger.Info().
			Str("backend", repo.Backend()).
			Str("addr", cfg.GetHTTPAddr()).
			Bool("mqtt", cfg.MQTT.Enabled).
			Msg("tagtrack serving")

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "HTTP listen address (default from config, or :8080)")
	serveCmd.Flags().Bool("mqtt", false, "enable MQTT ingestion")
	serveCmd.Flags().String("mqtt-broker", "", "MQTT broker URL (default from config, or tcp://localhost:1883)")

	rootCmd.AddCommand(serveCmd)
}
