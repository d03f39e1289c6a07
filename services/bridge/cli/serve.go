package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/michaelfortunato/pueue-webui/internal/backend"
	"github.com/michaelfortunato/pueue-webui/internal/cache"
	"github.com/michaelfortunato/pueue-webui/internal/poller"
	"github.com/michaelfortunato/pueue-webui/pkg/telemetry"
	"github.com/michaelfortunato/pueue-webui/services/bridge/config"
	"github.com/michaelfortunato/pueue-webui/services/bridge/handler"
	"github.com/michaelfortunato/pueue-webui/services/bridge/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bridge HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "127.0.0.1:9093", "HTTP listen address")
	serveCmd.Flags().String("metrics-addr", ":9094", "Prometheus metrics server address")
	serveCmd.Flags().String("otel-endpoint", "", "OTLP HTTP endpoint for tracing (e.g. localhost:4318); empty disables tracing")
	serveCmd.Flags().String("poll-schedule", "@every 5s", "cron schedule for the status poller; empty disables polling")
	serveCmd.Flags().Int("cache-ttl-ms", 500, "status cache TTL in milliseconds")

	bindFlag("addr", serveCmd.Flags(), "addr")
	bindFlag("metrics_addr", serveCmd.Flags(), "metrics-addr")
	bindFlag("otel_endpoint", serveCmd.Flags(), "otel-endpoint")
	bindFlag("poll_schedule", serveCmd.Flags(), "poll-schedule")
	bindFlag("cache_ttl_ms", serveCmd.Flags(), "cache-ttl-ms")
	_ = viper.BindEnv("addr", "PUEUE_WEBUI_HOST")
	_ = viper.BindEnv("otel_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg := config.Load(viper.GetViper())
	logger := buildLogger(cfg.LogLevel, "pueue-webui")

	shutdownTracer, err := telemetry.InitTracer(context.Background(), "pueue-webui", cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer shutdownTracer()

	daemonBackend, err := backend.NewPueueBackend(logger)
	if err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	statusCache := cache.New(time.Duration(cfg.CacheTTLMs) * time.Millisecond)
	restHandler := handler.NewREST(daemonBackend, statusCache, logger)

	// ── HTTP server ───────────────────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1MB limit
	restHandler.Routes(r)

	httpSrv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ── signal handling ───────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	// ── Prometheus metrics ────────────────────────────────────────────────────
	telemetry.StartMetricsServer(runCtx, cfg.MetricsAddr, logger)

	// ── status poller ─────────────────────────────────────────────────────────
	if cfg.PollSchedule != "" {
		stopPoller, err := poller.New(daemonBackend, statusCache, logger).Start(cfg.PollSchedule)
		if err != nil {
			return fmt.Errorf("poller: %w", err)
		}
		defer stopPoller()
	}

	go func() {
		logger.Info("bridge HTTP starting", slog.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	<-quit
	logger.Info("shutting down...")
	runCancel()

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutCancel()
	if err := httpSrv.Shutdown(shutCtx); err != nil {
		logger.Error("HTTP shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("stopped")
	return nil
}
