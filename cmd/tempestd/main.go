package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/tempest-telemetry-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/tempest-telemetry-etl/internal/adapter/kafka"
	"github.com/couchcryptid/tempest-telemetry-etl/internal/adapter/rest"
	"github.com/couchcryptid/tempest-telemetry-etl/internal/adapter/udp"
	"github.com/couchcryptid/tempest-telemetry-etl/internal/config"
	"github.com/couchcryptid/tempest-telemetry-etl/internal/observability"
	"github.com/couchcryptid/tempest-telemetry-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Pick the raw envelope source (UDP broadcast by default,
	// WeatherFlow cloud REST when SOURCE=rest).
	var extractor pipeline.BatchExtractor
	var closeExtractor func() error
	switch cfg.Source {
	case config.SourceUDP:
		listener, err := udp.NewListener(cfg, logger, metrics)
		if err != nil {
			logger.Error("failed to start udp listener", "error", err)
			os.Exit(1)
		}
		logger.Info("listening for tempest broadcasts", "addr", cfg.UDPListenAddr)
		extractor = listener
		closeExtractor = listener.Close
	case config.SourceREST:
		poller := rest.NewPoller(cfg, logger, metrics)
		logger.Info("polling weatherflow rest api", "device_id", cfg.WeatherFlowDeviceID, "interval", cfg.PollInterval)
		extractor = poller
	}

	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(logger)

	p := pipeline.New(extractor, transformer, writer, cfg.DedupCacheSize, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if closeExtractor != nil {
		if err := closeExtractor(); err != nil {
			logger.Error("udp listener close error", "error", err)
		}
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
