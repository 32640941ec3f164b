// Package main implements the record API service.
//
// The service exposes uniqueness-gated CRUD over an InfluxDB 2.x
// bucket: creates are rejected when the id was seen recently, updates
// overwrite by appending, deletes purge a key's full history, and reads
// return the raw trailing window.
package main

import (
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/athenakad/crud-service-update/cmd/recordapi/config"
	"github.com/athenakad/crud-service-update/cmd/recordapi/logger"
	"github.com/athenakad/crud-service-update/cmd/recordapi/metrics"
	"github.com/athenakad/crud-service-update/cmd/recordapi/router"
	"github.com/athenakad/crud-service-update/pkg/httpx"
	"github.com/athenakad/crud-service-update/pkg/influx"
	"github.com/athenakad/crud-service-update/pkg/records"
)

func main() {
	cfg := config.ParseFlags()

	logger := logger.New(cfg)
	slog.SetDefault(logger)

	logger.Info("starting record api",
		"version", "v0.1.0",
		"listen", cfg.Listen,
		"influx_url", cfg.InfluxURL,
		"bucket", cfg.InfluxBucket,
		"lookback", cfg.Lookback,
		"list_window", cfg.ListWindow,
	)

	store := &influx.Client{
		BaseURL:     cfg.InfluxURL,
		Token:       cfg.InfluxToken,
		Org:         cfg.InfluxOrg,
		Bucket:      cfg.InfluxBucket,
		Measurement: cfg.Measurement,
		HTTPClient:  &http.Client{Timeout: cfg.StoreTimeout},
	}

	svc := records.NewService(store, cfg.Lookback, cfg.ListWindow, logger)
	m := metrics.New(prometheus.DefaultRegisterer)

	mux := router.SetupRoutes(svc, m, logger)
	handler := httpx.RecoveryMiddleware(logger)(httpx.LoggingMiddleware(logger)(mux))
	httpServer := httpx.NewServer(cfg.Listen, handler, logger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		if err != nil {
			logger.Error("server failed", "error", err)
		}
	}

	logger.Info("shutting down")
	if err := httpServer.Stop(10 * time.Second); err != nil {
		logger.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
