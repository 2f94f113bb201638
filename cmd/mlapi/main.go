package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ml-api/internal/api"
	"ml-api/internal/cfg"
	"ml-api/internal/metrics"
	"ml-api/internal/ml"
	"ml-api/internal/storage"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	zerolog.SetGlobalLevel(c.Level())

	store, err := ml.LoadStore(ml.Paths{
		IrisModel:    c.IrisModelPath,
		IrisEncoder:  c.IrisEncoderPath,
		LoanModel:    c.LoanModelPath,
		LoanEncoders: c.LoanEncodersPath,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("model load failed")
	}

	registry, err := ml.NewModelManager(c.ModelsDir)
	if err != nil {
		log.Warn().Err(err).Msg("model registry unavailable, continuing without version info")
		registry = nil
	}

	m := metrics.New()
	deps := api.Deps{
		Registry: registry,
		Recorder: metrics.NewWrapper(m),
		Gatherer: prometheus.DefaultGatherer,
	}

	audit := initializeStorage(c)
	if audit != nil {
		defer audit.Close()
		deps.Audit = audit
	}

	srv := api.NewServer(store, api.Config{
		Addr:         c.Addr(),
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		IdleTimeout:  c.IdleTimeout,
		MaxBatchSize: c.MaxBatchSize,
	}, deps)

	errs := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errs <- err
		}
	}()

	waitForShutdown(srv, errs)
}

// initializeStorage opens the audit store when auditing is enabled
func initializeStorage(c cfg.Settings) *storage.Store {
	if !c.AuditEnabled || c.DataPath == "" {
		return nil
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("storage initialization failed, continuing without audit")
		return nil
	}
	log.Info().Str("path", c.DataPath).Msg("prediction audit enabled")
	return store
}

// waitForShutdown blocks until a signal or a server failure, then drains
// in-flight requests
func waitForShutdown(srv *api.Server, errs <-chan error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case err := <-errs:
		log.Error().Err(err).Msg("server failed")
	}

	log.Info().Msg("shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("shutdown timeout, forcing exit")
	}
}
