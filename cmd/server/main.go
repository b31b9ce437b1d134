package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phuslu/log"

	"github.com/productsheet/backend/config"
	"github.com/productsheet/backend/internal/app"
	httpDelivery "github.com/productsheet/backend/internal/delivery/http"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.Log.Level)

	log.Info().
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("cache", cfg.Cache.Type).
		Dur("cache_ttl", cfg.Cache.TTL).
		Msg("Starting product sheet backend v1.0.0")

	// Initialize the extraction pipeline
	application, err := app.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build extraction pipeline")
	}
	defer application.Close()

	checkCtx, cancel := context.WithTimeout(context.Background(), cfg.Model.ProbeTimeout)
	application.CheckModel(checkCtx)
	cancel()

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(
		application.Service,
		application.Sheets,
		application.ReadText,
		httpDelivery.HandlerConfig{
			UploadDir:      cfg.Storage.UploadDir,
			MaxUploadBytes: cfg.Server.MaxUploadBytes,
			CacheSize:      application.CachedRecords,
		},
	)

	router := httpDelivery.SetupRouter(cfg, handler)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Interrupt signal received, shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	log.Info().Msg("Server stopped")
}

func setupLogger(level string) {
	log.DefaultLogger = log.Logger{
		Level:      log.ParseLevel(level),
		Caller:     1,
		TimeFormat: "15:04:05",
		Writer: &log.ConsoleWriter{
			ColorOutput:    true,
			QuoteString:    true,
			EndWithMessage: true,
		},
	}
}
