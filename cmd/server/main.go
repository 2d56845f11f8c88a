// Package main is the entry point for the sentinel-desk service.
//
// The service keeps one live decision-service scenario in sync with the
// operator's edits: drafts are autosaved after a debounce window, decisions
// are reconciled into a tick history, and saved portfolios and allocation
// policies live in a local library. The HTTP API is consumed by the
// presentation layer.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/sentinel-desk/internal/config"
	"github.com/aristath/sentinel-desk/internal/di"
	"github.com/aristath/sentinel-desk/internal/server"
	"github.com/aristath/sentinel-desk/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting sentinel-desk")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Wire all dependencies using DI container
	container, err := di.Wire(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Container: container,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	container.Scheduler.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancel()

	// Stop scheduled jobs before the stores they use are closed
	container.Scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
