// Package di provides dependency injection for services.
package di

import (
	"context"
	"fmt"

	"github.com/aristath/sentinel-desk/internal/clientdata"
	"github.com/aristath/sentinel-desk/internal/clients/decision"
	"github.com/aristath/sentinel-desk/internal/config"
	"github.com/aristath/sentinel-desk/internal/events"
	"github.com/aristath/sentinel-desk/internal/library"
	"github.com/aristath/sentinel-desk/internal/session"
	"github.com/rs/zerolog"
)

// InitializeServices creates the library, clients, caches, event system and
// the session orchestrator. Databases must already be initialized.
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	// Library store
	switch cfg.LibraryBackend {
	case config.BackendBadger:
		store, err := library.OpenBadger(library.BadgerConfig{
			Path:       cfg.LibraryPath(),
			SyncWrites: true,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to open badger library: %w", err)
		}
		container.BadgerStore = store
		container.LibraryStore = store
	default:
		container.LibraryStore = library.NewSQLiteStore(container.LibraryDB.Conn())
	}

	lib, err := library.Open(ctx, container.LibraryStore, log)
	if err != nil {
		return fmt.Errorf("failed to open library: %w", err)
	}
	container.Library = lib

	// Decision service client
	container.DecisionClient = decision.NewClient(decision.Config{
		BaseURL: cfg.DecisionServiceURL,
		Token:   cfg.DecisionServiceToken,
		Timeout: cfg.DecisionTimeout,
		RPS:     cfg.DecisionRPS,
	}, log)

	// Last-known-good response cache
	container.ClientDataRepo = clientdata.NewRepository(container.CacheDB.Conn())
	container.ResponseCache = clientdata.NewResponseCache(container.ClientDataRepo)

	// Event system
	container.EventBus = events.NewBus()
	container.EventManager = events.NewManager(container.EventBus, log)

	// Session orchestrator
	container.Orchestrator = session.New(session.Options{
		Service:           container.DecisionClient,
		Events:            container.EventManager,
		Cache:             container.ResponseCache,
		Autosave:          cfg.Autosave,
		WeightTolerance:   cfg.WeightTolerance,
		ComparisonTimeout: cfg.ComparisonTimeout,
		Log:               log,
	})

	log.Info().Str("decision_service", cfg.DecisionServiceURL).Msg("Services initialized")
	return nil
}
