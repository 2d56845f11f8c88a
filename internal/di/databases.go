// Package di provides dependency injection for database connections.
package di

import (
	"fmt"

	"github.com/aristath/sentinel-desk/internal/config"
	"github.com/aristath/sentinel-desk/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens the SQLite databases and applies schemas.
// library.db is only opened for the sqlite library backend.
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// 1. cache.db - last-known-good ticks and scenario time
	cacheDB, err := database.New(database.Config{
		Path:    cfg.CachePath(),
		Profile: database.ProfileCache, // Safe to lose
		Name:    "cache",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache database: %w", err)
	}
	container.CacheDB = cacheDB

	// 2. library.db - saved portfolios and allocation policies
	if cfg.LibraryBackend == config.BackendSQLite {
		libraryDB, err := database.New(database.Config{
			Path:    cfg.LibraryPath(),
			Profile: database.ProfileStandard,
			Name:    "library",
		})
		if err != nil {
			cacheDB.Close()
			return nil, fmt.Errorf("failed to initialize library database: %w", err)
		}
		container.LibraryDB = libraryDB
	}

	for _, db := range container.Databases() {
		if err := db.Migrate(); err != nil {
			container.closeDatabases()
			return nil, fmt.Errorf("failed to apply schema to %s: %w", db.Name(), err)
		}
	}

	log.Info().
		Int("databases", len(container.Databases())).
		Str("library_backend", cfg.LibraryBackend).
		Msg("Databases initialized and schemas applied")

	return container, nil
}

func (c *Container) closeDatabases() {
	for _, db := range c.Databases() {
		_ = db.Close()
	}
}
