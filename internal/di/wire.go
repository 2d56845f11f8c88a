// Package di provides dependency injection wiring and initialization.
package di

import (
	"context"
	"fmt"

	"github.com/aristath/sentinel-desk/internal/config"
	"github.com/rs/zerolog"
)

// Wire initializes all dependencies and returns a fully configured container
// This is the main entry point for dependency injection
// Order of operations:
// 1. Initialize databases
// 2. Initialize services (library, clients, caches, events, orchestrator)
// 3. Register jobs
func Wire(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, error) {
	// Step 1: Initialize databases
	container, err := InitializeDatabases(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize databases: %w", err)
	}

	// Step 2: Initialize services
	if err := InitializeServices(ctx, container, cfg, log); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	// Step 3: Register jobs
	if err := RegisterJobs(container, cfg, log); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	log.Info().Msg("Dependency injection wiring completed successfully")

	return container, nil
}

// Close releases everything the container opened. The scheduler must be
// stopped by the caller first.
func (c *Container) Close() {
	if c.Orchestrator != nil {
		c.Orchestrator.Close()
	}
	if c.BadgerStore != nil {
		_ = c.BadgerStore.Close()
	}
	c.closeDatabases()
}
