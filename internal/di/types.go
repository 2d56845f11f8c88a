/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds all application dependencies.
 * The Container is the single source of truth for all service instances and is
 * passed to the server for access to services.
 */
package di

import (
	"github.com/aristath/sentinel-desk/internal/clientdata"
	"github.com/aristath/sentinel-desk/internal/clients/decision"
	"github.com/aristath/sentinel-desk/internal/database"
	"github.com/aristath/sentinel-desk/internal/events"
	"github.com/aristath/sentinel-desk/internal/library"
	"github.com/aristath/sentinel-desk/internal/scheduler"
	"github.com/aristath/sentinel-desk/internal/session"
)

/**
 * Container holds all dependencies for the application.
 *
 * Architecture:
 * - Databases: library.db (saved portfolios and policies, sqlite backend only)
 *   and cache.db (last-known-good decision-service responses)
 * - Library: blob store (sqlite or badger) and the two collections over it
 * - Clients: the decision-service HTTP client
 * - Session: the orchestrator owning the live scenario
 * - Scheduler: cron jobs (tick refresh, cache cleanup, WAL checks)
 */
type Container struct {
	// Databases
	LibraryDB *database.DB // nil when the badger backend is selected
	CacheDB   *database.DB

	// Library
	LibraryStore library.BlobStore
	BadgerStore  *library.BadgerStore // set only for the badger backend
	Library      *library.Library

	// Clients
	DecisionClient *decision.Client

	// Caches
	ClientDataRepo *clientdata.Repository
	ResponseCache  *clientdata.ResponseCache

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Session
	Orchestrator *session.Orchestrator

	// Background jobs
	Scheduler *scheduler.Scheduler
}

// Databases returns the open SQLite databases, skipping nil ones.
func (c *Container) Databases() []*database.DB {
	var out []*database.DB
	for _, db := range []*database.DB{c.LibraryDB, c.CacheDB} {
		if db != nil {
			out = append(out, db)
		}
	}
	return out
}
