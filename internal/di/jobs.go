// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"

	"github.com/aristath/sentinel-desk/internal/clientdata"
	"github.com/aristath/sentinel-desk/internal/config"
	"github.com/aristath/sentinel-desk/internal/scheduler"
	"github.com/rs/zerolog"
)

// Fixed schedules (six-field, with seconds).
const (
	cleanupSchedule = "0 0 3 * * *"    // daily at 03:00
	walSchedule     = "0 */15 * * * *" // every 15 minutes
)

// RegisterJobs creates the scheduler and registers every background job.
// The scheduler is not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	sched := scheduler.New(log)

	// ==========================================
	// Tick refresh (keeps the live history current)
	// ==========================================
	if cfg.RefreshSchedule != "" {
		refresh := scheduler.NewRefreshTicksJob(container.Orchestrator, cfg.DecisionTimeout, log)
		if err := sched.AddJob(cfg.RefreshSchedule, refresh); err != nil {
			return fmt.Errorf("failed to register tick refresh job: %w", err)
		}
	}

	// ==========================================
	// Response cache cleanup
	// ==========================================
	cleanup := clientdata.NewCleanupJob(container.ClientDataRepo, container.Orchestrator, log)
	if err := sched.AddJob(cleanupSchedule, cleanup); err != nil {
		return fmt.Errorf("failed to register cache cleanup job: %w", err)
	}

	// ==========================================
	// WAL checkpoint monitoring
	// ==========================================
	wal := scheduler.NewCheckWALCheckpointsJob(log, container.Databases()...)
	if err := sched.AddJob(walSchedule, wal); err != nil {
		return fmt.Errorf("failed to register WAL checkpoint job: %w", err)
	}

	container.Scheduler = sched
	log.Info().Strs("jobs", sched.Jobs()).Msg("Jobs registered")
	return nil
}
