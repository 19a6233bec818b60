// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/drawlab/internal/config"
	"github.com/aristath/drawlab/internal/scheduler"
)

// RegisterJobs creates the jobs and registers the scheduled ones
// Returns JobInstances for manual triggering via API
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}
	if container.Scheduler == nil {
		return nil, fmt.Errorf("scheduler not initialized")
	}

	instances := &JobInstances{}

	// ==========================================
	// Daily cycle: import, optimise, review, predict
	// ==========================================
	instances.DailyCycle = scheduler.NewDailyCycleJob(scheduler.DailyCycleConfig{
		Log:          log,
		Draws:        container.DrawService,
		Optimization: container.OptimizationService,
		Predictions:  container.PredictionService,
		Events:       container.EventManager,
		Variants:     cfg.Variants,
		Optimize:     cfg.Cycle.Optimize,
		Timeout:      cfg.Cycle.Timeout,
	})

	if cfg.Cycle.Schedule == "" {
		log.Info().Msg("Daily cycle schedule disabled, manual trigger only")
	} else if err := container.Scheduler.AddJob(cfg.Cycle.Schedule, instances.DailyCycle); err != nil {
		return nil, fmt.Errorf("failed to register daily cycle job: %w", err)
	}

	// ==========================================
	// Database maintenance: integrity check and WAL checkpoint
	// ==========================================
	instances.DatabaseMaintenance = scheduler.NewDatabaseMaintenanceJob(container.DB, log)

	if cfg.MaintenanceSchedule == "" {
		log.Info().Msg("Database maintenance schedule disabled, manual trigger only")
	} else if err := container.Scheduler.AddJob(cfg.MaintenanceSchedule, instances.DatabaseMaintenance); err != nil {
		return nil, fmt.Errorf("failed to register database maintenance job: %w", err)
	}

	return instances, nil
}
