package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/drawlab/internal/config"
)

// Wire initializes all dependencies and returns a fully configured container
// This is the main entry point for dependency injection
// Order of operations:
// 1. Initialize database
// 2. Initialize services
// 3. Register jobs
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, *JobInstances, error) {
	// Step 1: Initialize database
	container, err := InitializeDatabases(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize databases: %w", err)
	}

	// Step 2: Initialize services
	if err := InitializeServices(container, cfg, log); err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	// Step 3: Register jobs
	jobs, err := RegisterJobs(container, cfg, log)
	if err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	log.Info().Msg("Dependency injection wiring completed successfully")

	return container, jobs, nil
}

// Close stops background optimisations and releases connections. The
// scheduler is stopped by its owner.
func (c *Container) Close() {
	if c.OptimizationService != nil {
		c.OptimizationService.Shutdown()
	}
	if c.NATSPublisher != nil {
		c.NATSPublisher.Close()
	}
	if c.DB != nil {
		c.DB.Close()
	}
}
