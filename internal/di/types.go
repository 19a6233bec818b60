/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds all application dependencies.
 * The Container is the single source of truth for all service instances and is
 * passed to the HTTP server for access to services.
 */
package di

import (
	"github.com/aristath/drawlab/internal/database"
	"github.com/aristath/drawlab/internal/events"
	"github.com/aristath/drawlab/internal/modules/optimizer"
	"github.com/aristath/drawlab/internal/modules/predictions"
	"github.com/aristath/drawlab/internal/modules/scoring"
	"github.com/aristath/drawlab/internal/modules/strategies"
	"github.com/aristath/drawlab/internal/scheduler"
	"github.com/aristath/drawlab/internal/services"
)

/**
 * Container holds all dependencies for the application.
 *
 * Architecture:
 * - Database: one SQLite file for draws, runs, predictions and reviews
 * - Events: in-process bus plus an optional NATS JetStream publisher
 * - Strategies: database, JSON files and an optional S3 archive
 * - Services: draw import, optimisation runs and predictions
 * - Scheduler: cron runner for the daily cycle
 */
type Container struct {
	DB *database.DB // drawlab.db

	EventBus      *events.Bus           // In-process fan-out (WebSocket and SSE streams)
	EventManager  *events.Manager       // Emits to the bus and NATS
	NATSPublisher *events.NATSPublisher // nil unless NATS_URL is set

	Engine        *scoring.Engine
	Checkpoints   *optimizer.CheckpointStore // nil when GA_CHECKPOINTS=false
	StrategyStore *strategies.Store
	Archive       *strategies.Archive // nil unless S3_BUCKET is set

	DrawService         *services.DrawService
	OptimizationService *services.OptimizationService
	PredictionService   *predictions.Service

	Scheduler *scheduler.Scheduler
}

// JobInstances holds the jobs that can be triggered manually via the API
type JobInstances struct {
	DailyCycle          *scheduler.DailyCycleJob
	DatabaseMaintenance *scheduler.DatabaseMaintenanceJob
}
