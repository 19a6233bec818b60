// Package di provides dependency injection for service implementations.
package di

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/drawlab/internal/config"
	"github.com/aristath/drawlab/internal/events"
	"github.com/aristath/drawlab/internal/modules/backtest"
	"github.com/aristath/drawlab/internal/modules/history"
	"github.com/aristath/drawlab/internal/modules/optimizer"
	"github.com/aristath/drawlab/internal/modules/predictions"
	"github.com/aristath/drawlab/internal/modules/scoring"
	"github.com/aristath/drawlab/internal/modules/strategies"
	"github.com/aristath/drawlab/internal/scheduler"
	"github.com/aristath/drawlab/internal/services"
)

const connectTimeout = 10 * time.Second

// InitializeServices creates all services and stores them in the container
// This is the SINGLE SOURCE OF TRUTH for all service creation
// Services are created in dependency order to ensure all dependencies exist
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}
	if container.DB == nil {
		return fmt.Errorf("database not initialized")
	}

	// ==========================================
	// STEP 1: Events
	// ==========================================

	container.EventBus = events.NewBus(log)
	publishers := []events.Publisher{container.EventBus}

	if cfg.NATS.URL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		nats, err := events.NewNATSPublisher(ctx, cfg.NATS)
		cancel()
		if err != nil {
			// Optional sink, the in-process bus keeps working
			log.Warn().Err(err).Str("url", cfg.NATS.URL).Msg("NATS unavailable, events stay in-process")
		} else {
			container.NATSPublisher = nats
			publishers = append(publishers, nats)
			log.Info().Str("url", cfg.NATS.URL).Str("stream", cfg.NATS.StreamName).Msg("NATS publisher initialized")
		}
	}
	container.EventManager = events.NewManager(log, publishers...)

	// ==========================================
	// STEP 2: Strategy persistence
	// ==========================================

	if cfg.Archive.Bucket != "" {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		archive, err := strategies.NewS3Archive(ctx, cfg.Archive, log)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("bucket", cfg.Archive.Bucket).Msg("S3 archive unavailable, runs are stored locally only")
		} else {
			container.Archive = archive
			log.Info().Str("bucket", cfg.Archive.Bucket).Msg("S3 archive initialized")
		}
	}

	container.StrategyStore = strategies.NewStore(
		strategies.NewRepository(container.DB.Conn(), log),
		strategies.NewFileStore(cfg.StrategyDir(), log),
		container.Archive,
		log,
	)
	if cfg.Optimizer.Checkpoints {
		container.Checkpoints = optimizer.NewCheckpointStore(cfg.CheckpointDir())
	}

	// ==========================================
	// STEP 3: Domain services
	// ==========================================

	lotteries := make([]services.LotteryConfig, 0, len(cfg.Lotteries))
	for _, l := range cfg.Lotteries {
		lc := services.LotteryConfig{Name: l.Name}
		if l.Feed != "" {
			lc.Feed = history.NewJSONFileSource(l.Feed, log)
		}
		lotteries = append(lotteries, lc)
	}
	container.DrawService = services.NewDrawService(container.DB.Conn(), lotteries, container.EventManager, log)

	container.Engine = scoring.NewEngine()

	bt := backtest.DefaultConfig()
	bt.Rewards = cfg.Rewards

	container.OptimizationService = services.NewOptimizationService(services.OptimizationConfig{
		Draws:       container.DrawService,
		Engine:      container.Engine,
		Store:       container.StrategyStore,
		Checkpoints: container.Checkpoints,
		Backtest:    bt,
		Width:       cfg.DrawWidth,
		Defaults:    cfg.Optimizer.GA(),
		Events:      container.EventManager,
		Log:         log,
	})

	container.PredictionService = predictions.NewService(
		container.Engine,
		container.StrategyStore,
		predictions.NewRepository(container.DB.Conn(), log),
		container.EventManager,
		cfg.DrawWidth,
		log,
	)

	container.Scheduler = scheduler.New(log)

	log.Info().
		Int("lotteries", len(lotteries)).
		Int("variants", len(cfg.Variants)).
		Bool("nats", container.NATSPublisher != nil).
		Bool("archive", container.Archive != nil).
		Msg("Services initialized")

	return nil
}
