package scheduler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/drawlab/internal/database"
)

// walTruncateFrames is the WAL size above which the log is truncated
// instead of passively checkpointed.
const walTruncateFrames = 1000

// DatabaseMaintenanceJob checks database integrity and checkpoints the WAL.
type DatabaseMaintenanceJob struct {
	log zerolog.Logger
	db  *database.DB
}

// NewDatabaseMaintenanceJob creates a new maintenance job for db
func NewDatabaseMaintenanceJob(db *database.DB, log zerolog.Logger) *DatabaseMaintenanceJob {
	return &DatabaseMaintenanceJob{
		log: log.With().Str("job", "database_maintenance").Logger(),
		db:  db,
	}
}

// Name returns the job name
func (j *DatabaseMaintenanceJob) Name() string {
	return "database_maintenance"
}

// Run fails only on a failed integrity check. Checkpoint problems are logged.
func (j *DatabaseMaintenanceJob) Run() error {
	ctx := context.Background()

	if err := j.db.HealthCheck(ctx); err != nil {
		// Corruption cannot be repaired automatically
		j.log.Error().Err(err).Str("database", j.db.Name()).Msg("Database integrity check failed")
		return fmt.Errorf("database %s failed its integrity check: %w", j.db.Name(), err)
	}

	// PRAGMA wal_checkpoint returns: busy, log, checkpointed
	var busy, frames, checkpointed int
	if err := j.db.Conn().QueryRowContext(ctx, "PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &frames, &checkpointed); err != nil {
		j.log.Warn().Err(err).Msg("Failed to checkpoint WAL")
		return nil
	}

	if frames > walTruncateFrames {
		j.log.Warn().
			Int("wal_frames", frames).
			Int("checkpointed", checkpointed).
			Msg("WAL file is large, truncating")
		if _, err := j.db.Conn().ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			j.log.Warn().Err(err).Msg("Failed to truncate WAL")
		}
	}

	j.log.Info().
		Int("wal_frames", frames).
		Int("checkpointed", checkpointed).
		Msg("Database maintenance completed")
	return nil
}
