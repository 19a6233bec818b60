package strategies

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/drawlab/internal/database"
	"github.com/aristath/drawlab/internal/modules/optimizer"
	"github.com/aristath/drawlab/internal/modules/scoring"
)

// Repository stores optimisation runs and their fitness logs.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a run repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("component", "strategy_repository").Logger(),
	}
}

// SaveRun inserts run with its log. When activate is set the run becomes
// the only active run of its lottery and variant.
func (r *Repository) SaveRun(ctx context.Context, run *Run, activate bool) error {
	weights, err := json.Marshal(run.BestWeights)
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}

	err = database.WithTransaction(r.db, func(tx *sql.Tx) error {
		if activate {
			_, err := tx.ExecContext(ctx, `
				UPDATE optimization_runs SET is_active = 0
				WHERE lottery = ? AND variant = ? AND is_active = 1
			`, run.Lottery, string(run.Variant))
			if err != nil {
				return fmt.Errorf("failed to deactivate runs: %w", err)
			}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO optimization_runs (
				id, lottery, variant, best_fitness, weights, population,
				generations, seed, depth, started_at, finished_at, is_active
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			run.Lottery,
			string(run.Variant),
			run.BestFitness,
			string(weights),
			run.Population,
			run.Generations,
			run.Seed,
			run.Depth,
			run.StartedAt.Unix(),
			run.FinishedAt.Unix(),
			boolToInt(activate),
		)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO fitness_log (run_id, generation, best_fitness, average_fitness, global_best)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare fitness log insert: %w", err)
		}
		defer stmt.Close()

		for _, e := range run.Log {
			if _, err := stmt.ExecContext(ctx, run.ID, e.Generation, e.BestFitness, e.AverageFitness, e.GlobalBest); err != nil {
				return fmt.Errorf("failed to insert generation %d: %w", e.Generation, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	run.Active = activate
	r.log.Info().
		Str("run_id", run.ID).
		Str("lottery", run.Lottery).
		Str("variant", string(run.Variant)).
		Float64("best_fitness", run.BestFitness).
		Bool("active", activate).
		Msg("Saved optimisation run")
	return nil
}

const runColumns = `id, lottery, variant, best_fitness, weights, population,
	generations, seed, depth, started_at, finished_at, is_active`

// GetActive returns the active run of lottery and v, or nil.
func (r *Repository) GetActive(ctx context.Context, lottery string, v scoring.Variant) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM optimization_runs
		WHERE lottery = ? AND variant = ? AND is_active = 1
		ORDER BY finished_at DESC
		LIMIT 1
	`, lottery, string(v))
	return r.scanOne(row)
}

// GetRun returns a run with its log, or nil when unknown.
func (r *Repository) GetRun(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM optimization_runs WHERE id = ?`, id)
	run, err := r.scanOne(row)
	if err != nil || run == nil {
		return run, err
	}
	if run.Log, err = r.GetLog(ctx, id); err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns runs of lottery and v, newest first, without logs.
func (r *Repository) ListRuns(ctx context.Context, lottery string, v scoring.Variant, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM optimization_runs
		WHERE lottery = ? AND variant = ?
		ORDER BY finished_at DESC, id
		LIMIT ?
	`, lottery, string(v), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// GetLog returns the fitness log of a run in generation order.
func (r *Repository) GetLog(ctx context.Context, id string) ([]optimizer.LogEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT generation, best_fitness, average_fitness, global_best
		FROM fitness_log
		WHERE run_id = ?
		ORDER BY generation
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query fitness log: %w", err)
	}
	defer rows.Close()

	var entries []optimizer.LogEntry
	for rows.Next() {
		var e optimizer.LogEntry
		if err := rows.Scan(&e.Generation, &e.BestFitness, &e.AverageFitness, &e.GlobalBest); err != nil {
			return nil, fmt.Errorf("failed to scan fitness log: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fitness log: %w", err)
	}
	return entries, nil
}

// Activate makes id the active run of its lottery and variant.
func (r *Repository) Activate(ctx context.Context, id string) error {
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		var lottery, variant string
		err := tx.QueryRowContext(ctx, "SELECT lottery, variant FROM optimization_runs WHERE id = ?", id).Scan(&lottery, &variant)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("failed to look up run: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE optimization_runs SET is_active = CASE WHEN id = ? THEN 1 ELSE 0 END
			WHERE lottery = ? AND variant = ?
		`, id, lottery, variant); err != nil {
			return fmt.Errorf("failed to activate run: %w", err)
		}
		return nil
	})
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func (r *Repository) scanOne(row *sql.Row) (*Run, error) {
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

func scanRun(s scanner) (*Run, error) {
	var (
		run                 Run
		variant, weights    string
		startedAt, finished int64
		active              int
	)
	err := s.Scan(
		&run.ID,
		&run.Lottery,
		&variant,
		&run.BestFitness,
		&weights,
		&run.Population,
		&run.Generations,
		&run.Seed,
		&run.Depth,
		&startedAt,
		&finished,
		&active,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.Variant = scoring.Variant(variant)
	if err := json.Unmarshal([]byte(weights), &run.BestWeights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weights of run %s: %w", run.ID, err)
	}
	run.StartedAt = time.Unix(startedAt, 0)
	run.FinishedAt = time.Unix(finished, 0)
	run.Active = active == 1
	return &run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
