package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/drawlab/internal/database"
)

// DrawRepository stores raw draw records for one lottery in SQLite.
// It implements Source, so the loader can read straight from the database.
type DrawRepository struct {
	db      *sql.DB
	lottery string
	log     zerolog.Logger
}

// NewDrawRepository creates a repository scoped to lottery.
func NewDrawRepository(db *sql.DB, lottery string, log zerolog.Logger) *DrawRepository {
	return &DrawRepository{
		db:      db,
		lottery: lottery,
		log:     log.With().Str("component", "draw_repository").Str("lottery", lottery).Logger(),
	}
}

// Lottery returns the lottery the repository is scoped to.
func (r *DrawRepository) Lottery() string {
	return r.lottery
}

// Upsert stores records, replacing any stored record with the same period.
// Within one call the last record for a period wins.
func (r *DrawRepository) Upsert(ctx context.Context, records []Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	now := time.Now().Unix()
	written := 0
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO draws (lottery, period, numbers, imported_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(lottery, period) DO UPDATE SET
				numbers = excluded.numbers,
				imported_at = excluded.imported_at
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare draw upsert: %w", err)
		}
		defer stmt.Close()

		for _, rec := range records {
			numbers, err := json.Marshal(rec.Numbers)
			if err != nil {
				return fmt.Errorf("failed to marshal numbers for period %d: %w", rec.Period, err)
			}
			if _, err := stmt.ExecContext(ctx, r.lottery, rec.Period, string(numbers), now); err != nil {
				return fmt.Errorf("failed to upsert period %d: %w", rec.Period, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.log.Debug().Int("records", written).Msg("Draws upserted")
	return written, nil
}

// Import copies every record of src into the repository.
func (r *DrawRepository) Import(ctx context.Context, src Source) (int, error) {
	records, err := src.Records(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read import source: %w", err)
	}
	n, err := r.Upsert(ctx, records)
	if err != nil {
		return 0, err
	}
	r.log.Info().Int("records", n).Msg("Draws imported")
	return n, nil
}

// Records implements Source.
func (r *DrawRepository) Records(ctx context.Context) ([]Record, error) {
	return r.query(ctx, `
		SELECT period, numbers FROM draws
		WHERE lottery = ?
		ORDER BY period DESC
	`, r.lottery)
}

// Recent returns the latest limit records, newest first.
func (r *DrawRepository) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.query(ctx, `
		SELECT period, numbers FROM draws
		WHERE lottery = ?
		ORDER BY period DESC
		LIMIT ?
	`, r.lottery, limit)
}

// Count returns the number of stored draws.
func (r *DrawRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM draws WHERE lottery = ?", r.lottery).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count draws: %w", err)
	}
	return n, nil
}

func (r *DrawRepository) query(ctx context.Context, query string, args ...interface{}) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query draws: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec     Record
			numbers string
		)
		if err := rows.Scan(&rec.Period, &numbers); err != nil {
			return nil, fmt.Errorf("failed to scan draw: %w", err)
		}
		if err := json.Unmarshal([]byte(numbers), &rec.Numbers); err != nil {
			r.log.Warn().Err(err).Int64("period", rec.Period).Msg("Stored draw has unreadable numbers")
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating draws: %w", err)
	}
	return records, nil
}
