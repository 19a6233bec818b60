package predictions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/drawlab/internal/modules/scoring"
)

// Repository stores predictions and reviews. Both are written at most once
// per key; later writes are ignored.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a prediction repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("component", "prediction_repository").Logger(),
	}
}

// SavePrediction stores rec unless a prediction for the same lottery,
// variant and period exists. It reports whether rec was stored.
func (r *Repository) SavePrediction(ctx context.Context, rec *Record) (bool, error) {
	body, err := json.Marshal(payload{Source: rec.Source, General: rec.General, Special: rec.Special})
	if err != nil {
		return false, fmt.Errorf("failed to marshal prediction: %w", err)
	}

	var runID interface{}
	if rec.RunID != "" {
		runID = rec.RunID
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO predictions (lottery, variant, period, run_id, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(lottery, variant, period) DO NOTHING
	`, rec.Lottery, string(rec.Variant), rec.Period, runID, string(body), rec.CreatedAt.Unix())
	if err != nil {
		return false, fmt.Errorf("failed to insert prediction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

// GetPrediction returns the stored prediction or nil.
func (r *Repository) GetPrediction(ctx context.Context, lottery string, v scoring.Variant, period int64) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT lottery, variant, period, run_id, payload, created_at
		FROM predictions
		WHERE lottery = ? AND variant = ? AND period = ?
	`, lottery, string(v), period)

	rec, err := scanPrediction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// ListPredictions returns predictions of lottery and v, newest period first.
func (r *Repository) ListPredictions(ctx context.Context, lottery string, v scoring.Variant, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT lottery, variant, period, run_id, payload, created_at
		FROM predictions
		WHERE lottery = ? AND variant = ?
		ORDER BY period DESC
		LIMIT ?
	`, lottery, string(v), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating predictions: %w", err)
	}
	return out, nil
}

// SaveReview stores rv unless the period was already reviewed. It reports
// whether rv was stored.
func (r *Repository) SaveReview(ctx context.Context, rv *Review) (bool, error) {
	body, err := json.Marshal(rv)
	if err != nil {
		return false, fmt.Errorf("failed to marshal review: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO reviews (lottery, period, payload, reviewed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(lottery, period) DO NOTHING
	`, rv.Lottery, rv.Period, string(body), rv.ReviewedAt.Unix())
	if err != nil {
		return false, fmt.Errorf("failed to insert review: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

// GetReview returns the review of a period or nil.
func (r *Repository) GetReview(ctx context.Context, lottery string, period int64) (*Review, error) {
	var body string
	err := r.db.QueryRowContext(ctx, "SELECT payload FROM reviews WHERE lottery = ? AND period = ?", lottery, period).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query review: %w", err)
	}
	return decodeReview(body)
}

// ListReviews returns reviews of lottery, newest period first.
func (r *Repository) ListReviews(ctx context.Context, lottery string, limit int) ([]*Review, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT payload FROM reviews
		WHERE lottery = ?
		ORDER BY period DESC
		LIMIT ?
	`, lottery, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	var out []*Review
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		rv, err := decodeReview(body)
		if err != nil {
			r.log.Warn().Err(err).Msg("Skipping unreadable review")
			continue
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reviews: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPrediction(s scanner) (*Record, error) {
	var (
		rec       Record
		variant   string
		runID     sql.NullString
		body      string
		createdAt int64
	)
	if err := s.Scan(&rec.Lottery, &variant, &rec.Period, &runID, &body, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan prediction: %w", err)
	}

	var p payload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prediction payload: %w", err)
	}
	rec.Variant = scoring.Variant(variant)
	rec.RunID = runID.String
	rec.Source = p.Source
	rec.General = p.General
	rec.Special = p.Special
	rec.CreatedAt = time.Unix(createdAt, 0)
	return &rec, nil
}

func decodeReview(body string) (*Review, error) {
	var rv Review
	if err := json.Unmarshal([]byte(body), &rv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal review: %w", err)
	}
	return &rv, nil
}
