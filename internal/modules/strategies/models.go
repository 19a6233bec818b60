// Package strategies persists optimisation results: runs and their
// fitness logs in SQLite, best-strategy JSON files on disk and an optional
// S3 archive.
package strategies

import (
	"errors"
	"time"

	"github.com/aristath/drawlab/internal/modules/optimizer"
	"github.com/aristath/drawlab/internal/modules/scoring"
)

// ErrPersistence marks a failed write. The in-memory result is still valid.
var ErrPersistence = errors.New("persistence failed")

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// Run is a stored optimisation run.
type Run struct {
	ID          string               `json:"id"`
	Lottery     string               `json:"lottery"`
	Variant     scoring.Variant      `json:"variant"`
	BestWeights scoring.Weights      `json:"best_weights"`
	BestFitness float64              `json:"best_fitness"`
	Log         []optimizer.LogEntry `json:"log,omitempty"`
	Population  int                  `json:"population"`
	Generations int                  `json:"generations"`
	Seed        int64                `json:"seed"`
	Depth       int                  `json:"depth"`
	StartedAt   time.Time            `json:"started_at"`
	FinishedAt  time.Time            `json:"finished_at"`
	Active      bool                 `json:"active"`
}

// FromResult converts a finished optimiser result.
func FromResult(res *optimizer.Result) *Run {
	return &Run{
		ID:          res.RunID,
		Lottery:     res.Lottery,
		Variant:     res.Variant,
		BestWeights: res.BestWeights,
		BestFitness: res.BestFitness,
		Log:         res.Log,
		Population:  res.Config.Population,
		Generations: res.Config.Generations,
		Seed:        res.Config.Seed,
		Depth:       res.Config.Depth,
		StartedAt:   res.StartedAt,
		FinishedAt:  res.FinishedAt,
	}
}
