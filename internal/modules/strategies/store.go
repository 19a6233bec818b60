package strategies

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/aristath/drawlab/internal/modules/optimizer"
	"github.com/aristath/drawlab/internal/modules/scoring"
)

// Source tells where active weights came from.
type Source string

const (
	SourceDatabase Source = "database"
	SourceFile     Source = "file"
	SourceDefaults Source = "defaults"
)

// Active is the strategy a lottery and variant currently predict with.
type Active struct {
	Weights scoring.Weights `json:"weights"`
	Source  Source          `json:"source"`
	// RunID is empty unless the weights come from the database.
	RunID string `json:"run_id,omitempty"`
}

// Store combines every persistence target of a finished run.
type Store struct {
	repo    *Repository
	files   *FileStore
	archive *Archive
	log     zerolog.Logger
}

// NewStore creates a store. archive may be nil.
func NewStore(repo *Repository, files *FileStore, archive *Archive, log zerolog.Logger) *Store {
	return &Store{
		repo:    repo,
		files:   files,
		archive: archive,
		log:     log.With().Str("component", "strategy_store").Logger(),
	}
}

// Repository exposes the run repository.
func (s *Store) Repository() *Repository {
	return s.repo
}

// Save persists res everywhere and activates it. Every target is tried;
// failures are logged and returned joined.
func (s *Store) Save(ctx context.Context, res *optimizer.Result) (*Run, error) {
	run := FromResult(res)
	var errs []error

	if err := s.repo.SaveRun(ctx, run, true); err != nil {
		s.log.Error().Err(err).Str("run_id", run.ID).Msg("Failed to store run")
		errs = append(errs, err)
	}
	if err := s.files.SaveBest(run.Lottery, run.Variant, run.BestWeights); err != nil {
		s.log.Error().Err(err).Msg("Failed to save best strategy file")
		errs = append(errs, err)
	}
	if err := s.files.SaveLog(run.Lottery, run.Variant, run.Log); err != nil {
		s.log.Error().Err(err).Msg("Failed to save optimizer log file")
		errs = append(errs, err)
	}
	if s.archive != nil {
		if err := s.archive.Put(ctx, run); err != nil {
			s.log.Error().Err(err).Msg("Failed to archive run")
			errs = append(errs, err)
		}
	}
	return run, errors.Join(errs...)
}

// Active returns the weights to predict with: the active database run,
// else the best-strategy file, else the variant defaults. Stored weights
// are completed with defaults for parameters they omit.
func (s *Store) Active(ctx context.Context, lottery string, v scoring.Variant) Active {
	space := v.Space()

	run, err := s.repo.GetActive(ctx, lottery, v)
	if err != nil {
		s.log.Warn().Err(err).Str("lottery", lottery).Str("variant", string(v)).Msg("Failed to read active run")
	}
	if run != nil {
		return Active{Weights: withDefaults(space, run.BestWeights), Source: SourceDatabase, RunID: run.ID}
	}

	w, err := s.files.LoadBest(lottery, v)
	if err != nil {
		s.log.Warn().Err(err).Str("lottery", lottery).Str("variant", string(v)).Msg("Ignoring unreadable strategy file")
	}
	if w != nil {
		return Active{Weights: withDefaults(space, w), Source: SourceFile}
	}
	return Active{Weights: space.Defaults(), Source: SourceDefaults}
}

func withDefaults(space scoring.Space, w scoring.Weights) scoring.Weights {
	out := w.Clone()
	for _, p := range space {
		if _, ok := out[p.Name]; !ok {
			out[p.Name] = p.Default
		}
	}
	return out
}
