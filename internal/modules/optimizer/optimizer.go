package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/drawlab/internal/modules/scoring"
	"github.com/aristath/drawlab/internal/utils"
)

// Evaluator scores one weight configuration. The backtester implements it.
type Evaluator interface {
	Fitness(v scoring.Variant, w scoring.Weights, depth int) float64
}

// LogEntry records one generation.
type LogEntry struct {
	Generation     int     `json:"generation" msgpack:"generation"`
	BestFitness    float64 `json:"best_fitness" msgpack:"best_fitness"`
	AverageFitness float64 `json:"average_fitness" msgpack:"average_fitness"`
	// GlobalBest is the best fitness seen up to and including this
	// generation. It never decreases.
	GlobalBest float64 `json:"global_best" msgpack:"global_best"`
}

// Progress is reported after every generation.
type Progress struct {
	RunID       string          `json:"run_id"`
	Lottery     string          `json:"lottery"`
	Variant     scoring.Variant `json:"variant"`
	Generations int             `json:"generations"`
	LogEntry
}

// Request describes one optimisation run.
type Request struct {
	Lottery string
	Variant scoring.Variant
	Config  Config
	// Checkpoints enables per-generation checkpoints when set.
	Checkpoints *CheckpointStore
	// Resume continues from a compatible checkpoint when one exists.
	Resume     bool
	OnProgress func(Progress)
}

// Result is the outcome of a run. A cancelled run returns the best result
// so far together with the context error.
type Result struct {
	RunID       string          `json:"run_id"`
	Lottery     string          `json:"lottery"`
	Variant     scoring.Variant `json:"variant"`
	Config      Config          `json:"config"`
	BestWeights scoring.Weights `json:"best_weights"`
	BestFitness float64         `json:"best_fitness"`
	Log         []LogEntry      `json:"log"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	Completed   bool            `json:"completed"`
}

// Optimizer runs genetic searches over strategy weights.
type Optimizer struct {
	eval Evaluator
	log  zerolog.Logger
}

// New creates an optimizer scoring individuals with eval.
func New(eval Evaluator, log zerolog.Logger) *Optimizer {
	return &Optimizer{
		eval: eval,
		log:  log.With().Str("component", "optimizer").Logger(),
	}
}

// run is the mutable state of one search.
type run struct {
	req        Request
	cfg        Config
	space      scoring.Space
	names      []string
	population []scoring.Weights
	generation int
	result     *Result
}

// Run evolves weights for req.Variant.
func (o *Optimizer) Run(ctx context.Context, req Request) (*Result, error) {
	space := req.Variant.Space()
	if space == nil {
		return nil, fmt.Errorf("unknown strategy variant %q", req.Variant)
	}
	cfg := req.Config.Merge(req.Variant)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid optimizer config: %w", err)
	}

	r := o.start(req, cfg, space)
	log := o.log.With().
		Str("run_id", r.result.RunID).
		Str("lottery", req.Lottery).
		Str("variant", string(req.Variant)).
		Logger()
	log.Info().
		Int("population", cfg.Population).
		Int("generations", cfg.Generations).
		Int("from_generation", r.generation).
		Int64("seed", cfg.Seed).
		Msg("Starting optimisation")

	timer := utils.NewTimer("optimize", log)
	defer timer.Stop()
	evalTimes := utils.NewDurations("generation_evaluation")
	pool := NewWorkerPool(cfg.Workers)

	for ; r.generation < cfg.Generations; r.generation++ {
		if err := ctx.Err(); err != nil {
			return o.finish(r, log), err
		}

		started := time.Now()
		pop := r.population
		fitness, err := pool.Evaluate(ctx, len(pop), func(i int) float64 {
			return o.eval.Fitness(req.Variant, pop[i], cfg.Depth)
		}, nil)
		if err != nil {
			return o.finish(r, log), err
		}
		evalTimes.Record(time.Since(started))

		entry := r.record(fitness)
		log.Debug().
			Int("generation", entry.Generation).
			Float64("best", entry.BestFitness).
			Float64("average", entry.AverageFitness).
			Float64("global_best", entry.GlobalBest).
			Msg("Generation evaluated")
		if req.OnProgress != nil {
			req.OnProgress(Progress{
				RunID:       r.result.RunID,
				Lottery:     req.Lottery,
				Variant:     req.Variant,
				Generations: cfg.Generations,
				LogEntry:    entry,
			})
		}

		if r.generation+1 < cfg.Generations {
			rng := rand.New(rand.NewSource(cfg.Seed + int64(r.generation) + 1))
			r.population = breed(rng, r.space, r.names, pop, fitness, cfg)
		}
		if req.Checkpoints != nil && r.generation+1 < cfg.Generations {
			if err := req.Checkpoints.Save(r.checkpoint(r.generation + 1)); err != nil {
				log.Warn().Err(err).Msg("Failed to save checkpoint")
			}
		}
	}

	r.result.Completed = true
	if req.Checkpoints != nil {
		if err := req.Checkpoints.Remove(req.Lottery, req.Variant); err != nil {
			log.Warn().Err(err).Msg("Failed to remove checkpoint")
		}
	}

	res := o.finish(r, log)
	evalTimes.Log(log)
	return res, nil
}

// start creates fresh state or restores it from a checkpoint.
func (o *Optimizer) start(req Request, cfg Config, space scoring.Space) *run {
	r := &run{
		req:   req,
		cfg:   cfg,
		space: space,
		names: space.Names(),
		result: &Result{
			Lottery:     req.Lottery,
			Variant:     req.Variant,
			Config:      cfg,
			BestFitness: math.Inf(-1),
			StartedAt:   time.Now(),
		},
	}

	if req.Resume && req.Checkpoints != nil {
		cp, err := req.Checkpoints.Load(req.Lottery, req.Variant)
		switch {
		case err != nil:
			o.log.Warn().Err(err).Msg("Ignoring unreadable checkpoint")
		case cp != nil && cp.compatible(req.Lottery, req.Variant, cfg):
			r.population = cp.Population
			r.generation = cp.Generation
			r.result.RunID = cp.RunID
			r.result.BestWeights = cp.Best
			r.result.BestFitness = cp.BestFitness
			r.result.Log = cp.Log
			r.result.StartedAt = time.Unix(cp.StartedAt, 0)
			return r
		case cp != nil:
			o.log.Warn().Str("run_id", cp.RunID).Msg("Ignoring incompatible checkpoint")
		}
	}

	r.result.RunID = uuid.NewString()
	rng := rand.New(rand.NewSource(cfg.Seed))
	r.population = make([]scoring.Weights, cfg.Population)
	for i := range r.population {
		r.population[i] = space.Random(rng)
	}
	return r
}

// record updates the best-ever individual and appends a log entry.
func (r *run) record(fitness []float64) LogEntry {
	best := floats.MaxIdx(fitness)
	if r.result.BestWeights == nil || fitness[best] > r.result.BestFitness {
		r.result.BestFitness = fitness[best]
		r.result.BestWeights = r.population[best].Clone()
	}

	entry := LogEntry{
		Generation:     r.generation,
		BestFitness:    fitness[best],
		AverageFitness: stat.Mean(fitness, nil),
		GlobalBest:     r.result.BestFitness,
	}
	r.result.Log = append(r.result.Log, entry)
	return entry
}

func (r *run) checkpoint(next int) *Checkpoint {
	return &Checkpoint{
		RunID:       r.result.RunID,
		Lottery:     r.req.Lottery,
		Variant:     r.req.Variant,
		Config:      r.cfg,
		Generation:  next,
		Population:  r.population,
		Best:        r.result.BestWeights,
		BestFitness: r.result.BestFitness,
		Log:         r.result.Log,
		StartedAt:   r.result.StartedAt.Unix(),
	}
}

func (o *Optimizer) finish(r *run, log zerolog.Logger) *Result {
	r.result.FinishedAt = time.Now()
	if r.result.BestWeights == nil {
		r.result.BestFitness = 0
	}
	log.Info().
		Bool("completed", r.result.Completed).
		Int("generations_run", len(r.result.Log)).
		Float64("best_fitness", r.result.BestFitness).
		Msg("Optimisation finished")
	return r.result
}

// IsCancelled reports whether err ended a run early.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
