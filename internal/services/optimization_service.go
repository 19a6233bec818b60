package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/drawlab/internal/events"
	"github.com/aristath/drawlab/internal/modules/backtest"
	"github.com/aristath/drawlab/internal/modules/history"
	"github.com/aristath/drawlab/internal/modules/optimizer"
	"github.com/aristath/drawlab/internal/modules/scoring"
	"github.com/aristath/drawlab/internal/modules/strategies"
)

// ErrAlreadyRunning is returned when a lottery and variant already have an
// optimisation in flight.
var ErrAlreadyRunning = errors.New("optimisation already running")

// OptimizationConfig holds the dependencies of an OptimizationService.
type OptimizationConfig struct {
	Draws  *DrawService
	Engine *scoring.Engine
	Store  *strategies.Store
	// Checkpoints enables per-generation checkpoints when set.
	Checkpoints *optimizer.CheckpointStore
	Backtest    backtest.Config
	Width       int
	// Defaults override the variant defaults field by field. Zero fields
	// keep the variant default.
	Defaults optimizer.Config
	Events   *events.Manager
	Log      zerolog.Logger
}

// RunStatus is the state of the latest optimisation of a lottery and variant.
type RunStatus struct {
	Lottery     string          `json:"lottery"`
	Variant     scoring.Variant `json:"variant"`
	RunID       string          `json:"run_id,omitempty"`
	Generation  int             `json:"generation"`
	Generations int             `json:"generations"`
	GlobalBest  float64         `json:"global_best"`
	Running     bool            `json:"running"`
	Completed   bool            `json:"completed"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
}

// Outcome is a finished optimisation. Run is nil when the result was not
// persisted.
type Outcome struct {
	Result *optimizer.Result
	Run    *strategies.Run
}

type job struct {
	status RunStatus
	cancel context.CancelFunc
}

// OptimizationService runs optimisations over stored draws and persists
// their results.
type OptimizationService struct {
	draws       *DrawService
	engine      *scoring.Engine
	store       *strategies.Store
	checkpoints *optimizer.CheckpointStore
	backtest    backtest.Config
	width       int
	defaults    optimizer.Config
	events      *events.Manager
	log         zerolog.Logger

	mu   sync.Mutex
	jobs map[string]*job
	wg   sync.WaitGroup
}

// NewOptimizationService creates the service.
func NewOptimizationService(cfg OptimizationConfig) *OptimizationService {
	width := cfg.Width
	if width <= 0 {
		width = history.DefaultWidth
	}
	return &OptimizationService{
		draws:       cfg.Draws,
		engine:      cfg.Engine,
		store:       cfg.Store,
		checkpoints: cfg.Checkpoints,
		backtest:    cfg.Backtest,
		width:       width,
		defaults:    cfg.Defaults,
		events:      cfg.Events,
		log:         cfg.Log.With().Str("component", "optimization_service").Logger(),
		jobs:        make(map[string]*job),
	}
}

// Config returns the hyper-parameters a run of v uses when the request
// overrides nothing.
func (s *OptimizationService) Config(v scoring.Variant) optimizer.Config {
	return overlay(optimizer.Config{}, s.defaults).Merge(v)
}

// Backtester builds a backtester over the stored draws of lottery.
func (s *OptimizationService) Backtester(ctx context.Context, lottery string) (*backtest.Backtester, error) {
	h, err := s.draws.History(ctx, lottery)
	if err != nil {
		return nil, err
	}
	if len(h) == 0 {
		return nil, fmt.Errorf("no draws for %s: %w", lottery, history.ErrMissingData)
	}
	return backtest.New(s.engine, backtest.NewDataset(h, s.width), s.backtest, s.log), nil
}

// Report replays the active strategy of lottery and v.
func (s *OptimizationService) Report(ctx context.Context, lottery string, v scoring.Variant, depth int) (*backtest.Report, strategies.Active, error) {
	active := s.store.Active(ctx, lottery, v)
	bt, err := s.Backtester(ctx, lottery)
	if err != nil {
		return nil, active, err
	}
	if depth <= 0 {
		depth = s.Config(v).Depth
	}
	report, err := bt.Report(v, active.Weights, depth)
	return report, active, err
}

// Optimize runs one optimisation to completion and persists the result.
// A cancelled run is returned unsaved together with the context error;
// its checkpoint stays behind for a later resume.
func (s *OptimizationService) Optimize(ctx context.Context, lottery string, v scoring.Variant, override optimizer.Config, resume bool) (*Outcome, error) {
	ctx, j, err := s.begin(ctx, lottery, v)
	if err != nil {
		return nil, err
	}
	out, err := s.execute(ctx, j, lottery, v, override, resume)
	s.end(j, out, err)
	return out, err
}

// Start runs an optimisation in the background and returns its initial
// status.
func (s *OptimizationService) Start(lottery string, v scoring.Variant, override optimizer.Config, resume bool) (RunStatus, error) {
	ctx, j, err := s.begin(context.Background(), lottery, v)
	if err != nil {
		return RunStatus{}, err
	}
	status := s.snapshot(j)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		out, err := s.execute(ctx, j, lottery, v, override, resume)
		s.end(j, out, err)
		if err != nil && !optimizer.IsCancelled(err) {
			s.events.EmitError(context.Background(), "optimizer", err, map[string]interface{}{
				"lottery": lottery,
				"variant": string(v),
			})
		}
	}()
	return status, nil
}

// Cancel stops the running optimisation of lottery and v.
func (s *OptimizationService) Cancel(lottery string, v scoring.Variant) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobKey(lottery, v)]
	if !ok || !j.status.Running {
		return false
	}
	j.cancel()
	return true
}

// Status returns the latest status of lottery and v.
func (s *OptimizationService) Status(lottery string, v scoring.Variant) (RunStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobKey(lottery, v)]
	if !ok {
		return RunStatus{}, false
	}
	return j.status, true
}

// Statuses returns the latest status of every optimisation started since
// the service was created, ordered by lottery then variant.
func (s *OptimizationService) Statuses() []RunStatus {
	s.mu.Lock()
	out := make([]RunStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.status)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Lottery != out[j].Lottery {
			return out[i].Lottery < out[j].Lottery
		}
		return out[i].Variant < out[j].Variant
	})
	return out
}

// Shutdown cancels every running optimisation and waits for them to stop.
func (s *OptimizationService) Shutdown() {
	s.mu.Lock()
	for _, j := range s.jobs {
		if j.status.Running {
			j.cancel()
		}
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *OptimizationService) execute(ctx context.Context, j *job, lottery string, v scoring.Variant, override optimizer.Config, resume bool) (*Outcome, error) {
	bt, err := s.Backtester(ctx, lottery)
	if err != nil {
		return nil, err
	}

	cfg := overlay(override, s.defaults).Merge(v)
	s.mu.Lock()
	j.status.Generations = cfg.Generations
	s.mu.Unlock()

	s.events.Emit(ctx, "optimizer", &events.OptimizerStartedData{
		Lottery:     lottery,
		Variant:     string(v),
		Population:  cfg.Population,
		Generations: cfg.Generations,
	})

	res, err := optimizer.New(bt, s.log).Run(ctx, optimizer.Request{
		Lottery:     lottery,
		Variant:     v,
		Config:      cfg,
		Checkpoints: s.checkpoints,
		Resume:      resume,
		OnProgress: func(p optimizer.Progress) {
			s.mu.Lock()
			j.status.RunID = p.RunID
			j.status.Generation = p.Generation
			j.status.GlobalBest = p.GlobalBest
			s.mu.Unlock()
			s.events.Emit(ctx, "optimizer", &events.OptimizerProgressData{
				RunID:          p.RunID,
				Lottery:        p.Lottery,
				Variant:        string(p.Variant),
				Generation:     p.Generation,
				Generations:    p.Generations,
				BestFitness:    p.BestFitness,
				AverageFitness: p.AverageFitness,
				GlobalBest:     p.GlobalBest,
			})
		},
	})
	if res == nil {
		return nil, err
	}

	out := &Outcome{Result: res}
	if res.Completed {
		run, saveErr := s.store.Save(context.WithoutCancel(ctx), res)
		if saveErr != nil {
			s.log.Warn().Err(saveErr).Str("run_id", res.RunID).Msg("Run kept in memory only")
		} else {
			out.Run = run
		}
	}

	s.events.Emit(context.WithoutCancel(ctx), "optimizer", &events.OptimizerFinishedData{
		RunID:       res.RunID,
		Lottery:     lottery,
		Variant:     string(v),
		BestFitness: res.BestFitness,
		Completed:   res.Completed,
		Persisted:   out.Run != nil,
	})
	return out, err
}

func (s *OptimizationService) begin(parent context.Context, lottery string, v scoring.Variant) (context.Context, *job, error) {
	if !s.draws.Has(lottery) {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownLottery, lottery)
	}
	if v.Space() == nil {
		return nil, nil, fmt.Errorf("unknown strategy variant %q", v)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := jobKey(lottery, v)
	if j, ok := s.jobs[key]; ok && j.status.Running {
		return nil, nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, key)
	}
	ctx, cancel := context.WithCancel(parent)
	j := &job{
		status: RunStatus{
			Lottery:   lottery,
			Variant:   v,
			Running:   true,
			StartedAt: time.Now(),
		},
		cancel: cancel,
	}
	s.jobs[key] = j
	return ctx, j, nil
}

func (s *OptimizationService) end(j *job, out *Outcome, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	j.status.Running = false
	j.status.FinishedAt = &now
	if out != nil {
		j.status.RunID = out.Result.RunID
		j.status.Completed = out.Result.Completed
		j.status.GlobalBest = out.Result.BestFitness
	}
	if err != nil {
		j.status.Error = err.Error()
	}
	j.cancel()
}

func (s *OptimizationService) snapshot(j *job) RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return j.status
}

func jobKey(lottery string, v scoring.Variant) string {
	return lottery + "/" + string(v)
}

// overlay fills the zero fields of c from base.
func overlay(c, base optimizer.Config) optimizer.Config {
	if c.Population <= 0 {
		c.Population = base.Population
	}
	if c.Generations <= 0 {
		c.Generations = base.Generations
	}
	if c.MutationRate <= 0 && !c.NoMutation {
		c.MutationRate = base.MutationRate
		c.NoMutation = base.NoMutation
	}
	if c.TournamentSize <= 0 {
		c.TournamentSize = base.TournamentSize
	}
	if c.Depth <= 0 {
		c.Depth = base.Depth
	}
	if c.Seed == 0 {
		c.Seed = base.Seed
	}
	if c.Workers <= 0 {
		c.Workers = base.Workers
	}
	return c
}
