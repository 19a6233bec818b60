package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/drawlab/internal/events"
	"github.com/aristath/drawlab/internal/modules/optimizer"
	"github.com/aristath/drawlab/internal/modules/predictions"
	"github.com/aristath/drawlab/internal/modules/scoring"
	"github.com/aristath/drawlab/internal/services"
)

// DailyCycleJob imports new draws, optionally re-optimises, reviews the
// previous predictions and predicts the next period for every lottery.
type DailyCycleJob struct {
	log          zerolog.Logger
	draws        *services.DrawService
	optimization *services.OptimizationService
	predictions  *predictions.Service
	events       *events.Manager
	variants     []scoring.Variant
	optimize     bool
	timeout      time.Duration
}

// DailyCycleConfig holds configuration for the daily cycle job
type DailyCycleConfig struct {
	Log          zerolog.Logger
	Draws        *services.DrawService
	Optimization *services.OptimizationService
	Predictions  *predictions.Service
	Events       *events.Manager
	// Variants defaults to every known variant.
	Variants []scoring.Variant
	Optimize bool
	// Timeout bounds one whole cycle. Zero means no limit.
	Timeout time.Duration
}

// LotteryReport is the outcome of one lottery within a cycle.
type LotteryReport struct {
	Lottery   string            `json:"lottery"`
	Imported  int               `json:"imported"`
	Draws     int               `json:"draws"`
	Reviewed  bool              `json:"reviewed"`
	Optimized []scoring.Variant `json:"optimized,omitempty"`
	Predicted []scoring.Variant `json:"predicted,omitempty"`
	Errors    []string          `json:"errors,omitempty"`
}

// Failed reports whether the lottery produced no prediction at all.
func (r LotteryReport) Failed() bool {
	return len(r.Predicted) == 0
}

// CycleReport is the outcome of one cycle.
type CycleReport struct {
	Lotteries []LotteryReport `json:"lotteries"`
	Failures  int             `json:"failures"`
	Duration  time.Duration   `json:"duration"`
}

// NewDailyCycleJob creates a new daily cycle job
func NewDailyCycleJob(cfg DailyCycleConfig) *DailyCycleJob {
	variants := cfg.Variants
	if len(variants) == 0 {
		variants = scoring.Variants()
	}
	return &DailyCycleJob{
		log:          cfg.Log.With().Str("job", "daily_cycle").Logger(),
		draws:        cfg.Draws,
		optimization: cfg.Optimization,
		predictions:  cfg.Predictions,
		events:       cfg.Events,
		variants:     variants,
		optimize:     cfg.Optimize,
		timeout:      cfg.Timeout,
	}
}

// Name returns the job name
func (j *DailyCycleJob) Name() string {
	return "daily_cycle"
}

// Run executes the cycle. It fails when any lottery ends without a
// prediction.
func (j *DailyCycleJob) Run() error {
	ctx := context.Background()
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	report := j.RunCycle(ctx)
	if report.Failures > 0 {
		return fmt.Errorf("daily cycle failed for %d of %d lotteries", report.Failures, len(report.Lotteries))
	}
	return nil
}

// RunCycle processes every lottery in name order. A failing step is logged
// and recorded; later steps and lotteries still run.
func (j *DailyCycleJob) RunCycle(ctx context.Context) CycleReport {
	j.log.Info().Int("lotteries", len(j.draws.Names())).Bool("optimize", j.optimize).Msg("Starting daily cycle")
	started := time.Now()

	var report CycleReport
	names := make([]string, 0, len(j.draws.Names()))
	for _, name := range j.draws.Names() {
		lr := j.runLottery(ctx, name)
		if lr.Failed() {
			report.Failures++
		}
		report.Lotteries = append(report.Lotteries, lr)
		names = append(names, name)
	}
	report.Duration = time.Since(started)

	j.events.Emit(ctx, "scheduler", &events.CycleCompletedData{
		Lotteries: names,
		Failures:  report.Failures,
		Duration:  report.Duration.String(),
	})
	j.log.Info().
		Dur("duration", report.Duration).
		Int("failures", report.Failures).
		Msg("Daily cycle completed")
	return report
}

func (j *DailyCycleJob) runLottery(ctx context.Context, name string) LotteryReport {
	log := j.log.With().Str("lottery", name).Logger()
	lr := LotteryReport{Lottery: name}
	fail := func(step string, err error) {
		log.Error().Err(err).Str("step", step).Msg("Cycle step failed")
		lr.Errors = append(lr.Errors, step+": "+err.Error())
	}

	// Step 1: import new draws (non-critical, stored draws may suffice)
	n, err := j.draws.Import(ctx, name)
	if err != nil {
		fail("import", err)
	}
	lr.Imported = n

	// Step 2: optional re-optimisation
	if j.optimize && j.optimization != nil {
		for _, v := range j.variants {
			if _, err := j.optimization.Optimize(ctx, name, v, optimizer.Config{}, true); err != nil {
				fail("optimize "+string(v), err)
				if ctx.Err() != nil {
					return lr
				}
				continue
			}
			lr.Optimized = append(lr.Optimized, v)
		}
	}

	h, err := j.draws.History(ctx, name)
	if err != nil {
		fail("history", err)
		return lr
	}
	lr.Draws = len(h)
	if len(h) == 0 {
		log.Warn().Msg("No draws stored, nothing to review or predict")
		return lr
	}

	// Step 3: review the predictions made for the latest draw
	if _, _, err := j.predictions.Review(ctx, name, h, j.variants); err != nil {
		fail("review", err)
	} else {
		lr.Reviewed = true
	}

	// Step 4: predict the next period
	for _, v := range j.variants {
		if _, _, err := j.predictions.Predict(ctx, name, h, v); err != nil {
			fail("predict "+string(v), err)
			continue
		}
		lr.Predicted = append(lr.Predicted, v)
	}
	return lr
}
