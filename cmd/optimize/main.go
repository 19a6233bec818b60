// Package main runs one strategy optimisation from the command line, using
// the same configuration and storage as the server.
//
// Usage:
//
//	optimize -lottery hk -variant special_v7 -generations 80 -resume
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aristath/drawlab/internal/config"
	"github.com/aristath/drawlab/internal/di"
	"github.com/aristath/drawlab/internal/modules/optimizer"
	"github.com/aristath/drawlab/internal/modules/scoring"
	"github.com/aristath/drawlab/pkg/logger"
)

type options struct {
	Lottery string
	Variant string
	Import  bool
	Resume  bool
	Report  bool
	GA      optimizer.Config
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.Lottery, "lottery", "", "lottery name (required)")
	flag.StringVar(&o.Variant, "variant", string(scoring.SpecialV7), "strategy variant")
	flag.BoolVar(&o.Import, "import", true, "import the lottery feed before optimising")
	flag.BoolVar(&o.Resume, "resume", false, "resume from a compatible checkpoint")
	flag.BoolVar(&o.Report, "report", false, "print a backtest report of the active strategy instead of optimising")
	flag.IntVar(&o.GA.Population, "population", 0, "population size (0 = configured default)")
	flag.IntVar(&o.GA.Generations, "generations", 0, "generation count (0 = configured default)")
	mutation := flag.Float64("mutation", -1, "mutation rate (-1 = configured default, 0 = crossover only)")
	flag.IntVar(&o.GA.TournamentSize, "tournament", 0, "tournament size (0 = configured default)")
	flag.IntVar(&o.GA.Depth, "depth", 0, "backtest depth (0 = configured default)")
	flag.Int64Var(&o.GA.Seed, "seed", 0, "random seed (0 = configured default)")
	flag.IntVar(&o.GA.Workers, "workers", 0, "concurrent evaluations (0 = configured default)")
	flag.Parse()
	applyMutation(&o.GA, *mutation)
	return o
}

// applyMutation maps the -mutation flag onto cfg. Negative leaves the
// rate to the configured default and 0 disables mutation.
func applyMutation(cfg *optimizer.Config, rate float64) {
	switch {
	case rate < 0:
		cfg.MutationRate = 0
		cfg.NoMutation = false
	case rate == 0:
		cfg.MutationRate = 0
		cfg.NoMutation = true
	default:
		cfg.MutationRate = rate
		cfg.NoMutation = false
	}
}

// interruptHint is logged when a run is cancelled.
func interruptHint(checkpoints bool) string {
	if checkpoints {
		return "Optimisation interrupted, checkpoint kept for -resume"
	}
	return "Optimisation interrupted, checkpoints disabled so progress is lost"
}

func main() {
	opts := parseFlags()
	if opts.Lottery == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true, Output: os.Stderr})

	v, err := scoring.ParseVariant(opts.Variant)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid variant")
	}

	container, _, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	// Every exit after Wire goes through exit so the stores are closed.
	exit := func(code int) {
		stop()
		container.Close()
		os.Exit(code)
	}

	if opts.Import {
		n, err := container.DrawService.Import(ctx, opts.Lottery)
		if err != nil {
			log.Warn().Err(err).Msg("Import failed, using stored draws")
		} else {
			log.Info().Int("records", n).Msg("Draws imported")
		}
	}

	if opts.Report {
		report, active, err := container.OptimizationService.Report(ctx, opts.Lottery, v, opts.GA.Depth)
		if err != nil {
			log.Error().Err(err).Msg("Backtest failed")
			exit(1)
		}
		if err := printJSON(map[string]interface{}{"strategy": active, "report": report}); err != nil {
			log.Error().Err(err).Msg("Failed to encode output")
			exit(1)
		}
		exit(0)
	}

	out, err := container.OptimizationService.Optimize(ctx, opts.Lottery, v, opts.GA, opts.Resume)
	if err != nil {
		if optimizer.IsCancelled(err) {
			log.Warn().Bool("checkpoints", cfg.Optimizer.Checkpoints).Msg(interruptHint(cfg.Optimizer.Checkpoints))
			exit(130)
		}
		log.Error().Err(err).Msg("Optimisation failed")
		exit(1)
	}

	log.Info().
		Str("run_id", out.Result.RunID).
		Float64("best_fitness", out.Result.BestFitness).
		Bool("persisted", out.Run != nil).
		Msg("Optimisation completed")
	if err := printJSON(out.Result); err != nil {
		log.Error().Err(err).Msg("Failed to encode output")
		exit(1)
	}
	exit(0)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
