// Package optimizer evolves strategy weights with a generational genetic
// algorithm scored by the backtester.
package optimizer

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/aristath/drawlab/internal/modules/scoring"
)

// DefaultDepth is the number of backtest offsets per fitness evaluation.
const DefaultDepth = 50

// Config holds the GA hyper-parameters of one run.
type Config struct {
	Population     int     `json:"population" msgpack:"population"`
	Generations    int     `json:"generations" msgpack:"generations"`
	MutationRate   float64 `json:"mutation_rate" msgpack:"mutation_rate"`
	TournamentSize int     `json:"tournament_size" msgpack:"tournament_size"`
	// Depth is the backtest depth handed to the fitness function.
	Depth int   `json:"depth" msgpack:"depth"`
	Seed  int64 `json:"seed" msgpack:"seed"`
	// Workers bounds concurrent fitness evaluations. It does not affect
	// results.
	Workers int `json:"workers" msgpack:"workers"`
	// NoMutation pins MutationRate to 0 (crossover only). A zero
	// MutationRate alone means "use the default".
	NoMutation bool `json:"no_mutation,omitempty" msgpack:"no_mutation"`
}

// DefaultConfig returns the stock hyper-parameters of v.
func DefaultConfig(v scoring.Variant) Config {
	cfg := Config{
		Population:     60,
		Generations:    50,
		MutationRate:   0.2,
		TournamentSize: 5,
		Depth:          DefaultDepth,
		Seed:           1,
		Workers:        DefaultWorkers(),
	}
	if v == scoring.SpecialV7 {
		cfg.Population = 80
		cfg.Generations = 60
		cfg.TournamentSize = 6
	}
	return cfg
}

// DefaultWorkers is the logical CPU count, or 10 when it cannot be read.
func DefaultWorkers() int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		return 10
	}
	return n
}

// Merge fills the zero fields of c from the defaults of v.
func (c Config) Merge(v scoring.Variant) Config {
	def := DefaultConfig(v)
	if c.Population <= 0 {
		c.Population = def.Population
	}
	if c.Generations <= 0 {
		c.Generations = def.Generations
	}
	if c.NoMutation {
		c.MutationRate = 0
	} else if c.MutationRate <= 0 {
		c.MutationRate = def.MutationRate
	}
	if c.TournamentSize <= 0 {
		c.TournamentSize = def.TournamentSize
	}
	if c.Depth <= 0 {
		c.Depth = def.Depth
	}
	if c.Seed == 0 {
		c.Seed = def.Seed
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	return c
}

// Validate rejects settings the GA cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Population < 2:
		return fmt.Errorf("population must be at least 2, got %d", c.Population)
	case c.Generations < 1:
		return fmt.Errorf("generations must be at least 1, got %d", c.Generations)
	case c.MutationRate < 0 || c.MutationRate > 1:
		return fmt.Errorf("mutation rate must be within [0,1], got %v", c.MutationRate)
	case c.NoMutation && c.MutationRate > 0:
		return fmt.Errorf("mutation rate %v conflicts with no_mutation", c.MutationRate)
	case c.TournamentSize < 1:
		return fmt.Errorf("tournament size must be at least 1, got %d", c.TournamentSize)
	}
	return nil
}
