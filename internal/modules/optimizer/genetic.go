package optimizer

import (
	"math/rand"

	"github.com/aristath/drawlab/internal/modules/scoring"
)

// breed produces the next generation: two tournaments, one-point
// crossover and per-gene mutation for every offspring.
func breed(rng *rand.Rand, space scoring.Space, names []string, pop []scoring.Weights, fitness []float64, cfg Config) []scoring.Weights {
	next := make([]scoring.Weights, len(pop))
	for i := range next {
		p1 := pop[tournament(rng, fitness, cfg.TournamentSize)]
		p2 := pop[tournament(rng, fitness, cfg.TournamentSize)]
		child := crossover(rng, names, p1, p2)
		mutate(rng, space, child, cfg.MutationRate)
		next[i] = child
	}
	return next
}

// tournament samples size distinct individuals and returns the index of
// the fittest. Ties go to the first sampled.
func tournament(rng *rand.Rand, fitness []float64, size int) int {
	if size > len(fitness) {
		size = len(fitness)
	}
	candidates := rng.Perm(len(fitness))[:size]
	best := candidates[0]
	for _, c := range candidates[1:] {
		if fitness[c] > fitness[best] {
			best = c
		}
	}
	return best
}

// crossover takes genes before a random cut from p1 and the rest from p2.
// The cut lies in [1, len(names)-1] so both parents contribute.
func crossover(rng *rand.Rand, names []string, p1, p2 scoring.Weights) scoring.Weights {
	child := make(scoring.Weights, len(names))
	if len(names) < 2 {
		for _, n := range names {
			child[n] = p1[n]
		}
		return child
	}

	cut := 1 + rng.Intn(len(names)-1)
	for i, n := range names {
		if i < cut {
			child[n] = p1[n]
		} else {
			child[n] = p2[n]
		}
	}
	return child
}

// mutate resamples each gene within its range with probability rate.
func mutate(rng *rand.Rand, space scoring.Space, w scoring.Weights, rate float64) {
	for _, p := range space {
		if rng.Float64() < rate {
			w[p.Name] = p.Sample(rng)
		}
	}
}
