package optimizer

import (
	"context"
	"sync"
)

// WorkerPool evaluates a batch of individuals on a fixed number of
// goroutines.
type WorkerPool struct {
	numWorkers int
}

// NewWorkerPool creates a pool. Non-positive sizes default to 10 workers.
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = 10
	}
	return &WorkerPool{numWorkers: numWorkers}
}

// ProgressFunc is called after each completed evaluation.
type ProgressFunc func(done, total int)

type jobItem struct {
	index int
}

type resultItem struct {
	index   int
	fitness float64
}

// Evaluate runs fn for every index in [0, n) and returns the results in
// index order. It stops handing out work once ctx is done and returns
// ctx.Err().
func (wp *WorkerPool) Evaluate(ctx context.Context, n int, fn func(i int) float64, progress ProgressFunc) ([]float64, error) {
	if n == 0 {
		return []float64{}, nil
	}

	jobs := make(chan jobItem, n)
	results := make(chan resultItem, n)

	workers := wp.numWorkers
	if n < workers {
		workers = n
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if ctx.Err() != nil {
					continue
				}
				results <- resultItem{index: job.index, fitness: fn(job.index)}
			}
		}()
	}

	for i := 0; i < n; i++ {
		jobs <- jobItem{index: i}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]float64, n)
	done := 0
	for r := range results {
		out[r.index] = r.fitness
		done++
		if progress != nil {
			progress(done, n)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
