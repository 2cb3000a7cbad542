package scan

import (
	"context"
	"sync"
)

// WorkerPool is a fixed set of goroutines pulling paths from a shared channel.
// Results arrive in completion order.
type WorkerPool struct {
	workers int
}

// NewWorkerPool creates a pool of the given size. Non-positive sizes select DefaultWorkers.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	return &WorkerPool{workers: workers}
}

// Name returns the strategy name.
func (p *WorkerPool) Name() string {
	return StrategyPool
}

// Workers returns the pool size.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// Schedule implements Scheduler.
func (p *WorkerPool) Schedule(ctx context.Context, paths <-chan string, task TaskFunc, results chan<- Result) {
	var wg sync.WaitGroup
	wg.Add(p.workers)

	for i := 0; i < p.workers; i++ {
		go func() {
			defer wg.Done()
			for path := range paths {
				if ctx.Err() != nil {
					continue // Drain without scanning once cancelled
				}
				results <- runTask(ctx, task, path)
			}
		}()
	}

	wg.Wait()
}
