package scan

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchScheduler starts one goroutine per file, batchSize files at a time,
// with at most workers of them scanning at once. Each batch is awaited as a
// whole before the next one is collected, which caps memory when a
// directory holds a very large number of files.
//
// Results of a batch are delivered in enumeration order once the batch is done.
type BatchScheduler struct {
	workers   int
	batchSize int
}

// NewBatchScheduler creates a BatchScheduler. Non-positive arguments select
// DefaultWorkers and DefaultBatchSize.
func NewBatchScheduler(workers, batchSize int) *BatchScheduler {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &BatchScheduler{
		workers:   workers,
		batchSize: batchSize,
	}
}

// Name returns the strategy name.
func (b *BatchScheduler) Name() string {
	return StrategyBatch
}

// Workers returns the number of concurrently scanning goroutines.
func (b *BatchScheduler) Workers() int {
	return b.workers
}

// BatchSize returns the number of files awaited together.
func (b *BatchScheduler) BatchSize() int {
	return b.batchSize
}

// Schedule implements Scheduler.
func (b *BatchScheduler) Schedule(ctx context.Context, paths <-chan string, task TaskFunc, results chan<- Result) {
	batch := make([]string, 0, b.batchSize)

	for path := range paths {
		if ctx.Err() != nil {
			continue // Drain without scanning once cancelled
		}
		batch = append(batch, path)
		if len(batch) == b.batchSize {
			b.runBatch(ctx, batch, task, results)
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		b.runBatch(ctx, batch, task, results)
	}
}

func (b *BatchScheduler) runBatch(ctx context.Context, batch []string, task TaskFunc, results chan<- Result) {
	out := make([]*Result, len(batch))

	g := new(errgroup.Group)
	g.SetLimit(b.workers)
	for i, path := range batch {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res := runTask(ctx, task, path)
			out[i] = &res
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range out {
		if res != nil {
			results <- *res
		}
	}
}
