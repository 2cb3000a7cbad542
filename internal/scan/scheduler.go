package scan

import (
	"context"
	"fmt"
	"runtime"

	"github.com/harrison/substrcount/internal/models"
)

// Scheduler strategy names
const (
	StrategyPool  = "pool"
	StrategyBatch = "batch"
)

const (
	// fallbackWorkers is used when the available parallelism cannot be determined.
	fallbackWorkers = 8
	// DefaultBatchSize is the number of in-flight tasks per batch for the batch strategy.
	DefaultBatchSize = 500
)

// TaskFunc scans one file and returns its match count.
type TaskFunc func(ctx context.Context, path string) (int, error)

// Result is the outcome of one scan task, delivered to the aggregator.
type Result struct {
	Path  string // Path relative to the scanned root
	Count int    // Match count, valid when Err is nil
	Err   error  // Failure, if any
	Phase string // Failure phase, set when Err is not nil
}

// Scheduler runs one task per path and delivers every result on results.
// Schedule returns once paths is closed and all started tasks have
// delivered their result. It never closes results.
type Scheduler interface {
	Name() string
	Workers() int
	Schedule(ctx context.Context, paths <-chan string, task TaskFunc, results chan<- Result)
}

// DefaultWorkers returns the available hardware parallelism, or 8 when it
// cannot be determined.
func DefaultWorkers() int {
	if n := runtime.GOMAXPROCS(0); n > 0 {
		return n
	}
	return fallbackWorkers
}

// NewScheduler returns the scheduler backend registered under strategy.
// Non-positive workers or batchSize select the defaults.
func NewScheduler(strategy string, workers, batchSize int) (Scheduler, error) {
	switch strategy {
	case StrategyPool, "":
		return NewWorkerPool(workers), nil
	case StrategyBatch:
		return NewBatchScheduler(workers, batchSize), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q, must be one of: %s, %s", strategy, StrategyPool, StrategyBatch)
	}
}

// runTask executes task for path and converts a panic into a dispatch failure.
func runTask(ctx context.Context, task TaskFunc, path string) (res Result) {
	res.Path = path

	defer func() {
		if r := recover(); r != nil {
			res.Count = 0
			res.Err = &PanicError{Value: r}
			res.Phase = models.PhaseDispatch
		}
	}()

	count, err := task(ctx, path)
	if err != nil {
		res.Err = err
		res.Phase = models.PhaseIO
		return res
	}
	res.Count = count
	return res
}
