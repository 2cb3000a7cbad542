// Package scan fans substring counting out over every regular file of a
// directory tree and merges the counts into a single report.
package scan

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/google/uuid"
	"github.com/harrison/substrcount/internal/counter"
	"github.com/harrison/substrcount/internal/fileutil"
	"github.com/harrison/substrcount/internal/models"
)

// Logger receives scan progress and per-file failures.
type Logger interface {
	LogScanStart(summary models.RunSummary)
	LogFileError(err *FileError)
	LogScanComplete(summary models.RunSummary)
	Warnf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// MountFunc opens root as a filesystem whose root directory is root.
type MountFunc func(root string) (billy.Filesystem, error)

// OSMount mounts root from the operating system filesystem.
func OSMount(root string) (billy.Filesystem, error) {
	return osfs.New(root), nil
}

// Options configures a Coordinator. Zero values select the defaults.
type Options struct {
	Scheduler  Scheduler            // Defaults to a WorkerPool of DefaultWorkers
	Logger     Logger               // Optional
	BufferSize int                  // Defaults to counter.BufferSize
	Filters    fileutil.ScanOptions // File selection, everything by default
	Mount      MountFunc            // Defaults to OSMount

	// SkipPaths are files or directories never scanned, named as absolute
	// paths or relative to the working directory. Entries outside the root
	// are ignored.
	SkipPaths []string
}

// Coordinator schedules one scan task per enumerated file and aggregates
// the results.
type Coordinator struct {
	scheduler  Scheduler
	logger     Logger
	bufferSize int
	filters    fileutil.ScanOptions
	mount      MountFunc
	skipPaths  []string
}

// NewCoordinator creates a Coordinator from opts.
func NewCoordinator(opts Options) *Coordinator {
	c := &Coordinator{
		scheduler:  opts.Scheduler,
		logger:     opts.Logger,
		bufferSize: opts.BufferSize,
		filters:    opts.Filters,
		mount:      opts.Mount,
		skipPaths:  opts.SkipPaths,
	}
	if c.scheduler == nil {
		c.scheduler = NewWorkerPool(0)
	}
	if c.mount == nil {
		c.mount = OSMount
	}
	return c
}

// ScanDirectory counts pattern in every selected regular file under root.
//
// Report keys are filepath.Join(root, <path relative to root>). Files that
// fail are logged and left out of the report; they never fail the run. An
// error is returned only when the scan cannot start (empty pattern,
// missing root) or when ctx ends before the scan completes, in which case
// the partial report is discarded.
func (c *Coordinator) ScanDirectory(ctx context.Context, root string, pattern []byte) (*models.Report, *models.RunSummary, error) {
	if len(pattern) == 0 {
		return nil, nil, counter.ErrEmptyPattern
	}

	fsys, err := c.mount(root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to mount %s: %w", root, err)
	}
	if err := fileutil.CheckRoot(fsys); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", root, err)
	}

	scanner, err := counter.NewScanner(fsys, pattern, c.bufferSize)
	if err != nil {
		return nil, nil, err
	}

	summary := &models.RunSummary{
		RunID:     uuid.NewString(),
		Root:      root,
		Pattern:   string(pattern),
		Strategy:  c.scheduler.Name(),
		Workers:   c.scheduler.Workers(),
		StartedAt: time.Now(),
	}
	if c.logger != nil {
		c.logger.LogScanStart(*summary)
	}

	results := make(chan Result, c.scheduler.Workers())
	agg := newAggregator(root, c.logger)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for res := range results {
			agg.add(res)
		}
	}()

	filters := c.filters
	filters.ExcludePaths = append(append([]string(nil), c.filters.ExcludePaths...), pathsWithin(root, c.skipPaths)...)

	paths, err := fileutil.Enumerate(ctx, fsys, filters, func(path string, err error) {
		results <- Result{Path: path, Err: err, Phase: models.PhaseEnumerate}
	})
	if err != nil {
		close(results)
		<-done
		return nil, nil, err
	}

	c.scheduler.Schedule(ctx, paths, func(ctx context.Context, path string) (int, error) {
		return scanner.CountInFile(ctx, path)
	}, results)

	close(results)
	<-done

	agg.fill(summary)
	summary.Duration = time.Since(summary.StartedAt)

	if err := ctx.Err(); err != nil {
		if c.logger != nil {
			c.logger.Warnf("scan of %s interrupted after %d file(s): %v", root, summary.FilesScanned, err)
		}
		return nil, summary, err
	}

	if c.logger != nil {
		c.logger.LogScanComplete(*summary)
	}
	return agg.report, summary, nil
}

// pathsWithin returns the entries of paths that lie under root, relative
// to root.
func pathsWithin(root string, paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil
	}

	var within []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(absRoot, abs)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		within = append(within, rel)
	}
	return within
}

// aggregator is the single writer of a run's report. Only the goroutine
// draining the results channel touches it.
type aggregator struct {
	root      string
	logger    Logger
	report    *models.Report
	failures  []models.FileFailure
	failed    int
	cancelled int
}

func newAggregator(root string, logger Logger) *aggregator {
	return &aggregator{
		root:     root,
		logger:   logger,
		report:   models.NewReport(),
		failures: make([]models.FileFailure, 0),
	}
}

func (a *aggregator) add(res Result) {
	key := filepath.Join(a.root, res.Path)

	// JSON and YAML cannot carry such a key without merging it with others
	if res.Err == nil && !utf8.ValidString(key) {
		res.Err = models.ErrInvalidKey
		res.Phase = models.PhaseEncode
	}

	if res.Err == nil {
		a.report.Put(key, res.Count)
		return
	}

	if errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded) {
		a.cancelled++
		return
	}

	ferr := NewFileError(key, res.Phase, res.Err)
	a.failures = append(a.failures, models.FileFailure{
		Path:    key,
		Phase:   res.Phase,
		Message: res.Err.Error(),
	})
	if res.Phase != models.PhaseEnumerate {
		a.failed++
	}

	if a.logger != nil {
		a.logger.LogFileError(ferr)
	}
}

func (a *aggregator) fill(summary *models.RunSummary) {
	summary.FilesScanned = a.report.Len()
	summary.FilesFailed = a.failed
	summary.TotalMatches = a.report.Total()
	summary.Failures = a.failures
	if a.cancelled > 0 && a.logger != nil {
		a.logger.Debugf("%d scan task(s) stopped by cancellation", a.cancelled)
	}
}
