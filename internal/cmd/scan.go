package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harrison/substrcount/internal/config"
	"github.com/harrison/substrcount/internal/fileutil"
	"github.com/harrison/substrcount/internal/history"
	"github.com/harrison/substrcount/internal/logger"
	"github.com/harrison/substrcount/internal/models"
	"github.com/harrison/substrcount/internal/report"
	"github.com/harrison/substrcount/internal/scan"
	"github.com/spf13/cobra"
)

// NewScanCommand creates the 'substrcount scan' command
func NewScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <directory> <substring>",
		Short: "Count a substring in every file under a directory",
		Long: `Scan every regular file under <directory> and count the non-overlapping,
left-to-right occurrences of <substring> in each one.

The report maps each file path to its count and is written to stdout
(or --output). Files that cannot be read are reported on stderr as
"<path>: <error>" and left out of the report; they do not fail the run.

Examples:
  substrcount scan ./src TODO
  substrcount scan /var/log "connection reset" --strategy batch --workers 16
  substrcount scan . needle --ext .go --exclude-dir vendor --sort
  substrcount scan data/ abc --format yaml --output report.yaml`,
		Args: cobra.ExactArgs(2),
		RunE: runScan,
	}

	cmd.Flags().String("config", "", "Path to config file (default: $SUBSTRCOUNT_HOME/config.yaml)")
	cmd.Flags().String("strategy", config.DefaultStrategy, "Scheduler backend: pool or batch")
	cmd.Flags().Int("workers", 0, "Number of files scanned at once (0 = available parallelism)")
	cmd.Flags().Int("batch-size", config.DefaultBatchSize, "Files awaited together by the batch strategy")
	cmd.Flags().Int("buffer-size", config.DefaultBufferSize, "Read buffer size in bytes, at least the substring length")
	cmd.Flags().String("format", config.DefaultFormat, "Report format: json or yaml")
	cmd.Flags().StringP("output", "o", "", "Write the report to this file instead of stdout")
	cmd.Flags().Bool("sort", false, "Sort report keys instead of using completion order")
	cmd.Flags().String("log-level", config.DefaultLogLevel, "Console log level: trace, debug, info, warn, error")
	cmd.Flags().String("log-dir", "", "Also write a per-run log file in this directory")
	cmd.Flags().String("timeout", "", "Abort the scan after this long (e.g., 30s, 5m)")
	cmd.Flags().StringSlice("exclude-dir", nil, "Directory name to skip (repeatable)")
	cmd.Flags().StringSlice("ext", nil, "Only scan files with this extension (repeatable)")
	cmd.Flags().String("name-pattern", "", "Only scan files whose name without extension matches this regexp")
	cmd.Flags().Int("max-depth", 0, "Maximum directory depth (0 = unlimited)")
	cmd.Flags().Bool("skip-hidden", false, "Skip dot-files and dot-directories")
	cmd.Flags().Bool("no-history", false, "Do not record this run in the history database")

	return cmd
}

// loadConfig reads --config, or the default config file when the flag is unset.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
		return cfg, nil
	}

	defaultPath, err := config.DefaultConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to locate config: %w", err)
	}
	cfg, err := config.LoadConfig(defaultPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// flagOverrides collects the flags set on the command line.
func flagOverrides(cmd *cobra.Command) (config.FlagOverrides, error) {
	var o config.FlagOverrides
	flags := cmd.Flags()

	str := func(name string) *string {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetString(name)
		return &v
	}
	num := func(name string) *int {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetInt(name)
		return &v
	}
	boolean := func(name string) *bool {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetBool(name)
		return &v
	}

	o.Strategy = str("strategy")
	o.Workers = num("workers")
	o.BatchSize = num("batch-size")
	o.BufferSize = num("buffer-size")
	o.LogLevel = str("log-level")
	o.LogDir = str("log-dir")
	o.Format = str("format")
	o.Sort = boolean("sort")
	o.NamePattern = str("name-pattern")
	o.MaxDepth = num("max-depth")
	o.SkipHidden = boolean("skip-hidden")
	o.NoHistory = boolean("no-history")

	if flags.Changed("exclude-dir") {
		o.ExcludeDirs, _ = flags.GetStringSlice("exclude-dir")
	}
	if flags.Changed("ext") {
		o.Extensions, _ = flags.GetStringSlice("ext")
	}

	if timeoutStr := str("timeout"); timeoutStr != nil {
		timeout, err := time.ParseDuration(*timeoutStr)
		if err != nil {
			return o, fmt.Errorf("invalid timeout format %q: %w", *timeoutStr, err)
		}
		o.Timeout = &timeout
	}

	return o, nil
}

func filterOptions(cfg *config.Config) fileutil.ScanOptions {
	return fileutil.ScanOptions{
		NamePattern: cfg.Filters.NamePattern,
		Extensions:  cfg.Filters.Extensions,
		ExcludeDirs: cfg.Filters.ExcludeDirs,
		MaxDepth:    cfg.Filters.MaxDepth,
		SkipHidden:  cfg.Filters.SkipHidden,
	}
}

// ownPaths lists the files and directories substrcount itself writes. They
// are never scanned, so the history database, run logs and report file
// don't change the counts of the next run.
func ownPaths(cfg *config.Config, output string) []string {
	var paths []string
	if db, err := cfg.ResolveHistoryDBPath(); err == nil && db != ":memory:" {
		paths = append(paths, db, db+"-wal", db+"-shm", db+"-journal")
	}
	if cfg.LogDir != "" {
		paths = append(paths, cfg.LogDir)
	}
	if output != "" {
		paths = append(paths, output, output+".lock")
	}
	return paths
}

// runScan implements the scan command logic
func runScan(cmd *cobra.Command, args []string) error {
	root, substring := args[0], args[1]
	if substring == "" {
		return fmt.Errorf("substring must not be empty")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	overrides, err := flagOverrides(cmd)
	if err != nil {
		return err
	}
	cfg.MergeWithFlags(overrides)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	console := logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	var log scan.Logger = console
	if cfg.LogDir != "" {
		fileLog, err := logger.NewFileLogger(cfg.LogDir, cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer fileLog.Close()
		log = logger.NewMulti(console, fileLog)
	}

	scheduler, err := scan.NewScheduler(cfg.Strategy, cfg.Workers, cfg.BatchSize)
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	coordinator := scan.NewCoordinator(scan.Options{
		Scheduler:  scheduler,
		Logger:     log,
		BufferSize: cfg.BufferSize,
		Filters:    filterOptions(cfg),
		SkipPaths:  ownPaths(cfg, output),
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	result, summary, err := coordinator.ScanDirectory(ctx, root, []byte(substring))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("scan timed out after %v", cfg.Timeout)
		}
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("scan interrupted")
		}
		return err
	}

	opts := report.Options{Format: format, Sort: cfg.Sort}
	if output != "" {
		err = report.WriteFile(ctx, output, result, opts)
	} else {
		err = report.Write(cmd.OutOrStdout(), result, opts)
	}
	if err != nil {
		return fmt.Errorf("failed to emit report: %w", err)
	}

	if summary.FilesFailed > 0 {
		log.Warnf("%d file(s) could not be scanned and are missing from the report", summary.FilesFailed)
	}

	if cfg.History.Enabled {
		recordRun(ctx, cfg, summary, result, log)
	}

	return nil
}

// recordRun stores the run in the history database. Failures only warn.
func recordRun(ctx context.Context, cfg *config.Config, summary *models.RunSummary, result *models.Report, log scan.Logger) {
	dbPath, err := cfg.ResolveHistoryDBPath()
	if err != nil {
		log.Warnf("history disabled: %v", err)
		return
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		log.Warnf("history disabled: %v", err)
		return
	}
	defer store.Close()

	if err := store.SaveRun(ctx, summary, result); err != nil {
		log.Warnf("failed to record run %s: %v", summary.RunID, err)
		return
	}
	log.Debugf("recorded run %s in %s", summary.RunID, dbPath)
}
