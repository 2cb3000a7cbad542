package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/substrcount/internal/models"
	"github.com/harrison/substrcount/internal/scan"
)

// FileLogger logs scan events to a timestamped per-run file and maintains a
// latest.log symlink pointing to the most recent run.
// It supports log level filtering; per-file failures are always recorded.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates a FileLogger writing into logDir, creating the
// directory when needed.
func NewFileLogger(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Generate timestamped filename: run-YYYYMMDD-HHMMSS.log
	stamp := time.Now().Format("20060102-150405")
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", stamp))

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	fl := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
	}

	fl.writeRunLog("=== substrcount Run Log ===\n")
	fl.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return fl, nil
}

// RunFile returns the path of the current run log.
func (fl *FileLogger) RunFile() string {
	return fl.runFile
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// Warnf logs a formatted warning.
func (fl *FileLogger) Warnf(format string, args ...interface{}) {
	fl.logWithLevel("WARN", fmt.Sprintf(format, args...))
}

// Debugf logs a formatted debug message.
func (fl *FileLogger) Debugf(format string, args ...interface{}) {
	fl.logWithLevel("DEBUG", fmt.Sprintf(format, args...))
}

// LogScanStart records the run parameters, whatever the level.
func (fl *FileLogger) LogScanStart(summary models.RunSummary) {
	fl.writeRunLog(fmt.Sprintf("[%s] [INFO] Run %s: scanning %s for %q (strategy %s, %d workers)\n",
		timestamp(), summary.RunID, summary.Root, summary.Pattern, summary.Strategy, summary.Workers))
}

// LogFileError records a per-file failure with its phase.
func (fl *FileLogger) LogFileError(err *scan.FileError) {
	if err == nil {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [ERROR] [%s] %s\n", err.Timestamp.Format("15:04:05"), err.Phase, err.Error()))
}

// LogScanComplete records the final statistics of a run, whatever the level.
func (fl *FileLogger) LogScanComplete(summary models.RunSummary) {
	var b strings.Builder
	b.WriteString("\n=== Scan Summary ===\n")
	fmt.Fprintf(&b, "Run ID: %s\n", summary.RunID)
	fmt.Fprintf(&b, "Files scanned: %d\n", summary.FilesScanned)
	fmt.Fprintf(&b, "Files failed: %d\n", summary.FilesFailed)
	fmt.Fprintf(&b, "Total matches: %d\n", summary.TotalMatches)
	fmt.Fprintf(&b, "Duration: %s\n", formatDuration(summary.Duration))
	if len(summary.Failures) > 0 {
		b.WriteString("\nFailures:\n")
		for _, f := range summary.Failures {
			fmt.Fprintf(&b, "  - [%s] %s: %s\n", f.Phase, f.Path, f.Message)
		}
	}

	fl.writeRunLog(b.String())
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}

	return nil
}

// writeRunLog is a thread-safe helper to write to the run log file.
func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
	}
}
