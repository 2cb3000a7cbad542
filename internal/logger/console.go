// Package logger provides logging implementations for substrcount runs.
//
// Loggers receive scan lifecycle events (start, per-file failure, summary)
// and free-form diagnostics. Implementations are thread-safe and write to a
// console stream or a per-run log file.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/substrcount/internal/models"
	"github.com/harrison/substrcount/internal/scan"
	"github.com/mattn/go-isatty"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs scan progress to a writer with timestamps and thread safety.
// Regular messages are prefixed with [HH:MM:SS] [LEVEL]. Per-file failures are
// written bare as "<path>: <error>" and are never filtered by level.
// Color output is enabled when the writer is a terminal.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal reports whether w is a TTY that should receive colors.
// NO_COLOR and non-terminal stdout are honored through color.NoColor.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return false
	}
	return !color.NoColor
}

// IsValidLevel reports whether level names a known log level.
func IsValidLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "error":
		return true
	}
	return false
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	if IsValidLevel(normalized) {
		return normalized
	}
	return "info"
}

// shouldLog checks if a message at the given level should be logged.
func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// Warnf logs a formatted warning.
func (cl *ConsoleLogger) Warnf(format string, args ...interface{}) {
	cl.logWithLevel("WARN", fmt.Sprintf(format, args...))
}

// Debugf logs a formatted debug message.
func (cl *ConsoleLogger) Debugf(format string, args ...interface{}) {
	cl.logWithLevel("DEBUG", fmt.Sprintf(format, args...))
}

// logWithLevel writes a message at the specified level if filtering allows it.
func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil {
		return
	}
	if !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	if cl.colorOutput {
		fmt.Fprint(cl.writer, cl.formatWithColor(ts, level, message))
		return
	}
	fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", ts, level, message)
}

// formatWithColor formats a log message with ANSI color codes.
func (cl *ConsoleLogger) formatWithColor(ts, level, message string) string {
	var coloredLevel string

	switch strings.ToUpper(level) {
	case "TRACE":
		coloredLevel = color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		coloredLevel = color.New(color.FgCyan).Sprint(level)
	case "INFO":
		coloredLevel = color.New(color.FgBlue).Sprint(level)
	case "WARN":
		coloredLevel = color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		coloredLevel = color.New(color.FgRed).Sprint(level)
	default:
		coloredLevel = level
	}

	return fmt.Sprintf("[%s] [%s] %s\n", ts, coloredLevel, message)
}

// LogScanStart logs the root, pattern and scheduling of a run at INFO level.
// Format: "[HH:MM:SS] [INFO] Scanning <root> for "<pattern>" (<strategy>, <n> workers)"
func (cl *ConsoleLogger) LogScanStart(summary models.RunSummary) {
	root := summary.Root
	if cl.colorOutput {
		root = color.New(color.Bold).Sprint(root)
	}
	cl.logWithLevel("INFO", fmt.Sprintf("Scanning %s for %q (%s, %d workers)",
		root, summary.Pattern, summary.Strategy, summary.Workers))
}

// LogFileError writes "<path>: <error>" on its own line, whatever the level.
func (cl *ConsoleLogger) LogFileError(err *scan.FileError) {
	if cl.writer == nil || err == nil {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	if cl.colorOutput {
		fmt.Fprintf(cl.writer, "%s: %v\n", color.New(color.FgRed).Sprint(err.Path), err.Err)
		return
	}
	fmt.Fprintln(cl.writer, err.Error())
}

// LogScanComplete logs the run summary at INFO level.
func (cl *ConsoleLogger) LogScanComplete(summary models.RunSummary) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	scheme := newColorScheme(cl.colorOutput)

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] === Scan Summary ===\n", ts)
	fmt.Fprintf(&b, "[%s] %s\n", ts, scheme.metric("Files scanned", summary.FilesScanned, scheme.success))
	failColor := scheme.value
	if summary.FilesFailed > 0 {
		failColor = scheme.fail
	}
	fmt.Fprintf(&b, "[%s] %s\n", ts, scheme.metric("Files failed", summary.FilesFailed, failColor))
	fmt.Fprintf(&b, "[%s] %s\n", ts, scheme.metric("Total matches", summary.TotalMatches, scheme.value))
	fmt.Fprintf(&b, "[%s] %s\n", ts, scheme.metric("Duration", formatDuration(summary.Duration), scheme.value))

	io.WriteString(cl.writer, b.String())
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "250ms", "5s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		remainder := d % time.Hour
		if remainder == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		minutes := remainder / time.Minute
		remainder = remainder % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case d >= time.Minute:
		minutes := d / time.Minute
		remainder := d % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	}
}

// NoOpLogger discards all log messages.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

// LogScanStart is a no-op implementation.
func (n *NoOpLogger) LogScanStart(models.RunSummary) {}

// LogFileError is a no-op implementation.
func (n *NoOpLogger) LogFileError(*scan.FileError) {}

// LogScanComplete is a no-op implementation.
func (n *NoOpLogger) LogScanComplete(models.RunSummary) {}

// Warnf is a no-op implementation.
func (n *NoOpLogger) Warnf(format string, args ...interface{}) {}

// Debugf is a no-op implementation.
func (n *NoOpLogger) Debugf(format string, args ...interface{}) {}
