package logger

import (
	"github.com/harrison/substrcount/internal/models"
	"github.com/harrison/substrcount/internal/scan"
)

// Multi forwards every event to each of its loggers in order.
type Multi []scan.Logger

// NewMulti returns a Multi over the non-nil loggers.
func NewMulti(loggers ...scan.Logger) Multi {
	m := make(Multi, 0, len(loggers))
	for _, l := range loggers {
		if l != nil {
			m = append(m, l)
		}
	}
	return m
}

func (m Multi) LogScanStart(summary models.RunSummary) {
	for _, l := range m {
		l.LogScanStart(summary)
	}
}

func (m Multi) LogFileError(err *scan.FileError) {
	for _, l := range m {
		l.LogFileError(err)
	}
}

func (m Multi) LogScanComplete(summary models.RunSummary) {
	for _, l := range m {
		l.LogScanComplete(summary)
	}
}

func (m Multi) Warnf(format string, args ...interface{}) {
	for _, l := range m {
		l.Warnf(format, args...)
	}
}

func (m Multi) Debugf(format string, args ...interface{}) {
	for _, l := range m {
		l.Debugf(format, args...)
	}
}
