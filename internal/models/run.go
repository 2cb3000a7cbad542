package models

import "time"

// Scan failure phases
const (
	PhaseEnumerate = "enumerate" // Directory entry could not be read
	PhaseIO        = "io"        // Open, seek or read failed on a discovered file
	PhaseDispatch  = "dispatch"  // Scan task failed to deliver a result
	PhaseEncode    = "encode"    // Path cannot be written as a report key
)

// FileFailure records a path excluded from a report.
type FileFailure struct {
	Path    string // Path as it would appear in the report
	Phase   string // One of the Phase* constants
	Message string // Error message written to the operator
}

// RunSummary describes one scan run.
type RunSummary struct {
	RunID        string        // Unique run identifier (UUID)
	Root         string        // Scanned root directory
	Pattern      string        // Substring that was counted
	Strategy     string        // Scheduler backend name
	Workers      int           // Parallelism used
	StartedAt    time.Time     // When scanning began
	Duration     time.Duration // Wall time of the scan
	FilesScanned int           // Files present in the report
	FilesFailed  int           // Files excluded because of errors
	TotalMatches int           // Sum of all counts
	Failures     []FileFailure // Per-path failures
}
