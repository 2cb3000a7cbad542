package scan

import (
	"fmt"
	"time"
)

// FileError is a non-fatal failure tied to one path. The path is left out
// of the report and the run continues.
type FileError struct {
	Path      string    // Path as it would appear in the report
	Phase     string    // One of the models.Phase* constants
	Err       error     // Underlying error
	Timestamp time.Time // When the failure was recorded
}

// NewFileError creates a new FileError with the current timestamp.
func NewFileError(path, phase string, err error) *FileError {
	return &FileError{
		Path:      path,
		Phase:     phase,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface for FileError.
// The format is "<path>: <error message>".
func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error for error wrapping support.
func (e *FileError) Unwrap() error {
	return e.Err
}

// PanicError is produced when a scan task panics instead of returning.
type PanicError struct {
	Value interface{}
}

// Error implements the error interface for PanicError.
func (e *PanicError) Error() string {
	return fmt.Sprintf("scan task panicked: %v", e.Value)
}
