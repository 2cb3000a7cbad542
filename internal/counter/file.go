package counter

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-git/go-billy/v5"
)

// BufferSize is the default capacity of the per-file read buffer.
const BufferSize = 8192

var (
	// ErrEmptyPattern is returned when a Scanner is built without a pattern.
	ErrEmptyPattern = errors.New("pattern must not be empty")
	// ErrBufferTooSmall is returned when the buffer cannot hold one whole pattern.
	ErrBufferTooSmall = errors.New("buffer size must be at least the pattern length")
)

// IOError reports a failed stat, open, seek or read on a scanned file.
type IOError struct {
	Path string // Path as given to CountInFile
	Op   string // "stat", "open", "seek" or "read"
	Err  error  // Underlying filesystem error
}

// Error implements the error interface for IOError.
func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying filesystem error.
func (e *IOError) Unwrap() error {
	return e.Err
}

// Scanner counts pattern occurrences in files of a billy.Filesystem.
// A Scanner is safe for concurrent use; every CountInFile call owns its buffer.
type Scanner struct {
	fs         billy.Filesystem
	pattern    []byte
	bufferSize int
}

// NewScanner creates a Scanner for pattern over fs.
// A bufferSize of 0 selects BufferSize.
func NewScanner(fs billy.Filesystem, pattern []byte, bufferSize int) (*Scanner, error) {
	if fs == nil {
		return nil, fmt.Errorf("filesystem is required")
	}
	if len(pattern) == 0 {
		return nil, ErrEmptyPattern
	}
	if bufferSize == 0 {
		bufferSize = BufferSize
	}
	if bufferSize < len(pattern) {
		return nil, fmt.Errorf("%w: buffer %d, pattern %d", ErrBufferTooSmall, bufferSize, len(pattern))
	}

	// Keep a private copy so callers cannot mutate the pattern mid-run.
	p := make([]byte, len(pattern))
	copy(p, pattern)

	return &Scanner{
		fs:         fs,
		pattern:    p,
		bufferSize: bufferSize,
	}, nil
}

// Pattern returns the pattern the Scanner counts.
func (s *Scanner) Pattern() []byte {
	return s.pattern
}

// BufferSize returns the per-file buffer capacity.
func (s *Scanner) BufferSize() int {
	return s.bufferSize
}

// CountInFile returns the number of non-overlapping occurrences of the
// pattern in the file at path.
//
// The file is read in chunks of BufferSize bytes. Before each refill the
// cursor is moved back over the bytes that could still start a match, so a
// match crossing a chunk boundary is counted exactly once.
func (s *Scanner) CountInFile(ctx context.Context, path string) (int, error) {
	info, err := s.fs.Stat(path)
	if err != nil {
		return 0, &IOError{Path: path, Op: "stat", Err: err}
	}
	filesize := info.Size()

	f, err := s.fs.Open(path)
	if err != nil {
		return 0, &IOError{Path: path, Op: "open", Err: err}
	}
	defer f.Close()

	buf := make([]byte, s.bufferSize)
	total := 0
	var offset int64

	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return 0, &IOError{Path: path, Op: "seek", Err: err}
		}

		n, err := io.ReadFull(f, buf)
		lastChunk := false
		switch {
		case errors.Is(err, io.EOF):
			return total, nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			lastChunk = true
		case err != nil:
			return 0, &IOError{Path: path, Op: "read", Err: err}
		}

		count, lastMatchStart := CountInChunk(buf[:n], s.pattern)
		total += count
		if lastChunk {
			return total, nil
		}

		offset += int64(n - s.rewind(n, count, lastMatchStart))
		if offset > filesize {
			return total, nil
		}
	}
}

// rewind returns how many trailing bytes of an n-byte chunk the next read
// must cover again. It never reaches back into the last counted match and
// never exceeds len(pattern)-1, so the cursor always advances.
func (s *Scanner) rewind(n, count, lastMatchStart int) int {
	tail := n
	if count > 0 {
		tail = n - (lastMatchStart + len(s.pattern))
	}
	return min(len(s.pattern)-1, tail)
}
