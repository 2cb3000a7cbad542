package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"unicode/utf8"
)

// ErrInvalidKey is returned when a report path is not valid UTF-8. Encoders
// would replace the bad bytes with U+FFFD and merge distinct paths.
var ErrInvalidKey = errors.New("path is not valid UTF-8")

// Report maps file paths to match counts and remembers the order in which
// paths were first added.
//
// A Report is not safe for concurrent mutation. During a scan it is owned
// by a single aggregator goroutine and handed off once the scan returns.
type Report struct {
	paths  []string
	counts map[string]int
}

// NewReport returns an empty Report.
func NewReport() *Report {
	return &Report{
		paths:  make([]string, 0),
		counts: make(map[string]int),
	}
}

// Put records count for path. An existing entry is replaced in place.
func (r *Report) Put(path string, count int) {
	if _, exists := r.counts[path]; !exists {
		r.paths = append(r.paths, path)
	}
	r.counts[path] = count
}

// Get returns the count for path and whether it is present.
func (r *Report) Get(path string) (int, bool) {
	count, ok := r.counts[path]
	return count, ok
}

// Len returns the number of paths in the report.
func (r *Report) Len() int {
	return len(r.paths)
}

// Paths returns the paths in insertion order.
func (r *Report) Paths() []string {
	out := make([]string, len(r.paths))
	copy(out, r.paths)
	return out
}

// Counts returns a copy of the path to count mapping.
func (r *Report) Counts() map[string]int {
	out := make(map[string]int, len(r.counts))
	for path, count := range r.counts {
		out[path] = count
	}
	return out
}

// Total returns the sum of all counts.
func (r *Report) Total() int {
	total := 0
	for _, count := range r.counts {
		total += count
	}
	return total
}

// Sorted returns a copy of the report with paths in lexical order.
func (r *Report) Sorted() *Report {
	paths := r.Paths()
	sort.Strings(paths)

	out := &Report{
		paths:  paths,
		counts: r.Counts(),
	}
	return out
}

// MarshalJSON encodes the report as a JSON object with keys in report order.
// A key that is not valid UTF-8 fails with ErrInvalidKey.
func (r *Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, path := range r.paths {
		if i > 0 {
			buf.WriteByte(',')
		}
		if !utf8.ValidString(path) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidKey, path)
		}
		key, err := json.Marshal(path)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(r.counts[path]))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of path to count, keeping key order.
func (r *Report) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	out := NewReport()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("report must be a JSON object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		path, ok := tok.(string)
		if !ok {
			return fmt.Errorf("report key must be a string, got %v", tok)
		}

		var count int
		if err := dec.Decode(&count); err != nil {
			return err
		}
		out.Put(path, count)
	}
	if _, err := dec.Token(); err != nil { // closing brace
		return err
	}

	*r = *out
	return nil
}
