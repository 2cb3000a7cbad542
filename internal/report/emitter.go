// Package report serializes a scan report as JSON or YAML to a stream or
// to a locked, atomically replaced file.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/harrison/substrcount/internal/filelock"
	"github.com/harrison/substrcount/internal/models"
	"gopkg.in/yaml.v3"
)

// Format is a report encoding.
type Format string

// Supported formats
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name. The empty string selects JSON.
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatYAML:
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q, must be one of: json, yaml", name)
	}
}

// Options controls encoding.
type Options struct {
	Format Format
	Sort   bool // Order keys lexically instead of by completion
}

// Marshal renders r completely in memory. Nothing is returned on error so
// a failed encode never leaves a partial report behind.
func Marshal(r *models.Report, opts Options) ([]byte, error) {
	if r == nil {
		r = models.NewReport()
	}
	if opts.Sort {
		r = r.Sorted()
	}

	switch opts.Format {
	case "", FormatJSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode report as json: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		return marshalYAML(r)
	default:
		return nil, fmt.Errorf("unknown format %q", opts.Format)
	}
}

// marshalYAML emits an ordered mapping; a plain map would be re-sorted by
// the encoder.
func marshalYAML(r *models.Report) ([]byte, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if r.Len() == 0 {
		node.Style = yaml.FlowStyle
	}
	for _, path := range r.Paths() {
		if !utf8.ValidString(path) {
			return nil, fmt.Errorf("failed to encode report as yaml: %w: %q", models.ErrInvalidKey, path)
		}
		count, _ := r.Get(path)
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: path},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(count)},
		)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return nil, fmt.Errorf("failed to encode report as yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode report as yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// Write encodes r and writes it to w in one call.
func Write(w io.Writer, r *models.Report, opts Options) error {
	data, err := Marshal(r, opts)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// WriteFile replaces path with the encoded report while holding path+".lock".
func WriteFile(ctx context.Context, path string, r *models.Report, opts Options) error {
	data, err := Marshal(r, opts)
	if err != nil {
		return err
	}
	return filelock.LockAndWrite(ctx, path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
