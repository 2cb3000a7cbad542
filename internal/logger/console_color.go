package logger

import (
	"fmt"

	"github.com/fatih/color"
)

// colorScheme defines consistent colors for summary metrics.
// Green: success/positive metrics
// Red: failure/error metrics
// Cyan: labels
type colorScheme struct {
	enabled bool
	success *color.Color
	fail    *color.Color
	label   *color.Color
	value   *color.Color
}

// newColorScheme creates the standard color scheme. When enabled is false
// every metric renders as plain text.
func newColorScheme(enabled bool) *colorScheme {
	return &colorScheme{
		enabled: enabled,
		success: color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		label:   color.New(color.FgCyan),
		value:   color.New(color.FgWhite),
	}
}

// metric formats "label: value", coloring the label cyan and the value with c.
func (s *colorScheme) metric(label string, value interface{}, c *color.Color) string {
	if !s.enabled {
		return fmt.Sprintf("%s: %v", label, value)
	}
	return fmt.Sprintf("%s: %s", s.label.Sprint(label), c.Sprintf("%v", value))
}
