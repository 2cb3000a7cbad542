package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values
const (
	DefaultStrategy   = "pool"
	DefaultBatchSize  = 500
	DefaultBufferSize = 8192
	DefaultFormat     = "json"

	// DefaultLogLevel keeps stderr to per-file errors and warnings
	DefaultLogLevel = "warn"
)

// FilterConfig selects which files a scan visits
type FilterConfig struct {
	// ExcludeDirs lists directory base names never descended into
	ExcludeDirs []string `yaml:"exclude_dirs"`

	// Extensions restricts scanning to these file extensions (empty = all)
	Extensions []string `yaml:"extensions"`

	// NamePattern is a regexp matched against the file name without extension
	NamePattern string `yaml:"name_pattern"`

	// MaxDepth limits directory recursion (0 = unlimited)
	MaxDepth int `yaml:"max_depth"`

	// SkipHidden skips dot-files and dot-directories
	SkipHidden bool `yaml:"skip_hidden"`
}

// HistoryConfig represents run history configuration
type HistoryConfig struct {
	// Enabled records every completed scan in the history database
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the history database ("" = $SUBSTRCOUNT_HOME/history.db)
	DBPath string `yaml:"db_path"`
}

// Config represents substrcount configuration options
type Config struct {
	// Strategy selects the scheduler backend (pool, batch)
	Strategy string `yaml:"strategy"`

	// Workers is the number of concurrent scans (0 = available parallelism)
	Workers int `yaml:"workers"`

	// BatchSize is the number of files awaited together by the batch strategy
	BatchSize int `yaml:"batch_size"`

	// BufferSize is the per-file read buffer in bytes
	BufferSize int `yaml:"buffer_size"`

	// Timeout bounds the whole scan (0 = no timeout)
	Timeout time.Duration `yaml:"timeout"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir enables a per-run log file in this directory when set
	LogDir string `yaml:"log_dir"`

	// Format is the report encoding (json, yaml)
	Format string `yaml:"format"`

	// Sort orders report keys lexically instead of by completion
	Sort bool `yaml:"sort"`

	// Filters contains file selection options
	Filters FilterConfig `yaml:"filters"`

	// History contains run history configuration
	History HistoryConfig `yaml:"history"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Strategy:   DefaultStrategy,
		Workers:    0, // Available parallelism
		BatchSize:  DefaultBatchSize,
		BufferSize: DefaultBufferSize,
		Timeout:    0,
		LogLevel:   DefaultLogLevel,
		LogDir:     "",
		Format:     DefaultFormat,
		Sort:       false,
		History: HistoryConfig{
			Enabled: true,
		},
	}
}

// yamlConfig mirrors Config with pointer fields so keys present in the
// file can be told apart from zero values.
type yamlConfig struct {
	Strategy   *string `yaml:"strategy"`
	Workers    *int    `yaml:"workers"`
	BatchSize  *int    `yaml:"batch_size"`
	BufferSize *int    `yaml:"buffer_size"`
	Timeout    *string `yaml:"timeout"`
	LogLevel   *string `yaml:"log_level"`
	LogDir     *string `yaml:"log_dir"`
	Format     *string `yaml:"format"`
	Sort       *bool   `yaml:"sort"`
	Filters    *struct {
		ExcludeDirs []string `yaml:"exclude_dirs"`
		Extensions  []string `yaml:"extensions"`
		NamePattern *string  `yaml:"name_pattern"`
		MaxDepth    *int     `yaml:"max_depth"`
		SkipHidden  *bool    `yaml:"skip_hidden"`
	} `yaml:"filters"`
	History *struct {
		Enabled *bool   `yaml:"enabled"`
		DBPath  *string `yaml:"db_path"`
	} `yaml:"history"`
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yc.Strategy != nil {
		cfg.Strategy = *yc.Strategy
	}
	if yc.Workers != nil {
		cfg.Workers = *yc.Workers
	}
	if yc.BatchSize != nil {
		cfg.BatchSize = *yc.BatchSize
	}
	if yc.BufferSize != nil {
		cfg.BufferSize = *yc.BufferSize
	}
	if yc.Timeout != nil && *yc.Timeout != "" {
		timeout, err := time.ParseDuration(*yc.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", *yc.Timeout, err)
		}
		cfg.Timeout = timeout
	}
	if yc.LogLevel != nil {
		cfg.LogLevel = *yc.LogLevel
	}
	if yc.LogDir != nil {
		cfg.LogDir = *yc.LogDir
	}
	if yc.Format != nil {
		cfg.Format = *yc.Format
	}
	if yc.Sort != nil {
		cfg.Sort = *yc.Sort
	}

	if f := yc.Filters; f != nil {
		if f.ExcludeDirs != nil {
			cfg.Filters.ExcludeDirs = f.ExcludeDirs
		}
		if f.Extensions != nil {
			cfg.Filters.Extensions = f.Extensions
		}
		if f.NamePattern != nil {
			cfg.Filters.NamePattern = *f.NamePattern
		}
		if f.MaxDepth != nil {
			cfg.Filters.MaxDepth = *f.MaxDepth
		}
		if f.SkipHidden != nil {
			cfg.Filters.SkipHidden = *f.SkipHidden
		}
	}

	if h := yc.History; h != nil {
		if h.Enabled != nil {
			cfg.History.Enabled = *h.Enabled
		}
		if h.DBPath != nil {
			cfg.History.DBPath = *h.DBPath
		}
	}

	return cfg, nil
}

// FlagOverrides carries CLI flag values. Nil fields were not set on the
// command line and leave the configuration untouched.
type FlagOverrides struct {
	Strategy    *string
	Workers     *int
	BatchSize   *int
	BufferSize  *int
	Timeout     *time.Duration
	LogLevel    *string
	LogDir      *string
	Format      *string
	Sort        *bool
	ExcludeDirs []string
	Extensions  []string
	NamePattern *string
	MaxDepth    *int
	SkipHidden  *bool
	NoHistory   *bool
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(f FlagOverrides) {
	if f.Strategy != nil {
		c.Strategy = *f.Strategy
	}
	if f.Workers != nil {
		c.Workers = *f.Workers
	}
	if f.BatchSize != nil {
		c.BatchSize = *f.BatchSize
	}
	if f.BufferSize != nil {
		c.BufferSize = *f.BufferSize
	}
	if f.Timeout != nil {
		c.Timeout = *f.Timeout
	}
	if f.LogLevel != nil {
		c.LogLevel = *f.LogLevel
	}
	if f.LogDir != nil {
		c.LogDir = *f.LogDir
	}
	if f.Format != nil {
		c.Format = *f.Format
	}
	if f.Sort != nil {
		c.Sort = *f.Sort
	}
	if f.ExcludeDirs != nil {
		c.Filters.ExcludeDirs = f.ExcludeDirs
	}
	if f.Extensions != nil {
		c.Filters.Extensions = f.Extensions
	}
	if f.NamePattern != nil {
		c.Filters.NamePattern = *f.NamePattern
	}
	if f.MaxDepth != nil {
		c.Filters.MaxDepth = *f.MaxDepth
	}
	if f.SkipHidden != nil {
		c.Filters.SkipHidden = *f.SkipHidden
	}
	if f.NoHistory != nil && *f.NoHistory {
		c.History.Enabled = false
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	switch c.Strategy {
	case "pool", "batch":
	default:
		return fmt.Errorf("invalid strategy %q, must be one of: pool, batch", c.Strategy)
	}

	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("batch_size must be >= 0, got %d", c.BatchSize)
	}
	if c.BufferSize < 0 {
		return fmt.Errorf("buffer_size must be >= 0, got %d", c.BufferSize)
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	// Timeout can be 0 (no timeout) or positive, negative is invalid
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}

	switch c.Format {
	case "json", "yaml":
	default:
		return fmt.Errorf("invalid format %q, must be one of: json, yaml", c.Format)
	}

	if c.Filters.MaxDepth < 0 {
		return fmt.Errorf("filters.max_depth must be >= 0, got %d", c.Filters.MaxDepth)
	}
	if c.Filters.NamePattern != "" {
		if _, err := regexp.Compile(c.Filters.NamePattern); err != nil {
			return fmt.Errorf("invalid filters.name_pattern %q: %w", c.Filters.NamePattern, err)
		}
	}

	return nil
}
