package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/MeKo-Tech/census-contrib/internal/embedding"
)

// Config represents the complete configuration for the census-contrib tool.
// It supports loading from configuration files, environment variables and
// command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  int    `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Ingest settings shared by all embedding sources
	Ingest IngestConfig `mapstructure:"ingest" yaml:"ingest" json:"ingest"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`
}

// IngestConfig contains embedding ingest settings.
type IngestConfig struct {
	BlockSize   int    `mapstructure:"block_size" yaml:"block_size" json:"block_size"`
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file" json:"metrics_file"`
	Seed        uint64 `mapstructure:"seed" yaml:"seed" json:"seed"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// Valid values for enumerated settings.
var (
	ValidLogLevels     = []string{"debug", "info", "warn", "error"}
	ValidOutputFormats = []string{"text", "json", "yaml"}
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Verbose:  0,
		Ingest: IngestConfig{
			BlockSize: embedding.DefaultBlockSize,
			Seed:      0,
		},
		Output: OutputConfig{
			Format: "text",
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if !contains(ValidLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(ValidLogLevels, ", "))
	}
	if c.Verbose < 0 {
		return fmt.Errorf("invalid verbose level: %d (must not be negative)", c.Verbose)
	}
	if c.Output.Format != "" && !contains(ValidOutputFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)",
			c.Output.Format, strings.Join(ValidOutputFormats, ", "))
	}
	if c.Ingest.BlockSize <= 0 {
		return fmt.Errorf("invalid ingest block size: %d (must be positive)", c.Ingest.BlockSize)
	}
	return nil
}

// SlogLevel resolves the effective log level. Each -v lowers the threshold
// below the configured level: one reaches at least info, two reach debug.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	switch c.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	switch {
	case c.Verbose >= 2:
		return slog.LevelDebug
	case c.Verbose == 1:
		return min(level, slog.LevelInfo)
	}
	return level
}
