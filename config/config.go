// Package config loads engine, logging and output settings from YAML.
//
// Settings resolve in order: built-in defaults, the YAML file, then
// LAZYTAB_* environment variables. Apply pushes the engine settings into the
// frame and query packages.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vegasq/lazytab/frame"
	"github.com/vegasq/lazytab/internal/logging"
	"github.com/vegasq/lazytab/output"
	"github.com/vegasq/lazytab/query"
)

// Config is the complete configuration
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Logging LoggingConfig `yaml:"logging"`
	Output  OutputConfig  `yaml:"output"`
}

// EngineConfig tunes query execution
type EngineConfig struct {
	// Workers bounds parallel column maps and concurrent collects; 0 means
	// one per CPU.
	Workers int `yaml:"workers"`
	// ParallelMinRows is the column length from which maps are partitioned.
	ParallelMinRows int    `yaml:"parallel_min_rows"`
	JoinSuffix      string `yaml:"join_suffix"`
}

// LoggingConfig configures the process logger
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
	Output string `yaml:"output"` // empty for stderr, or a file path
}

// OutputConfig holds result printing defaults
type OutputConfig struct {
	Format string `yaml:"format"`
	// Limit caps the rows printed by the table format; 0 prints all.
	Limit int `yaml:"limit"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Workers:         0,
			ParallelMinRows: 1 << 16,
			JoinSuffix:      "_right",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Output: OutputConfig{
			Format: output.FormatTable,
			Limit:  25,
		},
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		if err := c.LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	if err := c.LoadFromEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

// LoadFromFile merges a YAML file into c. Keys missing from the file keep
// their current values; unknown keys are rejected.
func (c *Config) LoadFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv applies LAZYTAB_* environment variables
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("LAZYTAB_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LAZYTAB_WORKERS: %w", err)
		}
		c.Engine.Workers = n
	}
	if v := os.Getenv("LAZYTAB_PARALLEL_MIN_ROWS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LAZYTAB_PARALLEL_MIN_ROWS: %w", err)
		}
		c.Engine.ParallelMinRows = n
	}
	if v := os.Getenv("LAZYTAB_JOIN_SUFFIX"); v != "" {
		c.Engine.JoinSuffix = v
	}
	if v := os.Getenv("LAZYTAB_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LAZYTAB_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("LAZYTAB_LOG_OUTPUT"); v != "" {
		c.Logging.Output = v
	}
	if v := os.Getenv("LAZYTAB_OUTPUT_FORMAT"); v != "" {
		c.Output.Format = v
	}
	return nil
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.Engine.Workers < 0 {
		return fmt.Errorf("engine.workers must not be negative, got %d", c.Engine.Workers)
	}
	if c.Engine.ParallelMinRows < 0 {
		return fmt.Errorf("engine.parallel_min_rows must not be negative, got %d", c.Engine.ParallelMinRows)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	if _, err := output.New(c.Output.Format, nil); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	if c.Output.Limit < 0 {
		return fmt.Errorf("output.limit must not be negative, got %d", c.Output.Limit)
	}
	return nil
}

// Apply installs the engine settings process-wide
func (c *Config) Apply() {
	frame.SetParallelism(c.Engine.Workers, c.Engine.ParallelMinRows)
	query.SetDefaultJoinSuffix(c.Engine.JoinSuffix)
}

// LoggerConfig converts the logging section for logging.Init. The level
// must already be valid.
func (c *Config) LoggerConfig() logging.Config {
	level, _ := logging.ParseLevel(c.Logging.Level)
	return logging.Config{
		Level:      level,
		OutputPath: c.Logging.Output,
		Format:     strings.ToLower(c.Logging.Format),
	}
}
