package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/lazytab/frame"
	"github.com/vegasq/lazytab/internal/logging"
	"github.com/vegasq/lazytab/query"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lazytab.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, "_right", c.Engine.JoinSuffix)
	assert.Equal(t, "table", c.Output.Format)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
engine:
  workers: 3
  join_suffix: _r
logging:
  level: debug
  format: json
output:
  format: csv
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, c.Engine.Workers)
	assert.Equal(t, 1<<16, c.Engine.ParallelMinRows, "missing keys keep defaults")
	assert.Equal(t, "_r", c.Engine.JoinSuffix)
	assert.Equal(t, "csv", c.Output.Format)
	assert.Equal(t, 25, c.Output.Limit)
	assert.Equal(t, logging.Config{Level: logging.LevelDebug, Format: "json"}, c.LoggerConfig())
}

func TestLoadEmptyFileAndPath(t *testing.T) {
	c, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)

	c, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LAZYTAB_WORKERS", "2")
	t.Setenv("LAZYTAB_LOG_LEVEL", "warn")
	t.Setenv("LAZYTAB_OUTPUT_FORMAT", "json")

	c, err := Load(writeConfig(t, "engine:\n  workers: 8\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Engine.Workers, "environment wins over the file")
	assert.Equal(t, "warn", c.Logging.Level)
	assert.Equal(t, "json", c.Output.Format)

	t.Setenv("LAZYTAB_WORKERS", "many")
	_, err = Load("")
	assert.ErrorContains(t, err, "LAZYTAB_WORKERS")
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad yaml", "engine: [", "failed to parse config file"},
		{"unknown key", "engine:\n  threads: 2\n", "failed to parse config file"},
		{"negative workers", "engine:\n  workers: -1\n", "engine.workers"},
		{"bad level", "logging:\n  level: loud\n", "logging.level"},
		{"bad log format", "logging:\n  format: xml\n", "logging.format"},
		{"bad output format", "output:\n  format: xlsx\n", "output.format"},
		{"negative limit", "output:\n  limit: -5\n", "output.limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.ErrorContains(t, err, tt.want)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestApply(t *testing.T) {
	workers, minRows := frame.Parallelism()
	suffix := query.DefaultJoinSuffix()
	t.Cleanup(func() {
		frame.SetParallelism(workers, minRows)
		query.SetDefaultJoinSuffix(suffix)
	})

	c := Default()
	c.Engine.Workers = 5
	c.Engine.ParallelMinRows = 10
	c.Engine.JoinSuffix = "_other"
	c.Apply()

	gotWorkers, gotMinRows := frame.Parallelism()
	assert.Equal(t, 5, gotWorkers)
	assert.Equal(t, 10, gotMinRows)
	assert.Equal(t, "_other", query.DefaultJoinSuffix())
}
