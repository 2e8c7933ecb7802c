package logging

import "log/slog"

// WithRun returns a logger tagged with a plan execution id.
//
// Example:
//
//	log := logging.WithRun(runID)
//	log.Debug("operator done", "op", "filter", "rows_out", n)
func WithRun(runID string) *slog.Logger {
	return GetLogger().With("run_id", runID)
}

// WithPipeline returns a logger tagged with a job pipeline name
func WithPipeline(name string) *slog.Logger {
	return GetLogger().With("pipeline", name)
}

// WithSource returns a logger tagged with a data source
func WithSource(source string) *slog.Logger {
	return GetLogger().With("source", source)
}
