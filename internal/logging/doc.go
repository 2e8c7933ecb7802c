// Package logging provides the process-wide structured logger built on
// log/slog.
//
// Call Init once at startup with a Config, or rely on GetLogger, which falls
// back to a text handler at INFO on stderr. Context helpers such as WithRun
// attach the identifiers the engine and job runner log with.
package logging
