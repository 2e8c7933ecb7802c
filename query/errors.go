package query

import (
	"errors"

	"github.com/vegasq/lazytab/frame"
)

// Column store error kinds, re-exported so callers only need this package.
var (
	ErrUnknownColumn  = frame.ErrUnknownColumn
	ErrTypeMismatch   = frame.ErrTypeMismatch
	ErrSchemaMismatch = frame.ErrSchemaMismatch
	ErrLengthMismatch = frame.ErrLengthMismatch
)

var (
	// ErrInvalidAggregateContext is returned when an aggregate is evaluated
	// outside a group-by or frame aggregation, or a window inside one.
	ErrInvalidAggregateContext = errors.New("aggregate used outside an aggregation context")

	// ErrEmptyGroupQuantile is returned when a quantile is requested over a
	// group without non-null values.
	ErrEmptyGroupQuantile = errors.New("quantile of a group with no values")

	// ErrNotAggregated is returned when a group-by output references a
	// column that is neither a key nor inside an aggregate.
	ErrNotAggregated = errors.New("column is not aggregated")

	// ErrInvalidJoin is returned for malformed join specifications.
	ErrInvalidJoin = errors.New("invalid join")

	// ErrInvalidPlan is returned for malformed plan parameters.
	ErrInvalidPlan = errors.New("invalid plan")
)
