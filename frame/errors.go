package frame

import "errors"

// Error kinds reported by the column store. They are wrapped with context, so
// callers should match them with errors.Is.
var (
	// ErrUnknownColumn is returned when a referenced column is not in the schema.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrTypeMismatch is returned when an operation is applied to an
	// incompatible logical type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrSchemaMismatch is returned when tables that must share a schema do not.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrLengthMismatch is returned when columns of different lengths are combined.
	ErrLengthMismatch = errors.New("length mismatch")
)
