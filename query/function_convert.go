package query

import (
	"github.com/vegasq/lazytab/frame"
)

// Conversion and conditional functions

// ToStringFunc renders any value as text
type ToStringFunc struct{}

func (f *ToStringFunc) Name() string  { return "to_string" }
func (f *ToStringFunc) MinArity() int { return 1 }
func (f *ToStringFunc) MaxArity() int { return 1 }
func (f *ToStringFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	return frame.Utf8, nil
}
func (f *ToStringFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	if anyNull(args) {
		return frame.Value{}, nil
	}
	return frame.Str(valueToString(args[0])), nil
}

// ToNumberFunc converts to Float64. Unparsable input yields null.
type ToNumberFunc struct{}

func (f *ToNumberFunc) Name() string  { return "to_number" }
func (f *ToNumberFunc) MinArity() int { return 1 }
func (f *ToNumberFunc) MaxArity() int { return 1 }
func (f *ToNumberFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	return frame.Float64, nil
}
func (f *ToNumberFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	return frame.CastValue(args[0], frame.Float64, false)
}

// ToDateFunc converts to Date. Unparsable input yields null.
type ToDateFunc struct{}

func (f *ToDateFunc) Name() string  { return "to_date" }
func (f *ToDateFunc) MinArity() int { return 1 }
func (f *ToDateFunc) MaxArity() int { return 1 }
func (f *ToDateFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	return frame.Date, nil
}
func (f *ToDateFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	return frame.CastValue(args[0], frame.Date, false)
}

// CoalesceFunc returns the first non-null argument
type CoalesceFunc struct{}

func (f *CoalesceFunc) Name() string  { return "coalesce" }
func (f *CoalesceFunc) MinArity() int { return 1 }
func (f *CoalesceFunc) MaxArity() int { return -1 }
func (f *CoalesceFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	return extremeType(args)
}
func (f *CoalesceFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	for _, a := range args {
		if a.Valid {
			return a, nil
		}
	}
	return frame.Value{}, nil
}

// NullIfFunc returns null when both arguments are equal, else the first
type NullIfFunc struct{}

func (f *NullIfFunc) Name() string  { return "nullif" }
func (f *NullIfFunc) MinArity() int { return 2 }
func (f *NullIfFunc) MaxArity() int { return 2 }
func (f *NullIfFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	if _, err := unifyTypes(args[0], args[1]); err != nil {
		return frame.Unknown, err
	}
	return args[0], nil
}
func (f *NullIfFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	if args[0].Valid && args[1].Valid && frame.CompareValues(args[0], args[1]) == 0 {
		return frame.Value{}, nil
	}
	return args[0], nil
}
