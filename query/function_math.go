package query

import (
	"math"

	"github.com/vegasq/lazytab/frame"
)

// Math Functions
//
// Integer inputs keep Int64 where the result is integral (abs, floor, ceil,
// trunc, round without decimals, mod of two integers); everything else is
// Float64. Null arguments yield null.

func numericResult(name string, args []frame.DataType) error {
	return expectTypes(name, args, "numeric", isNumeric)
}

// sameNumeric returns Int64 for an integer argument and Float64 otherwise
func sameNumeric(name string, args []frame.DataType) (frame.DataType, error) {
	if err := numericResult(name, args); err != nil {
		return frame.Unknown, err
	}
	if args[0] == frame.Int64 {
		return frame.Int64, nil
	}
	return frame.Float64, nil
}

// numericUnary applies an integer or float function to a single argument
func numericUnary(args []frame.Value, onInt func(int64) int64, onFloat func(float64) float64) (frame.Value, error) {
	if anyNull(args) {
		return frame.Value{}, nil
	}
	if args[0].Type == frame.Int64 && onInt != nil {
		return frame.Int(onInt(args[0].Int64())), nil
	}
	f, _ := args[0].AsFloat64()
	return frame.Float(onFloat(f)), nil
}

func identity(v int64) int64 { return v }

// AbsFunc returns the absolute value
type AbsFunc struct{}

func (f *AbsFunc) Name() string  { return "abs" }
func (f *AbsFunc) MinArity() int { return 1 }
func (f *AbsFunc) MaxArity() int { return 1 }
func (f *AbsFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	return sameNumeric(f.Name(), args)
}
func (f *AbsFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	return numericUnary(args, func(v int64) int64 {
		if v < 0 {
			return -v
		}
		return v
	}, math.Abs)
}

// RoundFunc rounds half away from zero, optionally to a number of decimals
type RoundFunc struct{}

func (f *RoundFunc) Name() string  { return "round" }
func (f *RoundFunc) MinArity() int { return 1 }
func (f *RoundFunc) MaxArity() int { return 2 }
func (f *RoundFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	if err := numericResult(f.Name(), args[:1]); err != nil {
		return frame.Unknown, err
	}
	if err := expectTypes(f.Name(), args[1:], "an integer", isInteger); err != nil {
		return frame.Unknown, err
	}
	if args[0] == frame.Int64 && len(args) == 1 {
		return frame.Int64, nil
	}
	return frame.Float64, nil
}
func (f *RoundFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	if anyNull(args) {
		return frame.Value{}, nil
	}
	if len(args) == 1 {
		return numericUnary(args, identity, math.Round)
	}
	num, _ := args[0].AsFloat64()
	multiplier := math.Pow(10, float64(args[1].Int64()))
	return frame.Float(math.Round(num*multiplier) / multiplier), nil
}

// FloorFunc returns the largest integer less than or equal to a number
type FloorFunc struct{}

func (f *FloorFunc) Name() string  { return "floor" }
func (f *FloorFunc) MinArity() int { return 1 }
func (f *FloorFunc) MaxArity() int { return 1 }
func (f *FloorFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	return sameNumeric(f.Name(), args)
}
func (f *FloorFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	return numericUnary(args, identity, math.Floor)
}

// CeilFunc returns the smallest integer greater than or equal to a number
type CeilFunc struct{}

func (f *CeilFunc) Name() string  { return "ceil" }
func (f *CeilFunc) MinArity() int { return 1 }
func (f *CeilFunc) MaxArity() int { return 1 }
func (f *CeilFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	return sameNumeric(f.Name(), args)
}
func (f *CeilFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	return numericUnary(args, identity, math.Ceil)
}

// TruncFunc truncates toward zero
type TruncFunc struct{}

func (f *TruncFunc) Name() string  { return "trunc" }
func (f *TruncFunc) MinArity() int { return 1 }
func (f *TruncFunc) MaxArity() int { return 1 }
func (f *TruncFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	return sameNumeric(f.Name(), args)
}
func (f *TruncFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	return numericUnary(args, identity, math.Trunc)
}

// SqrtFunc returns the square root; negative input yields NaN
type SqrtFunc struct{}

func (f *SqrtFunc) Name() string  { return "sqrt" }
func (f *SqrtFunc) MinArity() int { return 1 }
func (f *SqrtFunc) MaxArity() int { return 1 }
func (f *SqrtFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	return frame.Float64, numericResult(f.Name(), args)
}
func (f *SqrtFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	return numericUnary(args, nil, math.Sqrt)
}

// PowFunc raises a base to an exponent
type PowFunc struct{}

func (f *PowFunc) Name() string  { return "pow" }
func (f *PowFunc) MinArity() int { return 2 }
func (f *PowFunc) MaxArity() int { return 2 }
func (f *PowFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	return frame.Float64, numericResult(f.Name(), args)
}
func (f *PowFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	if anyNull(args) {
		return frame.Value{}, nil
	}
	base, _ := args[0].AsFloat64()
	exp, _ := args[1].AsFloat64()
	return frame.Float(math.Pow(base, exp)), nil
}

// ModFunc returns the remainder of a division, with the sign of the
// dividend. A zero divisor yields null.
type ModFunc struct{}

func (f *ModFunc) Name() string  { return "mod" }
func (f *ModFunc) MinArity() int { return 2 }
func (f *ModFunc) MaxArity() int { return 2 }
func (f *ModFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	if err := numericResult(f.Name(), args); err != nil {
		return frame.Unknown, err
	}
	if args[0] == frame.Int64 && args[1] == frame.Int64 {
		return frame.Int64, nil
	}
	return frame.Float64, nil
}
func (f *ModFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	if anyNull(args) {
		return frame.Value{}, nil
	}
	if args[0].Type == frame.Int64 && args[1].Type == frame.Int64 {
		if args[1].Int64() == 0 {
			return frame.Value{}, nil
		}
		return frame.Int(args[0].Int64() % args[1].Int64()), nil
	}
	dividend, _ := args[0].AsFloat64()
	divisor, _ := args[1].AsFloat64()
	if divisor == 0 {
		return frame.Value{}, nil
	}
	return frame.Float(math.Mod(dividend, divisor)), nil
}

// SignFunc returns -1, 0 or 1
type SignFunc struct{}

func (f *SignFunc) Name() string  { return "sign" }
func (f *SignFunc) MinArity() int { return 1 }
func (f *SignFunc) MaxArity() int { return 1 }
func (f *SignFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	return frame.Int64, numericResult(f.Name(), args)
}
func (f *SignFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	if anyNull(args) {
		return frame.Value{}, nil
	}
	num, _ := args[0].AsFloat64()
	switch {
	case num < 0:
		return frame.Int(-1), nil
	case num > 0:
		return frame.Int(1), nil
	}
	return frame.Int(0), nil
}

// extremeType unifies the argument types of greatest and least
func extremeType(args []frame.DataType) (frame.DataType, error) {
	t := frame.Unknown
	for _, a := range args {
		var err error
		if t, err = unifyTypes(t, a); err != nil {
			return frame.Unknown, err
		}
	}
	return t, nil
}

// extreme picks the largest (sign 1) or smallest (sign -1) non-null value
func extreme(args []frame.Value, sign int) frame.Value {
	var best frame.Value
	for _, a := range args {
		if !a.Valid {
			continue
		}
		if !best.Valid || frame.CompareValues(a, best)*sign > 0 {
			best = a
		}
	}
	return best
}

// GreatestFunc returns the largest non-null argument
type GreatestFunc struct{}

func (f *GreatestFunc) Name() string  { return "greatest" }
func (f *GreatestFunc) MinArity() int { return 1 }
func (f *GreatestFunc) MaxArity() int { return -1 }
func (f *GreatestFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	return extremeType(args)
}
func (f *GreatestFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	return extreme(args, 1), nil
}

// LeastFunc returns the smallest non-null argument
type LeastFunc struct{}

func (f *LeastFunc) Name() string  { return "least" }
func (f *LeastFunc) MinArity() int { return 1 }
func (f *LeastFunc) MaxArity() int { return -1 }
func (f *LeastFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	return extremeType(args)
}
func (f *LeastFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	return extreme(args, -1), nil
}
