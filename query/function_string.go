package query

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/vegasq/lazytab/frame"
)

// String Functions
//
// All string functions return null when any argument is null, except concat,
// which skips nulls.

func stringResult(name string, args []frame.DataType, result frame.DataType) (frame.DataType, error) {
	if err := expectTypes(name, args, "a string", isString); err != nil {
		return frame.Unknown, err
	}
	return result, nil
}

// stringUnary builds the body of a one-argument string function
func stringUnary(args []frame.Value, fn func(string) frame.Value) (frame.Value, error) {
	if anyNull(args) {
		return frame.Value{}, nil
	}
	return fn(args[0].Str()), nil
}

// UpperFunc converts a string to uppercase
type UpperFunc struct{}

func (f *UpperFunc) Name() string  { return "upper" }
func (f *UpperFunc) MinArity() int { return 1 }
func (f *UpperFunc) MaxArity() int { return 1 }
func (f *UpperFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	return stringResult(f.Name(), args, frame.Utf8)
}
func (f *UpperFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	return stringUnary(args, func(s string) frame.Value { return frame.Str(strings.ToUpper(s)) })
}

// LowerFunc converts a string to lowercase
type LowerFunc struct{}

func (f *LowerFunc) Name() string  { return "lower" }
func (f *LowerFunc) MinArity() int { return 1 }
func (f *LowerFunc) MaxArity() int { return 1 }
func (f *LowerFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	return stringResult(f.Name(), args, frame.Utf8)
}
func (f *LowerFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	return stringUnary(args, func(s string) frame.Value { return frame.Str(strings.ToLower(s)) })
}

// LengthFunc returns the number of characters in a string
type LengthFunc struct{}

func (f *LengthFunc) Name() string  { return "length" }
func (f *LengthFunc) MinArity() int { return 1 }
func (f *LengthFunc) MaxArity() int { return 1 }
func (f *LengthFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	return stringResult(f.Name(), args, frame.Int64)
}
func (f *LengthFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	return stringUnary(args, func(s string) frame.Value { return frame.Int(int64(utf8.RuneCountInString(s))) })
}

// TrimFunc trims whitespace from both ends
type TrimFunc struct{}

func (f *TrimFunc) Name() string  { return "trim" }
func (f *TrimFunc) MinArity() int { return 1 }
func (f *TrimFunc) MaxArity() int { return 1 }
func (f *TrimFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	return stringResult(f.Name(), args, frame.Utf8)
}
func (f *TrimFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	return stringUnary(args, func(s string) frame.Value { return frame.Str(strings.TrimSpace(s)) })
}

// LTrimFunc trims leading whitespace
type LTrimFunc struct{}

func (f *LTrimFunc) Name() string  { return "ltrim" }
func (f *LTrimFunc) MinArity() int { return 1 }
func (f *LTrimFunc) MaxArity() int { return 1 }
func (f *LTrimFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	return stringResult(f.Name(), args, frame.Utf8)
}
func (f *LTrimFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	return stringUnary(args, func(s string) frame.Value { return frame.Str(strings.TrimLeft(s, " \t\r\n")) })
}

// RTrimFunc trims trailing whitespace
type RTrimFunc struct{}

func (f *RTrimFunc) Name() string  { return "rtrim" }
func (f *RTrimFunc) MinArity() int { return 1 }
func (f *RTrimFunc) MaxArity() int { return 1 }
func (f *RTrimFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	return stringResult(f.Name(), args, frame.Utf8)
}
func (f *RTrimFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	return stringUnary(args, func(s string) frame.Value { return frame.Str(strings.TrimRight(s, " \t\r\n")) })
}

// ReverseFunc reverses the characters of a string
type ReverseFunc struct{}

func (f *ReverseFunc) Name() string  { return "reverse" }
func (f *ReverseFunc) MinArity() int { return 1 }
func (f *ReverseFunc) MaxArity() int { return 1 }
func (f *ReverseFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	return stringResult(f.Name(), args, frame.Utf8)
}
func (f *ReverseFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	return stringUnary(args, func(s string) frame.Value {
		runes := []rune(s)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return frame.Str(string(runes))
	})
}

// SubstringFunc extracts part of a string. start is 1-based; without a
// length the rest of the string is returned.
type SubstringFunc struct{}

func (f *SubstringFunc) Name() string  { return "substring" }
func (f *SubstringFunc) MinArity() int { return 2 }
func (f *SubstringFunc) MaxArity() int { return 3 }
func (f *SubstringFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	if err := expectTypes(f.Name(), args[:1], "a string", isString); err != nil {
		return frame.Unknown, err
	}
	if err := expectTypes(f.Name(), args[1:], "an integer", isInteger); err != nil {
		return frame.Unknown, err
	}
	return frame.Utf8, nil
}
func (f *SubstringFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	if anyNull(args) {
		return frame.Value{}, nil
	}
	runes := []rune(args[0].Str())
	start := max(int(args[1].Int64())-1, 0)
	if start >= len(runes) {
		return frame.Str(""), nil
	}
	end := len(runes)
	if len(args) == 3 {
		length := int(args[2].Int64())
		if length < 0 {
			return frame.Str(""), nil
		}
		end = min(start+length, len(runes))
	}
	return frame.Str(string(runes[start:end])), nil
}

// ConcatFunc concatenates its arguments, skipping nulls. Non-string
// arguments are rendered as text.
type ConcatFunc struct{}

func (f *ConcatFunc) Name() string  { return "concat" }
func (f *ConcatFunc) MinArity() int { return 1 }
func (f *ConcatFunc) MaxArity() int { return -1 }
func (f *ConcatFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	return frame.Utf8, nil
}
func (f *ConcatFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	var sb strings.Builder
	for _, a := range args {
		if a.Valid {
			sb.WriteString(valueToString(a))
		}
	}
	return frame.Str(sb.String()), nil
}

// ReplaceFunc replaces every occurrence of a substring
type ReplaceFunc struct{}

func (f *ReplaceFunc) Name() string  { return "replace" }
func (f *ReplaceFunc) MinArity() int { return 3 }
func (f *ReplaceFunc) MaxArity() int { return 3 }
func (f *ReplaceFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	return stringResult(f.Name(), args, frame.Utf8)
}
func (f *ReplaceFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	if anyNull(args) {
		return frame.Value{}, nil
	}
	return frame.Str(strings.ReplaceAll(args[0].Str(), args[1].Str(), args[2].Str())), nil
}

// ContainsFunc reports whether a string contains a substring
type ContainsFunc struct{}

func (f *ContainsFunc) Name() string  { return "contains" }
func (f *ContainsFunc) MinArity() int { return 2 }
func (f *ContainsFunc) MaxArity() int { return 2 }
func (f *ContainsFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	return stringResult(f.Name(), args, frame.Boolean)
}
func (f *ContainsFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	if anyNull(args) {
		return frame.Value{}, nil
	}
	return frame.Bool(strings.Contains(args[0].Str(), args[1].Str())), nil
}

// StartsWithFunc reports whether a string starts with a prefix
type StartsWithFunc struct{}

func (f *StartsWithFunc) Name() string  { return "starts_with" }
func (f *StartsWithFunc) MinArity() int { return 2 }
func (f *StartsWithFunc) MaxArity() int { return 2 }
func (f *StartsWithFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	return stringResult(f.Name(), args, frame.Boolean)
}
func (f *StartsWithFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	if anyNull(args) {
		return frame.Value{}, nil
	}
	return frame.Bool(strings.HasPrefix(args[0].Str(), args[1].Str())), nil
}

// EndsWithFunc reports whether a string ends with a suffix
type EndsWithFunc struct{}

func (f *EndsWithFunc) Name() string  { return "ends_with" }
func (f *EndsWithFunc) MinArity() int { return 2 }
func (f *EndsWithFunc) MaxArity() int { return 2 }
func (f *EndsWithFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	return stringResult(f.Name(), args, frame.Boolean)
}
func (f *EndsWithFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	if anyNull(args) {
		return frame.Value{}, nil
	}
	return frame.Bool(strings.HasSuffix(args[0].Str(), args[1].Str())), nil
}

// LikeFunc matches a string against a pattern where % matches any sequence
// and _ any single character
type LikeFunc struct{}

func (f *LikeFunc) Name() string  { return "like" }
func (f *LikeFunc) MinArity() int { return 2 }
func (f *LikeFunc) MaxArity() int { return 2 }
func (f *LikeFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	return stringResult(f.Name(), args, frame.Boolean)
}
func (f *LikeFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	if anyNull(args) {
		return frame.Value{}, nil
	}
	return frame.Bool(matchLikePattern(args[0].Str(), args[1].Str())), nil
}

// RepeatFunc repeats a string n times
type RepeatFunc struct{}

// maxRepeatBytes bounds the size of a repeated string
const maxRepeatBytes = 10 * 1024 * 1024

func (f *RepeatFunc) Name() string  { return "repeat" }
func (f *RepeatFunc) MinArity() int { return 2 }
func (f *RepeatFunc) MaxArity() int { return 2 }
func (f *RepeatFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	if err := expectTypes(f.Name(), args[:1], "a string", isString); err != nil {
		return frame.Unknown, err
	}
	if err := expectTypes(f.Name(), args[1:], "an integer", isInteger); err != nil {
		return frame.Unknown, err
	}
	return frame.Utf8, nil
}
func (f *RepeatFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	if anyNull(args) {
		return frame.Value{}, nil
	}
	s, count := args[0].Str(), args[1].Int64()
	if count < 0 {
		return frame.Value{}, fmt.Errorf("count must be non-negative, got %d", count)
	}
	if int64(len(s))*count > maxRepeatBytes {
		return frame.Value{}, fmt.Errorf("result would exceed %d bytes", maxRepeatBytes)
	}
	return frame.Str(strings.Repeat(s, int(count))), nil
}
