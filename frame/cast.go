package frame

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"20060102",
	"02.01.2006",
}

var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
}

// ParseDate parses a calendar day in one of the common layouts
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDatetime parses a timestamp. A bare date is accepted as midnight.
func ParseDatetime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return ParseDate(s)
}

// ParseBool accepts true/false, t/f, yes/no and 1/0 in any case.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	}
	return false, false
}

// Cast converts every value of c to the target type. An unconvertible value
// fails the whole cast with ErrTypeMismatch.
func Cast(c *Column, to DataType) (*Column, error) {
	return castColumn(c, to, true)
}

// TryCast is Cast with unconvertible values turned into nulls.
func TryCast(c *Column, to DataType) (*Column, error) {
	return castColumn(c, to, false)
}

// CanCast reports whether a cast from one type to another is defined at all.
func CanCast(from, to DataType) bool {
	if from == to || from == Unknown || to == Utf8 || from == Utf8 {
		return true
	}
	switch to {
	case Int64, Float64:
		return from.IsNumeric() || from == Boolean || (to == Int64 && from.IsTemporal())
	case Boolean:
		return from.IsNumeric()
	case Date, Datetime:
		return from.IsTemporal() || from == Int64
	}
	return false
}

func castColumn(c *Column, to DataType, strict bool) (*Column, error) {
	if c.dtype == to {
		return c, nil
	}
	if !CanCast(c.dtype, to) {
		return nil, fmt.Errorf("%w: cannot cast %s column %q to %s", ErrTypeMismatch, c.dtype, c.name, to)
	}
	if c.dtype == Unknown {
		return Nulls(c.name, to, c.length), nil
	}
	b := NewBuilder(c.name, to, c.length)
	for i := 0; i < c.length; i++ {
		v, err := CastValue(c.Get(i), to, strict)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", c.name, i, err)
		}
		if err := b.Append(v); err != nil {
			return nil, err
		}
	}
	return b.Finish(), nil
}

// CastValue converts a single value. With strict == false failures yield a
// null of the target type instead of an error.
func CastValue(v Value, to DataType, strict bool) (Value, error) {
	if !v.Valid {
		return Null(to), nil
	}
	if v.Type == to {
		return v, nil
	}
	out, ok := castValue(v, to)
	if ok {
		return out, nil
	}
	if strict {
		return Value{}, fmt.Errorf("%w: cannot cast %s %q to %s", ErrTypeMismatch, v.Type, v.String(), to)
	}
	return Null(to), nil
}

func castValue(v Value, to DataType) (Value, bool) {
	if to == Utf8 {
		return Str(v.String()), true
	}
	switch to {
	case Int64:
		switch v.Type {
		case Float64:
			if math.IsNaN(v.f) || math.IsInf(v.f, 0) || math.Abs(v.f) > math.MaxInt64 {
				return Value{}, false
			}
			return Int(int64(v.f)), true
		case Boolean:
			return Int(boolToInt(v.b)), true
		case Utf8:
			s := strings.TrimSpace(v.s)
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return Int(n), true
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && math.Abs(f) <= math.MaxInt64 {
				return Int(int64(f)), true
			}
		case Date:
			return Int(v.t.Unix() / 86400), true
		case Datetime:
			return Int(v.t.Unix()), true
		}
	case Float64:
		switch v.Type {
		case Int64:
			return Float(float64(v.i)), true
		case Boolean:
			return Float(float64(boolToInt(v.b))), true
		case Utf8:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64); err == nil {
				return Float(f), true
			}
		}
	case Boolean:
		switch v.Type {
		case Int64:
			return Bool(v.i != 0), true
		case Float64:
			return Bool(v.f != 0), true
		case Utf8:
			if b, ok := ParseBool(v.s); ok {
				return Bool(b), true
			}
		}
	case Date:
		switch v.Type {
		case Datetime:
			return DateOf(v.t), true
		case Int64:
			return DateOf(time.Unix(v.i*86400, 0).UTC()), true
		case Utf8:
			if t, ok := ParseDate(v.s); ok {
				return DateOf(t), true
			}
			if t, ok := ParseDatetime(v.s); ok {
				return DateOf(t), true
			}
		}
	case Datetime:
		switch v.Type {
		case Date:
			return DatetimeOf(v.t), true
		case Int64:
			return DatetimeOf(time.Unix(v.i, 0).UTC()), true
		case Utf8:
			if t, ok := ParseDatetime(v.s); ok {
				return DatetimeOf(t), true
			}
		}
	}
	return Value{}, false
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
