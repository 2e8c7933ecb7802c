package frame

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"time"
)

const (
	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02 15:04:05.999999999"
)

// Value is a typed optional scalar. A Value with Valid == false is null.
type Value struct {
	Type  DataType
	Valid bool

	i int64
	f float64
	s string
	b bool
	t time.Time
}

// Int returns a valid Int64 value
func Int(v int64) Value { return Value{Type: Int64, Valid: true, i: v} }

// Float returns a valid Float64 value
func Float(v float64) Value { return Value{Type: Float64, Valid: true, f: v} }

// Str returns a valid Utf8 value
func Str(v string) Value { return Value{Type: Utf8, Valid: true, s: v} }

// Bool returns a valid Boolean value
func Bool(v bool) Value { return Value{Type: Boolean, Valid: true, b: v} }

// DateOf returns a Date value for the calendar day of t
func DateOf(t time.Time) Value { return Value{Type: Date, Valid: true, t: truncateDay(t)} }

// DatetimeOf returns a Datetime value
func DatetimeOf(t time.Time) Value { return Value{Type: Datetime, Valid: true, t: t} }

// Null returns a null value of the given type
func Null(t DataType) Value { return Value{Type: t} }

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsNull reports whether the value is null
func (v Value) IsNull() bool { return !v.Valid }

// Int64 returns the Int64 payload (zero for other types)
func (v Value) Int64() int64 { return v.i }

// Float64 returns the Float64 payload (zero for other types)
func (v Value) Float64() float64 { return v.f }

// Str returns the Utf8 payload
func (v Value) Str() string { return v.s }

// Bool returns the Boolean payload
func (v Value) Bool() bool { return v.b }

// Time returns the Date or Datetime payload
func (v Value) Time() time.Time { return v.t }

// AsFloat64 converts a valid numeric value to float64.
func (v Value) AsFloat64() (float64, bool) {
	if !v.Valid {
		return 0, false
	}
	switch v.Type {
	case Int64:
		return float64(v.i), true
	case Float64:
		return v.f, true
	}
	return 0, false
}

// Any returns the payload as a Go value, or nil for null.
func (v Value) Any() any {
	if !v.Valid {
		return nil
	}
	switch v.Type {
	case Int64:
		return v.i
	case Float64:
		return v.f
	case Utf8:
		return v.s
	case Boolean:
		return v.b
	case Date, Datetime:
		return v.t
	}
	return nil
}

// String formats the value for display. Null renders as "null".
func (v Value) String() string {
	if !v.Valid {
		return "null"
	}
	switch v.Type {
	case Int64:
		return strconv.FormatInt(v.i, 10)
	case Float64:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case Utf8:
		return v.s
	case Boolean:
		return strconv.FormatBool(v.b)
	case Date:
		return v.t.Format(dateLayout)
	case Datetime:
		return v.t.Format(datetimeLayout)
	}
	return "null"
}

// ValueOf converts a Go value into a Value. Supported inputs are nil, all
// integer and float kinds, string, bool, time.Time (as Datetime) and Value.
func ValueOf(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Null(Unknown), nil
	case Value:
		return v, nil
	case int:
		return Int(int64(v)), nil
	case int8:
		return Int(int64(v)), nil
	case int16:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint8:
		return Int(int64(v)), nil
	case uint16:
		return Int(int64(v)), nil
	case uint32:
		return Int(int64(v)), nil
	case uint64:
		if v > math.MaxInt64 {
			return Value{}, fmt.Errorf("%w: %d overflows int64", ErrTypeMismatch, v)
		}
		return Int(int64(v)), nil
	case uint:
		if uint64(v) > math.MaxInt64 {
			return Value{}, fmt.Errorf("%w: %d overflows int64", ErrTypeMismatch, v)
		}
		return Int(int64(v)), nil
	case float32:
		return Float(float64(v)), nil
	case float64:
		return Float(v), nil
	case string:
		return Str(v), nil
	case bool:
		return Bool(v), nil
	case time.Time:
		return DatetimeOf(v), nil
	case *int64:
		if v == nil {
			return Null(Int64), nil
		}
		return Int(*v), nil
	case *float64:
		if v == nil {
			return Null(Float64), nil
		}
		return Float(*v), nil
	case *string:
		if v == nil {
			return Null(Utf8), nil
		}
		return Str(*v), nil
	case *bool:
		if v == nil {
			return Null(Boolean), nil
		}
		return Bool(*v), nil
	default:
		return Value{}, fmt.Errorf("%w: unsupported Go type %T", ErrTypeMismatch, x)
	}
}

// CompareValues orders two values. Nulls sort before everything else; Int64
// and Float64 compare numerically; values of unrelated types order by type.
func CompareValues(a, b Value) int {
	switch {
	case !a.Valid && !b.Valid:
		return 0
	case !a.Valid:
		return -1
	case !b.Valid:
		return 1
	}
	if a.Type.IsNumeric() && b.Type.IsNumeric() {
		if a.Type == Int64 && b.Type == Int64 {
			return cmpInt(a.i, b.i)
		}
		af, _ := a.AsFloat64()
		bf, _ := b.AsFloat64()
		return cmpFloat(af, bf)
	}
	if a.Type.IsTemporal() && b.Type.IsTemporal() {
		return a.t.Compare(b.t)
	}
	if a.Type != b.Type {
		return cmpInt(int64(a.Type), int64(b.Type))
	}
	switch a.Type {
	case Utf8:
		switch {
		case a.s < b.s:
			return -1
		case a.s > b.s:
			return 1
		}
		return 0
	case Boolean:
		switch {
		case a.b == b.b:
			return 0
		case !a.b:
			return -1
		}
		return 1
	}
	return 0
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// cmpFloat places NaN after every other number.
func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	case a == b:
		return 0
	case math.IsNaN(a) && math.IsNaN(b):
		return 0
	case math.IsNaN(a):
		return 1
	}
	return -1
}

// Equal reports whether two values are equal. Two nulls are equal.
func (v Value) Equal(o Value) bool {
	if v.Valid != o.Valid {
		return false
	}
	if !v.Valid {
		return true
	}
	if v.Type != o.Type && !(v.Type.IsNumeric() && o.Type.IsNumeric()) {
		return false
	}
	return CompareValues(v, o) == 0
}

// AppendKey appends a binary encoding of v to dst. Equal values of the same
// type produce equal encodings, so the result can key a hash map.
func (v Value) AppendKey(dst []byte) []byte {
	if !v.Valid {
		return append(dst, 'N')
	}
	switch v.Type {
	case Int64:
		dst = append(dst, 'i')
		return binary.LittleEndian.AppendUint64(dst, uint64(v.i))
	case Float64:
		f := v.f
		if f == 0 {
			f = 0
		}
		if math.IsNaN(f) {
			f = math.NaN()
		}
		dst = append(dst, 'f')
		return binary.LittleEndian.AppendUint64(dst, math.Float64bits(f))
	case Utf8:
		dst = append(dst, 's')
		dst = binary.AppendUvarint(dst, uint64(len(v.s)))
		return append(dst, v.s...)
	case Boolean:
		if v.b {
			return append(dst, 'b', 1)
		}
		return append(dst, 'b', 0)
	case Date, Datetime:
		dst = append(dst, 't')
		dst = binary.LittleEndian.AppendUint64(dst, uint64(v.t.Unix()))
		return binary.LittleEndian.AppendUint32(dst, uint32(v.t.Nanosecond()))
	}
	return append(dst, 'N')
}
