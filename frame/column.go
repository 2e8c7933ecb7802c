package frame

import (
	"fmt"
	"strings"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
)

// Column is a named, typed, immutable buffer of nullable values.
// Exactly one of the typed buffers is populated, according to the type.
type Column struct {
	name   string
	dtype  DataType
	length int

	ints   []int64
	floats []float64
	strs   []string
	bools  []bool
	times  []time.Time

	nulls *roaring.Bitmap
}

// FromInt64s creates an Int64 column. A nil valid slice means no nulls;
// otherwise valid[i] == false marks position i as null.
func FromInt64s(name string, values []int64, valid []bool) *Column {
	return &Column{name: name, dtype: Int64, length: len(values), ints: values, nulls: maskFromValid(valid)}
}

// FromFloat64s creates a Float64 column
func FromFloat64s(name string, values []float64, valid []bool) *Column {
	return &Column{name: name, dtype: Float64, length: len(values), floats: values, nulls: maskFromValid(valid)}
}

// FromStrings creates a Utf8 column
func FromStrings(name string, values []string, valid []bool) *Column {
	return &Column{name: name, dtype: Utf8, length: len(values), strs: values, nulls: maskFromValid(valid)}
}

// FromBools creates a Boolean column
func FromBools(name string, values []bool, valid []bool) *Column {
	return &Column{name: name, dtype: Boolean, length: len(values), bools: values, nulls: maskFromValid(valid)}
}

// FromTimes creates a Date or Datetime column. Date values are truncated to
// the calendar day.
func FromTimes(name string, dtype DataType, values []time.Time, valid []bool) (*Column, error) {
	switch dtype {
	case Date:
		days := make([]time.Time, len(values))
		for i, t := range values {
			days[i] = truncateDay(t)
		}
		values = days
	case Datetime:
	default:
		return nil, fmt.Errorf("%w: FromTimes needs date or datetime, got %s", ErrTypeMismatch, dtype)
	}
	return &Column{name: name, dtype: dtype, length: len(values), times: values, nulls: maskFromValid(valid)}, nil
}

// Nulls returns a column of n null values
func Nulls(name string, dtype DataType, n int) *Column {
	c := &Column{name: name, dtype: dtype, length: n, nulls: normalizeMask(maskAll(n))}
	switch dtype {
	case Int64:
		c.ints = make([]int64, n)
	case Float64:
		c.floats = make([]float64, n)
	case Utf8:
		c.strs = make([]string, n)
	case Boolean:
		c.bools = make([]bool, n)
	case Date, Datetime:
		c.times = make([]time.Time, n)
	}
	return c
}

// Repeat returns a column holding v n times
func Repeat(name string, v Value, n int) *Column {
	if !v.Valid {
		return Nulls(name, v.Type, n)
	}
	b := NewBuilder(name, v.Type, n)
	for i := 0; i < n; i++ {
		b.appendValid(v)
	}
	return b.Finish()
}

// New infers the column type from the first non-nil element of values.
// Mixed integer and float inputs produce a Float64 column; an all-nil input
// produces an Unknown column.
func New(name string, values []any) (*Column, error) {
	converted := make([]Value, len(values))
	dtype := Unknown
	for i, x := range values {
		v, err := ValueOf(x)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
		}
		converted[i] = v
		if !v.Valid && v.Type == Unknown {
			continue
		}
		switch {
		case dtype == Unknown:
			dtype = v.Type
		case dtype == Int64 && v.Type == Float64:
			dtype = Float64
		}
	}
	b := NewBuilder(name, dtype, len(values))
	for i, v := range converted {
		if err := b.Append(v); err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
		}
	}
	return b.Finish(), nil
}

// Name returns the column name
func (c *Column) Name() string { return c.name }

// Type returns the logical type
func (c *Column) Type() DataType { return c.dtype }

// Len returns the number of values, nulls included
func (c *Column) Len() int { return c.length }

// IsNull reports whether position i is null
func (c *Column) IsNull(i int) bool { return maskContains(c.nulls, i) }

// NullCount returns the number of null positions
func (c *Column) NullCount() int { return maskCount(c.nulls) }

// Get returns the value at position i
func (c *Column) Get(i int) Value {
	if i < 0 || i >= c.length || c.IsNull(i) {
		return Null(c.dtype)
	}
	switch c.dtype {
	case Int64:
		return Int(c.ints[i])
	case Float64:
		return Float(c.floats[i])
	case Utf8:
		return Str(c.strs[i])
	case Boolean:
		return Bool(c.bools[i])
	case Date:
		return Value{Type: Date, Valid: true, t: c.times[i]}
	case Datetime:
		return DatetimeOf(c.times[i])
	}
	return Null(c.dtype)
}

// Int64 returns the Int64 value at i; ok is false for nulls or other types.
func (c *Column) Int64(i int) (int64, bool) {
	if c.dtype != Int64 || c.IsNull(i) {
		return 0, false
	}
	return c.ints[i], true
}

// Float64 returns the value at i as float64; Int64 columns are converted.
func (c *Column) Float64(i int) (float64, bool) {
	if c.IsNull(i) {
		return 0, false
	}
	switch c.dtype {
	case Float64:
		return c.floats[i], true
	case Int64:
		return float64(c.ints[i]), true
	}
	return 0, false
}

// Str returns the Utf8 value at i
func (c *Column) Str(i int) (string, bool) {
	if c.dtype != Utf8 || c.IsNull(i) {
		return "", false
	}
	return c.strs[i], true
}

// Bool returns the Boolean value at i
func (c *Column) Bool(i int) (bool, bool) {
	if c.dtype != Boolean || c.IsNull(i) {
		return false, false
	}
	return c.bools[i], true
}

// Time returns the Date or Datetime value at i
func (c *Column) Time(i int) (time.Time, bool) {
	if !c.dtype.IsTemporal() || c.IsNull(i) {
		return time.Time{}, false
	}
	return c.times[i], true
}

// Values returns every position as a Value
func (c *Column) Values() []Value {
	out := make([]Value, c.length)
	for i := range out {
		out[i] = c.Get(i)
	}
	return out
}

// Rename returns the same data under another name
func (c *Column) Rename(name string) *Column {
	cp := *c
	cp.name = name
	return &cp
}

// Take gathers the given positions into a new column. An index of -1
// produces a null.
func (c *Column) Take(indices []int) *Column {
	out := &Column{name: c.name, dtype: c.dtype, length: len(indices)}
	switch c.dtype {
	case Int64:
		out.ints = gather(c.ints, indices)
	case Float64:
		out.floats = gather(c.floats, indices)
	case Utf8:
		out.strs = gather(c.strs, indices)
	case Boolean:
		out.bools = gather(c.bools, indices)
	case Date, Datetime:
		out.times = gather(c.times, indices)
	}
	var nulls *roaring.Bitmap
	for k, i := range indices {
		if i < 0 || c.dtype == Unknown || maskContains(c.nulls, i) {
			if nulls == nil {
				nulls = roaring.New()
			}
			nulls.Add(uint32(k))
		}
	}
	out.nulls = nulls
	return out
}

func gather[T any](src []T, indices []int) []T {
	out := make([]T, len(indices))
	for k, i := range indices {
		if i >= 0 {
			out[k] = src[i]
		}
	}
	return out
}

// Slice returns rows [offset, offset+length), clipped to the column bounds.
func (c *Column) Slice(offset, length int) *Column {
	if offset < 0 {
		offset = 0
	}
	if offset > c.length {
		offset = c.length
	}
	if length < 0 || offset+length > c.length {
		length = c.length - offset
	}
	end := offset + length
	out := &Column{name: c.name, dtype: c.dtype, length: length}
	switch c.dtype {
	case Int64:
		out.ints = c.ints[offset:end]
	case Float64:
		out.floats = c.floats[offset:end]
	case Utf8:
		out.strs = c.strs[offset:end]
	case Boolean:
		out.bools = c.bools[offset:end]
	case Date, Datetime:
		out.times = c.times[offset:end]
	}
	out.nulls = maskSlice(c.nulls, offset, length)
	return out
}

// Concat appends columns end to end. Unknown columns take the type of the
// others; any other type difference is a TypeMismatch.
func Concat(cols ...*Column) (*Column, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: nothing to concatenate", ErrLengthMismatch)
	}
	dtype := Unknown
	total := 0
	for _, c := range cols {
		total += c.length
		if c.dtype == Unknown {
			continue
		}
		if dtype == Unknown {
			dtype = c.dtype
		} else if c.dtype != dtype {
			return nil, fmt.Errorf("%w: cannot concatenate %s column %q with %s", ErrTypeMismatch, c.dtype, c.name, dtype)
		}
	}
	out := &Column{name: cols[0].name, dtype: dtype, length: total}
	var nulls *roaring.Bitmap
	offset := 0
	for _, c := range cols {
		if c.dtype == Unknown {
			c = Nulls(c.name, dtype, c.length)
		}
		switch dtype {
		case Int64:
			out.ints = append(out.ints, c.ints...)
		case Float64:
			out.floats = append(out.floats, c.floats...)
		case Utf8:
			out.strs = append(out.strs, c.strs...)
		case Boolean:
			out.bools = append(out.bools, c.bools...)
		case Date, Datetime:
			out.times = append(out.times, c.times...)
		}
		nulls = maskAppend(nulls, c.nulls, offset)
		offset += c.length
	}
	if dtype == Unknown {
		nulls = normalizeMask(maskAll(total))
	}
	out.nulls = nulls
	return out, nil
}

// Equal reports whether two columns hold the same type and values.
// Names are not compared.
func (c *Column) Equal(o *Column) bool {
	if c.dtype != o.dtype || c.length != o.length {
		return false
	}
	for i := 0; i < c.length; i++ {
		if !c.Get(i).Equal(o.Get(i)) {
			return false
		}
	}
	return true
}

// Dump renders the column as "name[type]: [v0, v1, ...]"
func (c *Column) Dump() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s[%s]: [", c.name, c.dtype)
	for i := 0; i < c.length; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.Get(i).String())
	}
	sb.WriteString("]")
	return sb.String()
}
