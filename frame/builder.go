package frame

import (
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
)

// Builder accumulates values for a single column. It is not safe for
// concurrent use.
type Builder struct {
	name  string
	dtype DataType
	n     int

	ints   []int64
	floats []float64
	strs   []string
	bools  []bool
	times  []time.Time
	nulls  *roaring.Bitmap
}

// NewBuilder creates a builder for a column of the given type
func NewBuilder(name string, dtype DataType, capacity int) *Builder {
	b := &Builder{name: name, dtype: dtype}
	switch dtype {
	case Int64:
		b.ints = make([]int64, 0, capacity)
	case Float64:
		b.floats = make([]float64, 0, capacity)
	case Utf8:
		b.strs = make([]string, 0, capacity)
	case Boolean:
		b.bools = make([]bool, 0, capacity)
	case Date, Datetime:
		b.times = make([]time.Time, 0, capacity)
	}
	return b
}

// Len returns the number of appended values
func (b *Builder) Len() int { return b.n }

// Type returns the column type being built
func (b *Builder) Type() DataType { return b.dtype }

// AppendNull appends a null
func (b *Builder) AppendNull() {
	if b.nulls == nil {
		b.nulls = roaring.New()
	}
	b.nulls.Add(uint32(b.n))
	switch b.dtype {
	case Int64:
		b.ints = append(b.ints, 0)
	case Float64:
		b.floats = append(b.floats, 0)
	case Utf8:
		b.strs = append(b.strs, "")
	case Boolean:
		b.bools = append(b.bools, false)
	case Date, Datetime:
		b.times = append(b.times, time.Time{})
	}
	b.n++
}

// Append appends v. Nulls of any type are accepted; an Int64 value may be
// appended to a Float64 builder and a Datetime to a Date builder. Other type
// differences fail with ErrTypeMismatch.
func (b *Builder) Append(v Value) error {
	if !v.Valid {
		b.AppendNull()
		return nil
	}
	switch {
	case v.Type == b.dtype:
	case b.dtype == Float64 && v.Type == Int64:
		v = Float(float64(v.i))
	case b.dtype == Date && v.Type == Datetime:
		v = DateOf(v.t)
	case b.dtype == Datetime && v.Type == Date:
		v = DatetimeOf(v.t)
	default:
		return fmt.Errorf("%w: cannot append %s to %s column %q", ErrTypeMismatch, v.Type, b.dtype, b.name)
	}
	b.appendValid(v)
	return nil
}

// AppendAny converts x with ValueOf and appends it.
func (b *Builder) AppendAny(x any) error {
	v, err := ValueOf(x)
	if err != nil {
		return err
	}
	return b.Append(v)
}

func (b *Builder) appendValid(v Value) {
	switch b.dtype {
	case Int64:
		b.ints = append(b.ints, v.i)
	case Float64:
		b.floats = append(b.floats, v.f)
	case Utf8:
		b.strs = append(b.strs, v.s)
	case Boolean:
		b.bools = append(b.bools, v.b)
	case Date, Datetime:
		b.times = append(b.times, v.t)
	case Unknown:
		if b.nulls == nil {
			b.nulls = roaring.New()
		}
		b.nulls.Add(uint32(b.n))
	}
	b.n++
}

// Finish returns the built column. The builder must not be used afterwards.
func (b *Builder) Finish() *Column {
	return &Column{
		name:   b.name,
		dtype:  b.dtype,
		length: b.n,
		ints:   b.ints,
		floats: b.floats,
		strs:   b.strs,
		bools:  b.bools,
		times:  b.times,
		nulls:  normalizeMask(b.nulls),
	}
}
