package frame

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnGet(t *testing.T) {
	c := FromInt64s("id", []int64{1, 2, 3}, []bool{true, false, true})

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, 1, c.NullCount())
	assert.True(t, c.IsNull(1))
	assert.Equal(t, Int(3), c.Get(2))
	assert.True(t, c.Get(1).IsNull())
	assert.Equal(t, Int64, c.Get(1).Type)

	v, ok := c.Int64(0)
	assert.True(t, ok)
	assert.Equal(t, int64(1), v)

	_, ok = c.Int64(1)
	assert.False(t, ok)

	f, ok := c.Float64(2)
	assert.True(t, ok)
	assert.Equal(t, 3.0, f)
}

func TestNewInfersType(t *testing.T) {
	tests := []struct {
		name   string
		values []any
		want   DataType
		nulls  int
	}{
		{"ints", []any{1, 2, nil}, Int64, 1},
		{"mixed numeric", []any{1, 2.5}, Float64, 0},
		{"strings", []any{"a", nil, "b"}, Utf8, 1},
		{"bools", []any{true, false}, Boolean, 0},
		{"times", []any{time.Unix(0, 0)}, Datetime, 0},
		{"all nil", []any{nil, nil}, Unknown, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New("x", tt.values)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Type())
			assert.Equal(t, len(tt.values), c.Len())
			assert.Equal(t, tt.nulls, c.NullCount())
		})
	}
}

func TestNewRejectsMixedTypes(t *testing.T) {
	_, err := New("x", []any{1, "a"})
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestTakeWithMissingIndex(t *testing.T) {
	c := FromStrings("s", []string{"a", "b", "c"}, []bool{true, true, false})

	got := c.Take([]int{2, -1, 0, 0})

	assert.Equal(t, []Value{Null(Utf8), Null(Utf8), Str("a"), Str("a")}, got.Values())
	assert.Equal(t, 2, got.NullCount())
}

func TestSliceClips(t *testing.T) {
	c := FromInt64s("n", []int64{0, 1, 2, 3, 4}, []bool{true, false, true, false, true})

	tests := []struct {
		name           string
		offset, length int
		want           []Value
	}{
		{"middle", 1, 2, []Value{Null(Int64), Int(2)}},
		{"over length", 3, 10, []Value{Null(Int64), Int(4)}},
		{"past end", 9, 2, []Value{}},
		{"whole", 0, 5, c.Values()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Slice(tt.offset, tt.length)
			assert.Equal(t, tt.want, got.Values())
		})
	}
}

func TestConcatColumns(t *testing.T) {
	a := FromInt64s("a", []int64{1, 2}, []bool{true, false})
	b := Nulls("b", Unknown, 1)
	c := FromInt64s("c", []int64{7}, nil)

	got, err := Concat(a, b, c)
	require.NoError(t, err)

	assert.Equal(t, "a", got.Name())
	assert.Equal(t, Int64, got.Type())
	assert.Equal(t, []Value{Int(1), Null(Int64), Null(Int64), Int(7)}, got.Values())

	_, err = Concat(a, FromStrings("s", []string{"x"}, nil))
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestBuilder(t *testing.T) {
	b := NewBuilder("f", Float64, 4)
	require.NoError(t, b.Append(Float(1.5)))
	require.NoError(t, b.Append(Int(2)))
	b.AppendNull()
	require.NoError(t, b.AppendAny(nil))

	err := b.Append(Str("x"))
	assert.ErrorIs(t, err, ErrTypeMismatch)

	c := b.Finish()
	assert.Equal(t, []Value{Float(1.5), Float(2), Null(Float64), Null(Float64)}, c.Values())
}

func TestDateColumnTruncates(t *testing.T) {
	ts := time.Date(2024, 3, 5, 17, 30, 0, 0, time.UTC)
	c, err := FromTimes("d", Date, []time.Time{ts}, nil)
	require.NoError(t, err)

	assert.Equal(t, "2024-03-05", c.Get(0).String())

	_, err = FromTimes("d", Int64, nil, nil)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestValueKeys(t *testing.T) {
	key := func(v Value) string { return string(v.AppendKey(nil)) }

	assert.Equal(t, key(Float(0)), key(Float(math.Copysign(0, -1))))
	assert.NotEqual(t, key(Int(1)), key(Float(1)))
	assert.NotEqual(t, key(Str("ab")), key(Str("a")))
	assert.Equal(t, key(Null(Int64)), key(Null(Utf8)))
}

func TestCompareValues(t *testing.T) {
	assert.Equal(t, -1, CompareValues(Null(Int64), Int(0)))
	assert.Equal(t, 0, CompareValues(Int(2), Float(2)))
	assert.Equal(t, 1, CompareValues(Str("b"), Str("a")))
	assert.Equal(t, -1, CompareValues(Bool(false), Bool(true)))
	assert.True(t, Int(3).Equal(Float(3)))
	assert.True(t, Null(Int64).Equal(Null(Int64)))
}
