package frame

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArith(t *testing.T) {
	ints := FromInt64s("a", []int64{6, 7, 8}, []bool{true, true, false})
	zeros := FromInt64s("z", []int64{0, 2, 0}, nil)
	floats := FromFloat64s("f", []float64{1.5, 0, 2}, nil)

	tests := []struct {
		name     string
		op       ArithOp
		l, r     *Column
		wantType DataType
		want     []Value
	}{
		{"int add", Add, ints, zeros, Int64, []Value{Int(6), Int(9), Null(Int64)}},
		{"int div is float", Div, ints, FromInt64s("d", []int64{4}, nil), Float64, []Value{Float(1.5), Float(1.75), Null(Float64)}},
		{"int mod by zero", Mod, ints, zeros, Int64, []Value{Null(Int64), Int(1), Null(Int64)}},
		{"mixed is float", Mul, ints, floats, Float64, []Value{Float(9), Float(0), Null(Float64)}},
		{"broadcast left", Sub, FromInt64s("one", []int64{10}, nil), zeros, Int64, []Value{Int(10), Int(8), Int(10)}},
		{"untyped null", Add, ints, Nulls("n", Unknown, 1), Int64, []Value{Null(Int64), Null(Int64), Null(Int64)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Arith(tt.op, tt.l, tt.r)
			require.NoError(t, err)
			assert.Equal(t, tt.l.Name(), got.Name())
			assert.Equal(t, tt.wantType, got.Type())
			assert.Equal(t, tt.want, got.Values())
		})
	}
}

func TestArithFloatDivisionByZero(t *testing.T) {
	got, err := Arith(Div, FromFloat64s("a", []float64{1, -1, 0}, nil), FromFloat64s("b", []float64{0}, nil))
	require.NoError(t, err)

	assert.True(t, math.IsInf(got.Get(0).Float64(), 1))
	assert.True(t, math.IsInf(got.Get(1).Float64(), -1))
	assert.True(t, math.IsNaN(got.Get(2).Float64()))
}

func TestArithErrors(t *testing.T) {
	tests := []struct {
		name string
		l, r *Column
		want error
	}{
		{"string operand", FromStrings("s", []string{"a"}, nil), FromInt64s("i", []int64{1}, nil), ErrTypeMismatch},
		{"bool operand", FromBools("b", []bool{true, false}, nil), FromInt64s("i", []int64{1, 2}, nil), ErrTypeMismatch},
		{"ragged", FromInt64s("a", []int64{1, 2}, nil), FromInt64s("b", []int64{1, 2, 3}, nil), ErrLengthMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Arith(Add, tt.l, tt.r)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestCompare(t *testing.T) {
	a := FromInt64s("a", []int64{1, 2, 3}, []bool{true, false, true})
	b := FromFloat64s("b", []float64{1, 1, 4}, nil)

	got, err := Compare(Lt, a, b)
	require.NoError(t, err)
	assert.Equal(t, []Value{Bool(false), Null(Boolean), Bool(true)}, got.Values())

	got, err = Compare(Eq, a, b)
	require.NoError(t, err)
	assert.Equal(t, []Value{Bool(true), Null(Boolean), Bool(false)}, got.Values())

	s := FromStrings("s", []string{"x", "y", "z"}, nil)
	got, err = Compare(Ge, s, FromStrings("k", []string{"y"}, nil))
	require.NoError(t, err)
	assert.Equal(t, []Value{Bool(false), Bool(true), Bool(true)}, got.Values())

	_, err = Compare(Eq, a, s)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestKleeneLogic(t *testing.T) {
	// every combination of true, false, null on both sides
	l := FromBools("l", []bool{true, true, true, false, false, false, false, false, false}, []bool{true, true, true, true, true, true, false, false, false})
	r := FromBools("r", []bool{true, false, false, true, false, false, true, false, false}, []bool{true, true, false, true, true, false, true, true, false})

	and, err := And(l, r)
	require.NoError(t, err)
	assert.Equal(t, []Value{
		Bool(true), Bool(false), Null(Boolean),
		Bool(false), Bool(false), Bool(false),
		Null(Boolean), Bool(false), Null(Boolean),
	}, and.Values())

	or, err := Or(l, r)
	require.NoError(t, err)
	assert.Equal(t, []Value{
		Bool(true), Bool(true), Bool(true),
		Bool(true), Bool(false), Null(Boolean),
		Bool(true), Null(Boolean), Null(Boolean),
	}, or.Values())

	not, err := Not(l)
	require.NoError(t, err)
	assert.Equal(t, Null(Boolean), not.Get(8))
	assert.Equal(t, Bool(false), not.Get(0))

	_, err = And(l, FromInt64s("i", []int64{1}, nil))
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestNullFlags(t *testing.T) {
	c := FromInt64s("c", []int64{1, 0}, []bool{true, false})

	assert.Equal(t, []Value{Bool(false), Bool(true)}, IsNull(c).Values())
	assert.Equal(t, []Value{Bool(true), Bool(false)}, IsNotNull(c).Values())
	assert.Equal(t, 0, IsNull(c).NullCount())
}

func TestNegate(t *testing.T) {
	got, err := Negate(FromInt64s("c", []int64{1, -2}, []bool{true, false}))
	require.NoError(t, err)
	assert.Equal(t, []Value{Int(-1), Null(Int64)}, got.Values())

	_, err = Negate(FromStrings("s", []string{"a"}, nil))
	assert.ErrorIs(t, err, ErrTypeMismatch)
}
