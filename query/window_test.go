package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/lazytab/frame"
)

func TestRank(t *testing.T) {
	scores := frame.MustTable(
		frame.FromInt64s("score", []int64{30, 10, 20, 20, 0}, []bool{true, true, true, true, false}),
	)
	null := frame.Null(frame.Int64)

	tests := []struct {
		name string
		expr Expr
		want []frame.Value
	}{
		{
			name: "descending ordinal",
			expr: Rank(Col("score"), true),
			want: []frame.Value{frame.Int(1), frame.Int(4), frame.Int(2), frame.Int(3), null},
		},
		{
			name: "ascending ordinal",
			expr: Rank(Col("score"), false),
			want: []frame.Value{frame.Int(4), frame.Int(1), frame.Int(2), frame.Int(3), null},
		},
		{
			name: "dense",
			expr: Rank(Col("score"), false).Method(RankDense),
			want: []frame.Value{frame.Int(3), frame.Int(1), frame.Int(2), frame.Int(2), null},
		},
		{
			name: "min",
			expr: Rank(Col("score"), true).Method(RankMin),
			want: []frame.Value{frame.Int(1), frame.Int(4), frame.Int(2), frame.Int(2), null},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.expr, scores)
			require.NoError(t, err)
			assert.Equal(t, "score", got.Name())
			assert.Equal(t, tt.want, got.Values())
		})
	}
}

func TestRankSimple(t *testing.T) {
	tbl := frame.MustTable(frame.FromInt64s("x", []int64{30, 10, 20}, nil))

	got, err := Evaluate(Rank(Col("x"), true), tbl)
	require.NoError(t, err)
	assert.Equal(t, []frame.Value{frame.Int(1), frame.Int(3), frame.Int(2)}, got.Values())
}

func TestShift(t *testing.T) {
	tbl := frame.MustTable(frame.FromInt64s("x", []int64{10, 20, 30}, nil))
	null := frame.Null(frame.Int64)

	tests := []struct {
		name string
		n    int
		want []frame.Value
	}{
		{"lag one", 1, []frame.Value{null, frame.Int(10), frame.Int(20)}},
		{"lag two", 2, []frame.Value{null, null, frame.Int(10)}},
		{"lead one", -1, []frame.Value{frame.Int(20), frame.Int(30), null}},
		{"zero", 0, []frame.Value{frame.Int(10), frame.Int(20), frame.Int(30)}},
		{"beyond length", 5, []frame.Value{null, null, null}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(Shift(Col("x"), tt.n), tbl)
			require.NoError(t, err)
			assert.Equal(t, frame.Int64, got.Type())
			assert.Equal(t, tt.want, got.Values())
		})
	}
}

func TestWindowOverPartition(t *testing.T) {
	tbl := frame.MustTable(
		frame.FromStrings("dept", []string{"a", "b", "a", "b", "a"}, nil),
		frame.FromFloat64s("pay", []float64{5, 7, 9, 1, 3}, nil),
	)

	ranks, err := Evaluate(Rank(Col("pay"), true).Over("dept"), tbl)
	require.NoError(t, err)
	assert.Equal(t, []frame.Value{frame.Int(2), frame.Int(1), frame.Int(1), frame.Int(2), frame.Int(3)}, ranks.Values())

	prev, err := Evaluate(Shift(Col("pay"), 1).Over("dept"), tbl)
	require.NoError(t, err)
	null := frame.Null(frame.Float64)
	assert.Equal(t, []frame.Value{null, null, frame.Float(5), frame.Float(7), frame.Float(9)}, prev.Values())
}

func TestWindowErrors(t *testing.T) {
	tbl := frame.MustTable(frame.FromInt64s("x", []int64{1, 2}, nil))

	_, err := TypeOf(Rank(Sum(Col("x")), false), tbl.Schema())
	assert.ErrorIs(t, err, ErrInvalidAggregateContext)

	_, err = TypeOf(Shift(Col("x"), 1).Over("missing"), tbl.Schema())
	assert.ErrorIs(t, err, ErrUnknownColumn)

	_, err = ParseRankMethod("average")
	assert.ErrorIs(t, err, ErrInvalidPlan)
}
