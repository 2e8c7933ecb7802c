package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/lazytab/frame"
)

func TestGroupBySum(t *testing.T) {
	tbl := frame.MustTable(
		frame.FromInt64s("id", []int64{1, 1, 2}, nil),
		frame.FromInt64s("amt", []int64{10, 20, 5}, nil),
	)

	got, err := ApplyGroupByAndAggregate(tbl, []Expr{Col("id")}, []Expr{Sum(Col("amt"))})
	require.NoError(t, err)

	want := frame.MustTable(
		frame.FromInt64s("id", []int64{1, 2}, nil),
		frame.FromInt64s("amt", []int64{30, 5}, nil),
	)
	assert.True(t, want.Equal(got), "got\n%s", got)
}

func TestGroupByNullKeyAndOrder(t *testing.T) {
	tbl := frame.MustTable(
		frame.FromStrings("k", []string{"b", "", "a", "b", ""}, []bool{true, false, true, true, false}),
		frame.FromFloat64s("v", []float64{1, 2, 3, 4, 5}, nil),
	)

	got, err := ApplyGroupByAndAggregate(tbl, []Expr{Col("k")}, []Expr{
		Alias(Count(Col("v")), "n"),
		Alias(Mean(Col("v")), "avg"),
	})
	require.NoError(t, err)

	k, err := got.Column("k")
	require.NoError(t, err)
	assert.Equal(t, []frame.Value{frame.Str("b"), frame.Null(frame.Utf8), frame.Str("a")}, k.Values())

	n, err := got.Column("n")
	require.NoError(t, err)
	assert.Equal(t, []frame.Value{frame.Int(2), frame.Int(2), frame.Int(1)}, n.Values())

	avg, err := got.Column("avg")
	require.NoError(t, err)
	assert.Equal(t, []frame.Value{frame.Float(2.5), frame.Float(3.5), frame.Float(3)}, avg.Values())
}

func TestSingleGroupAggregates(t *testing.T) {
	tbl := frame.MustTable(
		frame.FromInt64s("x", []int64{4, 1, 3, 2, 0}, []bool{true, true, true, true, false}),
		frame.FromStrings("s", []string{"b", "a", "c", "a", "d"}, nil),
	)

	tests := []struct {
		name string
		agg  Expr
		want frame.Value
	}{
		{"sum", Sum(Col("x")), frame.Int(10)},
		{"mean", Mean(Col("x")), frame.Float(2.5)},
		{"count skips nulls", Count(Col("x")), frame.Int(4)},
		{"count all", CountAll(), frame.Int(5)},
		{"min", Min(Col("x")), frame.Int(1)},
		{"max string", Max(Col("s")), frame.Str("d")},
		{"var population", Var(Col("x")), frame.Float(1.25)},
		{"var sample", Var(Col("x")).Ddof(1), frame.Float(5.0 / 3.0)},
		{"median", Median(Col("x")), frame.Float(2.5)},
		{"first", First(Col("x")), frame.Int(4)},
		{"last is raw", Last(Col("x")), frame.Null(frame.Int64)},
		{"n_unique", NUnique(Col("s")), frame.Int(4)},
		{"n_unique counts null", NUnique(Col("x")), frame.Int(5)},
		{"expression over aggregates", Div(Sum(Col("x")), Count(Col("x"))), frame.Float(2.5)},
		{"literal", Lit("const"), frame.Str("const")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyGroupByAndAggregate(tbl, nil, []Expr{tt.agg})
			require.NoError(t, err)
			require.Equal(t, 1, got.NumRows())
			assert.Equal(t, tt.want, got.ColumnAt(0).Get(0))
		})
	}
}

func TestQuantileNearest(t *testing.T) {
	tbl := frame.MustTable(frame.FromInt64s("x", []int64{1, 2, 3, 4}, nil))

	tests := []struct {
		name   string
		p      float64
		method QuantileMethod
		want   float64
	}{
		{"p25 nearest", 0.25, QuantileNearest, 2},
		{"p75 nearest", 0.75, QuantileNearest, 3},
		{"p0", 0, QuantileNearest, 1},
		{"p100", 1, QuantileNearest, 4},
		{"p50 linear", 0.5, QuantileLinear, 2.5},
		{"p50 lower", 0.5, QuantileLower, 2},
		{"p50 higher", 0.5, QuantileHigher, 3},
		{"p50 midpoint", 0.5, QuantileMidpoint, 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Quantile(Col("x"), tt.p).Interpolation(tt.method)
			got, err := ApplyGroupByAndAggregate(tbl, nil, []Expr{a})
			require.NoError(t, err)
			assert.Equal(t, frame.Float(tt.want), got.ColumnAt(0).Get(0))
		})
	}
}

func TestEmptyGroupPolicies(t *testing.T) {
	tbl := frame.MustTable(
		frame.FromInt64s("k", []int64{1, 2}, nil),
		frame.FromFloat64s("v", []float64{0, 7}, []bool{false, true}),
	)

	got, err := ApplyGroupByAndAggregate(tbl, []Expr{Col("k")}, []Expr{Sum(Col("v"))})
	require.NoError(t, err)
	assert.Equal(t, []frame.Value{frame.Null(frame.Float64), frame.Float(7)}, got.ColumnAt(1).Values())

	got, err = ApplyGroupByAndAggregate(tbl, []Expr{Col("k")}, []Expr{Sum(Col("v")).OrZero()})
	require.NoError(t, err)
	assert.Equal(t, []frame.Value{frame.Float(0), frame.Float(7)}, got.ColumnAt(1).Values())

	_, err = ApplyGroupByAndAggregate(tbl, []Expr{Col("k")}, []Expr{Quantile(Col("v"), 0.5)})
	assert.ErrorIs(t, err, ErrEmptyGroupQuantile)
}

func TestAggregateOverEmptyInput(t *testing.T) {
	tbl := frame.EmptyTable(frame.Schema{{Name: "v", Type: frame.Int64}})

	got, err := ApplyGroupByAndAggregate(tbl, nil, []Expr{Sum(Col("v")), Alias(CountAll(), "n")})
	require.NoError(t, err)
	require.Equal(t, 1, got.NumRows())
	assert.Equal(t, frame.Null(frame.Int64), got.ColumnAt(0).Get(0))
	assert.Equal(t, frame.Int(0), got.ColumnAt(1).Get(0))

	got, err = ApplyGroupByAndAggregate(tbl, []Expr{Col("v")}, []Expr{Alias(CountAll(), "n")})
	require.NoError(t, err)
	assert.Equal(t, 0, got.NumRows())
}

func TestAggregateErrors(t *testing.T) {
	tbl := frame.MustTable(
		frame.FromInt64s("k", []int64{1, 2}, nil),
		frame.FromInt64s("v", []int64{3, 4}, nil),
		frame.FromStrings("s", []string{"a", "b"}, nil),
	)

	tests := []struct {
		name string
		aggs []Expr
		want error
	}{
		{"bare non-key column", []Expr{Col("v")}, ErrNotAggregated},
		{"non-key inside arithmetic", []Expr{Add(Sum(Col("v")), Col("v"))}, ErrNotAggregated},
		{"sum of strings", []Expr{Sum(Col("s"))}, ErrTypeMismatch},
		{"window inside aggregation", []Expr{Rank(Col("v"), false)}, ErrInvalidAggregateContext},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ApplyGroupByAndAggregate(tbl, []Expr{Col("k")}, tt.aggs)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAggregateKeyReference(t *testing.T) {
	tbl := frame.MustTable(
		frame.FromInt64s("k", []int64{1, 2, 1}, nil),
		frame.FromInt64s("v", []int64{3, 4, 5}, nil),
	)

	got, err := ApplyGroupByAndAggregate(tbl, []Expr{Col("k")}, []Expr{
		Alias(Add(Col("k"), Sum(Col("v"))), "k_plus_total"),
	})
	require.NoError(t, err)
	c, err := got.Column("k_plus_total")
	require.NoError(t, err)
	assert.Equal(t, []frame.Value{frame.Int(9), frame.Int(6)}, c.Values())
}

func TestAggregateWildcard(t *testing.T) {
	tbl := frame.MustTable(
		frame.FromStrings("k", []string{"a", "a", "b"}, nil),
		frame.FromInt64s("x", []int64{1, 2, 3}, nil),
		frame.FromFloat64s("y", []float64{0.5, 0.5, 1}, nil),
	)

	got, err := ApplyGroupByAndAggregate(tbl, []Expr{Col("k")}, []Expr{Sum(All())})
	require.NoError(t, err)
	assert.Equal(t, []string{"k", "x", "y"}, got.ColumnNames())
	x, _ := got.Column("x")
	y, _ := got.Column("y")
	assert.Equal(t, []frame.Value{frame.Int(3), frame.Int(3)}, x.Values())
	assert.Equal(t, []frame.Value{frame.Float(1), frame.Float(1)}, y.Values())
}

func TestParseQuantileMethod(t *testing.T) {
	m, err := ParseQuantileMethod("linear")
	require.NoError(t, err)
	assert.Equal(t, QuantileLinear, m)

	_, err = ParseQuantileMethod("cubic")
	assert.Error(t, err)
}

func TestParseAggKind(t *testing.T) {
	for kind, name := range aggNames {
		got, err := ParseAggKind(name)
		require.NoError(t, err)
		assert.Equal(t, kind, got)
	}

	got, err := ParseAggKind(" Mean ")
	require.NoError(t, err)
	assert.Equal(t, AggMean, got)

	_, err = ParseAggKind("mode")
	assert.ErrorIs(t, err, ErrInvalidPlan)
}
