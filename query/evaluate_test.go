package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/lazytab/frame"
)

func sampleTable() *frame.Table {
	return frame.MustTable(
		frame.FromInt64s("id", []int64{1, 2, 3, 4}, nil),
		frame.FromFloat64s("price", []float64{10, 20, 0, 40}, []bool{true, true, false, true}),
		frame.FromStrings("name", []string{"apple", "banana", "cherry", "date"}, nil),
		frame.FromBools("active", []bool{true, false, true, false}, []bool{true, true, false, true}),
	)
}

func TestEvaluate(t *testing.T) {
	tbl := sampleTable()

	tests := []struct {
		name     string
		expr     Expr
		wantName string
		wantType frame.DataType
		want     []frame.Value
	}{
		{
			name:     "column",
			expr:     Col("id"),
			wantName: "id",
			wantType: frame.Int64,
			want:     []frame.Value{frame.Int(1), frame.Int(2), frame.Int(3), frame.Int(4)},
		},
		{
			name:     "literal broadcast",
			expr:     Lit(int64(7)),
			wantName: "literal",
			wantType: frame.Int64,
			want:     []frame.Value{frame.Int(7), frame.Int(7), frame.Int(7), frame.Int(7)},
		},
		{
			name:     "arithmetic takes left-most name",
			expr:     Mul(Col("price"), Lit(2)),
			wantName: "price",
			wantType: frame.Float64,
			want:     []frame.Value{frame.Float(20), frame.Float(40), frame.Null(frame.Float64), frame.Float(80)},
		},
		{
			name:     "division of ints is float",
			expr:     Div(Col("id"), Lit(2)),
			wantName: "id",
			wantType: frame.Float64,
			want:     []frame.Value{frame.Float(0.5), frame.Float(1), frame.Float(1.5), frame.Float(2)},
		},
		{
			name:     "comparison propagates null",
			expr:     Gt(Col("price"), Lit(15)),
			wantName: "price",
			wantType: frame.Boolean,
			want:     []frame.Value{frame.Bool(false), frame.Bool(true), frame.Null(frame.Boolean), frame.Bool(true)},
		},
		{
			name:     "kleene and",
			expr:     And(Col("active"), Gt(Col("id"), Lit(1))),
			wantName: "active",
			wantType: frame.Boolean,
			want:     []frame.Value{frame.Bool(false), frame.Bool(false), frame.Null(frame.Boolean), frame.Bool(false)},
		},
		{
			name:     "kleene or",
			expr:     Or(Col("active"), Eq(Col("id"), Lit(3))),
			wantName: "active",
			wantType: frame.Boolean,
			want:     []frame.Value{frame.Bool(true), frame.Bool(false), frame.Bool(true), frame.Bool(false)},
		},
		{
			name:     "alias",
			expr:     Alias(Add(Col("id"), Lit(1)), "next"),
			wantName: "next",
			wantType: frame.Int64,
			want:     []frame.Value{frame.Int(2), frame.Int(3), frame.Int(4), frame.Int(5)},
		},
		{
			name:     "is null",
			expr:     IsNull(Col("price")),
			wantName: "price",
			wantType: frame.Boolean,
			want:     []frame.Value{frame.Bool(false), frame.Bool(false), frame.Bool(true), frame.Bool(false)},
		},
		{
			name:     "negate",
			expr:     Neg(Col("id")),
			wantName: "id",
			wantType: frame.Int64,
			want:     []frame.Value{frame.Int(-1), frame.Int(-2), frame.Int(-3), frame.Int(-4)},
		},
		{
			name:     "is in",
			expr:     IsIn(Col("name"), "apple", "date"),
			wantName: "name",
			wantType: frame.Boolean,
			want:     []frame.Value{frame.Bool(true), frame.Bool(false), frame.Bool(false), frame.Bool(true)},
		},
		{
			name:     "not in keeps null",
			expr:     NotIn(Col("price"), 10, 40),
			wantName: "price",
			wantType: frame.Boolean,
			want:     []frame.Value{frame.Bool(false), frame.Bool(true), frame.Null(frame.Boolean), frame.Bool(false)},
		},
		{
			name:     "between",
			expr:     Between(Col("id"), Lit(2), Lit(3)),
			wantName: "id",
			wantType: frame.Boolean,
			want:     []frame.Value{frame.Bool(false), frame.Bool(true), frame.Bool(true), frame.Bool(false)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.expr, tbl)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, got.Name())
			assert.Equal(t, tt.wantType, got.Type())
			assert.Equal(t, tt.want, got.Values())

			typ, err := TypeOf(tt.expr, tbl.Schema())
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, typ)
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	tbl := sampleTable()

	tests := []struct {
		name string
		expr Expr
		want error
	}{
		{"unknown column", Col("missing"), ErrUnknownColumn},
		{"string arithmetic", Add(Col("name"), Lit(1)), ErrTypeMismatch},
		{"compare string to int", Eq(Col("name"), Lit(1)), ErrTypeMismatch},
		{"and on ints", And(Col("id"), Col("id")), ErrTypeMismatch},
		{"aggregate in row context", Sum(Col("id")), ErrInvalidAggregateContext},
		{"nested aggregate", Add(Col("id"), Mean(Col("price"))), ErrInvalidAggregateContext},
		{"strict cast of text", Cast(Col("name"), frame.Int64), ErrTypeMismatch},
		{"wildcard outside projection", Add(All(), Lit(1)), ErrInvalidPlan},
		{"unknown function", Call("no_such_fn", Col("id")), ErrInvalidPlan},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(tt.expr, tbl)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestConditionalNullPolicy(t *testing.T) {
	tbl := frame.MustTable(
		frame.FromBools("flag", []bool{true, false, false}, []bool{true, true, false}),
	)

	propagate := When(Col("flag")).Then(Lit("yes")).Otherwise(Lit("no"))
	got, err := Evaluate(propagate, tbl)
	require.NoError(t, err)
	assert.Equal(t, []frame.Value{frame.Str("yes"), frame.Str("no"), frame.Null(frame.Utf8)}, got.Values())

	asFalse := When(Col("flag")).Then(Lit("yes")).Otherwise(Lit("no")).NullAsFalse()
	got, err = Evaluate(asFalse, tbl)
	require.NoError(t, err)
	assert.Equal(t, []frame.Value{frame.Str("yes"), frame.Str("no"), frame.Str("no")}, got.Values())
}

func TestConditionalUnifiesBranches(t *testing.T) {
	tbl := frame.MustTable(frame.FromInt64s("n", []int64{1, 5}, nil))

	e := When(Gt(Col("n"), Lit(2))).Then(Col("n")).Otherwise(Lit(0.5))
	got, err := Evaluate(e, tbl)
	require.NoError(t, err)
	assert.Equal(t, frame.Float64, got.Type())
	assert.Equal(t, "n", got.Name())
	assert.Equal(t, []frame.Value{frame.Float(0.5), frame.Float(5)}, got.Values())

	_, err = Evaluate(When(Lit(true)).Then(Lit("a")).Otherwise(Lit(1)), tbl)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestCastAndTryCast(t *testing.T) {
	tbl := frame.MustTable(frame.FromStrings("raw", []string{"1", "x", "3"}, nil))

	got, err := Evaluate(TryCast(Col("raw"), frame.Int64), tbl)
	require.NoError(t, err)
	assert.Equal(t, []frame.Value{frame.Int(1), frame.Null(frame.Int64), frame.Int(3)}, got.Values())

	_, err = Evaluate(Cast(Col("raw"), frame.Int64), tbl)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = TypeOf(Cast(Lit(true), frame.Date), tbl.Schema())
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestMapSeesNulls(t *testing.T) {
	tbl := frame.MustTable(frame.FromInt64s("n", []int64{1, 0, 3}, []bool{true, false, true}))

	e := Map(Col("n"), frame.Utf8, func(v frame.Value) (frame.Value, error) {
		if !v.Valid {
			return frame.Str("missing"), nil
		}
		return frame.Str(v.String()), nil
	})
	got, err := Evaluate(e, tbl)
	require.NoError(t, err)
	assert.Equal(t, "n", got.Name())
	assert.Equal(t, []frame.Value{frame.Str("1"), frame.Str("missing"), frame.Str("3")}, got.Values())
}

func TestExpressionStrings(t *testing.T) {
	tests := []struct {
		expr Expr
		want string
	}{
		{Col("a"), "col(a)"},
		{Alias(Col("a"), "b"), "col(a) AS b"},
		{Add(Col("a"), Col("b")), "(col(a) + col(b))"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.expr.String())
	}
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		expr Expr
		want string
	}{
		{Sub(Lit(1), Col("b")), "literal"},
		{Call("upper", Col("name")), "name"},
		{Call("greatest", Lit(1), Col("x")), "literal"},
		{CountAll(), "count"},
		{Rank(Col("score"), true), "score"},
		{When(Col("p")).Then(Col("t")).Otherwise(Col("o")), "t"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, OutputName(tt.expr), tt.expr.String())
	}
}
