package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/lazytab/frame"
)

func joinTables() (users, orders *frame.Table) {
	users = frame.MustTable(
		frame.FromInt64s("id", []int64{1, 2, 3, 0}, []bool{true, true, true, false}),
		frame.FromStrings("name", []string{"ann", "ben", "cid", "nil"}, nil),
	)
	orders = frame.MustTable(
		frame.FromInt64s("user_id", []int64{2, 1, 2, 9, 0}, []bool{true, true, true, true, false}),
		frame.FromFloat64s("total", []float64{5, 7, 11, 13, 17}, nil),
		frame.FromStrings("name", []string{"o1", "o2", "o3", "o4", "o5"}, nil),
	)
	return users, orders
}

func TestApplyJoin(t *testing.T) {
	users, orders := joinTables()
	on := func(kind JoinType) JoinSpec {
		return JoinSpec{Kind: kind, LeftOn: Cols("id"), RightOn: Cols("user_id")}
	}

	t.Run("inner", func(t *testing.T) {
		got, err := ApplyJoin(users, orders, on(JoinInner))
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "name", "total", "name_right"}, got.ColumnNames())
		assert.Equal(t, []frame.Value{frame.Int(1), frame.Int(2), frame.Int(2)}, columnValues(t, got, "id"))
		assert.Equal(t, []frame.Value{frame.Float(7), frame.Float(5), frame.Float(11)}, columnValues(t, got, "total"))
	})

	t.Run("left", func(t *testing.T) {
		got, err := ApplyJoin(users, orders, on(JoinLeft))
		require.NoError(t, err)
		assert.Equal(t, 5, got.NumRows())
		assert.Equal(t, []frame.Value{
			frame.Str("ann"), frame.Str("ben"), frame.Str("ben"), frame.Str("cid"), frame.Str("nil"),
		}, columnValues(t, got, "name"))
		assert.Equal(t, []frame.Value{
			frame.Float(7), frame.Float(5), frame.Float(11), frame.Null(frame.Float64), frame.Null(frame.Float64),
		}, columnValues(t, got, "total"))
	})

	t.Run("nulls equal", func(t *testing.T) {
		spec := on(JoinInner)
		JoinNullsEqual()(&spec)
		got, err := ApplyJoin(users, orders, spec)
		require.NoError(t, err)
		assert.Equal(t, 4, got.NumRows())
		assert.Equal(t, frame.Str("o5"), columnValues(t, got, "name_right")[3])
	})

	t.Run("custom suffix", func(t *testing.T) {
		spec := on(JoinInner)
		JoinSuffix("_o")(&spec)
		got, err := ApplyJoin(users, orders, spec)
		require.NoError(t, err)
		assert.Contains(t, got.ColumnNames(), "name_o")
	})

	t.Run("cross", func(t *testing.T) {
		got, err := ApplyJoin(users, orders, JoinSpec{Kind: JoinCross, Suffix: "_r"})
		require.NoError(t, err)
		assert.Equal(t, users.NumRows()*orders.NumRows(), got.NumRows())
		assert.Equal(t, []string{"id", "name", "user_id", "total", "name_r"}, got.ColumnNames())
	})
}

func TestJoinCardinality(t *testing.T) {
	left := frame.MustTable(frame.FromInt64s("k", []int64{1, 1, 2, 3}, nil))
	right := frame.MustTable(
		frame.FromInt64s("k", []int64{1, 1, 1, 2, 4}, nil),
		frame.FromInt64s("r", []int64{10, 11, 12, 20, 40}, nil),
	)

	tests := []struct {
		kind JoinType
		want int
	}{
		// 2 left rows x 3 matches + 1 x 1
		{JoinInner, 7},
		// unmatched k=3 kept once
		{JoinLeft, 8},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			got, err := ApplyJoin(left, right, JoinSpec{Kind: tt.kind, LeftOn: Cols("k"), RightOn: Cols("k")})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.NumRows())
			assert.Equal(t, []string{"k", "r"}, got.ColumnNames())
		})
	}
}

func TestJoinNumericKeysMix(t *testing.T) {
	left := frame.MustTable(frame.FromInt64s("k", []int64{1, 2}, nil))
	right := frame.MustTable(
		frame.FromFloat64s("fk", []float64{2, 1.5}, nil),
		frame.FromStrings("tag", []string{"two", "one and a half"}, nil),
	)

	got, err := ApplyJoin(left, right, JoinSpec{Kind: JoinInner, LeftOn: Cols("k"), RightOn: Cols("fk")})
	require.NoError(t, err)
	assert.Equal(t, []frame.Value{frame.Str("two")}, columnValues(t, got, "tag"))
}

func TestJoinNumericKeysExact(t *testing.T) {
	big := int64(1) << 53
	left := frame.MustTable(frame.FromInt64s("k", []int64{big + 1, big, -7}, nil))
	right := frame.MustTable(
		frame.FromFloat64s("fk", []float64{float64(big), -7, 1e300}, nil),
		frame.FromStrings("tag", []string{"big", "neg", "huge"}, nil),
	)

	got, err := ApplyJoin(left, right, JoinSpec{Kind: JoinLeft, LeftOn: Cols("k"), RightOn: Cols("fk")})
	require.NoError(t, err)
	assert.Equal(t, []frame.Value{frame.Null(frame.Utf8), frame.Str("big"), frame.Str("neg")}, columnValues(t, got, "tag"))
}

func TestJoinErrors(t *testing.T) {
	users, orders := joinTables()

	tests := []struct {
		name string
		spec JoinSpec
		want error
	}{
		{"cross with keys", JoinSpec{Kind: JoinCross, LeftOn: Cols("id"), RightOn: Cols("user_id")}, ErrInvalidJoin},
		{"inner without keys", JoinSpec{Kind: JoinInner}, ErrInvalidJoin},
		{"unbalanced keys", JoinSpec{Kind: JoinInner, LeftOn: Cols("id", "name"), RightOn: Cols("user_id")}, ErrInvalidJoin},
		{"key type mismatch", JoinSpec{Kind: JoinInner, LeftOn: Cols("name"), RightOn: Cols("user_id")}, ErrTypeMismatch},
		{"unknown key", JoinSpec{Kind: JoinLeft, LeftOn: Cols("ghost"), RightOn: Cols("user_id")}, ErrUnknownColumn},
		{"cross with own suffix", JoinSpec{Kind: JoinCross, Suffix: "_x"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ApplyJoin(users, orders, tt.spec)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}

	clash := frame.MustTable(
		frame.FromInt64s("id", []int64{1}, nil),
		frame.FromStrings("name", []string{"a"}, nil),
		frame.FromStrings("name_right", []string{"b"}, nil),
	)
	_, err := ApplyJoin(clash, orders, JoinSpec{Kind: JoinInner, LeftOn: Cols("id"), RightOn: Cols("user_id")})
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestParseJoinType(t *testing.T) {
	for _, name := range []string{"inner", "LEFT", "cross"} {
		_, err := ParseJoinType(name)
		assert.NoError(t, err, name)
	}
	_, err := ParseJoinType("outer")
	assert.ErrorIs(t, err, ErrInvalidJoin)
}

func TestDefaultJoinSuffix(t *testing.T) {
	SetDefaultJoinSuffix("_other")
	t.Cleanup(func() { SetDefaultJoinSuffix("") })

	users, orders := joinTables()
	got, err := ApplyJoin(users, orders, JoinSpec{Kind: JoinInner, LeftOn: Cols("id"), RightOn: Cols("user_id")})
	require.NoError(t, err)
	assert.Contains(t, got.ColumnNames(), "name_other")
}
