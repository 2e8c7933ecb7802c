package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/lazytab/frame"
)

func TestApplyOrderBy(t *testing.T) {
	tbl := frame.MustTable(
		frame.FromStrings("name", []string{"carol", "alice", "bob", "dave", "erin"}, nil),
		frame.FromInt64s("age", []int64{25, 30, 25, 0, 30}, []bool{true, true, true, false, true}),
	)
	names := func(vals ...string) []frame.Value {
		out := make([]frame.Value, len(vals))
		for i, v := range vals {
			out[i] = frame.Str(v)
		}
		return out
	}

	tests := []struct {
		name string
		keys []SortKey
		want []frame.Value
	}{
		{"ascending nulls first, stable ties", []SortKey{Asc("age")}, names("dave", "carol", "bob", "alice", "erin")},
		{"descending nulls still first", []SortKey{Desc("age")}, names("dave", "alice", "erin", "carol", "bob")},
		{"ascending nulls last", []SortKey{Asc("age").WithNullsLast()}, names("carol", "bob", "alice", "erin", "dave")},
		{"descending nulls last", []SortKey{Desc("age").WithNullsLast()}, names("alice", "erin", "carol", "bob", "dave")},
		{"two keys", []SortKey{Asc("age"), Desc("name")}, names("dave", "carol", "bob", "erin", "alice")},
		{"by expression", []SortKey{By(Call("length", Col("name")), false), Asc("name")}, names("bob", "dave", "erin", "alice", "carol")},
		{"no keys", nil, names("carol", "alice", "bob", "dave", "erin")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyOrderBy(tbl, tt.keys)
			require.NoError(t, err)
			assert.Equal(t, tt.want, columnValues(t, got, "name"))
		})
	}

	_, err := ApplyOrderBy(tbl, []SortKey{Asc("missing")})
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestApplyLimitOffset(t *testing.T) {
	tbl := frame.MustTable(frame.FromInt64s("n", []int64{0, 1, 2, 3, 4}, nil))

	tests := []struct {
		name           string
		offset, length int
		want           []int64
	}{
		{"head", 0, 2, []int64{0, 1}},
		{"middle", 1, 3, []int64{1, 2, 3}},
		{"over length clips", 3, 10, []int64{3, 4}},
		{"offset past end", 7, 2, []int64{}},
		{"zero length", 2, 0, []int64{}},
		{"negative offset", -2, 5, []int64{3, 4}},
		{"negative offset beyond start", -9, 2, []int64{0, 1}},
		{"negative length means rest", 2, -1, []int64{2, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyLimitOffset(tbl, tt.offset, tt.length)
			want := make([]frame.Value, len(tt.want))
			for i, v := range tt.want {
				want[i] = frame.Int(v)
			}
			assert.Equal(t, want, columnValues(t, got, "n"))
		})
	}
}

func TestSliceReconstructsInput(t *testing.T) {
	tbl := frame.MustTable(
		frame.FromInt64s("n", []int64{5, 6, 7, 8, 9, 10, 11}, nil),
		frame.FromStrings("s", []string{"a", "b", "c", "d", "e", "f", "g"}, nil),
	)

	for k := 0; k <= tbl.NumRows(); k++ {
		head := ApplyLimitOffset(tbl, 0, k)
		tail := ApplyLimitOffset(tbl, k, tbl.NumRows())
		joined, err := ApplyConcat([]*frame.Table{head, tail})
		require.NoError(t, err)
		assert.True(t, tbl.Equal(joined), "split at %d", k)
	}
}

func TestApplyDistinct(t *testing.T) {
	tbl := frame.MustTable(
		frame.FromStrings("k", []string{"a", "b", "a", "c", "b", ""}, []bool{true, true, true, true, true, false}),
		frame.FromInt64s("v", []int64{1, 2, 3, 4, 5, 6}, nil),
	)

	tests := []struct {
		name   string
		subset []string
		keep   KeepStrategy
		wantV  []int64
	}{
		{"keep first", []string{"k"}, KeepFirst, []int64{1, 2, 4, 6}},
		{"keep last in first-seen order", []string{"k"}, KeepLast, []int64{3, 5, 4, 6}},
		{"keep none", []string{"k"}, KeepNone, []int64{4, 6}},
		{"all columns", nil, KeepFirst, []int64{1, 2, 3, 4, 5, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyDistinct(tbl, tt.subset, tt.keep)
			require.NoError(t, err)
			want := make([]frame.Value, len(tt.wantV))
			for i, v := range tt.wantV {
				want[i] = frame.Int(v)
			}
			assert.Equal(t, want, columnValues(t, got, "v"))
		})
	}

	_, err := ApplyDistinct(tbl, []string{"nope"}, KeepFirst)
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestParseKeepStrategy(t *testing.T) {
	for _, k := range []KeepStrategy{KeepFirst, KeepLast, KeepNone} {
		got, err := ParseKeepStrategy(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKeepStrategy("any")
	assert.ErrorIs(t, err, ErrInvalidPlan)
}

func TestApplyConcat(t *testing.T) {
	a := frame.MustTable(frame.FromInt64s("x", []int64{1, 2}, nil))
	b := frame.MustTable(frame.FromInt64s("x", []int64{3}, []bool{false}))

	got, err := ApplyConcat([]*frame.Table{a, b})
	require.NoError(t, err)
	assert.Equal(t, []frame.Value{frame.Int(1), frame.Int(2), frame.Null(frame.Int64)}, columnValues(t, got, "x"))

	tests := []struct {
		name  string
		other *frame.Table
	}{
		{"different type", frame.MustTable(frame.FromFloat64s("x", []float64{1}, nil))},
		{"different name", frame.MustTable(frame.FromInt64s("y", []int64{1}, nil))},
		{"extra column", frame.MustTable(frame.FromInt64s("x", []int64{1}, nil), frame.FromInt64s("y", []int64{1}, nil))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ApplyConcat([]*frame.Table{a, tt.other})
			assert.ErrorIs(t, err, ErrSchemaMismatch)
		})
	}
}
