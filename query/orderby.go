package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vegasq/lazytab/frame"
)

// SortKey is one key of a multi-key sort
type SortKey struct {
	Expr       Expr
	Descending bool
	// NullsLast places nulls after all values; otherwise nulls come first in
	// both directions.
	NullsLast bool
}

// Asc sorts by a column in ascending order
func Asc(name string) SortKey { return SortKey{Expr: Col(name)} }

// Desc sorts by a column in descending order
func Desc(name string) SortKey { return SortKey{Expr: Col(name), Descending: true} }

// By sorts by an arbitrary expression
func By(e Expr, descending bool) SortKey { return SortKey{Expr: e, Descending: descending} }

// WithNullsLast returns a copy of the key that sorts nulls last
func (k SortKey) WithNullsLast() SortKey {
	k.NullsLast = true
	return k
}

func (k SortKey) String() string {
	var sb strings.Builder
	sb.WriteString(k.Expr.String())
	if k.Descending {
		sb.WriteString(" DESC")
	}
	if k.NullsLast {
		sb.WriteString(" NULLS LAST")
	}
	return sb.String()
}

// ApplyOrderBy sorts rows by the keys. The sort is stable: rows that compare
// equal on every key keep their input order.
func ApplyOrderBy(t *frame.Table, keys []SortKey) (*frame.Table, error) {
	if t.NumRows() < 2 || len(keys) == 0 {
		return t, nil
	}
	cols := make([]*frame.Column, len(keys))
	for i, k := range keys {
		col, err := Evaluate(k.Expr, t)
		if err != nil {
			return nil, fmt.Errorf("sort key %s: %w", k.Expr, err)
		}
		cols[i] = col
	}

	perm := make([]int, t.NumRows())
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		for k, key := range keys {
			if c := compareSortKey(cols[k], perm[a], perm[b], key); c != 0 {
				return c < 0
			}
		}
		return false
	})
	return t.Take(perm), nil
}

// compareSortKey orders two rows of a key column, applying direction to
// values and the null placement independently of it
func compareSortKey(col *frame.Column, i, j int, key SortKey) int {
	ni, nj := col.IsNull(i), col.IsNull(j)
	switch {
	case ni && nj:
		return 0
	case ni || nj:
		c := 1
		if ni {
			c = -1
		}
		if key.NullsLast {
			c = -c
		}
		return c
	}
	c := frame.CompareValues(col.Get(i), col.Get(j))
	if key.Descending {
		c = -c
	}
	return c
}

// ApplyLimitOffset returns rows [offset, offset+length), clipped to the
// table. A negative offset counts from the end; a negative length means to
// the end.
func ApplyLimitOffset(t *frame.Table, offset, length int) *frame.Table {
	n := t.NumRows()
	if offset < 0 {
		offset = max(0, n+offset)
	}
	if offset == 0 && (length < 0 || length >= n) {
		return t
	}
	return t.Slice(offset, length)
}

// KeepStrategy decides which row of a set of duplicates Unique keeps
type KeepStrategy int

const (
	// KeepFirst keeps the first row of each set of duplicates
	KeepFirst KeepStrategy = iota
	// KeepLast keeps the last row of each set of duplicates
	KeepLast
	// KeepNone drops every row that has a duplicate
	KeepNone
)

var keepNames = map[KeepStrategy]string{KeepFirst: "first", KeepLast: "last", KeepNone: "none"}

func (k KeepStrategy) String() string {
	if s, ok := keepNames[k]; ok {
		return s
	}
	return fmt.Sprintf("KeepStrategy(%d)", int(k))
}

// ParseKeepStrategy parses "first", "last" or "none"
func ParseKeepStrategy(name string) (KeepStrategy, error) {
	for k, s := range keepNames {
		if s == name {
			return k, nil
		}
	}
	return KeepFirst, fmt.Errorf("%w: unknown keep strategy %q", ErrInvalidPlan, name)
}

// ApplyDistinct removes duplicate rows, comparing the subset columns (all
// columns when empty). Null equals null. Kept rows come out in the order in
// which their values were first seen.
func ApplyDistinct(t *frame.Table, subset []string, keep KeepStrategy) (*frame.Table, error) {
	cols, err := subsetColumns(t, subset)
	if err != nil {
		return nil, err
	}
	groups, _ := partitionRows(cols, t.NumRows())
	if len(cols) == 0 {
		// a table without columns has at most one distinct row
		groups = groups[:min(len(groups), t.NumRows())]
	}

	rows := make([]int, 0, len(groups))
	for _, g := range groups {
		switch keep {
		case KeepFirst:
			rows = append(rows, g[0])
		case KeepLast:
			rows = append(rows, g[len(g)-1])
		case KeepNone:
			if len(g) == 1 {
				rows = append(rows, g[0])
			}
		}
	}
	if len(rows) == t.NumRows() {
		return t, nil
	}
	return t.Take(rows), nil
}

// ApplyConcat stacks tables with identical schemas vertically
func ApplyConcat(tables []*frame.Table) (*frame.Table, error) {
	return frame.ConcatTables(tables...)
}
