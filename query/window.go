package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vegasq/lazytab/frame"
)

// Window expressions compute one value per input row from the rows around
// it. They operate on the materialized order of their input, so callers sort
// first when order matters.

// WindowKind identifies a window function
type WindowKind int

const (
	WindowRank WindowKind = iota
	WindowShift
)

// RankMethod decides how ties are ranked
type RankMethod int

const (
	// RankOrdinal gives tied values distinct ranks in row order
	RankOrdinal RankMethod = iota
	// RankDense gives tied values the same rank with no gaps after them
	RankDense
	// RankMin gives tied values the lowest rank of the tie
	RankMin
)

var rankMethodNames = map[RankMethod]string{RankOrdinal: "ordinal", RankDense: "dense", RankMin: "min"}

func (m RankMethod) String() string {
	if s, ok := rankMethodNames[m]; ok {
		return s
	}
	return fmt.Sprintf("RankMethod(%d)", int(m))
}

// ParseRankMethod parses "ordinal", "dense" or "min"
func ParseRankMethod(name string) (RankMethod, error) {
	for m, s := range rankMethodNames {
		if s == name {
			return m, nil
		}
	}
	return RankOrdinal, fmt.Errorf("%w: unknown rank method %q", ErrInvalidPlan, name)
}

// WindowExpr is a window function over X, optionally restricted to rows
// sharing the values of the partition columns.
type WindowExpr struct {
	Kind      WindowKind
	X         Expr
	Partition []string

	desc   bool
	method RankMethod
	n      int
}

// Rank ranks the values of x from 1. Ties are broken by row position; null
// values get a null rank.
func Rank(x Expr, desc bool) *WindowExpr {
	return &WindowExpr{Kind: WindowRank, X: x, desc: desc}
}

// Shift moves values n rows down: each row takes the value from n rows
// earlier and the first n rows become null. A negative n shifts up.
func Shift(x Expr, n int) *WindowExpr {
	return &WindowExpr{Kind: WindowShift, X: x, n: n}
}

// Over restricts the window to rows with equal values in the given columns.
// Row positions are preserved.
func (w *WindowExpr) Over(cols ...string) *WindowExpr {
	cp := *w
	cp.Partition = append([]string(nil), cols...)
	return &cp
}

// Method sets how a rank resolves ties
func (w *WindowExpr) Method(m RankMethod) *WindowExpr {
	cp := *w
	cp.method = m
	return &cp
}

func (w *WindowExpr) String() string {
	var s string
	switch w.Kind {
	case WindowRank:
		order := "asc"
		if w.desc {
			order = "desc"
		}
		s = fmt.Sprintf("rank(%s, %s, %s)", w.X, order, w.method)
	default:
		s = fmt.Sprintf("shift(%s, %d)", w.X, w.n)
	}
	if len(w.Partition) > 0 {
		s += ".over(" + strings.Join(w.Partition, ", ") + ")"
	}
	return s
}

func (w *WindowExpr) outputName() string { return w.X.outputName() }
func (w *WindowExpr) children() []Expr   { return []Expr{w.X} }

func (w *WindowExpr) resolveType(s frame.Schema) (frame.DataType, error) {
	if containsAggregate(w.X) {
		return frame.Unknown, fmt.Errorf("%w: aggregate inside window %s", ErrInvalidAggregateContext, w)
	}
	t, err := w.X.resolveType(s)
	if err != nil {
		return frame.Unknown, err
	}
	for _, p := range w.Partition {
		if _, err := s.Lookup(p); err != nil {
			return frame.Unknown, err
		}
	}
	if w.Kind == WindowRank {
		return frame.Int64, nil
	}
	return t, nil
}

func (w *WindowExpr) eval(ctx *evalContext) (*frame.Column, error) {
	if ctx.groups != nil {
		return nil, fmt.Errorf("%w: window %s inside an aggregation", ErrInvalidAggregateContext, w)
	}
	n := ctx.table.NumRows()
	src, err := w.X.eval(ctx)
	if err != nil {
		return nil, err
	}
	if src, err = broadcast(src, n); err != nil {
		return nil, err
	}

	keys := make([]*frame.Column, len(w.Partition))
	for i, name := range w.Partition {
		if keys[i], err = ctx.table.Column(name); err != nil {
			return nil, err
		}
	}
	partitions, _ := partitionRows(keys, n)

	switch w.Kind {
	case WindowRank:
		return w.computeRank(src, partitions), nil
	case WindowShift:
		return w.computeShift(src, partitions), nil
	}
	return nil, fmt.Errorf("%w: unsupported window %d", ErrInvalidPlan, w.Kind)
}

// computeRank ranks each partition independently
func (w *WindowExpr) computeRank(src *frame.Column, partitions [][]int) *frame.Column {
	ranks := make([]int64, src.Len())
	valid := make([]bool, src.Len())
	for _, rows := range partitions {
		ordered := make([]int, 0, len(rows))
		for _, i := range rows {
			if !src.IsNull(i) {
				ordered = append(ordered, i)
			}
		}
		sort.SliceStable(ordered, func(a, b int) bool {
			c := frame.CompareValues(src.Get(ordered[a]), src.Get(ordered[b]))
			if w.desc {
				return c > 0
			}
			return c < 0
		})

		var rank int64
		for pos, i := range ordered {
			tied := pos > 0 && frame.CompareValues(src.Get(i), src.Get(ordered[pos-1])) == 0
			switch {
			case w.method == RankOrdinal:
				rank = int64(pos + 1)
			case w.method == RankDense && !tied:
				rank++
			case w.method == RankMin && !tied:
				rank = int64(pos + 1)
			}
			ranks[i] = rank
			valid[i] = true
		}
	}
	return frame.FromInt64s(src.Name(), ranks, valid)
}

// computeShift gathers, for every row, the row n positions earlier in its
// partition
func (w *WindowExpr) computeShift(src *frame.Column, partitions [][]int) *frame.Column {
	idx := make([]int, src.Len())
	for _, rows := range partitions {
		for k, i := range rows {
			from := k - w.n
			if from >= 0 && from < len(rows) {
				idx[i] = rows[from]
			} else {
				idx[i] = -1
			}
		}
	}
	return src.Take(idx)
}
