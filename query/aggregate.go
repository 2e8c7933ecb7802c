package query

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/vegasq/lazytab/frame"
)

// AggKind identifies a reduction
type AggKind int

const (
	AggSum AggKind = iota
	AggMean
	AggCount
	AggCountAll
	AggMin
	AggMax
	AggStd
	AggVar
	AggQuantile
	AggMedian
	AggFirst
	AggLast
	AggNUnique
)

var aggNames = map[AggKind]string{
	AggSum: "sum", AggMean: "mean", AggCount: "count", AggCountAll: "count_all",
	AggMin: "min", AggMax: "max", AggStd: "std", AggVar: "var",
	AggQuantile: "quantile", AggMedian: "median", AggFirst: "first",
	AggLast: "last", AggNUnique: "n_unique",
}

func (k AggKind) String() string {
	if s, ok := aggNames[k]; ok {
		return s
	}
	return fmt.Sprintf("AggKind(%d)", int(k))
}

// ParseAggKind parses an aggregate name such as "mean" or "n_unique"
func ParseAggKind(name string) (AggKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, s := range aggNames {
		if s == name {
			return k, nil
		}
	}
	return AggSum, fmt.Errorf("%w: unknown aggregate %q", ErrInvalidPlan, name)
}

// QuantileMethod picks how a quantile between two values is resolved
type QuantileMethod int

const (
	// QuantileNearest picks index round((n-1)*p), rounding half away from zero
	QuantileNearest QuantileMethod = iota
	// QuantileLinear interpolates between the neighbouring values
	QuantileLinear
	// QuantileLower picks the lower neighbour
	QuantileLower
	// QuantileHigher picks the higher neighbour
	QuantileHigher
	// QuantileMidpoint averages the neighbours
	QuantileMidpoint
)

var quantileMethodNames = map[QuantileMethod]string{
	QuantileNearest: "nearest", QuantileLinear: "linear", QuantileLower: "lower",
	QuantileHigher: "higher", QuantileMidpoint: "midpoint",
}

func (m QuantileMethod) String() string {
	if s, ok := quantileMethodNames[m]; ok {
		return s
	}
	return fmt.Sprintf("QuantileMethod(%d)", int(m))
}

// ParseQuantileMethod parses a method name such as "nearest" or "linear"
func ParseQuantileMethod(name string) (QuantileMethod, error) {
	for m, s := range quantileMethodNames {
		if s == name {
			return m, nil
		}
	}
	return QuantileNearest, fmt.Errorf("%w: unknown quantile method %q", ErrInvalidPlan, name)
}

// AggExpr reduces its operand to one value per group. The operand is
// evaluated once over the whole input and then reduced over each group's
// row indices.
type AggExpr struct {
	Kind AggKind
	X    Expr

	p         float64
	method    QuantileMethod
	ddof      int
	emptyZero bool
}

func agg(kind AggKind, x Expr) *AggExpr { return &AggExpr{Kind: kind, X: x} }

// Sum adds the non-null values. A group without values sums to null unless
// OrZero is set.
func Sum(x Expr) *AggExpr { return agg(AggSum, x) }

// Mean averages the non-null values
func Mean(x Expr) *AggExpr { return agg(AggMean, x) }

// Count counts the non-null values
func Count(x Expr) *AggExpr { return agg(AggCount, x) }

// CountAll counts rows, nulls included
func CountAll() *AggExpr { return agg(AggCountAll, nil) }

// Min returns the smallest non-null value
func Min(x Expr) *AggExpr { return agg(AggMin, x) }

// Max returns the largest non-null value
func Max(x Expr) *AggExpr { return agg(AggMax, x) }

// Std is the population standard deviation; see Ddof
func Std(x Expr) *AggExpr { return agg(AggStd, x) }

// Var is the population variance; see Ddof
func Var(x Expr) *AggExpr { return agg(AggVar, x) }

// Quantile returns the p-quantile of the non-null values using the nearest
// rank method. A group with no values fails with ErrEmptyGroupQuantile.
func Quantile(x Expr, p float64) *AggExpr {
	a := agg(AggQuantile, x)
	a.p = p
	return a
}

// Median is the linearly interpolated 0.5 quantile
func Median(x Expr) *AggExpr {
	a := agg(AggMedian, x)
	a.p = 0.5
	a.method = QuantileLinear
	return a
}

// First returns the value of the first row of the group, null or not
func First(x Expr) *AggExpr { return agg(AggFirst, x) }

// Last returns the value of the last row of the group
func Last(x Expr) *AggExpr { return agg(AggLast, x) }

// NUnique counts distinct values; null counts as one value
func NUnique(x Expr) *AggExpr { return agg(AggNUnique, x) }

// OrZero makes a sum over a group without values yield zero instead of null
func (a *AggExpr) OrZero() *AggExpr {
	cp := *a
	cp.emptyZero = true
	return &cp
}

// Ddof sets the delta degrees of freedom of Std and Var; 1 gives the sample
// statistic.
func (a *AggExpr) Ddof(ddof int) *AggExpr {
	cp := *a
	cp.ddof = ddof
	return &cp
}

// Interpolation sets the quantile method
func (a *AggExpr) Interpolation(m QuantileMethod) *AggExpr {
	cp := *a
	cp.method = m
	return &cp
}

func (a *AggExpr) String() string {
	switch a.Kind {
	case AggCountAll:
		return "count()"
	case AggQuantile:
		return fmt.Sprintf("quantile(%s, %g, %s)", a.X, a.p, a.method)
	case AggStd, AggVar:
		if a.ddof != 0 {
			return fmt.Sprintf("%s(%s, ddof=%d)", a.Kind, a.X, a.ddof)
		}
	case AggSum:
		if a.emptyZero {
			return fmt.Sprintf("sum(%s).or_zero()", a.X)
		}
	}
	return fmt.Sprintf("%s(%s)", a.Kind, a.X)
}

func (a *AggExpr) outputName() string {
	if a.X == nil {
		return "count"
	}
	return a.X.outputName()
}

func (a *AggExpr) children() []Expr {
	if a.X == nil {
		return nil
	}
	return []Expr{a.X}
}

func (a *AggExpr) resolveType(s frame.Schema) (frame.DataType, error) {
	if a.X == nil {
		return frame.Int64, nil
	}
	if containsAggregate(a.X) {
		return frame.Unknown, fmt.Errorf("%w: nested aggregate in %s", ErrInvalidAggregateContext, a)
	}
	if a.Kind == AggQuantile && (a.p < 0 || a.p > 1 || math.IsNaN(a.p)) {
		return frame.Unknown, fmt.Errorf("%w: quantile %g outside [0, 1]", ErrInvalidPlan, a.p)
	}
	t, err := a.X.resolveType(s)
	if err != nil {
		return frame.Unknown, err
	}
	return a.resultType(t)
}

func (a *AggExpr) resultType(t frame.DataType) (frame.DataType, error) {
	switch a.Kind {
	case AggSum:
		switch t {
		case frame.Int64, frame.Boolean, frame.Unknown:
			return frame.Int64, nil
		case frame.Float64:
			return frame.Float64, nil
		}
	case AggMean, AggStd, AggVar, AggQuantile, AggMedian:
		if t.IsNumeric() || t == frame.Unknown || (a.Kind == AggMean && t == frame.Boolean) {
			return frame.Float64, nil
		}
	case AggCount, AggCountAll, AggNUnique:
		return frame.Int64, nil
	case AggMin, AggMax, AggFirst, AggLast:
		return t, nil
	}
	return frame.Unknown, fmt.Errorf("%w: %s is not defined for %s", ErrTypeMismatch, a.Kind, t)
}

func (a *AggExpr) eval(ctx *evalContext) (*frame.Column, error) {
	if ctx.groups == nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAggregateContext, a)
	}
	groups := ctx.groups.rows
	if a.X == nil {
		counts := make([]int64, len(groups))
		for g, rows := range groups {
			counts[g] = int64(len(rows))
		}
		return frame.FromInt64s("count", counts, nil), nil
	}

	src, err := a.X.eval(ctx.rowContext())
	if err != nil {
		return nil, err
	}
	if src, err = broadcast(src, ctx.table.NumRows()); err != nil {
		return nil, err
	}
	outType, err := a.resultType(src.Type())
	if err != nil {
		return nil, err
	}

	b := frame.NewBuilder(src.Name(), outType, len(groups))
	for g, rows := range groups {
		v, err := a.reduce(src, rows, outType)
		if err != nil {
			return nil, fmt.Errorf("%s, group %d: %w", a, g, err)
		}
		if err := b.Append(v); err != nil {
			return nil, err
		}
	}
	return b.Finish(), nil
}

// reduce computes the aggregate over the given rows of src
func (a *AggExpr) reduce(src *frame.Column, rows []int, outType frame.DataType) (frame.Value, error) {
	switch a.Kind {
	case AggSum:
		return a.sum(src, rows, outType), nil
	case AggMean:
		sum, n := floatSum(src, rows)
		if n == 0 {
			return frame.Null(frame.Float64), nil
		}
		return frame.Float(sum / float64(n)), nil
	case AggCount:
		n := 0
		for _, i := range rows {
			if !src.IsNull(i) {
				n++
			}
		}
		return frame.Int(int64(n)), nil
	case AggMin, AggMax:
		best := frame.Null(outType)
		for _, i := range rows {
			v := src.Get(i)
			if !v.Valid {
				continue
			}
			c := frame.CompareValues(v, best)
			if !best.Valid || (a.Kind == AggMin && c < 0) || (a.Kind == AggMax && c > 0) {
				best = v
			}
		}
		return best, nil
	case AggStd, AggVar:
		return a.variance(src, rows), nil
	case AggQuantile, AggMedian:
		return quantile(src, rows, a.p, a.method)
	case AggFirst:
		if len(rows) == 0 {
			return frame.Null(outType), nil
		}
		return src.Get(rows[0]), nil
	case AggLast:
		if len(rows) == 0 {
			return frame.Null(outType), nil
		}
		return src.Get(rows[len(rows)-1]), nil
	case AggNUnique:
		seen := make(map[string]struct{}, len(rows))
		var buf []byte
		for _, i := range rows {
			buf = src.Get(i).AppendKey(buf[:0])
			seen[string(buf)] = struct{}{}
		}
		return frame.Int(int64(len(seen))), nil
	}
	return frame.Value{}, fmt.Errorf("%w: unsupported aggregate %s", ErrInvalidPlan, a.Kind)
}

func (a *AggExpr) sum(src *frame.Column, rows []int, outType frame.DataType) frame.Value {
	n := 0
	if outType == frame.Float64 {
		var total float64
		for _, i := range rows {
			if f, ok := src.Float64(i); ok {
				total += f
				n++
			}
		}
		if n == 0 && !a.emptyZero {
			return frame.Null(outType)
		}
		return frame.Float(total)
	}
	var total int64
	for _, i := range rows {
		v := src.Get(i)
		if !v.Valid {
			continue
		}
		n++
		switch v.Type {
		case frame.Int64:
			total += v.Int64()
		case frame.Boolean:
			if v.Bool() {
				total++
			}
		}
	}
	if n == 0 && !a.emptyZero {
		return frame.Null(outType)
	}
	return frame.Int(total)
}

func (a *AggExpr) variance(src *frame.Column, rows []int) frame.Value {
	sum, n := floatSum(src, rows)
	if n-a.ddof <= 0 {
		return frame.Null(frame.Float64)
	}
	mean := sum / float64(n)
	var sq float64
	for _, i := range rows {
		if f, ok := src.Float64(i); ok {
			d := f - mean
			sq += d * d
		}
	}
	v := sq / float64(n-a.ddof)
	if a.Kind == AggStd {
		v = math.Sqrt(v)
	}
	return frame.Float(v)
}

// floatSum adds the non-null numeric values and counts them. Booleans count
// as 0 or 1.
func floatSum(src *frame.Column, rows []int) (float64, int) {
	var sum float64
	n := 0
	for _, i := range rows {
		if f, ok := src.Float64(i); ok {
			sum += f
			n++
			continue
		}
		if b, ok := src.Bool(i); ok {
			if b {
				sum++
			}
			n++
		}
	}
	return sum, n
}

// quantile sorts the non-null values ascending and resolves position
// (n-1)*p with the given method.
func quantile(src *frame.Column, rows []int, p float64, method QuantileMethod) (frame.Value, error) {
	values := make([]float64, 0, len(rows))
	for _, i := range rows {
		if f, ok := src.Float64(i); ok {
			values = append(values, f)
		}
	}
	if len(values) == 0 {
		return frame.Value{}, ErrEmptyGroupQuantile
	}
	sort.Float64s(values)

	pos := float64(len(values)-1) * p
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	switch method {
	case QuantileNearest:
		return frame.Float(values[int(math.Round(pos))]), nil
	case QuantileLower:
		return frame.Float(values[lo]), nil
	case QuantileHigher:
		return frame.Float(values[hi]), nil
	case QuantileMidpoint:
		return frame.Float((values[lo] + values[hi]) / 2), nil
	default:
		frac := pos - float64(lo)
		return frame.Float(values[lo] + (values[hi]-values[lo])*frac), nil
	}
}

// partitionRows splits row positions into groups by the tuple of key values,
// in first-seen order. Null is a key value of its own. Without keys all rows
// form a single group, even when there are none.
func partitionRows(keys []*frame.Column, n int) (rows [][]int, first []int) {
	if len(keys) == 0 {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return [][]int{all}, nil
	}
	index := make(map[string]int)
	var buf []byte
	for i := 0; i < n; i++ {
		buf = buf[:0]
		for _, k := range keys {
			buf = k.Get(i).AppendKey(buf)
		}
		g, ok := index[string(buf)]
		if !ok {
			g = len(rows)
			index[string(buf)] = g
			rows = append(rows, nil)
			first = append(first, i)
		}
		rows[g] = append(rows[g], i)
	}
	return rows, first
}

// checkAggregated verifies that every column referenced by e outside an
// aggregate is a group key.
func checkAggregated(e Expr, keys map[string]bool) error {
	var err error
	walk(e, func(x Expr) bool {
		if err != nil {
			return false
		}
		switch n := x.(type) {
		case *AggExpr:
			return false
		case *WindowExpr:
			err = fmt.Errorf("%w: window %s inside an aggregation", ErrInvalidAggregateContext, n)
			return false
		case *ColumnExpr:
			if !keys[n.Name] {
				err = fmt.Errorf("%w: %q is neither a group key nor aggregated", ErrNotAggregated, n.Name)
			}
		}
		return true
	})
	return err
}

// expandAggregations expands Col("*") in aggregations to every column that
// is not a group key
func expandAggregations(aggs []Expr, s frame.Schema, keys map[string]bool) []Expr {
	values := make(frame.Schema, 0, len(s))
	for _, f := range s {
		if !keys[f.Name] {
			values = append(values, f)
		}
	}
	return expandWildcard(aggs, values)
}

// ApplyGroupByAndAggregate groups t by the key expressions and evaluates the
// aggregate expressions once per group. The output holds the keys followed by
// the aggregates, one row per group in first-seen order.
func ApplyGroupByAndAggregate(t *frame.Table, keys, aggs []Expr) (*frame.Table, error) {
	n := t.NumRows()
	keyCols := make([]*frame.Column, len(keys))
	keyNames := make(map[string]bool, len(keys))
	for i, k := range keys {
		col, err := Evaluate(k, t)
		if err != nil {
			return nil, fmt.Errorf("group key %s: %w", k, err)
		}
		keyCols[i] = col
		if c, ok := k.(*ColumnExpr); ok {
			keyNames[c.Name] = true
		}
	}
	aggs = expandAggregations(aggs, t.Schema(), keyNames)
	for _, a := range aggs {
		if err := checkAggregated(a, keyNames); err != nil {
			return nil, err
		}
	}

	rows, first := partitionRows(keyCols, n)
	ctx := &evalContext{table: t, groups: &groupContext{rows: rows, first: first, keys: keyNames}}

	out := make([]*frame.Column, 0, len(keys)+len(aggs))
	for _, k := range keyCols {
		out = append(out, k.Take(first))
	}
	for _, a := range aggs {
		col, err := a.eval(ctx)
		if err != nil {
			return nil, err
		}
		col, err = finish(col, a.outputName(), len(rows))
		if err != nil {
			return nil, err
		}
		out = append(out, col)
	}
	return frame.NewTable(out...)
}
