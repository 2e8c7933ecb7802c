package query

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vegasq/lazytab/frame"
)

// node is an operator of a logical plan. Nodes own their inputs; a plan is a
// tree and nodes are never mutated after construction.
type node interface {
	// op names the operator in logs
	op() string
	// describe renders the operator without its inputs
	describe() string
	inputs() []node
	// schema resolves the output schema without touching data
	schema() (frame.Schema, error)
	// execute evaluates the operator; inputs are evaluated through ec.run
	execute(ec *ExecutionContext) (*frame.Table, error)
}

// LazyFrame is a deferred query plan. Builder methods return a new frame
// wrapping the previous one and never evaluate anything; Collect does.
type LazyFrame struct {
	root node
}

// Scan starts a plan that reads from a source
func Scan(src Source) LazyFrame {
	return LazyFrame{root: &scanNode{src: src}}
}

// FromTable starts a plan over an in-memory table
func FromTable(t *frame.Table) LazyFrame {
	return Scan(NewTableSource("memory", t))
}

func (lf LazyFrame) wrap(n node) LazyFrame { return LazyFrame{root: n} }

// node returns the plan root; the zero LazyFrame acts as a scan without a
// source so that building on it fails at Schema or Collect.
func (lf LazyFrame) node() node {
	if lf.root == nil {
		return &scanNode{}
	}
	return lf.root
}

// Select projects the frame onto exprs, in order. Col("*") expands to every
// input column.
func (lf LazyFrame) Select(exprs ...Expr) LazyFrame {
	return lf.wrap(&selectNode{input: lf.node(), exprs: exprs})
}

// Filter keeps the rows where pred is true; null counts as false
func (lf LazyFrame) Filter(pred Expr) LazyFrame {
	return lf.wrap(&filterNode{input: lf.node(), pred: pred})
}

// WithColumns adds or replaces columns by output name. Every expression sees
// the input frame, not the columns added alongside it.
func (lf LazyFrame) WithColumns(exprs ...Expr) LazyFrame {
	return lf.wrap(&withColumnsNode{input: lf.node(), exprs: exprs})
}

// WithColumn adds or replaces a single column
func (lf LazyFrame) WithColumn(e Expr) LazyFrame { return lf.WithColumns(e) }

// GroupBy starts a grouped aggregation
func (lf LazyFrame) GroupBy(keys ...Expr) GroupBy {
	return GroupBy{input: lf, keys: keys}
}

// Agg aggregates the whole frame as one group. The result has exactly one
// row, even for empty input.
func (lf LazyFrame) Agg(aggs ...Expr) LazyFrame {
	return lf.wrap(&groupAggNode{input: lf.node(), aggs: aggs})
}

// Join joins lf with right on pairs of key expressions
func (lf LazyFrame) Join(right LazyFrame, leftOn, rightOn []Expr, how JoinType, opts ...JoinOption) LazyFrame {
	spec := JoinSpec{Kind: how, LeftOn: leftOn, RightOn: rightOn}
	for _, o := range opts {
		o(&spec)
	}
	return lf.wrap(&joinNode{left: lf.node(), right: right.node(), spec: spec})
}

// JoinOn joins on columns that have the same name on both sides
func (lf LazyFrame) JoinOn(right LazyFrame, on []string, how JoinType, opts ...JoinOption) LazyFrame {
	return lf.Join(right, Cols(on...), Cols(on...), how, opts...)
}

// CrossJoin pairs every row of lf with every row of right
func (lf LazyFrame) CrossJoin(right LazyFrame, opts ...JoinOption) LazyFrame {
	return lf.Join(right, nil, nil, JoinCross, opts...)
}

// Sort orders rows by the keys; the sort is stable
func (lf LazyFrame) Sort(keys ...SortKey) LazyFrame {
	return lf.wrap(&sortNode{input: lf.node(), keys: keys})
}

// Slice keeps rows [offset, offset+length), clipped. A negative offset
// counts from the end; a negative length keeps everything after offset.
func (lf LazyFrame) Slice(offset, length int) LazyFrame {
	return lf.wrap(&sliceNode{input: lf.node(), offset: offset, length: length})
}

// Head keeps the first n rows
func (lf LazyFrame) Head(n int) LazyFrame { return lf.Slice(0, n) }

// Tail keeps the last n rows
func (lf LazyFrame) Tail(n int) LazyFrame { return lf.Slice(-n, n) }

// Unique drops duplicate rows over the subset columns (all when empty)
func (lf LazyFrame) Unique(subset []string, keep KeepStrategy) LazyFrame {
	return lf.wrap(&uniqueNode{input: lf.node(), subset: subset, keep: keep})
}

// Concat stacks lf and frames vertically; all schemas must be identical
func (lf LazyFrame) Concat(frames ...LazyFrame) LazyFrame {
	inputs := []node{lf.node()}
	for _, f := range frames {
		inputs = append(inputs, f.node())
	}
	return LazyFrame{root: &concatNode{parts: inputs}}
}

// Concat stacks frames vertically
func Concat(frames ...LazyFrame) LazyFrame {
	if len(frames) == 0 {
		return LazyFrame{root: &concatNode{}}
	}
	return frames[0].Concat(frames[1:]...)
}

// DropNulls drops rows with a null in any subset column (any column when
// subset is empty)
func (lf LazyFrame) DropNulls(subset ...string) LazyFrame {
	return lf.wrap(&dropNullsNode{input: lf.node(), subset: subset})
}

// Rename renames columns by an old → new mapping
func (lf LazyFrame) Rename(mapping map[string]string) LazyFrame {
	return lf.wrap(&renameNode{input: lf.node(), mapping: mapping})
}

// FrameAgg reduces every column with the same aggregate. Columns the
// aggregate is not defined for become null.
func (lf LazyFrame) FrameAgg(kind AggKind) LazyFrame {
	return lf.wrap(&frameAggNode{input: lf.node(), kind: kind})
}

// Mean averages every column
func (lf LazyFrame) Mean() LazyFrame { return lf.FrameAgg(AggMean) }

// Sum sums every column
func (lf LazyFrame) Sum() LazyFrame { return lf.FrameAgg(AggSum) }

// Min takes the minimum of every column
func (lf LazyFrame) Min() LazyFrame { return lf.FrameAgg(AggMin) }

// Max takes the maximum of every column
func (lf LazyFrame) Max() LazyFrame { return lf.FrameAgg(AggMax) }

// Count counts the non-null values of every column
func (lf LazyFrame) Count() LazyFrame { return lf.FrameAgg(AggCount) }

// Std takes the population standard deviation of every column
func (lf LazyFrame) Std() LazyFrame { return lf.FrameAgg(AggStd) }

// Schema resolves the output schema without reading any data beyond what
// sources need to report theirs.
func (lf LazyFrame) Schema() (frame.Schema, error) {
	if lf.root == nil {
		return nil, fmt.Errorf("%w: empty plan", ErrInvalidPlan)
	}
	return lf.root.schema()
}

// Explain renders the plan tree, one operator per line, inputs indented
// below their consumer.
func (lf LazyFrame) Explain() string {
	if lf.root == nil {
		return "<empty plan>\n"
	}
	var sb strings.Builder
	explainNode(&sb, lf.root, 0)
	return sb.String()
}

func explainNode(sb *strings.Builder, n node, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(n.describe())
	sb.WriteByte('\n')
	for _, in := range n.inputs() {
		explainNode(sb, in, depth+1)
	}
}

// GroupBy is a LazyFrame waiting for its aggregations
type GroupBy struct {
	input LazyFrame
	keys  []Expr
}

// Agg evaluates the aggregations once per group. The output holds the key
// columns followed by the aggregations, one row per group.
func (g GroupBy) Agg(aggs ...Expr) LazyFrame {
	return g.input.wrap(&groupAggNode{input: g.input.node(), keys: g.keys, aggs: aggs})
}

func exprList(exprs []Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// uniqueNames fails with ErrSchemaMismatch on a repeated field name
func uniqueNames(s frame.Schema) error {
	seen := make(map[string]bool, len(s))
	for _, f := range s {
		if seen[f.Name] {
			return fmt.Errorf("%w: duplicate column %q", ErrSchemaMismatch, f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

func rowExprField(e Expr, s frame.Schema) (frame.Field, error) {
	if containsAggregate(e) {
		return frame.Field{}, fmt.Errorf("%w: %s", ErrInvalidAggregateContext, e)
	}
	t, err := e.resolveType(s)
	if err != nil {
		return frame.Field{}, err
	}
	return frame.Field{Name: e.outputName(), Type: t}, nil
}

func requireColumns(s frame.Schema, names []string) error {
	for _, name := range names {
		if _, err := s.Lookup(name); err != nil {
			return err
		}
	}
	return nil
}

// scan

type scanNode struct {
	src Source
}

func (n *scanNode) op() string { return "scan" }

func (n *scanNode) describe() string {
	if n.src == nil {
		return "SCAN <none>"
	}
	return "SCAN " + n.src.String()
}

func (n *scanNode) inputs() []node { return nil }

func (n *scanNode) schema() (frame.Schema, error) {
	if n.src == nil {
		return nil, fmt.Errorf("%w: scan without a source", ErrInvalidPlan)
	}
	return n.src.Schema()
}

func (n *scanNode) execute(ec *ExecutionContext) (*frame.Table, error) {
	t, ok := ec.scans[n]
	if !ok {
		return nil, fmt.Errorf("%w: source %s was not materialized", ErrInvalidPlan, n.src)
	}
	return t, nil
}

// select

type selectNode struct {
	input node
	exprs []Expr
}

func (n *selectNode) op() string       { return "select" }
func (n *selectNode) describe() string { return "SELECT " + exprList(n.exprs) }
func (n *selectNode) inputs() []node   { return []node{n.input} }

func (n *selectNode) schema() (frame.Schema, error) {
	in, err := n.input.schema()
	if err != nil {
		return nil, err
	}
	exprs := expandWildcard(n.exprs, in)
	out := make(frame.Schema, len(exprs))
	for i, e := range exprs {
		if out[i], err = rowExprField(e, in); err != nil {
			return nil, err
		}
	}
	return out, uniqueNames(out)
}

func (n *selectNode) execute(ec *ExecutionContext) (*frame.Table, error) {
	in, err := ec.run(n.input)
	if err != nil {
		return nil, err
	}
	return ApplySelectList(in, n.exprs)
}

// filter

type filterNode struct {
	input node
	pred  Expr
}

func (n *filterNode) op() string       { return "filter" }
func (n *filterNode) describe() string { return fmt.Sprintf("FILTER %v", n.pred) }
func (n *filterNode) inputs() []node   { return []node{n.input} }

func (n *filterNode) schema() (frame.Schema, error) {
	if n.pred == nil {
		return nil, fmt.Errorf("%w: filter without a predicate", ErrInvalidPlan)
	}
	in, err := n.input.schema()
	if err != nil {
		return nil, err
	}
	f, err := rowExprField(expandPredicate(n.pred, in), in)
	if err != nil {
		return nil, err
	}
	if f.Type != frame.Boolean && f.Type != frame.Unknown {
		return nil, fmt.Errorf("%w: filter predicate %s is %s, expected bool", ErrTypeMismatch, n.pred, f.Type)
	}
	return in, nil
}

func (n *filterNode) execute(ec *ExecutionContext) (*frame.Table, error) {
	in, err := ec.run(n.input)
	if err != nil {
		return nil, err
	}
	return ApplyFilter(in, n.pred)
}

// with_columns

type withColumnsNode struct {
	input node
	exprs []Expr
}

func (n *withColumnsNode) op() string       { return "with_columns" }
func (n *withColumnsNode) describe() string { return "WITH_COLUMNS " + exprList(n.exprs) }
func (n *withColumnsNode) inputs() []node   { return []node{n.input} }

func (n *withColumnsNode) schema() (frame.Schema, error) {
	in, err := n.input.schema()
	if err != nil {
		return nil, err
	}
	out := append(frame.Schema(nil), in...)
	for _, e := range n.exprs {
		f, err := rowExprField(e, in)
		if err != nil {
			return nil, err
		}
		if i := out.Index(f.Name); i >= 0 {
			out[i] = f
		} else {
			out = append(out, f)
		}
	}
	return out, nil
}

func (n *withColumnsNode) execute(ec *ExecutionContext) (*frame.Table, error) {
	in, err := ec.run(n.input)
	if err != nil {
		return nil, err
	}
	return ApplyWithColumns(in, n.exprs)
}

// group by / agg

type groupAggNode struct {
	input node
	keys  []Expr
	aggs  []Expr
}

func (n *groupAggNode) op() string { return "group_agg" }

func (n *groupAggNode) describe() string {
	if len(n.keys) == 0 {
		return "AGG " + exprList(n.aggs)
	}
	return "GROUP_BY " + exprList(n.keys) + " AGG " + exprList(n.aggs)
}

func (n *groupAggNode) inputs() []node { return []node{n.input} }

func (n *groupAggNode) schema() (frame.Schema, error) {
	in, err := n.input.schema()
	if err != nil {
		return nil, err
	}
	out := make(frame.Schema, 0, len(n.keys)+len(n.aggs))
	keyNames := make(map[string]bool, len(n.keys))
	for _, k := range n.keys {
		f, err := rowExprField(k, in)
		if err != nil {
			return nil, fmt.Errorf("group key %s: %w", k, err)
		}
		out = append(out, f)
		if c, ok := k.(*ColumnExpr); ok {
			keyNames[c.Name] = true
		}
	}
	for _, a := range expandAggregations(n.aggs, in, keyNames) {
		if err := checkAggregated(a, keyNames); err != nil {
			return nil, err
		}
		t, err := a.resolveType(in)
		if err != nil {
			return nil, err
		}
		out = append(out, frame.Field{Name: a.outputName(), Type: t})
	}
	return out, uniqueNames(out)
}

func (n *groupAggNode) execute(ec *ExecutionContext) (*frame.Table, error) {
	in, err := ec.run(n.input)
	if err != nil {
		return nil, err
	}
	return ApplyGroupByAndAggregate(in, n.keys, n.aggs)
}

// join

type joinNode struct {
	left, right node
	spec        JoinSpec
}

func (n *joinNode) op() string       { return "join" }
func (n *joinNode) describe() string { return "JOIN " + n.spec.String() }
func (n *joinNode) inputs() []node   { return []node{n.left, n.right} }

func (n *joinNode) schema() (frame.Schema, error) {
	l, err := n.left.schema()
	if err != nil {
		return nil, err
	}
	r, err := n.right.schema()
	if err != nil {
		return nil, err
	}
	return joinSchema(l, r, n.spec)
}

func (n *joinNode) execute(ec *ExecutionContext) (*frame.Table, error) {
	l, err := ec.run(n.left)
	if err != nil {
		return nil, err
	}
	r, err := ec.run(n.right)
	if err != nil {
		return nil, err
	}
	return ApplyJoin(l, r, n.spec)
}

// sort

type sortNode struct {
	input node
	keys  []SortKey
}

func (n *sortNode) op() string { return "sort" }

func (n *sortNode) describe() string {
	parts := make([]string, len(n.keys))
	for i, k := range n.keys {
		parts[i] = k.String()
	}
	return "SORT [" + strings.Join(parts, ", ") + "]"
}

func (n *sortNode) inputs() []node { return []node{n.input} }

func (n *sortNode) schema() (frame.Schema, error) {
	in, err := n.input.schema()
	if err != nil {
		return nil, err
	}
	for _, k := range n.keys {
		if k.Expr == nil {
			return nil, fmt.Errorf("%w: sort key without expression", ErrInvalidPlan)
		}
		if _, err := rowExprField(k.Expr, in); err != nil {
			return nil, fmt.Errorf("sort key %s: %w", k.Expr, err)
		}
	}
	return in, nil
}

func (n *sortNode) execute(ec *ExecutionContext) (*frame.Table, error) {
	in, err := ec.run(n.input)
	if err != nil {
		return nil, err
	}
	return ApplyOrderBy(in, n.keys)
}

// slice

type sliceNode struct {
	input          node
	offset, length int
}

func (n *sliceNode) op() string { return "slice" }

func (n *sliceNode) describe() string {
	return fmt.Sprintf("SLICE offset=%d length=%d", n.offset, n.length)
}

func (n *sliceNode) inputs() []node                { return []node{n.input} }
func (n *sliceNode) schema() (frame.Schema, error) { return n.input.schema() }

func (n *sliceNode) execute(ec *ExecutionContext) (*frame.Table, error) {
	in, err := ec.run(n.input)
	if err != nil {
		return nil, err
	}
	return ApplyLimitOffset(in, n.offset, n.length), nil
}

// unique

type uniqueNode struct {
	input  node
	subset []string
	keep   KeepStrategy
}

func (n *uniqueNode) op() string { return "unique" }

func (n *uniqueNode) describe() string {
	return fmt.Sprintf("UNIQUE subset=[%s] keep=%s", strings.Join(n.subset, ", "), n.keep)
}

func (n *uniqueNode) inputs() []node { return []node{n.input} }

func (n *uniqueNode) schema() (frame.Schema, error) {
	in, err := n.input.schema()
	if err != nil {
		return nil, err
	}
	if _, ok := keepNames[n.keep]; !ok {
		return nil, fmt.Errorf("%w: unknown keep strategy %d", ErrInvalidPlan, int(n.keep))
	}
	return in, requireColumns(in, n.subset)
}

func (n *uniqueNode) execute(ec *ExecutionContext) (*frame.Table, error) {
	in, err := ec.run(n.input)
	if err != nil {
		return nil, err
	}
	return ApplyDistinct(in, n.subset, n.keep)
}

// concat

type concatNode struct {
	parts []node
}

func (n *concatNode) op() string       { return "concat" }
func (n *concatNode) describe() string { return fmt.Sprintf("CONCAT %d inputs", len(n.parts)) }
func (n *concatNode) inputs() []node   { return n.parts }

func (n *concatNode) schema() (frame.Schema, error) {
	if len(n.parts) == 0 {
		return nil, fmt.Errorf("%w: nothing to concatenate", ErrInvalidPlan)
	}
	var first frame.Schema
	for i, p := range n.parts {
		s, err := p.schema()
		if err != nil {
			return nil, err
		}
		if i == 0 {
			first = s
			continue
		}
		if !s.Equal(first) {
			return nil, fmt.Errorf("%w: concat input %d has schema %s, expected %s", ErrSchemaMismatch, i, s, first)
		}
	}
	return first, nil
}

func (n *concatNode) execute(ec *ExecutionContext) (*frame.Table, error) {
	tables := make([]*frame.Table, len(n.parts))
	for i, p := range n.parts {
		t, err := ec.run(p)
		if err != nil {
			return nil, err
		}
		tables[i] = t
	}
	return ApplyConcat(tables)
}

// drop_nulls

type dropNullsNode struct {
	input  node
	subset []string
}

func (n *dropNullsNode) op() string { return "drop_nulls" }

func (n *dropNullsNode) describe() string {
	return "DROP_NULLS [" + strings.Join(n.subset, ", ") + "]"
}

func (n *dropNullsNode) inputs() []node { return []node{n.input} }

func (n *dropNullsNode) schema() (frame.Schema, error) {
	in, err := n.input.schema()
	if err != nil {
		return nil, err
	}
	return in, requireColumns(in, n.subset)
}

func (n *dropNullsNode) execute(ec *ExecutionContext) (*frame.Table, error) {
	in, err := ec.run(n.input)
	if err != nil {
		return nil, err
	}
	return ApplyDropNulls(in, n.subset)
}

// rename

type renameNode struct {
	input   node
	mapping map[string]string
}

func (n *renameNode) op() string { return "rename" }

func (n *renameNode) describe() string {
	pairs := make([]string, 0, len(n.mapping))
	for from, to := range n.mapping {
		pairs = append(pairs, from+" -> "+to)
	}
	sort.Strings(pairs)
	return "RENAME [" + strings.Join(pairs, ", ") + "]"
}

func (n *renameNode) inputs() []node { return []node{n.input} }

func (n *renameNode) schema() (frame.Schema, error) {
	in, err := n.input.schema()
	if err != nil {
		return nil, err
	}
	for from := range n.mapping {
		if _, err := in.Lookup(from); err != nil {
			return nil, fmt.Errorf("cannot rename: %w", err)
		}
	}
	out := append(frame.Schema(nil), in...)
	for i, f := range out {
		if to, ok := n.mapping[f.Name]; ok {
			out[i].Name = to
		}
	}
	return out, uniqueNames(out)
}

func (n *renameNode) execute(ec *ExecutionContext) (*frame.Table, error) {
	in, err := ec.run(n.input)
	if err != nil {
		return nil, err
	}
	return ApplyRename(in, n.mapping)
}

// frame_agg

type frameAggNode struct {
	input node
	kind  AggKind
}

func (n *frameAggNode) op() string       { return "frame_agg" }
func (n *frameAggNode) describe() string { return "FRAME_AGG " + n.kind.String() }
func (n *frameAggNode) inputs() []node   { return []node{n.input} }

func (n *frameAggNode) validKind() error {
	switch n.kind {
	case AggCountAll, AggQuantile:
		return fmt.Errorf("%w: %s cannot aggregate a whole frame", ErrInvalidPlan, n.kind)
	}
	if _, ok := aggNames[n.kind]; !ok {
		return fmt.Errorf("%w: unknown aggregate %d", ErrInvalidPlan, int(n.kind))
	}
	return nil
}

func (n *frameAggNode) columnAgg(name string) *AggExpr {
	a := agg(n.kind, Col(name))
	if n.kind == AggMedian {
		a.p, a.method = 0.5, QuantileLinear
	}
	return a
}

func (n *frameAggNode) schema() (frame.Schema, error) {
	if err := n.validKind(); err != nil {
		return nil, err
	}
	in, err := n.input.schema()
	if err != nil {
		return nil, err
	}
	out := make(frame.Schema, len(in))
	for i, f := range in {
		t, err := n.columnAgg(f.Name).resolveType(in)
		if err != nil {
			t = f.Type
		}
		out[i] = frame.Field{Name: f.Name, Type: t}
	}
	return out, nil
}

func (n *frameAggNode) execute(ec *ExecutionContext) (*frame.Table, error) {
	if err := n.validKind(); err != nil {
		return nil, err
	}
	in, err := ec.run(n.input)
	if err != nil {
		return nil, err
	}
	s := in.Schema()
	cols := make([]*frame.Column, len(s))
	for i, f := range s {
		a := n.columnAgg(f.Name)
		if _, err := a.resolveType(s); err != nil {
			cols[i] = frame.Nulls(f.Name, f.Type, 1)
			continue
		}
		t, err := ApplyGroupByAndAggregate(in, nil, []Expr{a})
		if errors.Is(err, ErrEmptyGroupQuantile) {
			cols[i] = frame.Nulls(f.Name, frame.Float64, 1)
			continue
		}
		if err != nil {
			return nil, err
		}
		cols[i] = t.ColumnAt(0)
	}
	if len(cols) == 0 {
		return frame.EmptyTable(nil), nil
	}
	return frame.NewTable(cols...)
}
