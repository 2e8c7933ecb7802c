package query

import (
	"fmt"

	"github.com/vegasq/lazytab/frame"
)

// evalContext is the input an expression is evaluated against. In row
// context every expression yields one value per table row; in group context
// (groups != nil) it yields one value per group.
type evalContext struct {
	table  *frame.Table
	groups *groupContext
}

// groupContext describes the groups of a group-by: the row indices of each
// group, the first row of each group, and the key column names that may be
// referenced outside an aggregate.
type groupContext struct {
	rows  [][]int
	first []int
	keys  map[string]bool
}

func (c *evalContext) length() int {
	if c.groups != nil {
		return len(c.groups.rows)
	}
	return c.table.NumRows()
}

func (c *evalContext) rowContext() *evalContext {
	return &evalContext{table: c.table}
}

// Evaluate computes an expression over every row of t. Aggregates fail with
// ErrInvalidAggregateContext; use LazyFrame.GroupBy or Agg for those.
func Evaluate(e Expr, t *frame.Table) (*frame.Column, error) {
	ctx := &evalContext{table: t}
	col, err := e.eval(ctx)
	if err != nil {
		return nil, err
	}
	return finish(col, e.outputName(), ctx.length())
}

// TypeOf infers the result type of an expression against a schema without
// touching any data
func TypeOf(e Expr, s frame.Schema) (frame.DataType, error) {
	return e.resolveType(s)
}

// finish broadcasts a length-1 result to n rows and applies the output name.
func finish(c *frame.Column, name string, n int) (*frame.Column, error) {
	c, err := broadcast(c, n)
	if err != nil {
		return nil, err
	}
	if c.Name() != name {
		c = c.Rename(name)
	}
	return c, nil
}

func broadcast(c *frame.Column, n int) (*frame.Column, error) {
	switch c.Len() {
	case n:
		return c, nil
	case 1:
		return c.Take(make([]int, n)), nil
	}
	return nil, fmt.Errorf("%w: %q has %d rows, expected %d", ErrLengthMismatch, c.Name(), c.Len(), n)
}

// unifyTypes returns the common type of two branches of a conditional
func unifyTypes(a, b frame.DataType) (frame.DataType, error) {
	switch {
	case a == b:
		return a, nil
	case a == frame.Unknown:
		return b, nil
	case b == frame.Unknown:
		return a, nil
	case a.IsNumeric() && b.IsNumeric():
		return frame.Float64, nil
	case a.IsTemporal() && b.IsTemporal():
		return frame.Datetime, nil
	}
	return frame.Unknown, fmt.Errorf("%w: branches have types %s and %s", ErrTypeMismatch, a, b)
}

func requireBoolean(what string, t frame.DataType) error {
	if t != frame.Boolean && t != frame.Unknown {
		return fmt.Errorf("%w: %s must be bool, got %s", ErrTypeMismatch, what, t)
	}
	return nil
}

// ColumnExpr

func (c *ColumnExpr) resolveType(s frame.Schema) (frame.DataType, error) {
	if c.Name == "*" {
		return frame.Unknown, fmt.Errorf("%w: wildcard is only valid in a projection", ErrInvalidPlan)
	}
	f, err := s.Lookup(c.Name)
	if err != nil {
		return frame.Unknown, err
	}
	return f.Type, nil
}

func (c *ColumnExpr) eval(ctx *evalContext) (*frame.Column, error) {
	if c.Name == "*" {
		return nil, fmt.Errorf("%w: wildcard is only valid in a projection", ErrInvalidPlan)
	}
	col, err := ctx.table.Column(c.Name)
	if err != nil {
		return nil, err
	}
	if ctx.groups != nil {
		if !ctx.groups.keys[c.Name] {
			return nil, fmt.Errorf("%w: %q is not a group key", ErrNotAggregated, c.Name)
		}
		return col.Take(ctx.groups.first), nil
	}
	return col, nil
}

// LiteralExpr

func (l *LiteralExpr) resolveType(frame.Schema) (frame.DataType, error) {
	if l.err != nil {
		return frame.Unknown, l.err
	}
	return l.Value.Type, nil
}

func (l *LiteralExpr) eval(*evalContext) (*frame.Column, error) {
	if l.err != nil {
		return nil, l.err
	}
	return frame.Repeat("literal", l.Value, 1), nil
}

// BinaryExpr

func (b *BinaryExpr) resolveType(s frame.Schema) (frame.DataType, error) {
	lt, err := b.Left.resolveType(s)
	if err != nil {
		return frame.Unknown, err
	}
	rt, err := b.Right.resolveType(s)
	if err != nil {
		return frame.Unknown, err
	}
	if op, ok := b.Op.arith(); ok {
		return frame.ArithType(op, lt, rt)
	}
	if op, ok := b.Op.compare(); ok {
		return frame.CompareType(op, lt, rt)
	}
	if err := requireBoolean(b.Op.String()+" operand", lt); err != nil {
		return frame.Unknown, err
	}
	if err := requireBoolean(b.Op.String()+" operand", rt); err != nil {
		return frame.Unknown, err
	}
	return frame.Boolean, nil
}

func (b *BinaryExpr) eval(ctx *evalContext) (*frame.Column, error) {
	l, err := b.Left.eval(ctx)
	if err != nil {
		return nil, err
	}
	r, err := b.Right.eval(ctx)
	if err != nil {
		return nil, err
	}
	if op, ok := b.Op.arith(); ok {
		return frame.Arith(op, l, r)
	}
	if op, ok := b.Op.compare(); ok {
		return frame.Compare(op, l, r)
	}
	switch b.Op {
	case OpAnd:
		return frame.And(l, r)
	case OpOr:
		return frame.Or(l, r)
	}
	return nil, fmt.Errorf("%w: unsupported operator %s", ErrInvalidPlan, b.Op)
}

// UnaryExpr

func (u *UnaryExpr) resolveType(s frame.Schema) (frame.DataType, error) {
	t, err := u.X.resolveType(s)
	if err != nil {
		return frame.Unknown, err
	}
	switch u.Op {
	case OpNot:
		return frame.Boolean, requireBoolean("NOT operand", t)
	case OpNeg:
		if !t.IsNumeric() && t != frame.Unknown {
			return frame.Unknown, fmt.Errorf("%w: cannot negate %s", ErrTypeMismatch, t)
		}
		return t, nil
	}
	return frame.Boolean, nil
}

func (u *UnaryExpr) eval(ctx *evalContext) (*frame.Column, error) {
	x, err := u.X.eval(ctx)
	if err != nil {
		return nil, err
	}
	switch u.Op {
	case OpNot:
		return frame.Not(x)
	case OpNeg:
		return frame.Negate(x)
	case OpIsNull:
		return frame.IsNull(x), nil
	default:
		return frame.IsNotNull(x), nil
	}
}

// CondExpr

func (c *CondExpr) resolveType(s frame.Schema) (frame.DataType, error) {
	pt, err := c.Pred.resolveType(s)
	if err != nil {
		return frame.Unknown, err
	}
	if err := requireBoolean("condition", pt); err != nil {
		return frame.Unknown, err
	}
	tt, err := c.Then.resolveType(s)
	if err != nil {
		return frame.Unknown, err
	}
	ot, err := c.Otherwise.resolveType(s)
	if err != nil {
		return frame.Unknown, err
	}
	return unifyTypes(tt, ot)
}

func (c *CondExpr) eval(ctx *evalContext) (*frame.Column, error) {
	pred, err := c.Pred.eval(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireBoolean("condition", pred.Type()); err != nil {
		return nil, err
	}
	then, err := c.Then.eval(ctx)
	if err != nil {
		return nil, err
	}
	other, err := c.Otherwise.eval(ctx)
	if err != nil {
		return nil, err
	}
	dtype, err := unifyTypes(then.Type(), other.Type())
	if err != nil {
		return nil, err
	}

	n := max(pred.Len(), then.Len(), other.Len())
	cols := []*frame.Column{pred, then, other}
	for i, col := range cols {
		if cols[i], err = broadcast(col, n); err != nil {
			return nil, err
		}
	}
	pred, then, other = cols[0], cols[1], cols[2]

	b := frame.NewBuilder(then.Name(), dtype, n)
	for i := 0; i < n; i++ {
		p, ok := pred.Bool(i)
		var v frame.Value
		switch {
		case !ok && c.Policy == NullPredicatePropagates:
			v = frame.Null(dtype)
		case ok && p:
			v = then.Get(i)
		default:
			v = other.Get(i)
		}
		if err := b.Append(v); err != nil {
			return nil, err
		}
	}
	return b.Finish(), nil
}

// AliasExpr

func (a *AliasExpr) resolveType(s frame.Schema) (frame.DataType, error) { return a.X.resolveType(s) }

func (a *AliasExpr) eval(ctx *evalContext) (*frame.Column, error) { return a.X.eval(ctx) }

// CastExpr

func (c *CastExpr) resolveType(s frame.Schema) (frame.DataType, error) {
	t, err := c.X.resolveType(s)
	if err != nil {
		return frame.Unknown, err
	}
	if !frame.CanCast(t, c.To) {
		return frame.Unknown, fmt.Errorf("%w: cannot cast %s to %s", ErrTypeMismatch, t, c.To)
	}
	return c.To, nil
}

func (c *CastExpr) eval(ctx *evalContext) (*frame.Column, error) {
	x, err := c.X.eval(ctx)
	if err != nil {
		return nil, err
	}
	if c.Strict {
		return frame.Cast(x, c.To)
	}
	return frame.TryCast(x, c.To)
}

// MapExpr

func (m *MapExpr) resolveType(s frame.Schema) (frame.DataType, error) {
	if _, err := m.X.resolveType(s); err != nil {
		return frame.Unknown, err
	}
	if m.Fn == nil {
		return frame.Unknown, fmt.Errorf("%w: map without a function", ErrInvalidPlan)
	}
	return m.Type, nil
}

func (m *MapExpr) eval(ctx *evalContext) (*frame.Column, error) {
	x, err := m.X.eval(ctx)
	if err != nil {
		return nil, err
	}
	return frame.Map(x, m.Type, m.Fn)
}

// InExpr

func (in *InExpr) resolveType(s frame.Schema) (frame.DataType, error) {
	if in.err != nil {
		return frame.Unknown, in.err
	}
	t, err := in.X.resolveType(s)
	if err != nil {
		return frame.Unknown, err
	}
	for _, v := range in.Values {
		if _, err := frame.CompareType(frame.Eq, t, v.Type); err != nil {
			return frame.Unknown, err
		}
	}
	return frame.Boolean, nil
}

func (in *InExpr) eval(ctx *evalContext) (*frame.Column, error) {
	if in.err != nil {
		return nil, in.err
	}
	x, err := in.X.eval(ctx)
	if err != nil {
		return nil, err
	}
	b := frame.NewBuilder(x.Name(), frame.Boolean, x.Len())
	for i := 0; i < x.Len(); i++ {
		v := x.Get(i)
		if !v.Valid {
			b.AppendNull()
			continue
		}
		found := false
		for _, candidate := range in.Values {
			if candidate.Valid && v.Equal(candidate) {
				found = true
				break
			}
		}
		if err := b.Append(frame.Bool(found != in.Negate)); err != nil {
			return nil, err
		}
	}
	return b.Finish(), nil
}

// walk visits e and its descendants depth-first, stopping at nodes for which
// fn returns false.
func walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, c := range e.children() {
		walk(c, fn)
	}
}

func containsAggregate(e Expr) bool {
	found := false
	walk(e, func(x Expr) bool {
		if _, ok := x.(*AggExpr); ok {
			found = true
		}
		return !found
	})
	return found
}

func containsWindow(e Expr) bool {
	found := false
	walk(e, func(x Expr) bool {
		if _, ok := x.(*WindowExpr); ok {
			found = true
		}
		return !found
	})
	return found
}

// withChildren returns a copy of e with its direct sub-expressions replaced,
// in children() order
func withChildren(e Expr, kids []Expr) Expr {
	switch n := e.(type) {
	case *BinaryExpr:
		cp := *n
		cp.Left, cp.Right = kids[0], kids[1]
		return &cp
	case *UnaryExpr:
		cp := *n
		cp.X = kids[0]
		return &cp
	case *CondExpr:
		cp := *n
		cp.Pred, cp.Then, cp.Otherwise = kids[0], kids[1], kids[2]
		return &cp
	case *AliasExpr:
		cp := *n
		cp.X = kids[0]
		return &cp
	case *CastExpr:
		cp := *n
		cp.X = kids[0]
		return &cp
	case *MapExpr:
		cp := *n
		cp.X = kids[0]
		return &cp
	case *CallExpr:
		cp := *n
		cp.Args = kids
		return &cp
	case *InExpr:
		cp := *n
		cp.X = kids[0]
		return &cp
	case *AggExpr:
		if n.X == nil {
			return n
		}
		cp := *n
		cp.X = kids[0]
		return &cp
	case *WindowExpr:
		cp := *n
		cp.X = kids[0]
		return &cp
	}
	return e
}

func isWildcard(e Expr) bool {
	c, ok := e.(*ColumnExpr)
	return ok && c.Name == "*"
}

func containsWildcard(e Expr) bool {
	found := false
	walk(e, func(x Expr) bool {
		if isWildcard(x) {
			found = true
		}
		return !found
	})
	return found
}

// substituteWildcard replaces every Col("*") in e with Col(name)
func substituteWildcard(e Expr, name string) Expr {
	if isWildcard(e) {
		return Col(name)
	}
	kids := e.children()
	if len(kids) == 0 {
		return e
	}
	out := make([]Expr, len(kids))
	for i, k := range kids {
		out[i] = substituteWildcard(k, name)
	}
	return withChildren(e, out)
}
