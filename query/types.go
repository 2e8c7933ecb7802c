package query

import (
	"fmt"
	"strings"

	"github.com/vegasq/lazytab/frame"
)

// Expr is a node of an expression tree. Expressions are immutable values;
// builder methods return new nodes.
type Expr interface {
	fmt.Stringer

	// outputName is the column name the expression produces
	outputName() string
	// resolveType infers the result type against an input schema
	resolveType(s frame.Schema) (frame.DataType, error)
	// eval computes the expression over the context's table or groups
	eval(ctx *evalContext) (*frame.Column, error)
	// children returns the direct sub-expressions
	children() []Expr
}

// BinaryOp is an infix operator
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

var binaryOpSymbols = map[BinaryOp]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%",
	OpEq: "=", OpNe: "!=", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpAnd: "AND", OpOr: "OR",
}

func (op BinaryOp) String() string {
	if s, ok := binaryOpSymbols[op]; ok {
		return s
	}
	return fmt.Sprintf("BinaryOp(%d)", int(op))
}

func (op BinaryOp) arith() (frame.ArithOp, bool) {
	switch op {
	case OpAdd:
		return frame.Add, true
	case OpSub:
		return frame.Sub, true
	case OpMul:
		return frame.Mul, true
	case OpDiv:
		return frame.Div, true
	case OpMod:
		return frame.Mod, true
	}
	return 0, false
}

func (op BinaryOp) compare() (frame.CmpOp, bool) {
	switch op {
	case OpEq:
		return frame.Eq, true
	case OpNe:
		return frame.Ne, true
	case OpLt:
		return frame.Lt, true
	case OpLe:
		return frame.Le, true
	case OpGt:
		return frame.Gt, true
	case OpGe:
		return frame.Ge, true
	}
	return 0, false
}

// UnaryOp is a prefix or postfix operator
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNeg
	OpIsNull
	OpIsNotNull
)

// ColumnExpr references an input column by name. The name "*" is a wildcard
// that Select expands to every input column.
type ColumnExpr struct {
	Name string
}

// LiteralExpr is a constant broadcast to the length of its context
type LiteralExpr struct {
	Value frame.Value
	err   error
}

// BinaryExpr applies an infix operator to two operands position by position
type BinaryExpr struct {
	Op          BinaryOp
	Left, Right Expr
}

// UnaryExpr applies a unary operator
type UnaryExpr struct {
	Op UnaryOp
	X  Expr
}

// NullPolicy decides how a conditional treats a null predicate
type NullPolicy int

const (
	// NullPredicatePropagates yields null where the predicate is null
	NullPredicatePropagates NullPolicy = iota
	// NullPredicateFalse treats a null predicate as false and selects otherwise
	NullPredicateFalse
)

// CondExpr selects Then where Pred holds and Otherwise elsewhere
type CondExpr struct {
	Pred, Then, Otherwise Expr
	Policy                NullPolicy
}

// AliasExpr renames the output of X
type AliasExpr struct {
	X    Expr
	Name string
}

// CastExpr converts X to another type. Non-strict casts turn unconvertible
// values into nulls.
type CastExpr struct {
	X      Expr
	To     frame.DataType
	Strict bool
}

// MapExpr applies a user function to every element of X
type MapExpr struct {
	X    Expr
	Type frame.DataType
	Fn   func(frame.Value) (frame.Value, error)
}

// CallExpr invokes a named function from the registry
type CallExpr struct {
	Name string
	Args []Expr
}

// InExpr tests membership of X in a literal list
type InExpr struct {
	X      Expr
	Values []frame.Value
	Negate bool
	err    error
}

// Col references a column. Col("*") selects every column.
func Col(name string) *ColumnExpr { return &ColumnExpr{Name: name} }

// All is shorthand for Col("*")
func All() *ColumnExpr { return Col("*") }

// Cols references several columns at once
func Cols(names ...string) []Expr {
	out := make([]Expr, len(names))
	for i, n := range names {
		out[i] = Col(n)
	}
	return out
}

// Lit wraps a Go value or frame.Value as a literal. nil is an untyped null.
func Lit(x any) *LiteralExpr {
	v, err := frame.ValueOf(x)
	return &LiteralExpr{Value: v, err: err}
}

func binary(op BinaryOp, l, r Expr) *BinaryExpr { return &BinaryExpr{Op: op, Left: l, Right: r} }

// Add returns l + r
func Add(l, r Expr) *BinaryExpr { return binary(OpAdd, l, r) }

// Sub returns l - r
func Sub(l, r Expr) *BinaryExpr { return binary(OpSub, l, r) }

// Mul returns l * r
func Mul(l, r Expr) *BinaryExpr { return binary(OpMul, l, r) }

// Div returns l / r, always as Float64
func Div(l, r Expr) *BinaryExpr { return binary(OpDiv, l, r) }

// Mod returns l % r
func Mod(l, r Expr) *BinaryExpr { return binary(OpMod, l, r) }

// Eq returns l = r
func Eq(l, r Expr) *BinaryExpr { return binary(OpEq, l, r) }

// Ne returns l != r
func Ne(l, r Expr) *BinaryExpr { return binary(OpNe, l, r) }

// Lt returns l < r
func Lt(l, r Expr) *BinaryExpr { return binary(OpLt, l, r) }

// Le returns l <= r
func Le(l, r Expr) *BinaryExpr { return binary(OpLe, l, r) }

// Gt returns l > r
func Gt(l, r Expr) *BinaryExpr { return binary(OpGt, l, r) }

// Ge returns l >= r
func Ge(l, r Expr) *BinaryExpr { return binary(OpGe, l, r) }

// And folds its operands with Kleene AND
func And(first Expr, rest ...Expr) Expr {
	out := first
	for _, e := range rest {
		out = binary(OpAnd, out, e)
	}
	return out
}

// Or folds its operands with Kleene OR
func Or(first Expr, rest ...Expr) Expr {
	out := first
	for _, e := range rest {
		out = binary(OpOr, out, e)
	}
	return out
}

// Between returns lo <= x AND x <= hi
func Between(x, lo, hi Expr) Expr {
	return And(Ge(x, lo), Le(x, hi))
}

// Not negates a Boolean expression
func Not(x Expr) *UnaryExpr { return &UnaryExpr{Op: OpNot, X: x} }

// Neg returns -x
func Neg(x Expr) *UnaryExpr { return &UnaryExpr{Op: OpNeg, X: x} }

// IsNull is true where x is null
func IsNull(x Expr) *UnaryExpr { return &UnaryExpr{Op: OpIsNull, X: x} }

// IsNotNull is true where x holds a value
func IsNotNull(x Expr) *UnaryExpr { return &UnaryExpr{Op: OpIsNotNull, X: x} }

// Alias names the output of x
func Alias(x Expr, name string) *AliasExpr { return &AliasExpr{X: x, Name: name} }

// Cast converts x strictly: an unconvertible value fails evaluation.
func Cast(x Expr, to frame.DataType) *CastExpr { return &CastExpr{X: x, To: to, Strict: true} }

// TryCast converts x, turning unconvertible values into nulls.
func TryCast(x Expr, to frame.DataType) *CastExpr { return &CastExpr{X: x, To: to} }

// Map applies fn to every element of x, nulls included. fn must return
// values of type t or nulls, and must be safe for concurrent calls.
func Map(x Expr, t frame.DataType, fn func(frame.Value) (frame.Value, error)) *MapExpr {
	return &MapExpr{X: x, Type: t, Fn: fn}
}

// Call invokes a registered function
func Call(name string, args ...Expr) *CallExpr {
	return &CallExpr{Name: strings.ToLower(name), Args: args}
}

// IsIn is true where x equals one of values
func IsIn(x Expr, values ...any) *InExpr {
	e := &InExpr{X: x, Values: make([]frame.Value, 0, len(values))}
	for _, v := range values {
		fv, err := frame.ValueOf(v)
		if err != nil && e.err == nil {
			e.err = err
		}
		e.Values = append(e.Values, fv)
	}
	return e
}

// NotIn is the negation of IsIn; a null x stays null.
func NotIn(x Expr, values ...any) *InExpr {
	e := IsIn(x, values...)
	e.Negate = true
	return e
}

// WhenBuilder is the first step of When(p).Then(a).Otherwise(b)
type WhenBuilder struct{ pred Expr }

// ThenBuilder is the second step of When(p).Then(a).Otherwise(b)
type ThenBuilder struct{ pred, then Expr }

// When starts a conditional expression
func When(pred Expr) WhenBuilder { return WhenBuilder{pred: pred} }

// Then sets the value where the predicate holds
func (w WhenBuilder) Then(e Expr) ThenBuilder { return ThenBuilder{pred: w.pred, then: e} }

// Otherwise completes the conditional
func (t ThenBuilder) Otherwise(e Expr) *CondExpr {
	return &CondExpr{Pred: t.pred, Then: t.then, Otherwise: e}
}

// NullAsFalse returns a copy that treats a null predicate as false
func (c *CondExpr) NullAsFalse() *CondExpr {
	cp := *c
	cp.Policy = NullPredicateFalse
	return &cp
}

// String implementations render expressions for Explain and error messages.

func (c *ColumnExpr) String() string { return "col(" + c.Name + ")" }

func (l *LiteralExpr) String() string {
	if l.Value.Type == frame.Utf8 && l.Value.Valid {
		return fmt.Sprintf("%q", l.Value.Str())
	}
	return l.Value.String()
}

func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

func (u *UnaryExpr) String() string {
	switch u.Op {
	case OpNot:
		return fmt.Sprintf("NOT %s", u.X)
	case OpNeg:
		return fmt.Sprintf("-%s", u.X)
	case OpIsNull:
		return fmt.Sprintf("%s IS NULL", u.X)
	default:
		return fmt.Sprintf("%s IS NOT NULL", u.X)
	}
}

func (c *CondExpr) String() string {
	s := fmt.Sprintf("when(%s).then(%s).otherwise(%s)", c.Pred, c.Then, c.Otherwise)
	if c.Policy == NullPredicateFalse {
		s += ".null_as_false()"
	}
	return s
}

func (a *AliasExpr) String() string { return fmt.Sprintf("%s AS %s", a.X, a.Name) }

func (c *CastExpr) String() string {
	if c.Strict {
		return fmt.Sprintf("cast(%s AS %s)", c.X, c.To)
	}
	return fmt.Sprintf("try_cast(%s AS %s)", c.X, c.To)
}

func (m *MapExpr) String() string { return fmt.Sprintf("map(%s -> %s)", m.X, m.Type) }

func (c *CallExpr) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return c.Name + "(" + strings.Join(args, ", ") + ")"
}

func (in *InExpr) String() string {
	vals := make([]string, len(in.Values))
	for i, v := range in.Values {
		vals[i] = v.String()
	}
	op := "IN"
	if in.Negate {
		op = "NOT IN"
	}
	return fmt.Sprintf("%s %s (%s)", in.X, op, strings.Join(vals, ", "))
}

// Output naming: a derived column takes the name of its left-most input.

func (c *ColumnExpr) outputName() string  { return c.Name }
func (l *LiteralExpr) outputName() string { return "literal" }
func (b *BinaryExpr) outputName() string  { return b.Left.outputName() }
func (u *UnaryExpr) outputName() string   { return u.X.outputName() }
func (c *CondExpr) outputName() string    { return c.Then.outputName() }
func (a *AliasExpr) outputName() string   { return a.Name }
func (c *CastExpr) outputName() string    { return c.X.outputName() }
func (m *MapExpr) outputName() string     { return m.X.outputName() }
func (in *InExpr) outputName() string     { return in.X.outputName() }

func (c *CallExpr) outputName() string {
	if len(c.Args) > 0 {
		return c.Args[0].outputName()
	}
	return c.Name
}

func (c *ColumnExpr) children() []Expr  { return nil }
func (l *LiteralExpr) children() []Expr { return nil }
func (b *BinaryExpr) children() []Expr  { return []Expr{b.Left, b.Right} }
func (u *UnaryExpr) children() []Expr   { return []Expr{u.X} }
func (c *CondExpr) children() []Expr    { return []Expr{c.Pred, c.Then, c.Otherwise} }
func (a *AliasExpr) children() []Expr   { return []Expr{a.X} }
func (c *CastExpr) children() []Expr    { return []Expr{c.X} }
func (m *MapExpr) children() []Expr     { return []Expr{m.X} }
func (c *CallExpr) children() []Expr    { return c.Args }
func (in *InExpr) children() []Expr     { return []Expr{in.X} }

// OutputName returns the name of the column an expression produces
func OutputName(e Expr) string { return e.outputName() }
