package frame

import (
	"fmt"
	"math"
)

// ArithOp is a binary arithmetic operator
type ArithOp int

const (
	Add ArithOp = iota
	Sub
	Mul
	Div
	Mod
)

func (op ArithOp) String() string {
	switch op {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	case Mod:
		return "%"
	}
	return fmt.Sprintf("ArithOp(%d)", int(op))
}

// CmpOp is a comparison operator
type CmpOp int

const (
	Eq CmpOp = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

func (op CmpOp) String() string {
	switch op {
	case Eq:
		return "="
	case Ne:
		return "!="
	case Lt:
		return "<"
	case Le:
		return "<="
	case Gt:
		return ">"
	case Ge:
		return ">="
	}
	return fmt.Sprintf("CmpOp(%d)", int(op))
}

// ArithType returns the result type of l op r, or ErrTypeMismatch.
func ArithType(op ArithOp, l, r DataType) (DataType, error) {
	if l == Unknown && r == Unknown {
		return Unknown, nil
	}
	if l == Unknown {
		l = r
	}
	if r == Unknown {
		r = l
	}
	if !l.IsNumeric() || !r.IsNumeric() {
		return Unknown, fmt.Errorf("%w: cannot apply %s to %s and %s", ErrTypeMismatch, op, l, r)
	}
	if op == Div || l == Float64 || r == Float64 {
		return Float64, nil
	}
	return Int64, nil
}

// CompareType checks that l and r are comparable. The result is Boolean.
func CompareType(op CmpOp, l, r DataType) (DataType, error) {
	switch {
	case l == Unknown || r == Unknown:
	case l == r:
	case l.IsNumeric() && r.IsNumeric():
	case l.IsTemporal() && r.IsTemporal():
	default:
		return Unknown, fmt.Errorf("%w: cannot compare %s %s %s", ErrTypeMismatch, l, op, r)
	}
	return Boolean, nil
}

// broadcastLen returns the common length of two operands; a length-1 operand
// stretches to the other's length.
func broadcastLen(l, r *Column) (int, error) {
	switch {
	case l.length == r.length:
		return l.length, nil
	case l.length == 1:
		return r.length, nil
	case r.length == 1:
		return l.length, nil
	}
	return 0, fmt.Errorf("%w: %q has %d rows, %q has %d", ErrLengthMismatch, l.name, l.length, r.name, r.length)
}

func at(c *Column, i int) int {
	if c.length == 1 {
		return 0
	}
	return i
}

// Arith applies an arithmetic operator element-wise. The result takes the
// left operand's name.
func Arith(op ArithOp, l, r *Column) (*Column, error) {
	dtype, err := ArithType(op, l.dtype, r.dtype)
	if err != nil {
		return nil, err
	}
	n, err := broadcastLen(l, r)
	if err != nil {
		return nil, err
	}
	if dtype == Unknown || l.dtype == Unknown || r.dtype == Unknown {
		return Nulls(l.name, dtype, n), nil
	}
	b := NewBuilder(l.name, dtype, n)
	for i := 0; i < n; i++ {
		li, ri := at(l, i), at(r, i)
		if l.IsNull(li) || r.IsNull(ri) {
			b.AppendNull()
			continue
		}
		if dtype == Int64 {
			x, y := l.ints[li], r.ints[ri]
			switch op {
			case Add:
				b.ints = append(b.ints, x+y)
			case Sub:
				b.ints = append(b.ints, x-y)
			case Mul:
				b.ints = append(b.ints, x*y)
			case Mod:
				if y == 0 {
					b.AppendNull()
					continue
				}
				b.ints = append(b.ints, x%y)
			}
			b.n++
			continue
		}
		x, _ := l.Float64(li)
		y, _ := r.Float64(ri)
		var v float64
		switch op {
		case Add:
			v = x + y
		case Sub:
			v = x - y
		case Mul:
			v = x * y
		case Div:
			v = x / y
		case Mod:
			v = math.Mod(x, y)
		}
		b.floats = append(b.floats, v)
		b.n++
	}
	return b.Finish(), nil
}

// Compare applies a comparison operator element-wise
func Compare(op CmpOp, l, r *Column) (*Column, error) {
	if _, err := CompareType(op, l.dtype, r.dtype); err != nil {
		return nil, err
	}
	n, err := broadcastLen(l, r)
	if err != nil {
		return nil, err
	}
	if l.dtype == Unknown || r.dtype == Unknown {
		return Nulls(l.name, Boolean, n), nil
	}
	b := NewBuilder(l.name, Boolean, n)
	for i := 0; i < n; i++ {
		lv, rv := l.Get(at(l, i)), r.Get(at(r, i))
		if !lv.Valid || !rv.Valid {
			b.AppendNull()
			continue
		}
		c := CompareValues(lv, rv)
		var ok bool
		switch op {
		case Eq:
			ok = c == 0
		case Ne:
			ok = c != 0
		case Lt:
			ok = c < 0
		case Le:
			ok = c <= 0
		case Gt:
			ok = c > 0
		case Ge:
			ok = c >= 0
		}
		b.appendValid(Bool(ok))
	}
	return b.Finish(), nil
}

func checkBoolean(c *Column) error {
	if c.dtype != Boolean && c.dtype != Unknown {
		return fmt.Errorf("%w: logical operator needs bool, %q is %s", ErrTypeMismatch, c.name, c.dtype)
	}
	return nil
}

// And is Kleene conjunction: false wins over null.
func And(l, r *Column) (*Column, error) {
	return logic(l, r, false)
}

// Or is Kleene disjunction: true wins over null.
func Or(l, r *Column) (*Column, error) {
	return logic(l, r, true)
}

// logic evaluates AND (dominant=false) or OR (dominant=true).
func logic(l, r *Column, dominant bool) (*Column, error) {
	if err := checkBoolean(l); err != nil {
		return nil, err
	}
	if err := checkBoolean(r); err != nil {
		return nil, err
	}
	n, err := broadcastLen(l, r)
	if err != nil {
		return nil, err
	}
	b := NewBuilder(l.name, Boolean, n)
	for i := 0; i < n; i++ {
		lv, lok := l.Bool(at(l, i))
		rv, rok := r.Bool(at(r, i))
		switch {
		case lok && lv == dominant, rok && rv == dominant:
			b.appendValid(Bool(dominant))
		case lok && rok:
			b.appendValid(Bool(!dominant))
		default:
			b.AppendNull()
		}
	}
	return b.Finish(), nil
}

// Not negates a Boolean column; nulls stay null.
func Not(c *Column) (*Column, error) {
	if err := checkBoolean(c); err != nil {
		return nil, err
	}
	b := NewBuilder(c.name, Boolean, c.length)
	for i := 0; i < c.length; i++ {
		v, ok := c.Bool(i)
		if !ok {
			b.AppendNull()
			continue
		}
		b.appendValid(Bool(!v))
	}
	return b.Finish(), nil
}

// IsNull returns a Boolean column that is true where c is null
func IsNull(c *Column) *Column {
	return nullFlags(c, true)
}

// IsNotNull returns a Boolean column that is true where c holds a value
func IsNotNull(c *Column) *Column {
	return nullFlags(c, false)
}

func nullFlags(c *Column, want bool) *Column {
	flags := make([]bool, c.length)
	for i := range flags {
		flags[i] = c.IsNull(i) == want
	}
	return FromBools(c.name, flags, nil)
}

// Negate returns -c for numeric columns
func Negate(c *Column) (*Column, error) {
	switch c.dtype {
	case Int64:
		out := make([]int64, c.length)
		for i, v := range c.ints {
			out[i] = -v
		}
		return &Column{name: c.name, dtype: Int64, length: c.length, ints: out, nulls: c.nulls}, nil
	case Float64:
		out := make([]float64, c.length)
		for i, v := range c.floats {
			out[i] = -v
		}
		return &Column{name: c.name, dtype: Float64, length: c.length, floats: out, nulls: c.nulls}, nil
	case Unknown:
		return c, nil
	}
	return nil, fmt.Errorf("%w: cannot negate %s column %q", ErrTypeMismatch, c.dtype, c.name)
}
