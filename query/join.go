package query

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/vegasq/lazytab/frame"
)

// JoinType is the kind of a join
type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeft
	JoinCross
)

var joinTypeNames = map[JoinType]string{JoinInner: "inner", JoinLeft: "left", JoinCross: "cross"}

func (j JoinType) String() string {
	if s, ok := joinTypeNames[j]; ok {
		return s
	}
	return fmt.Sprintf("JoinType(%d)", int(j))
}

// ParseJoinType parses "inner", "left" or "cross"
func ParseJoinType(name string) (JoinType, error) {
	for j, s := range joinTypeNames {
		if s == strings.ToLower(name) {
			return j, nil
		}
	}
	return JoinInner, fmt.Errorf("%w: unknown join type %q", ErrInvalidJoin, name)
}

var (
	suffixMu          sync.RWMutex
	defaultJoinSuffix = "_right"
)

// SetDefaultJoinSuffix sets the suffix used for colliding right column names
// when a join does not set one. An empty suffix restores "_right".
func SetDefaultJoinSuffix(s string) {
	if s == "" {
		s = "_right"
	}
	suffixMu.Lock()
	defer suffixMu.Unlock()
	defaultJoinSuffix = s
}

// DefaultJoinSuffix returns the suffix applied to colliding right columns
func DefaultJoinSuffix() string {
	suffixMu.RLock()
	defer suffixMu.RUnlock()
	return defaultJoinSuffix
}

// JoinSpec describes a join against a right-hand table
type JoinSpec struct {
	Kind       JoinType
	LeftOn     []Expr
	RightOn    []Expr
	NullsEqual bool
	Suffix     string
}

// JoinOption adjusts a JoinSpec
type JoinOption func(*JoinSpec)

// JoinNullsEqual lets null keys match each other
func JoinNullsEqual() JoinOption {
	return func(s *JoinSpec) { s.NullsEqual = true }
}

// JoinSuffix sets the suffix for right columns whose names collide with the
// left side
func JoinSuffix(suffix string) JoinOption {
	return func(s *JoinSpec) { s.Suffix = suffix }
}

func (s JoinSpec) suffix() string {
	if s.Suffix != "" {
		return s.Suffix
	}
	return DefaultJoinSuffix()
}

func (s JoinSpec) String() string {
	if s.Kind == JoinCross {
		return "cross"
	}
	pairs := make([]string, len(s.LeftOn))
	for i := range s.LeftOn {
		pairs[i] = fmt.Sprintf("%s = %s", s.LeftOn[i], s.RightOn[i])
	}
	out := fmt.Sprintf("%s on %s", s.Kind, strings.Join(pairs, " AND "))
	if s.NullsEqual {
		out += " nulls_equal"
	}
	return out
}

func (s JoinSpec) validate() error {
	if len(s.LeftOn) != len(s.RightOn) {
		return fmt.Errorf("%w: %d left keys and %d right keys", ErrInvalidJoin, len(s.LeftOn), len(s.RightOn))
	}
	switch s.Kind {
	case JoinCross:
		if len(s.LeftOn) > 0 {
			return fmt.Errorf("%w: cross join takes no keys", ErrInvalidJoin)
		}
	case JoinInner, JoinLeft:
		if len(s.LeftOn) == 0 {
			return fmt.Errorf("%w: %s join needs at least one key", ErrInvalidJoin, s.Kind)
		}
	default:
		return fmt.Errorf("%w: unsupported join type %s", ErrInvalidJoin, s.Kind)
	}
	return nil
}

// keyTypesCompatible reports whether two key types can be matched
func keyTypesCompatible(l, r frame.DataType) bool {
	return l == r || l == frame.Unknown || r == frame.Unknown || (l.IsNumeric() && r.IsNumeric())
}

// joinLayout decides which right columns reach the output and their names.
// Right keys that are plain column references are dropped; other right
// columns that collide get the suffix.
func joinLayout(left, right frame.Schema, spec JoinSpec) (keep []int, names []string, err error) {
	dropped := make(map[string]bool)
	for _, k := range spec.RightOn {
		if c, ok := k.(*ColumnExpr); ok {
			dropped[c.Name] = true
		}
	}
	taken := make(map[string]bool, len(left)+len(right))
	for _, f := range left {
		taken[f.Name] = true
	}
	for i, f := range right {
		if dropped[f.Name] {
			continue
		}
		name := f.Name
		if taken[name] {
			name += spec.suffix()
			if taken[name] {
				return nil, nil, fmt.Errorf("%w: joined column %q already exists", ErrSchemaMismatch, name)
			}
		}
		taken[name] = true
		keep = append(keep, i)
		names = append(names, name)
	}
	return keep, names, nil
}

// joinSchema resolves the output schema of a join without touching data
func joinSchema(left, right frame.Schema, spec JoinSpec) (frame.Schema, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	for i := range spec.LeftOn {
		lt, err := spec.LeftOn[i].resolveType(left)
		if err != nil {
			return nil, fmt.Errorf("left join key: %w", err)
		}
		rt, err := spec.RightOn[i].resolveType(right)
		if err != nil {
			return nil, fmt.Errorf("right join key: %w", err)
		}
		if !keyTypesCompatible(lt, rt) {
			return nil, fmt.Errorf("%w: join key %s is %s, %s is %s", ErrTypeMismatch, spec.LeftOn[i], lt, spec.RightOn[i], rt)
		}
	}
	keep, names, err := joinLayout(left, right, spec)
	if err != nil {
		return nil, err
	}
	out := append(frame.Schema(nil), left...)
	for i, idx := range keep {
		out = append(out, frame.Field{Name: names[i], Type: right[idx].Type})
	}
	return out, nil
}

// ApplyJoin joins left with right. Inner and left joins build a hash index
// over the right key tuples and probe it with every left row in order, so
// output rows follow left order and, per left row, right order.
func ApplyJoin(left, right *frame.Table, spec JoinSpec) (*frame.Table, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	keep, names, err := joinLayout(left.Schema(), right.Schema(), spec)
	if err != nil {
		return nil, err
	}

	var leftIdx, rightIdx []int
	if spec.Kind == JoinCross {
		leftIdx, rightIdx = crossIndices(left.NumRows(), right.NumRows())
	} else {
		leftIdx, rightIdx, err = hashJoinIndices(left, right, spec)
		if err != nil {
			return nil, err
		}
	}

	cols := make([]*frame.Column, 0, left.NumColumns()+len(keep))
	for _, c := range left.Columns() {
		cols = append(cols, c.Take(leftIdx))
	}
	for i, idx := range keep {
		cols = append(cols, right.ColumnAt(idx).Take(rightIdx).Rename(names[i]))
	}
	if len(cols) == 0 {
		return frame.EmptyTable(nil), nil
	}
	return frame.NewTable(cols...)
}

func crossIndices(n, m int) (leftIdx, rightIdx []int) {
	leftIdx = make([]int, 0, n*m)
	rightIdx = make([]int, 0, n*m)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			leftIdx = append(leftIdx, i)
			rightIdx = append(rightIdx, j)
		}
	}
	return leftIdx, rightIdx
}

// joinKeys evaluates key expressions and reports, per key, whether the
// values mix Int64 and Float64
func joinKeys(left, right *frame.Table, spec JoinSpec) (lk, rk []*frame.Column, mixed []bool, err error) {
	lk = make([]*frame.Column, len(spec.LeftOn))
	rk = make([]*frame.Column, len(spec.RightOn))
	mixed = make([]bool, len(spec.LeftOn))
	for i := range spec.LeftOn {
		if lk[i], err = Evaluate(spec.LeftOn[i], left); err != nil {
			return nil, nil, nil, fmt.Errorf("left join key: %w", err)
		}
		if rk[i], err = Evaluate(spec.RightOn[i], right); err != nil {
			return nil, nil, nil, fmt.Errorf("right join key: %w", err)
		}
		lt, rt := lk[i].Type(), rk[i].Type()
		if !keyTypesCompatible(lt, rt) {
			return nil, nil, nil, fmt.Errorf("%w: join key %s is %s, %s is %s", ErrTypeMismatch, spec.LeftOn[i], lt, spec.RightOn[i], rt)
		}
		mixed[i] = lt != rt && lt.IsNumeric() && rt.IsNumeric()
	}
	return lk, rk, mixed, nil
}

// appendJoinKey encodes the key tuple of row i. ok is false when a key is
// null and nulls do not match.
func appendJoinKey(dst []byte, keys []*frame.Column, mixed []bool, i int, nullsEqual bool) ([]byte, bool) {
	for k, col := range keys {
		v := col.Get(i)
		if !v.Valid {
			if !nullsEqual {
				return dst, false
			}
			dst = append(dst, 'N')
			continue
		}
		if mixed[k] {
			v = numericKey(v)
		}
		dst = v.AppendKey(dst)
	}
	return dst, true
}

// numericKey gives a whole float in int64 range the key of the equal
// Int64, so mixed keys compare exactly instead of through float64
func numericKey(v frame.Value) frame.Value {
	f, ok := v.AsFloat64()
	if v.Type != frame.Float64 || !ok {
		return v
	}
	if f == math.Trunc(f) && f >= -(1<<63) && f < 1<<63 {
		return frame.Int(int64(f))
	}
	return v
}

func hashJoinIndices(left, right *frame.Table, spec JoinSpec) (leftIdx, rightIdx []int, err error) {
	lk, rk, mixed, err := joinKeys(left, right, spec)
	if err != nil {
		return nil, nil, err
	}

	index := make(map[string][]int)
	var buf []byte
	for j := 0; j < right.NumRows(); j++ {
		var ok bool
		if buf, ok = appendJoinKey(buf[:0], rk, mixed, j, spec.NullsEqual); ok {
			index[string(buf)] = append(index[string(buf)], j)
		}
	}

	for i := 0; i < left.NumRows(); i++ {
		var matches []int
		var ok bool
		if buf, ok = appendJoinKey(buf[:0], lk, mixed, i, spec.NullsEqual); ok {
			matches = index[string(buf)]
		}
		for _, j := range matches {
			leftIdx = append(leftIdx, i)
			rightIdx = append(rightIdx, j)
		}
		if len(matches) == 0 && spec.Kind == JoinLeft {
			leftIdx = append(leftIdx, i)
			rightIdx = append(rightIdx, -1)
		}
	}
	return leftIdx, rightIdx, nil
}
