package query

import (
	"fmt"
	"strings"

	"github.com/vegasq/lazytab/frame"
)

// ApplyFilter keeps the rows where the predicate is true. A null predicate
// value excludes the row. A predicate over Col("*") must hold for every
// column.
func ApplyFilter(t *frame.Table, pred Expr) (*frame.Table, error) {
	if pred == nil {
		return t, nil
	}
	pred = expandPredicate(pred, t.Schema())
	mask, err := Evaluate(pred, t)
	if err != nil {
		return nil, err
	}
	if mask.Type() != frame.Boolean && mask.Type() != frame.Unknown {
		return nil, fmt.Errorf("%w: filter predicate %s is %s, expected bool", ErrTypeMismatch, pred, mask.Type())
	}

	keep := make([]int, 0, t.NumRows())
	for i := 0; i < mask.Len(); i++ {
		if b, ok := mask.Bool(i); ok && b {
			keep = append(keep, i)
		}
	}
	if len(keep) == t.NumRows() {
		return t, nil
	}
	return t.Take(keep), nil
}

// expandWildcard turns every expression that references Col("*") into one
// expression per input column, in input order
func expandWildcard(exprs []Expr, s frame.Schema) []Expr {
	out := make([]Expr, 0, len(exprs))
	for _, e := range exprs {
		if !containsWildcard(e) {
			out = append(out, e)
			continue
		}
		for _, f := range s {
			out = append(out, substituteWildcard(e, f.Name))
		}
	}
	return out
}

// expandPredicate turns a predicate over Col("*") into the conjunction of
// the predicate over every column
func expandPredicate(pred Expr, s frame.Schema) Expr {
	if !containsWildcard(pred) {
		return pred
	}
	parts := expandWildcard([]Expr{pred}, s)
	if len(parts) == 0 {
		return Lit(true)
	}
	return And(parts[0], parts[1:]...)
}

// ApplySelectList projects t onto the given expressions, in order. Output
// names must be unique.
func ApplySelectList(t *frame.Table, exprs []Expr) (*frame.Table, error) {
	exprs = expandWildcard(exprs, t.Schema())
	cols := make([]*frame.Column, len(exprs))
	for i, e := range exprs {
		col, err := Evaluate(e, t)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return frame.NewTable(cols...)
}

// ApplyWithColumns evaluates every expression against the input t and then
// replaces the columns with the same output name or appends new ones.
func ApplyWithColumns(t *frame.Table, exprs []Expr) (*frame.Table, error) {
	cols := make([]*frame.Column, len(exprs))
	for i, e := range exprs {
		col, err := Evaluate(e, t)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	out := t
	for _, col := range cols {
		var err error
		if out, err = out.WithColumn(col); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ApplyDropNulls removes rows holding a null in any of the subset columns,
// or in any column when subset is empty.
func ApplyDropNulls(t *frame.Table, subset []string) (*frame.Table, error) {
	cols, err := subsetColumns(t, subset)
	if err != nil {
		return nil, err
	}
	keep := make([]int, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		complete := true
		for _, c := range cols {
			if c.IsNull(i) {
				complete = false
				break
			}
		}
		if complete {
			keep = append(keep, i)
		}
	}
	if len(keep) == t.NumRows() {
		return t, nil
	}
	return t.Take(keep), nil
}

// ApplyRename renames columns by an old → new mapping. Renames are applied
// simultaneously, so swapping two names works.
func ApplyRename(t *frame.Table, mapping map[string]string) (*frame.Table, error) {
	for from := range mapping {
		if !t.HasColumn(from) {
			return nil, fmt.Errorf("%w: cannot rename %q", ErrUnknownColumn, from)
		}
	}
	cols := t.Columns()
	for i, c := range cols {
		if to, ok := mapping[c.Name()]; ok {
			cols[i] = c.Rename(to)
		}
	}
	return frame.NewTable(cols...)
}

// subsetColumns resolves a list of column names, defaulting to all columns
func subsetColumns(t *frame.Table, subset []string) ([]*frame.Column, error) {
	if len(subset) == 0 {
		return t.Columns(), nil
	}
	cols := make([]*frame.Column, len(subset))
	for i, name := range subset {
		c, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return cols, nil
}

// matchLikePattern matches a string against a LIKE pattern
// % matches any sequence of characters
// _ matches any single character
func matchLikePattern(str, pattern string) bool {
	segments := strings.Split(pattern, "%")
	pos := 0

	for i, segment := range segments {
		if segment == "" {
			continue
		}
		matchPos := findSegmentMatch(str[pos:], segment)
		if matchPos == -1 {
			return false
		}
		// the first segment is anchored unless the pattern starts with %
		if i == 0 && !strings.HasPrefix(pattern, "%") && matchPos != 0 {
			return false
		}
		pos += matchPos + len(segment)
	}

	if !strings.HasSuffix(pattern, "%") && pos != len(str) {
		// retry anchoring the last segment at the end
		last := segments[len(segments)-1]
		if len(segments) == 1 || len(str) < len(last) {
			return false
		}
		tail := str[len(str)-len(last):]
		return findSegmentMatch(tail, last) == 0 && matchLikePattern(str[:len(str)-len(last)], strings.Join(segments[:len(segments)-1], "%")+"%")
	}
	return true
}

// findSegmentMatch finds the position where a segment matches in the string,
// or -1. _ matches any single byte.
func findSegmentMatch(str, segment string) int {
	if !strings.Contains(segment, "_") {
		return strings.Index(str, segment)
	}
	for i := 0; i <= len(str)-len(segment); i++ {
		match := true
		for j := 0; j < len(segment); j++ {
			if segment[j] != '_' && str[i+j] != segment[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
