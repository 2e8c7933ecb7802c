package frame

import (
	"fmt"
	"strings"
)

// Table is an immutable, ordered set of uniquely named columns of equal length.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// NewTable assembles columns into a table. Columns must have unique names
// and equal lengths.
func NewTable(columns ...*Column) (*Table, error) {
	t := &Table{columns: columns, index: make(map[string]int, len(columns))}
	for i, c := range columns {
		if _, dup := t.index[c.name]; dup {
			return nil, fmt.Errorf("%w: duplicate column name %q", ErrSchemaMismatch, c.name)
		}
		t.index[c.name] = i
		if i == 0 {
			t.rows = c.length
		} else if c.length != t.rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, expected %d", ErrLengthMismatch, c.name, c.length, t.rows)
		}
	}
	return t, nil
}

// MustTable is NewTable that panics on error. Intended for tests and literals.
func MustTable(columns ...*Column) *Table {
	t, err := NewTable(columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// EmptyTable returns a zero-row table with the given schema
func EmptyTable(schema Schema) *Table {
	cols := make([]*Column, len(schema))
	for i, f := range schema {
		cols[i] = Nulls(f.Name, f.Type, 0)
	}
	return MustTable(cols...)
}

// NumRows returns the row count
func (t *Table) NumRows() int { return t.rows }

// NumColumns returns the column count
func (t *Table) NumColumns() int { return len(t.columns) }

// Columns returns the columns in order
func (t *Table) Columns() []*Column {
	return append([]*Column(nil), t.columns...)
}

// ColumnAt returns the i-th column
func (t *Table) ColumnAt(i int) *Column { return t.columns[i] }

// ColumnNames returns the column names in order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}
	return names
}

// HasColumn reports whether the table has a column with the given name
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns a column by name
func (t *Table) Column(name string) (*Column, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownColumn, name, strings.Join(t.ColumnNames(), ", "))
	}
	return t.columns[i], nil
}

// Schema returns the table schema
func (t *Table) Schema() Schema {
	s := make(Schema, len(t.columns))
	for i, c := range t.columns {
		s[i] = Field{Name: c.name, Type: c.dtype}
	}
	return s
}

// Value returns a single cell
func (t *Table) Value(name string, row int) (Value, error) {
	c, err := t.Column(name)
	if err != nil {
		return Value{}, err
	}
	if row < 0 || row >= t.rows {
		return Value{}, fmt.Errorf("row %d out of range [0, %d)", row, t.rows)
	}
	return c.Get(row), nil
}

// Row returns the values of one row in column order
func (t *Table) Row(i int) []Value {
	row := make([]Value, len(t.columns))
	for j, c := range t.columns {
		row[j] = c.Get(i)
	}
	return row
}

// Take gathers rows by position; -1 yields a row of nulls
func (t *Table) Take(indices []int) *Table {
	cols := make([]*Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c.Take(indices)
	}
	return &Table{columns: cols, index: t.index, rows: len(indices)}
}

// Slice returns rows [offset, offset+length), clipped to the table bounds
func (t *Table) Slice(offset, length int) *Table {
	cols := make([]*Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c.Slice(offset, length)
	}
	return &Table{columns: cols, index: t.index, rows: clipLen(t.rows, offset, length)}
}

func clipLen(n, offset, length int) int {
	offset = max(0, min(offset, n))
	if length < 0 || offset+length > n {
		return n - offset
	}
	return length
}

// Select returns the named columns in the given order
func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([]*Column, len(names))
	for i, name := range names {
		c, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return NewTable(cols...)
}

// WithColumn replaces the column of the same name or appends c at the end.
func (t *Table) WithColumn(c *Column) (*Table, error) {
	if c.length != t.rows && len(t.columns) > 0 {
		return nil, fmt.Errorf("%w: column %q has %d rows, table has %d", ErrLengthMismatch, c.name, c.length, t.rows)
	}
	cols := t.Columns()
	if i, ok := t.index[c.name]; ok {
		cols[i] = c
	} else {
		cols = append(cols, c)
	}
	return NewTable(cols...)
}

// Rename returns a table with one column renamed
func (t *Table) Rename(from, to string) (*Table, error) {
	i, ok := t.index[from]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, from)
	}
	cols := t.Columns()
	cols[i] = cols[i].Rename(to)
	return NewTable(cols...)
}

// Equal reports whether both tables have the same schema and cell values
func (t *Table) Equal(o *Table) bool {
	if t.rows != o.rows || !t.Schema().Equal(o.Schema()) {
		return false
	}
	for i, c := range t.columns {
		if !c.Equal(o.columns[i]) {
			return false
		}
	}
	return true
}

// String renders a short textual dump, one column per line
func (t *Table) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "table %d x %d\n", t.rows, len(t.columns))
	for _, c := range t.columns {
		sb.WriteString(c.Dump())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ConcatTables stacks tables vertically. All tables must share a schema,
// including column order and types.
func ConcatTables(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: nothing to concatenate", ErrSchemaMismatch)
	}
	schema := tables[0].Schema()
	for i, tb := range tables[1:] {
		if s := tb.Schema(); !s.Equal(schema) {
			return nil, fmt.Errorf("%w: input %d has schema %s, expected %s", ErrSchemaMismatch, i+1, s, schema)
		}
	}
	cols := make([]*Column, len(schema))
	for j := range schema {
		parts := make([]*Column, len(tables))
		for i, tb := range tables {
			parts[i] = tb.columns[j]
		}
		c, err := Concat(parts...)
		if err != nil {
			return nil, err
		}
		cols[j] = c
	}
	if len(cols) == 0 {
		total := 0
		for _, tb := range tables {
			total += tb.rows
		}
		return &Table{index: map[string]int{}, rows: total}, nil
	}
	return NewTable(cols...)
}
