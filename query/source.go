package query

import (
	"fmt"

	"github.com/vegasq/lazytab/frame"
)

// Source provides the data of a scan. Schema must not read more than needed
// to know the columns; Read materializes the full table. Collect calls Read
// once per scan, before evaluating any operator.
type Source interface {
	Schema() (frame.Schema, error)
	Read() (*frame.Table, error)
	String() string
}

// TableSource scans an in-memory table
type TableSource struct {
	Name  string
	Table *frame.Table
}

// NewTableSource wraps a table as a source
func NewTableSource(name string, t *frame.Table) *TableSource {
	return &TableSource{Name: name, Table: t}
}

func (s *TableSource) Schema() (frame.Schema, error) {
	if s.Table == nil {
		return nil, fmt.Errorf("%w: source %s has no table", ErrInvalidPlan, s.Name)
	}
	return s.Table.Schema(), nil
}

func (s *TableSource) Read() (*frame.Table, error) {
	if s.Table == nil {
		return nil, fmt.Errorf("%w: source %s has no table", ErrInvalidPlan, s.Name)
	}
	return s.Table, nil
}

func (s *TableSource) String() string {
	if s.Table == nil {
		return fmt.Sprintf("table %s", s.Name)
	}
	return fmt.Sprintf("table %s [%d x %d]", s.Name, s.Table.NumRows(), s.Table.NumColumns())
}
