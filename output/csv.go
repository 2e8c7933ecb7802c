package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/vegasq/lazytab/frame"
)

// CSVFormatter outputs a table as CSV with a header row in column order.
// Nulls are written as NullText, which defaults to the empty string.
type CSVFormatter struct {
	writer   io.Writer
	NullText string
}

// NewCSVFormatter creates a new CSV formatter
func NewCSVFormatter(w io.Writer) *CSVFormatter {
	return &CSVFormatter{writer: w}
}

// SetOutput sets the output writer
func (c *CSVFormatter) SetOutput(w io.Writer) {
	c.writer = w
}

// Format writes the table as CSV. A table without columns writes nothing.
func (c *CSVFormatter) Format(t *frame.Table) error {
	csvWriter := csv.NewWriter(c.writer)

	if t.NumColumns() > 0 {
		if err := csvWriter.Write(t.ColumnNames()); err != nil {
			return err
		}
	}

	cols := t.Columns()
	record := make([]string, len(cols))
	for i := 0; i < t.NumRows(); i++ {
		for j, col := range cols {
			record[j] = c.formatValue(col.Get(i))
		}
		if err := csvWriter.Write(record); err != nil {
			return err
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	return nil
}

// formatValue converts a value to its CSV cell text
func (c *CSVFormatter) formatValue(v frame.Value) string {
	if !v.Valid {
		return c.NullText
	}
	if v.Type == frame.Utf8 {
		return sanitizeCell(v.Str())
	}
	return v.String()
}

// sanitizeCell guards against CSV injection by quoting text that a
// spreadsheet would evaluate as a formula
func sanitizeCell(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '\n', '|':
		return "'" + strings.ReplaceAll(s, "'", "''")
	}
	return s
}
