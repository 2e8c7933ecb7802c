package output

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/vegasq/lazytab/frame"
)

// TableFormatter renders a table as an aligned text grid for terminals.
// The header shows each column's type under its name.
type TableFormatter struct {
	writer io.Writer
	// MaxRows caps the printed rows when positive; the caption then reports
	// how many were left out.
	MaxRows int
}

// NewTableFormatter creates a text table formatter
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{writer: w}
}

// SetOutput sets the output writer
func (f *TableFormatter) SetOutput(w io.Writer) {
	f.writer = w
}

// Format renders the table followed by its shape
func (f *TableFormatter) Format(t *frame.Table) error {
	tw := tablewriter.NewWriter(f.writer)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)

	header := make([]string, t.NumColumns())
	for i, field := range t.Schema() {
		header[i] = field.Name + "\n" + field.Type.String()
	}
	tw.SetHeader(header)

	alignments := make([]int, t.NumColumns())
	for i, field := range t.Schema() {
		alignments[i] = tablewriter.ALIGN_LEFT
		if field.Type.IsNumeric() {
			alignments[i] = tablewriter.ALIGN_RIGHT
		}
	}
	tw.SetColumnAlignment(alignments)

	n := t.NumRows()
	shown := n
	if f.MaxRows > 0 && n > f.MaxRows {
		shown = f.MaxRows
	}
	cols := t.Columns()
	for i := 0; i < shown; i++ {
		row := make([]string, len(cols))
		for j, col := range cols {
			row[j] = col.Get(i).String()
		}
		tw.Append(row)
	}

	caption := fmt.Sprintf("shape: (%d, %d)", n, t.NumColumns())
	if shown < n {
		caption += fmt.Sprintf(", showing first %d rows", shown)
	}
	tw.Render()
	_, err := fmt.Fprintln(f.writer, caption)
	return err
}
