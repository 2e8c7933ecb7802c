package output

import (
	"io"

	"github.com/vegasq/lazytab/arrowio"
	"github.com/vegasq/lazytab/frame"
)

// ArrowFormatter writes a table as an Arrow IPC stream
type ArrowFormatter struct {
	writer io.Writer
}

// NewArrowFormatter creates an Arrow IPC stream formatter
func NewArrowFormatter(w io.Writer) *ArrowFormatter {
	return &ArrowFormatter{writer: w}
}

// SetOutput sets the output writer
func (a *ArrowFormatter) SetOutput(w io.Writer) {
	a.writer = w
}

// Format writes the table as a single-record stream
func (a *ArrowFormatter) Format(t *frame.Table) error {
	return arrowio.WriteIPC(a.writer, t)
}
