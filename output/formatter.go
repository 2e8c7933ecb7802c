package output

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/vegasq/lazytab/frame"
	"github.com/vegasq/lazytab/internal/codec"
)

// Formatter defines the interface for output formatters.
//
// Implementers must provide Format to write a table in the target format
// and SetOutput to change the output destination.
type Formatter interface {
	// Format writes the table in the formatter's specific format
	Format(t *frame.Table) error

	// SetOutput changes the output writer
	SetOutput(w io.Writer)
}

// Supported format names
const (
	FormatCSV     = "csv"
	FormatJSON    = "json"
	FormatTable   = "table"
	FormatParquet = "parquet"
	FormatArrow   = "arrow"
)

// Formats lists the names accepted by New
var Formats = []string{FormatCSV, FormatJSON, FormatTable, FormatParquet, FormatArrow}

// New returns the formatter for a format name, writing to w
func New(format string, w io.Writer) (Formatter, error) {
	switch strings.ToLower(format) {
	case FormatCSV:
		return NewCSVFormatter(w), nil
	case FormatJSON, "jsonl", "ndjson":
		return NewJSONFormatter(w), nil
	case FormatTable, "pretty":
		return NewTableFormatter(w), nil
	case FormatParquet:
		return NewParquetFormatter(w), nil
	case FormatArrow, "ipc":
		return NewArrowFormatter(w), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (supported: %s)", format, strings.Join(Formats, ", "))
	}
}

// FormatForPath guesses the format from a file name, ignoring a trailing
// compression extension
func FormatForPath(path string) (string, bool) {
	switch strings.ToLower(filepath.Ext(codec.TrimExt(path))) {
	case ".csv":
		return FormatCSV, true
	case ".json", ".jsonl", ".ndjson":
		return FormatJSON, true
	case ".parquet", ".pq":
		return FormatParquet, true
	case ".arrow", ".arrows":
		return FormatArrow, true
	case ".txt":
		return FormatTable, true
	}
	return "", false
}

// WriteFile writes t to path. An empty format is taken from the file
// extension; a compression extension (.gz, .zst, .sz, .lz4) compresses the
// output.
func WriteFile(path string, t *frame.Table, format string) error {
	if format == "" {
		var ok bool
		if format, ok = FormatForPath(path); !ok {
			return fmt.Errorf("cannot infer output format from %q", path)
		}
	}

	f, err := New(format, nil)
	if err != nil {
		return err
	}
	return WriteFormatted(path, t, f)
}

// WriteFormatted writes t to path with a configured formatter, compressing
// by extension like WriteFile. The formatter's output is redirected to the
// file.
func WriteFormatted(path string, t *frame.Table, f Formatter) (err error) {
	w, err := codec.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	f.SetOutput(w)
	if err := f.Format(t); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
