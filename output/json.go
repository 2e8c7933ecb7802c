package output

import (
	"bufio"
	"encoding/json"
	"io"
	"math"
	"time"

	"github.com/vegasq/lazytab/frame"
)

// JSONFormatter outputs a table as JSON Lines, one object per row with keys
// in column order. Dates render as "2006-01-02", datetimes as RFC 3339 and
// non-finite floats as null.
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON Lines formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// SetOutput sets the output writer
func (j *JSONFormatter) SetOutput(w io.Writer) {
	j.writer = w
}

// Format writes the table as JSON Lines (one JSON object per line)
func (j *JSONFormatter) Format(t *frame.Table) error {
	bw := bufio.NewWriter(j.writer)

	keys := make([][]byte, t.NumColumns())
	for i, name := range t.ColumnNames() {
		k, err := json.Marshal(name)
		if err != nil {
			return err
		}
		keys[i] = k
	}

	cols := t.Columns()
	for i := 0; i < t.NumRows(); i++ {
		_ = bw.WriteByte('{')
		for c, col := range cols {
			if c > 0 {
				_ = bw.WriteByte(',')
			}
			_, _ = bw.Write(keys[c])
			_ = bw.WriteByte(':')
			b, err := json.Marshal(jsonValue(col.Get(i)))
			if err != nil {
				return err
			}
			_, _ = bw.Write(b)
		}
		_, _ = bw.WriteString("}\n")
	}
	return bw.Flush()
}

func jsonValue(v frame.Value) any {
	if !v.Valid {
		return nil
	}
	switch v.Type {
	case frame.Float64:
		if math.IsNaN(v.Float64()) || math.IsInf(v.Float64(), 0) {
			return nil
		}
	case frame.Date:
		return v.Time().Format("2006-01-02")
	case frame.Datetime:
		return v.Time().Format(time.RFC3339Nano)
	}
	return v.Any()
}
