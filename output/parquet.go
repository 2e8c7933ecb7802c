package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/vegasq/lazytab/frame"
	"github.com/vegasq/lazytab/reader"
)

// ParquetFormatter writes a table as a single parquet file. Every column is
// optional; the column order is kept in the file metadata so that
// reader.ParquetSource restores it.
type ParquetFormatter struct {
	writer io.Writer
	// Compression is one of "snappy" (default), "zstd", "gzip", "lz4" or
	// "none".
	Compression string
}

// NewParquetFormatter creates a parquet formatter
func NewParquetFormatter(w io.Writer) *ParquetFormatter {
	return &ParquetFormatter{writer: w}
}

// SetOutput sets the output writer
func (p *ParquetFormatter) SetOutput(w io.Writer) {
	p.writer = w
}

func (p *ParquetFormatter) compression() (parquet.WriterOption, error) {
	switch strings.ToLower(p.Compression) {
	case "", "snappy":
		return parquet.Compression(&parquet.Snappy), nil
	case "zstd":
		return parquet.Compression(&parquet.Zstd), nil
	case "gzip":
		return parquet.Compression(&parquet.Gzip), nil
	case "lz4":
		return parquet.Compression(&parquet.Lz4Raw), nil
	case "none":
		return parquet.Compression(&parquet.Uncompressed), nil
	}
	return nil, fmt.Errorf("unsupported parquet compression %q", p.Compression)
}

// parquetNode maps a frame type to an optional parquet leaf
func parquetNode(t frame.DataType) parquet.Node {
	var node parquet.Node
	switch t {
	case frame.Int64:
		node = parquet.Int(64)
	case frame.Float64:
		node = parquet.Leaf(parquet.DoubleType)
	case frame.Boolean:
		node = parquet.Leaf(parquet.BooleanType)
	case frame.Date:
		node = parquet.Date()
	case frame.Datetime:
		node = parquet.Timestamp(parquet.Microsecond)
	default:
		node = parquet.String()
	}
	return parquet.Optional(node)
}

// parquetValue converts a valid frame value to its physical parquet value
func parquetValue(v frame.Value) parquet.Value {
	switch v.Type {
	case frame.Int64:
		return parquet.Int64Value(v.Int64())
	case frame.Float64:
		return parquet.DoubleValue(v.Float64())
	case frame.Boolean:
		return parquet.BooleanValue(v.Bool())
	case frame.Date:
		return parquet.Int32Value(int32(floorDiv(v.Time().Unix(), 86400)))
	case frame.Datetime:
		return parquet.Int64Value(v.Time().UnixMicro())
	case frame.Utf8:
		return parquet.ByteArrayValue([]byte(v.Str()))
	}
	return parquet.Value{}
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// Format writes the table as one parquet file
func (p *ParquetFormatter) Format(t *frame.Table) error {
	if t.NumColumns() == 0 {
		return fmt.Errorf("cannot write a parquet file without columns")
	}
	codec, err := p.compression()
	if err != nil {
		return err
	}

	group := make(parquet.Group, t.NumColumns())
	for _, f := range t.Schema() {
		group[f.Name] = parquetNode(f.Type)
	}
	schema := parquet.NewSchema("lazytab", group)

	// a group orders its leaves by name
	leaves := schema.Fields()
	cols := make([]*frame.Column, len(leaves))
	for i, leaf := range leaves {
		col, err := t.Column(leaf.Name())
		if err != nil {
			return err
		}
		cols[i] = col
	}

	w := parquet.NewWriter(p.writer, schema, codec,
		parquet.KeyValueMetadata(reader.ColumnOrderKey, strings.Join(t.ColumnNames(), ",")))

	const batchSize = 1024
	rows := make([]parquet.Row, 0, batchSize)
	flush := func() error {
		if _, err := w.WriteRows(rows); err != nil {
			return fmt.Errorf("failed to write rows: %w", err)
		}
		rows = rows[:0]
		return nil
	}
	for i := 0; i < t.NumRows(); i++ {
		row := make(parquet.Row, len(cols))
		for c, col := range cols {
			v := col.Get(i)
			if !v.Valid || v.Type == frame.Unknown {
				row[c] = parquet.Value{}.Level(0, 0, c)
				continue
			}
			row[c] = parquetValue(v).Level(0, 1, c)
		}
		rows = append(rows, row)
		if len(rows) == batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if len(rows) > 0 {
		if err := flush(); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}
