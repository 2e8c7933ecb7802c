package reader

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"howett.net/ranger"

	"github.com/vegasq/lazytab/frame"
)

// MaxGlobFiles bounds the number of files a glob pattern may expand to
const MaxGlobFiles = 1000

// FileColumn is the column added to tables read through a glob pattern
const FileColumn = "_file"

// ColumnOrderKey is the key-value metadata entry listing the intended
// column order of a file; parquet groups store fields sorted by name.
const ColumnOrderKey = "lazytab.columns"

// Reader reads a single parquet file, local or remote.
//
// It keeps the underlying handle so Close releases it.
type Reader struct {
	name   string
	closer io.Closer
	pqFile *parquet.File
}

// NewReader opens the parquet file at path. Paths starting with http:// or
// https:// are read with HTTP range requests.
//
// Example:
//
//	r, err := NewReader("data.parquet")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
func NewReader(path string) (*Reader, error) {
	if isRemote(path) {
		return newHTTPReader(path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pqFile, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	return &Reader{name: path, closer: file, pqFile: pqFile}, nil
}

func isRemote(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

func newHTTPReader(rawURL string) (*Reader, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	rr, err := ranger.NewReader(&ranger.HTTPRanger{URL: u})
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP reader: %w", err)
	}
	length, err := rr.Length()
	if err != nil {
		return nil, fmt.Errorf("failed to get HTTP content length: %w", err)
	}

	pqFile, err := parquet.OpenFile(rr, length)
	if err != nil {
		return nil, fmt.Errorf("failed to open remote parquet file: %w", err)
	}
	return &Reader{name: rawURL, pqFile: pqFile}, nil
}

// Schema returns the parquet file schema.
func (r *Reader) Schema() *parquet.Schema {
	return r.pqFile.Schema()
}

// NumRows returns the row count recorded in the file footer
func (r *Reader) NumRows() int64 {
	return r.pqFile.NumRows()
}

// FrameSchema maps the file's columns to frame types, in the order recorded
// under ColumnOrderKey when present. Nested and repeated columns are not
// supported.
func (r *Reader) FrameSchema() (frame.Schema, error) {
	fields := r.pqFile.Schema().Fields()
	schema := make(frame.Schema, len(fields))
	for i, f := range fields {
		t, err := columnType(f)
		if err != nil {
			return nil, err
		}
		schema[i] = frame.Field{Name: f.Name(), Type: t}
	}
	return r.reorder(schema), nil
}

func (r *Reader) reorder(schema frame.Schema) frame.Schema {
	order, ok := r.columnOrder(schema)
	if !ok {
		return schema
	}
	out := make(frame.Schema, len(order))
	for i, name := range order {
		out[i] = schema[schema.Index(name)]
	}
	return out
}

// columnOrder returns the recorded column order if it names exactly the
// columns of schema
func (r *Reader) columnOrder(schema frame.Schema) ([]string, bool) {
	v, ok := r.pqFile.Lookup(ColumnOrderKey)
	if !ok || v == "" {
		return nil, false
	}
	order := strings.Split(v, ",")
	if len(order) != len(schema) {
		return nil, false
	}
	for _, name := range order {
		if schema.Index(name) < 0 {
			return nil, false
		}
	}
	return order, true
}

// ReadTable reads every row of the file into a table.
//
// The whole file is loaded into memory.
func (r *Reader) ReadTable() (*frame.Table, error) {
	fields := r.pqFile.Schema().Fields()
	builders := make([]*frame.Builder, len(fields))
	converters := make([]func(parquet.Value) frame.Value, len(fields))
	n := int(r.pqFile.NumRows())
	for i, f := range fields {
		t, err := columnType(f)
		if err != nil {
			return nil, err
		}
		builders[i] = frame.NewBuilder(f.Name(), t, n)
		converters[i] = converterFor(f, t)
	}

	pr := parquet.NewReader(r.pqFile)
	defer func() { _ = pr.Close() }()

	buf := make([]parquet.Row, 128)
	for {
		count, err := pr.ReadRows(buf)
		for _, row := range buf[:count] {
			for _, v := range row {
				col := v.Column()
				if col < 0 || col >= len(builders) {
					continue
				}
				if err := builders[col].Append(converters[col](v)); err != nil {
					return nil, fmt.Errorf("column %q: %w", fields[col].Name(), err)
				}
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if count == 0 {
			break
		}
	}

	cols := make([]*frame.Column, len(builders))
	for i, b := range builders {
		cols[i] = b.Finish()
	}
	t, err := frame.NewTable(cols...)
	if err != nil {
		return nil, err
	}
	if order, ok := r.columnOrder(t.Schema()); ok {
		return t.Select(order...)
	}
	return t, nil
}

// Close releases the file handle. It is safe to call more than once.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// columnType maps a top-level parquet field to a frame type
func columnType(f parquet.Field) (frame.DataType, error) {
	if len(f.Fields()) > 0 || f.Repeated() {
		return frame.Unknown, fmt.Errorf("%w: nested or repeated column %q is not supported", frame.ErrTypeMismatch, f.Name())
	}
	switch getUserFriendlyType(f) {
	case "BOOLEAN":
		return frame.Boolean, nil
	case "INT32", "INT64", "TIME":
		return frame.Int64, nil
	case "FLOAT32", "FLOAT64", "DECIMAL":
		return frame.Float64, nil
	case "DATE":
		return frame.Date, nil
	case "TIMESTAMP":
		return frame.Datetime, nil
	default:
		return frame.Utf8, nil
	}
}

// converterFor returns the function turning a physical parquet value of f
// into a frame value of type t
func converterFor(f parquet.Field, t frame.DataType) func(parquet.Value) frame.Value {
	lt := f.Type().LogicalType()
	switch t {
	case frame.Date:
		return func(v parquet.Value) frame.Value {
			if v.IsNull() {
				return frame.Null(t)
			}
			return frame.DateOf(time.Unix(intOf(v)*86400, 0).UTC())
		}
	case frame.Datetime:
		unit := time.Microsecond
		if lt != nil && lt.Timestamp != nil {
			switch {
			case lt.Timestamp.Unit.Millis != nil:
				unit = time.Millisecond
			case lt.Timestamp.Unit.Nanos != nil:
				unit = time.Nanosecond
			}
		}
		return func(v parquet.Value) frame.Value {
			if v.IsNull() {
				return frame.Null(t)
			}
			return frame.DatetimeOf(time.Unix(0, intOf(v)*int64(unit)).UTC())
		}
	case frame.Float64:
		scale := 1.0
		if lt != nil && lt.Decimal != nil {
			for i := int32(0); i < lt.Decimal.Scale; i++ {
				scale *= 10
			}
		}
		return func(v parquet.Value) frame.Value {
			if v.IsNull() {
				return frame.Null(t)
			}
			switch v.Kind() {
			case parquet.Float:
				return frame.Float(float64(v.Float()))
			case parquet.Double:
				return frame.Float(v.Double())
			case parquet.Int32, parquet.Int64:
				return frame.Float(float64(intOf(v)) / scale)
			}
			return frame.Null(t)
		}
	case frame.Int64:
		return func(v parquet.Value) frame.Value {
			if v.IsNull() {
				return frame.Null(t)
			}
			return frame.Int(intOf(v))
		}
	case frame.Boolean:
		return func(v parquet.Value) frame.Value {
			if v.IsNull() {
				return frame.Null(t)
			}
			return frame.Bool(v.Boolean())
		}
	default:
		return func(v parquet.Value) frame.Value {
			if v.IsNull() {
				return frame.Null(t)
			}
			switch v.Kind() {
			case parquet.ByteArray, parquet.FixedLenByteArray:
				return frame.Str(string(v.ByteArray()))
			}
			return frame.Str(v.String())
		}
	}
}

func intOf(v parquet.Value) int64 {
	if v.Kind() == parquet.Int32 {
		return int64(v.Int32())
	}
	return v.Int64()
}

// ParquetSource scans a parquet file, a glob of files or an http(s) URL.
//
// The pattern can include wildcards:
//   - * matches any sequence of non-separator characters
//   - ? matches any single non-separator character
//   - [range] matches any character in range
//
// Tables read through a glob get a "_file" column holding each row's source
// path. All matched files must share one schema.
type ParquetSource struct {
	Pattern string
}

// NewParquetSource returns a source for a path, glob pattern or URL
func NewParquetSource(pattern string) *ParquetSource {
	return &ParquetSource{Pattern: pattern}
}

func (s *ParquetSource) String() string {
	return "parquet " + s.Pattern
}

// Schema reads the footer of the first matched file only
func (s *ParquetSource) Schema() (frame.Schema, error) {
	files, glob, err := expandPattern(s.Pattern)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(files[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", files[0], err)
	}
	defer func() { _ = r.Close() }()

	schema, err := r.FrameSchema()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", files[0], err)
	}
	if glob {
		schema = append(schema, frame.Field{Name: FileColumn, Type: frame.Utf8})
	}
	return schema, nil
}

// Read loads every matched file and concatenates them in path order
func (s *ParquetSource) Read() (*frame.Table, error) {
	files, glob, err := expandPattern(s.Pattern)
	if err != nil {
		return nil, err
	}

	tables := make([]*frame.Table, 0, len(files))
	for _, path := range files {
		t, err := readFile(path)
		if err != nil {
			return nil, err
		}
		if glob {
			if t, err = t.WithColumn(frame.Repeat(FileColumn, frame.Str(path), t.NumRows())); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}
		tables = append(tables, t)
	}
	if len(tables) == 1 {
		return tables[0], nil
	}
	return frame.ConcatTables(tables...)
}

func readFile(path string) (*frame.Table, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	t, readErr := r.ReadTable()
	closeErr := r.Close()

	// Preserve the first error encountered
	if readErr != nil {
		return nil, fmt.Errorf("failed to read rows from %s: %w", path, readErr)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("failed to close %s: %w", path, closeErr)
	}
	return t, nil
}

// expandPattern resolves a glob pattern to its sorted matches. A pattern
// without wildcards, or a URL, is returned unchanged with glob == false.
func expandPattern(pattern string) (files []string, glob bool, err error) {
	if isRemote(pattern) || !strings.ContainsAny(pattern, "*?[") {
		return []string{pattern}, false, nil
	}

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, false, fmt.Errorf("invalid glob pattern: %w", err)
	}
	if len(matches) == 0 {
		return nil, false, fmt.Errorf("no files match pattern: %s", pattern)
	}
	if len(matches) > MaxGlobFiles {
		return nil, false, fmt.Errorf("glob pattern matched too many files (%d), maximum is %d", len(matches), MaxGlobFiles)
	}
	return matches, true, nil
}
