package reader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vegasq/lazytab/frame"
	"github.com/vegasq/lazytab/internal/codec"
)

// DefaultInferRows is the number of data rows sampled for type inference
const DefaultInferRows = 100

// CSVOptions controls how delimited text is parsed.
type CSVOptions struct {
	// Delimiter separates fields; zero means ','.
	Delimiter rune
	// NoHeader treats the first line as data and names columns column_1..n.
	NoHeader bool
	// NullValues are the cell texts read as null; nil means only "".
	NullValues []string
	// InferRows is the number of rows sampled for inference. Zero means
	// DefaultInferRows and a negative value samples every row.
	InferRows int
	// Types overrides the inferred type of the named columns.
	Types map[string]frame.DataType
	// Comment skips lines starting with this character when non-zero.
	Comment rune
}

func (o CSVOptions) inferRows() int {
	if o.InferRows == 0 {
		return DefaultInferRows
	}
	return o.InferRows
}

func (o CSVOptions) isNull(s string) bool {
	if o.NullValues == nil {
		return s == ""
	}
	for _, n := range o.NullValues {
		if s == n {
			return true
		}
	}
	return false
}

func (o CSVOptions) newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	if o.Delimiter != 0 {
		cr.Comma = o.Delimiter
	}
	cr.Comment = o.Comment
	return cr
}

// CSVSource scans a delimited text file. Files ending in a compression
// extension (.gz, .zst, .sz, .lz4) are decompressed while reading.
type CSVSource struct {
	Path    string
	Options CSVOptions
}

// NewCSVSource returns a source for the file at path
func NewCSVSource(path string, opts CSVOptions) *CSVSource {
	return &CSVSource{Path: path, Options: opts}
}

// Schema reads the header and the inference sample only
func (s *CSVSource) Schema() (frame.Schema, error) {
	f, err := codec.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	defer func() { _ = f.Close() }()

	names, sample, err := readHead(s.Options.newReader(f), s.Options, s.Options.inferRows())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return inferSchema(names, sample, s.Options), nil
}

// Read parses the whole file
func (s *CSVSource) Read() (*frame.Table, error) {
	f, err := codec.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	defer func() { _ = f.Close() }()

	t, err := ReadCSV(f, s.Options)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return t, nil
}

func (s *CSVSource) String() string {
	return "csv " + s.Path
}

// ReadCSV parses delimited text from r. Column types are inferred from the
// leading rows unless overridden; a later cell that does not parse as its
// column's type fails the read with frame.ErrTypeMismatch.
func ReadCSV(r io.Reader, opts CSVOptions) (*frame.Table, error) {
	names, records, err := readHead(opts.newReader(r), opts, -1)
	if err != nil {
		return nil, err
	}

	sample := records
	if n := opts.inferRows(); n >= 0 && n < len(records) {
		sample = records[:n]
	}
	schema := inferSchema(names, sample, opts)

	cols := make([]*frame.Column, len(schema))
	for j, field := range schema {
		b := frame.NewBuilder(field.Name, field.Type, len(records))
		for i, rec := range records {
			v, err := parseCell(rec[j], field.Type, opts)
			if err != nil {
				line := i + 1
				if !opts.NoHeader {
					line++
				}
				return nil, fmt.Errorf("line %d column %q: %w", line, field.Name, err)
			}
			if err := b.Append(v); err != nil {
				return nil, err
			}
		}
		cols[j] = b.Finish()
	}
	if len(cols) == 0 {
		return frame.EmptyTable(nil), nil
	}
	return frame.NewTable(cols...)
}

// readHead returns the column names and up to limit records. A negative
// limit reads every record.
func readHead(cr *csv.Reader, opts CSVOptions, limit int) ([]string, [][]string, error) {
	var names []string
	if !opts.NoHeader {
		header, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil, nil, nil
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read header: %w", err)
		}
		names = make([]string, len(header))
		for i, h := range header {
			if i == 0 {
				h = strings.TrimPrefix(h, "\ufeff")
			}
			h = strings.TrimSpace(h)
			if h == "" {
				h = fmt.Sprintf("column_%d", i+1)
			}
			names[i] = h
		}
	}

	var records [][]string
	for limit < 0 || len(records) < limit {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read record: %w", err)
		}
		if names == nil {
			names = make([]string, len(rec))
			for i := range rec {
				names[i] = fmt.Sprintf("column_%d", i+1)
			}
		}
		records = append(records, rec)
	}
	return names, records, nil
}

// inferenceOrder lists the candidate types from most to least specific
var inferenceOrder = []frame.DataType{frame.Int64, frame.Float64, frame.Boolean, frame.Date, frame.Datetime}

func inferSchema(names []string, sample [][]string, opts CSVOptions) frame.Schema {
	schema := make(frame.Schema, len(names))
	for j, name := range names {
		if t, ok := opts.Types[name]; ok {
			schema[j] = frame.Field{Name: name, Type: t}
			continue
		}
		schema[j] = frame.Field{Name: name, Type: inferColumn(sample, j, opts)}
	}
	return schema
}

// inferColumn picks the first candidate type every non-null sample cell
// parses as. A column of only nulls is Utf8.
func inferColumn(sample [][]string, j int, opts CSVOptions) frame.DataType {
	candidates := append([]frame.DataType(nil), inferenceOrder...)
	seen := false
	for _, rec := range sample {
		cell := rec[j]
		if opts.isNull(cell) {
			continue
		}
		seen = true
		kept := candidates[:0]
		for _, t := range candidates {
			if looksLike(cell, t) {
				kept = append(kept, t)
			}
		}
		candidates = kept
		if len(candidates) == 0 {
			return frame.Utf8
		}
	}
	if !seen {
		return frame.Utf8
	}
	return candidates[0]
}

func looksLike(cell string, t frame.DataType) bool {
	s := strings.TrimSpace(cell)
	switch t {
	case frame.Int64:
		_, err := strconv.ParseInt(s, 10, 64)
		return err == nil
	case frame.Float64:
		_, err := strconv.ParseFloat(s, 64)
		return err == nil
	case frame.Boolean:
		return strings.EqualFold(s, "true") || strings.EqualFold(s, "false")
	case frame.Date:
		_, ok := frame.ParseDate(s)
		return ok
	case frame.Datetime:
		_, ok := frame.ParseDatetime(s)
		return ok
	}
	return false
}

func parseCell(cell string, t frame.DataType, opts CSVOptions) (frame.Value, error) {
	if opts.isNull(cell) {
		return frame.Null(t), nil
	}
	if t == frame.Utf8 {
		return frame.Str(cell), nil
	}
	return frame.CastValue(frame.Str(cell), t, true)
}
