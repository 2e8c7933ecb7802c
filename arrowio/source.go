package arrowio

import (
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/vegasq/lazytab/frame"
	"github.com/vegasq/lazytab/internal/codec"
)

// RecordSource scans Arrow records held in memory. Every record must share
// the source schema.
type RecordSource struct {
	Name    string
	schema  *arrow.Schema
	records []arrow.Record
}

// NewRecordSource wraps records as a scan source. The records are retained
// until Release is called.
func NewRecordSource(name string, schema *arrow.Schema, records ...arrow.Record) (*RecordSource, error) {
	for i, rec := range records {
		if !rec.Schema().Equal(schema) {
			return nil, fmt.Errorf("%w: record %d of %s does not match the source schema", frame.ErrSchemaMismatch, i, name)
		}
	}
	for _, rec := range records {
		rec.Retain()
	}
	return &RecordSource{Name: name, schema: schema, records: records}, nil
}

func (s *RecordSource) Schema() (frame.Schema, error) {
	return FrameSchema(s.schema)
}

func (s *RecordSource) Read() (*frame.Table, error) {
	return readRecords(s.schema, s.records)
}

func (s *RecordSource) String() string {
	return fmt.Sprintf("arrow %s [%d records]", s.Name, len(s.records))
}

// Release drops the source's references to its records
func (s *RecordSource) Release() {
	for _, rec := range s.records {
		rec.Release()
	}
	s.records = nil
}

func readRecords(schema *arrow.Schema, records []arrow.Record) (*frame.Table, error) {
	fs, err := FrameSchema(schema)
	if err != nil {
		return nil, err
	}
	tables := make([]*frame.Table, 0, len(records))
	for _, rec := range records {
		t, err := FromRecord(rec)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	if len(tables) == 0 {
		return frame.EmptyTable(fs), nil
	}
	return frame.ConcatTables(tables...)
}

// IPCSource scans a file in the Arrow IPC stream format. Compressed files
// (.gz, .zst, .sz, .lz4) are decompressed while reading.
type IPCSource struct {
	Path string
}

// NewIPCSource returns a source for the IPC stream file at path
func NewIPCSource(path string) *IPCSource {
	return &IPCSource{Path: path}
}

// Schema reads the stream's schema message only
func (s *IPCSource) Schema() (frame.Schema, error) {
	f, err := codec.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	defer func() { _ = f.Close() }()

	r, err := ipc.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read arrow stream: %w", s.Path, err)
	}
	defer r.Release()
	return FrameSchema(r.Schema())
}

func (s *IPCSource) Read() (*frame.Table, error) {
	f, err := codec.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	defer func() { _ = f.Close() }()

	t, err := ReadIPC(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return t, nil
}

func (s *IPCSource) String() string {
	return "arrow " + s.Path
}

// ReadIPC reads an Arrow IPC stream into one table
func ReadIPC(r io.Reader) (*frame.Table, error) {
	mem := memory.NewGoAllocator()
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("failed to read arrow stream: %w", err)
	}
	defer rdr.Release()

	var tables []*frame.Table
	for rdr.Next() {
		t, err := FromRecord(rdr.Record())
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	if err := rdr.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read arrow record: %w", err)
	}

	if len(tables) == 0 {
		fs, err := FrameSchema(rdr.Schema())
		if err != nil {
			return nil, err
		}
		return frame.EmptyTable(fs), nil
	}
	return frame.ConcatTables(tables...)
}

// WriteIPC writes t to w as an Arrow IPC stream holding one record
func WriteIPC(w io.Writer, t *frame.Table) error {
	mem := memory.NewGoAllocator()
	rec, err := ToRecord(t, mem)
	if err != nil {
		return err
	}
	defer rec.Release()

	iw := ipc.NewWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem))
	if err := iw.Write(rec); err != nil {
		_ = iw.Close()
		return fmt.Errorf("failed to write arrow record: %w", err)
	}
	if err := iw.Close(); err != nil {
		return fmt.Errorf("failed to close arrow stream: %w", err)
	}
	return nil
}
