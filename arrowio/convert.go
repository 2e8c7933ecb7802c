package arrowio

import (
	"fmt"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/vegasq/lazytab/frame"
)

var timestampType = &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}

// ArrowType returns the Arrow type a frame column is written as
func ArrowType(t frame.DataType) (arrow.DataType, error) {
	switch t {
	case frame.Int64:
		return arrow.PrimitiveTypes.Int64, nil
	case frame.Float64:
		return arrow.PrimitiveTypes.Float64, nil
	case frame.Utf8:
		return arrow.BinaryTypes.String, nil
	case frame.Boolean:
		return arrow.FixedWidthTypes.Boolean, nil
	case frame.Date:
		return arrow.FixedWidthTypes.Date32, nil
	case frame.Datetime:
		return timestampType, nil
	case frame.Unknown:
		return arrow.Null, nil
	}
	return nil, fmt.Errorf("%w: no arrow type for %s", frame.ErrTypeMismatch, t)
}

// FrameType returns the frame type an Arrow column is read as
func FrameType(t arrow.DataType) (frame.DataType, error) {
	switch t.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32:
		return frame.Int64, nil
	case arrow.FLOAT32, arrow.FLOAT64:
		return frame.Float64, nil
	case arrow.STRING, arrow.LARGE_STRING:
		return frame.Utf8, nil
	case arrow.BOOL:
		return frame.Boolean, nil
	case arrow.DATE32, arrow.DATE64:
		return frame.Date, nil
	case arrow.TIMESTAMP:
		return frame.Datetime, nil
	case arrow.NULL:
		return frame.Unknown, nil
	}
	return frame.Unknown, fmt.Errorf("%w: unsupported arrow type %s", frame.ErrTypeMismatch, t)
}

// ArrowSchema converts a frame schema. Every field is nullable.
func ArrowSchema(s frame.Schema) (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(s))
	for i, f := range s {
		dt, err := ArrowType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", f.Name, err)
		}
		fields[i] = arrow.Field{Name: f.Name, Type: dt, Nullable: true}
	}
	return arrow.NewSchema(fields, nil), nil
}

// FrameSchema converts an Arrow schema
func FrameSchema(s *arrow.Schema) (frame.Schema, error) {
	out := make(frame.Schema, s.NumFields())
	for i, f := range s.Fields() {
		t, err := FrameType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", f.Name, err)
		}
		out[i] = frame.Field{Name: f.Name, Type: t}
	}
	return out, nil
}

// ToRecord copies t into a new Arrow record allocated from mem; a nil mem
// uses the Go allocator. The caller must Release the record.
func ToRecord(t *frame.Table, mem memory.Allocator) (arrow.Record, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	schema, err := ArrowSchema(t.Schema())
	if err != nil {
		return nil, err
	}

	rb := array.NewRecordBuilder(mem, schema)
	defer rb.Release()

	for i, col := range t.Columns() {
		if err := appendColumn(rb.Field(i), col); err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Name(), err)
		}
	}
	return rb.NewRecord(), nil
}

func appendColumn(b array.Builder, col *frame.Column) error {
	n := col.Len()
	b.Reserve(n)
	for i := 0; i < n; i++ {
		v := col.Get(i)
		if !v.Valid {
			b.AppendNull()
			continue
		}
		switch b := b.(type) {
		case *array.Int64Builder:
			b.Append(v.Int64())
		case *array.Float64Builder:
			b.Append(v.Float64())
		case *array.StringBuilder:
			b.Append(v.Str())
		case *array.BooleanBuilder:
			b.Append(v.Bool())
		case *array.Date32Builder:
			b.Append(arrow.Date32FromTime(v.Time()))
		case *array.TimestampBuilder:
			b.Append(arrow.Timestamp(v.Time().UnixMicro()))
		default:
			return fmt.Errorf("%w: cannot append %s to %T", frame.ErrTypeMismatch, v.Type, b)
		}
	}
	return nil
}

// FromRecord copies an Arrow record into a frame table. The record is not
// retained.
func FromRecord(rec arrow.Record) (*frame.Table, error) {
	schema, err := FrameSchema(rec.Schema())
	if err != nil {
		return nil, err
	}
	if len(schema) == 0 {
		return frame.EmptyTable(nil), nil
	}

	cols := make([]*frame.Column, len(schema))
	for i, f := range schema {
		col, err := fromArray(f, rec.Column(i))
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", f.Name, err)
		}
		cols[i] = col
	}
	return frame.NewTable(cols...)
}

func fromArray(f frame.Field, arr arrow.Array) (*frame.Column, error) {
	n := arr.Len()
	if f.Type == frame.Unknown {
		return frame.Nulls(f.Name, frame.Unknown, n), nil
	}

	value, err := valueReader(arr)
	if err != nil {
		return nil, err
	}
	b := frame.NewBuilder(f.Name, f.Type, n)
	for i := 0; i < n; i++ {
		if arr.IsNull(i) {
			b.AppendNull()
			continue
		}
		if err := b.Append(value(i)); err != nil {
			return nil, err
		}
	}
	return b.Finish(), nil
}

// valueReader returns a function reading the non-null value at a row
func valueReader(arr arrow.Array) (func(int) frame.Value, error) {
	switch a := arr.(type) {
	case *array.Int8:
		return func(i int) frame.Value { return frame.Int(int64(a.Value(i))) }, nil
	case *array.Int16:
		return func(i int) frame.Value { return frame.Int(int64(a.Value(i))) }, nil
	case *array.Int32:
		return func(i int) frame.Value { return frame.Int(int64(a.Value(i))) }, nil
	case *array.Int64:
		return func(i int) frame.Value { return frame.Int(a.Value(i)) }, nil
	case *array.Uint8:
		return func(i int) frame.Value { return frame.Int(int64(a.Value(i))) }, nil
	case *array.Uint16:
		return func(i int) frame.Value { return frame.Int(int64(a.Value(i))) }, nil
	case *array.Uint32:
		return func(i int) frame.Value { return frame.Int(int64(a.Value(i))) }, nil
	case *array.Float32:
		return func(i int) frame.Value { return frame.Float(float64(a.Value(i))) }, nil
	case *array.Float64:
		return func(i int) frame.Value { return frame.Float(a.Value(i)) }, nil
	case *array.String:
		return func(i int) frame.Value { return frame.Str(a.Value(i)) }, nil
	case *array.LargeString:
		return func(i int) frame.Value { return frame.Str(a.Value(i)) }, nil
	case *array.Boolean:
		return func(i int) frame.Value { return frame.Bool(a.Value(i)) }, nil
	case *array.Date32:
		return func(i int) frame.Value { return frame.DateOf(a.Value(i).ToTime()) }, nil
	case *array.Date64:
		return func(i int) frame.Value { return frame.DateOf(a.Value(i).ToTime()) }, nil
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return func(i int) frame.Value { return frame.DatetimeOf(a.Value(i).ToTime(unit)) }, nil
	}
	return nil, fmt.Errorf("%w: unsupported arrow array %s", frame.ErrTypeMismatch, arr.DataType())
}
