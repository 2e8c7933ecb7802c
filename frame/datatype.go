package frame

import (
	"fmt"
	"strings"
)

// DataType is the logical type of a column
type DataType int

const (
	Unknown DataType = iota // untyped null
	Int64
	Float64
	Utf8
	Boolean
	Date
	Datetime
)

// String returns the lower-case type name
func (t DataType) String() string {
	switch t {
	case Unknown:
		return "null"
	case Int64:
		return "int64"
	case Float64:
		return "float64"
	case Utf8:
		return "utf8"
	case Boolean:
		return "bool"
	case Date:
		return "date"
	case Datetime:
		return "datetime"
	default:
		return fmt.Sprintf("DataType(%d)", int(t))
	}
}

// IsNumeric reports whether arithmetic is defined on the type
func (t DataType) IsNumeric() bool {
	return t == Int64 || t == Float64
}

// IsTemporal reports whether the type holds a point in time
func (t DataType) IsTemporal() bool {
	return t == Date || t == Datetime
}

// ParseDataType parses a type name. Common aliases are accepted, so
// "int", "i64" and "integer" all name Int64; "float32" maps to Float64.
func ParseDataType(name string) (DataType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "int", "int64", "i64", "integer", "bigint", "int32", "i32":
		return Int64, nil
	case "float", "float64", "f64", "double", "float32", "f32", "real":
		return Float64, nil
	case "str", "string", "utf8", "text", "varchar":
		return Utf8, nil
	case "bool", "boolean":
		return Boolean, nil
	case "date":
		return Date, nil
	case "datetime", "timestamp":
		return Datetime, nil
	case "null":
		return Unknown, nil
	default:
		return Unknown, fmt.Errorf("%w: unknown data type %q", ErrTypeMismatch, name)
	}
}
