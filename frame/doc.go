// Package frame implements the column store underneath the lazy query engine.
//
// A Column is a named, typed and contiguous buffer of values with a validity
// mask. The mask is a roaring bitmap holding the positions of null values, so
// a column without nulls carries no mask at all. A Table is an ordered set of
// uniquely named columns of equal length.
//
// Columns and tables are immutable. Every operation, from Take and Slice to the
// arithmetic and comparison kernels, returns a new value and never writes into
// its inputs, which makes it safe to share buffers between tables and to read
// the same table from many goroutines.
//
// # Types
//
// Six logical types are supported:
//   - Int64, Float64
//   - Utf8
//   - Boolean
//   - Date (a calendar day, stored as UTC midnight)
//   - Datetime
//
// The zero DataType, Unknown, only appears for untyped null literals. Kernels
// treat an Unknown operand as a null of the other operand's type.
//
// # Null handling
//
// Arithmetic and comparison kernels propagate nulls: a null input position
// yields a null output position. Boolean logic follows Kleene's three-valued
// rules, so false AND null is false and true OR null is true. IsNull and
// IsNotNull never produce nulls.
//
// # Basic Usage
//
//	ids := frame.FromInt64s("id", []int64{1, 1, 2}, nil)
//	amt := frame.FromFloat64s("amt", []float64{10, 20, 5}, []bool{true, false, true})
//	t, err := frame.NewTable(ids, amt)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	v, _ := t.Value("amt", 1) // null
//
// # Parallel Maps
//
// Map applies a function to every element of a column. Columns longer than the
// configured threshold are split into partitions that run on an errgroup; the
// output is always in input order. See SetParallelism.
package frame
