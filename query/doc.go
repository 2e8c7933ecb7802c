// Package query provides lazy, plan-based queries over frame tables.
//
// A LazyFrame is an immutable logical plan. Builder methods wrap the plan in
// a new operator and never touch data; Collect resolves the output schema,
// materializes every source and then evaluates the plan leaf first.
//
// Supported operators:
//   - Select, Filter, WithColumns with column expressions
//   - GroupBy(...).Agg(...) and Agg for single-group aggregation
//   - Join (inner, left, cross) with hash matching on key tuples
//   - Sort (stable, per-key direction and null placement), Slice, Head, Tail
//   - Unique (keep first, last or none), Concat, DropNulls, Rename
//   - Frame-wide Mean, Sum, Min, Max, Count and Std
//
// # Basic Usage
//
// Build a plan from a source and collect it:
//
//	src := reader.NewCSVSource("product.csv", reader.CSVOptions{})
//	rate := query.Scan(src).
//	    DropNulls().
//	    Select(query.Alias(query.Div(
//	        query.Cast(query.Sub(query.Col("unit_price"), query.Col("unit_cost")), frame.Float64),
//	        query.Col("unit_price")), "rate")).
//	    Mean()
//
//	table, err := rate.Collect()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Expressions
//
// Expressions are built with Col, Lit and the operator constructors (Add,
// Eq, And, ...), or parsed from text:
//
//	e, err := query.ParseExpr("sum(amount) / count(*) AS avg_amount")
//
// The text form covers arithmetic, comparisons, AND/OR/NOT, IS [NOT] NULL,
// IN, LIKE, BETWEEN, CASE WHEN, CAST and TRY_CAST, aggregates (sum, mean,
// avg, count, min, max, std, var, median, quantile, first, last, n_unique),
// windows (rank, shift, with OVER (PARTITION BY ...)) and every function in
// the registry.
//
// # Aggregation
//
// Aggregates are only valid inside GroupBy(...).Agg(...) or Agg. Groups are
// emitted in first-seen order and null is a key value of its own:
//
//	query.FromTable(t).GroupBy(query.Col("id")).Agg(query.Sum(query.Col("amt")))
//
// # Windows
//
// Rank and Shift operate on the row order of their input, so sort first.
// Over restricts the window to rows with equal partition keys.
//
// # Null Handling
//
//   - Arithmetic and comparison propagate nulls
//   - AND/OR use three-valued logic
//   - A null filter predicate drops the row
//   - Null join keys never match unless JoinNullsEqual is given
//
// # Error Handling
//
// Errors wrap sentinel values that callers test with errors.Is:
// ErrUnknownColumn, ErrTypeMismatch, ErrSchemaMismatch, ErrLengthMismatch,
// ErrInvalidAggregateContext, ErrEmptyGroupQuantile, ErrNotAggregated,
// ErrInvalidJoin and ErrInvalidPlan.
package query
