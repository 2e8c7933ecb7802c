package query

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/vegasq/lazytab/frame"
)

// Function is a scalar function callable by name from expressions. One call
// of Evaluate computes one row. Implementations must be safe for concurrent
// use.
type Function interface {
	// Name returns the function name (case-insensitive)
	Name() string
	// MinArity returns the minimum number of arguments
	MinArity() int
	// MaxArity returns the maximum number of arguments (-1 for unlimited)
	MaxArity() int
	// ReturnType infers the result type from the argument types
	ReturnType(args []frame.DataType) (frame.DataType, error)
	// Evaluate computes the function for one row of arguments. Null
	// arguments arrive as invalid values.
	Evaluate(args []frame.Value) (frame.Value, error)
}

// FunctionRegistry manages function lookup and registration
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry creates an empty registry
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]Function),
	}
}

// Register adds or replaces a function
func (r *FunctionRegistry) Register(f Function) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.functions[strings.ToLower(f.Name())] = f
}

// Get retrieves a function by name (case-insensitive)
func (r *FunctionRegistry) Get(name string) (Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, exists := r.functions[strings.ToLower(name)]
	return f, exists
}

// Names lists the registered function names in sorted order
func (r *FunctionRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// globalRegistry is the registry Call resolves against
var globalRegistry *FunctionRegistry

func init() {
	globalRegistry = NewFunctionRegistry()

	// string functions
	globalRegistry.Register(&UpperFunc{})
	globalRegistry.Register(&LowerFunc{})
	globalRegistry.Register(&ConcatFunc{})
	globalRegistry.Register(&LengthFunc{})
	globalRegistry.Register(&TrimFunc{})
	globalRegistry.Register(&LTrimFunc{})
	globalRegistry.Register(&RTrimFunc{})
	globalRegistry.Register(&SubstringFunc{})
	globalRegistry.Register(&ReplaceFunc{})
	globalRegistry.Register(&ReverseFunc{})
	globalRegistry.Register(&ContainsFunc{})
	globalRegistry.Register(&StartsWithFunc{})
	globalRegistry.Register(&EndsWithFunc{})
	globalRegistry.Register(&RepeatFunc{})
	globalRegistry.Register(&LikeFunc{})

	// math functions
	globalRegistry.Register(&AbsFunc{})
	globalRegistry.Register(&RoundFunc{})
	globalRegistry.Register(&FloorFunc{})
	globalRegistry.Register(&CeilFunc{})
	globalRegistry.Register(&ModFunc{})
	globalRegistry.Register(&SqrtFunc{})
	globalRegistry.Register(&PowFunc{})
	globalRegistry.Register(&SignFunc{})
	globalRegistry.Register(&TruncFunc{})
	globalRegistry.Register(&GreatestFunc{})
	globalRegistry.Register(&LeastFunc{})

	// date/time functions
	globalRegistry.Register(&YearFunc{})
	globalRegistry.Register(&MonthFunc{})
	globalRegistry.Register(&DayFunc{})
	globalRegistry.Register(&WeekdayFunc{})
	globalRegistry.Register(&DatePartFunc{})
	globalRegistry.Register(&DateTruncFunc{})
	globalRegistry.Register(&DateAddFunc{})
	globalRegistry.Register(&DateDiffFunc{})
	globalRegistry.Register(&StrftimeFunc{})

	// conversion and conditional functions
	globalRegistry.Register(&ToStringFunc{})
	globalRegistry.Register(&ToNumberFunc{})
	globalRegistry.Register(&ToDateFunc{})
	globalRegistry.Register(&CoalesceFunc{})
	globalRegistry.Register(&NullIfFunc{})
}

// GetGlobalRegistry returns the registry used by Call
func GetGlobalRegistry() *FunctionRegistry {
	return globalRegistry
}

// RegisterFunction adds a function to the global registry
func RegisterFunction(f Function) {
	globalRegistry.Register(f)
}

func (c *CallExpr) lookup(nargs int) (Function, error) {
	f, ok := globalRegistry.Get(c.Name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown function %q", ErrInvalidPlan, c.Name)
	}
	if nargs < f.MinArity() || (f.MaxArity() >= 0 && nargs > f.MaxArity()) {
		if f.MinArity() == f.MaxArity() {
			return nil, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrInvalidPlan, c.Name, f.MinArity(), nargs)
		}
		return nil, fmt.Errorf("%w: %s takes %d to %d arguments, got %d", ErrInvalidPlan, c.Name, f.MinArity(), f.MaxArity(), nargs)
	}
	return f, nil
}

func (c *CallExpr) resolveType(s frame.Schema) (frame.DataType, error) {
	f, err := c.lookup(len(c.Args))
	if err != nil {
		return frame.Unknown, err
	}
	types := make([]frame.DataType, len(c.Args))
	for i, a := range c.Args {
		if types[i], err = a.resolveType(s); err != nil {
			return frame.Unknown, err
		}
	}
	return f.ReturnType(types)
}

func (c *CallExpr) eval(ctx *evalContext) (*frame.Column, error) {
	f, err := c.lookup(len(c.Args))
	if err != nil {
		return nil, err
	}
	args := make([]*frame.Column, len(c.Args))
	types := make([]frame.DataType, len(c.Args))
	n := 1
	for i, a := range c.Args {
		if args[i], err = a.eval(ctx); err != nil {
			return nil, err
		}
		types[i] = args[i].Type()
		if args[i].Len() != 1 {
			n = args[i].Len()
		}
	}
	if len(args) == 0 {
		n = ctx.length()
	}
	for i := range args {
		if args[i], err = broadcast(args[i], n); err != nil {
			return nil, err
		}
	}
	dtype, err := f.ReturnType(types)
	if err != nil {
		return nil, err
	}

	results := make([]frame.Value, n)
	err = frame.ParallelFor(n, func(lo, hi int) error {
		row := make([]frame.Value, len(args))
		for i := lo; i < hi; i++ {
			for j, a := range args {
				row[j] = a.Get(i)
			}
			v, err := f.Evaluate(row)
			if err != nil {
				return fmt.Errorf("%s: %w", c.Name, err)
			}
			results[i] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	b := frame.NewBuilder(c.outputName(), dtype, n)
	for _, v := range results {
		if err := b.Append(v); err != nil {
			return nil, fmt.Errorf("%s: %w", c.Name, err)
		}
	}
	return b.Finish(), nil
}

// anyNull reports whether any argument is null
func anyNull(args []frame.Value) bool {
	for _, a := range args {
		if !a.Valid {
			return true
		}
	}
	return false
}

// expectTypes checks each argument type against a predicate. Unknown (an
// untyped null) is always accepted.
func expectTypes(name string, args []frame.DataType, what string, ok func(frame.DataType) bool) error {
	for i, t := range args {
		if t != frame.Unknown && !ok(t) {
			return fmt.Errorf("%w: %s argument %d must be %s, got %s", ErrTypeMismatch, name, i+1, what, t)
		}
	}
	return nil
}

func isString(t frame.DataType) bool   { return t == frame.Utf8 }
func isNumeric(t frame.DataType) bool  { return t.IsNumeric() }
func isInteger(t frame.DataType) bool  { return t == frame.Int64 }
func isTimeLike(t frame.DataType) bool { return t.IsTemporal() || t == frame.Utf8 }

// valueToString renders a value for string functions
func valueToString(v frame.Value) string {
	if v.Type == frame.Utf8 {
		return v.Str()
	}
	return v.String()
}

// valueToTime reads a temporal value, parsing strings
func valueToTime(v frame.Value) (frame.Value, error) {
	switch v.Type {
	case frame.Date, frame.Datetime:
		return v, nil
	case frame.Utf8:
		if t, ok := frame.ParseDate(v.Str()); ok {
			return frame.DateOf(t), nil
		}
		if t, ok := frame.ParseDatetime(v.Str()); ok {
			return frame.DatetimeOf(t), nil
		}
		return frame.Value{}, fmt.Errorf("%w: cannot parse date %q", ErrTypeMismatch, v.Str())
	}
	return frame.Value{}, fmt.Errorf("%w: %s is not a date", ErrTypeMismatch, v.Type)
}
