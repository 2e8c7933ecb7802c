package frame

import (
	"fmt"
	"strings"
)

// Field names and types one column
type Field struct {
	Name string
	Type DataType
}

// Schema is the ordered list of a table's fields
type Schema []Field

// Names returns the field names in order
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// Index returns the position of a field, or -1
func (s Schema) Index(name string) int {
	for i, f := range s {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Lookup finds a field by name. A missing field is reported as
// ErrUnknownColumn.
func (s Schema) Lookup(name string) (Field, error) {
	if i := s.Index(name); i >= 0 {
		return s[i], nil
	}
	return Field{}, fmt.Errorf("%w: %q (available: %s)", ErrUnknownColumn, name, strings.Join(s.Names(), ", "))
}

// Equal reports whether both schemas have the same names, order and types
func (s Schema) Equal(o Schema) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// String renders the schema as "name: type, ..."
func (s Schema) String() string {
	parts := make([]string, len(s))
	for i, f := range s {
		parts[i] = f.Name + ": " + f.Type.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
