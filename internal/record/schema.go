package record

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateColumn = errors.New("record: duplicate column")
	ErrUnknownColumn   = errors.New("record: unknown column")
	ErrMissingColumn   = errors.New("record: missing column")
)

type Column struct {
	Name string
	Type DataType
}

// Schema is the ordered column list of a relation.
type Schema struct {
	Cols []Column
}

func NewSchema(cols ...Column) Schema {
	return Schema{Cols: cols}
}

func (s Schema) NumCols() int { return len(s.Cols) }

func (s Schema) Names() []string {
	out := make([]string, len(s.Cols))
	for i, c := range s.Cols {
		out[i] = c.Name
	}
	return out
}

func (s Schema) Types() []DataType {
	out := make([]DataType, len(s.Cols))
	for i, c := range s.Cols {
		out[i] = c.Type
	}
	return out
}

// Index returns the position of name, or -1.
func (s Schema) Index(name string) int {
	for i, c := range s.Cols {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func (s Schema) Column(name string) (Column, bool) {
	if i := s.Index(name); i >= 0 {
		return s.Cols[i], true
	}
	return Column{}, false
}

// Validate rejects empty or duplicate names and unknown types.
func (s Schema) Validate() error {
	seen := make(map[string]struct{}, len(s.Cols))
	for _, c := range s.Cols {
		if c.Name == "" {
			return fmt.Errorf("record: empty column name")
		}
		if _, ok := seen[c.Name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateColumn, c.Name)
		}
		seen[c.Name] = struct{}{}
		if _, err := c.Type.MarshalText(); err != nil {
			return fmt.Errorf("column %s: %w", c.Name, err)
		}
	}
	return nil
}

// Row maps column names to values.
type Row map[string]Value

// Project keeps only the named columns, in any order.
func (r Row) Project(names ...string) (Row, error) {
	out := make(Row, len(names))
	for _, n := range names {
		v, ok := r[n]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, n)
		}
		out[n] = v
	}
	return out, nil
}

// Matches reports whether every entry of where is present and equal in r.
func (r Row) Matches(where Row) bool {
	for k, want := range where {
		got, ok := r[k]
		if !ok || !got.Equal(want) {
			return false
		}
	}
	return true
}

// Values returns the row's values in schema order.
func (r Row) Values(s Schema) []Value {
	out := make([]Value, len(s.Cols))
	for i, c := range s.Cols {
		out[i] = r[c.Name]
	}
	return out
}
