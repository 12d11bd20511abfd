// Package frame is a small in-memory dataframe: an ordered schema of typed
// columns and rows of cells where a nil cell is null. Every operation returns
// a new Frame and leaves its receiver untouched.
package frame

import (
	"fmt"

	"jobclean/services/pipeline/internal/errors"
)

type Kind int

const (
	String Kind = iota
	Int
	Float
	Bool
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

type Column struct {
	Name string
	Kind Kind
}

// Frame cells hold string, int64, float64 or bool according to the column
// kind, or nil for null.
type Frame struct {
	schema []Column
	index  map[string]int
	rows   [][]any
}

func New(schema []Column, rows [][]any) (*Frame, error) {
	index := make(map[string]int, len(schema))
	for i, c := range schema {
		if c.Name == "" {
			return nil, errors.InvalidInput(fmt.Sprintf("column %d has no name", i), nil)
		}
		if _, dup := index[c.Name]; dup {
			return nil, errors.InvalidInput(fmt.Sprintf("duplicate column %q", c.Name), nil)
		}
		index[c.Name] = i
	}

	for r, row := range rows {
		if len(row) != len(schema) {
			return nil, errors.InvalidInput(
				fmt.Sprintf("row %d has %d cells, schema has %d columns", r, len(row), len(schema)), nil)
		}
		for i, v := range row {
			if !kindMatches(schema[i].Kind, v) {
				return nil, errors.InvalidInput(
					fmt.Sprintf("row %d column %q: %T is not %s", r, schema[i].Name, v, schema[i].Kind), nil)
			}
		}
	}

	return &Frame{
		schema: append([]Column(nil), schema...),
		index:  index,
		rows:   rows,
	}, nil
}

func kindMatches(k Kind, v any) bool {
	if v == nil {
		return true
	}
	switch v.(type) {
	case string:
		return k == String
	case int64:
		return k == Int
	case float64:
		return k == Float
	case bool:
		return k == Bool
	default:
		return false
	}
}

func build(schema []Column, rows [][]any) *Frame {
	index := make(map[string]int, len(schema))
	for i, c := range schema {
		index[c.Name] = i
	}
	return &Frame{schema: schema, index: index, rows: rows}
}

func (f *Frame) Len() int {
	return len(f.rows)
}

func (f *Frame) Schema() []Column {
	return append([]Column(nil), f.schema...)
}

func (f *Frame) Columns() []string {
	names := make([]string, len(f.schema))
	for i, c := range f.schema {
		names[i] = c.Name
	}
	return names
}

func (f *Frame) Has(col string) bool {
	_, ok := f.index[col]
	return ok
}

func (f *Frame) Kind(col string) (Kind, bool) {
	i, ok := f.index[col]
	if !ok {
		return 0, false
	}
	return f.schema[i].Kind, true
}

func (f *Frame) Row(i int) Row {
	return Row{frame: f, cells: f.rows[i]}
}

// Value returns the cell at row i of col, or nil when the column is unknown.
func (f *Frame) Value(i int, col string) any {
	c, ok := f.index[col]
	if !ok {
		return nil
	}
	return f.rows[i][c]
}

func (f *Frame) requireColumns(cols []string) error {
	for _, c := range cols {
		if !f.Has(c) {
			return errors.InvalidInput(fmt.Sprintf("unknown column %q", c), nil)
		}
	}
	return nil
}

// Row is a read-only view of one frame row.
type Row struct {
	frame *Frame
	cells []any
}

func (r Row) Get(col string) any {
	i, ok := r.frame.index[col]
	if !ok {
		return nil
	}
	return r.cells[i]
}

func (r Row) IsNull(col string) bool {
	return r.Get(col) == nil
}

func (r Row) String(col string) (string, bool) {
	s, ok := r.Get(col).(string)
	return s, ok
}

func (r Row) Int(col string) (int64, bool) {
	n, ok := r.Get(col).(int64)
	return n, ok
}

// Float reads numeric cells of Int and Float columns alike.
func (r Row) Float(col string) (float64, bool) {
	switch v := r.Get(col).(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func (r Row) Bool(col string) (bool, bool) {
	b, ok := r.Get(col).(bool)
	return b, ok
}

// Values returns a copy of the row's cells in schema order.
func (r Row) Values() []any {
	return append([]any(nil), r.cells...)
}
