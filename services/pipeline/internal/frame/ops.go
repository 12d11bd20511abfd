package frame

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"jobclean/services/pipeline/internal/errors"
)

// CountColumn is the name of the column GroupByCount appends.
const CountColumn = "count"

// Drop removes the named columns. Names that are not in the frame are ignored.
func (f *Frame) Drop(cols ...string) *Frame {
	drop := make(map[string]bool, len(cols))
	for _, c := range cols {
		drop[c] = true
	}

	keep := make([]int, 0, len(f.schema))
	schema := make([]Column, 0, len(f.schema))
	for i, c := range f.schema {
		if !drop[c.Name] {
			keep = append(keep, i)
			schema = append(schema, c)
		}
	}

	return build(schema, f.project(keep))
}

// Select projects the frame onto cols, in that order.
func (f *Frame) Select(cols ...string) (*Frame, error) {
	if err := f.requireColumns(cols); err != nil {
		return nil, err
	}

	idx := make([]int, len(cols))
	schema := make([]Column, len(cols))
	for i, c := range cols {
		idx[i] = f.index[c]
		schema[i] = f.schema[idx[i]]
	}

	return build(schema, f.project(idx)), nil
}

func (f *Frame) project(idx []int) [][]any {
	rows := make([][]any, len(f.rows))
	for r, row := range f.rows {
		out := make([]any, len(idx))
		for i, c := range idx {
			out[i] = row[c]
		}
		rows[r] = out
	}
	return rows
}

// DropNulls removes every row holding a null in any of the subset columns, or
// in any column at all when subset is empty.
func (f *Frame) DropNulls(subset ...string) (*Frame, error) {
	if err := f.requireColumns(subset); err != nil {
		return nil, err
	}

	idx := make([]int, 0, len(subset))
	if len(subset) == 0 {
		for i := range f.schema {
			idx = append(idx, i)
		}
	} else {
		for _, c := range subset {
			idx = append(idx, f.index[c])
		}
	}

	rows := make([][]any, 0, len(f.rows))
	for _, row := range f.rows {
		complete := true
		for _, c := range idx {
			if row[c] == nil {
				complete = false
				break
			}
		}
		if complete {
			rows = append(rows, row)
		}
	}

	return build(f.Schema(), rows), nil
}

func (f *Frame) Filter(pred func(Row) bool) *Frame {
	rows := make([][]any, 0, len(f.rows))
	for _, row := range f.rows {
		if pred(Row{frame: f, cells: row}) {
			rows = append(rows, row)
		}
	}
	return build(f.Schema(), rows)
}

// GroupByCount returns one row per distinct combination of cols, in order of
// first appearance, with the number of occurrences in a trailing count column.
func (f *Frame) GroupByCount(cols ...string) (*Frame, error) {
	if err := f.requireColumns(cols); err != nil {
		return nil, err
	}
	if slices.Contains(cols, CountColumn) {
		return nil, errors.InvalidInput(fmt.Sprintf("cannot group by reserved column %q", CountColumn), nil)
	}

	keyed, err := f.Select(cols...)
	if err != nil {
		return nil, err
	}

	positions := make(map[string]int)
	rows := make([][]any, 0)
	for _, row := range keyed.rows {
		key := groupKey(row)
		if pos, seen := positions[key]; seen {
			rows[pos][len(cols)] = rows[pos][len(cols)].(int64) + 1
			continue
		}
		positions[key] = len(rows)
		out := make([]any, len(cols)+1)
		copy(out, row)
		out[len(cols)] = int64(1)
		rows = append(rows, out)
	}

	schema := append(keyed.Schema(), Column{Name: CountColumn, Kind: Int})
	return build(schema, rows), nil
}

// DuplicateCount is the number of rows that repeat an earlier, fully
// identical row: the sum of count-1 over every group larger than one.
func (f *Frame) DuplicateCount() int {
	counts := make(map[string]int, len(f.rows))
	for _, row := range f.rows {
		counts[groupKey(row)]++
	}

	total := 0
	for _, n := range counts {
		if n > 1 {
			total += n - 1
		}
	}
	return total
}

func groupKey(cells []any) string {
	var b strings.Builder
	for _, v := range cells {
		switch x := v.(type) {
		case nil:
			b.WriteString("n;")
		case string:
			b.WriteString("s")
			b.WriteString(strconv.Itoa(len(x)))
			b.WriteString(":")
			b.WriteString(x)
			b.WriteString(";")
		case int64:
			b.WriteString("i")
			b.WriteString(strconv.FormatInt(x, 10))
			b.WriteString(";")
		case float64:
			b.WriteString("f")
			b.WriteString(strconv.FormatUint(math.Float64bits(x), 16))
			b.WriteString(";")
		case bool:
			b.WriteString("b")
			b.WriteString(strconv.FormatBool(x))
			b.WriteString(";")
		}
	}
	return b.String()
}

type SortKey struct {
	Column string
	Desc   bool
}

func Asc(col string) SortKey {
	return SortKey{Column: col}
}

func Desc(col string) SortKey {
	return SortKey{Column: col, Desc: true}
}

// OrderBy sorts stably by keys. Nulls sort first in ascending keys and last in
// descending ones.
func (f *Frame) OrderBy(keys ...SortKey) (*Frame, error) {
	idx := make([]int, len(keys))
	for i, k := range keys {
		c, ok := f.index[k.Column]
		if !ok {
			return nil, errors.InvalidInput(fmt.Sprintf("unknown sort column %q", k.Column), nil)
		}
		idx[i] = c
	}

	rows := slices.Clone(f.rows)
	slices.SortStableFunc(rows, func(a, b []any) int {
		for i, k := range keys {
			if c := compareCells(a[idx[i]], b[idx[i]], k.Desc); c != 0 {
				return c
			}
		}
		return 0
	})

	return build(f.Schema(), rows), nil
}

func compareCells(a, b any, desc bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		if desc {
			return 1
		}
		return -1
	case b == nil:
		if desc {
			return -1
		}
		return 1
	}

	var c int
	switch x := a.(type) {
	case string:
		c = strings.Compare(x, b.(string))
	case int64:
		c = cmp.Compare(x, b.(int64))
	case float64:
		c = cmp.Compare(x, b.(float64))
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			c = 0
		case !x:
			c = -1
		default:
			c = 1
		}
	}

	if desc {
		return -c
	}
	return c
}

// WithColumn computes name for every row. An existing column of that name is
// replaced in place; otherwise the column is appended. fn sees the row as it
// was before the call and must return a value of kind, or nil.
func (f *Frame) WithColumn(name string, kind Kind, fn func(Row) any) (*Frame, error) {
	if name == "" {
		return nil, errors.InvalidInput("column name is empty", nil)
	}

	pos, exists := f.index[name]
	schema := f.Schema()
	if exists {
		schema[pos] = Column{Name: name, Kind: kind}
	} else {
		pos = len(schema)
		schema = append(schema, Column{Name: name, Kind: kind})
	}

	rows := make([][]any, len(f.rows))
	for r, row := range f.rows {
		v := fn(Row{frame: f, cells: row})
		if !kindMatches(kind, v) {
			return nil, errors.InvalidInput(
				fmt.Sprintf("row %d column %q: %T is not %s", r, name, v, kind), nil)
		}
		out := make([]any, len(schema))
		copy(out, row)
		out[pos] = v
		rows[r] = out
	}

	return build(schema, rows), nil
}

// Replace swaps exact string matches through mapping in the subset columns,
// or in every string column when subset is empty. Non-string columns in the
// subset are left alone.
func (f *Frame) Replace(mapping map[string]string, subset ...string) (*Frame, error) {
	if err := f.requireColumns(subset); err != nil {
		return nil, err
	}
	if len(subset) == 0 {
		subset = f.Columns()
	}

	targets := make([]int, 0, len(subset))
	for _, c := range subset {
		i := f.index[c]
		if f.schema[i].Kind == String {
			targets = append(targets, i)
		}
	}

	rows := make([][]any, len(f.rows))
	for r, row := range f.rows {
		out := slices.Clone(row)
		for _, i := range targets {
			if s, ok := out[i].(string); ok {
				if repl, hit := mapping[s]; hit {
					out[i] = repl
				}
			}
		}
		rows[r] = out
	}

	return build(f.Schema(), rows), nil
}
