package frame

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// FormatCell renders a cell the way exported CSV files carry it. Null is the
// empty string.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "True"
		}
		return "False"
	default:
		return fmt.Sprint(x)
	}
}

// Records returns the rows as formatted strings, without the header.
func (f *Frame) Records() [][]string {
	records := make([][]string, len(f.rows))
	for r, row := range f.rows {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = FormatCell(v)
		}
		records[r] = rec
	}
	return records
}

// WriteCSV writes the header line followed by every row.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Columns()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for r, rec := range f.Records() {
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", r, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
