package transform

import (
	"strings"
	"unicode"

	"jobclean/services/pipeline/internal/frame"
)

// EmploymentTypeLabels expands the dataset's employment type codes.
var EmploymentTypeLabels = map[string]string{
	"FL": "Full Time",
	"PT": "Part Time",
	"NA": "Not Applicable",
	"CT": "Contract",
}

func NormalizeEmploymentType(f *frame.Frame) (*frame.Frame, error) {
	if !f.Has(ColEmploymentType) {
		return f, nil
	}
	return f.Replace(EmploymentTypeLabels, ColEmploymentType)
}

// InitCap lower-cases s and upper-cases the first letter of every
// space separated word.
func InitCap(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	start := true
	for _, r := range s {
		if r == ' ' {
			start = true
			b.WriteRune(r)
			continue
		}
		if start {
			b.WriteRune(unicode.ToUpper(r))
			start = false
		} else {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// CleanText title-cases and trims the string columns in cols. Columns missing
// from the frame are skipped.
func CleanText(f *frame.Frame, cols []string) (*frame.Frame, error) {
	out := f
	for _, col := range cols {
		if kind, ok := out.Kind(col); !ok || kind != frame.String {
			continue
		}
		var err error
		out, err = out.WithColumn(col, frame.String, func(r frame.Row) any {
			s, ok := r.String(col)
			if !ok {
				return nil
			}
			return strings.TrimSpace(InitCap(s))
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
