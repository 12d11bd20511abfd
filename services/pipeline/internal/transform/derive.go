package transform

import (
	"slices"
	"strings"
	"time"

	"jobclean/services/pipeline/internal/frame"
)

const (
	dateLayout = "2006-01-02"

	lowSalaryBelow  = 50000
	highSalaryAbove = 100000

	BucketLow    = "Low"
	BucketMedium = "Medium"
	BucketHigh   = "High"
)

// SplitSkills splits a comma separated skill list into trimmed, non-empty tokens.
func SplitSkills(skills string) []string {
	parts := strings.Split(strings.TrimSpace(skills), ",")
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

func hasSkill(skill string) func(frame.Row) any {
	return func(r frame.Row) any {
		skills, ok := r.String(ColRequiredSkills)
		if !ok {
			return nil
		}
		return slices.Contains(SplitSkills(skills), skill)
	}
}

// FlagSkills adds has_python and has_AWS, true when the skill list names
// "Python" or "AWS" as one of its entries. A null skill list gives null flags.
func FlagSkills(f *frame.Frame) (*frame.Frame, error) {
	out, err := f.WithColumn(ColHasPython, frame.Bool, hasSkill("Python"))
	if err != nil {
		return nil, err
	}
	return out.WithColumn(ColHasAWS, frame.Bool, hasSkill("AWS"))
}

// SkillsetView lists the postings that want both Python and AWS.
func SkillsetView(f *frame.Frame) (*frame.Frame, error) {
	both := f.Filter(func(r frame.Row) bool {
		py, _ := r.Bool(ColHasPython)
		aws, _ := r.Bool(ColHasAWS)
		return py && aws
	})
	return both.Select(ColJobID, ColJobTitle, ColSalaryUSD, ColCompanyName)
}

func parseDate(r frame.Row, col string) (time.Time, bool) {
	s, ok := r.String(col)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DaysBetween is the whole number of days from posted to deadline, negative
// when the deadline comes first.
func DaysBetween(posted, deadline time.Time) int64 {
	return int64(deadline.Sub(posted) / (24 * time.Hour))
}

// AddDaysUntilDeadline adds days_until_deadline. It is null when either date
// is missing or not a yyyy-mm-dd date.
func AddDaysUntilDeadline(f *frame.Frame) (*frame.Frame, error) {
	return f.WithColumn(ColDaysUntilDeadline, frame.Int, func(r frame.Row) any {
		posted, ok := parseDate(r, ColPostingDate)
		if !ok {
			return nil
		}
		deadline, ok := parseDate(r, ColApplicationDeadline)
		if !ok {
			return nil
		}
		return DaysBetween(posted, deadline)
	})
}

// SalaryBucket maps a salary to Low (< 50000), Medium (50000 to 100000
// inclusive) or High (> 100000).
func SalaryBucket(salary float64) string {
	switch {
	case salary < lowSalaryBelow:
		return BucketLow
	case salary <= highSalaryAbove:
		return BucketMedium
	default:
		return BucketHigh
	}
}

func AddSalaryBucket(f *frame.Frame) (*frame.Frame, error) {
	return f.WithColumn(ColSalaryBucket, frame.String, func(r frame.Row) any {
		salary, ok := r.Float(ColSalaryUSD)
		if !ok {
			return nil
		}
		return SalaryBucket(salary)
	})
}
