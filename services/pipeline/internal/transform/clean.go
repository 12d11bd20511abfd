// Package transform holds the fixed cleaning, deriving and normalizing steps
// applied to the job posting dataset.
package transform

import (
	"cmp"
	"slices"

	"jobclean/services/pipeline/internal/frame"
	"jobclean/services/pipeline/internal/models"
)

const (
	ColJobID                = "job_id"
	ColJobTitle             = "job_title"
	ColSalaryUSD            = "salary_usd"
	ColEmploymentType       = "employment_type"
	ColCompanyLocation      = "company_location"
	ColEmployeeResidence    = "employee_residence"
	ColRequiredSkills       = "required_skills"
	ColYearsExperience      = "years_experience"
	ColIndustry             = "industry"
	ColPostingDate          = "posting_date"
	ColApplicationDeadline  = "application_deadline"
	ColCompanyName          = "company_name"
	ColJobDescriptionLength = "job_description_length"
	ColExperienceLevel      = "experience_level"
	ColBenefitsScore        = "benefits_score"

	ColHasPython         = "has_python"
	ColHasAWS            = "has_AWS"
	ColDaysUntilDeadline = "days_until_deadline"
	ColSalaryBucket      = "salary_bucket"
)

// DefaultDropColumns are pruned right after loading.
func DefaultDropColumns() []string {
	return []string{ColJobDescriptionLength, ColExperienceLevel, ColBenefitsScore}
}

// DefaultRequiredColumns must be non-null for a posting to be kept.
func DefaultRequiredColumns() []string {
	return []string{ColJobTitle, ColCompanyLocation, ColIndustry, ColEmployeeResidence, ColCompanyName}
}

// DefaultTextColumns are title-cased and trimmed.
func DefaultTextColumns() []string {
	return []string{ColJobTitle, ColCompanyLocation, ColIndustry, ColEmployeeResidence, ColCompanyName}
}

func DropUnwantedColumns(f *frame.Frame, cols []string) *frame.Frame {
	return f.Drop(cols...)
}

func DropIncompleteRows(f *frame.Frame, required []string) (*frame.Frame, error) {
	return f.DropNulls(required...)
}

func CountDuplicates(f *frame.Frame) int {
	return f.DuplicateCount()
}

// JobTitleCounts returns the number of postings per job title, most frequent
// first and ties broken by title.
func JobTitleCounts(f *frame.Frame) ([]models.TitleCount, error) {
	grouped, err := f.GroupByCount(ColJobTitle)
	if err != nil {
		return nil, err
	}

	counts := make([]models.TitleCount, 0, grouped.Len())
	for i := 0; i < grouped.Len(); i++ {
		row := grouped.Row(i)
		title, _ := row.String(ColJobTitle)
		n, _ := row.Int(frame.CountColumn)
		counts = append(counts, models.TitleCount{Title: title, Count: n})
	}

	slices.SortStableFunc(counts, func(a, b models.TitleCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Title, b.Title)
	})
	return counts, nil
}

// HighPayJuniorDataEngineers keeps Data Engineer postings paying over 100k
// that ask for less than four years of experience.
func HighPayJuniorDataEngineers(f *frame.Frame) *frame.Frame {
	return f.Filter(func(r frame.Row) bool {
		salary, ok := r.Float(ColSalaryUSD)
		if !ok || salary <= 100000 {
			return false
		}
		years, ok := r.Float(ColYearsExperience)
		if !ok || years >= 4 {
			return false
		}
		title, ok := r.String(ColJobTitle)
		return ok && title == "Data Engineer"
	})
}

func SortByCompanyAndSalary(f *frame.Frame) (*frame.Frame, error) {
	return f.OrderBy(frame.Asc(ColCompanyName), frame.Desc(ColSalaryUSD))
}
