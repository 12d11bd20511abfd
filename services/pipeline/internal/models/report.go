package models

type TitleCount struct {
	Title string `json:"title"`
	Count int64  `json:"count"`
}

// ResidenceSalary is an employee residence whose postings average above the
// queried salary threshold.
type ResidenceSalary struct {
	Residence string  `json:"residence"`
	AvgSalary float64 `json:"avg_salary"`
	Jobs      int64   `json:"jobs"`
}

// MonthStatusCount counts postings per posting-month label.
type MonthStatusCount struct {
	Status string `json:"status"`
	Jobs   int64  `json:"jobs"`
}

const (
	PostedInJanuary      = "Posted in January"
	PostedInDecember     = "Posted in December"
	PostedInAnotherMonth = "Posted in another month"
)
