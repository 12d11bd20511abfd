package models

import (
	"time"
)

const (
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// RunSummary describes one pipeline run. It is logged, published as the run
// completed event and returned to callers.
type RunSummary struct {
	RunID       string    `json:"run_id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	DatasetURL  string    `json:"dataset_url"`
	DatasetSize int       `json:"dataset_bytes"`

	RowsLoaded     int      `json:"rows_loaded"`
	RowsAfterClean int      `json:"rows_after_clean"`
	RowsWritten    int64    `json:"rows_written"`
	RowsExported   int      `json:"rows_exported"`
	DuplicateRows  int      `json:"duplicate_rows"`
	Columns        []string `json:"columns"`

	HighPayJuniorDataEngineers int `json:"high_pay_junior_data_engineers"`
	SkillsetMatches            int `json:"skillset_matches"`

	TopTitles            []TitleCount       `json:"top_titles,omitempty"`
	HighSalaryResidences []ResidenceSalary  `json:"high_salary_residences,omitempty"`
	PostingMonths        []MonthStatusCount `json:"posting_months,omitempty"`

	Table      string `json:"table"`
	ExportPath string `json:"export_path"`
	CommitURL  string `json:"commit_url,omitempty"`
}

func (s *RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// PipelineRun is one row of the pipeline_runs ledger table.
type PipelineRun struct {
	RunID         string    `gorm:"column:run_id;primaryKey;size:36"`
	TargetTable   string    `gorm:"column:target_table"`
	Status        string    `gorm:"column:status"`
	StartedAt     time.Time `gorm:"column:started_at"`
	FinishedAt    time.Time `gorm:"column:finished_at"`
	RowsLoaded    int64     `gorm:"column:rows_loaded"`
	RowsWritten   int64     `gorm:"column:rows_written"`
	DuplicateRows int64     `gorm:"column:duplicate_rows"`
	ExportPath    string    `gorm:"column:export_path"`
	CommitURL     string    `gorm:"column:commit_url"`
	Error         string    `gorm:"column:error"`
}

func (PipelineRun) TableName() string {
	return "pipeline_runs"
}

func NewPipelineRun(s *RunSummary) *PipelineRun {
	return &PipelineRun{
		RunID:         s.RunID,
		TargetTable:   s.Table,
		Status:        s.Status,
		StartedAt:     s.StartedAt,
		FinishedAt:    s.FinishedAt,
		RowsLoaded:    int64(s.RowsLoaded),
		RowsWritten:   s.RowsWritten,
		DuplicateRows: int64(s.DuplicateRows),
		ExportPath:    s.ExportPath,
		CommitURL:     s.CommitURL,
		Error:         s.Error,
	}
}
