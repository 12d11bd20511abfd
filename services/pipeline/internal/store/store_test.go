package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"jobclean/services/pipeline/internal/config"
	"jobclean/services/pipeline/internal/errors"
	"jobclean/services/pipeline/internal/frame"
	"jobclean/services/pipeline/internal/models"
)

var jobsSchema = []frame.Column{
	{Name: "job_id", Kind: frame.String},
	{Name: "salary_usd", Kind: frame.Int},
	{Name: "employee_residence", Kind: frame.String},
	{Name: "posting_date", Kind: frame.String},
	{Name: "has_AWS", Kind: frame.Bool},
	{Name: "benefits", Kind: frame.Float},
}

func jobsFrame(t *testing.T) *frame.Frame {
	t.Helper()
	f, err := frame.New(jobsSchema, [][]any{
		{"AI1", int64(200000), "United States", "2025-01-05", true, 5.5},
		{"AI2", int64(160000), "United States", "2024-12-20", false, nil},
		{"AI3", int64(90000), "Germany", "2024-12-01", nil, 6.0},
		{"AI4", int64(180000), "Canada", "2024-07-14", true, 7.25},
		{"AI5", nil, "Canada", "not a date", false, 1.0},
		{"AI6", int64(100000), "India", nil, true, 2.0},
	})
	require.NoError(t, err)
	return f
}

func openSQLite(t *testing.T, batchSize int) *SQLStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "jobs.db"), batchSize, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateTableSQL(t *testing.T) {
	cols := []frame.Column{{Name: "job_id", Kind: frame.String}, {Name: "has_AWS", Kind: frame.Bool}}

	assert.Equal(t,
		"CREATE TABLE `jobs` (`job_id` Nullable(String), `has_AWS` Nullable(Bool)) ENGINE = MergeTree() ORDER BY tuple()",
		clickhouseDialect.createTableSQL("jobs", cols))
	assert.Equal(t,
		`CREATE TABLE "jobs" ("job_id" TEXT, "has_AWS" BOOLEAN)`,
		postgresDialect.createTableSQL("jobs", cols))
	assert.Equal(t, `DROP TABLE IF EXISTS "jobs"`, sqliteDialect.dropTableSQL("jobs"))
}

func TestSQLStore_WriteTable(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t, 4)

	n, err := s.WriteTable(ctx, "ai_jobdataset", jobsFrame(t))
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)

	count, err := s.CountRows(ctx, "ai_jobdataset")
	require.NoError(t, err)
	assert.Equal(t, int64(6), count)

	var nulls int64
	require.NoError(t, s.db.Raw(`SELECT COUNT(*) FROM "ai_jobdataset" WHERE "salary_usd" IS NULL`).Scan(&nulls).Error)
	assert.Equal(t, int64(1), nulls)
}

func TestSQLStore_WriteTableOverwrites(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t, 100)

	_, err := s.WriteTable(ctx, "ai_jobdataset", jobsFrame(t))
	require.NoError(t, err)

	smaller, err := frame.New([]frame.Column{{Name: "job_id", Kind: frame.String}}, [][]any{{"X1"}})
	require.NoError(t, err)
	n, err := s.WriteTable(ctx, "ai_jobdataset", smaller)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err := s.CountRows(ctx, "ai_jobdataset")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSQLStore_InvalidIdentifiers(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t, 10)

	_, err := s.WriteTable(ctx, "jobs; DROP TABLE x", jobsFrame(t))
	assert.True(t, errors.Is(err, errors.ErrTypeInvalidInput))

	bad, err := frame.New([]frame.Column{{Name: "bad name", Kind: frame.String}}, nil)
	require.NoError(t, err)
	_, err = s.WriteTable(ctx, "jobs", bad)
	assert.True(t, errors.Is(err, errors.ErrTypeInvalidInput))

	_, err = s.CountRows(ctx, "1jobs")
	assert.True(t, errors.Is(err, errors.ErrTypeInvalidInput))
}

func TestSQLStore_HighSalaryResidences(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t, 10)
	_, err := s.WriteTable(ctx, "ai_jobdataset", jobsFrame(t))
	require.NoError(t, err)

	got, err := s.HighSalaryResidences(ctx, "ai_jobdataset", 150000)
	require.NoError(t, err)

	assert.Equal(t, []models.ResidenceSalary{
		{Residence: "Canada", AvgSalary: 180000, Jobs: 2},
		{Residence: "United States", AvgSalary: 180000, Jobs: 2},
	}, got)
}

func TestSQLStore_PostingMonthStatuses(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t, 10)
	_, err := s.WriteTable(ctx, "ai_jobdataset", jobsFrame(t))
	require.NoError(t, err)

	got, err := s.PostingMonthStatuses(ctx, "ai_jobdataset")
	require.NoError(t, err)

	assert.Equal(t, []models.MonthStatusCount{
		{Status: models.PostedInJanuary, Jobs: 1},
		{Status: models.PostedInDecember, Jobs: 2},
		{Status: models.PostedInAnotherMonth, Jobs: 3},
	}, got)
}

func TestSQLStore_RecordRun(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t, 10)

	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	run := &models.PipelineRun{
		RunID:       "run-1",
		TargetTable: "ai_jobdataset",
		Status:      models.RunStatusFailed,
		StartedAt:   started,
		FinishedAt:  started.Add(time.Minute),
		Error:       "boom",
	}
	require.NoError(t, s.RecordRun(ctx, run))

	run.Status = models.RunStatusSucceeded
	run.Error = ""
	run.RowsWritten = 42
	require.NoError(t, s.RecordRun(ctx, run))

	require.NoError(t, s.RecordRun(ctx, &models.PipelineRun{
		RunID:     "run-2",
		Status:    models.RunStatusSucceeded,
		StartedAt: started.Add(time.Hour),
	}))

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].RunID)
	assert.Equal(t, "run-1", runs[1].RunID)
	assert.Equal(t, models.RunStatusSucceeded, runs[1].Status)
	assert.Equal(t, int64(42), runs[1].RowsWritten)
	assert.Empty(t, runs[1].Error)
}

func TestOpen_Driver(t *testing.T) {
	cfg := &config.Config{
		StoreDriver:     config.DriverSQLite,
		SQLitePath:      filepath.Join(t.TempDir(), "open.db"),
		InsertBatchSize: 10,
	}
	s, err := Open(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	cfg.StoreDriver = "mysql"
	_, err = Open(context.Background(), cfg, zaptest.NewLogger(t))
	assert.True(t, errors.Is(err, errors.ErrTypeInvalidInput))
}
