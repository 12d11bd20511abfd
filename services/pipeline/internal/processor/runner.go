// Package processor runs the job posting pipeline end to end.
package processor

import (
	"context"
	"fmt"
	"time"

	"jobclean/common/telemetry"
	"jobclean/services/pipeline/internal/api"
	"jobclean/services/pipeline/internal/config"
	"jobclean/services/pipeline/internal/errors"
	"jobclean/services/pipeline/internal/exporter"
	"jobclean/services/pipeline/internal/frame"
	"jobclean/services/pipeline/internal/hub"
	"jobclean/services/pipeline/internal/messaging"
	"jobclean/services/pipeline/internal/metrics"
	"jobclean/services/pipeline/internal/models"
	"jobclean/services/pipeline/internal/parser"
	"jobclean/services/pipeline/internal/store"
	"jobclean/services/pipeline/internal/transform"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	StageFetch        = "fetch"
	StageLoad         = "load"
	StageClean        = "clean"
	StageSort         = "sort"
	StageDeriveSkills = "derive_skills"
	StageNormalize    = "normalize"
	StageDerive       = "derive"
	StagePersist      = "persist"
	StageAnalyse      = "analyse"
	StageExport       = "export"
	StageVerify       = "verify"
	StageUpload       = "upload"

	topTitles      = 10
	metricsJobName = "jobclean"
	bookkeepingTTL = 30 * time.Second
)

type Runner struct {
	logger    *zap.Logger
	config    *config.Config
	tracer    trace.Tracer
	client    api.DatasetClient
	store     store.Store
	csv       *exporter.CSVWriter
	xlsx      *exporter.XLSXWriter
	uploader  hub.Uploader
	publisher messaging.Publisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewRunner(
	logger *zap.Logger,
	cfg *config.Config,
	client api.DatasetClient,
	st store.Store,
	uploader hub.Uploader,
	publisher messaging.Publisher,
	m *metrics.Metrics,
) *Runner {
	return &Runner{
		logger:    logger,
		config:    cfg,
		tracer:    telemetry.GetTracer("jobclean/pipeline/processor"),
		client:    client,
		store:     st,
		csv:       exporter.NewCSVWriter(logger),
		xlsx:      exporter.NewXLSXWriter(logger),
		uploader:  uploader,
		publisher: publisher,
		metrics:   m,
		now:       time.Now,
	}
}

// Run executes every stage in order and returns the run summary. The first
// failing stage aborts the run; its error names the stage. The run is recorded
// in the ledger, published and pushed to metrics whether it failed or not.
func (r *Runner) Run(ctx context.Context) (*models.RunSummary, error) {
	if r.config.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.RunTimeout)
		defer cancel()
	}

	summary := &models.RunSummary{
		RunID:      uuid.NewString(),
		StartedAt:  r.now().UTC(),
		DatasetURL: r.config.DatasetURL,
		Table:      r.config.TableName,
		ExportPath: r.config.ExportPath,
	}

	ctx, span := r.tracer.Start(ctx, "Run")
	defer span.End()
	span.SetAttributes(telemetry.String("run.id", summary.RunID))

	logger := r.logger.With(zap.String("run_id", summary.RunID))
	logger.Info("Pipeline run started",
		zap.String("dataset_url", summary.DatasetURL),
		zap.String("table", summary.Table))

	err := r.run(ctx, logger, summary)

	summary.FinishedAt = r.now().UTC()
	if err != nil {
		summary.Status = models.RunStatusFailed
		summary.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("Pipeline run failed",
			zap.String("stage", errors.OpOf(err)),
			zap.Duration("duration", summary.Duration()),
			zap.Error(err))
	} else {
		summary.Status = models.RunStatusSucceeded
		logger.Info("Pipeline run succeeded",
			zap.Int("rows_loaded", summary.RowsLoaded),
			zap.Int64("rows_written", summary.RowsWritten),
			zap.Int("rows_exported", summary.RowsExported),
			zap.Duration("duration", summary.Duration()))
	}

	r.finish(ctx, logger, summary)
	return summary, err
}

func (r *Runner) run(ctx context.Context, logger *zap.Logger, summary *models.RunSummary) error {
	var (
		body []byte
		f    *frame.Frame
		err  error
	)

	if err := r.stage(ctx, logger, StageFetch, func(ctx context.Context) (int, error) {
		body, err = r.client.FetchCSV(ctx, r.config.DatasetURL)
		summary.DatasetSize = len(body)
		return -1, err
	}); err != nil {
		return err
	}

	if err := r.stage(ctx, logger, StageLoad, func(context.Context) (int, error) {
		opts := parser.DefaultOptions()
		if len(r.config.NullValues) > 0 {
			opts.NullValues = r.config.NullValues
		}
		f, err = parser.ParseDataset(body, opts)
		if err != nil {
			return 0, err
		}
		summary.RowsLoaded = f.Len()
		return f.Len(), nil
	}); err != nil {
		return err
	}

	if err := r.stage(ctx, logger, StageClean, func(context.Context) (int, error) {
		f = transform.DropUnwantedColumns(f, r.config.DropColumns)
		if f, err = transform.DropIncompleteRows(f, r.config.RequiredColumns); err != nil {
			return 0, err
		}

		summary.DuplicateRows = transform.CountDuplicates(f)
		r.metrics.SetDuplicates(summary.DuplicateRows)

		titles, err := transform.JobTitleCounts(f)
		if err != nil {
			return 0, err
		}
		summary.TopTitles = titles[:min(topTitles, len(titles))]
		summary.HighPayJuniorDataEngineers = transform.HighPayJuniorDataEngineers(f).Len()
		summary.RowsAfterClean = f.Len()

		logger.Debug("Cleaned dataset",
			zap.Int("duplicates", summary.DuplicateRows),
			zap.Int("distinct_titles", len(titles)),
			zap.Int("high_pay_junior_data_engineers", summary.HighPayJuniorDataEngineers))
		return f.Len(), nil
	}); err != nil {
		return err
	}

	if err := r.stage(ctx, logger, StageSort, func(context.Context) (int, error) {
		f, err = transform.SortByCompanyAndSalary(f)
		if err != nil {
			return 0, err
		}
		return f.Len(), nil
	}); err != nil {
		return err
	}

	if err := r.stage(ctx, logger, StageDeriveSkills, func(context.Context) (int, error) {
		if f, err = transform.FlagSkills(f); err != nil {
			return 0, err
		}
		view, err := transform.SkillsetView(f)
		if err != nil {
			return 0, err
		}
		summary.SkillsetMatches = view.Len()
		return f.Len(), nil
	}); err != nil {
		return err
	}

	if err := r.stage(ctx, logger, StageNormalize, func(context.Context) (int, error) {
		if f, err = transform.NormalizeEmploymentType(f); err != nil {
			return 0, err
		}
		if f, err = transform.CleanText(f, transform.DefaultTextColumns()); err != nil {
			return 0, err
		}
		return f.Len(), nil
	}); err != nil {
		return err
	}

	if err := r.stage(ctx, logger, StageDerive, func(context.Context) (int, error) {
		if f, err = transform.AddDaysUntilDeadline(f); err != nil {
			return 0, err
		}
		if f, err = transform.AddSalaryBucket(f); err != nil {
			return 0, err
		}
		summary.Columns = f.Columns()
		return f.Len(), nil
	}); err != nil {
		return err
	}

	if err := r.stage(ctx, logger, StagePersist, func(ctx context.Context) (int, error) {
		n, err := r.store.WriteTable(ctx, r.config.TableName, f)
		summary.RowsWritten = n
		return int(n), err
	}); err != nil {
		return err
	}

	if err := r.stage(ctx, logger, StageAnalyse, func(ctx context.Context) (int, error) {
		residences, err := r.store.HighSalaryResidences(ctx, r.config.TableName, r.config.HighSalaryThreshold)
		if err != nil {
			return 0, err
		}
		months, err := r.store.PostingMonthStatuses(ctx, r.config.TableName)
		if err != nil {
			return 0, err
		}
		summary.HighSalaryResidences = residences
		summary.PostingMonths = months
		return -1, nil
	}); err != nil {
		return err
	}

	if err := r.stage(ctx, logger, StageExport, func(context.Context) (int, error) {
		n, err := r.csv.WriteFrame(r.config.ExportPath, f)
		if err != nil {
			return 0, err
		}
		summary.RowsExported = n
		if r.config.ExportXLSXPath != "" {
			if err := r.xlsx.WriteWorkbook(r.config.ExportXLSXPath, workbookSheets(f, summary)...); err != nil {
				return 0, err
			}
		}
		return n, nil
	}); err != nil {
		return err
	}

	if err := r.stage(ctx, logger, StageVerify, func(ctx context.Context) (int, error) {
		exported, err := r.csv.CountRows(r.config.ExportPath)
		if err != nil {
			return 0, err
		}
		stored, err := r.store.CountRows(ctx, r.config.TableName)
		if err != nil {
			return 0, err
		}
		if int64(exported) != stored {
			return 0, errors.Internal(fmt.Sprintf(
				"exported file has %d rows but table %s has %d", exported, r.config.TableName, stored), nil)
		}
		return exported, nil
	}); err != nil {
		return err
	}

	if !r.config.UploadEnabled {
		logger.Info("Upload disabled, skipping", zap.String("stage", StageUpload))
		return nil
	}

	return r.stage(ctx, logger, StageUpload, func(ctx context.Context) (int, error) {
		if r.config.HFUploadTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.config.HFUploadTimeout)
			defer cancel()
		}
		info, err := r.uploader.UploadFile(ctx, hub.UploadRequest{
			LocalPath:  r.config.ExportPath,
			PathInRepo: r.config.HFPathInRepo,
			RepoID:     r.config.HFRepoID,
			RepoType:   r.config.HFRepoType,
			Revision:   r.config.HFRevision,
		})
		if err != nil {
			return 0, err
		}
		summary.CommitURL = info.CommitURL
		return -1, nil
	})
}

// stage runs fn as a traced, logged and timed pipeline stage. fn returns the
// row count it left, or -1 when rows do not apply.
func (r *Runner) stage(ctx context.Context, logger *zap.Logger, name string, fn func(context.Context) (int, error)) error {
	if err := ctx.Err(); err != nil {
		return errors.WithOp(name, errors.Unavailable("run cancelled", err))
	}

	ctx, span := r.tracer.Start(ctx, name)
	defer span.End()

	start := time.Now()
	rows, err := fn(ctx)
	elapsed := time.Since(start)
	r.metrics.ObserveStage(name, elapsed, rows)

	if err != nil {
		err = errors.WithOp(name, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	fields := []zap.Field{zap.String("stage", name), zap.Duration("duration", elapsed)}
	if rows >= 0 {
		span.SetAttributes(telemetry.Int("rows", rows))
		fields = append(fields, zap.Int("rows", rows))
	}
	logger.Info("Stage completed", fields...)
	return nil
}

// finish records, publishes and pushes the run. Failures here are logged and
// never change the run's outcome.
func (r *Runner) finish(ctx context.Context, logger *zap.Logger, summary *models.RunSummary) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bookkeepingTTL)
	defer cancel()

	if err := r.store.RecordRun(ctx, models.NewPipelineRun(summary)); err != nil {
		logger.Warn("failed to record pipeline run", zap.Error(err))
	}

	r.metrics.RunFinished(summary.Status, summary.FinishedAt, summary.Status == models.RunStatusSucceeded)

	if err := r.publisher.PublishRunCompleted(ctx, summary); err != nil {
		logger.Warn("failed to publish run summary", zap.Error(err))
	}

	if r.config.PushgatewayURL != "" {
		if err := r.metrics.Push(ctx, r.config.PushgatewayURL, metricsJobName); err != nil {
			logger.Warn("failed to push metrics", zap.Error(err))
		}
	}
}

func workbookSheets(f *frame.Frame, summary *models.RunSummary) []exporter.Sheet {
	titles := exporter.Sheet{Name: "Top Titles", Headers: []string{"job_title", "count"}}
	for _, t := range summary.TopTitles {
		titles.Rows = append(titles.Rows, []any{t.Title, t.Count})
	}

	residences := exporter.Sheet{Name: "High Salary Residences", Headers: []string{"employee_residence", "avg_salary", "jobs"}}
	for _, r := range summary.HighSalaryResidences {
		residences.Rows = append(residences.Rows, []any{r.Residence, r.AvgSalary, r.Jobs})
	}

	months := exporter.Sheet{Name: "Posting Months", Headers: []string{"posting_month_status", "jobs"}}
	for _, m := range summary.PostingMonths {
		months.Rows = append(months.Rows, []any{m.Status, m.Jobs})
	}

	return []exporter.Sheet{exporter.FrameSheet("Jobs", f), titles, residences, months}
}
