package store

import (
	"context"
	"fmt"

	"jobclean/common/database"
	"jobclean/common/database/schema"
	"jobclean/common/database/schema/migrations"
	"jobclean/services/pipeline/internal/config"
	"jobclean/services/pipeline/internal/errors"
	"jobclean/services/pipeline/internal/frame"
	"jobclean/services/pipeline/internal/models"

	"go.uber.org/zap"
)

type ClickHouseStore struct {
	db        *database.Database
	batchSize int
	logger    *zap.Logger
}

// OpenClickHouse connects and brings the pipeline_runs ledger up to date.
func OpenClickHouse(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*ClickHouseStore, error) {
	db, err := database.New(ctx, database.Options{
		DSN:             cfg.ClickHouseDSN,
		MaxOpenConns:    cfg.ClickHouseMaxOpenConns,
		MaxIdleConns:    cfg.ClickHouseMaxIdleConns,
		ConnMaxLifetime: cfg.ClickHouseConnMaxLife,
		Username:        cfg.ClickHouseUsername,
		Password:        cfg.ClickHousePassword,
		Database:        cfg.ClickHouseDatabase,
	}, logger)
	if err != nil {
		return nil, errors.Unavailable("connecting to clickhouse", err)
	}

	migrator := schema.NewMigrator(db.Conn(), logger)
	if _, err := schema.Migrate(ctx, migrator, migrations.All, logger); err != nil {
		_ = db.Close()
		return nil, errors.Internal("migrating clickhouse", err)
	}

	return &ClickHouseStore{db: db, batchSize: cfg.InsertBatchSize, logger: logger}, nil
}

func (s *ClickHouseStore) WriteTable(ctx context.Context, table string, f *frame.Frame) (int64, error) {
	cols := f.Schema()
	if err := checkIdentifiers(table, cols); err != nil {
		return 0, err
	}
	conn := s.db.Conn()

	if err := conn.Exec(ctx, clickhouseDialect.dropTableSQL(table)); err != nil {
		return 0, errors.Internal(fmt.Sprintf("dropping table %s", table), err)
	}
	if err := conn.Exec(ctx, clickhouseDialect.createTableSQL(table, cols)); err != nil {
		return 0, errors.Internal(fmt.Sprintf("creating table %s", table), err)
	}

	insert := "INSERT INTO " + clickhouseDialect.quote(table)
	var written int64
	for start := 0; start < f.Len(); start += s.batchSize {
		end := min(start+s.batchSize, f.Len())

		batch, err := conn.PrepareBatch(ctx, insert)
		if err != nil {
			return written, errors.Internal("preparing insert batch", err)
		}
		for i := start; i < end; i++ {
			if err := batch.Append(f.Row(i).Values()...); err != nil {
				_ = batch.Abort()
				return written, errors.Internal(fmt.Sprintf("appending row %d", i), err)
			}
		}
		if err := batch.Send(); err != nil {
			return written, errors.Internal("sending insert batch", err)
		}
		written += int64(end - start)
	}

	s.logger.Debug("Wrote table",
		zap.String("table", table),
		zap.Int64("rows", written),
		zap.Int("columns", len(cols)),
	)
	return written, nil
}

func (s *ClickHouseStore) CountRows(ctx context.Context, table string) (int64, error) {
	if err := checkIdentifiers(table, nil); err != nil {
		return 0, err
	}
	var n uint64
	if err := s.db.Conn().QueryRow(ctx, clickhouseDialect.countSQL(table)).Scan(&n); err != nil {
		return 0, errors.Internal(fmt.Sprintf("counting rows of %s", table), err)
	}
	return int64(n), nil
}

func (s *ClickHouseStore) HighSalaryResidences(ctx context.Context, table string, threshold float64) ([]models.ResidenceSalary, error) {
	if err := checkIdentifiers(table, nil); err != nil {
		return nil, err
	}
	rows, err := s.db.Conn().Query(ctx, clickhouseDialect.highSalarySQL(table), threshold)
	if err != nil {
		return nil, errors.Internal("querying high salary residences", err)
	}
	defer rows.Close()

	var out []models.ResidenceSalary
	for rows.Next() {
		var (
			residence *string
			avg       float64
			jobs      uint64
		)
		if err := rows.Scan(&residence, &avg, &jobs); err != nil {
			return nil, errors.Internal("scanning high salary residence", err)
		}
		r := models.ResidenceSalary{AvgSalary: avg, Jobs: int64(jobs)}
		if residence != nil {
			r.Residence = *residence
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal("reading high salary residences", err)
	}
	return out, nil
}

func (s *ClickHouseStore) PostingMonthStatuses(ctx context.Context, table string) ([]models.MonthStatusCount, error) {
	if err := checkIdentifiers(table, nil); err != nil {
		return nil, err
	}
	rows, err := s.db.Conn().Query(ctx, clickhouseDialect.postingMonthSQL(table))
	if err != nil {
		return nil, errors.Internal("querying posting months", err)
	}
	defer rows.Close()

	var out []models.MonthStatusCount
	for rows.Next() {
		var (
			status string
			jobs   uint64
		)
		if err := rows.Scan(&status, &jobs); err != nil {
			return nil, errors.Internal("scanning posting month", err)
		}
		out = append(out, models.MonthStatusCount{Status: status, Jobs: int64(jobs)})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal("reading posting months", err)
	}
	sortMonthStatuses(out)
	return out, nil
}

func (s *ClickHouseStore) RecordRun(ctx context.Context, run *models.PipelineRun) error {
	err := s.db.Conn().Exec(ctx, `
		INSERT INTO pipeline_runs (
			run_id, target_table, status, started_at, finished_at,
			rows_loaded, rows_written, duplicate_rows, export_path, commit_url, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.RunID, run.TargetTable, run.Status, run.StartedAt, run.FinishedAt,
		run.RowsLoaded, run.RowsWritten, run.DuplicateRows, run.ExportPath, run.CommitURL, run.Error,
	)
	if err != nil {
		return errors.Internal("recording pipeline run", err)
	}
	return nil
}

func (s *ClickHouseStore) Close() error {
	return s.db.Close()
}

var _ Store = (*ClickHouseStore)(nil)
