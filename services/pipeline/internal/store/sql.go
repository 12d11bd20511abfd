package store

import (
	"context"
	"fmt"

	"jobclean/services/pipeline/internal/errors"
	"jobclean/services/pipeline/internal/frame"
	"jobclean/services/pipeline/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// SQLStore keeps the table in PostgreSQL or SQLite through gorm.
type SQLStore struct {
	db        *gorm.DB
	dialect   dialect
	batchSize int
	logger    *zap.Logger
}

func OpenPostgres(dsn string, batchSize int, logger *zap.Logger) (*SQLStore, error) {
	return openSQL(postgres.Open(dsn), postgresDialect, batchSize, logger)
}

func OpenSQLite(path string, batchSize int, logger *zap.Logger) (*SQLStore, error) {
	return openSQL(sqlite.Open(path), sqliteDialect, batchSize, logger)
}

func openSQL(dialector gorm.Dialector, d dialect, batchSize int, logger *zap.Logger) (*SQLStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Unavailable(fmt.Sprintf("connecting to %s", d.name), err)
	}

	if err := db.AutoMigrate(&models.PipelineRun{}); err != nil {
		return nil, errors.Internal("migrating pipeline_runs", err)
	}

	if batchSize <= 0 {
		batchSize = 1000
	}

	logger.Info("Connected to store", zap.String("driver", d.name))
	return &SQLStore{db: db, dialect: d, batchSize: batchSize, logger: logger}, nil
}

func (s *SQLStore) WriteTable(ctx context.Context, table string, f *frame.Frame) (int64, error) {
	schema := f.Schema()
	if err := checkIdentifiers(table, schema); err != nil {
		return 0, err
	}

	var written int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(s.dialect.dropTableSQL(table)).Error; err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
		if err := tx.Exec(s.dialect.createTableSQL(table, schema)).Error; err != nil {
			return fmt.Errorf("create table: %w", err)
		}

		batch := make([]map[string]interface{}, 0, s.batchSize)
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			res := tx.Table(table).Create(batch)
			if res.Error != nil {
				return fmt.Errorf("insert rows: %w", res.Error)
			}
			written += int64(len(batch))
			batch = batch[:0]
			return nil
		}

		for i := 0; i < f.Len(); i++ {
			values := f.Row(i).Values()
			row := make(map[string]interface{}, len(schema))
			for j, c := range schema {
				row[c.Name] = values[j]
			}
			batch = append(batch, row)
			if len(batch) == s.batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return flush()
	})
	if err != nil {
		return 0, errors.Internal(fmt.Sprintf("writing table %s", table), err)
	}

	s.logger.Debug("Wrote table",
		zap.String("table", table),
		zap.Int64("rows", written),
		zap.Int("columns", len(schema)),
	)
	return written, nil
}

func (s *SQLStore) CountRows(ctx context.Context, table string) (int64, error) {
	if err := checkIdentifiers(table, nil); err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.WithContext(ctx).Raw(s.dialect.countSQL(table)).Scan(&n).Error; err != nil {
		return 0, errors.Internal(fmt.Sprintf("counting rows of %s", table), err)
	}
	return n, nil
}

func (s *SQLStore) HighSalaryResidences(ctx context.Context, table string, threshold float64) ([]models.ResidenceSalary, error) {
	if err := checkIdentifiers(table, nil); err != nil {
		return nil, err
	}
	var out []models.ResidenceSalary
	if err := s.db.WithContext(ctx).Raw(s.dialect.highSalarySQL(table), threshold).Scan(&out).Error; err != nil {
		return nil, errors.Internal("querying high salary residences", err)
	}
	return out, nil
}

func (s *SQLStore) PostingMonthStatuses(ctx context.Context, table string) ([]models.MonthStatusCount, error) {
	if err := checkIdentifiers(table, nil); err != nil {
		return nil, err
	}
	var out []models.MonthStatusCount
	if err := s.db.WithContext(ctx).Raw(s.dialect.postingMonthSQL(table)).Scan(&out).Error; err != nil {
		return nil, errors.Internal("querying posting months", err)
	}
	sortMonthStatuses(out)
	return out, nil
}

// RecordRun inserts run, or updates it when a row with the same run ID exists.
func (s *SQLStore) RecordRun(ctx context.Context, run *models.PipelineRun) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(run).Error
	if err != nil {
		return errors.Internal("recording pipeline run", err)
	}
	return nil
}

// Runs returns the ledger, newest first.
func (s *SQLStore) Runs(ctx context.Context) ([]models.PipelineRun, error) {
	var runs []models.PipelineRun
	if err := s.db.WithContext(ctx).Order("started_at DESC").Find(&runs).Error; err != nil {
		return nil, errors.Internal("listing pipeline runs", err)
	}
	return runs, nil
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ Store = (*SQLStore)(nil)
