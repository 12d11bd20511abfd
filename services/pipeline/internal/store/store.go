// Package store persists the cleaned frame as a table, runs the SQL analyses
// over it and keeps the pipeline_runs ledger.
package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"jobclean/services/pipeline/internal/config"
	"jobclean/services/pipeline/internal/errors"
	"jobclean/services/pipeline/internal/frame"
	"jobclean/services/pipeline/internal/models"

	"go.uber.org/zap"
)

type Store interface {
	// WriteTable replaces table with the contents of f and returns the number
	// of rows inserted.
	WriteTable(ctx context.Context, table string, f *frame.Frame) (int64, error)
	CountRows(ctx context.Context, table string) (int64, error)
	// HighSalaryResidences returns the employee residences whose average
	// salary is above threshold, highest average first.
	HighSalaryResidences(ctx context.Context, table string, threshold float64) ([]models.ResidenceSalary, error)
	// PostingMonthStatuses counts postings made in January, in December and
	// in any other month.
	PostingMonthStatuses(ctx context.Context, table string) ([]models.MonthStatusCount, error)
	RecordRun(ctx context.Context, run *models.PipelineRun) error
	Close() error
}

// Open connects to the store selected by cfg.StoreDriver.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Store, error) {
	switch cfg.StoreDriver {
	case config.DriverClickHouse:
		return OpenClickHouse(ctx, cfg, logger)
	case config.DriverPostgres:
		return OpenPostgres(cfg.PostgresDSN, cfg.InsertBatchSize, logger)
	case config.DriverSQLite:
		return OpenSQLite(cfg.SQLitePath, cfg.InsertBatchSize, logger)
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("unsupported store driver %q", cfg.StoreDriver), nil)
	}
}

// dialect holds what differs in the generated SQL between backends.
type dialect struct {
	name      string
	quote     func(string) string
	types     map[frame.Kind]string
	tableTail string
}

func doubleQuote(name string) string {
	return `"` + name + `"`
}

func backQuote(name string) string {
	return "`" + name + "`"
}

var (
	clickhouseDialect = dialect{
		name:  config.DriverClickHouse,
		quote: backQuote,
		types: map[frame.Kind]string{
			frame.String: "Nullable(String)",
			frame.Int:    "Nullable(Int64)",
			frame.Float:  "Nullable(Float64)",
			frame.Bool:   "Nullable(Bool)",
		},
		tableTail: " ENGINE = MergeTree() ORDER BY tuple()",
	}
	postgresDialect = dialect{
		name:  config.DriverPostgres,
		quote: doubleQuote,
		types: map[frame.Kind]string{
			frame.String: "TEXT",
			frame.Int:    "BIGINT",
			frame.Float:  "DOUBLE PRECISION",
			frame.Bool:   "BOOLEAN",
		},
	}
	sqliteDialect = dialect{
		name:  config.DriverSQLite,
		quote: doubleQuote,
		types: map[frame.Kind]string{
			frame.String: "TEXT",
			frame.Int:    "INTEGER",
			frame.Float:  "REAL",
			frame.Bool:   "BOOLEAN",
		},
	}
)

func checkIdentifiers(table string, cols []frame.Column) error {
	if !config.ValidIdentifier(table) {
		return errors.InvalidInput(fmt.Sprintf("invalid table name %q", table), nil)
	}
	for _, c := range cols {
		if !config.ValidIdentifier(c.Name) {
			return errors.InvalidInput(fmt.Sprintf("invalid column name %q", c.Name), nil)
		}
	}
	return nil
}

func (d dialect) dropTableSQL(table string) string {
	return "DROP TABLE IF EXISTS " + d.quote(table)
}

func (d dialect) createTableSQL(table string, cols []frame.Column) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = d.quote(c.Name) + " " + d.types[c.Kind]
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)%s", d.quote(table), strings.Join(defs, ", "), d.tableTail)
}

func (d dialect) countSQL(table string) string {
	return "SELECT COUNT(*) FROM " + d.quote(table)
}

func (d dialect) highSalarySQL(table string) string {
	residence := d.quote("employee_residence")
	salary := d.quote("salary_usd")
	return fmt.Sprintf(`SELECT %[1]s AS residence, AVG(%[2]s) AS avg_salary, COUNT(*) AS jobs
		FROM %[3]s
		WHERE %[1]s IS NOT NULL
		GROUP BY %[1]s
		HAVING AVG(%[2]s) > ?
		ORDER BY avg_salary DESC, residence`, residence, salary, d.quote(table))
}

// postingMonthSQL reads the month from the yyyy-MM-dd text of posting_date so
// that unparsable dates fall into the "another month" group on every backend.
func (d dialect) postingMonthSQL(table string) string {
	month := fmt.Sprintf("substr(%s, 6, 2)", d.quote("posting_date"))
	return fmt.Sprintf(`SELECT CASE
			WHEN %[1]s = '01' THEN '%[2]s'
			WHEN %[1]s = '12' THEN '%[3]s'
			ELSE '%[4]s'
		END AS status, COUNT(*) AS jobs
		FROM %[5]s
		GROUP BY status`,
		month, models.PostedInJanuary, models.PostedInDecember, models.PostedInAnotherMonth, d.quote(table))
}

var monthStatusOrder = map[string]int{
	models.PostedInJanuary:      0,
	models.PostedInDecember:     1,
	models.PostedInAnotherMonth: 2,
}

func sortMonthStatuses(counts []models.MonthStatusCount) {
	slices.SortFunc(counts, func(a, b models.MonthStatusCount) int {
		return cmp.Compare(monthStatusOrder[a.Status], monthStatusOrder[b.Status])
	})
}
