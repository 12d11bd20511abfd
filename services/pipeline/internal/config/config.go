package config

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	DriverClickHouse = "clickhouse"
	DriverPostgres   = "postgres"
	DriverSQLite     = "sqlite"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type Config struct {
	DatasetURL  string        `envconfig:"DATASET_URL" default:"https://raw.githubusercontent.com/Tangirala20/ETL-Pipeline-DataBricks/main/ai_job_dataset.csv"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"60s"`
	NullValues  []string      `envconfig:"NULL_VALUES"`

	DropColumns     []string `envconfig:"DROP_COLUMNS" default:"job_description_length,experience_level,benefits_score"`
	RequiredColumns []string `envconfig:"REQUIRED_COLUMNS" default:"job_title,company_location,industry,employee_residence,company_name"`

	StoreDriver         string  `envconfig:"STORE_DRIVER" default:"clickhouse"`
	TableName           string  `envconfig:"TABLE_NAME" default:"ai_jobdataset"`
	InsertBatchSize     int     `envconfig:"INSERT_BATCH_SIZE" default:"1000"`
	HighSalaryThreshold float64 `envconfig:"HIGH_SALARY_THRESHOLD" default:"150000"`

	ClickHouseDSN          string        `envconfig:"CLICKHOUSE_DSN" default:"localhost:9000"`
	ClickHouseMaxOpenConns int           `envconfig:"CLICKHOUSE_MAX_OPEN_CONNS" default:"10"`
	ClickHouseMaxIdleConns int           `envconfig:"CLICKHOUSE_MAX_IDLE_CONNS" default:"5"`
	ClickHouseConnMaxLife  time.Duration `envconfig:"CLICKHOUSE_CONN_MAX_LIFE" default:"1h"`
	ClickHouseUsername     string        `envconfig:"CLICKHOUSE_USERNAME" default:"default"`
	ClickHousePassword     string        `envconfig:"CLICKHOUSE_PASSWORD"`
	ClickHouseDatabase     string        `envconfig:"CLICKHOUSE_DATABASE" default:"jobclean"`

	PostgresDSN string `envconfig:"POSTGRES_DSN" default:"host=localhost user=postgres password=postgres dbname=jobclean port=5432 sslmode=disable"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"jobclean.db"`

	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"24h"`

	ExportPath     string `envconfig:"EXPORT_PATH" default:"processed_jobs.csv"`
	ExportXLSXPath string `envconfig:"EXPORT_XLSX_PATH"`

	UploadEnabled   bool          `envconfig:"UPLOAD_ENABLED" default:"true"`
	HFEndpoint      string        `envconfig:"HF_ENDPOINT" default:"https://huggingface.co"`
	HFToken         string        `envconfig:"HF_TOKEN"`
	HFRepoID        string        `envconfig:"HF_REPO_ID" default:"Gamerfleet/Pyspark_processed"`
	HFRepoType      string        `envconfig:"HF_REPO_TYPE" default:"dataset"`
	HFPathInRepo    string        `envconfig:"HF_PATH_IN_REPO" default:"Pyspark_processed.csv"`
	HFRevision      string        `envconfig:"HF_REVISION" default:"main"`
	HFUploadTimeout time.Duration `envconfig:"HF_UPLOAD_TIMEOUT" default:"5m"`

	NATSURL            string        `envconfig:"NATS_URL"`
	NATSConnTimeout    time.Duration `envconfig:"NATS_CONN_TIMEOUT" default:"10s"`
	NATSRunSubject     string        `envconfig:"NATS_RUN_SUBJECT" default:"jobs.cleaned"`
	NATSTriggerSubject string        `envconfig:"NATS_TRIGGER_SUBJECT" default:"jobs.clean.requested"`

	OTELCollectorURL string `envconfig:"OTEL_COLLECTOR_URL"`
	PushgatewayURL   string `envconfig:"PUSHGATEWAY_URL"`
	MetricsAddr      string `envconfig:"METRICS_ADDR"`

	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogDevelopment bool   `envconfig:"LOG_DEVELOPMENT" default:"false"`

	RunTimeout time.Duration `envconfig:"RUN_TIMEOUT" default:"30m"`
}

// LoadConfig reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverClickHouse, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}

	if !identifierPattern.MatchString(c.TableName) {
		return fmt.Errorf("TABLE_NAME %q is not a valid identifier", c.TableName)
	}
	if c.DatasetURL == "" {
		return fmt.Errorf("DATASET_URL is required")
	}
	if c.ExportPath == "" {
		return fmt.Errorf("EXPORT_PATH is required")
	}
	if c.InsertBatchSize <= 0 {
		return fmt.Errorf("INSERT_BATCH_SIZE must be positive, got %d", c.InsertBatchSize)
	}
	if c.UploadEnabled && c.HFRepoID == "" {
		return fmt.Errorf("HF_REPO_ID is required when uploads are enabled")
	}
	return nil
}

func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}
