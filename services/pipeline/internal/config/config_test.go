package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://raw.githubusercontent.com/Tangirala20/ETL-Pipeline-DataBricks/main/ai_job_dataset.csv", cfg.DatasetURL)
	assert.Equal(t, 60*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, []string{"job_description_length", "experience_level", "benefits_score"}, cfg.DropColumns)
	assert.Equal(t, []string{"job_title", "company_location", "industry", "employee_residence", "company_name"}, cfg.RequiredColumns)
	assert.Equal(t, DriverClickHouse, cfg.StoreDriver)
	assert.Equal(t, "ai_jobdataset", cfg.TableName)
	assert.Equal(t, "processed_jobs.csv", cfg.ExportPath)
	assert.Equal(t, "Gamerfleet/Pyspark_processed", cfg.HFRepoID)
	assert.Equal(t, "dataset", cfg.HFRepoType)
	assert.Equal(t, "Pyspark_processed.csv", cfg.HFPathInRepo)
	assert.Empty(t, cfg.HFToken)
	assert.True(t, cfg.UploadEnabled)
	assert.Empty(t, cfg.NATSURL)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 150000.0, cfg.HighSalaryThreshold)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("TABLE_NAME", "jobs_clean")
	t.Setenv("DROP_COLUMNS", "a,b")
	t.Setenv("NULL_VALUES", "NULL,NaN")
	t.Setenv("UPLOAD_ENABLED", "false")
	t.Setenv("CACHE_TTL", "90m")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "jobs_clean", cfg.TableName)
	assert.Equal(t, []string{"a", "b"}, cfg.DropColumns)
	assert.Equal(t, []string{"NULL", "NaN"}, cfg.NullValues)
	assert.False(t, cfg.UploadEnabled)
	assert.Equal(t, 90*time.Minute, cfg.CacheTTL)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TABLE_NAME=from_dotenv\nEXPORT_PATH=out/jobs.csv\n"), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv("EXPORT_PATH", "env/jobs.csv")
	// godotenv.Load sets variables on the process; make sure they do not leak.
	t.Setenv("TABLE_NAME", "")
	require.NoError(t, os.Unsetenv("TABLE_NAME"))

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "from_dotenv", cfg.TableName)
	assert.Equal(t, "env/jobs.csv", cfg.ExportPath, "environment wins over .env")
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mysql")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "STORE_DRIVER")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			DatasetURL:      "http://example.com/data.csv",
			StoreDriver:     DriverPostgres,
			TableName:       "ai_jobdataset",
			ExportPath:      "out.csv",
			InsertBatchSize: 10,
			UploadEnabled:   true,
			HFRepoID:        "org/repo",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad table", func(c *Config) { c.TableName = "jobs; DROP TABLE x" }, "TABLE_NAME"},
		{"leading digit", func(c *Config) { c.TableName = "1jobs" }, "TABLE_NAME"},
		{"no url", func(c *Config) { c.DatasetURL = "" }, "DATASET_URL"},
		{"no export", func(c *Config) { c.ExportPath = "" }, "EXPORT_PATH"},
		{"zero batch", func(c *Config) { c.InsertBatchSize = 0 }, "INSERT_BATCH_SIZE"},
		{"upload without repo", func(c *Config) { c.HFRepoID = "" }, "HF_REPO_ID"},
		{"no upload no repo", func(c *Config) { c.HFRepoID = ""; c.UploadEnabled = false }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidIdentifier(t *testing.T) {
	assert.True(t, ValidIdentifier("ai_jobdataset"))
	assert.True(t, ValidIdentifier("_x1"))
	assert.False(t, ValidIdentifier(""))
	assert.False(t, ValidIdentifier("a-b"))
}
