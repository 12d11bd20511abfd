package migrations

import "jobclean/common/database/schema"

var CreatePipelineRunsTable = schema.Migration{
	Version:     1,
	Description: "Create pipeline_runs table",
	Up: `
		CREATE TABLE IF NOT EXISTS pipeline_runs (
			run_id String,
			target_table String,
			status LowCardinality(String),
			started_at DateTime64(3),
			finished_at DateTime64(3),
			rows_loaded Int64,
			rows_written Int64,
			duplicate_rows Int64,
			export_path String,
			commit_url String,
			error String
		) ENGINE = ReplacingMergeTree(finished_at)
		PARTITION BY toYYYYMM(started_at)
		ORDER BY (run_id)
	`,
	Down: `DROP TABLE IF EXISTS pipeline_runs`,
}

// All lists every migration in version order.
var All = []schema.Migration{
	CreatePipelineRunsTable,
}
