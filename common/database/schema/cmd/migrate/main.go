package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"jobclean/common/database"
	"jobclean/common/database/schema"
	"jobclean/common/database/schema/migrations"

	"go.uber.org/zap"
)

func main() {
	dsn := flag.String("dsn", envOr("CLICKHOUSE_DSN", "127.0.0.1:9000"), "ClickHouse address")
	db := flag.String("database", envOr("CLICKHOUSE_DATABASE", "jobclean"), "ClickHouse database")
	user := flag.String("user", envOr("CLICKHOUSE_USERNAME", "default"), "ClickHouse user")
	rollback := flag.Int("rollback", 0, "roll back the given migration version instead of migrating up")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	conn, err := database.New(ctx, database.Options{
		DSN:      *dsn,
		Database: *db,
		Username: *user,
		Password: os.Getenv("CLICKHOUSE_PASSWORD"),
	}, logger)
	if err != nil {
		logger.Fatal("Failed to connect to ClickHouse", zap.Error(err))
	}
	defer conn.Close()

	migrator := schema.NewMigrator(conn.Conn(), logger)

	if *rollback != 0 {
		for _, migration := range migrations.All {
			if migration.Version != *rollback {
				continue
			}
			if err := migrator.RollbackMigration(ctx, migration); err != nil {
				logger.Fatal("Failed to roll back migration", zap.Int("version", migration.Version), zap.Error(err))
			}
			logger.Info("Rolled back migration", zap.Int("version", migration.Version))
			return
		}
		logger.Fatal("Unknown migration version", zap.Int("version", *rollback))
	}

	applied, err := schema.Migrate(ctx, migrator, migrations.All, logger)
	if err != nil {
		logger.Fatal("Failed to apply migrations", zap.Ints("applied", applied), zap.Error(err))
	}

	logger.Info("All migrations completed successfully", zap.Ints("applied", applied))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
