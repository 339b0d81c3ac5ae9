package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
)

// MigrationTableName is the table goose uses to track applied migrations.
const MigrationTableName = "schema_migrations"

//go:embed migrations/*.sql
var migrationFS embed.FS

const migrationDir = "migrations"

// gooseMu guards goose's package level configuration.
var gooseMu sync.Mutex

// slogGooseLogger forwards goose output to slog. Fatalf does not exit so the
// caller decides how to handle the failure.
type slogGooseLogger struct {
	logger *slog.Logger
}

func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

// MigrationCommands lists the commands accepted by Migrate.
var MigrationCommands = []string{"up", "down", "reset", "status", "version"}

// Migrate runs a goose command against the embedded migrations.
func Migrate(ctx context.Context, db *sql.DB, command string, logger *slog.Logger) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	log := logger.With(slog.String("component", "migrations"), slog.String("command", command))
	goose.SetLogger(&slogGooseLogger{logger: log})
	goose.SetBaseFS(migrationFS)
	goose.SetTableName(MigrationTableName)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	started := time.Now()
	var err error
	switch command {
	case "up":
		err = goose.UpContext(ctx, db, migrationDir)
	case "down":
		err = goose.DownContext(ctx, db, migrationDir)
	case "reset":
		err = goose.ResetContext(ctx, db, migrationDir)
	case "status":
		err = goose.StatusContext(ctx, db, migrationDir)
	case "version":
		err = goose.VersionContext(ctx, db, migrationDir)
	default:
		return fmt.Errorf("unknown migration command: %s (expected one of %v)", command, MigrationCommands)
	}
	if err != nil {
		log.Error("migration command failed", slog.String("error", err.Error()))
		return fmt.Errorf("migration command '%s' failed: %w", command, err)
	}

	log.Info("migration command executed successfully",
		slog.Int64("duration_ms", time.Since(started).Milliseconds()))
	return nil
}

// CollectMigrations returns the embedded migrations in version order.
func CollectMigrations() (goose.Migrations, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()
	goose.SetBaseFS(migrationFS)
	return goose.CollectMigrations(migrationDir, 0, goose.MaxVersion)
}
