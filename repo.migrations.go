package main

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// migrationsDialects maps a storage driver to its goose dialect
// and the embedded folder holding its migrations.
var migrationsDialects = map[string]struct {
	dialect string
	dir     string
}{
	PostgresDriver: {"postgres", "migrations/postgres"},
	SQLiteDriver:   {"sqlite3", "migrations/sqlite"},
}

// gooseLogger routes goose messages into zap.
type gooseLogger struct {
	sugar *zap.SugaredLogger
}

func (gl *gooseLogger) Fatalf(format string, v ...interface{}) {
	gl.sugar.Fatalf(format, v...)
}

func (gl *gooseLogger) Printf(format string, v ...interface{}) {
	gl.sugar.Infof(format, v...)
}

// RunMigrations applies all pending embedded migrations of the driver.
func RunMigrations(logger *zap.Logger, db *sql.DB, driver string) error {
	m, ok := migrationsDialects[driver]
	if !ok {
		return fmt.Errorf("no migrations for storage driver %q", driver)
	}

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(&gooseLogger{logger.Named("migrations").Sugar()})
	if err := goose.SetDialect(m.dialect); err != nil {
		return fmt.Errorf("failed to set migrations dialect: %w", err)
	}
	if err := goose.Up(db, m.dir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
