package db

import (
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

// gooseDialect translates our driver names to goose dialect names.
func gooseDialect(driver string) string {
	switch driver {
	case "sqlite":
		return "sqlite3"
	case "pgx":
		return "postgres"
	}
	return driver
}

func setupGoose(driver string) error {
	if err := goose.SetDialect(gooseDialect(driver)); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	migrations, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	goose.SetBaseFS(migrations)
	return nil
}

// RunMigrations applies all pending migrations.
func RunMigrations(conn *sql.DB, driver string) error {
	if err := setupGoose(driver); err != nil {
		return err
	}
	if err := goose.Up(conn, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("migrations up to date")
	return nil
}

// MigrateDown rolls back the most recent migration.
func MigrateDown(conn *sql.DB, driver string) error {
	if err := setupGoose(driver); err != nil {
		return err
	}
	if err := goose.Down(conn, "."); err != nil {
		return fmt.Errorf("rollback migration: %w", err)
	}
	slog.Info("rolled back one migration")
	return nil
}
