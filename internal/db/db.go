package db

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Init opens the database and verifies the connection. SQLite paths get
// their parent directory created on first run.
func Init(driver, connection string) (*sqlx.DB, error) {
	if driver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(connection), 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	conn, err := sqlx.Connect(driver, connection)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	slog.Info("database connected", "driver", driver)
	return conn, nil
}

func Close(conn *sqlx.DB) error {
	if conn == nil {
		return nil
	}
	return conn.Close()
}
