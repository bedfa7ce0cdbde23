package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Connect opens the ledger database. DATABASE_URL is a postgres DSN, or a file
// path for sqlite ("~" is expanded and parent directories are created).
func Connect(driver, databaseURL string) (*sqlx.DB, error) {
	switch driver {
	case DriverPostgres:
		db, err := sqlx.Connect(DriverPostgres, databaseURL)
		if err != nil {
			return nil, err
		}

		// Configure connection pool
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		return db, nil

	case DriverSQLite:
		path, err := SQLitePath(databaseURL)
		if err != nil {
			return nil, err
		}
		db, err := sqlx.Connect(DriverSQLite, path)
		if err != nil {
			return nil, err
		}
		// single writer
		db.SetMaxOpenConns(1)
		return db, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

// SQLitePath expands "~" and makes sure the parent directory exists.
func SQLitePath(dbPath string) (string, error) {
	if dbPath == "" {
		return "", fmt.Errorf("sqlite path is empty")
	}
	if dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("cannot create directory %s: %w", dir, err)
	}
	return dbPath, nil
}
