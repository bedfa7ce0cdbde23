package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	db "github.com/playmatatu/eightball/internal/database"
)

//go:embed postgres/*.sql sqlite/*.sql
var migrationFS embed.FS

const migrationsTable = "schema_migrations_ledger"

var logger = log.WithPrefix("migrate")

// RunMigrations applies every pending ledger migration for the driver.
// A database that already has the racks table but no migrate metadata is
// baselined to the latest version first.
func RunMigrations(driver, databaseURL string) error {
	m, sqlDB, err := open(driver, databaseURL)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if ledgerExists(sqlDB, driver) && !tableExists(sqlDB, driver, migrationsTable) {
		latest := findLatestMigrationVersion(driver)
		if latest > 0 {
			logger.Info("baseline existing schema", "version", latest)
			if ferr := m.Force(int(latest)); ferr != nil {
				logger.Warn("force failed", "version", latest, "error", ferr)
			}
		}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}

	logger.Info("migrations applied", "driver", driver)
	return nil
}

// Rollback reverts the given number of migrations.
func Rollback(driver, databaseURL string, steps int) error {
	m, sqlDB, err := open(driver, databaseURL)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// Version reports the applied schema version.
func Version(driver, databaseURL string) (uint, bool, error) {
	m, sqlDB, err := open(driver, databaseURL)
	if err != nil {
		return 0, false, err
	}
	defer sqlDB.Close()

	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

func open(driver, databaseURL string) (*migrate.Migrate, *sql.DB, error) {
	if databaseURL == "" {
		return nil, nil, fmt.Errorf("database URL is empty")
	}

	dsn := databaseURL
	if driver == db.DriverSQLite {
		p, err := db.SQLitePath(databaseURL)
		if err != nil {
			return nil, nil, err
		}
		dsn = p
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open DB: %w", err)
	}

	var dbDriver database.Driver
	switch driver {
	case db.DriverPostgres:
		dbDriver, err = pg.WithInstance(sqlDB, &pg.Config{MigrationsTable: migrationsTable})
	case db.DriverSQLite:
		dbDriver, err = sqlite.WithInstance(sqlDB, &sqlite.Config{MigrationsTable: migrationsTable})
	default:
		err = fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("failed to create migrate driver: %w", err)
	}

	src, err := iofs.New(migrationFS, driver)
	if err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, driver, dbDriver)
	if err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, sqlDB, nil
}

func ledgerExists(sqlDB *sql.DB, driver string) bool {
	return tableExists(sqlDB, driver, "racks")
}

func tableExists(sqlDB *sql.DB, driver, name string) bool {
	var exists bool
	var err error
	switch driver {
	case db.DriverPostgres:
		err = sqlDB.QueryRow("SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)", name).Scan(&exists)
	case db.DriverSQLite:
		err = sqlDB.QueryRow("SELECT EXISTS (SELECT 1 FROM sqlite_master WHERE type='table' AND name=?)", name).Scan(&exists)
	}
	return err == nil && exists
}

// findLatestMigrationVersion scans the embedded migrations for files that start
// with a numeric version prefix (e.g. 000001_) and returns the highest version.
func findLatestMigrationVersion(dir string) int64 {
	files, err := fs.ReadDir(migrationFS, dir)
	if err != nil {
		return 0
	}

	re := regexp.MustCompile(`^0*([0-9]+)_`)
	var max int64
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		m := re.FindStringSubmatch(f.Name())
		if len(m) < 2 {
			continue
		}
		v, _ := strconv.ParseInt(m[1], 10, 64)
		if v > max {
			max = v
		}
	}

	return max
}
