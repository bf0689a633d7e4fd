// Package database provides database setup, models, and the message store.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/edgard/digestbot/internal/config"
	"github.com/edgard/digestbot/migrations"

	_ "github.com/jackc/pgx/v5/stdlib" //revive:disable:blank-imports
	_ "modernc.org/sqlite"             //revive:disable:blank-imports
)

// Supported values of config.DatabaseConfig.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// sqlDriverName maps a configured driver to the database/sql driver name.
func sqlDriverName(driver string) (string, error) {
	switch driver {
	case DriverSQLite, "":
		return "sqlite", nil
	case DriverPostgres:
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// NewDB connects to the configured database, applies migrations, and returns
// the connection pool.
func NewDB(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	driverName, err := sqlDriverName(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect(driverName, cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driverName == "sqlite" {
		// SQLite doesn't support concurrent writes, so max open conns = 1
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := ApplyMigrations(db.DB, cfg); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("Error closing database after migration failure", "error", closeErr)
		}
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	slog.Info("Database connected and migrations applied successfully",
		"driver", driverName, "database_name", ExtractDBNameFromPath(cfg.Path))
	return db, nil
}

// CloseDB closes the database connection pool.
func CloseDB(db *sqlx.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		slog.Error("Error closing database connection", "error", err)
	} else {
		slog.Info("Database connection closed successfully.")
	}
}

// ApplyMigrations runs the embedded migrations. It is safe to call on an
// up-to-date schema. SQLite migrates through db; postgres migrates over a
// short-lived pool of its own and leaves db untouched.
func ApplyMigrations(db *sql.DB, cfg config.DatabaseConfig) error {
	switch cfg.Driver {
	case DriverSQLite, "":
		if db == nil {
			return errors.New("database connection is nil, cannot apply migrations")
		}
		dbDriver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
		if err != nil {
			return fmt.Errorf("failed to create sqlite3 migration driver: %w", err)
		}
		// Closing this migrator would close db, which the store keeps using.
		migrator, err := newMigrator("sqlite3", dbDriver)
		if err != nil {
			return err
		}
		return runMigrations(migrator)
	case DriverPostgres:
		return applyPostgresMigrations(cfg.Path)
	default:
		return fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// applyPostgresMigrations holds the connection pinned by the pgx/v5 migration
// driver only for the duration of the run.
func applyPostgresMigrations(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}

	dbDriver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("Error closing migration connection", "error", closeErr)
		}
		return fmt.Errorf("failed to create pgx5 migration driver: %w", err)
	}

	migrator, err := newMigrator("pgx5", dbDriver)
	if err != nil {
		if closeErr := dbDriver.Close(); closeErr != nil {
			slog.Error("Error closing migration driver", "error", closeErr)
		}
		return err
	}
	defer func() {
		srcErr, dbErr := migrator.Close()
		if err := errors.Join(srcErr, dbErr); err != nil {
			slog.Error("Error closing migrator", "error", err)
		}
	}()

	return runMigrations(migrator)
}

func newMigrator(dbName string, dbDriver migratedb.Driver) (*migrate.Migrate, error) {
	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to create embed source driver instance: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", sourceDriver, dbName, dbDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return migrator, nil
}

func runMigrations(migrator *migrate.Migrate) error {
	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Debug("No database migrations to apply.")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	slog.Info("Database migrations applied successfully.")
	return nil
}

// ExtractDBNameFromPath strips URL decoration from a sqlite path or the
// credentials from a postgres URL so the result is safe to log.
func ExtractDBNameFromPath(path string) string {
	if u, err := url.Parse(path); err == nil && (u.Scheme == "postgres" || u.Scheme == "postgresql") {
		return u.Host + u.Path
	}

	path = strings.TrimPrefix(path, "file:")

	if idx := strings.Index(path, "?"); idx != -1 {
		path = path[:idx]
	}

	if decoded, err := url.PathUnescape(path); err == nil {
		return decoded
	}

	return path
}
