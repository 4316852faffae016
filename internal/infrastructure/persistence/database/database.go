// Package database provides the core functionality for creating and managing
// database connections in a clean, isolated manner.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// DB represents a wrapper around the standard SQL database connection.
type DB struct {
	*sql.DB
	Driver string
}

// Options describes how to reach the store.
type Options struct {
	Driver          string
	SQLitePath      string
	TursoURL        string
	TursoToken      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DataSource returns the driver name and DSN for opts. A Turso URL takes
// precedence over the local sqlite file.
func (o Options) DataSource() (string, string) {
	if o.TursoURL != "" {
		dsn := o.TursoURL
		if o.TursoToken != "" {
			dsn = fmt.Sprintf("%s?authToken=%s", o.TursoURL, o.TursoToken)
		}
		return "libsql", dsn
	}
	driver := o.Driver
	if driver == "" {
		driver = "sqlite3"
	}
	return driver, o.SQLitePath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
}

// NewConnection establishes a new database connection for the specified driver.
func NewConnection(driverName, dataSourceName string) (*DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{DB: db, Driver: driverName}, nil
}

// Open connects using opts, tunes the pool and creates the schema.
func Open(ctx context.Context, opts Options, logger *logging.ChanneledLogger) (*DB, error) {
	start := time.Now()
	driver, dsn := opts.DataSource()
	logger.Database().Debug("Creating new database connection", "driverName", driver)

	if driver == "sqlite3" && opts.SQLitePath != ":memory:" {
		if dir := filepath.Dir(opts.SQLitePath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				logger.Database().Error("Failed to create database directory", "error", err.Error(), "dir", dir)
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := NewConnection(driver, dsn)
	if err != nil {
		logger.Database().Error("Failed to open database connection", "error", err.Error(), "driverName", driver)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == "sqlite3" {
		// a single writer avoids "database is locked" under concurrent upserts
		db.SetMaxOpenConns(1)
	} else {
		if opts.MaxOpenConns > 0 {
			db.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.MaxIdleConns > 0 {
			db.SetMaxIdleConns(opts.MaxIdleConns)
		}
		if opts.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(opts.ConnMaxLifetime)
		}
		if opts.ConnMaxIdleTime > 0 {
			db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
		}
	}

	if err := NewSchemaCreator().CreateSchema(ctx, db.DB); err != nil {
		logger.Database().Error("Schema creation failed", "error", err.Error())
		db.Close()
		return nil, err
	}

	duration := time.Since(start)
	logger.Database().Info("Database connection established", "driverName", driver, "duration", duration)
	CheckAndLogSlowQuery(logger, "DATABASE_CONNECTION", duration, "system")

	return db, nil
}

// IsRemote reports whether the connection goes to a Turso endpoint.
func (db *DB) IsRemote() bool {
	return strings.EqualFold(db.Driver, "libsql")
}
