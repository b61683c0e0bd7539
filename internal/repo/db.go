// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for the
// managed Postgres database (Supabase) and a local SQLite database used in
// development and tests.
package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/designai/studio-backend/internal/domain"
)

// Datastore drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Options selects and tunes the datastore.
type Options struct {
	Driver      string // DriverPostgres (default) or DriverSQLite
	DatabaseURL string // Postgres DSN, required for DriverPostgres
	SQLitePath  string // database file, required for DriverSQLite
	Tracing     bool   // register the OpenTelemetry gorm plugin
}

// Open connects to the datastore opts.Driver names. There is no fallback: a
// Postgres driver without a DSN is an error, not a local file. The SQLite
// schema is created on open; the managed database's schema is owned
// elsewhere and left untouched.
func Open(opts Options) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", DriverPostgres:
		if strings.TrimSpace(opts.DatabaseURL) == "" {
			return nil, errors.New("repo: postgres driver needs a DATABASE_URL")
		}
		db, err = OpenPostgres(opts.DatabaseURL)
	case DriverSQLite:
		if strings.TrimSpace(opts.SQLitePath) == "" {
			return nil, errors.New("repo: sqlite driver needs a database path")
		}
		db, err = OpenSQLite(opts.SQLitePath)
		if err == nil {
			err = AutoMigrate(db)
		}
	default:
		return nil, fmt.Errorf("repo: unknown driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}
	if opts.Tracing {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// OpenPostgres opens the managed Postgres database. The simple protocol is
// used so the connection works through Supabase's transaction pooler.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	return openPostgres(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}))
}

func openPostgres(d gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(d, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, nil
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// AutoMigrate creates the local schema for every domain model.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(domain.All()...)
}
