package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DB wraps database/sql with the dialect it was opened for. Postgres comes
// in through a pgx pool wrapped as *sql.DB; SQLite is the zero-config
// default for local runs.
type DB struct {
	*sql.DB
	Dialect Dialect

	pool *pgxpool.Pool // nil for sqlite
}

// Open selects the engine from the DSN scheme.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to database", "dsn", cfg.DSN)

	if strings.HasPrefix(cfg.DSN, "postgres://") || strings.HasPrefix(cfg.DSN, "postgresql://") {
		return openPostgres(ctx, cfg, logger)
	}
	return openSQLite(cfg, logger)
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database config", "error", err)
		return nil, err
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "docaid"

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	// Wrap the pool as *sql.DB so the repositories speak one API.
	db := stdlib.OpenDBFromPool(pool)

	logger.Info("successfully connected to database", "dialect", DialectPostgres)
	return &DB{DB: db, Dialect: DialectPostgres, pool: pool}, nil
}

func openSQLite(cfg Config, logger *slog.Logger) (*DB, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		logger.Error("failed to open sqlite database", "error", err)
		return nil, err
	}
	logger.Info("successfully opened database", "dialect", DialectSQLite)
	return &DB{DB: db, Dialect: DialectSQLite}, nil
}

// Close closes the database connections gracefully
func Close(db *DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("closing database connections")
	if err := db.DB.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	}
	if db.pool != nil {
		db.pool.Close()
	}
	logger.Info("database connections closed")
}

// HealthCheck pings the store to catch DSN issues early.
func HealthCheck(ctx context.Context, db *DB, timeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	logger.Debug("database ping successful")
	return nil
}

// Timestamps are stored as RFC3339Nano text so both engines scan
// identically.
const jobsDDL = `
CREATE TABLE IF NOT EXISTS extraction_jobs (
	id             TEXT PRIMARY KEY,
	created_at     TEXT NOT NULL,
	finished_at    TEXT,
	source_name    TEXT NOT NULL DEFAULT '',
	content_type   TEXT NOT NULL DEFAULT '',
	mode           TEXT NOT NULL,
	model          TEXT NOT NULL,
	status         TEXT NOT NULL,
	extracted_json TEXT,
	raw_response   TEXT,
	field_count    INTEGER,
	avg_confidence REAL,
	schema_valid   INTEGER,
	error_message  TEXT
)`

// Migrate creates the extraction_jobs table when absent.
func Migrate(ctx context.Context, db *DB) error {
	if _, err := db.ExecContext(ctx, jobsDDL); err != nil {
		return fmt.Errorf("migrate extraction_jobs: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders to $N for postgres. Queries in this package
// are written with ? (the sqlite form).
func (db *DB) rebind(query string) string {
	if db.Dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
