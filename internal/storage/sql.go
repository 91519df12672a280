package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect holds the driver specific statements for SQL.
type Dialect struct {
	Name   string
	Driver string
	Create string
	Select string
	Upsert string
}

var (
	DialectSQLite = Dialect{
		Name:   "sqlite",
		Driver: "sqlite",
		Create: `CREATE TABLE IF NOT EXISTS kv_store (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		Select: `SELECT value FROM kv_store WHERE key = ?`,
		Upsert: `INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
	}
	DialectPostgres = Dialect{
		Name:   "postgres",
		Driver: "postgres",
		Create: `CREATE TABLE IF NOT EXISTS kv_store (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		Select: `SELECT value FROM kv_store WHERE key = $1`,
		Upsert: `INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, NOW())
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
	}
)

// SQL is a Store backed by a single kv_store table.
type SQL struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQL wraps db and creates the table when needed.
func NewSQL(ctx context.Context, db *sql.DB, dialect Dialect) (*SQL, error) {
	if _, err := db.ExecContext(ctx, dialect.Create); err != nil {
		return nil, fmt.Errorf("create kv_store table: %w", err)
	}
	return &SQL{db: db, dialect: dialect}, nil
}

// OpenSQLite opens a SQLite database at path in WAL mode.
func OpenSQLite(ctx context.Context, path string) (*SQL, error) {
	db, err := sql.Open(DialectSQLite.Driver, path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store, err := NewSQL(ctx, db, DialectSQLite)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// OpenPostgres opens a Postgres database from dsn.
func OpenPostgres(ctx context.Context, dsn string) (*SQL, error) {
	db, err := sql.Open(DialectPostgres.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store, err := NewSQL(ctx, db, DialectPostgres)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Get returns the value stored under key.
func (store *SQL) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := store.db.QueryRowContext(ctx, store.dialect.Select, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s get %s: %w", store.dialect.Name, key, err)
	}
	return value, true, nil
}

// Set upserts value under key.
func (store *SQL) Set(ctx context.Context, key, value string) error {
	if _, err := store.db.ExecContext(ctx, store.dialect.Upsert, key, value); err != nil {
		return fmt.Errorf("%s set %s: %w", store.dialect.Name, key, err)
	}
	return nil
}

// Close closes the database.
func (store *SQL) Close() error {
	return store.db.Close()
}
