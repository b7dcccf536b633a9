package database

import (
	"context"
	"database/sql"
	"log"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteBackend is the embedded local store. It is always available (short
// of an unwritable filesystem) and doubles as the offline cache and backup
// when the remote database is unreachable.
//
// All statements arrive in the canonical dialect and are rewritten by
// toSQLite before execution.
type SQLiteBackend struct {
	path string
	db   *sql.DB
}

func NewSQLiteBackend(path string) *SQLiteBackend {
	return &SQLiteBackend{path: path}
}

func (b *SQLiteBackend) Name() string { return "SQLite (Local)" }

func (b *SQLiteBackend) IsConnected() bool { return b.db != nil }

// Connect opens the database file, creating the parent directory if
// needed. WAL mode plus a generous busy timeout keeps a slow
// reconciliation write from surfacing "database is locked" to concurrent
// reads; a single connection serializes all access.
func (b *SQLiteBackend) Connect(ctx context.Context) bool {
	if b.db != nil {
		return true
	}

	if dir := filepath.Dir(b.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Printf("SQLite: cannot create data directory %s: %v", dir, err)
			return false
		}
	}

	db, err := sql.Open("sqlite3", b.path+"?_journal=WAL&_busy_timeout=30000&_foreign_keys=on")
	if err != nil {
		log.Printf("SQLite connection failed: %v", err)
		return false
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		log.Printf("SQLite ping failed: %v", err)
		db.Close()
		return false
	}

	b.db = db
	return true
}

func (b *SQLiteBackend) Disconnect() {
	if b.db != nil {
		b.db.Close()
		b.db = nil
	}
}

func (b *SQLiteBackend) Execute(ctx context.Context, query string, args ...any) error {
	if b.db == nil {
		return ErrNotConnected
	}
	_, err := b.db.ExecContext(ctx, toSQLite(query), args...)
	return err
}

func (b *SQLiteBackend) Fetch(ctx context.Context, query string, args ...any) ([]Row, error) {
	if b.db == nil {
		return nil, ErrNotConnected
	}
	rows, err := b.db.QueryContext(ctx, toSQLite(query), args...)
	if err != nil {
		return nil, err
	}
	return collectRows(rows)
}

func (b *SQLiteBackend) Fetchrow(ctx context.Context, query string, args ...any) (Row, error) {
	rows, err := b.Fetch(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (b *SQLiteBackend) Fetchval(ctx context.Context, query string, args ...any) (any, error) {
	if b.db == nil {
		return nil, ErrNotConnected
	}
	rows, err := b.db.QueryContext(ctx, toSQLite(query), args...)
	if err != nil {
		return nil, err
	}
	return firstValue(rows)
}

func (b *SQLiteBackend) InitSchema(ctx context.Context) error {
	if b.db == nil {
		return ErrNotConnected
	}
	return initSchema(ctx, b)
}

