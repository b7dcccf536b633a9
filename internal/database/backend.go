package database

import (
	"context"
	"errors"
)

var (
	// ErrNotConnected is returned when an operation is attempted before a
	// successful Connect, or after Disconnect.
	ErrNotConnected = errors.New("database not connected")

	// ErrAlreadyExists is returned when a unique constraint (username or
	// email) would be violated. Callers treat it as a normal outcome, not
	// a failure.
	ErrAlreadyExists = errors.New("record already exists")
)

// Row is a single result row keyed by column name.
type Row map[string]any

// Backend is the capability interface shared by the embedded SQLite store
// and the remote PostgreSQL store. Queries use the canonical dialect with
// $1, $2, ... placeholders; each backend adapts them as needed.
type Backend interface {
	// Connect establishes the connection or pool. It is idempotent and
	// reports whether the backend is now usable. An unreachable remote is
	// a normal false return, never an error.
	Connect(ctx context.Context) bool

	// Disconnect releases all resources. Safe to call when already
	// disconnected.
	Disconnect()

	// Execute runs a mutating statement.
	Execute(ctx context.Context, query string, args ...any) error

	// Fetch runs a query and returns all rows.
	Fetch(ctx context.Context, query string, args ...any) ([]Row, error)

	// Fetchrow returns at most one row, or nil when there is none.
	Fetchrow(ctx context.Context, query string, args ...any) (Row, error)

	// Fetchval returns the first column of the first row, or nil when
	// there is no row.
	Fetchval(ctx context.Context, query string, args ...any) (any, error)

	// InitSchema idempotently creates tables, applies pending column
	// migrations, and creates indexes.
	InitSchema(ctx context.Context) error

	IsConnected() bool

	// Name is a human-readable backend label for logging.
	Name() string
}
