package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"

	"github.com/Alfin0226/RetroArcade/internal/config"
)

// PostgresBackend is the remote production store. It is optional: when no
// credentials are configured, or the network is down, the manager runs
// local-only and this backend simply reports itself unavailable.
type PostgresBackend struct {
	cfg config.Database
	db  *sql.DB
}

func NewPostgresBackend(cfg config.Database) *PostgresBackend {
	return &PostgresBackend{cfg: cfg}
}

func (b *PostgresBackend) Name() string { return "PostgreSQL (Production)" }

func (b *PostgresBackend) IsConnected() bool { return b.db != nil }

func (b *PostgresBackend) dsn() string {
	if b.cfg.ConnectionString != "" {
		return b.cfg.ConnectionString
	}
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=require",
		b.cfg.Host, b.cfg.Port, b.cfg.Name, b.cfg.User, b.cfg.Password)
}

// Connect opens a bounded connection pool and verifies reachability with a
// ping. An unreachable or unconfigured remote is a normal false return.
func (b *PostgresBackend) Connect(ctx context.Context) bool {
	if b.db != nil {
		return true
	}
	if !b.cfg.IsConfigured() {
		log.Printf("PostgreSQL not configured - skipping")
		return false
	}

	db, err := sql.Open("postgres", b.dsn())
	if err != nil {
		log.Printf("PostgreSQL connection failed: %v", err)
		return false
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	timeout := b.cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		log.Printf("PostgreSQL unreachable: %v", err)
		db.Close()
		return false
	}

	b.db = db
	return true
}

func (b *PostgresBackend) Disconnect() {
	if b.db != nil {
		b.db.Close()
		b.db = nil
	}
}

func (b *PostgresBackend) Execute(ctx context.Context, query string, args ...any) error {
	if b.db == nil {
		return ErrNotConnected
	}
	_, err := b.db.ExecContext(ctx, query, args...)
	return err
}

func (b *PostgresBackend) Fetch(ctx context.Context, query string, args ...any) ([]Row, error) {
	if b.db == nil {
		return nil, ErrNotConnected
	}
	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectRows(rows)
}

func (b *PostgresBackend) Fetchrow(ctx context.Context, query string, args ...any) (Row, error) {
	rows, err := b.Fetch(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (b *PostgresBackend) Fetchval(ctx context.Context, query string, args ...any) (any, error) {
	if b.db == nil {
		return nil, ErrNotConnected
	}
	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return firstValue(rows)
}

func (b *PostgresBackend) InitSchema(ctx context.Context) error {
	if b.db == nil {
		return ErrNotConnected
	}
	return initSchema(ctx, b)
}
