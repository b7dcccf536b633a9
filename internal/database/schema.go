package database

import (
	"context"
	"log"
)

// createTables is the canonical DDL, written in the PostgreSQL dialect and
// translated by the SQLite backend. Tables carry only the columns of the
// oldest supported schema; everything newer is added by migrations so that
// a database created by any earlier release upgrades in place.
var createTables = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id SERIAL PRIMARY KEY,
		username VARCHAR(50) UNIQUE NOT NULL,
		email VARCHAR(100) UNIQUE NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		created_at TIMESTAMP DEFAULT (NOW())
	)`,
	`CREATE TABLE IF NOT EXISTS scores (
		user_id INTEGER PRIMARY KEY REFERENCES users(user_id) ON DELETE CASCADE,
		total_score INTEGER DEFAULT 0,
		pacman_score INTEGER DEFAULT 0,
		tetris_score INTEGER DEFAULT 0,
		snake_score INTEGER DEFAULT 0,
		space_invaders_score INTEGER DEFAULT 0,
		login_streak INTEGER DEFAULT 0,
		last_login_date DATE
	)`,
	`CREATE TABLE IF NOT EXISTS user_settings (
		user_id INTEGER PRIMARY KEY REFERENCES users(user_id) ON DELETE CASCADE,
		difficulty VARCHAR(20) DEFAULT 'intermediate',
		volume INTEGER DEFAULT 100,
		keybinds TEXT DEFAULT '{}'
	)`,
}

// migration adds one column introduced after the oldest schema version.
// Numeric counters default to 0; dates and timestamps stay nullable so the
// column can be added to a populated table on any backend.
type migration struct {
	table  string
	column string
	ddl    string
}

var migrations = []migration{
	{"scores", "hybrid_score", "ALTER TABLE scores ADD COLUMN hybrid_score INTEGER DEFAULT 0"},
	{"scores", "games_played_today", "ALTER TABLE scores ADD COLUMN games_played_today INTEGER DEFAULT 0"},
	{"scores", "last_played_date", "ALTER TABLE scores ADD COLUMN last_played_date DATE"},
	{"scores", "updated_at", "ALTER TABLE scores ADD COLUMN updated_at TIMESTAMP"},
	{"users", "updated_at", "ALTER TABLE users ADD COLUMN updated_at TIMESTAMP"},
	{"user_settings", "updated_at", "ALTER TABLE user_settings ADD COLUMN updated_at TIMESTAMP"},
}

// createIndexes runs last: an index on a migrated column must not be
// attempted before the migration has added it.
var createIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username)`,
	`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
	`CREATE INDEX IF NOT EXISTS idx_scores_total ON scores(total_score DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_scores_pacman ON scores(pacman_score DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_scores_tetris ON scores(tetris_score DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_scores_snake ON scores(snake_score DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_scores_space_invaders ON scores(space_invaders_score DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_scores_hybrid ON scores(hybrid_score DESC)`,
}

// initSchema creates the base tables, applies pending column migrations,
// then creates indexes. Safe to run on every process start: against a
// fully migrated schema every step is a no-op. Migration and index
// failures are logged per step and never abort the rest.
func initSchema(ctx context.Context, b Backend) error {
	for _, stmt := range createTables {
		if err := b.Execute(ctx, stmt); err != nil {
			return err
		}
	}

	for _, m := range migrations {
		probe := "SELECT " + m.column + " FROM " + m.table + " LIMIT 1"
		if _, err := b.Fetch(ctx, probe); err == nil {
			continue // column already present
		}
		if err := b.Execute(ctx, m.ddl); err != nil {
			log.Printf("%s: migration %s.%s skipped: %v", b.Name(), m.table, m.column, err)
			continue
		}
		log.Printf("%s: added column %s.%s", b.Name(), m.table, m.column)
	}

	for _, stmt := range createIndexes {
		if err := b.Execute(ctx, stmt); err != nil {
			log.Printf("%s: index creation skipped: %v", b.Name(), err)
		}
	}
	return nil
}
