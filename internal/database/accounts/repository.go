// Package accounts provides registration, login, and the per-day counters
// (login streak, games played today) on top of the hybrid database manager.
//
// # Usage
//
//	repo := accounts.NewRepository(manager)
//	userID, err := repo.CreateUser(ctx, "alice", "a@x.com", hash)
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Alfin0226/RetroArcade/internal/auth"
	"github.com/Alfin0226/RetroArcade/internal/database"
)

// ErrInvalidCredentials is returned for a failed login. It deliberately
// does not distinguish an unknown user from a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Repository handles account database operations.
type Repository struct {
	db *database.Manager
}

// NewRepository creates a new accounts repository.
func NewRepository(db *database.Manager) *Repository {
	return &Repository{db: db}
}

// CreateUser registers a new account and initializes its zeroed scores row
// and default settings row. A username or email already taken on the
// active backend yields database.ErrAlreadyExists, a normal outcome.
// In dual mode the new account is best-effort mirrored to the local store.
func (r *Repository) CreateUser(ctx context.Context, username, email, passwordHash string) (int64, error) {
	if !r.db.IsConnected() {
		return 0, database.ErrNotConnected
	}

	existing, err := r.db.Fetchrow(ctx,
		"SELECT user_id FROM users WHERE username = $1 OR email = $2", username, email)
	if err != nil {
		return 0, fmt.Errorf("duplicate check: %w", err)
	}
	if existing != nil {
		return 0, database.ErrAlreadyExists
	}

	userID, err := insertAccount(ctx, r.db.Active(), r.db.UsingRemote(), username, email, passwordHash)
	if err != nil {
		return 0, err
	}

	if r.db.Mode() == database.ModeDual {
		if _, err := insertAccount(ctx, r.db.Local(), false, username, email, passwordHash); err != nil {
			log.Printf("mirror of new account %q to local failed: %v", username, err)
		}
	}
	return userID, nil
}

// insertAccount creates the user plus its scores and settings rows on one
// backend. PostgreSQL returns the assigned id via RETURNING; SQLite reads
// it back with last_insert_rowid().
func insertAccount(ctx context.Context, b database.Backend, returning bool, username, email, passwordHash string) (int64, error) {
	var idValue any
	var err error
	if returning {
		idValue, err = b.Fetchval(ctx, `INSERT INTO users (username, email, password_hash, created_at, updated_at)
			VALUES ($1, $2, $3, NOW(), NOW()) RETURNING user_id`, username, email, passwordHash)
	} else {
		err = b.Execute(ctx, `INSERT INTO users (username, email, password_hash, created_at, updated_at)
			VALUES ($1, $2, $3, NOW(), NOW())`, username, email, passwordHash)
		if err == nil {
			idValue, err = b.Fetchval(ctx, "SELECT last_insert_rowid()")
		}
	}
	if err != nil {
		return 0, fmt.Errorf("create user %q: %w", username, err)
	}

	userID := int64(database.ToInt(idValue))
	if err := initUserData(ctx, b, userID); err != nil {
		return 0, fmt.Errorf("init user data for %q: %w", username, err)
	}
	return userID, nil
}

// initUserData creates the zeroed scores row and default settings row.
// Registration is atomic from the caller's point of view: the three rows
// appear together or the call fails.
func initUserData(ctx context.Context, b database.Backend, userID int64) error {
	err := b.Execute(ctx, `INSERT INTO scores (user_id, total_score, pacman_score, tetris_score,
			snake_score, space_invaders_score, hybrid_score, login_streak, last_login_date,
			games_played_today, last_played_date, updated_at)
		VALUES ($1, 0, 0, 0, 0, 0, 0, 0, NULL, 0, NULL, NOW())`, userID)
	if err != nil {
		return err
	}
	return b.Execute(ctx, `INSERT INTO user_settings (user_id, difficulty, volume, keybinds, updated_at)
		VALUES ($1, 'intermediate', 100, '{}', NOW())`, userID)
}

// GetUserByUsername returns the user row, or nil when there is none.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (database.Row, error) {
	return r.db.Fetchrow(ctx, "SELECT * FROM users WHERE username = $1", username)
}

// GetUserByEmail returns the user row, or nil when there is none.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (database.Row, error) {
	return r.db.Fetchrow(ctx, "SELECT * FROM users WHERE email = $1", email)
}

// VerifyLogin checks a username-or-email identifier against a password.
// Every failure is ErrInvalidCredentials; the caller can never tell an
// unknown user from a wrong password, and a bcrypt comparison is burned
// on the unknown-user path to keep the timing comparable. A successful
// login also updates the login streak.
func (r *Repository) VerifyLogin(ctx context.Context, identifier, password string) (int64, error) {
	if !r.db.IsConnected() {
		return 0, database.ErrNotConnected
	}

	user, err := r.GetUserByUsername(ctx, identifier)
	if err != nil {
		return 0, err
	}
	if user == nil {
		if user, err = r.GetUserByEmail(ctx, identifier); err != nil {
			return 0, err
		}
	}
	if user == nil {
		auth.CheckDummy(password)
		return 0, ErrInvalidCredentials
	}

	if err := auth.CheckPassword(password, database.ToString(user["password_hash"])); err != nil {
		return 0, ErrInvalidCredentials
	}

	userID := int64(database.ToInt(user["user_id"]))
	if _, err := r.UpdateLoginStreak(ctx, userID); err != nil {
		log.Printf("login streak update for user %d failed: %v", userID, err)
	}
	return userID, nil
}

// UpdateLoginStreak applies the day-boundary rules: a last login exactly
// yesterday extends the streak, today leaves it unchanged, anything older
// (or no previous login) resets it to 1. Idempotent within one calendar
// day; callers invoke it at most once per login.
func (r *Repository) UpdateLoginStreak(ctx context.Context, userID int64) (int, error) {
	row, err := r.db.Fetchrow(ctx,
		"SELECT login_streak, last_login_date FROM scores WHERE user_id = $1", userID)
	if err != nil {
		return 0, err
	}
	if row == nil {
		return 0, fmt.Errorf("no scores row for user %d", userID)
	}

	now := time.Now()
	today := now.Format("2006-01-02")
	yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")

	newStreak := 1
	switch database.DateOnly(row["last_login_date"]) {
	case today:
		if s := database.ToInt(row["login_streak"]); s > 0 {
			newStreak = s
		}
	case yesterday:
		newStreak = database.ToInt(row["login_streak"]) + 1
	}

	err = r.db.ExecuteMirrored(ctx,
		"UPDATE scores SET login_streak = $1, last_login_date = $2, updated_at = NOW() WHERE user_id = $3",
		newStreak, today, userID)
	if err != nil {
		return 0, err
	}
	return newStreak, nil
}

// IncrementDailyGames bumps the games-played-today counter, resetting it
// when the last play was on an earlier day. The stored counter is not
// capped; consumers cap it for bonus calculations if they care.
func (r *Repository) IncrementDailyGames(ctx context.Context, userID int64) (int, error) {
	row, err := r.db.Fetchrow(ctx,
		"SELECT games_played_today, last_played_date FROM scores WHERE user_id = $1", userID)
	if err != nil {
		return 0, err
	}
	if row == nil {
		return 0, fmt.Errorf("no scores row for user %d", userID)
	}

	today := time.Now().Format("2006-01-02")
	count := 1
	if database.DateOnly(row["last_played_date"]) == today {
		count = database.ToInt(row["games_played_today"]) + 1
	}

	err = r.db.ExecuteMirrored(ctx,
		"UPDATE scores SET games_played_today = $1, last_played_date = $2, updated_at = NOW() WHERE user_id = $3",
		count, today, userID)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteUser removes an account; the scores and settings rows cascade.
func (r *Repository) DeleteUser(ctx context.Context, userID int64) error {
	return r.db.ExecuteMirrored(ctx, "DELETE FROM users WHERE user_id = $1", userID)
}
