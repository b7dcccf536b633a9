// Package settings provides per-user preference storage (difficulty,
// volume, keybinds).
package settings

import (
	"context"
	"strconv"

	"github.com/Alfin0226/RetroArcade/internal/database"
)

// updatableFields is the allowlist for partial updates, in a fixed order
// so the generated statement is deterministic. Anything else a caller
// passes is silently ignored.
var updatableFields = []string{"difficulty", "volume", "keybinds"}

// Repository handles user settings database operations.
type Repository struct {
	db *database.Manager
}

// NewRepository creates a new settings repository.
func NewRepository(db *database.Manager) *Repository {
	return &Repository{db: db}
}

// GetUserSettings returns the settings row, or nil when there is none.
func (r *Repository) GetUserSettings(ctx context.Context, userID int64) (database.Row, error) {
	return r.db.Fetchrow(ctx, "SELECT * FROM user_settings WHERE user_id = $1", userID)
}

// UpdateUserSettings applies a partial update. Only difficulty, volume
// and keybinds are recognized; the write is mirrored in dual mode and
// bumps updated_at so reconciliation can order it against the other side.
func (r *Repository) UpdateUserSettings(ctx context.Context, userID int64, fields map[string]any) error {
	query := "UPDATE user_settings SET "
	var args []any
	for _, field := range updatableFields {
		value, ok := fields[field]
		if !ok {
			continue
		}
		args = append(args, value)
		query += field + " = $" + strconv.Itoa(len(args)) + ", "
	}
	if len(args) == 0 {
		return nil
	}

	args = append(args, userID)
	query += "updated_at = NOW() WHERE user_id = $" + strconv.Itoa(len(args))
	return r.db.ExecuteMirrored(ctx, query, args...)
}
