// Package scores provides high-score updates and leaderboard queries.
//
// Game keys come from the caller (the game layer) and are validated
// against the fixed set of five games before any column name is built
// from them.
package scores

import (
	"context"
	"errors"
	"log"

	"github.com/Alfin0226/RetroArcade/internal/database"
)

// ErrUnknownGame is returned when a game key is not one of the five
// known games.
var ErrUnknownGame = errors.New("unknown game")

// gameColumns maps the lowercase game keys accepted from callers to the
// score columns. Column names are only ever taken from this map, never
// interpolated from caller input.
var gameColumns = map[string]string{
	"snake":          "snake_score",
	"tetris":         "tetris_score",
	"pacman":         "pacman_score",
	"space_invaders": "space_invaders_score",
	"hybrid":         "hybrid_score",
}

// Column resolves a game key to its score column.
func Column(game string) (string, bool) {
	col, ok := gameColumns[game]
	return col, ok
}

// Repository handles score database operations.
type Repository struct {
	db *database.Manager
}

// NewRepository creates a new scores repository.
func NewRepository(db *database.Manager) *Repository {
	return &Repository{db: db}
}

// UpdateGameScore records a finished game. The stored per-game value only
// ever increases: the update happens when score is strictly greater than
// the stored high, and total_score is recomputed as the sum of all five
// columns afterwards. The logical operation is applied to each backend
// independently so each keeps its own monotonic semantics.
//
// The returned flag says whether this was a new high. A remote failure
// mid-session does not raise as long as the local replay lands; a failed
// local mirror goes to the outbox.
func (r *Repository) UpdateGameScore(ctx context.Context, userID int64, game string, score int) (bool, error) {
	if _, ok := Column(game); !ok {
		return false, ErrUnknownGame
	}
	if !r.db.IsConnected() {
		return false, database.ErrNotConnected
	}

	isHigh, activeErr := ApplyToBackend(ctx, r.db.Active(), userID, game, score)

	if r.db.Mode() != database.ModeDual {
		return isHigh, activeErr
	}

	localHigh, localErr := ApplyToBackend(ctx, r.db.Local(), userID, game, score)
	if localErr != nil {
		r.db.ReportMirrorFailure(ctx,
			database.FailedMirror{Op: "score", UserID: userID, Game: game, Score: score}, localErr)
	}
	if activeErr != nil {
		if localErr != nil {
			return false, activeErr
		}
		// The remote went away mid-session; the score still landed
		// locally and reconciliation will carry it over later.
		log.Printf("score write to %s failed, kept locally: %v", r.db.Active().Name(), activeErr)
		return localHigh, nil
	}
	return isHigh, nil
}

// ApplyToBackend runs the high-score update against one backend. It is
// also the replay body for queued mirror writes, so it must stay
// idempotent: replaying an already-applied score is a no-op.
func ApplyToBackend(ctx context.Context, b database.Backend, userID int64, game string, score int) (bool, error) {
	col, ok := Column(game)
	if !ok {
		return false, ErrUnknownGame
	}

	current, err := b.Fetchval(ctx, "SELECT "+col+" FROM scores WHERE user_id = $1", userID)
	if err != nil {
		return false, err
	}
	if score <= database.ToInt(current) {
		return false, nil
	}

	if err := b.Execute(ctx, "UPDATE scores SET "+col+" = $1, updated_at = NOW() WHERE user_id = $2", score, userID); err != nil {
		return false, err
	}
	// Derived, never independently adjusted. A crash between the two
	// statements leaves total_score stale until the next update.
	err = b.Execute(ctx, `UPDATE scores SET total_score = pacman_score + tetris_score +
			snake_score + space_invaders_score + hybrid_score WHERE user_id = $1`, userID)
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetUserScores returns the full scores row, or nil when there is none.
func (r *Repository) GetUserScores(ctx context.Context, userID int64) (database.Row, error) {
	return r.db.Fetchrow(ctx, "SELECT * FROM scores WHERE user_id = $1", userID)
}

// GetGlobalLeaderboard returns the top accounts by total score. Tie order
// is whatever the backend produces; callers must not depend on it.
func (r *Repository) GetGlobalLeaderboard(ctx context.Context, limit int) ([]database.Row, error) {
	return r.db.Fetch(ctx, `SELECT u.username, s.total_score, s.login_streak
		FROM users u JOIN scores s ON u.user_id = s.user_id
		ORDER BY s.total_score DESC LIMIT $1`, limit)
}

// GetGameLeaderboard returns the top positive scores for one game.
func (r *Repository) GetGameLeaderboard(ctx context.Context, game string, limit int) ([]database.Row, error) {
	col, ok := Column(game)
	if !ok {
		return nil, ErrUnknownGame
	}
	return r.db.Fetch(ctx, `SELECT u.username, s.`+col+` AS score
		FROM users u JOIN scores s ON u.user_id = s.user_id
		WHERE s.`+col+` > 0 ORDER BY s.`+col+` DESC LIMIT $1`, limit)
}
