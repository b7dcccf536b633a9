package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// gameColumns lists the per-game high score columns in merge order.
var gameColumns = []string{
	"pacman_score",
	"tetris_score",
	"snake_score",
	"space_invaders_score",
	"hybrid_score",
}

// SyncDatabases reconciles the local and remote stores. Users, scores and
// settings are three independent phases; a failure in one never blocks the
// others, and a failure for one user never aborts the loop over the rest.
//
// The protocol is eventually consistent: each matched pair is read then
// written independently, with no lock held across the pass. Running the
// pass twice with no intervening writes performs zero writes the second
// time.
func (m *Manager) SyncDatabases(ctx context.Context) error {
	if m.Mode() != ModeDual {
		return fmt.Errorf("reconciliation requires both backends: %w", ErrNotConnected)
	}

	log.Printf("Reconciling %s <-> %s", m.local.Name(), m.remote.Name())

	var errs []error
	if err := m.syncUsers(ctx); err != nil {
		log.Printf("user reconciliation failed: %v", err)
		errs = append(errs, err)
	}
	if err := m.syncScores(ctx); err != nil {
		log.Printf("score reconciliation failed: %v", err)
		errs = append(errs, err)
	}
	if err := m.syncSettings(ctx); err != nil {
		log.Printf("settings reconciliation failed: %v", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// usersByName indexes a backend's users rows by username, the only key
// comparable across backends (user_id is backend-assigned).
func usersByName(ctx context.Context, b Backend) (map[string]Row, error) {
	rows, err := b.Fetch(ctx, "SELECT user_id, username, email, password_hash, created_at, updated_at FROM users")
	if err != nil {
		return nil, err
	}
	out := make(map[string]Row, len(rows))
	for _, r := range rows {
		out[ToString(r["username"])] = r
	}
	return out, nil
}

func (m *Manager) syncUsers(ctx context.Context) error {
	localUsers, err := usersByName(ctx, m.local)
	if err != nil {
		return err
	}
	remoteUsers, err := usersByName(ctx, m.remote)
	if err != nil {
		return err
	}

	for name, lrow := range localUsers {
		rrow, ok := remoteUsers[name]
		if !ok {
			if err := copyAccount(ctx, m.local, m.remote, lrow); err != nil {
				log.Printf("copy %q to %s failed: %v", name, m.remote.Name(), err)
			}
			continue
		}
		if err := m.mergeUserPair(ctx, lrow, rrow); err != nil {
			log.Printf("merge user %q failed: %v", name, err)
		}
	}

	for name, rrow := range remoteUsers {
		if _, ok := localUsers[name]; ok {
			continue
		}
		if err := copyAccount(ctx, m.remote, m.local, rrow); err != nil {
			log.Printf("copy %q to %s failed: %v", name, m.local.Name(), err)
		}
	}
	return nil
}

// mergeUserPair resolves a username present on both sides: the row with
// the newer updated_at wins and its email/password_hash are copied onto
// the older side. Identical credentials are left alone so a repeated pass
// writes nothing.
func (m *Manager) mergeUserPair(ctx context.Context, lrow, rrow Row) error {
	if ToString(lrow["email"]) == ToString(rrow["email"]) &&
		ToString(lrow["password_hash"]) == ToString(rrow["password_hash"]) {
		return nil
	}

	ltime, lok := ParseTimestamp(lrow["updated_at"])
	rtime, rok := ParseTimestamp(rrow["updated_at"])

	var src Row
	var dst Backend
	var dstID any
	switch {
	case lok && rok && ltime.After(rtime):
		src, dst, dstID = lrow, m.remote, rrow["user_id"]
	case lok && rok:
		src, dst, dstID = rrow, m.local, lrow["user_id"]
	case lok: // remote timestamp carries no information
		src, dst, dstID = lrow, m.remote, rrow["user_id"]
	case rok:
		src, dst, dstID = rrow, m.local, lrow["user_id"]
	default:
		return nil // neither side has a usable timestamp
	}

	return dst.Execute(ctx,
		"UPDATE users SET email = $1, password_hash = $2, updated_at = NOW() WHERE user_id = $3",
		ToString(src["email"]), ToString(src["password_hash"]), dstID)
}

// copyAccount creates a user that exists on only one side on the other,
// carrying over the scores and settings rows. The destination assigns its
// own user_id.
func copyAccount(ctx context.Context, src, dst Backend, user Row) error {
	username := ToString(user["username"])

	err := dst.Execute(ctx,
		"INSERT INTO users (username, email, password_hash, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)",
		username, ToString(user["email"]), ToString(user["password_hash"]),
		nullableTime(user["created_at"]), nullableTime(user["updated_at"]))
	if err != nil {
		return err
	}

	newID, err := dst.Fetchval(ctx, "SELECT user_id FROM users WHERE username = $1", username)
	if err != nil {
		return err
	}

	scores, err := src.Fetchrow(ctx, "SELECT * FROM scores WHERE user_id = $1", user["user_id"])
	if err != nil {
		return err
	}
	if scores == nil {
		scores = Row{}
	}
	err = dst.Execute(ctx, `INSERT INTO scores (user_id, total_score, pacman_score, tetris_score,
			snake_score, space_invaders_score, hybrid_score, login_streak, last_login_date,
			games_played_today, last_played_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		newID, ToInt(scores["total_score"]), ToInt(scores["pacman_score"]), ToInt(scores["tetris_score"]),
		ToInt(scores["snake_score"]), ToInt(scores["space_invaders_score"]), ToInt(scores["hybrid_score"]),
		ToInt(scores["login_streak"]), nullableDate(scores["last_login_date"]),
		ToInt(scores["games_played_today"]), nullableDate(scores["last_played_date"]),
		nullableTime(scores["updated_at"]))
	if err != nil {
		return err
	}

	settings, err := src.Fetchrow(ctx, "SELECT * FROM user_settings WHERE user_id = $1", user["user_id"])
	if err != nil {
		return err
	}
	if settings == nil {
		settings = Row{"difficulty": "intermediate", "volume": 100, "keybinds": "{}"}
	}
	return dst.Execute(ctx,
		"INSERT INTO user_settings (user_id, difficulty, volume, keybinds, updated_at) VALUES ($1, $2, $3, $4, $5)",
		newID, ToString(settings["difficulty"]), ToInt(settings["volume"]),
		ToString(settings["keybinds"]), nullableTime(settings["updated_at"]))
}

// scoresByName joins scores through username so rows can be matched
// across backends.
func scoresByName(ctx context.Context, b Backend) (map[string]Row, error) {
	rows, err := b.Fetch(ctx, `SELECT u.username, s.user_id, s.total_score, s.pacman_score,
			s.tetris_score, s.snake_score, s.space_invaders_score, s.hybrid_score,
			s.login_streak, s.last_login_date, s.games_played_today, s.last_played_date
		FROM users u JOIN scores s ON u.user_id = s.user_id`)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Row, len(rows))
	for _, r := range rows {
		out[ToString(r["username"])] = r
	}
	return out, nil
}

// mergedScores is the backend-independent result of merging one user's
// scores rows from both sides.
type mergedScores struct {
	games       map[string]int
	total       int
	streak      int
	lastLogin   string
	playedToday int
	lastPlayed  string
}

// mergeScores combines two scores rows. Per-game columns take the max, so
// scores never regress; total_score is always recomputed as the sum of
// the merged per-game columns, never max'd on its own. The merge is
// commutative: swapping the sides yields the same result.
func mergeScores(a, b Row) mergedScores {
	m := mergedScores{games: make(map[string]int, len(gameColumns))}
	for _, col := range gameColumns {
		v := ToInt(a[col])
		if w := ToInt(b[col]); w > v {
			v = w
		}
		m.games[col] = v
		m.total += v
	}

	m.streak = ToInt(a["login_streak"])
	if s := ToInt(b["login_streak"]); s > m.streak {
		m.streak = s
	}

	m.lastLogin = laterDate(a["last_login_date"], b["last_login_date"])

	// The daily play counter travels with whichever side played last.
	aPlayed, bPlayed := DateOnly(a["last_played_date"]), DateOnly(b["last_played_date"])
	m.lastPlayed = laterDate(a["last_played_date"], b["last_played_date"])
	switch {
	case aPlayed == bPlayed:
		m.playedToday = ToInt(a["games_played_today"])
		if c := ToInt(b["games_played_today"]); c > m.playedToday {
			m.playedToday = c
		}
	case m.lastPlayed == aPlayed:
		m.playedToday = ToInt(a["games_played_today"])
	default:
		m.playedToday = ToInt(b["games_played_today"])
	}
	return m
}

// laterDate picks the later of two date values, or whichever side has one.
func laterDate(a, b any) string {
	da, db := DateOnly(a), DateOnly(b)
	if da == "" {
		return db
	}
	if db == "" || da > db {
		return da
	}
	return db
}

// matchesMerged reports whether a side already holds the merged values,
// in which case no write is needed.
func matchesMerged(row Row, m mergedScores) bool {
	for col, v := range m.games {
		if ToInt(row[col]) != v {
			return false
		}
	}
	return ToInt(row["total_score"]) == m.total &&
		ToInt(row["login_streak"]) == m.streak &&
		DateOnly(row["last_login_date"]) == m.lastLogin &&
		ToInt(row["games_played_today"]) == m.playedToday &&
		DateOnly(row["last_played_date"]) == m.lastPlayed
}

func writeMerged(ctx context.Context, b Backend, userID any, m mergedScores) error {
	return b.Execute(ctx, `UPDATE scores SET total_score = $1, pacman_score = $2, tetris_score = $3,
			snake_score = $4, space_invaders_score = $5, hybrid_score = $6, login_streak = $7,
			last_login_date = $8, games_played_today = $9, last_played_date = $10, updated_at = NOW()
		WHERE user_id = $11`,
		m.total, m.games["pacman_score"], m.games["tetris_score"], m.games["snake_score"],
		m.games["space_invaders_score"], m.games["hybrid_score"], m.streak,
		emptyAsNil(m.lastLogin), m.playedToday, emptyAsNil(m.lastPlayed), userID)
}

func (m *Manager) syncScores(ctx context.Context) error {
	localScores, err := scoresByName(ctx, m.local)
	if err != nil {
		return err
	}
	remoteScores, err := scoresByName(ctx, m.remote)
	if err != nil {
		return err
	}

	for name, lrow := range localScores {
		rrow, ok := remoteScores[name]
		if !ok {
			continue // one-sided accounts are handled by the user phase
		}
		merged := mergeScores(lrow, rrow)
		if !matchesMerged(lrow, merged) {
			if err := writeMerged(ctx, m.local, lrow["user_id"], merged); err != nil {
				log.Printf("write merged scores for %q to %s failed: %v", name, m.local.Name(), err)
			}
		}
		if !matchesMerged(rrow, merged) {
			if err := writeMerged(ctx, m.remote, rrow["user_id"], merged); err != nil {
				log.Printf("write merged scores for %q to %s failed: %v", name, m.remote.Name(), err)
			}
		}
	}
	return nil
}

func settingsByName(ctx context.Context, b Backend) (map[string]Row, error) {
	rows, err := b.Fetch(ctx, `SELECT u.username, s.user_id, s.difficulty, s.volume, s.keybinds, s.updated_at
		FROM users u JOIN user_settings s ON u.user_id = s.user_id`)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Row, len(rows))
	for _, r := range rows {
		out[ToString(r["username"])] = r
	}
	return out, nil
}

// syncSettings is pure last-write-wins: the side with the newer
// updated_at is propagated whole to the other, no field-level merging.
func (m *Manager) syncSettings(ctx context.Context) error {
	localSettings, err := settingsByName(ctx, m.local)
	if err != nil {
		return err
	}
	remoteSettings, err := settingsByName(ctx, m.remote)
	if err != nil {
		return err
	}

	for name, lrow := range localSettings {
		rrow, ok := remoteSettings[name]
		if !ok {
			continue
		}
		if ToString(lrow["difficulty"]) == ToString(rrow["difficulty"]) &&
			ToInt(lrow["volume"]) == ToInt(rrow["volume"]) &&
			ToString(lrow["keybinds"]) == ToString(rrow["keybinds"]) {
			continue
		}

		ltime, lok := ParseTimestamp(lrow["updated_at"])
		rtime, rok := ParseTimestamp(rrow["updated_at"])

		var src Row
		var dst Backend
		var dstID any
		switch {
		case lok && rok && ltime.After(rtime):
			src, dst, dstID = lrow, m.remote, rrow["user_id"]
		case lok && rok:
			src, dst, dstID = rrow, m.local, lrow["user_id"]
		case lok:
			src, dst, dstID = lrow, m.remote, rrow["user_id"]
		case rok:
			src, dst, dstID = rrow, m.local, lrow["user_id"]
		default:
			continue
		}

		err := dst.Execute(ctx,
			"UPDATE user_settings SET difficulty = $1, volume = $2, keybinds = $3, updated_at = NOW() WHERE user_id = $4",
			ToString(src["difficulty"]), ToInt(src["volume"]), ToString(src["keybinds"]), dstID)
		if err != nil {
			log.Printf("propagate settings for %q failed: %v", name, err)
		}
	}
	return nil
}

func nullableTime(v any) any {
	if t, ok := ParseTimestamp(v); ok {
		return t.Format("2006-01-02 15:04:05")
	}
	return time.Now().UTC().Format("2006-01-02 15:04:05")
}

func nullableDate(v any) any {
	if s := DateOnly(v); s != "" {
		return s
	}
	return nil
}

func emptyAsNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
