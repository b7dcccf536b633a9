package scores

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alfin0226/RetroArcade/internal/config"
	"github.com/Alfin0226/RetroArcade/internal/database"
)

func setupTestDB(t *testing.T) (*Repository, *database.Manager, func()) {
	dbPath := "./test_scores_" + t.Name() + ".db"

	mgr := database.NewManagerWithBackends(
		database.NewSQLiteBackend(dbPath),
		database.NewPostgresBackend(config.Database{}),
	)
	require.NoError(t, mgr.Connect(context.Background()))

	cleanup := func() {
		mgr.Disconnect()
		os.Remove(dbPath)
	}
	return NewRepository(mgr), mgr, cleanup
}

func setupDualTestDB(t *testing.T) (*Repository, *database.Manager, func()) {
	localPath := "./test_scores_local_" + t.Name() + ".db"
	remotePath := "./test_scores_remote_" + t.Name() + ".db"

	mgr := database.NewManagerWithBackends(
		database.NewSQLiteBackend(localPath),
		database.NewSQLiteBackend(remotePath),
	)
	require.NoError(t, mgr.Connect(context.Background()))
	require.Equal(t, database.ModeDual, mgr.Mode())

	cleanup := func() {
		mgr.Disconnect()
		os.Remove(localPath)
		os.Remove(remotePath)
	}
	return NewRepository(mgr), mgr, cleanup
}

// createPlayer seeds a user with a zeroed scores row on one backend.
func createPlayer(t *testing.T, b database.Backend, username string) int64 {
	ctx := context.Background()
	err := b.Execute(ctx,
		"INSERT INTO users (username, email, password_hash) VALUES ($1, $2, $3)",
		username, username+"@example.com", "hash")
	require.NoError(t, err)
	id, err := b.Fetchval(ctx, "SELECT user_id FROM users WHERE username = $1", username)
	require.NoError(t, err)
	require.NoError(t, b.Execute(ctx, "INSERT INTO scores (user_id) VALUES ($1)", id))
	return int64(database.ToInt(id))
}

func TestColumn(t *testing.T) {
	for _, game := range []string{"snake", "tetris", "pacman", "space_invaders", "hybrid"} {
		col, ok := Column(game)
		assert.True(t, ok)
		assert.Equal(t, game+"_score", col)
	}

	_, ok := Column("chess")
	assert.False(t, ok)
	_, ok = Column("PACMAN")
	assert.False(t, ok, "game keys are case sensitive")
}

func TestRepository_UpdateGameScore_OnlyIncreases(t *testing.T) {
	repo, mgr, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	userID := createPlayer(t, mgr.Local(), "player")

	isHigh, err := repo.UpdateGameScore(ctx, userID, "snake", 100)
	require.NoError(t, err)
	assert.True(t, isHigh)

	// A lower result is not an error, just not a new high.
	isHigh, err = repo.UpdateGameScore(ctx, userID, "snake", 40)
	require.NoError(t, err)
	assert.False(t, isHigh)

	// Equal is not strictly greater.
	isHigh, err = repo.UpdateGameScore(ctx, userID, "snake", 100)
	require.NoError(t, err)
	assert.False(t, isHigh)

	row, err := repo.GetUserScores(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 100, database.ToInt(row["snake_score"]))
}

func TestRepository_UpdateGameScore_RecomputesTotal(t *testing.T) {
	repo, mgr, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	userID := createPlayer(t, mgr.Local(), "player")

	plays := map[string]int{
		"snake":          120,
		"tetris":         4500,
		"pacman":         880,
		"space_invaders": 300,
		"hybrid":         60,
	}
	total := 0
	for game, score := range plays {
		_, err := repo.UpdateGameScore(ctx, userID, game, score)
		require.NoError(t, err)
		total += score
	}

	row, err := repo.GetUserScores(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, total, database.ToInt(row["total_score"]))

	// Beating one game moves the total by exactly the delta.
	_, err = repo.UpdateGameScore(ctx, userID, "snake", 200)
	require.NoError(t, err)
	row, err = repo.GetUserScores(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, total+80, database.ToInt(row["total_score"]))
}

func TestRepository_UpdateGameScore_UnknownGame(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.UpdateGameScore(context.Background(), 1, "chess", 100)
	assert.ErrorIs(t, err, ErrUnknownGame)

	_, err = repo.GetGameLeaderboard(context.Background(), "chess; DROP TABLE scores", 10)
	assert.ErrorIs(t, err, ErrUnknownGame)
}

func TestApplyToBackend_ReplayIsIdempotent(t *testing.T) {
	_, mgr, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	userID := createPlayer(t, mgr.Local(), "player")

	applied, err := ApplyToBackend(ctx, mgr.Local(), userID, "tetris", 900)
	require.NoError(t, err)
	assert.True(t, applied)

	// Replaying the same write, as the outbox does, changes nothing.
	applied, err = ApplyToBackend(ctx, mgr.Local(), userID, "tetris", 900)
	require.NoError(t, err)
	assert.False(t, applied)

	row, err := mgr.Fetchrow(ctx, "SELECT tetris_score, total_score FROM scores WHERE user_id = $1", userID)
	require.NoError(t, err)
	assert.Equal(t, 900, database.ToInt(row["tetris_score"]))
	assert.Equal(t, 900, database.ToInt(row["total_score"]))
}

func TestRepository_UpdateGameScore_MirroredInDualMode(t *testing.T) {
	repo, mgr, cleanup := setupDualTestDB(t)
	defer cleanup()
	ctx := context.Background()

	localID := createPlayer(t, mgr.Local(), "player")
	remoteID := createPlayer(t, mgr.Remote(), "player")
	require.Equal(t, localID, remoteID, "fresh stores assign matching ids")

	isHigh, err := repo.UpdateGameScore(ctx, localID, "pacman", 750)
	require.NoError(t, err)
	assert.True(t, isHigh)

	for side, id := range map[database.Backend]int64{mgr.Local(): localID, mgr.Remote(): remoteID} {
		row, err := side.Fetchrow(ctx, "SELECT pacman_score FROM scores WHERE user_id = $1", id)
		require.NoError(t, err)
		assert.Equal(t, 750, database.ToInt(row["pacman_score"]), side.Name())
	}
}

// The remote failing mid-session must not surface to the player as long
// as the score landed locally; reconciliation carries it over later.
func TestRepository_UpdateGameScore_RemoteFailureKeptLocally(t *testing.T) {
	repo, mgr, cleanup := setupDualTestDB(t)
	defer cleanup()
	ctx := context.Background()

	localID := createPlayer(t, mgr.Local(), "player")
	createPlayer(t, mgr.Remote(), "player")

	// Break the primary side only.
	require.NoError(t, mgr.Remote().Execute(ctx, "DROP TABLE scores"))

	isHigh, err := repo.UpdateGameScore(ctx, localID, "hybrid", 42)
	require.NoError(t, err)
	assert.True(t, isHigh)

	row, err := mgr.Local().Fetchrow(ctx, "SELECT hybrid_score FROM scores WHERE user_id = $1", localID)
	require.NoError(t, err)
	assert.Equal(t, 42, database.ToInt(row["hybrid_score"]))
}

func TestRepository_GetGlobalLeaderboard(t *testing.T) {
	repo, mgr, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	for username, score := range map[string]int{"bronze": 100, "gold": 900, "silver": 500} {
		id := createPlayer(t, mgr.Local(), username)
		_, err := repo.UpdateGameScore(ctx, id, "snake", score)
		require.NoError(t, err)
	}

	rows, err := repo.GetGlobalLeaderboard(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "gold", database.ToString(rows[0]["username"]))
	assert.Equal(t, 900, database.ToInt(rows[0]["total_score"]))
	assert.Equal(t, "silver", database.ToString(rows[1]["username"]))
}

func TestRepository_GetGameLeaderboard_SkipsZeroScores(t *testing.T) {
	repo, mgr, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	playedID := createPlayer(t, mgr.Local(), "played")
	createPlayer(t, mgr.Local(), "neverplayed")
	_, err := repo.UpdateGameScore(ctx, playedID, "tetris", 300)
	require.NoError(t, err)

	rows, err := repo.GetGameLeaderboard(ctx, "tetris", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "played", database.ToString(rows[0]["username"]))
	assert.Equal(t, 300, database.ToInt(rows[0]["score"]))
}
