package tasks

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alfin0226/RetroArcade/internal/database"
)

func setupBackend(t *testing.T) (database.Backend, func()) {
	dbPath := "./test_tasks_" + t.Name() + ".db"
	b := database.NewSQLiteBackend(dbPath)
	require.True(t, b.Connect(context.Background()))
	require.NoError(t, b.InitSchema(context.Background()))

	ctx := context.Background()
	require.NoError(t, b.Execute(ctx,
		"INSERT INTO users (username, email, password_hash) VALUES ('player', 'player@example.com', 'hash')"))
	require.NoError(t, b.Execute(ctx, "INSERT INTO scores (user_id) VALUES (1)"))

	cleanup := func() {
		b.Disconnect()
		os.Remove(dbPath)
	}
	return b, cleanup
}

func TestMirrorProcessor_ReplaysScore(t *testing.T) {
	b, cleanup := setupBackend(t)
	defer cleanup()
	ctx := context.Background()
	process := MirrorProcessor(b)

	err := process(ctx, MirrorTask{Op: "score", UserID: 1, Game: "snake", Score: 300})
	require.NoError(t, err)

	row, err := b.Fetchrow(ctx, "SELECT snake_score, total_score FROM scores WHERE user_id = 1")
	require.NoError(t, err)
	assert.Equal(t, 300, database.ToInt(row["snake_score"]))
	assert.Equal(t, 300, database.ToInt(row["total_score"]))

	// A replay that was already superseded is a no-op, not a failure.
	require.NoError(t, b.Execute(ctx, "UPDATE scores SET snake_score = 500, total_score = 500 WHERE user_id = 1"))
	err = process(ctx, MirrorTask{Op: "score", UserID: 1, Game: "snake", Score: 300})
	require.NoError(t, err)
	row, err = b.Fetchrow(ctx, "SELECT snake_score FROM scores WHERE user_id = 1")
	require.NoError(t, err)
	assert.Equal(t, 500, database.ToInt(row["snake_score"]))
}

func TestMirrorProcessor_ReplaysStatement(t *testing.T) {
	b, cleanup := setupBackend(t)
	defer cleanup()
	ctx := context.Background()
	process := MirrorProcessor(b)

	err := process(ctx, MirrorTask{
		Op:    "exec",
		Query: "UPDATE scores SET login_streak = $1, last_login_date = $2 WHERE user_id = $3",
		Args:  []any{4, "2025-03-01", 1},
	})
	require.NoError(t, err)

	row, err := b.Fetchrow(ctx, "SELECT login_streak FROM scores WHERE user_id = 1")
	require.NoError(t, err)
	assert.Equal(t, 4, database.ToInt(row["login_streak"]))
}

func TestMirrorProcessor_UnknownOpDropped(t *testing.T) {
	b, cleanup := setupBackend(t)
	defer cleanup()

	err := MirrorProcessor(b)(context.Background(), MirrorTask{Op: "compact"})
	assert.NoError(t, err, "unknown ops are dropped, not retried forever")
}

func TestMirrorProcessor_DisconnectedBackendRetries(t *testing.T) {
	b, cleanup := setupBackend(t)
	defer cleanup()
	b.Disconnect()

	err := MirrorProcessor(b)(context.Background(), MirrorTask{Op: "score", UserID: 1, Game: "snake", Score: 1})
	assert.Error(t, err, "an unavailable store must leave the task queued")
}

func TestClient_EnqueueMirror(t *testing.T) {
	dbPath := "./test_tasks_client_" + t.Name() + ".db"
	tasksPath := "./test_tasks_client_" + t.Name() + "-tasks.db"
	defer func() {
		os.Remove(dbPath)
		os.Remove(tasksPath)
	}()

	client, err := NewClient(dbPath, DefaultConfig())
	require.NoError(t, err)
	defer client.Close()

	b, cleanup := setupBackend(t)
	defer cleanup()
	client.Register(NewMirrorQueue(b))

	err = client.EnqueueMirror(context.Background(), database.FailedMirror{
		Op: "score", UserID: 1, Game: "tetris", Score: 900,
	})
	require.NoError(t, err)

	// The queue lives in its own file next to the main database.
	_, err = os.Stat(tasksPath)
	assert.NoError(t, err)
}
