package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/Alfin0226/RetroArcade/internal/database"
	"github.com/Alfin0226/RetroArcade/internal/database/scores"
)

// MirrorTask is a local mirror write that failed inline and was queued
// for durable replay. Score replays re-run the full high-score logic, so
// a task that was already applied by a later write or a reconciliation
// pass is a harmless no-op.
type MirrorTask struct {
	Op     string `json:"op"` // "score" or "exec"
	UserID int64  `json:"user_id,omitempty"`
	Game   string `json:"game,omitempty"`
	Score  int    `json:"score,omitempty"`
	Query  string `json:"query,omitempty"`
	Args   []any  `json:"args,omitempty"`
}

// Config returns the queue configuration for mirror replay tasks.
func (t MirrorTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "mirror_writes",
		MaxAttempts: 5,
		Backoff:     1 * time.Minute,
		Timeout:     1 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// MirrorProcessor creates a processor that replays a mirror write against
// the local backend.
func MirrorProcessor(local database.Backend) backlite.QueueProcessor[MirrorTask] {
	return func(ctx context.Context, task MirrorTask) error {
		if local == nil || !local.IsConnected() {
			return fmt.Errorf("local backend unavailable, will retry")
		}

		switch task.Op {
		case "score":
			applied, err := scores.ApplyToBackend(ctx, local, task.UserID, task.Game, task.Score)
			if err != nil {
				return fmt.Errorf("replay score for user %d: %w", task.UserID, err)
			}
			if applied {
				log.Printf("[TASK] Replayed %s score %d for user %d", task.Game, task.Score, task.UserID)
			}
			return nil
		case "exec":
			if err := local.Execute(ctx, task.Query, task.Args...); err != nil {
				return fmt.Errorf("replay statement: %w", err)
			}
			return nil
		default:
			// Unknown op from a newer release; dropping beats retrying forever.
			log.Printf("[TASK] Dropping mirror task with unknown op %q", task.Op)
			return nil
		}
	}
}

// NewMirrorQueue creates the backlite queue for mirror replay tasks.
func NewMirrorQueue(local database.Backend) backlite.Queue {
	return backlite.NewQueue(MirrorProcessor(local))
}

// EnqueueMirror implements database.MirrorQueue.
func (c *Client) EnqueueMirror(ctx context.Context, f database.FailedMirror) error {
	task := MirrorTask{
		Op:     f.Op,
		UserID: f.UserID,
		Game:   f.Game,
		Score:  f.Score,
		Query:  f.Query,
		Args:   f.Args,
	}
	_, err := c.Add(task).Ctx(ctx).Save()
	return err
}
