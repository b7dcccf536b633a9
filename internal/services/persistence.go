// Package services exposes the persistence facade the game layer calls.
// Every method funnels through the single background worker, so the
// synchronous render loop blocks only on a bounded handoff, never on
// database I/O directly.
package services

import (
	"context"

	"github.com/Alfin0226/RetroArcade/internal/auth"
	"github.com/Alfin0226/RetroArcade/internal/database"
	"github.com/Alfin0226/RetroArcade/internal/database/accounts"
	"github.com/Alfin0226/RetroArcade/internal/database/scores"
	"github.com/Alfin0226/RetroArcade/internal/database/settings"
	"github.com/Alfin0226/RetroArcade/internal/worker"
)

// Persistence is the only interface the game and menu code talk to. It is
// constructed once at process start and injected into every screen that
// needs it; nothing imports a shared global handle.
type Persistence struct {
	manager    *database.Manager
	worker     *worker.Worker
	accounts   *accounts.Repository
	scores     *scores.Repository
	settings   *settings.Repository
	bcryptCost int
}

func NewPersistence(manager *database.Manager, w *worker.Worker, bcryptCost int) *Persistence {
	return &Persistence{
		manager:    manager,
		worker:     w,
		accounts:   accounts.NewRepository(manager),
		scores:     scores.NewRepository(manager),
		settings:   settings.NewRepository(manager),
		bcryptCost: bcryptCost,
	}
}

// Connect brings the backends up on the worker.
func (p *Persistence) Connect() error {
	return p.worker.Submit(func(ctx context.Context) error {
		return p.manager.Connect(ctx)
	})
}

func (p *Persistence) Disconnect() error {
	return p.worker.Submit(func(ctx context.Context) error {
		p.manager.Disconnect()
		return nil
	})
}

// IsConnected and BackendName read manager state that only the worker
// mutates; they go through the worker too so the read is ordered after
// any in-flight connect.
func (p *Persistence) IsConnected() bool {
	var connected bool
	_ = p.worker.Submit(func(ctx context.Context) error {
		connected = p.manager.IsConnected()
		return nil
	})
	return connected
}

func (p *Persistence) BackendName() string {
	name := "Not connected"
	_ = p.worker.Submit(func(ctx context.Context) error {
		name = p.manager.BackendName()
		return nil
	})
	return name
}

// RegisterUser hashes the password and creates the account.
// database.ErrAlreadyExists means the username or email is taken.
func (p *Persistence) RegisterUser(username, email, password string) (int64, error) {
	hash, err := auth.HashPassword(password, p.bcryptCost)
	if err != nil {
		return 0, err
	}
	var userID int64
	err = p.worker.Submit(func(ctx context.Context) error {
		var err error
		userID, err = p.accounts.CreateUser(ctx, username, email, hash)
		return err
	})
	return userID, err
}

// VerifyLogin resolves a username-or-email identifier and password to a
// user id, updating the login streak on success.
func (p *Persistence) VerifyLogin(identifier, password string) (int64, error) {
	var userID int64
	err := p.worker.Submit(func(ctx context.Context) error {
		var err error
		userID, err = p.accounts.VerifyLogin(ctx, identifier, password)
		return err
	})
	return userID, err
}

func (p *Persistence) UpdateLoginStreak(userID int64) (int, error) {
	var streak int
	err := p.worker.Submit(func(ctx context.Context) error {
		var err error
		streak, err = p.accounts.UpdateLoginStreak(ctx, userID)
		return err
	})
	return streak, err
}

func (p *Persistence) IncrementDailyGames(userID int64) (int, error) {
	var count int
	err := p.worker.Submit(func(ctx context.Context) error {
		var err error
		count, err = p.accounts.IncrementDailyGames(ctx, userID)
		return err
	})
	return count, err
}

// UpdateGameScore records a finished game and reports whether it set a
// new high score.
func (p *Persistence) UpdateGameScore(userID int64, game string, score int) (bool, error) {
	var isHigh bool
	err := p.worker.Submit(func(ctx context.Context) error {
		var err error
		isHigh, err = p.scores.UpdateGameScore(ctx, userID, game, score)
		return err
	})
	return isHigh, err
}

func (p *Persistence) GetUserScores(userID int64) (database.Row, error) {
	var row database.Row
	err := p.worker.Submit(func(ctx context.Context) error {
		var err error
		row, err = p.scores.GetUserScores(ctx, userID)
		return err
	})
	return row, err
}

func (p *Persistence) GetGlobalLeaderboard(limit int) ([]database.Row, error) {
	var rows []database.Row
	err := p.worker.Submit(func(ctx context.Context) error {
		var err error
		rows, err = p.scores.GetGlobalLeaderboard(ctx, limit)
		return err
	})
	return rows, err
}

func (p *Persistence) GetGameLeaderboard(game string, limit int) ([]database.Row, error) {
	var rows []database.Row
	err := p.worker.Submit(func(ctx context.Context) error {
		var err error
		rows, err = p.scores.GetGameLeaderboard(ctx, game, limit)
		return err
	})
	return rows, err
}

func (p *Persistence) GetUserSettings(userID int64) (database.Row, error) {
	var row database.Row
	err := p.worker.Submit(func(ctx context.Context) error {
		var err error
		row, err = p.settings.GetUserSettings(ctx, userID)
		return err
	})
	return row, err
}

func (p *Persistence) UpdateUserSettings(userID int64, fields map[string]any) error {
	return p.worker.Submit(func(ctx context.Context) error {
		return p.settings.UpdateUserSettings(ctx, userID, fields)
	})
}

// SyncDatabases runs a full reconciliation pass between the two stores.
func (p *Persistence) SyncDatabases() error {
	return p.worker.Submit(func(ctx context.Context) error {
		return p.manager.SyncDatabases(ctx)
	})
}
