// Package entrypoint assembles the persistence stack: config, the hybrid
// database manager, the background worker, the mirror outbox, and the
// optional scheduled reconciliation.
package entrypoint

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Alfin0226/RetroArcade/internal/config"
	"github.com/Alfin0226/RetroArcade/internal/database"
	"github.com/Alfin0226/RetroArcade/internal/scheduler"
	"github.com/Alfin0226/RetroArcade/internal/services"
	"github.com/Alfin0226/RetroArcade/internal/tasks"
	"github.com/Alfin0226/RetroArcade/internal/worker"
)

// App is the assembled persistence stack. The game layer receives only
// the Persistence facade; everything else is lifecycle plumbing.
type App struct {
	Persistence *services.Persistence

	manager   *database.Manager
	worker    *worker.Worker
	outbox    *tasks.Client
	scheduler *scheduler.SyncScheduler

	outboxCancel context.CancelFunc
}

// Build wires the stack together and connects the backends. Both
// backends failing is the one fatal condition: it means no persistence
// at all this session.
func Build(cfg *config.Config) (*App, error) {
	w := worker.New(cfg.Worker.SubmitTimeout)
	w.Start()

	manager := database.NewManager(cfg)

	outbox, err := tasks.NewClient(cfg.Local.Path, tasks.Config{
		Workers:           cfg.Tasks.Workers,
		MaxRetries:        cfg.Tasks.MaxRetries,
		RetryDelay:        cfg.Tasks.RetryDelay,
		ReleaseAfter:      cfg.Tasks.ReleaseAfter,
		CleanupInterval:   cfg.Tasks.CleanupInterval,
		RetentionDuration: cfg.Tasks.RetentionDuration,
	})
	if err != nil {
		// Persistence still works without the outbox; mirror failures
		// just degrade to log-only.
		log.Printf("outbox unavailable, mirror failures will not be retried: %v", err)
		outbox = nil
	} else {
		outbox.Register(tasks.NewMirrorQueue(manager.Local()))
		manager.SetMirrorQueue(outbox)
	}

	app := &App{
		Persistence: services.NewPersistence(manager, w, cfg.Auth.BcryptCost),
		manager:     manager,
		worker:      w,
		outbox:      outbox,
	}

	if err := app.Persistence.Connect(); err != nil {
		app.Shutdown(context.Background())
		return nil, fmt.Errorf("no database available: %w", err)
	}
	log.Printf("Persistence ready, active backend: %s", app.Persistence.BackendName())

	if app.outbox != nil {
		ctx, cancel := context.WithCancel(context.Background())
		app.outboxCancel = cancel
		go app.outbox.Start(ctx)
	}

	app.scheduler = scheduler.NewSyncScheduler(app.Persistence, cfg.Sync)
	if err := app.scheduler.Start(); err != nil {
		log.Printf("scheduled reconciliation unavailable: %v", err)
	}

	return app, nil
}

// Shutdown tears the stack down in reverse order.
func (a *App) Shutdown(ctx context.Context) {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.outbox != nil {
		if a.outboxCancel != nil {
			a.outboxCancel()
		}
		a.outbox.Stop(ctx)
		a.outbox.Close()
	}
	_ = a.Persistence.Disconnect()
	a.worker.Stop(ctx)
}

// Run builds the stack and blocks until SIGINT/SIGTERM. In the full
// product the game loop sits where the signal wait is; for the
// persistence binary this keeps the outbox and scheduled reconciliation
// running.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting RetroArcade persistence v%s", version)

	app, err := Build(cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	app.Shutdown(ctx)
}
