// Package scheduler manages the periodic reconciliation pass between the
// local and remote stores.
package scheduler

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Alfin0226/RetroArcade/internal/config"
)

// SyncRunner performs one reconciliation pass.
type SyncRunner interface {
	SyncDatabases() error
}

// SyncScheduler manages periodic database reconciliation
type SyncScheduler struct {
	runner SyncRunner
	cfg    config.Sync

	cron    *cron.Cron
	entryID cron.EntryID

	mu        sync.RWMutex
	isRunning bool
	syncing   bool
	lastRun   time.Time
	lastErr   error
}

// NewSyncScheduler creates a new scheduler instance
func NewSyncScheduler(runner SyncRunner, cfg config.Sync) *SyncScheduler {
	return &SyncScheduler{
		runner: runner,
		cfg:    cfg,
		cron:   cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler if scheduled reconciliation is enabled
func (s *SyncScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.cfg.Enabled {
		log.Printf("Sync scheduler: disabled")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.cfg.Schedule, s.runSync)
	if err != nil {
		return fmt.Errorf("invalid sync schedule '%s': %w", s.cfg.Schedule, err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true
	log.Printf("Sync scheduler: started with schedule '%s'", s.cfg.Schedule)
	return nil
}

// Stop halts the scheduler and waits for an in-flight pass to finish
func (s *SyncScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	log.Printf("Sync scheduler: stopped")
}

// IsRunning returns whether the scheduler is active
func (s *SyncScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// LastRun returns the completion time and result of the most recent pass.
// The zero time means no pass has completed yet.
func (s *SyncScheduler) LastRun() (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun, s.lastErr
}

// RunNow triggers one reconciliation pass immediately, outside the
// schedule. Used by the sync subcommand.
func (s *SyncScheduler) RunNow() error {
	s.runSync()
	_, err := s.LastRun()
	return err
}

// runSync executes one pass. A pass that is still running when the next
// tick fires makes the tick a no-op rather than stacking passes.
func (s *SyncScheduler) runSync() {
	s.mu.Lock()
	if s.syncing {
		s.mu.Unlock()
		log.Printf("Sync scheduler: previous pass still running, skipping")
		return
	}
	s.syncing = true
	s.mu.Unlock()

	start := time.Now()
	err := s.runner.SyncDatabases()

	s.mu.Lock()
	s.syncing = false
	s.lastRun = time.Now()
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		log.Printf("Sync scheduler: pass failed after %v: %v", time.Since(start), err)
		return
	}
	log.Printf("Sync scheduler: pass completed in %v", time.Since(start))
}
