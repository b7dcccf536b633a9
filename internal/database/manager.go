package database

import (
	"context"
	"log"

	"github.com/Alfin0226/RetroArcade/internal/config"
)

// Mode describes which backends the manager is currently operating on.
type Mode string

const (
	// ModeDisconnected means no backend is usable; every operation fails
	// with ErrNotConnected.
	ModeDisconnected Mode = "disconnected"
	// ModeLocalOnly means only the embedded SQLite store is available.
	ModeLocalOnly Mode = "local-only"
	// ModeDual means both stores are connected; the remote is primary and
	// writes are mirrored to the local store.
	ModeDual Mode = "dual"
)

// FailedMirror describes a local mirror write that did not go through.
// It is handed to the outbox so the logical operation can be replayed.
type FailedMirror struct {
	Op     string `json:"op"` // "score" or "exec"
	UserID int64  `json:"user_id,omitempty"`
	Game   string `json:"game,omitempty"`
	Score  int    `json:"score,omitempty"`
	Query  string `json:"query,omitempty"`
	Args   []any  `json:"args,omitempty"`
}

// MirrorQueue accepts failed mirror writes for durable retry. The zero
// configuration (no queue) degrades to log-only, matching the historical
// fire-and-forget behavior.
type MirrorQueue interface {
	EnqueueMirror(ctx context.Context, f FailedMirror) error
}

// Manager composes the embedded local store and the optional remote store.
// It owns the decision of which backend is active for reads, mirrors
// writes to both in dual mode, and runs the reconciliation protocol.
//
// The manager is intended to be owned by a single background worker; it
// performs no internal locking.
type Manager struct {
	local  Backend
	remote Backend
	active Backend

	usingRemote bool
	queue       MirrorQueue
}

func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		local:  NewSQLiteBackend(cfg.Local.Path),
		remote: NewPostgresBackend(cfg.Database),
	}
}

// NewManagerWithBackends wires explicit backends. Used by tests and
// tooling that substitute stores; NewManager is the production path.
func NewManagerWithBackends(local, remote Backend) *Manager {
	return &Manager{local: local, remote: remote}
}

// SetMirrorQueue installs the durable outbox for failed mirror writes.
func (m *Manager) SetMirrorQueue(q MirrorQueue) { m.queue = q }

// Connect brings up the backends:
//  1. Always connect and initialize SQLite first; it never depends on the
//     network.
//  2. Attempt PostgreSQL when configured. On success it becomes the
//     active backend; on failure the manager falls back to local-only.
//  3. With both connected, run a best-effort reconciliation pass.
//
// Only both backends failing is an error; everything else is a mode.
func (m *Manager) Connect(ctx context.Context) error {
	if m.local.Connect(ctx) {
		if err := m.local.InitSchema(ctx); err != nil {
			log.Printf("SQLite schema init failed: %v", err)
			m.local.Disconnect()
		} else {
			m.active = m.local
			log.Printf("Connected to %s", m.local.Name())
		}
	}

	if m.remote.Connect(ctx) {
		if err := m.remote.InitSchema(ctx); err != nil {
			log.Printf("PostgreSQL schema init failed, staying local-only: %v", err)
			m.remote.Disconnect()
		} else {
			m.active = m.remote
			m.usingRemote = true
			log.Printf("Connected to %s", m.remote.Name())
		}
	}

	if m.active == nil {
		return ErrNotConnected
	}

	if m.Mode() == ModeDual {
		m.trySyncOnConnect(ctx)
	}
	return nil
}

// trySyncOnConnect runs the startup reconciliation pass. Failures are
// logged and skipped; they never prevent the manager from reporting
// itself connected.
func (m *Manager) trySyncOnConnect(ctx context.Context) {
	if err := m.SyncDatabases(ctx); err != nil {
		log.Printf("startup reconciliation skipped: %v", err)
	}
}

func (m *Manager) Disconnect() {
	m.remote.Disconnect()
	m.local.Disconnect()
	m.active = nil
	m.usingRemote = false
	log.Printf("Database disconnected")
}

func (m *Manager) IsConnected() bool {
	return m.active != nil && m.active.IsConnected()
}

// BackendName names the active backend for diagnostics.
func (m *Manager) BackendName() string {
	if m.active == nil {
		return "Not connected"
	}
	return m.active.Name()
}

func (m *Manager) Mode() Mode {
	switch {
	case m.active == nil:
		return ModeDisconnected
	case m.usingRemote && m.local.IsConnected():
		return ModeDual
	default:
		return ModeLocalOnly
	}
}

// Local exposes the embedded backend for mirror replay and tooling.
func (m *Manager) Local() Backend { return m.local }

// Remote exposes the remote backend for tooling.
func (m *Manager) Remote() Backend { return m.remote }

// Active returns the backend reads go to.
func (m *Manager) Active() Backend { return m.active }

// UsingRemote reports whether the remote backend is primary.
func (m *Manager) UsingRemote() bool { return m.usingRemote }

func (m *Manager) Execute(ctx context.Context, query string, args ...any) error {
	if !m.IsConnected() {
		return ErrNotConnected
	}
	return m.active.Execute(ctx, query, args...)
}

func (m *Manager) Fetch(ctx context.Context, query string, args ...any) ([]Row, error) {
	if !m.IsConnected() {
		return nil, ErrNotConnected
	}
	return m.active.Fetch(ctx, query, args...)
}

func (m *Manager) Fetchrow(ctx context.Context, query string, args ...any) (Row, error) {
	if !m.IsConnected() {
		return nil, ErrNotConnected
	}
	return m.active.Fetchrow(ctx, query, args...)
}

func (m *Manager) Fetchval(ctx context.Context, query string, args ...any) (any, error) {
	if !m.IsConnected() {
		return nil, ErrNotConnected
	}
	return m.active.Fetchval(ctx, query, args...)
}

// ExecuteMirrored applies a mutating statement to the active backend and,
// in dual mode, best-effort replays it on the local store. A mirror
// failure never fails the operation: the remote write already succeeded
// and remains the source of truth for reads.
func (m *Manager) ExecuteMirrored(ctx context.Context, query string, args ...any) error {
	if err := m.Execute(ctx, query, args...); err != nil {
		return err
	}
	if m.Mode() == ModeDual {
		if err := m.local.Execute(ctx, query, args...); err != nil {
			m.ReportMirrorFailure(ctx, FailedMirror{Op: "exec", Query: query, Args: args}, err)
		}
	}
	return nil
}

// ReportMirrorFailure logs a failed local mirror and hands it to the
// outbox when one is installed.
func (m *Manager) ReportMirrorFailure(ctx context.Context, f FailedMirror, cause error) {
	log.Printf("local mirror failed (%s): %v", f.Op, cause)
	if m.queue == nil {
		return
	}
	if err := m.queue.EnqueueMirror(ctx, f); err != nil {
		log.Printf("outbox enqueue failed: %v", err)
	}
}
