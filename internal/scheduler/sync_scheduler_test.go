package scheduler

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alfin0226/RetroArcade/internal/config"
)

type fakeRunner struct {
	mu      sync.Mutex
	calls   int
	err     error
	block   chan struct{}
	started sync.Once
	running chan struct{}
}

func (f *fakeRunner) SyncDatabases() error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.running != nil {
		f.started.Do(func() { close(f.running) })
	}
	if f.block != nil {
		<-f.block
	}
	return f.err
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestSyncScheduler_DisabledIsNoop(t *testing.T) {
	s := NewSyncScheduler(&fakeRunner{}, config.Sync{Enabled: false, Schedule: "* * * * *"})

	require.NoError(t, s.Start())
	assert.False(t, s.IsRunning())
	s.Stop()
}

func TestSyncScheduler_InvalidSchedule(t *testing.T) {
	s := NewSyncScheduler(&fakeRunner{}, config.Sync{Enabled: true, Schedule: "never"})

	err := s.Start()
	assert.Error(t, err)
	assert.False(t, s.IsRunning())
}

func TestSyncScheduler_StartAndStop(t *testing.T) {
	s := NewSyncScheduler(&fakeRunner{}, config.Sync{Enabled: true, Schedule: "* * * * *"})

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	require.NoError(t, s.Start(), "second start is a no-op")

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()
}

func TestSyncScheduler_RunNow(t *testing.T) {
	runner := &fakeRunner{}
	s := NewSyncScheduler(runner, config.Sync{Enabled: true, Schedule: "* * * * *"})

	require.NoError(t, s.RunNow())
	assert.Equal(t, 1, runner.callCount())

	last, err := s.LastRun()
	require.NoError(t, err)
	assert.False(t, last.IsZero())
}

func TestSyncScheduler_RunNowReportsFailure(t *testing.T) {
	boom := errors.New("remote unreachable")
	s := NewSyncScheduler(&fakeRunner{err: boom}, config.Sync{})

	assert.ErrorIs(t, s.RunNow(), boom)
	_, err := s.LastRun()
	assert.ErrorIs(t, err, boom)
}

func TestSyncScheduler_OverlappingPassSkipped(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{}), running: make(chan struct{})}
	s := NewSyncScheduler(runner, config.Sync{})

	go s.runSync()
	<-runner.running

	// A tick firing while the pass above is in flight must not stack.
	s.runSync()
	assert.Equal(t, 1, runner.callCount())

	close(runner.block)
}
