// Package worker runs all persistence work on one dedicated background
// goroutine so the game loop never blocks on I/O. The goroutine owns the
// database manager exclusively; callers submit a closure and block only
// on its result, with a bounded wait.
package worker

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrTimeout is returned to the caller when a submitted job does not
// complete within the bounded wait. The worker itself keeps running and
// the job still runs to completion; there is no mid-operation
// cancellation.
var ErrTimeout = errors.New("persistence worker timed out")

// ErrStopped is returned when the worker is not running.
var ErrStopped = errors.New("persistence worker not running")

// DefaultSubmitTimeout bounds a single foreground request into the worker.
const DefaultSubmitTimeout = 30 * time.Second

// Job is a unit of persistence work. Results travel back through
// variables captured by the closure.
type Job func(ctx context.Context) error

type submission struct {
	job  Job
	done chan error
}

// Worker serializes all database operations; concurrent submissions from
// the game layer queue up rather than interleave.
type Worker struct {
	jobs    chan submission
	timeout time.Duration

	mu      sync.Mutex
	started bool
	quit    chan struct{}
	stopped chan struct{}
}

func New(timeout time.Duration) *Worker {
	if timeout <= 0 {
		timeout = DefaultSubmitTimeout
	}
	return &Worker{
		jobs:    make(chan submission),
		timeout: timeout,
	}
}

// Start launches the worker goroutine. Safe to call twice.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true
	w.quit = make(chan struct{})
	w.stopped = make(chan struct{})
	go w.run(w.quit, w.stopped)
}

func (w *Worker) run(quit <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	for {
		select {
		case sub := <-w.jobs:
			sub.done <- sub.job(context.Background())
		case <-quit:
			return
		}
	}
}

// Submit hands a job to the worker and blocks until it completes or the
// bounded wait elapses. A timeout is fatal to the caller, not to the
// worker: the job still finishes, its result is discarded.
func (w *Worker) Submit(job Job) error {
	w.mu.Lock()
	running := w.started
	quit := w.quit
	w.mu.Unlock()
	if !running {
		return ErrStopped
	}

	timer := time.NewTimer(w.timeout)
	defer timer.Stop()

	sub := submission{job: job, done: make(chan error, 1)}
	select {
	case w.jobs <- sub:
	case <-quit:
		return ErrStopped
	case <-timer.C:
		return ErrTimeout
	}

	select {
	case err := <-sub.done:
		return err
	case <-timer.C:
		log.Printf("persistence job exceeded %v; result discarded", w.timeout)
		return ErrTimeout
	}
}

// Stop shuts the worker down after the in-flight job finishes, waiting
// up to the context deadline.
func (w *Worker) Stop(ctx context.Context) bool {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return true
	}
	w.started = false
	close(w.quit)
	stopped := w.stopped
	w.mu.Unlock()

	select {
	case <-stopped:
		return true
	case <-ctx.Done():
		return false
	}
}
