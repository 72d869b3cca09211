// Package task provides the background-work primitive every long-running
// engine operation runs under: a status/progress handle returned to the
// caller immediately, a worker goroutine doing the work, cooperative
// cancellation observed at file boundaries, and a completion outcome that
// resolves exactly once.
package task

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a task.
type Status int

const (
	StatusQueued Status = iota
	StatusRunning
	StatusPaused
	StatusSucceeded
	StatusCancelled
	StatusFailed
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusSucceeded:
		return "succeeded"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusCancelled || s == StatusFailed
}

// Outcome is the single-resolution completion record of a task or set.
type Outcome struct {
	Success bool
	Err     error
	// Value is the operation's typed return value, e.g. the deleted mod a
	// registry needs for cleanup. Nil when the operation has none.
	Value any
}

// Func is the body of a task. It must return promptly after ctx is
// cancelled, finishing or abandoning whole file operations but never
// interrupting one mid-write. The returned value becomes Outcome.Value.
type Func func(ctx context.Context, t *Task) (any, error)

// Task is one unit of asynchronous work.
type Task struct {
	id   string
	name string
	run  Func

	mu       sync.Mutex
	status   Status
	message  string
	progress float64 // 0..1, or -1 when indeterminate

	cancel context.CancelFunc
	done   chan struct{}
	out    Outcome
}

// New creates a queued task. It does not start work.
func New(name string, run Func) *Task {
	return &Task{
		id:       uuid.NewString(),
		name:     name,
		run:      run,
		status:   StatusQueued,
		progress: -1,
		done:     make(chan struct{}),
	}
}

// ID returns the task's unique identifier.
func (t *Task) ID() string { return t.id }

// Name returns the human-readable operation name.
func (t *Task) Name() string { return t.name }

// Start launches the task on its own goroutine. Starting a task twice is a
// no-op.
func (t *Task) Start(ctx context.Context) {
	t.mu.Lock()
	if t.status != StatusQueued {
		t.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.status = StatusRunning
	t.mu.Unlock()

	go func() {
		defer cancel()
		value, err := t.run(runCtx, t)
		t.finish(runCtx, value, err)
	}()
}

// RunSync executes the task on the calling goroutine. Used by task sets to
// run members in order.
func (t *Task) RunSync(ctx context.Context) Outcome {
	t.mu.Lock()
	if t.status != StatusQueued {
		out := t.out
		t.mu.Unlock()
		return out
	}
	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.status = StatusRunning
	t.mu.Unlock()

	defer cancel()
	value, err := t.run(runCtx, t)
	t.finish(runCtx, value, err)
	return t.Outcome()
}

func (t *Task) finish(ctx context.Context, value any, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.Terminal() {
		return
	}

	switch {
	case err != nil && ctx.Err() != nil:
		t.status = StatusCancelled
		t.out = Outcome{Success: false, Err: err}
	case err != nil:
		t.status = StatusFailed
		t.out = Outcome{Success: false, Err: err}
	default:
		t.status = StatusSucceeded
		t.out = Outcome{Success: true, Value: value}
	}
	close(t.done)
}

// Cancel requests cooperative cancellation. A task that never started is
// cancelled immediately; a running task stops at its next boundary check.
func (t *Task) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.status {
	case StatusQueued:
		t.status = StatusCancelled
		t.out = Outcome{Success: false, Err: context.Canceled}
		close(t.done)
	case StatusRunning, StatusPaused:
		if t.cancel != nil {
			t.cancel()
		}
	}
}

// Status returns the current lifecycle state.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Progress returns the progress message and ratio (0..1, -1 when
// indeterminate).
func (t *Task) Progress() (string, float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.message, t.progress
}

// SetProgress is called by the running task body to report progress.
func (t *Task) SetProgress(message string, ratio float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.message = message
	t.progress = ratio
}

// Done returns a channel closed exactly once when the task reaches a
// terminal state.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the task completes or ctx expires.
func (t *Task) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-t.done:
		return t.Outcome(), nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Outcome returns the completion record. Zero value before completion.
func (t *Task) Outcome() Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.out
}
