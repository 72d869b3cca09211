package task

import (
	"context"
	"fmt"
	"sync"
)

// Set composes tasks executed strictly in order on one worker. The set
// succeeds only if every member succeeds; the first failing member stops
// the run, remaining members are cancelled, and that member's error becomes
// the set's error. On success the set's value is the last member's value.
type Set struct {
	id    string
	name  string
	tasks []*Task

	mu      sync.Mutex
	status  Status
	current int
	cancel  context.CancelFunc
	done    chan struct{}
	out     Outcome
}

// NewSet creates a queued set from tasks, which run in the given order.
func NewSet(name string, tasks ...*Task) *Set {
	return &Set{
		id:     fmt.Sprintf("set-%s", name),
		name:   name,
		tasks:  tasks,
		status: StatusQueued,
		done:   make(chan struct{}),
	}
}

// Name returns the set's operation name.
func (s *Set) Name() string { return s.name }

// Tasks returns the member tasks in execution order.
func (s *Set) Tasks() []*Task { return s.tasks }

// Start launches the set on its own goroutine.
func (s *Set) Start(ctx context.Context) {
	s.mu.Lock()
	if s.status != StatusQueued {
		s.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.status = StatusRunning
	s.mu.Unlock()

	go func() {
		defer cancel()
		s.runMembers(runCtx)
	}()
}

func (s *Set) runMembers(ctx context.Context) {
	var last Outcome
	for i, member := range s.tasks {
		s.mu.Lock()
		s.current = i
		s.mu.Unlock()

		if ctx.Err() != nil {
			s.cancelRemaining(i)
			s.finish(Outcome{Success: false, Err: ctx.Err()}, StatusCancelled)
			return
		}

		out := member.RunSync(ctx)
		if !out.Success {
			// Fail fast: members after the failing one never run.
			s.cancelRemaining(i + 1)
			status := StatusFailed
			if member.Status() == StatusCancelled {
				status = StatusCancelled
			}
			s.finish(Outcome{
				Success: false,
				Err:     fmt.Errorf("task %q failed: %w", member.Name(), out.Err),
			}, status)
			return
		}
		last = out
	}

	s.finish(Outcome{Success: true, Value: last.Value}, StatusSucceeded)
}

func (s *Set) cancelRemaining(from int) {
	for _, t := range s.tasks[from:] {
		t.Cancel()
	}
}

func (s *Set) finish(out Outcome, status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() {
		return
	}
	s.status = status
	s.out = out
	close(s.done)
}

// Cancel requests cooperative cancellation of the running member and
// prevents the rest from starting.
func (s *Set) Cancel() {
	s.mu.Lock()
	if s.status == StatusQueued {
		s.status = StatusCancelled
		s.out = Outcome{Success: false, Err: context.Canceled}
		close(s.done)
		s.mu.Unlock()
		s.cancelRemaining(0)
		return
	}
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Status returns the set's aggregate lifecycle state.
func (s *Set) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Progress reports the running member's progress, prefixed with its
// position in the set.
func (s *Set) Progress() (string, float64) {
	s.mu.Lock()
	i := s.current
	s.mu.Unlock()
	if i >= len(s.tasks) {
		return "", -1
	}
	msg, ratio := s.tasks[i].Progress()
	return fmt.Sprintf("[%d/%d] %s", i+1, len(s.tasks), msg), ratio
}

// Done returns a channel closed exactly once when every member has reached
// a terminal state.
func (s *Set) Done() <-chan struct{} { return s.done }

// Wait blocks until the set completes or ctx expires.
func (s *Set) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-s.done:
		return s.Outcome(), nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Outcome returns the aggregate completion record.
func (s *Set) Outcome() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out
}
