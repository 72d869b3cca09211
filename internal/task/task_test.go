package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("task did not complete in time")
	}
}

func TestTaskSucceeds(t *testing.T) {
	tk := New("install", func(_ context.Context, tk *Task) (any, error) {
		tk.SetProgress("copying", 0.5)
		return "result", nil
	})

	assert.Equal(t, StatusQueued, tk.Status())
	tk.Start(context.Background())
	waitDone(t, tk.Done())

	assert.Equal(t, StatusSucceeded, tk.Status())
	out := tk.Outcome()
	assert.True(t, out.Success)
	assert.NoError(t, out.Err)
	assert.Equal(t, "result", out.Value)
}

func TestTaskFails(t *testing.T) {
	boom := errors.New("disk full")
	tk := New("install", func(context.Context, *Task) (any, error) {
		return nil, boom
	})

	tk.Start(context.Background())
	out, err := tk.Wait(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, tk.Status())
	assert.False(t, out.Success)
	assert.ErrorIs(t, out.Err, boom)
}

func TestTaskCancelBeforeStart(t *testing.T) {
	tk := New("install", func(context.Context, *Task) (any, error) {
		t.Fatal("body must not run")
		return nil, nil
	})

	tk.Cancel()
	waitDone(t, tk.Done())
	assert.Equal(t, StatusCancelled, tk.Status())
	assert.ErrorIs(t, tk.Outcome().Err, context.Canceled)

	// Starting after cancellation is a no-op.
	tk.Start(context.Background())
	assert.Equal(t, StatusCancelled, tk.Status())
}

func TestTaskCooperativeCancel(t *testing.T) {
	started := make(chan struct{})
	tk := New("install", func(ctx context.Context, _ *Task) (any, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})

	tk.Start(context.Background())
	<-started
	tk.Cancel()
	waitDone(t, tk.Done())

	assert.Equal(t, StatusCancelled, tk.Status())
	assert.False(t, tk.Outcome().Success)
}

func TestTaskDoneFiresOnce(t *testing.T) {
	tk := New("install", func(context.Context, *Task) (any, error) {
		return nil, nil
	})
	tk.Start(context.Background())
	waitDone(t, tk.Done())

	// Cancel after completion must not re-resolve the outcome.
	tk.Cancel()
	assert.Equal(t, StatusSucceeded, tk.Status())
	assert.True(t, tk.Outcome().Success)
}

func TestTaskProgress(t *testing.T) {
	tk := New("install", func(context.Context, *Task) (any, error) {
		return nil, nil
	})

	msg, ratio := tk.Progress()
	assert.Empty(t, msg)
	assert.Equal(t, -1.0, ratio)

	tk.SetProgress("file 3 of 10", 0.3)
	msg, ratio = tk.Progress()
	assert.Equal(t, "file 3 of 10", msg)
	assert.InDelta(t, 0.3, ratio, 1e-9)
}

func TestWaitHonorsContext(t *testing.T) {
	tk := New("install", func(ctx context.Context, _ *Task) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	tk.Start(context.Background())
	defer tk.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := tk.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
