package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetRunsMembersInOrder(t *testing.T) {
	var order []string
	mk := func(name string) *Task {
		return New(name, func(context.Context, *Task) (any, error) {
			order = append(order, name)
			return name, nil
		})
	}

	set := NewSet("delete mod", mk("deactivate"), mk("remove"))
	set.Start(context.Background())
	out, err := set.Wait(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"deactivate", "remove"}, order)
	assert.Equal(t, StatusSucceeded, set.Status())
	assert.True(t, out.Success)
	// The set's value is the last member's value.
	assert.Equal(t, "remove", out.Value)
}

func TestSetFailsFast(t *testing.T) {
	boom := errors.New("restore failed")
	ran := false

	failing := New("deactivate", func(context.Context, *Task) (any, error) {
		return nil, boom
	})
	never := New("remove", func(context.Context, *Task) (any, error) {
		ran = true
		return nil, nil
	})

	set := NewSet("delete mod", failing, never)
	set.Start(context.Background())
	out, err := set.Wait(context.Background())
	require.NoError(t, err)

	assert.False(t, ran)
	assert.Equal(t, StatusFailed, set.Status())
	assert.False(t, out.Success)
	assert.ErrorIs(t, out.Err, boom)
	assert.Contains(t, out.Err.Error(), `task "deactivate" failed`)

	// The skipped member still reaches a terminal state.
	assert.Equal(t, StatusCancelled, never.Status())
}

func TestSetCancelStopsRemainingMembers(t *testing.T) {
	started := make(chan struct{})
	blocking := New("deactivate", func(ctx context.Context, _ *Task) (any, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	never := New("remove", func(context.Context, *Task) (any, error) {
		t.Error("member after cancellation must not run")
		return nil, nil
	})

	set := NewSet("delete mod", blocking, never)
	set.Start(context.Background())
	<-started
	set.Cancel()

	out, err := set.Wait(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, set.Status())
	assert.False(t, out.Success)
	assert.Equal(t, StatusCancelled, blocking.Status())
	assert.Equal(t, StatusCancelled, never.Status())
}

func TestSetCancelBeforeStart(t *testing.T) {
	member := New("remove", func(context.Context, *Task) (any, error) {
		t.Error("member must not run")
		return nil, nil
	})

	set := NewSet("delete mod", member)
	set.Cancel()

	select {
	case <-set.Done():
	case <-time.After(time.Second):
		t.Fatal("set did not resolve")
	}
	assert.Equal(t, StatusCancelled, set.Status())
	assert.Equal(t, StatusCancelled, member.Status())
}

func TestSetProgressPrefixesPosition(t *testing.T) {
	release := make(chan struct{})
	first := New("deactivate", func(_ context.Context, tk *Task) (any, error) {
		tk.SetProgress("restoring files", 0.25)
		<-release
		return nil, nil
	})
	second := New("remove", func(context.Context, *Task) (any, error) {
		return nil, nil
	})

	set := NewSet("delete mod", first, second)
	set.Start(context.Background())

	require.Eventually(t, func() bool {
		msg, _ := set.Progress()
		return msg == "[1/2] restoring files"
	}, 2*time.Second, 10*time.Millisecond)

	close(release)
	_, err := set.Wait(context.Background())
	require.NoError(t, err)
}
