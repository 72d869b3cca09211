package transaction

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestUnwindRunsInReverseOrder(t *testing.T) {
	s := NewStack(zerolog.Nop())

	var order []string
	s.Push("first", func() error {
		order = append(order, "first")
		return nil
	})
	s.Push("second", func() error {
		order = append(order, "second")
		return nil
	})
	assert.Equal(t, 2, s.Len())

	err := s.Unwind()
	assert.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, order)
	assert.Equal(t, 0, s.Len())
}

func TestCommitDiscardsUndos(t *testing.T) {
	s := NewStack(zerolog.Nop())

	ran := false
	s.Push("store copy", func() error {
		ran = true
		return nil
	})
	s.Commit()

	assert.NoError(t, s.Unwind())
	assert.False(t, ran)
}

func TestUnwindContinuesPastFailures(t *testing.T) {
	s := NewStack(zerolog.Nop())

	var order []string
	s.Push("first", func() error {
		order = append(order, "first")
		return nil
	})
	s.Push("second", func() error {
		order = append(order, "second")
		return errors.New("cannot undo")
	})

	err := s.Unwind()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "second")
	// The failing step does not stop the earlier one from unwinding.
	assert.Equal(t, []string{"second", "first"}, order)
}

func TestUnwindEmptyStack(t *testing.T) {
	s := NewStack(zerolog.Nop())
	assert.NoError(t, s.Unwind())
}
