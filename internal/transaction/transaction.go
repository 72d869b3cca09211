// Package transaction provides a LIFO undo stack for multi-step file
// operations: each completed step registers how to reverse itself, and a
// failure later in the sequence unwinds the finished steps in reverse
// order. Committing drops the stack.
package transaction

import (
	"fmt"

	"github.com/rs/zerolog"
)

// UndoFunc reverses one completed step.
type UndoFunc func() error

type step struct {
	name string
	undo UndoFunc
}

// Stack collects undo steps for one logical operation. Not safe for
// concurrent use; an operation runs on one worker.
type Stack struct {
	steps  []step
	logger zerolog.Logger
}

// NewStack creates an empty undo stack.
func NewStack(logger zerolog.Logger) *Stack {
	return &Stack{logger: logger}
}

// Push registers the undo for a step that just completed.
func (s *Stack) Push(name string, undo UndoFunc) {
	s.steps = append(s.steps, step{name: name, undo: undo})
}

// Len returns the number of registered steps.
func (s *Stack) Len() int { return len(s.steps) }

// Commit confirms the operation; registered undos are discarded.
func (s *Stack) Commit() {
	s.steps = nil
}

// Unwind reverses every registered step, newest first. Steps that fail to
// reverse are reported together; the unwind continues past them.
func (s *Stack) Unwind() error {
	if len(s.steps) == 0 {
		return nil
	}
	s.logger.Info().Int("steps", len(s.steps)).Msg("unwinding partial operation")

	var errs []error
	for i := len(s.steps) - 1; i >= 0; i-- {
		st := s.steps[i]
		s.logger.Debug().Str("step", st.name).Msg("undoing")
		if err := st.undo(); err != nil {
			errs = append(errs, fmt.Errorf("undo %q: %w", st.name, err))
			s.logger.Error().Err(err).Str("step", st.name).Msg("undo failed")
		}
	}
	s.steps = nil

	if len(errs) > 0 {
		return fmt.Errorf("unwind completed with errors: %v", errs)
	}
	return nil
}
