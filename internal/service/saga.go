package service

import (
	"context"
	"errors"
	"fmt"
)

// compensation undoes one completed step
type compensation struct {
	step string
	undo func(ctx context.Context) error
}

// saga records compensations for the steps of one checkout call and runs
// them newest first when the call has to be abandoned.
type saga struct {
	compensations []compensation
}

func (s *saga) record(step string, undo func(ctx context.Context) error) {
	s.compensations = append(s.compensations, compensation{step: step, undo: undo})
}

// size returns the number of compensations still pending
func (s *saga) size() int {
	return len(s.compensations)
}

// forget drops all compensations once the steps are final
func (s *saga) forget() {
	s.compensations = nil
}

// compensate runs every recorded compensation in reverse order. It keeps
// going after a failure and returns all failures joined.
func (s *saga) compensate(ctx context.Context, onFailure func(step string, err error)) error {
	var errs []error
	for i := len(s.compensations) - 1; i >= 0; i-- {
		c := s.compensations[i]
		if err := c.undo(ctx); err != nil {
			if onFailure != nil {
				onFailure(c.step, err)
			}
			errs = append(errs, fmt.Errorf("%s: %w", c.step, err))
		}
	}
	s.compensations = nil
	return errors.Join(errs...)
}
