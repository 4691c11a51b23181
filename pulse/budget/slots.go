// Package budget bounds how many job bodies may run at the same time.
package budget

import (
	"fmt"
	"sync"

	"github.com/vrooli/jobs/errors"
)

// Slots is a counter of job bodies currently running, capped at max.
// It never blocks: a caller that finds the pool full is told so and is expected to skip.
type Slots struct {
	mu    sync.Mutex
	inUse int
	max   int
}

// NewSlots creates a pool with max slots
func NewSlots(max int) *Slots {
	return &Slots{max: max}
}

// Acquire takes one slot, or returns an error wrapping errors.ErrAtCapacity
func (s *Slots) Acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inUse >= s.max {
		err := errors.Wrapf(errors.ErrAtCapacity, "%d of %d job slots in use", s.inUse, s.max)
		err = errors.WithDetail(err, fmt.Sprintf("Slots in use: %d", s.inUse))
		err = errors.WithDetail(err, fmt.Sprintf("Max concurrent jobs: %d", s.max))
		return errors.WithHint(err, "raise scheduler.max_concurrent_jobs or spread job schedules apart")
	}

	s.inUse++
	return nil
}

// Release returns a slot taken by Acquire
func (s *Slots) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inUse > 0 {
		s.inUse--
	}
}

// InUse returns the number of slots currently taken
func (s *Slots) InUse() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inUse
}

// Max returns the pool size
func (s *Slots) Max() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.max
}

// SetMax resizes the pool. Shrinking below the slots in use does not stop
// running jobs; new acquisitions fail until enough of them release.
func (s *Slots) SetMax(max int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.max = max
}
