package schedule

import (
	"sort"
	"sync"
)

// RunState tracks which jobs are executing, keyed by description
type RunState struct {
	mu      sync.Mutex
	running map[string]bool
}

// NewRunState creates an empty run state
func NewRunState() *RunState {
	return &RunState{running: make(map[string]bool)}
}

// TryStart marks description as running. It returns false if it already was.
func (r *RunState) TryStart(description string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running[description] {
		return false
	}
	r.running[description] = true
	return true
}

// Finish marks description as idle
func (r *RunState) Finish(description string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.running, description)
}

// IsRunning reports whether description is executing
func (r *RunState) IsRunning(description string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running[description]
}

// Running lists the executing jobs in name order
func (r *RunState) Running() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.running))
	for name := range r.running {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
