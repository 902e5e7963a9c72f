package governor

import (
	"sync"
	"sync/atomic"

	"codeberg.org/mutker/cpufreqctl/internal/cpufreq"
)

// State is the frequency ceiling currently in force. Reads never block.
// Writers must hold a Lease, and a Lease is only handed out if nobody else
// holds one.
type State struct {
	mu      sync.Mutex
	current atomic.Uint64
	bounds  cpufreq.Bounds
}

// NewState starts at the top of bounds.
func NewState(bounds cpufreq.Bounds) *State {
	s := &State{bounds: bounds}
	s.current.Store(bounds.Max)

	return s
}

// Current returns the ceiling without waiting for a pending adjustment.
func (s *State) Current() cpufreq.Frequency {
	return s.current.Load()
}

// Bounds returns the hardware range the ceiling is confined to.
func (s *State) Bounds() cpufreq.Bounds {
	return s.bounds
}

// TryAcquire grants exclusive write access, or reports false at once if
// another Lease is outstanding.
func (s *State) TryAcquire() (*Lease, bool) {
	if !s.mu.TryLock() {
		return nil, false
	}

	return &Lease{state: s}, true
}

// Lease is exclusive write access to a State.
type Lease struct {
	state    *State
	released atomic.Bool
}

// Update replaces the ceiling with fn(current), clamped to the bounds, and
// returns the stored value.
func (l *Lease) Update(fn func(current cpufreq.Frequency) cpufreq.Frequency) cpufreq.Frequency {
	if l.released.Load() {
		panic("governor: update through released lease")
	}

	next := l.state.bounds.Clamp(fn(l.state.current.Load()))
	l.state.current.Store(next)

	return next
}

// Release gives up write access. Further calls are no-ops.
func (l *Lease) Release() {
	if l.released.CompareAndSwap(false, true) {
		l.state.mu.Unlock()
	}
}
