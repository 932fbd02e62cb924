// Package killstate implements the probabilistic kill-rate control loop:
// a drop rate in [0,1], adjusted at most once per second based on whether
// the system is currently overloaded.
package killstate

import (
	"sync"
	"time"
)

const (
	// StepUp is how far the kill rate closes the gap to 1.0 per update
	// while overloaded: kill_rate += StepUp*(1-kill_rate).
	StepUp = 0.1
	// StepDown is the fixed amount the kill rate decays per update while
	// not overloaded.
	StepDown = 0.2
	// UpdateInterval bounds how often the kill rate is allowed to change.
	UpdateInterval = time.Second

	// recentPastOffset seeds last_update/last_overload_log far enough in
	// the past that a node that starts already under load doesn't have to
	// wait a full UpdateInterval before its first adjustment.
	recentPastOffset = 60 * time.Second
)

// LogEvent describes what, if anything, should be logged about a kill-rate
// transition. The zero value is EventSkip.
type LogEvent int

const (
	EventSkip LogEvent = iota
	EventStart
	EventOngoing
	EventSettling
	EventResolved
)

// State holds the kill rate and the bookkeeping needed to throttle logging
// and report overload duration. Guarded by an RWMutex; State is typically
// embedded in the load manager behind that lock, but also safe to use
// standalone.
type State struct {
	mu              sync.RWMutex
	killRate        float64
	lastUpdate      time.Time
	overloadStart   time.Time
	overloaded      bool // overloadStart is meaningful only when overloaded is true
	lastOverloadLog time.Time
}

// New creates a State with kill_rate=0 and timestamps seeded far enough in
// the past that an already-overloaded node doesn't wait a full
// UpdateInterval for its first adjustment. Clamped to "now" if the monotonic
// clock hasn't been running that long (spec.md §9, clock source notes).
func New() *State {
	now := time.Now()
	before := now.Add(-recentPastOffset)
	if before.After(now) {
		before = now
	}
	return &State{
		lastUpdate:      before,
		lastOverloadLog: before,
	}
}

// Snapshot returns the current kill rate and last-update instant under the
// read lock, for use in decide()'s "read (kill_rate, last_update)" step.
func (s *State) Snapshot() (killRate float64, lastUpdate time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.killRate, s.lastUpdate
}

// Update applies the control loop's step function if UpdateInterval has
// elapsed since lastUpdate, committing the new rate under the write lock and
// returning the (possibly unchanged) kill rate, the log event to render, and
// (for Ongoing/Settling/Resolved) how long the overload episode has lasted.
//
// Precondition (spec.md §4.5): overloaded || killRate > 0. Violating it is a
// caller bug, not a recoverable input, so it panics rather than silently
// doing nothing — consistent with spec.md §7's "invariant breach: fatal".
func (s *State) Update(killRate float64, lastUpdate time.Time, overloaded bool) (float64, LogEvent, time.Duration) {
	if !overloaded && killRate <= 0 {
		panic("killstate: Update called with !overloaded && killRate <= 0")
	}

	now := time.Now()
	if now.Sub(lastUpdate) <= UpdateInterval {
		return killRate, EventSkip, 0
	}

	if overloaded {
		killRate = min(1, killRate+StepUp*(1-killRate))
	} else {
		killRate = max(0, killRate-StepDown)
	}

	s.mu.Lock()
	s.killRate = killRate
	s.lastUpdate = now
	event, elapsed := s.logEvent(now, overloaded)
	s.mu.Unlock()

	return killRate, event, elapsed
}

// logEvent computes which transition to log, and the overload episode's
// elapsed duration where relevant, per spec.md §4.5's table. Must be called
// with s.mu held.
func (s *State) logEvent(now time.Time, overloaded bool) (LogEvent, time.Duration) {
	if s.overloaded {
		elapsed := now.Sub(s.overloadStart)
		if !overloaded {
			if s.killRate == 0 {
				s.overloaded = false
				s.overloadStart = time.Time{}
				return EventResolved, elapsed
			}
			return EventSettling, elapsed
		}
		if now.Sub(s.lastOverloadLog) > 30*time.Second {
			s.lastOverloadLog = now
			return EventOngoing, elapsed
		}
		return EventSkip, 0
	}

	if overloaded {
		s.overloaded = true
		s.overloadStart = now
		s.lastOverloadLog = now
		return EventStart, 0
	}
	return EventSkip, 0
}
