// Package stopwatch attributes wall time to named, nested sections and
// publishes each section's cumulative time to a labeled counter.
package stopwatch

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mixaill76/adaptive-load-manager/internal/monitoring"
)

// unknownSection is the base section pushed at construction so the section
// stack is never empty.
const unknownSection = "unknown"

// Stopwatch is a cloneable handle onto a shared, mutex-guarded stack of
// named sections. The zero value is not usable; construct with New.
type Stopwatch struct {
	disabled *atomic.Bool
	inner    *inner
}

type inner struct {
	mu           sync.Mutex
	logger       *slog.Logger
	counter      monitoring.CounterVec
	sectionStack []string
	lastReset    time.Time
}

// New creates a Stopwatch that publishes cumulative per-section seconds to
// counter (labeled by "section" as its sole varying label — callers that
// need extra fixed labels should pre-bind them, e.g. via
// counter.WithLabelValues(deploymentID, "") is not supported here; instead
// wrap counter so WithLabelValues takes only the section name).
func New(logger *slog.Logger, counter monitoring.CounterVec) *Stopwatch {
	in := &inner{
		logger:       logger,
		counter:      counter,
		sectionStack: []string{unknownSection},
		lastReset:    time.Now(),
	}
	return &Stopwatch{disabled: &atomic.Bool{}, inner: in}
}

// Section is a scoped handle returned by StartSection. Callers must call
// Close exactly once, typically via defer. Closing it more than once is a
// caller bug and falls through to endSection's normal mismatched/empty-stack
// handling rather than being specially guarded against.
type Section struct {
	id        string
	stopwatch *Stopwatch
}

// StartSection pushes a new section onto the stack, attributing elapsed time
// since the last reset to the section that was previously on top.
func (s *Stopwatch) StartSection(id string) *Section {
	if !s.disabled.Load() {
		s.inner.startSection(id)
	}
	return &Section{id: id, stopwatch: s}
}

// Close ends the section, attributing elapsed time to it and popping the
// stack.
func (sec *Section) Close() {
	sec.stopwatch.endSection(sec.id)
}

// Disable is a one-way switch after which StartSection/Close become no-ops.
func (s *Stopwatch) Disable() {
	s.disabled.Store(true)
}

func (s *Stopwatch) endSection(id string) {
	if !s.disabled.Load() {
		s.inner.endSection(id)
	}
}

func (in *inner) startSection(id string) {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.attributeElapsed()
	in.sectionStack = append(in.sectionStack, id)
}

func (in *inner) endSection(id string) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if len(in.sectionStack) == 0 {
		in.logger.Error("stopwatch end_section with no current section", "received", id)
		return
	}

	top := in.sectionStack[len(in.sectionStack)-1]
	if top != id {
		in.logger.Error("stopwatch end_section mismatched section",
			"current", top, "received", id)
		return
	}

	in.attributeElapsed()
	in.sectionStack = in.sectionStack[:len(in.sectionStack)-1]
}

// attributeElapsed must be called with in.mu held. It adds the time since
// the last reset to the counter for the current top of stack, then resets
// the timer. Must tolerate an empty stack (never happens in steady state
// since "unknown" is pushed at construction, but endSection can in theory
// pop it if misused).
func (in *inner) attributeElapsed() {
	now := time.Now()
	if len(in.sectionStack) > 0 {
		top := in.sectionStack[len(in.sectionStack)-1]
		elapsed := now.Sub(in.lastReset).Seconds()
		in.counter.WithLabelValues(top).Add(elapsed)
	}
	in.lastReset = now
}
