package killstate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_SeedsInThePast(t *testing.T) {
	s := New()
	killRate, lastUpdate := s.Snapshot()

	assert.Equal(t, 0.0, killRate)
	assert.True(t, lastUpdate.Before(time.Now()))
}

func TestUpdate_WithinIntervalIsNoop(t *testing.T) {
	s := New()
	rate, event, _ := s.Update(0.5, time.Now(), true)

	assert.Equal(t, 0.5, rate)
	assert.Equal(t, EventSkip, event)
}

func TestUpdate_Overloaded_StepsUpAsymptotically(t *testing.T) {
	s := New()
	old := time.Now().Add(-2 * UpdateInterval)

	rate, event, _ := s.Update(0, old, true)

	assert.InDelta(t, 0.1, rate, 1e-9)
	assert.Equal(t, EventStart, event)
}

func TestUpdate_NotOverloaded_StepsDownLinearly(t *testing.T) {
	s := New()
	old := time.Now().Add(-2 * UpdateInterval)
	s.overloaded = true
	s.overloadStart = time.Now().Add(-time.Minute)
	s.lastOverloadLog = s.overloadStart

	rate, event, _ := s.Update(0.5, old, false)

	assert.InDelta(t, 0.3, rate, 1e-9)
	assert.Equal(t, EventSettling, event)
}

func TestUpdate_Recovery_ResolvesAfterReachingZero(t *testing.T) {
	s := New()
	old := time.Now().Add(-2 * UpdateInterval)
	// Seed an in-progress overload episode, matching spec.md scenario 4's
	// premise that kill_rate=0.5 implies we were already overloaded.
	s.overloaded = true
	s.overloadStart = time.Now().Add(-time.Minute)
	s.lastOverloadLog = s.overloadStart

	rate, event, _ := s.Update(0.5, old, false)
	assert.InDelta(t, 0.3, rate, 1e-9)
	assert.Equal(t, EventSettling, event)

	rate, event, _ = s.Update(rate, old, false)
	assert.InDelta(t, 0.1, rate, 1e-9)
	assert.Equal(t, EventSettling, event)

	rate, event, elapsed := s.Update(rate, old, false)
	assert.InDelta(t, 0.0, rate, 1e-9)
	assert.Equal(t, EventResolved, event)
	assert.GreaterOrEqual(t, elapsed, time.Duration(0))
}

func TestUpdate_NeverExceedsOne(t *testing.T) {
	s := New()
	old := time.Now().Add(-2 * UpdateInterval)
	rate := 0.0
	for i := 0; i < 100; i++ {
		rate, _, _ = s.Update(rate, old, true)
	}
	assert.LessOrEqual(t, rate, 1.0)
}

func TestUpdate_NeverBelowZero(t *testing.T) {
	s := New()
	old := time.Now().Add(-2 * UpdateInterval)
	rate := 0.5
	for i := 0; i < 100; i++ {
		rate, _, _ = s.Update(rate, old, false)
	}
	assert.GreaterOrEqual(t, rate, 0.0)
}

func TestUpdate_MonotoneInOverloadFlag(t *testing.T) {
	s := New()
	old := time.Now().Add(-2 * UpdateInterval)

	upRate, _, _ := s.Update(0.4, old, true)
	assert.GreaterOrEqual(t, upRate, 0.4)

	s2 := New()
	downRate, _, _ := s2.Update(0.4, old, false)
	assert.LessOrEqual(t, downRate, 0.4)
}

func TestUpdate_OngoingThrottledTo30Seconds(t *testing.T) {
	s := New()
	old := time.Now().Add(-2 * UpdateInterval)

	_, event, _ := s.Update(0, old, true)
	require := assert.New(t)
	require.Equal(EventStart, event)

	_, event, _ = s.Update(0.1, old, true)
	require.Equal(EventSkip, event)
}

func TestUpdate_PanicsOnInvalidPrecondition(t *testing.T) {
	s := New()
	assert.Panics(t, func() {
		s.Update(0, time.Now().Add(-2*UpdateInterval), false)
	})
}
