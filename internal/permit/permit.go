// Package permit implements a bounded-concurrency gate: at most MaxConcurrent
// callers hold a permit at once, and every wait to acquire one is recorded
// into a moving average published to a gauge.
package permit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/mixaill76/adaptive-load-manager/internal/monitoring"
	"github.com/mixaill76/adaptive-load-manager/internal/stats"
)

// Gate is a counting semaphore of weight 1 per permit, backed by
// golang.org/x/sync/semaphore.Weighted, that records how long callers wait
// to acquire.
type Gate struct {
	sem *semaphore.Weighted

	mu    sync.Mutex
	waits *stats.MovingStats
	gauge monitoring.Gauge
}

// New creates a Gate with room for maxConcurrent simultaneous permits. gauge
// receives the moving-average wait time in milliseconds after every
// successful, non-cancelled Acquire (TryAcquire does not update it); it may
// be nil.
func New(maxConcurrent int, windowSize, binSize time.Duration, gauge monitoring.Gauge) *Gate {
	return &Gate{
		sem:   semaphore.NewWeighted(int64(maxConcurrent)),
		waits: stats.New(windowSize, binSize),
		gauge: gauge,
	}
}

// Permit is a held slot in the gate. Callers must call Release exactly once.
type Permit struct {
	gate *Gate
}

// Acquire blocks until a permit is available or ctx is done. If ctx is
// cancelled before a permit is granted, Acquire returns ctx.Err() and
// records no wait sample — an aborted acquisition never happened as far as
// the moving average is concerned.
func (g *Gate) Acquire(ctx context.Context) (*Permit, error) {
	start := time.Now()
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	waited := time.Since(start)
	g.recordWait(waited)
	return &Permit{gate: g}, nil
}

// TryAcquire grants a permit immediately if one is free, without blocking
// and without recording a wait sample (there was no wait).
func (g *Gate) TryAcquire() (*Permit, bool) {
	if !g.sem.TryAcquire(1) {
		return nil, false
	}
	return &Permit{gate: g}, true
}

// Release returns the permit to the gate. Calling Release more than once is
// a caller bug and is not specially guarded against.
func (p *Permit) Release() {
	p.gate.sem.Release(1)
}

// AverageWait returns the moving average wait time across recent
// acquisitions, or (0, false) if none have been recorded.
func (g *Gate) AverageWait() (time.Duration, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.waits.Average()
}

func (g *Gate) recordWait(d time.Duration) {
	g.mu.Lock()
	g.waits.Add(d)
	avg, _ := g.waits.Average()
	g.mu.Unlock()

	if g.gauge != nil {
		g.gauge.Set(float64(avg.Milliseconds()))
	}
}
