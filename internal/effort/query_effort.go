// Package effort tracks moving-average work time per query shape, plus a
// grand total, so the load manager can judge how much of current effort any
// one query shape accounts for.
package effort

import (
	"sync"
	"time"

	"github.com/mixaill76/adaptive-load-manager/internal/monitoring"
	"github.com/mixaill76/adaptive-load-manager/internal/stats"
)

// ShapeHash identifies a query's structure, independent of literal values.
type ShapeHash uint64

// QueryEffort is a map from ShapeHash to MovingStats, plus an aggregate
// MovingStats covering every shape. Reads (CurrentEffort) take the RWMutex's
// read lock so concurrent snapshots don't serialize against each other;
// writes (Add) take the write lock.
type QueryEffort struct {
	mu         sync.RWMutex
	windowSize time.Duration
	binSize    time.Duration
	perShape   map[ShapeHash]*stats.MovingStats
	total      *stats.MovingStats
}

// New creates a QueryEffort that opens a fresh MovingStats per shape using
// the given window and bin sizes.
func New(windowSize, binSize time.Duration) *QueryEffort {
	return &QueryEffort{
		windowSize: windowSize,
		binSize:    binSize,
		perShape:   make(map[ShapeHash]*stats.MovingStats),
		total:      stats.New(windowSize, binSize),
	}
}

// Add records that duration d of work was spent on shape, at the current
// instant, for both the per-shape and the total MovingStats, then publishes
// the new total moving average (in milliseconds) to gauge.
func (e *QueryEffort) Add(shape ShapeHash, d time.Duration, gauge monitoring.Gauge) {
	e.mu.Lock()
	now := time.Now()
	m, ok := e.perShape[shape]
	if !ok {
		m = stats.New(e.windowSize, e.binSize)
		e.perShape[shape] = m
	}
	m.AddAt(now, d)
	e.total.AddAt(now, d)
	avg, _ := e.total.AverageAt(now)
	e.mu.Unlock()

	if gauge != nil {
		gauge.Set(float64(avg.Milliseconds()))
	}
}

// CurrentEffort returns what is known right now about the effort for shape
// (zero with known=false if never seen) and the total effort across all shapes (always a
// valid, possibly-zero Duration, never "unknown").
func (e *QueryEffort) CurrentEffort(shape ShapeHash) (perShape time.Duration, known bool, total time.Duration) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	total = e.total.Duration()
	if m, ok := e.perShape[shape]; ok {
		return m.Duration(), true, total
	}
	return 0, false, total
}
