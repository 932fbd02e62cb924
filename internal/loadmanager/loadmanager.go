// Package loadmanager composes the moving-statistics, kill-rate,
// permit-gate, stopwatch, and deny-list primitives into the facade inbound
// query handlers call to decide whether to run a query, and to record how
// much work it took.
package loadmanager

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/mixaill76/adaptive-load-manager/internal/config"
	"github.com/mixaill76/adaptive-load-manager/internal/denylist"
	"github.com/mixaill76/adaptive-load-manager/internal/effort"
	"github.com/mixaill76/adaptive-load-manager/internal/killstate"
	"github.com/mixaill76/adaptive-load-manager/internal/logger"
	"github.com/mixaill76/adaptive-load-manager/internal/monitoring"
	"github.com/mixaill76/adaptive-load-manager/internal/permit"
	"github.com/mixaill76/adaptive-load-manager/internal/stopwatch"
	"github.com/mixaill76/adaptive-load-manager/internal/utils"
)

// ShapeHash identifies a query's structure, independent of literal values.
type ShapeHash = effort.ShapeHash

// Decision is the outcome of Decide: whether a query should run.
type Decision int

const (
	// Proceed means the query should execute normally.
	Proceed Decision = iota
	// TooExpensive means the query is blocked or jailed and should not run.
	TooExpensive
	// Throttle means the query was probabilistically dropped under load.
	Throttle
)

func (d Decision) String() string {
	switch d {
	case Proceed:
		return "proceed"
	case TooExpensive:
		return "too_expensive"
	case Throttle:
		return "throttle"
	default:
		return "unknown"
	}
}

// CacheStatus tags how a completed query's result was served.
type CacheStatus string

const (
	CacheHit          CacheStatus = "hit"
	CacheMiss         CacheStatus = "miss"
	CacheShared       CacheStatus = "shared"
	CacheDeduplicated CacheStatus = "deduplicated"
)

// PoolWaitStats is the contract for the out-of-scope connection-pool
// wait-time source: anything that can report a moving average wait time.
type PoolWaitStats interface {
	Average() (time.Duration, bool)
}

// LoadManager composes every load-management primitive and exposes the
// decision/bookkeeping surface handlers call per request.
type LoadManager struct {
	cfg     *config.LoadManagerConfig
	logger  *slog.Logger
	metrics *monitoring.LoadManagerMetrics

	effort    *effort.QueryEffort
	kill      *killstate.State
	permits   *permit.Gate
	stopwatch *stopwatch.Stopwatch
	blocked   *denylist.BlockedSet
	jailed    *denylist.JailSet

	rngMu sync.Mutex
	rng   *rand.Rand

	threshold time.Duration
}

// sectionCounterAdapter binds the fixed deployment-id label onto
// deployment_sync_secs{deployment,section} so internal/stopwatch (which only
// knows about a section label) can drive it through monitoring.CounterVec.
type sectionCounterAdapter struct {
	deploymentID string
	inner        monitoring.CounterVec
}

func (a sectionCounterAdapter) WithLabelValues(labelValues ...string) monitoring.Counter {
	section := ""
	if len(labelValues) > 0 {
		section = labelValues[0]
	}
	return a.inner.WithLabelValues(a.deploymentID, section)
}

// New constructs a LoadManager, registering every metric it publishes
// against registry. A non-nil error is a registration failure and is fatal
// per the error-handling design: callers should abort startup rather than
// retry or degrade.
func New(cfg *config.LoadManagerConfig, logger *slog.Logger, registry monitoring.Registry) (*LoadManager, error) {
	return newLoadManager(cfg, logger, registry, time.Now().UnixNano())
}

// NewWithSeed is New with an explicit RNG seed, for deterministic tests of
// the probabilistic drop path.
func NewWithSeed(cfg *config.LoadManagerConfig, logger *slog.Logger, registry monitoring.Registry, seed int64) (*LoadManager, error) {
	return newLoadManager(cfg, logger, registry, seed)
}

func newLoadManager(cfg *config.LoadManagerConfig, logger *slog.Logger, registry monitoring.Registry, seed int64) (*LoadManager, error) {
	metrics, err := monitoring.NewLoadManagerMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("registering load manager metrics: %w", err)
	}

	sectionCounter := sectionCounterAdapter{deploymentID: cfg.DeploymentID, inner: metrics.SectionSeconds}
	sw := stopwatch.New(logger, sectionCounter)

	maxConcurrent := cfg.PoolSize + runtime.NumCPU() + cfg.ExtraQueryPermits
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	permitGate := permit.New(maxConcurrent, cfg.WindowSize, cfg.BinSize, metrics.SemaphoreWaitMS)

	// Pre-register one counter per cache status variant, so every status
	// shows up in /metrics from startup even before it is ever observed.
	for _, status := range []CacheStatus{CacheHit, CacheMiss, CacheShared, CacheDeduplicated} {
		metrics.CacheStatusCount.WithLabelValues(string(status))
	}

	return &LoadManager{
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
		effort:    effort.New(cfg.WindowSize, cfg.BinSize),
		kill:      killstate.New(),
		permits:   permitGate,
		stopwatch: sw,
		blocked:   denylist.NewBlockedSet(cfg.BlockedShapeHashes),
		jailed:    denylist.NewJailSet(),
		rng:       rand.New(rand.NewSource(seed)),
		threshold: time.Duration(cfg.LoadThresholdMS) * time.Millisecond,
	}, nil
}

// Decide implements the ten-step admission decision. ctx is accepted purely
// for logging/tracing attribution: this call never blocks or observes
// cancellation.
func (lm *LoadManager) Decide(ctx context.Context, waitStats PoolWaitStats, shape ShapeHash, queryText string) Decision {
	if lm.blocked.Contains(shape) {
		lm.rejected(ctx, "blocked", shape, queryText)
		return TooExpensive
	}

	if lm.cfg.LoadThresholdMS == 0 {
		return Proceed
	}

	if lm.jailed.Contains(shape) {
		if lm.cfg.Simulate {
			lm.logger.DebugContext(ctx, "simulated decline: jailed query", "shape", shape)
			return Proceed
		}
		lm.rejected(ctx, "jailed", shape, queryText)
		return TooExpensive
	}

	overloaded, maxWait := lm.overloaded(waitStats)

	killRate, lastUpdate := lm.kill.Snapshot()
	if !overloaded && killRate == 0 {
		return Proceed
	}

	perShape, known, total := lm.effort.CurrentEffort(shape)
	if total == 0 {
		return Proceed
	}

	queryEffort := perShape
	if !known {
		queryEffort = total
	}
	ratio := float64(queryEffort) / float64(total)

	if known && lm.cfg.JailEnabled && ratio > lm.cfg.JailThreshold {
		lm.jailed.Insert(shape)
		lm.logger.WarnContext(ctx, "jailing query shape",
			"shape", shape, "effort_ratio", ratio,
			"query_text", logger.TruncateText(queryText, maxLoggedQueryLen))
		if lm.cfg.Simulate {
			lm.logger.DebugContext(ctx, "simulated decline: jail", "shape", shape)
			return Proceed
		}
		lm.rejected(ctx, "jailed", shape, queryText)
		return TooExpensive
	}

	newRate, event, elapsed := lm.kill.Update(killRate, lastUpdate, overloaded)
	lm.logKillEvent(ctx, event, elapsed, maxWait)

	dropProb := clamp(newRate*ratio, 0, 1)
	if lm.bernoulli(dropProb) {
		if lm.cfg.Simulate {
			lm.logger.DebugContext(ctx, "simulated decline: throttle", "shape", shape, "drop_probability", dropProb)
			return Proceed
		}
		lm.rejected(ctx, "throttled", shape, queryText)
		return Throttle
	}

	return Proceed
}

// overloaded reports whether the system is currently overloaded: the max of
// the pool-wait and permit-wait moving averages exceeds the configured
// threshold, and that max wait time.
func (lm *LoadManager) overloaded(waitStats PoolWaitStats) (bool, time.Duration) {
	var poolWait time.Duration
	if waitStats != nil {
		if avg, ok := waitStats.Average(); ok {
			poolWait = avg
		}
	}

	var semWait time.Duration
	if avg, ok := lm.permits.AverageWait(); ok {
		semWait = avg
	}

	maxWait := poolWait
	if semWait > maxWait {
		maxWait = semWait
	}

	return maxWait > lm.threshold, maxWait
}

func (lm *LoadManager) bernoulli(p float64) bool {
	lm.rngMu.Lock()
	defer lm.rngMu.Unlock()
	return lm.rng.Float64() < p
}

// maxLoggedQueryLen bounds how much raw query text a rejection log line
// carries, so a pathological query never blows up a log line.
const maxLoggedQueryLen = 500

func (lm *LoadManager) rejected(ctx context.Context, reason string, shape ShapeHash, queryText string) {
	lm.metrics.SelectionRejected.WithLabelValues(reason).Inc()
	lm.logger.DebugContext(ctx, "query rejected",
		"reason", reason, "shape", shape,
		"query_text", logger.TruncateText(queryText, maxLoggedQueryLen),
		"at", utils.NowUTC())
}

func (lm *LoadManager) logKillEvent(ctx context.Context, event killstate.LogEvent, elapsed time.Duration, waitMS time.Duration) {
	switch event {
	case killstate.EventStart:
		lm.logger.WarnContext(ctx, "load manager overload started", "wait_ms", waitMS.Milliseconds())
	case killstate.EventOngoing:
		lm.logger.InfoContext(ctx, "load manager overload ongoing", "elapsed", elapsed, "wait_ms", waitMS.Milliseconds())
	case killstate.EventSettling:
		lm.logger.InfoContext(ctx, "load manager overload settling", "elapsed", elapsed)
	case killstate.EventResolved:
		lm.logger.InfoContext(ctx, "load manager overload resolved", "elapsed", elapsed)
	case killstate.EventSkip:
		// Nothing to log.
	}
}

// RecordWork records a completed query's cache status and, if load
// management is enabled, its contribution to that shape's moving effort.
func (lm *LoadManager) RecordWork(shape ShapeHash, duration time.Duration, status CacheStatus) {
	lm.metrics.CacheStatusCount.WithLabelValues(string(status)).Inc()

	if lm.cfg.LoadThresholdMS != 0 {
		lm.effort.Add(shape, duration, lm.metrics.QueryEffortMS)
	}
}

// AcquirePermit blocks until a concurrency permit is available or ctx is
// done.
func (lm *LoadManager) AcquirePermit(ctx context.Context) (*permit.Permit, error) {
	return lm.permits.Acquire(ctx)
}

// StartSection begins a named stopwatch section. Callers must Close it,
// typically via defer.
func (lm *LoadManager) StartSection(id string) *stopwatch.Section {
	return lm.stopwatch.StartSection(id)
}

// DisableStopwatch makes the section stopwatch a one-way no-op, for
// deployments that don't want per-section attribution overhead.
func (lm *LoadManager) DisableStopwatch() {
	lm.stopwatch.Disable()
}

// JailedCount reports how many query shapes are currently jailed, for
// diagnostics/health reporting.
func (lm *LoadManager) JailedCount() int {
	return lm.jailed.Count()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
