package monitoring

import "fmt"

// LoadManagerMetrics bundles every metric handle spec.md §6 names, minted
// from a Registry at construction time. A non-nil error from
// NewLoadManagerMetrics is a registration failure and is fatal per spec.md §7.
type LoadManagerMetrics struct {
	// SectionSeconds is "deployment_sync_secs{deployment,section}": cumulative
	// seconds per stopwatch section.
	SectionSeconds CounterVec

	// QueryEffortMS is "query_effort_ms": moving average of total query
	// effort, in milliseconds.
	QueryEffortMS Gauge

	// SemaphoreWaitMS is "query_semaphore_wait_ms": moving average of permit
	// wait time, in milliseconds.
	SemaphoreWaitMS Gauge

	// CacheStatusCount is "query_cache_status_count{cache_status}".
	CacheStatusCount CounterVec

	// SelectionRejected counts decide() outcomes other than Proceed, keyed by
	// reason (blocked, jailed, throttled) — a supplemental event counter in
	// the style of the teacher's CredentialSelectionRejected metric.
	SelectionRejected CounterVec
}

// NewLoadManagerMetrics registers every metric the load manager publishes.
func NewLoadManagerMetrics(registry Registry) (*LoadManagerMetrics, error) {
	sectionSeconds, err := registry.NewCounterVec(
		"deployment_sync_secs",
		"Cumulative wall time spent in each named stopwatch section",
		[]string{"deployment", "section"},
	)
	if err != nil {
		return nil, fmt.Errorf("deployment_sync_secs: %w", err)
	}

	effortGauge, err := registry.NewGauge(
		"query_effort_ms",
		"Moving average of total query effort in milliseconds",
	)
	if err != nil {
		return nil, fmt.Errorf("query_effort_ms: %w", err)
	}

	semaphoreWaitGauge, err := registry.NewGauge(
		"query_semaphore_wait_ms",
		"Moving average of permit wait time in milliseconds",
	)
	if err != nil {
		return nil, fmt.Errorf("query_semaphore_wait_ms: %w", err)
	}

	cacheStatusCount, err := registry.NewCounterVec(
		"query_cache_status_count",
		"Total queries by cache status",
		[]string{"cache_status"},
	)
	if err != nil {
		return nil, fmt.Errorf("query_cache_status_count: %w", err)
	}

	selectionRejected, err := registry.NewCounterVec(
		"query_selection_rejected_total",
		"Total number of queries rejected by the load manager, by reason",
		[]string{"reason"},
	)
	if err != nil {
		return nil, fmt.Errorf("query_selection_rejected_total: %w", err)
	}

	return &LoadManagerMetrics{
		SectionSeconds:    sectionSeconds,
		QueryEffortMS:     effortGauge,
		SemaphoreWaitMS:   semaphoreWaitGauge,
		CacheStatusCount:  cacheStatusCount,
		SelectionRejected: selectionRejected,
	}, nil
}
