// Package monitoring defines the metrics-registry contract the load manager
// depends on (spec.md §1 treats the registry as an external collaborator,
// referenced only by the contract it exposes) and a Prometheus-backed
// implementation of that contract.
package monitoring

// Counter is a monotonically increasing value.
type Counter interface {
	Inc()
	Add(delta float64)
}

// Gauge is a point-in-time value that can go up or down.
type Gauge interface {
	Set(value float64)
}

// CounterVec mints a Counter for a given set of label values.
type CounterVec interface {
	WithLabelValues(labelValues ...string) Counter
}

// GaugeVec mints a Gauge for a given set of label values.
type GaugeVec interface {
	WithLabelValues(labelValues ...string) Gauge
}

// Registry creates counters and gauges identified by name and labels.
// Registration failures (e.g. a name collision) are returned as errors;
// spec.md §7 treats them as fatal at construction — it is the caller's job
// to abort startup on a non-nil error, the registry itself does not panic.
type Registry interface {
	NewCounter(name, help string) (Counter, error)
	NewCounterVec(name, help string, labelNames []string) (CounterVec, error)
	NewGauge(name, help string) (Gauge, error)
	NewGaugeVec(name, help string, labelNames []string) (GaugeVec, error)
}
