package monitoring

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRegistry implements Registry on top of a prometheus.Registerer.
// When disabled, every minted Counter/Gauge is a no-op so call sites never
// need to branch on whether metrics are turned on, matching the teacher's
// Metrics.isEnabled() guard style (internal/monitoring.Metrics in the
// teacher repo).
type PrometheusRegistry struct {
	registerer prometheus.Registerer
	enabled    bool
}

// NewPrometheusRegistry wraps registerer (typically prometheus.DefaultRegisterer
// or a fresh prometheus.NewRegistry() in tests) as a Registry.
func NewPrometheusRegistry(registerer prometheus.Registerer, enabled bool) *PrometheusRegistry {
	return &PrometheusRegistry{registerer: registerer, enabled: enabled}
}

func (r *PrometheusRegistry) NewCounter(name, help string) (Counter, error) {
	if !r.enabled {
		return noopCounter{}, nil
	}
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	if err := r.registerer.Register(c); err != nil {
		return nil, fmt.Errorf("registering counter %s: %w", name, err)
	}
	return c, nil
}

func (r *PrometheusRegistry) NewCounterVec(name, help string, labelNames []string) (CounterVec, error) {
	if !r.enabled {
		return noopCounterVec{}, nil
	}
	v := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labelNames)
	if err := r.registerer.Register(v); err != nil {
		return nil, fmt.Errorf("registering counter vec %s: %w", name, err)
	}
	return counterVecAdapter{v}, nil
}

func (r *PrometheusRegistry) NewGauge(name, help string) (Gauge, error) {
	if !r.enabled {
		return noopGauge{}, nil
	}
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	if err := r.registerer.Register(g); err != nil {
		return nil, fmt.Errorf("registering gauge %s: %w", name, err)
	}
	return g, nil
}

func (r *PrometheusRegistry) NewGaugeVec(name, help string, labelNames []string) (GaugeVec, error) {
	if !r.enabled {
		return noopGaugeVec{}, nil
	}
	v := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, labelNames)
	if err := r.registerer.Register(v); err != nil {
		return nil, fmt.Errorf("registering gauge vec %s: %w", name, err)
	}
	return gaugeVecAdapter{v}, nil
}

type counterVecAdapter struct{ vec *prometheus.CounterVec }

func (a counterVecAdapter) WithLabelValues(labelValues ...string) Counter {
	return a.vec.WithLabelValues(labelValues...)
}

type gaugeVecAdapter struct{ vec *prometheus.GaugeVec }

func (a gaugeVecAdapter) WithLabelValues(labelValues ...string) Gauge {
	return a.vec.WithLabelValues(labelValues...)
}

type noopCounter struct{}

func (noopCounter) Inc()        {}
func (noopCounter) Add(float64) {}

type noopGauge struct{}

func (noopGauge) Set(float64) {}

type noopCounterVec struct{}

func (noopCounterVec) WithLabelValues(...string) Counter { return noopCounter{} }

type noopGaugeVec struct{}

func (noopGaugeVec) WithLabelValues(...string) Gauge { return noopGauge{} }
