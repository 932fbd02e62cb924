package monitoring

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRegistry_CounterIncrements(t *testing.T) {
	reg := NewPrometheusRegistry(prometheus.NewRegistry(), true)
	c, err := reg.NewCounter("test_counter", "help")
	require.NoError(t, err)

	c.Inc()
	c.Inc()

	metric := &dto.Metric{}
	require.NoError(t, c.(prometheus.Counter).Write(metric))
	assert.Equal(t, 2.0, metric.GetCounter().GetValue())
}

func TestPrometheusRegistry_GaugeSet(t *testing.T) {
	reg := NewPrometheusRegistry(prometheus.NewRegistry(), true)
	g, err := reg.NewGauge("test_gauge", "help")
	require.NoError(t, err)

	g.Set(42)

	metric := &dto.Metric{}
	require.NoError(t, g.(prometheus.Gauge).Write(metric))
	assert.Equal(t, 42.0, metric.GetGauge().GetValue())
}

func TestPrometheusRegistry_DuplicateRegistrationFails(t *testing.T) {
	promReg := prometheus.NewRegistry()
	reg := NewPrometheusRegistry(promReg, true)

	_, err := reg.NewCounter("dup_counter", "help")
	require.NoError(t, err)

	_, err = reg.NewCounter("dup_counter", "help")
	assert.Error(t, err)
}

func TestPrometheusRegistry_Disabled_IsNoop(t *testing.T) {
	reg := NewPrometheusRegistry(prometheus.NewRegistry(), false)

	c, err := reg.NewCounter("noop_counter", "help")
	require.NoError(t, err)
	assert.NotPanics(t, func() { c.Inc() })

	vec, err := reg.NewCounterVec("noop_vec", "help", []string{"label"})
	require.NoError(t, err)
	assert.NotPanics(t, func() { vec.WithLabelValues("x").Inc() })
}

func TestPrometheusRegistry_VecWithLabelValues(t *testing.T) {
	reg := NewPrometheusRegistry(prometheus.NewRegistry(), true)
	vec, err := reg.NewCounterVec("test_vec", "help", []string{"status"})
	require.NoError(t, err)

	vec.WithLabelValues("hit").Inc()
	vec.WithLabelValues("hit").Inc()
	vec.WithLabelValues("miss").Inc()

	hit := vec.WithLabelValues("hit").(prometheus.Counter)
	metric := &dto.Metric{}
	require.NoError(t, hit.Write(metric))
	assert.Equal(t, 2.0, metric.GetCounter().GetValue())
}

func TestNewLoadManagerMetrics_RegistersAll(t *testing.T) {
	reg := NewPrometheusRegistry(prometheus.NewRegistry(), true)
	metrics, err := NewLoadManagerMetrics(reg)
	require.NoError(t, err)

	assert.NotNil(t, metrics.SectionSeconds)
	assert.NotNil(t, metrics.QueryEffortMS)
	assert.NotNil(t, metrics.SemaphoreWaitMS)
	assert.NotNil(t, metrics.CacheStatusCount)
	assert.NotNil(t, metrics.SelectionRejected)
}
