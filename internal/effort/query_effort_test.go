package effort

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeGauge struct {
	mu    sync.Mutex
	value float64
}

func (g *fakeGauge) Set(v float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.value = v
}

func (g *fakeGauge) get() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

func TestCurrentEffort_Unseen(t *testing.T) {
	qe := New(time.Minute, time.Second)

	perShape, known, total := qe.CurrentEffort(42)
	assert.False(t, known)
	assert.Equal(t, time.Duration(0), perShape)
	assert.Equal(t, time.Duration(0), total)
}

func TestAdd_UpdatesPerShapeAndTotal(t *testing.T) {
	qe := New(time.Minute, time.Second)
	gauge := &fakeGauge{}

	qe.Add(1, 100*time.Millisecond, gauge)
	qe.Add(2, 50*time.Millisecond, gauge)

	shape1Effort, known, total := qe.CurrentEffort(1)
	assert.True(t, known)
	assert.Equal(t, 100*time.Millisecond, shape1Effort)
	assert.Equal(t, 150*time.Millisecond, total)

	assert.Equal(t, float64(75), gauge.get())
}

func TestAdd_IsAdditive(t *testing.T) {
	qe := New(time.Minute, time.Second)

	qe.Add(1, 10*time.Millisecond, nil)
	qe.Add(1, 10*time.Millisecond, nil)

	perShape, _, total := qe.CurrentEffort(1)
	assert.Equal(t, 20*time.Millisecond, perShape)
	assert.Equal(t, 20*time.Millisecond, total)
}

func TestAdd_NilGaugeDoesNotPanic(t *testing.T) {
	qe := New(time.Minute, time.Second)
	assert.NotPanics(t, func() {
		qe.Add(1, time.Millisecond, nil)
	})
}

func TestConcurrentAddAndRead_NoRace(t *testing.T) {
	qe := New(time.Minute, time.Second)
	gauge := &fakeGauge{}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			qe.Add(ShapeHash(n%5), time.Millisecond, gauge)
			qe.CurrentEffort(ShapeHash(n % 5))
		}(i)
	}
	wg.Wait()

	_, _, total := qe.CurrentEffort(0)
	assert.Equal(t, 50*time.Millisecond, total)
}
