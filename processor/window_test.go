package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRollingWindowPercentileIndex(t *testing.T) {
	w := NewRollingWindow()
	for i := 1; i <= 100; i++ {
		w.AddLatency(float64(i))
	}
	// floor(100*0.99) = 99, clamped to len-1=99 -> sorted[99] == 100
	assert.Equal(t, 100.0, w.LatencyP99())
}

func TestRollingWindowEvictsOldestAtCapacity(t *testing.T) {
	w := NewRollingWindow()
	for i := 0; i < rollingWindowCapacity+10; i++ {
		w.AddLatency(float64(i))
	}
	w.mu.Lock()
	n := len(w.latency)
	first := w.latency[0]
	w.mu.Unlock()
	assert.Equal(t, rollingWindowCapacity, n)
	assert.Equal(t, 10.0, first)
}

func TestCoefficientOfVariationZeroMean(t *testing.T) {
	assert.Equal(t, 0.0, coefficientOfVariation(nil))
	assert.Equal(t, 0.0, coefficientOfVariation([]float64{0, 0, 0}))
}

func TestResetIsIdempotent(t *testing.T) {
	w := NewRollingWindow()
	w.AddLatency(1)
	w.Reset()
	w.Reset()
	assert.Equal(t, 0.0, w.LatencyP99())
}
