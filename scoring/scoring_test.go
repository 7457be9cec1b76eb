package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/madgoathaz/goatd-kernel-telemetry/models"
)

func TestAllMetricsPerfectYieldsBalancedOverrideAndScore1000(t *testing.T) {
	m := models.BenchmarkMetrics{
		P99Us:                50,
		RollingConsistencyCV: 0.05,
		SpikeCount:           0,
		SmiCorrelatedSpikes:  0,
		MaxCoreTempC:         40,
		CoreTempsC:           []float64{40, 40},
		Jitter:               models.MicroJitterMetrics{P9999Us: 200},
		Syscall:              models.SyscallSaturationMetrics{ThroughputPerS: 1_000_000},
		ContextSwitch:        models.ContextSwitchMetrics{P99RttUs: 150},
	}
	result := Score(m)
	assert.Equal(t, 1000, result.GoatScore)
	assert.Equal(t, "Balanced", result.Personality)
	assert.True(t, result.BalancedOverride)
}

func TestResponsivenessPiecewiseLinearBounds(t *testing.T) {
	assert.Equal(t, 1.0, responsiveness(50))
	assert.Equal(t, 0.0, responsiveness(500))
	assert.InDelta(t, 0.5, responsiveness(275), 0.01)
}

func TestResponsivenessHandlesNaNAndInfinity(t *testing.T) {
	assert.Equal(t, 0.5, piecewiseLinear(nan(), 50, 500))
	assert.Equal(t, 0.0, responsiveness(posInf()))
	assert.Equal(t, 1.0, responsiveness(negInf()))
}

func TestConsistencyClampsToRange(t *testing.T) {
	assert.Equal(t, 1.0, consistency(0.0))
	assert.InDelta(t, 0.001, consistency(1.0), 0.5)
}

func TestSmiResilienceNoSpikesIsPerfect(t *testing.T) {
	assert.Equal(t, 1.0, smiResilience(0, 0))
}

func TestSmiResilienceSpikesNoCorrelationIsZero(t *testing.T) {
	assert.Equal(t, 0.0, smiResilience(0, 10))
}

func nan() float64    { var z float64; return z / z }
func posInf() float64 { return 1.0 / zero() }
func negInf() float64 { return -1.0 / zero() }
func zero() float64   { var z float64; return z }
