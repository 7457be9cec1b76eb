package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madgoathaz/goatd-kernel-telemetry/config"
	"github.com/madgoathaz/goatd-kernel-telemetry/models"
)

func testConfig() *config.Config {
	return &config.Config{
		Collector: config.CollectorConfig{
			IntervalNs:              1_000_000,
			SpikeThresholdGeneralNs: 100_000,
			WarmupSamples:           10,
			SampleRingCapacity:      1024,
			EventRingCapacity:       256,
			MeasurementCore:         0,
		},
		Archive: config.ArchiveConfig{
			PerformanceSubpath: "goatdkernel/performance/records",
			BenchmarkSubpath:   "goatd/benchmarks",
		},
	}
}

func TestStartStopTransitionsThroughLifecycle(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	c := New(testConfig())
	assert.Equal(t, Idle, c.State())

	require.NoError(t, c.Start())
	assert.Equal(t, Running, c.State())

	require.Error(t, c.Start(), "cannot start twice")

	require.NoError(t, c.Stop())
	assert.Equal(t, Completed, c.State())

	require.Error(t, c.Stop(), "cannot stop twice")
}

func TestSaveAndLoadSessionRoundTrips(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	c := New(testConfig())
	summary := c.CurrentSummary(5.0)
	require.NoError(t, c.SaveSession("baseline", summary))

	records, err := c.ListRecords()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "baseline", records[0].Label)

	loaded, err := c.LoadRecord(records[0].ID)
	require.NoError(t, err)
	assert.Equal(t, summary.DurationSecs, loaded.Summary.DurationSecs)
}

func TestCompareComputesPercentageDeltas(t *testing.T) {
	a := recordWithMean(100)
	b := recordWithMean(150)
	deltas := Compare(a, b)
	assert.InDelta(t, 50.0, deltas["avg_delta_pct"], 0.001)
}

func TestCompareZeroBaselineReturnsZeroDelta(t *testing.T) {
	a := recordWithMean(0)
	b := recordWithMean(150)
	deltas := Compare(a, b)
	assert.Equal(t, 0.0, deltas["avg_delta_pct"])
}

func recordWithMean(mean float64) models.PerformanceRecord {
	return models.PerformanceRecord{
		Summary: models.SessionSummary{
			Metrics: models.PerformanceMetrics{MeanNs: mean},
		},
	}
}
