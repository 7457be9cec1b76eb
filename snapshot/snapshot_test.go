package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/madgoathaz/goatd-kernel-telemetry/models"
)

type fakeSource struct {
	hasBench bool
	hasScore bool
	perf     models.PerformanceMetrics
	mon      models.MonitoringState
	bench    models.BenchmarkMetrics
	score    models.ScoringResult
}

func (f fakeSource) LatestPerformance() models.PerformanceMetrics { return f.perf }
func (f fakeSource) LatestMonitoring() models.MonitoringState     { return f.mon }
func (f fakeSource) LatestBenchmark() (models.BenchmarkMetrics, bool) {
	return f.bench, f.hasBench
}
func (f fakeSource) LatestScoring() (models.ScoringResult, bool) { return f.score, f.hasScore }

func TestProjectShowsReadyWithoutAnyData(t *testing.T) {
	h := NewHistories()
	snap := Project(fakeSource{}, h)
	assert.Len(t, snap.Strips, 7)
	for _, s := range snap.Strips {
		assert.Equal(t, "Ready", s.RawDisplay)
		assert.Equal(t, 0.5, s.Normalized)
	}
}

func TestProjectScoresLiveStripsWithoutBenchmark(t *testing.T) {
	h := NewHistories()
	src := fakeSource{
		mon:  models.MonitoringState{SampleCount: 1},
		perf: models.PerformanceMetrics{P99Ns: 50_000, CoreTempsC: []float64{55}},
	}
	snap := Project(src, h)

	responsiveness := snap.Strips[0]
	assert.NotEqual(t, "Ready", responsiveness.RawDisplay)
	assert.Greater(t, responsiveness.Normalized, 0.0)

	thermal := snap.Strips[5]
	assert.NotEqual(t, "Ready", thermal.RawDisplay)

	// Benchmark-only strips stay gated.
	throughput := snap.Strips[3]
	assert.Equal(t, "Ready", throughput.RawDisplay)
	assert.Equal(t, 0.5, throughput.Normalized)
}

func TestProjectUsesScoringNormalizedMetrics(t *testing.T) {
	h := NewHistories()
	src := fakeSource{
		hasBench: true,
		hasScore: true,
		bench:    models.BenchmarkMetrics{P99Us: 40},
		score: models.ScoringResult{
			NormalizedMetrics: map[string]float64{"throughput": 0.9},
		},
	}
	snap := Project(src, h)
	assert.Equal(t, 0.9, snap.Strips[3].Normalized)
}
