// Package snapshot projects live collector/benchmark state into a pure,
// render-ready Snapshot: no side effects, no I/O, safe to call on every
// UI frame. One strip is produced per scored metric (spec.md §4.17).
package snapshot

import (
	"fmt"

	"github.com/madgoathaz/goatd-kernel-telemetry/models"
	"github.com/madgoathaz/goatd-kernel-telemetry/scoring"
	"github.com/madgoathaz/goatd-kernel-telemetry/storage"
)

// Source is everything the projection needs to build one frame. It is
// satisfied by the Controller Facade; kept as an interface here so the
// projection itself never depends on the controller package.
type Source interface {
	LatestPerformance() models.PerformanceMetrics
	LatestMonitoring() models.MonitoringState
	LatestBenchmark() (models.BenchmarkMetrics, bool) // ok=false if no benchmark has run
	LatestScoring() (models.ScoringResult, bool)
}

// stripKey names each of the seven strips, matching the Scoring
// Engine's seven normalized metrics one-to-one.
const (
	stripResponsiveness    = "Responsiveness"
	stripConsistency       = "Consistency"
	stripJitter            = "Jitter"
	stripThroughput        = "Throughput"
	stripContextEfficiency = "Context Efficiency"
	stripThermal           = "Thermal"
	stripSmiResilience     = "SMI Resilience"
)

var stripOrder = []string{
	stripResponsiveness, stripConsistency, stripJitter, stripThroughput,
	stripContextEfficiency, stripThermal, stripSmiResilience,
}

// Histories holds one short-history ring per strip, owned by the caller
// across frames so sparklines persist between Project calls.
type Histories struct {
	rings map[string]*storage.History
}

const sparklineSamples = 10
const historyCapacity = 60

// NewHistories constructs a Histories with one ring per strip.
func NewHistories() *Histories {
	h := &Histories{rings: make(map[string]*storage.History, len(stripOrder))}
	for _, key := range stripOrder {
		h.rings[key] = storage.NewHistory(historyCapacity)
	}
	return h
}

// Project builds one Snapshot from src. Throughput, Context Efficiency
// and SMI Resilience are benchmark-only: they show "Ready" at 0.5 until
// a benchmark run has produced a ScoringResult. Responsiveness and
// Consistency score from the live PerformanceMetrics as soon as any
// sample has been recorded, independent of whether a benchmark ever ran;
// Jitter scores once a sample has been recorded or a benchmark has run.
// Thermal scores once a temperature reading (live or from the last
// benchmark) is available, per spec.md §4.17 ("latency and thermal show
// 'Ready' before any sample arrives").
func Project(src Source, h *Histories) models.Snapshot {
	mon := src.LatestMonitoring()
	perf := src.LatestPerformance()
	bench, hasBench := src.LatestBenchmark()
	score, hasScore := src.LatestScoring()

	hasBenchScore := hasBench && hasScore
	benchNorm := func(key string) float64 {
		if !hasBenchScore {
			return 0.5
		}
		return score.NormalizedMetrics[key]
	}

	hasLive := mon.SampleCount > 0
	p99Us := float64(perf.P99Ns) / 1000.0

	// The aux Micro-Jitter collector's p99.99 is richer than the live
	// processor's, so prefer it once a benchmark has run.
	jitterUs := float64(perf.P9999Ns) / 1000.0
	if hasBench {
		jitterUs = bench.Jitter.P9999Us
	}

	maxTempC, hasTemp := maxTemp(perf.CoreTempsC, perf.PackageTempC)
	if !hasTemp && hasBench && len(bench.CoreTempsC) > 0 {
		maxTempC, hasTemp = bench.MaxCoreTempC, true
	}

	strips := []models.Strip{
		h.strip(stripResponsiveness, hasLive, scoring.Responsiveness(p99Us), fmt.Sprintf("%.1f us p99", p99Us)),
		h.strip(stripConsistency, hasLive, scoring.Consistency(perf.RollingConsistencyCV), fmt.Sprintf("%.3f CV", perf.RollingConsistencyCV)),
		h.strip(stripJitter, hasLive || hasBench, scoring.Jitter(jitterUs), fmt.Sprintf("%.1f us p99.99", jitterUs)),
		h.strip(stripThroughput, hasBenchScore, benchNorm("throughput"), fmt.Sprintf("%.0f calls/s", bench.Syscall.ThroughputPerS)),
		h.strip(stripContextEfficiency, hasBenchScore, benchNorm("context_efficiency"), fmt.Sprintf("%.1f us rtt", bench.ContextSwitch.P99RttUs)),
		h.strip(stripThermal, hasTemp, scoring.Thermal(maxTempC), fmt.Sprintf("%.1f C", maxTempC)),
		h.strip(stripSmiResilience, hasBenchScore, benchNorm("smi_resilience"), fmt.Sprintf("%d/%d smi-correlated", bench.SmiCorrelatedSpikes, bench.SpikeCount)),
	}

	return models.Snapshot{Strips: strips, CapturedAt: int64(mon.SampleCount)}
}

// maxTemp returns the higher of the per-core readings and the package
// reading, or 0,false if neither is available.
func maxTemp(core []float64, pkg float64) (float64, bool) {
	max, ok := 0.0, false
	for _, v := range core {
		if !ok || v > max {
			max, ok = v, true
		}
	}
	if pkg > 0 && (!ok || pkg > max) {
		max, ok = pkg, true
	}
	return max, ok
}

func (h *Histories) strip(label string, has bool, normalized float64, raw string) models.Strip {
	ring := h.rings[label]
	display := raw
	if !has {
		display = "Ready"
		normalized = 0.5
	}
	ring.Add(normalized)
	return models.Strip{
		Label:      label,
		RawDisplay: display,
		Normalized: normalized,
		History:    ring.Last(sparklineSamples),
		Pulse:      ring.MovingAverage(sparklineSamples),
	}
}
