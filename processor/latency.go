package processor

import (
	"math"
	"sync"
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"

	"github.com/madgoathaz/goatd-kernel-telemetry/models"
)

const (
	hdrLowestNs       = 1
	hdrHighestNs      = 100_000_000 // 10^8 ns, per spec.md §4.7
	hdrSignificantFig = 3
	coarseBuckets     = 20
	// coarseLogBase assumes the 10^8 ns upper bound baked into the
	// bucket formula; spec.md §9 flags this as an open constant, not a
	// derived one, so it is not recomputed from hdrHighestNs.
	coarseLogBase = 8.0

	// thermalCacheTTL bounds how often the attached ThermalSource is
	// re-polled, per spec.md §4.7's "thermal cache refreshed at most
	// every 100ms".
	thermalCacheTTL = 100 * time.Millisecond
	// jitterHistoryCapacity is the last-300-cycle-max window spec.md §3
	// names for PerformanceMetrics.JitterHistoryUs.
	jitterHistoryCapacity = 300
)

// ThermalSource supplies per-core and package temperatures. thermal.Reader
// satisfies this without the processor package importing thermal
// directly, avoiding a layering dependency on sysfs details.
type ThermalSource interface {
	CoreTemps() []float64
	PackageTemp() (float64, bool)
}

// GovernorSource supplies the active cpufreq governor name and its
// current frequency in MHz.
type GovernorSource func() (name string, freqMHz float64)

// LatencyProcessor maintains the session HDR histogram, the 20-bucket
// coarse histogram, a rolling deque used for the fast "average" query
// (spec.md §4.7: average() reads the rolling deque, not the session
// histogram), a per-render-cycle peak latency with a 300-sample
// history, and a throttled thermal/governor cache.
type LatencyProcessor struct {
	mu        sync.Mutex
	hist      *hdrhistogram.Histogram
	coarse    [coarseBuckets]uint64
	recent    []float64
	recentCap int

	lastNs        int64
	cycleMaxNs    int64
	jitterHistory []float64 // cycle-max values in microseconds, oldest first

	thermal           ThermalSource
	thermalAt         time.Time
	cachedCoreTemps   []float64
	cachedPackageTemp float64

	governor GovernorSource
}

// NewLatencyProcessor constructs a processor with a fresh HDR histogram
// spanning [1ns, 10^8ns] at 3 significant figures.
func NewLatencyProcessor() *LatencyProcessor {
	return &LatencyProcessor{
		hist:      hdrhistogram.New(hdrLowestNs, hdrHighestNs, hdrSignificantFig),
		recentCap: rollingWindowCapacity,
	}
}

// AttachThermal wires the source the Processor polls at most once every
// 100ms when producing a Snapshot.
func (p *LatencyProcessor) AttachThermal(src ThermalSource) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.thermal = src
}

// AttachGovernor wires the governor-name/frequency source stamped onto
// each Snapshot.
func (p *LatencyProcessor) AttachGovernor(src GovernorSource) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.governor = src
}

// CoarseBucket maps a nanosecond latency to one of 20 log-spaced
// buckets: idx = min(19, floor(log10(max(1,ns))/8 * 19)).
func CoarseBucket(ns int64) int {
	if ns < 1 {
		ns = 1
	}
	idx := int(math.Floor(math.Log10(float64(ns)) / coarseLogBase * (coarseBuckets - 1)))
	if idx > coarseBuckets-1 {
		idx = coarseBuckets - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// RecordSample clamps ns to at least 1 and records it into both the
// HDR histogram and the coarse histogram, plus the rolling deque and
// the current render cycle's peak.
func (p *LatencyProcessor) RecordSample(ns int64) {
	if ns < 1 {
		ns = 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.hist.RecordValue(ns)
	p.coarse[CoarseBucket(ns)]++
	p.recent = append(p.recent, float64(ns))
	if len(p.recent) > p.recentCap {
		p.recent = p.recent[len(p.recent)-p.recentCap:]
	}
	p.lastNs = ns
	if ns > p.cycleMaxNs {
		p.cycleMaxNs = ns
	}
}

// CycleMaxUs returns the current render cycle's peak latency in
// microseconds without clearing it.
func (p *LatencyProcessor) CycleMaxUs() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return float64(p.cycleMaxNs) / 1000.0
}

// ResetCycleMax appends the current cycle-max (microseconds) to the
// 300-sample jitter history, then zeroes it for the next render cycle.
func (p *LatencyProcessor) ResetCycleMax() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushJitterHistoryLocked()
	p.cycleMaxNs = 0
}

func (p *LatencyProcessor) pushJitterHistoryLocked() {
	p.jitterHistory = append(p.jitterHistory, float64(p.cycleMaxNs)/1000.0)
	if len(p.jitterHistory) > jitterHistoryCapacity {
		p.jitterHistory = p.jitterHistory[len(p.jitterHistory)-jitterHistoryCapacity:]
	}
}

// Reset clears the histogram, coarse buckets, rolling deque, cycle-max
// and jitter history.
func (p *LatencyProcessor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hist.Reset()
	p.coarse = [coarseBuckets]uint64{}
	p.recent = nil
	p.lastNs = 0
	p.cycleMaxNs = 0
	p.jitterHistory = nil
}

// Average returns the mean of the rolling deque, not the session
// histogram, per spec.md §4.7.
func (p *LatencyProcessor) Average() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.recent) == 0 {
		return 0
	}
	var sum float64
	for _, v := range p.recent {
		sum += v
	}
	return sum / float64(len(p.recent))
}

// refreshThermalLocked re-polls the attached thermal source if the
// cache is older than thermalCacheTTL. Caller must hold p.mu.
func (p *LatencyProcessor) refreshThermalLocked() {
	if p.thermal == nil {
		return
	}
	if !p.thermalAt.IsZero() && time.Since(p.thermalAt) < thermalCacheTTL {
		return
	}
	p.cachedCoreTemps = p.thermal.CoreTemps()
	p.cachedPackageTemp, _ = p.thermal.PackageTemp()
	p.thermalAt = time.Now()
}

// Snapshot produces a PerformanceMetrics view from the current
// histogram, thermal cache, and governor state, treating this call as
// the render-cycle boundary that rolls the jitter history forward.
func (p *LatencyProcessor) Snapshot() models.PerformanceMetrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshThermalLocked()
	p.pushJitterHistoryLocked()

	m := models.PerformanceMetrics{
		CurrentNs:       p.lastNs,
		MinNs:           p.hist.Min(),
		MaxNs:           p.hist.Max(),
		MeanNs:          p.hist.Mean(),
		P50Ns:           p.hist.ValueAtQuantile(50),
		P99Ns:           p.hist.ValueAtQuantile(99),
		P999Ns:          p.hist.ValueAtQuantile(99.9),
		P9999Ns:         p.hist.ValueAtQuantile(99.99),
		SampleCount:     uint64(p.hist.TotalCount()),
		JitterHistoryUs: append([]float64(nil), p.jitterHistory...),
		CoreTempsC:      append([]float64(nil), p.cachedCoreTemps...),
		PackageTempC:    p.cachedPackageTemp,
	}
	copy(m.CoarseHistogram[:], p.coarse[:])
	if p.governor != nil {
		m.GovernorName, m.GovernorFreqMHz = p.governor()
	}
	p.cycleMaxNs = 0
	return m
}
