// Package collector implements the Latency Collector hot loop, the
// Event Consumer that drains its diagnostic ring, and the four
// auxiliary collectors (micro-jitter, context-switch RTT, syscall
// saturation, task wake-up).
package collector

import (
	"sync/atomic"
	"time"

	"github.com/madgoathaz/goatd-kernel-telemetry/diagbus"
	"github.com/madgoathaz/goatd-kernel-telemetry/models"
	"github.com/madgoathaz/goatd-kernel-telemetry/processor"
	"github.com/madgoathaz/goatd-kernel-telemetry/smi"
	"github.com/madgoathaz/goatd-kernel-telemetry/storage"
)

const (
	// DefaultIntervalNs is the hot loop's default tick period.
	DefaultIntervalNs = 1_000_000 // 1ms
	// DefaultSpikeThresholdGeneralNs applies outside calibration mode.
	DefaultSpikeThresholdGeneralNs = 100_000 // 100us
	// DefaultSpikeThresholdCalibrationNs applies during calibration.
	DefaultSpikeThresholdCalibrationNs = 50_000 // 50us
	// DefaultWarmupSamples is the number of warmup ticks; their samples
	// are still pushed, but they are never counted as spikes.
	DefaultWarmupSamples = 2000
	// maxSyntheticSamplesPerStutter bounds how many synthetic catch-up
	// samples a single phase-lag event may inject.
	maxSyntheticSamplesPerStutter = 10_000
	// bufferFullMilestoneEvery emits a BufferFull event every N drops.
	bufferFullMilestoneEvery = 100
)

// Mode selects Full (SMI correlation active) vs Pure (no MSR access,
// used when the SMI reader is unavailable).
type Mode int

const (
	ModeFull Mode = iota
	ModePure
)

// Params configures the Latency Collector.
type Params struct {
	IntervalNs     int64
	SpikeThreshold int64
	WarmupSamples  uint64
	Mode           Mode
	Calibration    bool
}

// DefaultParams returns spec.md's documented defaults.
func DefaultParams() Params {
	return Params{
		IntervalNs:     DefaultIntervalNs,
		SpikeThreshold: DefaultSpikeThresholdGeneralNs,
		WarmupSamples:  DefaultWarmupSamples,
		Mode:           ModeFull,
	}
}

// LatencyCollector runs the allocation-free hot loop: no heap
// allocation, no locks, no syscalls beyond clock_gettime,
// clock_nanosleep and atomics once the loop has started. The one
// exception is a detected spike in Full mode, which calls the SMI
// Correlator; that takes its RWMutex and may read the MSR (at most once
// per 10ms).
type LatencyCollector struct {
	params     Params
	samples    *storage.Ring[models.LatencySample]
	events     *storage.Ring[models.CollectorEvent]
	correlator *smi.Correlator
	bus        *diagbus.Bus

	state               atomic.Int32
	sampleCount         atomic.Uint64
	spikeCount          atomic.Uint64
	droppedCount        atomic.Uint64
	syntheticCount      atomic.Uint64
	smiCorrelatedSpikes atomic.Uint64
	warmupDone          atomic.Bool

	stop atomic.Bool
}

// New constructs a LatencyCollector. sampleRingCapacity and
// eventRingCapacity size the two SPSC rings it owns exclusively.
func New(params Params, correlator *smi.Correlator, bus *diagbus.Bus, sampleRingCapacity, eventRingCapacity int) *LatencyCollector {
	c := &LatencyCollector{
		params:     params,
		samples:    storage.NewRing[models.LatencySample](sampleRingCapacity),
		events:     storage.NewRing[models.CollectorEvent](eventRingCapacity),
		correlator: correlator,
		bus:        bus,
	}
	c.state.Store(int32(models.StateInitializing))
	return c
}

// Events exposes the event ring for the Event Consumer to drain.
func (c *LatencyCollector) Events() *storage.Ring[models.CollectorEvent] {
	return c.events
}

// Samples exposes the sample ring for the Latency Processor to drain.
func (c *LatencyCollector) Samples() *storage.Ring[models.LatencySample] {
	return c.samples
}

// RequestStop sets the single atomic stop flag the hot loop polls.
// This is the only cross-goroutine signal the loop observes.
func (c *LatencyCollector) RequestStop() {
	c.stop.Store(true)
}

// State returns the current lifecycle state.
func (c *LatencyCollector) State() models.CollectorState {
	return models.CollectorState(c.state.Load())
}

// Snapshot clones the collector's current counters.
func (c *LatencyCollector) Snapshot() *models.MonitoringState {
	return &models.MonitoringState{
		State:                c.State(),
		SampleCount:          c.sampleCount.Load(),
		SpikeCount:           c.spikeCount.Load(),
		SmiCorrelatedSpikes:  c.smiCorrelatedSpikes.Load(),
		DroppedCount:         c.droppedCount.Load(),
		SyntheticSampleCount: c.syntheticCount.Load(),
		WarmupComplete:       c.warmupDone.Load(),
	}
}

// spikeThreshold resolves the active threshold for calibration mode.
func (c *LatencyCollector) spikeThreshold() int64 {
	if c.params.Calibration {
		return DefaultSpikeThresholdCalibrationNs
	}
	if c.params.SpikeThreshold != 0 {
		return c.params.SpikeThreshold
	}
	return DefaultSpikeThresholdGeneralNs
}

// Run executes the hot loop until RequestStop is called. The caller is
// responsible for pinning the OS thread and applying real-time
// scheduling before calling Run (see the tuner package); Run itself
// performs no setup beyond the loop body described in spec.md §4.4.
func (c *LatencyCollector) Run(now func() int64, sleepUntil func(int64)) {
	c.state.Store(int32(models.StateWarmup))
	nextWake := now() + c.params.IntervalNs

	for !c.stop.Load() {
		// Step 1: sleep to next_wake (absolute-time sleep).
		sleepUntil(nextWake)

		// Step 2: read actual time.
		actual := now()

		// Step 3: compute latency.
		latencyNs := actual - nextWake
		if latencyNs < 0 {
			latencyNs = 0
		}

		// Step 5 (phase-lag handling) precedes the real sample so the
		// real tick always represents "now", and synthetic samples
		// represent the ticks that were skipped catching up. The real
		// sample below already accounts for one missed tick, so only
		// lagTicks-1 synthetic samples are needed to cover the rest.
		lagTicks := (actual - nextWake) / c.params.IntervalNs
		if lagTicks > 0 {
			synthetic := lagTicks - 1
			if synthetic > maxSyntheticSamplesPerStutter {
				synthetic = maxSyntheticSamplesPerStutter
			}
			for i := int64(0); i < synthetic; i++ {
				c.pushSample(models.LatencySample{
					TimestampNs: actual,
					LatencyNs:   c.params.IntervalNs,
					Synthetic:   true,
				})
				c.syntheticCount.Add(1)
			}
		}

		// Step 4: push the real sample (single push, not double).
		c.pushSample(models.LatencySample{
			TimestampNs: actual,
			LatencyNs:   latencyNs,
			Synthetic:   false,
		})

		count := c.sampleCount.Add(1)

		// Step 6: warmup -> recording transition fires exactly once,
		// on the (warmup_samples + 1)-th tick.
		if c.State() == models.StateWarmup && count == c.params.WarmupSamples+1 {
			c.state.Store(int32(models.StateRecording))
			c.warmupDone.Store(true)
			c.pushEvent(models.CollectorEvent{Kind: models.EventWarmupComplete, At: time.Now()})
		}

		// Step 7: spike detection + SMI correlation, gated on recording
		// state so warmup ticks never count as spikes.
		if c.State() == models.StateRecording && latencyNs > c.spikeThreshold() {
			c.spikeCount.Add(1)
			correlated := false
			if c.correlator != nil && c.params.Mode == ModeFull {
				correlated = c.correlator.RecordSpike()
			}
			ev := models.CollectorEvent{Kind: models.EventSpike, LatencyNs: latencyNs, At: time.Now()}
			if correlated {
				ev.Kind = models.EventSmiDetected
				c.smiCorrelatedSpikes.Add(1)
			}
			c.pushEvent(ev)
		}

		// Snap nextWake forward past any missed ticks so the loop
		// resumes cadence instead of re-observing the same lag.
		if lagTicks > 0 {
			nextWake += (lagTicks + 1) * c.params.IntervalNs
		} else {
			nextWake += c.params.IntervalNs
		}
	}

	c.state.Store(int32(models.StateStopping))
}

func (c *LatencyCollector) pushSample(s models.LatencySample) {
	if !c.samples.Push(s) {
		dropped := c.droppedCount.Add(1)
		if dropped%bufferFullMilestoneEvery == 0 {
			c.pushEvent(models.CollectorEvent{Kind: models.EventBufferFull, DroppedTotl: dropped, At: time.Now()})
		}
	}
}

func (c *LatencyCollector) pushEvent(e models.CollectorEvent) {
	if !c.events.Push(e) && c.bus != nil {
		c.bus.Send("event ring full, dropping %v", e.Kind)
	}
}
