package collector

import (
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
	"golang.org/x/sys/unix"

	"github.com/madgoathaz/goatd-kernel-telemetry/models"
)

// MicroJitterConfig configures the micro-jitter auxiliary collector.
type MicroJitterConfig struct {
	IntervalUs       int64
	SpikeThresholdUs int64
	DurationSecs     int
}

// DefaultMicroJitterConfig matches spec.md §4.13's defaults.
func DefaultMicroJitterConfig() MicroJitterConfig {
	return MicroJitterConfig{IntervalUs: 50, SpikeThresholdUs: 500, DurationSecs: 10}
}

// RunMicroJitter ticks every IntervalUs for DurationSecs, recording the
// absolute-time wakeup jitter into an HDR histogram at 3 significant
// figures, exactly as the Latency Processor does for the main sample
// stream.
func RunMicroJitter(cfg MicroJitterConfig) models.MicroJitterMetrics {
	hist := hdrhistogram.New(1, 100_000_000, 3)
	intervalNs := cfg.IntervalUs * 1000
	thresholdNs := cfg.SpikeThresholdUs * 1000
	deadline := time.Now().Add(time.Duration(cfg.DurationSecs) * time.Second)

	var ts unix.Timespec
	unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts)
	nextWake := ts.Nano() + intervalNs

	var spikeCount, sampleCount uint64
	for time.Now().Before(deadline) {
		target := unix.Timespec{Sec: nextWake / 1e9, Nsec: nextWake % 1e9}
		unix.ClockNanosleep(unix.CLOCK_MONOTONIC, unix.TIMER_ABSTIME, &target, nil)

		unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts)
		actual := ts.Nano()
		latencyNs := actual - nextWake
		if latencyNs < 0 {
			latencyNs = 0
		}
		_ = hist.RecordValue(latencyNs)
		sampleCount++
		if latencyNs > thresholdNs {
			spikeCount++
		}
		nextWake += intervalNs
	}

	return models.MicroJitterMetrics{
		P9999Us:     float64(hist.ValueAtQuantile(99.99)) / 1000.0,
		MaxUs:       float64(hist.Max()) / 1000.0,
		AvgUs:       hist.Mean() / 1000.0,
		SpikeCount:  spikeCount,
		SampleCount: sampleCount,
	}
}
