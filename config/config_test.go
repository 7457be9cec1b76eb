package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadCreatesDefaultConfigWhenMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	m := &Manager{}
	cfg, err := m.Load(path)
	assert.NoError(t, err)
	assert.Equal(t, int64(1_000_000), cfg.Collector.IntervalNs)
	assert.Equal(t, uint64(2000), cfg.Collector.WarmupSamples)
}

func TestValidateCatchesNonPositiveInterval(t *testing.T) {
	cfg := Config{
		Collector: CollectorConfig{IntervalNs: 0, SampleRingCapacity: 1},
		Benchmark: BenchmarkConfig{PhaseDurationSecs: 10},
		Watchdog:  WatchdogConfig{TimeoutSecs: 30},
		Logging:   LoggingConfig{Level: "info"},
	}
	errs := cfg.Validate()
	assert.NotEmpty(t, errs)
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := Config{
		Collector: CollectorConfig{IntervalNs: 1, SampleRingCapacity: 1},
		Benchmark: BenchmarkConfig{PhaseDurationSecs: 10},
		Watchdog:  WatchdogConfig{TimeoutSecs: 30},
		Logging:   LoggingConfig{Level: "verbose"},
	}
	errs := cfg.Validate()
	assert.NotEmpty(t, errs)
}

func TestGetManagerReturnsSameSingleton(t *testing.T) {
	assert.Same(t, GetManager(), GetManager())
}
