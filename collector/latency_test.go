package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/madgoathaz/goatd-kernel-telemetry/models"
)

// fakeClock drives the hot loop deterministically: now() returns the
// requested wake time plus a fixed, configurable offset, and sleepUntil
// is a no-op that just advances the simulated clock.
type fakeClock struct {
	t      int64
	jitter int64
	ticks  int
	stopAt int
	onTick func()
}

func (c *fakeClock) now() int64 {
	return c.t
}

func (c *fakeClock) sleepUntil(target int64) {
	c.t = target + c.jitter
	c.ticks++
	if c.onTick != nil {
		c.onTick()
	}
}

func TestWarmupTransitionFiresExactlyOnceAtWarmupPlusOne(t *testing.T) {
	params := DefaultParams()
	params.WarmupSamples = 5
	c := New(params, nil, nil, 1024, 1024)

	clock := &fakeClock{}
	transitions := 0
	clock.onTick = func() {
		if c.State() == models.StateRecording {
			transitions++
		}
		if clock.ticks >= 8 {
			c.RequestStop()
		}
	}
	c.Run(clock.now, clock.sleepUntil)

	assert.Equal(t, uint64(8), c.sampleCount.Load())
	assert.True(t, c.warmupDone.Load())
	snap := c.Snapshot()
	assert.True(t, snap.WarmupComplete)

	// The transition happens on tick 6 (warmup+1), after that tick's
	// onTick call, so only ticks 7 and 8 start in the recording state.
	assert.Equal(t, 2, transitions)
	warmupEvents := 0
	for {
		ev, ok := c.events.Pop()
		if !ok {
			break
		}
		if ev.Kind == models.EventWarmupComplete {
			warmupEvents++
		}
	}
	assert.Equal(t, 1, warmupEvents)
}

func TestNoSpikeWhenLatencyBelowThreshold(t *testing.T) {
	params := DefaultParams()
	params.WarmupSamples = 0
	c := New(params, nil, nil, 1024, 1024)
	clock := &fakeClock{jitter: 10} // 10ns latency, far below 100us threshold
	clock.onTick = func() {
		if clock.ticks >= 5 {
			c.RequestStop()
		}
	}
	c.Run(clock.now, clock.sleepUntil)
	assert.Equal(t, uint64(0), c.spikeCount.Load())
}

func TestSpikeDetectedAboveThreshold(t *testing.T) {
	params := DefaultParams()
	params.WarmupSamples = 0
	params.SpikeThreshold = 1000
	c := New(params, nil, nil, 1024, 1024)
	clock := &fakeClock{jitter: 5000}
	clock.onTick = func() {
		if clock.ticks >= 1 {
			c.RequestStop()
		}
	}
	c.Run(clock.now, clock.sleepUntil)
	assert.Equal(t, uint64(1), c.spikeCount.Load())
}

func TestSampleRingSinglePushPerTick(t *testing.T) {
	params := DefaultParams()
	params.WarmupSamples = 0
	c := New(params, nil, nil, 1024, 1024)
	clock := &fakeClock{}
	clock.onTick = func() {
		if clock.ticks >= 3 {
			c.RequestStop()
		}
	}
	c.Run(clock.now, clock.sleepUntil)
	assert.Equal(t, 3, c.samples.Len())
}
