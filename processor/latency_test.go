package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoarseBucketBoundaries(t *testing.T) {
	assert.Equal(t, 0, CoarseBucket(1))
	assert.Equal(t, 19, CoarseBucket(100_000_000))
}

func TestCoarseBucketClampsBelowOne(t *testing.T) {
	assert.Equal(t, CoarseBucket(1), CoarseBucket(0))
	assert.Equal(t, CoarseBucket(1), CoarseBucket(-5))
}

func TestRecordSampleClampsToOne(t *testing.T) {
	p := NewLatencyProcessor()
	p.RecordSample(0)
	snap := p.Snapshot()
	assert.Equal(t, int64(1), snap.MinNs)
}

func TestResetClearsState(t *testing.T) {
	p := NewLatencyProcessor()
	for i := 0; i < 100; i++ {
		p.RecordSample(int64(1000 + i))
	}
	p.Reset()
	snap := p.Snapshot()
	assert.Equal(t, uint64(0), snap.SampleCount)
	assert.Equal(t, 0.0, p.Average())
}

func TestAverageUsesRollingDequeNotHistogram(t *testing.T) {
	p := NewLatencyProcessor()
	p.RecordSample(100)
	p.RecordSample(300)
	assert.InDelta(t, 200.0, p.Average(), 0.001)
}
