package smi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAsyncSnapshotFirstSpikeNotCorrelated(t *testing.T) {
	var a AsyncSnapshot
	assert.False(t, a.Compare(0))
}

func TestAsyncSnapshotDetectsIncrease(t *testing.T) {
	var a AsyncSnapshot
	a.Compare(5)
	assert.True(t, a.Compare(6))
	assert.False(t, a.Compare(6))
}

func TestCorrelatorDisabledReaderNeverCorrelates(t *testing.T) {
	disabled := &Reader{}
	var total, correlated uint64
	c := NewCorrelator(disabled, &total, &correlated)
	assert.False(t, c.RecordSpike())
	assert.Equal(t, uint64(0), total)
	assert.Equal(t, uint64(0), correlated)
}
