package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingPushPop(t *testing.T) {
	r := NewRing[int](4)
	assert.Equal(t, 4, r.Cap())
	assert.True(t, r.Push(1))
	assert.True(t, r.Push(2))
	v, ok := r.Pop()
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	v, ok = r.Pop()
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	_, ok = r.Pop()
	assert.False(t, ok)
}

func TestRingRoundsCapacityUpToPowerOfTwo(t *testing.T) {
	r := NewRing[int](5)
	assert.Equal(t, 8, r.Cap())
}

func TestRingPushFailsWhenFull(t *testing.T) {
	r := NewRing[int](2)
	assert.True(t, r.Push(1))
	assert.True(t, r.Push(2))
	assert.False(t, r.Push(3))
	assert.Equal(t, 2, r.Len())
}

func TestRingFIFOOrderUnderInterleaving(t *testing.T) {
	r := NewRing[int](4)
	r.Push(1)
	r.Push(2)
	v, _ := r.Pop()
	assert.Equal(t, 1, v)
	r.Push(3)
	r.Push(4)
	for _, want := range []int{2, 3, 4} {
		got, ok := r.Pop()
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
}
