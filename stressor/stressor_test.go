package stressor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIntensityClampsAboveHundred(t *testing.T) {
	assert.Equal(t, uint8(100), Intensity(150))
}

func TestIntensityClampsBelowZero(t *testing.T) {
	assert.Equal(t, uint8(0), Intensity(-10))
}

func TestManagerStartAndStopViaContext(t *testing.T) {
	m := NewManager(0)
	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx, []Kind{KindCPU, KindMemory, KindScheduler}, 10)
	time.Sleep(5 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		m.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("workers did not stop after context cancellation")
	}
}
