package collector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/madgoathaz/goatd-kernel-telemetry/diagbus"
	"github.com/madgoathaz/goatd-kernel-telemetry/models"
	"github.com/madgoathaz/goatd-kernel-telemetry/storage"
)

func TestEventConsumerDrainsAndStops(t *testing.T) {
	events := storage.NewRing[models.CollectorEvent](16)
	bus := diagbus.New(16, nil)
	ec := NewEventConsumer(events, bus)

	events.Push(models.CollectorEvent{Kind: models.EventSpike, LatencyNs: 5000})
	go ec.Run()
	time.Sleep(5 * time.Millisecond)
	ec.Stop()

	assert.Equal(t, 0, events.Len())
	bus.Close()
}

func TestAsyncSnapshotComparisonInFormat(t *testing.T) {
	events := storage.NewRing[models.CollectorEvent](4)
	bus := diagbus.New(4, nil)
	ec := NewEventConsumer(events, bus)
	events.Push(models.CollectorEvent{Kind: models.EventSmiDetected, SmiSnapshot: 1})
	events.Push(models.CollectorEvent{Kind: models.EventSmiDetected, SmiSnapshot: 2})
	go ec.Run()
	time.Sleep(5 * time.Millisecond)
	ec.Stop()
	bus.Close()
}
