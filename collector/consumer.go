package collector

import (
	"fmt"
	"time"

	"github.com/madgoathaz/goatd-kernel-telemetry/diagbus"
	"github.com/madgoathaz/goatd-kernel-telemetry/models"
	"github.com/madgoathaz/goatd-kernel-telemetry/smi"
	"github.com/madgoathaz/goatd-kernel-telemetry/storage"
)

const consumerIdleSleep = 100 * time.Microsecond

// EventConsumer drains a LatencyCollector's event ring and formats each
// CollectorEvent into a diagnostic string on the Diagnostic Bus. It
// sleeps briefly when the ring is empty instead of spinning.
type EventConsumer struct {
	events *storage.Ring[models.CollectorEvent]
	bus    *diagbus.Bus
	async  smi.AsyncSnapshot
	stop   chan struct{}
	done   chan struct{}
}

// NewEventConsumer constructs a consumer for events.
func NewEventConsumer(events *storage.Ring[models.CollectorEvent], bus *diagbus.Bus) *EventConsumer {
	return &EventConsumer{
		events: events,
		bus:    bus,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Run drains the ring until Stop is called, formatting every event it
// sees. It recovers from a panic in formatting so a malformed event
// can never take down the process.
func (ec *EventConsumer) Run() {
	defer close(ec.done)
	defer func() {
		if r := recover(); r != nil && ec.bus != nil {
			ec.bus.Send("event consumer recovered from panic: %v", r)
		}
	}()
	for {
		select {
		case <-ec.stop:
			ec.drainRemaining()
			return
		default:
		}
		ev, ok := ec.events.Pop()
		if !ok {
			time.Sleep(consumerIdleSleep)
			continue
		}
		ec.format(ev)
	}
}

func (ec *EventConsumer) drainRemaining() {
	for {
		ev, ok := ec.events.Pop()
		if !ok {
			return
		}
		ec.format(ev)
	}
}

func (ec *EventConsumer) format(ev models.CollectorEvent) {
	if ec.bus == nil {
		return
	}
	switch ev.Kind {
	case models.EventSpike:
		ec.bus.Send("spike: %s latency", formatDuration(ev.LatencyNs))
	case models.EventSmiDetected:
		correlated := ec.async.Compare(ev.SmiSnapshot)
		ec.bus.Send("spike: %s latency, smi_correlated=%v", formatDuration(ev.LatencyNs), correlated)
	case models.EventBufferFull:
		ec.bus.Send("sample ring saturated, dropped_total=%d", ev.DroppedTotl)
	case models.EventStatus:
		ec.bus.Send("status: %s", ev.Message)
	case models.EventWarmupComplete:
		ec.bus.Send("warmup complete, recording started")
	case models.EventFlush:
		ec.bus.Send("flush requested")
	}
}

func formatDuration(ns int64) string {
	return fmt.Sprintf("%.2fus", float64(ns)/1000.0)
}

// Stop signals the consumer to drain what remains and exit, then blocks
// until it has.
func (ec *EventConsumer) Stop() {
	close(ec.stop)
	<-ec.done
}
