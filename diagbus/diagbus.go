// Package diagbus implements the Diagnostic Bus: a bounded, non-
// blocking channel the hot loop and other real-time paths use to emit
// human-readable diagnostics without ever blocking on a full channel or
// taking a lock. A background consumer drains it and forwards to the
// structured logger.
package diagbus

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultCapacity = 1024

// Bus is a bounded, drop-on-full diagnostic channel.
type Bus struct {
	ch       chan string
	stopped  int32
	wg       sync.WaitGroup
	dropped  uint64
}

// New constructs a Bus with the given capacity (defaultCapacity if <=0)
// and starts its background consumer, which formats and forwards every
// message to log at debug level.
func New(capacity int, log *logrus.Logger) *Bus {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	b := &Bus{ch: make(chan string, capacity)}
	b.wg.Add(1)
	go b.consume(log)
	return b
}

func (b *Bus) consume(log *logrus.Logger) {
	defer b.wg.Done()
	for msg := range b.ch {
		if log != nil {
			log.Debug(msg)
		}
	}
}

// Send enqueues a formatted message. It never blocks: if the channel is
// full the message is dropped and the drop counter incremented.
func (b *Bus) Send(format string, args ...any) {
	if atomic.LoadInt32(&b.stopped) != 0 {
		return
	}
	msg := fmt.Sprintf(format, args...)
	select {
	case b.ch <- msg:
	default:
		atomic.AddUint64(&b.dropped, 1)
	}
}

// Dropped returns the number of messages dropped because the bus was
// full.
func (b *Bus) Dropped() uint64 {
	return atomic.LoadUint64(&b.dropped)
}

// Close stops accepting new messages, drains what remains, and waits
// for the consumer goroutine to exit.
func (b *Bus) Close() {
	if !atomic.CompareAndSwapInt32(&b.stopped, 0, 1) {
		return
	}
	close(b.ch)
	b.wg.Wait()
}

// waitEmpty is used by tests that need to observe the consumer draining
// the channel before asserting on side effects.
func (b *Bus) waitEmpty(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if len(b.ch) == 0 {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return len(b.ch) == 0
}
