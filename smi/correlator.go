package smi

import (
	"sync"
	"sync/atomic"
	"time"
)

// minReadIntervalNs bounds how often the synchronous correlator will
// re-read the MSR: re-reading an MSR is itself a syscall and doing it
// on every spike would pollute the very latency measurements it is
// meant to explain.
const minReadIntervalNs = 10_000_000 // 10ms

// Correlator implements the synchronous SMI-correlation path: it holds
// the MSR reader behind a RWMutex and only re-reads when at least
// minReadIntervalNs has elapsed since the last read. spec.md §9 leaves
// the choice between this path and the async Event-Consumer path to the
// implementer; this engine makes the synchronous path authoritative
// because it can attribute a specific spike to a specific SMI delta
// without waiting for the diagnostic bus to drain. See DESIGN.md.
type Correlator struct {
	reader   *Reader
	mu       sync.RWMutex
	baseline uint64
	lastReadAt int64 // unix nanos

	totalSmiCount       *uint64
	smiCorrelatedSpikes *uint64
}

// NewCorrelator constructs a Correlator against reader, seeding the
// baseline with the first read (if available). totalSmiCount and
// smiCorrelatedSpikes are the shared MonitoringState counters the
// Latency Collector publishes; they are updated with Release-ordered
// atomic stores so a concurrent reader never observes a torn update.
func NewCorrelator(reader *Reader, totalSmiCount, smiCorrelatedSpikes *uint64) *Correlator {
	c := &Correlator{
		reader:              reader,
		totalSmiCount:       totalSmiCount,
		smiCorrelatedSpikes: smiCorrelatedSpikes,
	}
	if v, ok := reader.ReadSmiCount(); ok {
		c.baseline = v
	}
	return c
}

// RecordSpike is called by the hot loop when a latency spike is
// detected. It returns true if the spike correlates with a new SMI.
// The very first spike observed while total_smi_count is still zero is
// never counted as correlated, per spec.md §8's boundary behavior.
func (c *Correlator) RecordSpike() bool {
	if c.reader == nil || !c.reader.Available() {
		return false
	}
	now := time.Now().UnixNano()

	c.mu.RLock()
	last := c.lastReadAt
	c.mu.RUnlock()
	if now-last < minReadIntervalNs && last != 0 {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Re-check under the write lock: another goroutine may have read
	// already while we waited for the lock.
	if now-c.lastReadAt < minReadIntervalNs && c.lastReadAt != 0 {
		return false
	}
	current, ok := c.reader.ReadSmiCount()
	c.lastReadAt = now
	if !ok {
		return false
	}

	firstEverRead := atomic.LoadUint64(c.totalSmiCount) == 0 && c.baseline == 0 && current == 0
	delta := current - c.baseline
	c.baseline = current
	if delta == 0 {
		return false
	}
	atomic.AddUint64(c.totalSmiCount, delta)
	if firstEverRead {
		return false
	}
	atomic.AddUint64(c.smiCorrelatedSpikes, 1)
	return true
}

// AsyncSnapshot is the minimal state the Event Consumer's asynchronous
// correlation path compares across CollectorEvents: an embedded SMI
// count taken at spike time, and the previously seen embedded count.
// This path is implemented for completeness (spec.md §4.6 describes
// it) but is not the authoritative one in this engine; see Correlator.
type AsyncSnapshot struct {
	Last uint64
}

// Compare reports whether embedded (the SMI count captured alongside a
// spike event) is greater than the last seen value, updating Last.
func (a *AsyncSnapshot) Compare(embedded uint64) bool {
	correlated := embedded > a.Last
	a.Last = embedded
	return correlated
}
