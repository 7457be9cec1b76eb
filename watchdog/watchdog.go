// Package watchdog guards a benchmark run against a stuck or crashed
// measurement thread: if no heartbeat arrives within Timeout, it
// force-thaws the freezer cgroup so the host is never left frozen.
package watchdog

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/madgoathaz/goatd-kernel-telemetry/freezer"
)

const (
	defaultPollInterval = 100 * time.Millisecond
	defaultTimeout      = 30 * time.Second
	watchdogSchedFifo   = 99
)

// Watchdog polls a heartbeat counter and force-thaws on timeout.
type Watchdog struct {
	cgroupDir    string
	timeout      time.Duration
	pollInterval time.Duration

	heartbeat atomic.Uint64
	lastSeen  atomic.Uint64 // last heartbeat value observed, unix nanos of that observation
	lastSeenAt atomic.Int64

	stop chan struct{}
	wg   sync.WaitGroup

	emergencyThaws atomic.Uint64
}

// New constructs a Watchdog for the freezer cgroup at cgroupDir.
func New(cgroupDir string) *Watchdog {
	w := &Watchdog{
		cgroupDir:    cgroupDir,
		timeout:      defaultTimeout,
		pollInterval: defaultPollInterval,
		stop:         make(chan struct{}),
	}
	w.lastSeenAt.Store(time.Now().UnixNano())
	return w
}

// Heartbeat is called by the monitored thread to prove liveness. The
// counter saturates rather than wrapping into undefined behavior.
func (w *Watchdog) Heartbeat() {
	for {
		v := w.heartbeat.Load()
		if v == ^uint64(0) {
			return
		}
		if w.heartbeat.CompareAndSwap(v, v+1) {
			return
		}
	}
}

// Start begins polling at pollInterval on a dedicated goroutine, which
// locks itself to its OS thread and applies SCHED_FIFO priority 99 to
// that thread (best-effort) before entering the poll loop.
func (w *Watchdog) Start() {
	w.wg.Add(1)
	go w.run()
}

func (w *Watchdog) run() {
	defer w.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	_ = unix.SchedSetscheduler(0, unix.SCHED_FIFO, &unix.SchedParam{Priority: watchdogSchedFifo})

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	var lastCount uint64

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			current := w.heartbeat.Load()
			if current != lastCount {
				lastCount = current
				w.lastSeenAt.Store(time.Now().UnixNano())
				continue
			}
			if time.Duration(time.Now().UnixNano()-w.lastSeenAt.Load()) > w.timeout {
				_ = freezer.EmergencyThaw(w.cgroupDir)
				w.emergencyThaws.Add(1)
				w.lastSeenAt.Store(time.Now().UnixNano())
			}
		}
	}
}

// Stop signals the poller and waits for it to exit. No further writes
// to the cgroup happen after Stop returns.
func (w *Watchdog) Stop() {
	close(w.stop)
	w.wg.Wait()
}

// EmergencyThaws reports how many times the watchdog force-thawed.
func (w *Watchdog) EmergencyThaws() uint64 {
	return w.emergencyThaws.Load()
}
