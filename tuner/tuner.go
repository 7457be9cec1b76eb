// Package tuner applies the real-time scheduling environment the
// Latency Collector's hot loop needs: locked memory, a prefaulted
// stack, CPU pinning, SCHED_FIFO priority and a held PM-QoS latency
// constraint.
package tuner

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const (
	pmQosDevicePath  = "/dev/cpu_dma_latency"
	schedFifoPriority = 80
	prefaultStackBytes = 8192
	prefaultPageSize   = 4096
)

// PmQosGuard holds the PM-QoS latency-constraint device open for the
// process's lifetime; closing it releases the constraint. spec.md §5
// names the Tuner as this resource's sole owner.
type PmQosGuard struct {
	f *os.File
}

// OpenPmQos opens /dev/cpu_dma_latency and writes a 32-bit zero to
// request the strictest latency constraint available. Failure here is
// a warning, not an error: spec.md §4.2 step 5 degrades gracefully.
func OpenPmQos() (*PmQosGuard, error) {
	f, err := os.OpenFile(pmQosDevicePath, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open pm_qos device: %w", err)
	}
	var zero [4]byte
	if _, err := f.Write(zero[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("write pm_qos constraint: %w", err)
	}
	return &PmQosGuard{f: f}, nil
}

// Close releases the PM-QoS constraint.
func (g *PmQosGuard) Close() error {
	if g == nil || g.f == nil {
		return nil
	}
	return g.f.Close()
}

// Diagnostics is a channel-shaped sink the Tuner reports warnings to;
// callers pass the Diagnostic Bus's Send function.
type Diagnostics func(format string, args ...any)

// ApplyRealtime applies the real-time environment for the calling
// goroutine's underlying OS thread: mlockall, prefault, pin to core,
// SCHED_FIFO, and (best-effort) PM-QoS. Steps 1/3/4 (mlockall, affinity,
// SCHED_FIFO) are load-bearing and returned as an error; step 5
// (PM-QoS) only ever produces a diagnostic. The caller must have called
// runtime.LockOSThread before invoking this, since affinity and
// scheduling policy are per-OS-thread.
func ApplyRealtime(coreID int, diag Diagnostics) (*PmQosGuard, error) {
	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		return nil, fmt.Errorf("mlockall: %w", err)
	}

	prefaultStack()

	if err := pinToCore(coreID); err != nil {
		return nil, fmt.Errorf("set cpu affinity: %w", err)
	}

	if err := setSchedFifo(schedFifoPriority); err != nil {
		return nil, fmt.Errorf("set SCHED_FIFO: %w", err)
	}

	guard, err := OpenPmQos()
	if err != nil {
		if diag != nil {
			diag("pm_qos unavailable, latency constraint not held: %v", err)
		}
		return nil, nil
	}
	return guard, nil
}

// prefaultStack touches an 8KB buffer at 4KB-page intervals so the
// first hot-loop iterations never take a page fault.
func prefaultStack() {
	var buf [prefaultStackBytes]byte
	for i := 0; i < len(buf); i += prefaultPageSize {
		buf[i] = 0xFF
	}
	// Keep the compiler from proving buf is dead and eliding the
	// writes above.
	runtimeOpaque(buf[:])
}

//go:noinline
func runtimeOpaque(b []byte) {
	_ = b[len(b)-1]
}

func pinToCore(coreID int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(coreID)
	return unix.SchedSetaffinity(0, &set)
}

func setSchedFifo(priority int) error {
	return unix.SchedSetscheduler(0, unix.SCHED_FIFO, &unix.SchedParam{Priority: int32(priority)})
}
