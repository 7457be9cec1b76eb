// Package stressor runs the three worker families the Benchmark
// Orchestrator uses to load the system while the Latency Collector
// measures the effect: CPU, Memory and Scheduler stressors.
package stressor

import (
	"context"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Kind enumerates the three stressor worker families.
type Kind int

const (
	KindCPU Kind = iota
	KindMemory
	KindScheduler
)

// String returns the stressor family's lowercase name.
func (k Kind) String() string {
	switch k {
	case KindCPU:
		return "cpu"
	case KindMemory:
		return "memory"
	case KindScheduler:
		return "scheduler"
	default:
		return "unknown"
	}
}

const (
	memLCGMultiplier = 0x5851F42D4C957F2D
	memLCGIncrement  = 0x14057B7EF767814F
	matrixDim        = 64
)

// Manager runs a set of stressor workers at a given intensity,
// inverting CPU affinity relative to the measurement core and lowering
// scheduling priority so stressors never preempt the hot loop.
type Manager struct {
	measurementCore int
	wg              sync.WaitGroup
}

// NewManager constructs a Manager that keeps stressor workers off
// measurementCore.
func NewManager(measurementCore int) *Manager {
	return &Manager{measurementCore: measurementCore}
}

// Intensity clamps a raw value to [0, 100], per spec.md §4.10.
func Intensity(v int) uint8 {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return uint8(v)
}

// Start launches worker goroutines for the given kinds at the given
// intensity, running until ctx is cancelled.
func (m *Manager) Start(ctx context.Context, kinds []Kind, intensity uint8) {
	intensity = Intensity(int(intensity))
	for _, k := range kinds {
		k := k
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.setupWorkerThread()
			switch k {
			case KindCPU:
				cpuWorker(ctx, intensity)
			case KindMemory:
				memoryWorker(ctx, intensity)
			case KindScheduler:
				schedulerWorker(ctx, intensity)
			}
		}()
	}
}

// Wait blocks until every started worker has returned (i.e. its ctx
// was cancelled and it observed that).
func (m *Manager) Wait() {
	m.wg.Wait()
}

// setupWorkerThread inverts affinity away from the measurement core and
// lowers this worker's scheduling priority so it never competes with
// the hot loop for the CPU or the scheduler's attention.
func (m *Manager) setupWorkerThread() {
	runtime.LockOSThread()
	n := runtime.NumCPU()
	var set unix.CPUSet
	set.Zero()
	for i := 0; i < n; i++ {
		if i != m.measurementCore {
			set.Set(i)
		}
	}
	_ = unix.SchedSetaffinity(0, &set)
	_ = unix.Setpriority(unix.PRIO_PROCESS, 0, 19)
	// SCHED_IDLE keeps stressors from starving real workloads; failure
	// here (e.g. missing CAP_SYS_NICE) is tolerated.
	_ = unix.SchedSetscheduler(0, unix.SCHED_IDLE, &unix.SchedParam{})
}

// cpuWorker repeatedly multiplies two deterministically-initialized
// 64x64 matrices, writing every output cell with an atomic store into
// the local result matrix to defeat dead-store elimination, then burns
// intensity_factor*10000 scalar transcendental ops per round, per
// spec.md §4.10.
func cpuWorker(ctx context.Context, intensity uint8) {
	var a, b [matrixDim][matrixDim]float64
	for i := 0; i < matrixDim; i++ {
		for j := 0; j < matrixDim; j++ {
			a[i][j] = math.Sin(float64(i * j))
			b[i][j] = math.Cos(float64(i + j))
		}
	}
	var c [matrixDim][matrixDim]float64
	intensityFactor := float64(intensity) / 100.0
	transcendentalOps := int(intensityFactor * 10_000)
	var scratch float64
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		for i := 0; i < matrixDim; i++ {
			for j := 0; j < matrixDim; j++ {
				var sum float64
				for k := 0; k < matrixDim; k++ {
					sum += a[i][k] * b[k][j]
				}
				volatileStoreMatrixCell(&c[i][j], sum)
			}
		}
		x := c[0][0]
		for i := 0; i < transcendentalOps; i++ {
			x = math.Sqrt(math.Abs(math.Sin(x) + math.Cos(x)))
			volatileStoreFloat(&scratch, x)
		}
	}
}

// volatileStoreMatrixCell and volatileStoreFloat route every output
// write through atomic.StoreUint64 on the float's bits (via unsafe) so the
// compiler cannot prove the stressor's work is dead and elide it; Go
// has no true volatile keyword, so this is the closest idiomatic
// equivalent to the documented write_volatile.
func volatileStoreMatrixCell(dst *float64, v float64) {
	atomic.StoreUint64((*uint64)(unsafe.Pointer(dst)), math.Float64bits(v))
}

func volatileStoreFloat(dst *float64, v float64) {
	atomic.StoreUint64((*uint64)(unsafe.Pointer(dst)), math.Float64bits(v))
}

// memoryWorker walks a buffer sized 8MiB plus intensity_factor*56MiB,
// advancing through it with the documented 64-bit LCG and writing one
// byte per iteration, per spec.md §4.10.
func memoryWorker(ctx context.Context, intensity uint8) {
	intensityFactor := float64(intensity) / 100.0
	bufSize := int(8*1024*1024 + intensityFactor*56*1024*1024)
	if bufSize < 1 {
		bufSize = 1
	}
	buf := make([]byte, bufSize)
	var state uint64 = 0x123456789ABCDEF0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		for i := 0; i < 100_000; i++ {
			state = state*memLCGMultiplier + memLCGIncrement
			idx := int(state % uint64(bufSize))
			buf[idx] = byte(state)
		}
		runtime.KeepAlive(buf)
	}
}

// schedulerWorker repeatedly spawns batches of max(1, intensity*0.2)
// goroutines; each does yield_now, 1000 volatile writes to a
// single-byte scratch, yield_now, then the batch joins, per spec.md
// §4.10.
func schedulerWorker(ctx context.Context, intensity uint8) {
	batch := int(math.Max(1, float64(intensity)*0.2))
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		var wg sync.WaitGroup
		for i := 0; i < batch; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				runtime.Gosched()
				var scratch uint32
				for n := 0; n < 1000; n++ {
					atomic.StoreUint32(&scratch, uint32(n))
				}
				runtime.Gosched()
			}()
		}
		wg.Wait()
	}
}
