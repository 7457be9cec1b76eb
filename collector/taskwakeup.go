package collector

import (
	"math"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/madgoathaz/goatd-kernel-telemetry/models"
)

// TaskWakeupConfig configures the task wake-up collector.
type TaskWakeupConfig struct {
	Iterations int
	WakerCPU   int
	SleeperCPU int
}

// DefaultTaskWakeupConfig matches spec.md §4.13's defaults.
func DefaultTaskWakeupConfig() TaskWakeupConfig {
	return TaskWakeupConfig{Iterations: 1000, WakerCPU: 0, SleeperCPU: 1}
}

// RunTaskWakeup measures spin-wait wake latency between two pinned
// goroutines using an AtomicInt32 flag as a futex-analog: no real futex
// syscall is involved, matching the original's pure spin-wait design.
func RunTaskWakeup(cfg TaskWakeupConfig) models.TaskWakeupMetrics {
	var flag atomic.Int32
	latencies := make([]float64, 0, cfg.Iterations)
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(2)

	var sendTimes [1]int64 // shared scratch, single-writer-then-reader per iteration

	go func() {
		defer wg.Done()
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		pinThread(cfg.SleeperCPU)
		for i := 0; i < cfg.Iterations; i++ {
			for flag.Load() != 1 {
				// busy spin
			}
			recv := time.Now().UnixNano()
			mu.Lock()
			latencies = append(latencies, float64(recv-sendTimes[0])/1000.0)
			mu.Unlock()
			flag.Store(0)
		}
	}()

	go func() {
		defer wg.Done()
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		pinThread(cfg.WakerCPU)
		for i := 0; i < cfg.Iterations; i++ {
			sendTimes[0] = time.Now().UnixNano()
			flag.Store(1)
			for flag.Load() != 0 {
				// busy spin for ack
			}
		}
	}()

	wg.Wait()

	if len(latencies) == 0 {
		return models.TaskWakeupMetrics{}
	}
	sorted := append([]float64(nil), latencies...)
	sort.Float64s(sorted)
	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	idx := int(math.Ceil(float64(len(sorted)-1) * 0.99))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	return models.TaskWakeupMetrics{
		AvgUs: sum / float64(len(sorted)),
		MinUs: sorted[0],
		MaxUs: sorted[len(sorted)-1],
		P99Us: sorted[idx],
	}
}
