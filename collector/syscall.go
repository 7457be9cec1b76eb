package collector

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/madgoathaz/goatd-kernel-telemetry/models"
)

// SyscallSaturationConfig configures the syscall saturation collector.
type SyscallSaturationConfig struct {
	Iterations int
	Runs       int
}

// DefaultSyscallSaturationConfig matches spec.md §4.13's defaults.
func DefaultSyscallSaturationConfig() SyscallSaturationConfig {
	return SyscallSaturationConfig{Iterations: 100_000, Runs: 5}
}

func runSyscallIteration(iterations int) time.Duration {
	start := time.Now()
	for i := 0; i < iterations; i++ {
		unix.Getpid()
	}
	return time.Since(start)
}

// RunSyscallSaturation runs getpid() in a tight loop across Runs
// sequential passes of Iterations each, reporting average/min/max
// per-call latency and a throughput estimate computed against the
// fastest observed run (spec.md §4.13).
func RunSyscallSaturation(cfg SyscallSaturationConfig) models.SyscallSaturationMetrics {
	var minRun, totalNs int64
	var totalCalls int64
	perCallNs := make([]int64, 0, cfg.Runs)

	for r := 0; r < cfg.Runs; r++ {
		d := runSyscallIteration(cfg.Iterations)
		ns := d.Nanoseconds()
		totalNs += ns
		totalCalls += int64(cfg.Iterations)
		perCall := ns / int64(cfg.Iterations)
		perCallNs = append(perCallNs, perCall)
		if minRun == 0 || ns < minRun {
			minRun = ns
		}
	}

	if len(perCallNs) == 0 {
		return models.SyscallSaturationMetrics{}
	}
	minCall, maxCall := perCallNs[0], perCallNs[0]
	for _, v := range perCallNs {
		if v < minCall {
			minCall = v
		}
		if v > maxCall {
			maxCall = v
		}
	}
	avgNs := float64(totalNs) / float64(totalCalls)

	var throughput float64
	if minRun > 0 {
		throughput = float64(cfg.Iterations) / (float64(minRun) / 1e9)
	}

	return models.SyscallSaturationMetrics{
		AvgNs:          avgNs,
		MinNs:          minCall,
		MaxNs:          maxCall,
		TotalCalls:     totalCalls,
		ThroughputPerS: throughput,
	}
}
