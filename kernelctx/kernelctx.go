// Package kernelctx auto-detects the host's KernelContext fields from
// live system state, a supplemented feature spec.md's entity definition
// is silent on the mechanism for (see SPEC_FULL.md §4).
package kernelctx

import (
	"os"
	"strconv"
	"strings"

	"github.com/madgoathaz/goatd-kernel-telemetry/models"
)

const unknown = "unknown"

// Detect reads /proc/version, the sched_ext state file and the
// cpufreq governor. The kernel version and governor fall back to
// "unknown", the sched_ext profile to "disabled"; LTO is always false.
func Detect() models.KernelContext {
	return models.KernelContext{
		KernelVersion:   detectKernelVersion(),
		SchedExtProfile: detectSchedExtProfile(),
		LtoEnabled:      detectLTO(),
		CpuGovernor:     detectGovernor(),
	}
}

func detectKernelVersion() string {
	raw, err := os.ReadFile("/proc/version")
	if err != nil {
		return unknown
	}
	fields := strings.Fields(string(raw))
	if len(fields) < 3 {
		return unknown
	}
	return fields[2]
}

func detectSchedExtProfile() string {
	raw, err := os.ReadFile("/sys/kernel/sched_ext/state")
	if err != nil {
		return "disabled"
	}
	return strings.TrimSpace(string(raw))
}

// detectLTO has no reliable sysfs signal on a stock kernel; it is a
// placeholder for distributions that expose a build-flag marker and
// defaults to false rather than guessing.
func detectLTO() bool {
	return false
}

func detectGovernor() string {
	raw, err := os.ReadFile("/sys/devices/system/cpu/cpu0/cpufreq/scaling_governor")
	if err != nil {
		return unknown
	}
	return strings.TrimSpace(string(raw))
}

// Governor returns the active cpufreq governor name and its current
// frequency in MHz, for PerformanceMetrics.GovernorName/GovernorFreqMHz.
// Each falls back independently when cpufreq is unavailable.
func Governor() (name string, freqMHz float64) {
	return detectGovernor(), detectGovernorFreqMHz()
}

func detectGovernorFreqMHz() float64 {
	raw, err := os.ReadFile("/sys/devices/system/cpu/cpu0/cpufreq/scaling_cur_freq")
	if err != nil {
		return 0
	}
	khz, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil {
		return 0
	}
	return khz / 1000.0
}
