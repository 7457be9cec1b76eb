// Package scoring computes the 0-1000 GOAT Score and kernel
// personality classification from a BenchmarkMetrics aggregate.
package scoring

import (
	"fmt"
	"math"

	"github.com/madgoathaz/goatd-kernel-telemetry/models"
)

const (
	weightResponsiveness     = 0.27
	weightConsistency        = 0.18
	weightJitter             = 0.15
	weightThroughput         = 0.10
	weightContextEfficiency  = 0.10
	weightThermal            = 0.10
	weightSmiResilience      = 0.10
)

// clamp restricts v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// piecewiseLinear maps x down from 1.0 at best to 0.0 at worst,
// linearly interpolating in between and clamping outside the range.
func piecewiseLinear(x, best, worst float64) float64 {
	if math.IsNaN(x) {
		return 0.5
	}
	if math.IsInf(x, 1) {
		return 0.0
	}
	if math.IsInf(x, -1) {
		return 1.0
	}
	if x <= best {
		return 1.0
	}
	if x >= worst {
		return 0.0
	}
	return 1.0 - (x-best)/(worst-best)
}

func responsiveness(p99LatencyUs float64) float64 {
	return piecewiseLinear(p99LatencyUs, 50, 500)
}

func consistency(cv float64) float64 {
	if math.IsNaN(cv) || math.IsInf(cv, 0) {
		return 0.5
	}
	return clamp(1-(cv-0.05)/0.25, 0.001, 1.0)
}

func jitter(p9999Us float64) float64 {
	return piecewiseLinear(p9999Us, 200, 1000)
}

func throughput(callsPerSec float64) float64 {
	// Higher is better: invert the piecewise-linear sense by mapping
	// through its complement around the reference/worst bounds.
	if callsPerSec <= 0 {
		return 0.5
	}
	return piecewiseLinear(-callsPerSec, -1_000_000, -100_000)
}

func contextEfficiency(rttUs float64) float64 {
	return piecewiseLinear(rttUs, 150, 500)
}

func thermal(maxTempC float64) float64 {
	if maxTempC <= 40 {
		return 1.0
	}
	if maxTempC <= 80 {
		return 1.0 - (maxTempC-40)/40*0.9
	}
	// Steeper slope above 80C, floored at 0.001.
	v := 0.10 - (maxTempC-80)*0.02
	return clamp(v, 0.001, 0.10)
}

// Responsiveness exposes the p99-latency normalization for live
// (non-benchmark) snapshot scoring, per spec.md §4.17.
func Responsiveness(p99LatencyUs float64) float64 { return responsiveness(p99LatencyUs) }

// Consistency exposes the coefficient-of-variation normalization for
// live snapshot scoring.
func Consistency(cv float64) float64 { return consistency(cv) }

// Jitter exposes the p99.99-microsecond normalization for live
// snapshot scoring, usable against either the aux Micro-Jitter
// collector's output or the Latency Processor's own p99.99.
func Jitter(p9999Us float64) float64 { return jitter(p9999Us) }

// Thermal exposes the max-core-temperature normalization for live
// snapshot scoring.
func Thermal(maxTempC float64) float64 { return thermal(maxTempC) }

func smiResilience(correlated, totalSpikes uint64) float64 {
	if totalSpikes == 0 {
		return 1.0
	}
	if correlated == 0 {
		return 0.0
	}
	return clamp(1-float64(correlated)/float64(totalSpikes), 0, 1)
}

// Score computes the full ScoringResult from one BenchmarkMetrics
// aggregate, per spec.md §4.15's exact formulas.
func Score(m models.BenchmarkMetrics) models.ScoringResult {
	metrics := map[string]float64{
		"responsiveness":      responsiveness(m.P99Us),
		"consistency":         consistency(m.RollingConsistencyCV),
		"jitter":              jitter(m.Jitter.P9999Us),
		"throughput":          throughputOrMissing(m),
		"context_efficiency":  contextEfficiencyOrMissing(m),
		"thermal":             thermalOrMissing(m),
		"smi_resilience":      smiResilience(m.SmiCorrelatedSpikes, m.SpikeCount),
	}

	weighted := metrics["responsiveness"]*weightResponsiveness +
		metrics["consistency"]*weightConsistency +
		metrics["jitter"]*weightJitter +
		metrics["throughput"]*weightThroughput +
		metrics["context_efficiency"]*weightContextEfficiency +
		metrics["thermal"]*weightThermal +
		metrics["smi_resilience"]*weightSmiResilience

	goatScore := int(math.Round(math.Min(1.0, weighted) * 1000))

	personality, override, specialization, primaryLabel := classify(metrics)

	return models.ScoringResult{
		GoatScore:           goatScore,
		NormalizedMetrics:   metrics,
		Personality:         personality,
		BalancedOverride:    override,
		SpecializationIndex: specialization,
		Brief:               brief(personality, goatScore, primaryLabel),
	}
}

func throughputOrMissing(m models.BenchmarkMetrics) float64 {
	if m.Syscall.ThroughputPerS <= 0 {
		return 0.5
	}
	return throughput(m.Syscall.ThroughputPerS)
}

func contextEfficiencyOrMissing(m models.BenchmarkMetrics) float64 {
	if m.ContextSwitch.P99RttUs <= 0 {
		return 0.5
	}
	return contextEfficiency(m.ContextSwitch.P99RttUs)
}

func thermalOrMissing(m models.BenchmarkMetrics) float64 {
	if len(m.CoreTempsC) == 0 {
		return 0.5
	}
	return thermal(m.MaxCoreTempC)
}

var metricToPersonality = map[string]string{
	"responsiveness":     "Gaming",
	"jitter":             "RealTime",
	"throughput":         "Throughput",
	"thermal":            "Workstation",
	"context_efficiency": "Server",
}

// classify identifies the dominant normalized metric and maps it to a
// personality, applying the Balanced override when the primary metric
// is within 10 (on the 0-100 scale) of the average of all seven.
func classify(metrics map[string]float64) (personality string, override bool, specialization float64, primaryLabel string) {
	var primary string
	var primaryVal float64 = -1
	var sum float64
	n := 0
	for k, v := range metrics {
		sum += v
		n++
		if v > primaryVal {
			primaryVal = v
			primary = k
		}
	}
	avg := sum / float64(n)
	avgScaled := avg * 100
	primaryScaled := primaryVal * 100

	specialization = clamp((primaryScaled-avgScaled)/math.Max(avgScaled, 1e-9)*100, 0, 100)

	if math.Abs(primaryScaled-avgScaled) < 10 {
		return "Balanced", true, specialization, primary
	}

	if p, ok := metricToPersonality[primary]; ok {
		return p, false, specialization, primary
	}
	return "Balanced", false, specialization, primary
}

func scoreBand(score int) string {
	switch {
	case score >= 850:
		return "exceptional"
	case score >= 750:
		return "outstanding"
	case score >= 650:
		return "excellent"
	case score >= 550:
		return "very good"
	case score >= 450:
		return "good"
	case score >= 350:
		return "solid"
	case score >= 250:
		return "fair"
	default:
		return "needs improvement"
	}
}

var personalitySymbol = map[string]string{
	"Gaming":      "🎮",
	"RealTime":    "⚡",
	"Workstation": "💼",
	"Throughput":  "🚀",
	"Balanced":    "⚖️",
	"Server":      "🖥️",
}

var personalityDisplayName = map[string]string{
	"Gaming":      "Gaming",
	"RealTime":    "Real-Time",
	"Workstation": "Workstation",
	"Throughput":  "Throughput",
	"Balanced":    "Balanced",
	"Server":      "Server",
}

func brief(personality string, score int, primaryMetric string) string {
	return fmt.Sprintf("%s%s kernel, %s performance (%s)",
		personalityDisplayName[personality], personalitySymbol[personality], scoreBand(score), primaryMetric)
}
