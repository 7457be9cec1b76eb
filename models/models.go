// Package models defines the shared data types that flow between the
// collector, processor, benchmark, scoring, archive and snapshot
// packages. Types here are plain data: no goroutines, no I/O.
package models

import "time"

// CollectorState is the Latency Collector's lifecycle state machine.
type CollectorState int

const (
	StateInitializing CollectorState = iota
	StateWarmup
	StateRecording
	StateStopping
)

func (s CollectorState) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateWarmup:
		return "warmup"
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// LatencySample is one hot-loop measurement: the gap between the
// requested wake time and the observed wake time, in nanoseconds.
type LatencySample struct {
	TimestampNs int64 `json:"timestamp_ns"`
	LatencyNs   int64 `json:"latency_ns"`
	Synthetic   bool  `json:"synthetic"`
}

// CollectorEventKind enumerates the six CollectorEvent variants.
type CollectorEventKind int

const (
	EventSpike CollectorEventKind = iota
	EventSmiDetected
	EventBufferFull
	EventStatus
	EventWarmupComplete
	EventFlush
)

// CollectorEvent is a diagnostic event drained by the Event Consumer.
type CollectorEvent struct {
	Kind        CollectorEventKind
	LatencyNs   int64
	SmiSnapshot uint64
	DroppedTotl uint64
	Message     string
	At          time.Time
}

// MonitoringState is the live, atomically-published snapshot of the
// Latency Collector's counters. It is cloned on every publish so a
// reader never observes a half-updated value.
type MonitoringState struct {
	State                CollectorState `json:"state"`
	SampleCount          uint64         `json:"sample_count"`
	SpikeCount           uint64         `json:"spike_count"`
	SmiCorrelatedSpikes  uint64         `json:"smi_correlated_spikes"`
	TotalSmiCount        uint64         `json:"total_smi_count"`
	DroppedCount         uint64         `json:"dropped_count"`
	SyntheticSampleCount uint64         `json:"synthetic_sample_count"`
	WarmupComplete       bool           `json:"warmup_complete"`
}

// Clone returns a deep (here: value) copy safe to hand to a caller that
// does not share the original's lifetime.
func (m *MonitoringState) Clone() *MonitoringState {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}

// PerformanceMetrics is the Latency Processor's derived view: HDR
// percentiles plus the rolling-window statistics, spike/SMI counters,
// jitter history, governor state and thermal readings, per spec.md §3.
type PerformanceMetrics struct {
	CurrentNs              int64      `json:"current_ns"`
	MinNs                  int64      `json:"min_ns"`
	MaxNs                  int64      `json:"max_ns"`
	MeanNs                 float64    `json:"mean_ns"`
	P50Ns                  int64      `json:"p50_ns"`
	P99Ns                  int64      `json:"p99_ns"`
	P999Ns                 int64      `json:"p999_ns"`
	P9999Ns                int64      `json:"p9999_ns"`
	RollingP99Us           float64    `json:"rolling_p99_us"`
	RollingP999Us          float64    `json:"rolling_p999_us"`
	RollingThroughputP99   float64    `json:"rolling_throughput_p99"`
	RollingEfficiencyP99Us float64    `json:"rolling_efficiency_p99_us"`
	RollingConsistencyCV   float64    `json:"rolling_consistency_cv"`
	SampleCount            uint64     `json:"sample_count"`
	CoarseHistogram        [20]uint64 `json:"coarse_histogram"`

	SpikeCount       uint64 `json:"spike_count"`
	SmiCount         uint64 `json:"smi_count"`
	CorrelatedSpikes uint64 `json:"correlated_spikes"`

	JitterHistoryUs []float64 `json:"jitter_history_us"`

	GovernorName    string  `json:"governor_name"`
	GovernorFreqMHz float64 `json:"governor_freq_mhz"`

	CoreTempsC   []float64 `json:"core_temps_c"`
	PackageTempC float64   `json:"package_temp_c"`

	Benchmark *BenchmarkMetrics `json:"benchmark,omitempty"`
}

// MicroJitterMetrics is the Micro-Jitter auxiliary collector's result.
type MicroJitterMetrics struct {
	P9999Us     float64 `json:"p99_99_us"`
	MaxUs       float64 `json:"max_us"`
	AvgUs       float64 `json:"avg_us"`
	SpikeCount  uint64  `json:"spike_count"`
	SampleCount uint64  `json:"sample_count"`
}

// ContextSwitchMetrics is the legacy shape spec.md §9 says to keep:
// P95 is authoritative and is mapped onto the historical p99 field name.
type ContextSwitchMetrics struct {
	MeanRttUs      float64 `json:"mean_rtt_us"`
	MedianRttUs    float64 `json:"median_rtt_us"`
	P99RttUs       float64 `json:"p99_rtt_us"`
	SuccessfulRuns int     `json:"successful_passes"`
}

// SyscallSaturationMetrics is the Syscall Saturation collector's result.
type SyscallSaturationMetrics struct {
	AvgNs           float64 `json:"avg_ns"`
	MinNs           int64   `json:"min_ns"`
	MaxNs           int64   `json:"max_ns"`
	TotalCalls      int64   `json:"total_calls"`
	ThroughputPerS  float64 `json:"throughput_per_s"`
}

// TaskWakeupMetrics is the Task Wake-up collector's result.
type TaskWakeupMetrics struct {
	AvgUs float64 `json:"avg_us"`
	MinUs float64 `json:"min_us"`
	MaxUs float64 `json:"max_us"`
	P99Us float64 `json:"p99_us"`
}

// BenchmarkMetrics aggregates one phase (or the final gauntlet average)
// of a benchmark run.
type BenchmarkMetrics struct {
	MaxUs                float64 `json:"max_us"`
	P99Us                float64 `json:"p99_us"`
	P999Us               float64 `json:"p999_us"`
	AvgUs                float64 `json:"avg_us"`
	RollingP99Us         float64 `json:"rolling_p99_us"`
	RollingP999Us        float64 `json:"rolling_p999_us"`
	RollingConsistencyCV float64 `json:"rolling_consistency_cv"`
	SpikeCount           uint64  `json:"spike_count"`
	SmiCorrelatedSpikes  uint64  `json:"smi_correlated_spikes"`
	Jitter               MicroJitterMetrics       `json:"jitter"`
	ContextSwitch        ContextSwitchMetrics     `json:"context_switch"`
	Syscall              SyscallSaturationMetrics `json:"syscall"`
	TaskWakeup           TaskWakeupMetrics        `json:"task_wakeup"`
	MaxCoreTempC         float64                  `json:"max_core_temp_c"`
	CoreTempsC           []float64                `json:"core_temps_c"`
}

// Clone deep-copies a BenchmarkMetrics, including its one slice field.
func (b *BenchmarkMetrics) Clone() *BenchmarkMetrics {
	if b == nil {
		return nil
	}
	c := *b
	if b.CoreTempsC != nil {
		c.CoreTempsC = append([]float64(nil), b.CoreTempsC...)
	}
	return &c
}

// SessionSummary is the human-facing rollup of one collector session.
type SessionSummary struct {
	DurationSecs   float64             `json:"duration_secs"`
	Metrics        PerformanceMetrics  `json:"metrics"`
	Monitoring     MonitoringState     `json:"monitoring"`
	KernelContext  KernelContext       `json:"kernel_context"`
}

// KernelContext describes the host the measurement was taken on.
type KernelContext struct {
	KernelVersion    string `json:"kernel_version"`
	SchedExtProfile  string `json:"sched_ext_profile"`
	LtoEnabled       bool   `json:"lto_enabled"`
	CpuGovernor      string `json:"cpu_governor"`
}

// PerformanceRecord is one archived collector session.
type PerformanceRecord struct {
	ID        string         `json:"id"`
	Label     string         `json:"label,omitempty"`
	Timestamp int64          `json:"timestamp"`
	Summary   SessionSummary `json:"summary"`
}

// RecordID returns this record's archive identifier.
func (p PerformanceRecord) RecordID() string { return p.ID }

// RecordTimestampMs returns this record's archive timestamp.
func (p PerformanceRecord) RecordTimestampMs() int64 { return p.Timestamp }

// PerformanceRecordMetadata is the cheap-to-parse listing projection of
// a PerformanceRecord: only the fields needed to render a list row.
type PerformanceRecordMetadata struct {
	ID          string `json:"id"`
	Label       string `json:"label,omitempty"`
	Timestamp   int64  `json:"timestamp"`
	DisplayName string `json:"-"`
}

// BenchmarkPhase captures one phase's snapshot inside a BenchmarkRun.
type BenchmarkPhase struct {
	Name      string           `json:"name"`
	StartSecs float64          `json:"start_secs"`
	EndSecs   float64          `json:"end_secs"`
	Metrics   BenchmarkMetrics `json:"metrics"`
}

// ScoringResult is the Scoring Engine's output for one benchmark run.
type ScoringResult struct {
	GoatScore            int                `json:"goat_score"`
	NormalizedMetrics    map[string]float64 `json:"normalized_metrics"`
	Personality          string             `json:"personality"`
	BalancedOverride     bool               `json:"balanced_override"`
	SpecializationIndex  float64            `json:"specialization_index"`
	Brief                string             `json:"brief"`
}

// BenchmarkRun is one archived benchmark session.
type BenchmarkRun struct {
	ID              string           `json:"id"`
	Label           string           `json:"label,omitempty"`
	Timestamp       int64            `json:"timestamp"`
	KernelContext   KernelContext    `json:"kernel_context"`
	Metrics         BenchmarkMetrics `json:"metrics"`
	Scoring         ScoringResult    `json:"scoring"`
	ActiveStressors []string         `json:"active_stressors"`
	DurationSecs    float64          `json:"duration_secs"`
	Phases          []BenchmarkPhase `json:"phases"`
}

// RecordID returns this run's archive identifier.
func (b BenchmarkRun) RecordID() string { return b.ID }

// RecordTimestampMs returns this run's archive timestamp.
func (b BenchmarkRun) RecordTimestampMs() int64 { return b.Timestamp }

// Strip is one row of a Snapshot Projection frame.
type Strip struct {
	Label      string    `json:"label"`
	RawDisplay string    `json:"raw_display"`
	Normalized float64   `json:"normalized"`
	History    []float64 `json:"history"`
	Pulse      float64   `json:"pulse"`
}

// Snapshot is the Snapshot Projection's pure-function output: a
// point-in-time, render-ready view with no side effects.
type Snapshot struct {
	Strips    []Strip `json:"strips"`
	CapturedAt int64  `json:"captured_at"`
}
