// Package controller implements the Controller Facade: the sole public
// API surface over the collector, tuner, stressors, freezer, watchdog,
// benchmark orchestrator, scoring engine and archive, exposed as a
// three-state machine (Idle -> Running -> Completed).
package controller

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/madgoathaz/goatd-kernel-telemetry/archive"
	"github.com/madgoathaz/goatd-kernel-telemetry/benchmark"
	"github.com/madgoathaz/goatd-kernel-telemetry/collector"
	"github.com/madgoathaz/goatd-kernel-telemetry/config"
	"github.com/madgoathaz/goatd-kernel-telemetry/diagbus"
	"github.com/madgoathaz/goatd-kernel-telemetry/freezer"
	"github.com/madgoathaz/goatd-kernel-telemetry/kernelctx"
	"github.com/madgoathaz/goatd-kernel-telemetry/logger"
	"github.com/madgoathaz/goatd-kernel-telemetry/models"
	"github.com/madgoathaz/goatd-kernel-telemetry/processor"
	"github.com/madgoathaz/goatd-kernel-telemetry/scoring"
	"github.com/madgoathaz/goatd-kernel-telemetry/smi"
	"github.com/madgoathaz/goatd-kernel-telemetry/stressor"
	"github.com/madgoathaz/goatd-kernel-telemetry/thermal"
	"github.com/madgoathaz/goatd-kernel-telemetry/tuner"
	"github.com/madgoathaz/goatd-kernel-telemetry/watchdog"
)

// State is the Controller Facade's lifecycle state.
type State int

const (
	Idle State = iota
	Running
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Controller is the sole public entry point this engine exposes. Every
// other package is wired together here and never touched directly by
// callers (the CLI, or an embedding program).
type Controller struct {
	mu    sync.Mutex
	state atomic.Int32

	cfg             config.CollectorConfig
	measurementCore int

	bus        *diagbus.Bus
	lat        *collector.LatencyCollector
	consumer   *collector.EventConsumer
	proc       *processor.LatencyProcessor
	window     *processor.RollingWindow
	correlator *smi.Correlator
	thermalRdr *thermal.Reader

	prevLatencyUs float64

	perfStore  *archive.Store[models.PerformanceRecord]
	benchStore *archive.Store[models.BenchmarkRun]

	latestScoring unsafe.Pointer // *models.ScoringResult
	latestBench   unsafe.Pointer // *models.BenchmarkMetrics

	pmQos  *tuner.PmQosGuard
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New wires a Controller from a loaded Config, constructing its own
// diagnostic bus, collector, SMI correlator, processor and the two
// archive stores the Run Archive names.
func New(cfg *config.Config) *Controller {
	c := &Controller{
		cfg:             cfg.Collector,
		measurementCore: cfg.Collector.MeasurementCore,
		bus:             diagbus.New(0, logger.Get().Logger),
		proc:            processor.NewLatencyProcessor(),
		window:          processor.NewRollingWindow(),
		thermalRdr:      thermal.NewReader(),
		perfStore:       archive.NewStore[models.PerformanceRecord](cfg.Archive.PerformanceSubpath, "perf_record"),
		benchStore:      archive.NewStore[models.BenchmarkRun](cfg.Archive.BenchmarkSubpath, "run"),
	}

	c.proc.AttachThermal(c.thermalRdr)
	c.proc.AttachGovernor(kernelctx.Governor)

	reader, diagMsg := smi.NewReader(0)
	if diagMsg != "" {
		c.bus.Send(diagMsg)
	}
	var total, correlatedCounter uint64
	c.correlator = smi.NewCorrelator(reader, &total, &correlatedCounter)

	params := collector.Params{
		IntervalNs:     cfg.Collector.IntervalNs,
		SpikeThreshold: cfg.Collector.SpikeThresholdGeneralNs,
		WarmupSamples:  cfg.Collector.WarmupSamples,
		Mode:           collector.ModeFull,
	}
	if !reader.Available() {
		params.Mode = collector.ModePure
	}
	c.lat = collector.New(params, c.correlator, c.bus, cfg.Collector.SampleRingCapacity, cfg.Collector.EventRingCapacity)
	c.consumer = collector.NewEventConsumer(c.lat.Events(), c.bus)
	c.state.Store(int32(Idle))
	return c
}

// State returns the current facade state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Start transitions Idle -> Running: it launches the event consumer,
// the drain goroutine that feeds completed samples into the Latency
// Processor and Rolling Window, and the hot loop itself, pinned to the
// measurement core with SCHED_FIFO priority via the Tuner.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() != Idle {
		return fmt.Errorf("controller: cannot start from state %s", c.State())
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.state.Store(int32(Running))

	go c.consumer.Run()

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		guard, err := tuner.ApplyRealtime(c.measurementCore, c.bus.Send)
		if err != nil {
			c.bus.Send("real-time tuning unavailable, running best-effort: %v", err)
		} else {
			c.pmQos = guard
		}
		c.lat.Run(monotonicNow, sleepUntil)
	}()
	go func() {
		defer c.wg.Done()
		c.drainSamples(ctx)
	}()
	return nil
}

func (c *Controller) drainSamples(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s, ok := c.lat.Samples().Pop()
		if !ok {
			time.Sleep(100 * time.Microsecond)
			continue
		}
		c.proc.RecordSample(s.LatencyNs)
		latencyUs := float64(s.LatencyNs) / 1000.0
		c.window.AddLatency(latencyUs)
		c.window.AddConsistency(math.Abs(latencyUs - c.prevLatencyUs))
		c.prevLatencyUs = latencyUs
	}
}

// Stop transitions Running -> Completed, stopping the hot loop and
// event consumer and waiting for both to exit, releasing the PM-QoS
// constraint the Tuner may be holding.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() != Running {
		return fmt.Errorf("controller: cannot stop from state %s", c.State())
	}
	c.lat.RequestStop()
	c.cancel()
	c.wg.Wait()
	c.consumer.Stop()
	_ = c.pmQos.Close()
	c.state.Store(int32(Completed))
	return nil
}

// CurrentSnapshot exposes the current PerformanceMetrics view.
func (c *Controller) CurrentSnapshot() models.PerformanceMetrics {
	return c.LatestPerformance()
}

// LatestPerformance satisfies snapshot.Source. It composes the Latency
// Processor's histogram/thermal/governor view with the counters the
// Latency Collector and Rolling Window own, per spec.md §3's
// PerformanceMetrics field list.
func (c *Controller) LatestPerformance() models.PerformanceMetrics {
	m := c.proc.Snapshot()
	mon := c.lat.Snapshot()
	m.SpikeCount = mon.SpikeCount
	m.SmiCount = mon.TotalSmiCount
	m.CorrelatedSpikes = mon.SmiCorrelatedSpikes
	m.RollingP99Us = c.window.LatencyP99()
	m.RollingP999Us = c.window.LatencyP999()
	m.RollingThroughputP99 = c.window.ThroughputP99()
	m.RollingEfficiencyP99Us = c.window.EfficiencyP99()
	m.RollingConsistencyCV = c.window.ConsistencyCV()
	return m
}

// LatestMonitoring satisfies snapshot.Source.
func (c *Controller) LatestMonitoring() models.MonitoringState {
	return *c.lat.Snapshot()
}

// LatestBenchmark satisfies snapshot.Source.
func (c *Controller) LatestBenchmark() (models.BenchmarkMetrics, bool) {
	p := (*models.BenchmarkMetrics)(atomic.LoadPointer(&c.latestBench))
	if p == nil {
		return models.BenchmarkMetrics{}, false
	}
	return *p, true
}

// LatestScoring satisfies snapshot.Source.
func (c *Controller) LatestScoring() (models.ScoringResult, bool) {
	p := (*models.ScoringResult)(atomic.LoadPointer(&c.latestScoring))
	if p == nil {
		return models.ScoringResult{}, false
	}
	return *p, true
}

// CurrentSummary builds a SessionSummary from the current collector
// state, for display or archival without running a full benchmark.
func (c *Controller) CurrentSummary(durationSecs float64) models.SessionSummary {
	return models.SessionSummary{
		DurationSecs:  durationSecs,
		Metrics:       c.LatestPerformance(),
		Monitoring:    *c.lat.Snapshot(),
		KernelContext: kernelctx.Detect(),
	}
}

// RunBenchmark runs the fixed six-phase gauntlet. During each phase it
// drives the stressor Manager and uses the corresponding auxiliary
// collector run as the phase's own wall-clock sleep: the Micro-Jitter
// collector's DurationSecs IS the phase duration, so phase timing and
// jitter measurement share one blocking call rather than two.
// Non-essential host processes are frozen for the run's duration via
// the cgroup Freezer, guarded by the Watchdog against a stuck thaw.
func (c *Controller) RunBenchmark(ctx context.Context) models.BenchmarkRun {
	fz := freezer.New()
	frozen := false
	if err := fz.Setup(); err == nil {
		for _, w := range fz.MigrateEligible() {
			c.bus.Send("freezer: %s", w)
		}
		if err := fz.Freeze(); err == nil {
			frozen = true
		}
	}
	wd := watchdog.New(fz.Dir())
	if frozen {
		wd.Start()
	}

	mgr := stressor.NewManager(c.measurementCore)
	measure := func(ctx context.Context, d time.Duration) models.BenchmarkMetrics {
		if frozen {
			wd.Heartbeat()
		}
		durationSecs := int(d.Seconds())
		if durationSecs < 1 {
			durationSecs = 1
		}
		jitterCfg := collector.DefaultMicroJitterConfig()
		jitterCfg.DurationSecs = durationSecs
		jitter := collector.RunMicroJitter(jitterCfg)
		ctxswitch := collector.RunContextSwitch(collector.DefaultContextSwitchConfig())
		syscallMetrics := collector.RunSyscallSaturation(collector.DefaultSyscallSaturationConfig())
		taskwakeup := collector.RunTaskWakeup(collector.DefaultTaskWakeupConfig())

		c.window.AddThroughput(syscallMetrics.ThroughputPerS)
		c.window.AddEfficiency(ctxswitch.MeanRttUs)

		if frozen {
			wd.Heartbeat()
		}

		m := c.proc.Snapshot()
		coreTemps := c.thermalRdr.CoreTemps()
		maxTemp, _ := c.thermalRdr.MaxCoreTemp()

		return models.BenchmarkMetrics{
			MaxUs:                float64(m.MaxNs) / 1000.0,
			P99Us:                float64(m.P99Ns) / 1000.0,
			P999Us:               float64(m.P999Ns) / 1000.0,
			AvgUs:                c.proc.Average() / 1000.0,
			RollingP99Us:         c.window.LatencyP99(),
			RollingP999Us:        c.window.LatencyP999(),
			RollingConsistencyCV: c.window.ConsistencyCV(),
			SpikeCount:           c.lat.Snapshot().SpikeCount,
			SmiCorrelatedSpikes:  c.lat.Snapshot().SmiCorrelatedSpikes,
			Jitter:               jitter,
			ContextSwitch:        ctxswitch,
			Syscall:              syscallMetrics,
			TaskWakeup:           taskwakeup,
			MaxCoreTempC:         maxTemp,
			CoreTempsC:           coreTemps,
		}
	}
	orch := benchmark.New(mgr, measure)
	aggregate, phases := orch.Run(ctx)
	result := scoring.Score(aggregate)

	if frozen {
		wd.Stop()
	}
	_ = fz.Cleanup()

	atomic.StorePointer(&c.latestBench, unsafe.Pointer(&aggregate))
	atomic.StorePointer(&c.latestScoring, unsafe.Pointer(&result))

	return models.BenchmarkRun{
		Timestamp:       time.Now().UnixMilli(),
		KernelContext:   kernelctx.Detect(),
		Metrics:         aggregate,
		Scoring:         result,
		Phases:          phases,
		ActiveStressors: activeStressorNames(),
		DurationSecs:    float64(len(phases)) * phaseSeconds(phases),
	}
}

// activeStressorNames returns the union of stressor families exercised
// across the fixed phase sequence, in Kind order.
func activeStressorNames() []string {
	seen := make(map[stressor.Kind]bool)
	var names []string
	for _, phase := range benchmark.Phases() {
		for _, k := range phase.Kinds {
			if !seen[k] {
				seen[k] = true
				names = append(names, k.String())
			}
		}
	}
	return names
}

func phaseSeconds(phases []models.BenchmarkPhase) float64 {
	if len(phases) == 0 {
		return 0
	}
	return phases[0].EndSecs - phases[0].StartSecs
}

// SaveSession archives a PerformanceRecord, stamping it with a fresh ID
// and timestamp.
func (c *Controller) SaveSession(label string, summary models.SessionSummary) error {
	now := time.Now().UnixMilli()
	rec := models.PerformanceRecord{
		ID:        fmt.Sprintf("%d", now),
		Label:     label,
		Timestamp: now,
		Summary:   summary,
	}
	return c.perfStore.Save(rec)
}

// SaveBenchmark archives a BenchmarkRun, stamping it with a fresh ID,
// label and timestamp.
func (c *Controller) SaveBenchmark(label string, run models.BenchmarkRun) error {
	now := time.Now().UnixMilli()
	run.ID = fmt.Sprintf("%d", now)
	run.Label = label
	run.Timestamp = now
	return c.benchStore.Save(run)
}

// LoadRecord loads a PerformanceRecord by ID.
func (c *Controller) LoadRecord(id string) (models.PerformanceRecord, error) {
	return c.perfStore.Load(id)
}

// ListRecords lists every PerformanceRecord, most recent first.
func (c *Controller) ListRecords() ([]models.PerformanceRecord, error) {
	return c.perfStore.List()
}

// DeleteRecord removes a PerformanceRecord by ID.
func (c *Controller) DeleteRecord(id string) error {
	return c.perfStore.Delete(id)
}

// LoadBenchmark loads a BenchmarkRun by ID.
func (c *Controller) LoadBenchmark(id string) (models.BenchmarkRun, error) {
	return c.benchStore.Load(id)
}

// ListBenchmarks lists every BenchmarkRun, most recent first.
func (c *Controller) ListBenchmarks() ([]models.BenchmarkRun, error) {
	return c.benchStore.List()
}

// Compare computes pairwise percentage deltas (b-a)/a*100 between two
// PerformanceRecords' min/max/avg/p99.9 latency, SMI count, and
// correlated-spike ("stall") count, per spec.md §4.18 and §6's
// documented compare() operation.
func Compare(a, b models.PerformanceRecord) map[string]float64 {
	delta := func(av, bv float64) float64 {
		if av == 0 {
			return 0
		}
		return (bv - av) / av * 100
	}
	am, bm := a.Summary.Metrics, b.Summary.Metrics
	return map[string]float64{
		"min_delta_pct":   delta(float64(am.MinNs), float64(bm.MinNs)),
		"max_delta_pct":   delta(float64(am.MaxNs), float64(bm.MaxNs)),
		"avg_delta_pct":   delta(am.MeanNs, bm.MeanNs),
		"p99_9_delta_pct": delta(float64(am.P999Ns), float64(bm.P999Ns)),
		"smi_delta_pct":   delta(float64(am.SmiCount), float64(bm.SmiCount)),
		"stall_delta_pct": delta(float64(am.CorrelatedSpikes), float64(bm.CorrelatedSpikes)),
	}
}

// processStart anchors monotonicNow: time.Since uses the monotonic clock
// reading carried by a time.Time, so wall-clock steps do not affect it.
var processStart = time.Now()

func monotonicNow() int64 {
	return int64(time.Since(processStart))
}

func sleepUntil(targetNs int64) {
	delta := targetNs - monotonicNow()
	if delta > 0 {
		time.Sleep(time.Duration(delta))
	}
}
