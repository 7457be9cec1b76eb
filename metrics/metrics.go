// Package metrics exposes an optional Prometheus exporter over the
// Controller Facade's live and latest-benchmark state, toggled by
// config.MetricsConfig.Enabled.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/madgoathaz/goatd-kernel-telemetry/models"
)

// Exporter owns a dedicated registry (not the global default) so
// embedding this package never collides with other metrics registered
// on the default registry in the same process.
type Exporter struct {
	registry *prometheus.Registry

	goatScore      prometheus.Gauge
	p99Latency     prometheus.Gauge
	p999Latency    prometheus.Gauge
	spikeCount     prometheus.Gauge
	smiCorrelated  prometheus.Gauge
	sampleCount    prometheus.Gauge
	droppedCount   prometheus.Gauge
	maxCoreTemp    prometheus.Gauge
	personality    *prometheus.GaugeVec
}

const namespace = "goatd"

// New constructs an Exporter with its own registry and registers every
// gauge this engine publishes.
func New() *Exporter {
	reg := prometheus.NewRegistry()
	e := &Exporter{
		registry: reg,
		goatScore: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "goat_score", Help: "Latest GOAT Score, 0-1000.",
		}),
		p99Latency: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "latency_p99_us", Help: "Session p99 hot-loop latency in microseconds.",
		}),
		p999Latency: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "latency_p999_us", Help: "Session p99.9 hot-loop latency in microseconds.",
		}),
		spikeCount: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "spike_count_total", Help: "Latency spikes observed this session.",
		}),
		smiCorrelated: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "smi_correlated_spikes_total", Help: "Spikes correlated with an SMI this session.",
		}),
		sampleCount: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "sample_count_total", Help: "Hot-loop samples recorded this session.",
		}),
		droppedCount: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "dropped_sample_count_total", Help: "Samples dropped due to ring saturation.",
		}),
		maxCoreTemp: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "max_core_temp_celsius", Help: "Highest core temperature observed in the latest benchmark.",
		}),
		personality: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "personality", Help: "1 for the currently classified personality, 0 otherwise.",
		}, []string{"name"}),
	}
	return e
}

// ObserveMonitoring updates the always-available collector gauges.
func (e *Exporter) ObserveMonitoring(m models.MonitoringState) {
	e.sampleCount.Set(float64(m.SampleCount))
	e.spikeCount.Set(float64(m.SpikeCount))
	e.smiCorrelated.Set(float64(m.SmiCorrelatedSpikes))
	e.droppedCount.Set(float64(m.DroppedCount))
}

// ObserveBenchmark updates the gauges that only a completed benchmark
// run can populate.
func (e *Exporter) ObserveBenchmark(m models.BenchmarkMetrics, score models.ScoringResult) {
	e.goatScore.Set(float64(score.GoatScore))
	e.p99Latency.Set(m.P99Us)
	e.p999Latency.Set(m.P999Us)
	e.maxCoreTemp.Set(m.MaxCoreTempC)

	e.personality.Reset()
	e.personality.WithLabelValues(score.Personality).Set(1)
}

// Handler returns the promhttp handler bound to this Exporter's
// private registry.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
