package metrics

import (
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/runpod-serverless-metrics/runner/exporter"
)

const namespace = "runpod_serverless_exporter"

// SelfMetricsFilename is the textfile holding the exporter's own metrics
const SelfMetricsFilename = "runpod_serverless_exporter.prom"

// Recorder keeps metrics about the exporter's own collection runs.
// Runtime and process collectors are kept off the textfile registry.
type Recorder struct {
	registry *prometheus.Registry
	runtime  *prometheus.Registry

	lastRunSuccess   prometheus.Gauge
	lastRunTimestamp prometheus.Gauge
	lastSuccessTime  prometheus.Gauge
	runDuration      prometheus.Gauge
	runsTotal        *prometheus.CounterVec
	endpoints        *prometheus.GaugeVec
}

// NewRecorder creates a recorder backed by its own registry. When withRuntime is
// set the Go runtime and process collectors are registered for Gatherer only.
func NewRecorder(withRuntime bool) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		lastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "Whether the last collection run replaced the textfile (1) or aborted (0).",
		}),
		lastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last collection run started.",
		}),
		lastSuccessTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time the textfile was last replaced.",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of the last collection run.",
		}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Collection runs by result.",
		}, []string{"result"}),
		endpoints: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "endpoints",
			Help:      "Endpoints of the last collection run by outcome.",
		}, []string{"outcome"}),
	}

	r.registry.MustRegister(
		r.lastRunSuccess,
		r.lastRunTimestamp,
		r.lastSuccessTime,
		r.runDuration,
		r.runsTotal,
		r.endpoints,
	)

	if withRuntime {
		r.runtime = prometheus.NewRegistry()
		r.runtime.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return r
}

// Gatherer returns the run metrics plus the runtime collectors, if enabled
func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r.runtime == nil {
		return r.registry
	}
	return prometheus.Gatherers{r.registry, r.runtime}
}

// Observe records the outcome of one collection run
func (r *Recorder) Observe(result *exporter.RunResult, err error) {
	if result == nil {
		return
	}

	r.lastRunTimestamp.Set(float64(result.StartedAt.Unix()))
	r.runDuration.Set(result.Duration.Seconds())
	r.endpoints.WithLabelValues("written").Set(float64(len(result.Written)))
	r.endpoints.WithLabelValues("stale").Set(float64(len(result.Stale)))
	r.endpoints.WithLabelValues("empty").Set(float64(len(result.Empty)))

	if err != nil || !result.Committed {
		r.lastRunSuccess.Set(0)
		r.runsTotal.WithLabelValues("failure").Inc()
		return
	}

	r.lastRunSuccess.Set(1)
	r.lastSuccessTime.Set(float64(result.StartedAt.Add(result.Duration).Unix()))
	r.runsTotal.WithLabelValues("success").Inc()
}

// WriteTextfile writes the run metrics into dir using an atomic rename.
// Runtime collectors are never written.
func (r *Recorder) WriteTextfile(dir string) error {
	return prometheus.WriteToTextfile(filepath.Join(dir, SelfMetricsFilename), r.registry)
}
