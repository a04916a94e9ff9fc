package core

import (
	"time"

	"github.com/joeshirey/JSRepoAnalysis/schema"
	"github.com/prometheus/client_golang/prometheus"
)

// RunMetrics holds the Prometheus collectors of one batch run.
// A private registry keeps repeated runs in one process independent.
type RunMetrics struct {
	registry *prometheus.Registry

	files        *prometheus.CounterVec
	skips        *prometheus.CounterVec
	fileDuration prometheus.Histogram
	timeouts     prometheus.Counter
	breakerTrips prometheus.Counter
}

// NewRunMetrics registers the run collectors on a fresh registry.
func NewRunMetrics() *RunMetrics {
	m := &RunMetrics{
		registry: prometheus.NewRegistry(),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "repoanalysis",
			Name:      "files_total",
			Help:      "Files handled, by extension and status",
		}, []string{"extension", "status"}),
		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "repoanalysis",
			Name:      "skips_total",
			Help:      "Skipped files, by reason",
		}, []string{"reason"}),
		fileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "repoanalysis",
			Name:      "file_seconds",
			Help:      "Time spent processing one file",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 900},
		}),
		timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "repoanalysis",
			Name:      "evaluation_timeouts_total",
			Help:      "Failed files whose evaluation timed out",
		}),
		breakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "repoanalysis",
			Name:      "breaker_trips_total",
			Help:      "Runs halted by the consecutive error breaker",
		}),
	}
	m.registry.MustRegister(m.files, m.skips, m.fileDuration, m.timeouts, m.breakerTrips)
	return m
}

// ObserveOutcome counts a processed or skipped file.
func (m *RunMetrics) ObserveOutcome(ext string, o schema.Outcome, took time.Duration) {
	m.files.WithLabelValues(ext, string(o.Status)).Inc()
	if o.Status == schema.StatusSkipped {
		m.skips.WithLabelValues(string(o.Reason)).Inc()
	}
	m.fileDuration.Observe(took.Seconds())
}

// ObserveFailure counts a failed file. Evaluation timeouts are also counted on their own.
func (m *RunMetrics) ObserveFailure(ext string, took time.Duration, timeout bool) {
	m.files.WithLabelValues(ext, "errored").Inc()
	if timeout {
		m.timeouts.Inc()
	}
	m.fileDuration.Observe(took.Seconds())
}

// ObserveHalt counts a breaker trip.
func (m *RunMetrics) ObserveHalt() {
	m.breakerTrips.Inc()
}

// Registry exposes the collectors, mainly for tests.
func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile dumps the metrics in the node_exporter textfile format.
func (m *RunMetrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
