package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns a private registry so several instances (tests, one per
// container) never collide on metric names. All methods are safe on a nil
// receiver.
type Recorder struct {
	registry               *prometheus.Registry
	runsStarted            prometheus.Counter
	runOutcomes            *prometheus.CounterVec
	runDuration            prometheus.Histogram
	documentSaves          *prometheus.CounterVec
	reconciliationWarnings prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "winnow",
			Name:      "runs_started_total",
			Help:      "Tool script runs launched.",
		}),
		runOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "winnow",
			Name:      "run_outcomes_total",
			Help:      "Finished tool script runs by outcome.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "winnow",
			Name:      "run_duration_seconds",
			Help:      "Wall time of tool script runs.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
		}),
		documentSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "winnow",
			Name:      "document_saves_total",
			Help:      "Session document saves by result.",
		}, []string{"result"}),
		reconciliationWarnings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "winnow",
			Name:      "reconciliation_warnings",
			Help:      "Collections in the session document without a directory at the last load.",
		}),
	}

	r.registry.MustRegister(
		r.runsStarted,
		r.runOutcomes,
		r.runDuration,
		r.documentSaves,
		r.reconciliationWarnings,
		collectors.NewGoCollector(),
	)
	return r
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) RunStarted() {
	if r == nil {
		return
	}
	r.runsStarted.Inc()
}

func (r *Recorder) RunFinished(status string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.runOutcomes.WithLabelValues(status).Inc()
	r.runDuration.Observe(elapsed.Seconds())
}

func (r *Recorder) DocumentSaved(err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.documentSaves.WithLabelValues(result).Inc()
}

func (r *Recorder) ReconciliationWarnings(n int) {
	if r == nil {
		return
	}
	r.reconciliationWarnings.Set(float64(n))
}
