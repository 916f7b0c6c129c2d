package sync

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sis-sync-api/internal/models"
)

// Metrics instruments sync runs with Prometheus collectors on a private
// registry.
type Metrics struct {
	registry *prometheus.Registry
	handler  http.Handler

	runsCompleted *prometheus.CounterVec
	runsAborted   *prometheus.CounterVec
	batchSize     *prometheus.HistogramVec
	records       *prometheus.CounterVec
}

// NewMetrics registers the sync collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	runsCompleted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_runs_completed_total",
		Help: "Completed sync runs per job and vendor",
	}, []string{"job", "lms"})

	runsAborted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_runs_aborted_total",
		Help: "Sync runs aborted before processing (context resolution or fetch failure)",
	}, []string{"job", "lms"})

	batchSize := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sync_batch_size",
		Help:    "Records fetched per run",
		Buckets: []float64{0, 1, 10, 50, 100, 200, 500},
	}, []string{"job", "lms"})

	records := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_records_total",
		Help: "Record outcomes per job and vendor",
	}, []string{"job", "lms", "outcome"})

	registry.MustRegister(runsCompleted, runsAborted, batchSize, records)

	return &Metrics{
		registry:      registry,
		handler:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		runsCompleted: runsCompleted,
		runsAborted:   runsAborted,
		batchSize:     batchSize,
		records:       records,
	}
}

// Handler exposes the registry for the worker's /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return m.handler
}

// RunCompleted counts a finished run and observes its batch size.
func (m *Metrics) RunCompleted(job models.SyncJob, lms models.LMSName, batch int) {
	m.runsCompleted.WithLabelValues(string(job), string(lms)).Inc()
	m.batchSize.WithLabelValues(string(job), string(lms)).Observe(float64(batch))
}

// RunAborted counts a run that exited before its batch.
func (m *Metrics) RunAborted(job models.SyncJob, lms models.LMSName) {
	m.runsAborted.WithLabelValues(string(job), string(lms)).Inc()
}

// RecordProcessed counts one record outcome.
func (m *Metrics) RecordProcessed(job models.SyncJob, lms models.LMSName, result Result) {
	var outcome string
	switch result.Outcome {
	case OutcomeSuccess:
		outcome = "success"
	case OutcomeSkip:
		outcome = "skip"
	default:
		outcome = "failure"
	}
	m.records.WithLabelValues(string(job), string(lms), outcome).Inc()
}
