// Package metrics holds the Prometheus collectors for the case-processing pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the counters below
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeStale   = "stale"
)

var (
	// Registry is private to the service so tests and /metrics see the same collectors
	Registry = prometheus.NewRegistry()

	PipelineRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "case_pipeline_runs_total",
		Help: "Case processing runs by flow and outcome.",
	}, []string{"flow", "outcome"})

	PipelineDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "case_pipeline_run_duration_seconds",
		Help:    "Wall time of a case processing run.",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
	}, []string{"flow"})

	AttachmentTransfers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "case_attachment_transfers_total",
		Help: "Attachment transfers between object stores by outcome.",
	}, []string{"outcome"})

	AssistantCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assistant_calls_total",
		Help: "LLM assistant calls by assistant and outcome.",
	}, []string{"assistant", "outcome"})

	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "case_queue_depth",
		Help: "Jobs waiting in the background processing queue.",
	})
)

func init() {
	Registry.MustRegister(PipelineRuns, PipelineDuration, AttachmentTransfers, AssistantCalls, QueueDepth)
}

// ObserveRun records the outcome and duration of a pipeline run
func ObserveRun(flow, outcome string, started time.Time) {
	PipelineRuns.WithLabelValues(flow, outcome).Inc()
	PipelineDuration.WithLabelValues(flow).Observe(time.Since(started).Seconds())
}

// Handler exposes the registry in the Prometheus text format
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
