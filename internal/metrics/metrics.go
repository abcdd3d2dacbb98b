// Package metrics provides Prometheus metrics for the trade workflow.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tradegate"

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	RunsTotal        *prometheus.CounterVec
	RejectionsTotal  *prometheus.CounterVec
	CallErrorsTotal  *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	FeedPairsTotal   *prometheus.CounterVec
	InFlightRuns     prometheus.Gauge
	LastSubmissionTS prometheus.Gauge
}

// New creates a Metrics instance registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "runs_total",
			Help:      "Total number of evaluate-and-trade runs by outcome",
		}, []string{"outcome"}),
		RejectionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "rejections_total",
			Help:      "Total number of rejections by the rule that rejected",
		}, []string{"check"}),
		CallErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "external",
			Name:      "call_errors_total",
			Help:      "Total number of failed outbound calls by service",
		}, []string{"service"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each workflow stage",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"stage"}),
		FeedPairsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "pairs_total",
			Help:      "Pair identifiers received from the feed by disposition",
		}, []string{"disposition"}),
		InFlightRuns: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "in_flight_runs",
			Help:      "Number of workflow runs currently executing",
		}),
		LastSubmissionTS: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "last_submission_timestamp_seconds",
			Help:      "Unix time of the last order submission attempt",
		}),
	}
}

// ObserveRun counts a finished run.
func (m *Metrics) ObserveRun(outcome string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRejection counts a rejection attributed to check.
func (m *Metrics) ObserveRejection(check string) {
	if m == nil {
		return
	}
	m.RejectionsTotal.WithLabelValues(check).Inc()
}

// ObserveCallError counts a failed outbound call.
func (m *Metrics) ObserveCallError(service string) {
	if m == nil {
		return
	}
	m.CallErrorsTotal.WithLabelValues(service).Inc()
}

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveFeedPair counts a pair received from the feed.
func (m *Metrics) ObserveFeedPair(disposition string) {
	if m == nil {
		return
	}
	m.FeedPairsTotal.WithLabelValues(disposition).Inc()
}

// RunStarted increments the in-flight gauge and returns its decrement.
func (m *Metrics) RunStarted() func() {
	if m == nil {
		return func() {}
	}
	m.InFlightRuns.Inc()
	return m.InFlightRuns.Dec
}

// SubmissionAttempted records the time of a submission attempt.
func (m *Metrics) SubmissionAttempted(at time.Time) {
	if m == nil {
		return
	}
	m.LastSubmissionTS.Set(float64(at.Unix()))
}

// Handler returns an HTTP handler exposing the metrics in g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
