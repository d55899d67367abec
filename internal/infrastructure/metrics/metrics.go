// Package metrics provides Prometheus metrics for the dedup engine and API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal tracks completed dedup runs by mode
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spiritlens",
			Subsystem: "dedup",
			Name:      "runs_total",
			Help:      "Total number of completed dedup runs by mode",
		},
		[]string{"mode"},
	)

	// RunDuration tracks dedup run duration in seconds
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "spiritlens",
			Subsystem: "dedup",
			Name:      "run_duration_seconds",
			Help:      "Duration of dedup runs in seconds",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"mode"},
	)

	// RecordsAnalyzed tracks records submitted to dedup runs
	RecordsAnalyzed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "spiritlens",
			Subsystem: "dedup",
			Name:      "records_analyzed_total",
			Help:      "Total number of records submitted to dedup runs",
		},
	)

	// ComparisonsTotal tracks candidate pairs scored
	ComparisonsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "spiritlens",
			Subsystem: "dedup",
			Name:      "comparisons_total",
			Help:      "Total number of candidate pairs scored",
		},
	)

	// BlockingReduction tracks the comparison reduction of the last run
	BlockingReduction = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "spiritlens",
			Subsystem: "blocking",
			Name:      "reduction_percent",
			Help:      "Comparison reduction achieved by blocking in the last run",
		},
	)

	// CandidatesTotal tracks match candidates by recommended action
	CandidatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spiritlens",
			Subsystem: "dedup",
			Name:      "candidates_total",
			Help:      "Total number of match candidates by recommended action",
		},
		[]string{"action"},
	)

	// PairFailuresTotal tracks comparisons that failed without aborting a run
	PairFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "spiritlens",
			Subsystem: "dedup",
			Name:      "pair_failures_total",
			Help:      "Total number of pair comparisons that failed",
		},
	)

	// HTTPRequestsTotal tracks inbound HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spiritlens",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of inbound HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	// HTTPRequestDuration tracks inbound HTTP request duration
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "spiritlens",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of inbound HTTP requests in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	// RateLimitHits tracks requests rejected by the per-IP limiter
	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "spiritlens",
			Subsystem: "ratelimit",
			Name:      "hits_total",
			Help:      "Total number of requests rejected by the rate limiter",
		},
	)
)

// Recorder feeds dedup run events into the collectors above
type Recorder struct{}

// NewRecorder returns a recorder backed by the default registry
func NewRecorder() Recorder { return Recorder{} }

// RunCompleted records one finished run
func (Recorder) RunCompleted(mode string, took time.Duration, records int) {
	RunsTotal.WithLabelValues(mode).Inc()
	RunDuration.WithLabelValues(mode).Observe(took.Seconds())
	RecordsAnalyzed.Add(float64(records))
}

// ComparisonsPerformed records scored pairs
func (Recorder) ComparisonsPerformed(n int) {
	ComparisonsTotal.Add(float64(n))
}

// BlockingReduction records the reduction achieved by blocking
func (Recorder) BlockingReduction(percent float64) {
	BlockingReduction.Set(percent)
}

// CandidatesFound records candidates for one action
func (Recorder) CandidatesFound(action string, n int) {
	CandidatesTotal.WithLabelValues(action).Add(float64(n))
}

// PairFailed records one failed comparison
func (Recorder) PairFailed() {
	PairFailuresTotal.Inc()
}

// RecordHTTPRequest records an inbound HTTP request metric
func RecordHTTPRequest(method, route, statusCode string, durationSeconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}

// RecordRateLimitHit records a rejected request
func RecordRateLimitHit() {
	RateLimitHits.Inc()
}
