// Package metrics provides Prometheus metrics for the code generator and its
// status server.
//
// Pipeline metrics:
//   - qumi_stage_duration_seconds: Histogram with a stage label
//   - qumi_stage_records: Gauge with a stage label, records leaving each stage
//   - qumi_parse_failures_total: Counter with a kind label
//   - qumi_code_collisions_total: Counter of short-code collisions
//   - qumi_last_run_timestamp_seconds: Gauge set after each successful run
//   - qumi_code_churn: Gauge with a change label (changed, added, removed)
//
// HTTP metrics:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//
// All metrics are automatically registered with the Prometheus default registry
// during package initialization.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Parse failure kinds.
const (
	FailureNDC         = "ndc"
	FailureDescription = "description"
	FailureUnit        = "unit"
	FailureStrength    = "strength"
	FailureGraph       = "graph"
)

var (
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qumi_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	StageRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "qumi_stage_records",
			Help: "Records leaving each pipeline stage in the last run",
		},
		[]string{"stage"},
	)

	ParseFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qumi_parse_failures_total",
			Help: "Recoverable parse failures by kind",
		},
		[]string{"kind"},
	)

	CodeCollisions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "qumi_code_collisions_total",
			Help: "Short codes produced for more than one canonical code",
		},
	)

	LastRunTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "qumi_last_run_timestamp_seconds",
			Help: "Unix time of the last successful generation",
		},
	)

	CodeChurn = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "qumi_code_churn",
			Help: "Short-code changes against the reference table",
		},
		[]string{"change"},
	)

	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (IPs seen in last ~5 minutes)",
		},
	)
)

func init() {
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(StageRecords)
	prometheus.MustRegister(ParseFailures)
	prometheus.MustRegister(CodeCollisions)
	prometheus.MustRegister(LastRunTimestamp)
	prometheus.MustRegister(CodeChurn)
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
}

// WriteTextfile exports the default registry in the node exporter textfile
// format, for batch runs that exit before anything can scrape them.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
