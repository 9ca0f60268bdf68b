package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inspectrack_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inspectrack_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	passDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inspectrack_scheduler_pass_duration_seconds",
		Help:    "Duration of scheduling passes",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	inspectionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inspectrack_inspections_created_total",
		Help: "Count of inspection instances created by source",
	}, []string{"source"})

	templatesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inspectrack_scheduler_skips_total",
		Help: "Count of templates skipped during scheduling passes by reason",
	}, []string{"reason"})

	openInspections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inspectrack_open_inspections",
		Help: "Number of open (non-completed) inspections observed by the last pass",
	})

	summaryCacheOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inspectrack_summary_cache_total",
		Help: "Dashboard summary cache lookups by outcome",
	}, []string{"outcome"})
)

// Skip reasons recorded by the scheduling pass.
const (
	SkipOpenInstance = "open_instance"
	SkipNotDue       = "not_due"
	SkipNoInspector  = "no_inspector"
	SkipQueryError   = "query_error"
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObservePass records a completed scheduling pass with a result label.
func ObservePass(result string, duration time.Duration) {
	passDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// ObserveInspectionCreated increments the created counter for a source
// ("scheduler" or "manual").
func ObserveInspectionCreated(source string) {
	inspectionsCreated.WithLabelValues(source).Inc()
}

// ObserveSkip increments the template skip counter for the given reason.
func ObserveSkip(reason string) {
	templatesSkipped.WithLabelValues(reason).Inc()
}

// SetOpenInspections sets the open inspection gauge.
func SetOpenInspections(count int) {
	if count < 0 {
		count = 0
	}
	openInspections.Set(float64(count))
}

// ObserveSummaryCache records a dashboard summary cache lookup outcome
// ("hit", "miss", "bypass" or "error").
func ObserveSummaryCache(outcome string) {
	summaryCacheOps.WithLabelValues(outcome).Inc()
}
