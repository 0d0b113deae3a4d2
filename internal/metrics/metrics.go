package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Domain metrics
	insightAttempts  *prometheus.CounterVec
	snapshotFetches  *prometheus.CounterVec
	snapshotDuration *prometheus.HistogramVec
	holdingChanges   *prometheus.CounterVec
	reportsGenerated *prometheus.CounterVec
	reportsArchived  *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Domain metrics
	r.insightAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finsight_insight_attempts_total",
			Help: "Insight generation attempts by strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)
	r.snapshotFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finsight_snapshot_fetches_total",
			Help: "Market snapshot fetches by source and status",
		},
		[]string{"source", "status"},
	)
	r.snapshotDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finsight_snapshot_fetch_duration_seconds",
			Help:    "Market snapshot fetch duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
		[]string{"source"},
	)
	r.holdingChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finsight_holding_changes_total",
			Help: "Portfolio holding mutations by action",
		},
		[]string{"action"},
	)
	r.reportsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finsight_reports_generated_total",
			Help: "Portfolio PDF reports generated",
		},
		[]string{"status"},
	)
	r.reportsArchived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finsight_reports_archived_total",
			Help: "Portfolio PDF reports copied to the archive",
		},
		[]string{"status"},
	)

	reg.MustRegister(r.insightAttempts)
	reg.MustRegister(r.snapshotFetches)
	reg.MustRegister(r.snapshotDuration)
	reg.MustRegister(r.holdingChanges)
	reg.MustRegister(r.reportsGenerated)
	reg.MustRegister(r.reportsArchived)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordInsightAttempt counts one insight strategy attempt.
func (r *Registry) RecordInsightAttempt(strategy, outcome string) {
	r.insightAttempts.WithLabelValues(strategy, outcome).Inc()
}

// RecordSnapshotFetch records a market data fetch.
func (r *Registry) RecordSnapshotFetch(source, status string, duration float64) {
	r.snapshotFetches.WithLabelValues(source, status).Inc()
	r.snapshotDuration.WithLabelValues(source).Observe(duration)
}

// RecordHoldingChange counts a portfolio mutation.
func (r *Registry) RecordHoldingChange(action string) {
	r.holdingChanges.WithLabelValues(action).Inc()
}

// RecordReport counts a generated report.
func (r *Registry) RecordReport(status string) {
	r.reportsGenerated.WithLabelValues(status).Inc()
}

// RecordReportArchived counts an archive write.
func (r *Registry) RecordReportArchived(status string) {
	r.reportsArchived.WithLabelValues(status).Inc()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
