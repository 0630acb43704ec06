package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the institutional server's Prometheus instrumentation,
// scraped at /metrics.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	jobsSubmitted   prometheus.Counter
	auditWriteFails prometheus.Counter
}

// NewMetrics registers the server's metric collectors against the
// default Prometheus registry.
func NewMetrics() *Metrics {
	return &Metrics{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ddalab",
			Subsystem: "server",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests handled by the institutional server, by route and status class.",
		}, []string{"route", "status_class"}),
		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ddalab",
			Subsystem: "server",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		jobsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "ddalab",
			Subsystem: "server",
			Name:      "jobs_submitted_total",
			Help:      "Total analysis jobs submitted through the institutional server.",
		}),
		auditWriteFails: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "ddalab",
			Subsystem: "server",
			Name:      "audit_write_failures_total",
			Help:      "Total fire-and-forget audit log writes that failed.",
		}),
	}
}

func (m *Metrics) observeRequest(route, statusClass string, d time.Duration) {
	m.requestsTotal.WithLabelValues(route, statusClass).Inc()
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}
