// Package metrics provides Prometheus metrics instrumentation for the
// record API.
//
// Metrics exposed:
//   - recordapi_http_requests_total: Counter of HTTP requests by method, route and status
//   - recordapi_http_request_duration_seconds: Histogram of request durations by route
//   - recordapi_record_errors_total: Counter of failed record operations by op and reason
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	RecordErrorsTotal   *prometheus.CounterVec
}

// New creates and registers the record API metrics on reg. Pass
// prometheus.DefaultRegisterer in production; tests use their own
// registry so repeated New calls do not collide.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "recordapi_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),

		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recordapi_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),

		RecordErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "recordapi_record_errors_total",
			Help: "Total number of failed record operations by op and reason",
		}, []string{"op", "reason"}),
	}
}

func (m *Metrics) RecordRequest(method, route string, status int) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

func (m *Metrics) ObserveRequestDuration(route string, seconds float64) {
	m.HTTPRequestDuration.WithLabelValues(route).Observe(seconds)
}

func (m *Metrics) RecordError(op, reason string) {
	m.RecordErrorsTotal.WithLabelValues(op, reason).Inc()
}
