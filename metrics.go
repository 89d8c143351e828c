package kliento

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector exposes Prometheus metrics for the request pipeline. All
// record methods are nil-safe so instrumentation stays optional.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	retriesTotal      *prometheus.CounterVec
	tokenRefreshes    *prometheus.CounterVec
	deduplicationHits *prometheus.CounterVec
	rateLimited       *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec

	registerer prometheus.Registerer
}

// NewMetricsCollector registers the collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegisterer(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegisterer registers the collector on the supplied
// registerer; use a private registry in tests to avoid duplicate
// registration.
func NewMetricsCollectorWithRegisterer(reg prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "kliento_requests_total",
				Help: "Total number of API requests made",
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kliento_request_duration_seconds",
				Help:    "Duration of API requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestsInFlight: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kliento_requests_in_flight",
				Help: "Number of API requests currently in flight",
			},
			[]string{"method", "endpoint"},
		),
		retriesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "kliento_retries_total",
				Help: "Total number of retry attempts",
			},
			[]string{"method", "endpoint", "attempt"},
		),
		tokenRefreshes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "kliento_token_refreshes_total",
				Help: "Total number of single-flight token refreshes by outcome",
			},
			[]string{"outcome"},
		),
		deduplicationHits: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "kliento_deduplication_hits_total",
				Help: "Total number of requests coalesced onto an identical in-flight one",
			},
			[]string{"method", "endpoint"},
		),
		rateLimited: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "kliento_rate_limited_total",
				Help: "Total number of requests rejected by the client-side rate limiter",
			},
			[]string{"endpoint"},
		),
		errorsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "kliento_errors_total",
				Help: "Total number of request failures by error code",
			},
			[]string{"code", "method", "endpoint"},
		),
		registerer: reg,
	}
}

// RecordRequest records request count and duration.
func (mc *MetricsCollector) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if mc == nil {
		return
	}
	code := strconv.Itoa(statusCode)
	mc.requestsTotal.WithLabelValues(method, code, endpoint).Inc()
	mc.requestDuration.WithLabelValues(method, code, endpoint).Observe(duration.Seconds())
}

// RecordRequestStart increments the in-flight gauge.
func (mc *MetricsCollector) RecordRequestStart(method, endpoint string) {
	if mc == nil {
		return
	}
	mc.requestsInFlight.WithLabelValues(method, endpoint).Inc()
}

// RecordRequestEnd decrements the in-flight gauge.
func (mc *MetricsCollector) RecordRequestEnd(method, endpoint string) {
	if mc == nil {
		return
	}
	mc.requestsInFlight.WithLabelValues(method, endpoint).Dec()
}

// RecordRetry increments the retry counter for an attempt.
func (mc *MetricsCollector) RecordRetry(method, endpoint string, attempt int) {
	if mc == nil {
		return
	}
	mc.retriesTotal.WithLabelValues(method, endpoint, strconv.Itoa(attempt)).Inc()
}

// RecordRefresh increments the token refresh counter; outcome is "success"
// or "failure".
func (mc *MetricsCollector) RecordRefresh(outcome string) {
	if mc == nil {
		return
	}
	mc.tokenRefreshes.WithLabelValues(outcome).Inc()
}

// RecordDeduplicationHit increments the coalesced-request counter.
func (mc *MetricsCollector) RecordDeduplicationHit(method, endpoint string) {
	if mc == nil {
		return
	}
	mc.deduplicationHits.WithLabelValues(method, endpoint).Inc()
}

// RecordRateLimited increments the rate-limited counter.
func (mc *MetricsCollector) RecordRateLimited(endpoint string) {
	if mc == nil {
		return
	}
	mc.rateLimited.WithLabelValues(endpoint).Inc()
}

// RecordError increments the failure counter by error code.
func (mc *MetricsCollector) RecordError(code, method, endpoint string) {
	if mc == nil {
		return
	}
	mc.errorsTotal.WithLabelValues(code, method, endpoint).Inc()
}
