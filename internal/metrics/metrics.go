package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     prometheus.CounterVec
	HTTPRequestDuration   prometheus.HistogramVec
	HTTPActiveConnections prometheus.GaugeVec

	// Rate limiting metrics
	RateLimitExceededTotal prometheus.CounterVec

	// Cache metrics
	CacheHitsTotal   prometheus.CounterVec
	CacheMissesTotal prometheus.CounterVec

	// Forum metrics
	ThreadsCreatedTotal prometheus.Counter
	PostsCreatedTotal   prometheus.Counter
	ReportsCreatedTotal prometheus.CounterVec
	ReportsHandledTotal prometheus.CounterVec

	// Realtime, search and email
	WebSocketConnections prometheus.Gauge
	SearchRequestsTotal  prometheus.CounterVec
	EmailsSentTotal      prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			// HTTP metrics
			HTTPRequestsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPActiveConnections: *promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "http_active_connections",
					Help: "Number of currently active HTTP connections",
				},
				[]string{"method", "path"},
			),

			RateLimitExceededTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Total number of rate limit violations",
				},
				[]string{"endpoint", "method"},
			),

			CacheHitsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_hits_total",
					Help: "Total number of cache hits",
				},
				[]string{"cache_name"},
			),
			CacheMissesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_misses_total",
					Help: "Total number of cache misses",
				},
				[]string{"cache_name"},
			),

			ThreadsCreatedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "forum_threads_created_total",
					Help: "Total number of threads opened",
				},
			),
			PostsCreatedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "forum_posts_created_total",
					Help: "Total number of posts written, first posts included",
				},
			),
			ReportsCreatedTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "forum_reports_created_total",
					Help: "Total number of post reports filed",
				},
				[]string{"reason"},
			),
			ReportsHandledTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "forum_reports_handled_total",
					Help: "Total number of post reports resolved by moderators",
				},
				[]string{"action"},
			),

			WebSocketConnections: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "websocket_connections",
					Help: "Number of open thread websocket connections",
				},
			),
			SearchRequestsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "search_requests_total",
					Help: "Total number of search requests by backend",
				},
				[]string{"backend", "status"},
			),
			EmailsSentTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "emails_sent_total",
					Help: "Total number of notification emails attempted",
				},
				[]string{"template", "status"},
			),
		}
	})
	return instance
}

// Get returns the metrics singleton, initializing it on first use.
func Get() *Metrics {
	return Initialize()
}
