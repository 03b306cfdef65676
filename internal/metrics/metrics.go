package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripbook_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tripbook_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	authAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripbook_auth_attempts_total",
		Help: "Register and login attempts by outcome",
	}, []string{"op", "result"})

	bookingsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripbook_bookings_created_total",
		Help: "Bookings persisted, by category",
	}, []string{"category"})

	searchRequests = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tripbook_search_duration_seconds",
		Help:    "Duration of upstream search calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind", "result"})

	rateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripbook_rate_limited_total",
		Help: "Requests rejected by the auth rate limiter",
	}, []string{"route"})

	searchCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripbook_search_cache_lookups_total",
		Help: "Search cache lookups by result (hit, miss)",
	}, []string{"result"})

	breakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripbook_circuit_breaker_transitions_total",
		Help: "Circuit breaker state changes",
	}, []string{"name", "to"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveAuth counts a register or login attempt.  result is "ok" or a
// short failure kind such as "invalid_credentials".
func ObserveAuth(op, result string) {
	authAttempts.WithLabelValues(op, result).Inc()
}

func ObserveBookingCreated(category string) {
	bookingsCreated.WithLabelValues(category).Inc()
}

// ObserveSearch records the duration of an upstream search call.
func ObserveSearch(kind, result string, duration time.Duration) {
	searchRequests.WithLabelValues(kind, result).Observe(duration.Seconds())
}

func ObserveBreakerTransition(name, to string) {
	breakerTransitions.WithLabelValues(name, to).Inc()
}

func ObserveRateLimited(route string) {
	rateLimited.WithLabelValues(route).Inc()
}

// ObserveSearchCache counts a cache lookup; result is "hit" or "miss".
func ObserveSearchCache(result string) {
	searchCacheLookups.WithLabelValues(result).Inc()
}
