package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "actormgr",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "actormgr",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	platformRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "actormgr",
			Subsystem: "platform",
			Name:      "requests_total",
			Help:      "Requests issued to the actor-hosting platform.",
		},
		[]string{"method", "route", "status", "success"},
	)
	platformDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "actormgr",
			Subsystem: "platform",
			Name:      "request_duration_seconds",
			Help:      "Platform request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status", "success"},
	)
	queries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "actormgr",
			Subsystem: "manager",
			Name:      "queries_total",
			Help:      "Actor queries resolved by the driver, by variant and outcome.",
		},
		[]string{"kind", "outcome"},
	)
	queryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "actormgr",
			Subsystem: "manager",
			Name:      "query_duration_seconds",
			Help:      "Actor query duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind", "outcome"},
	)
	actorsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "actormgr",
			Subsystem: "manager",
			Name:      "actors_created_total",
			Help:      "Actors created on the platform by this driver.",
		},
	)
	breakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "actormgr",
			Subsystem: "platform",
			Name:      "breaker_state",
			Help:      "Platform circuit breaker state (0 closed, 1 half-open, 2 open).",
		},
		[]string{"name"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			platformRequests, platformDuration,
			queries, queryDuration, actorsCreated,
			breakerState,
		)
	})
}

// Handler serves the default registry in the prometheus exposition format.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordPlatformRequest counts one platform call. status is 0 when no HTTP
// response was received.
func RecordPlatformRequest(method, route string, status int, duration time.Duration, success bool) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	successLabel := strconv.FormatBool(success)
	platformRequests.WithLabelValues(method, route, statusLabel, successLabel).Inc()
	platformDuration.WithLabelValues(method, route, statusLabel, successLabel).
		Observe(duration.Seconds())
}

func RecordQuery(kind, outcome string, duration time.Duration) {
	RegisterMetrics()
	queries.WithLabelValues(kind, outcome).Inc()
	queryDuration.WithLabelValues(kind, outcome).Observe(duration.Seconds())
}

func RecordActorCreated() {
	RegisterMetrics()
	actorsCreated.Inc()
}

func RecordBreakerState(name string, state int) {
	RegisterMetrics()
	breakerState.WithLabelValues(name).Set(float64(state))
}
