package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	gatewayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "country_explorer",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Total number of outbound gateway requests.",
		},
		[]string{"service", "outcome"},
	)

	gatewayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "country_explorer",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Duration of outbound gateway requests, retries included.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
		},
		[]string{"service"},
	)

	browseOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "country_explorer",
			Subsystem: "browse",
			Name:      "operations_total",
			Help:      "Browse operations by result: applied, stale or failed.",
		},
		[]string{"operation", "result"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "country_explorer",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	Registry.MustRegister(gatewayRequests, gatewayDuration, browseOperations, httpRequests)
}

// Handler exposes the registry for scraping.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RecordGatewayRequest(service, outcome string, took time.Duration) {
	gatewayRequests.WithLabelValues(service, outcome).Inc()
	gatewayDuration.WithLabelValues(service).Observe(took.Seconds())
}

func RecordBrowseOperation(operation, result string) {
	browseOperations.WithLabelValues(operation, result).Inc()
}

func RecordHTTPRequest(method, route string, status int) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
