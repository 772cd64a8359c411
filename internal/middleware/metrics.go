package middleware

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_http_requests_total",
		Help: "HTTP requests by method and status code.",
	}, []string{"code", "method"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "settlement_http_request_duration_seconds",
		Help:    "HTTP request latency by method.",
		Buckets: prometheus.DefBuckets,
	}, []string{"code", "method"})

	inFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "settlement_http_requests_in_flight",
		Help: "HTTP requests currently being served.",
	})
)

// Metrics records request counts, latencies and in-flight requests.
func Metrics(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerInFlight(inFlight,
		promhttp.InstrumentHandlerDuration(requestDuration,
			promhttp.InstrumentHandlerCounter(requestsTotal, next)))
}
