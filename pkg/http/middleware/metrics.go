package middleware

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	duration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sensebox",
			Subsystem: "status",
			Name:      "request_duration_seconds",
			Help:      "Latency in seconds of status server requests",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1},
		}, []string{"code", "method"},
	)

	inFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sensebox",
			Subsystem: "status",
			Name:      "requests_in_flight",
			Help:      "Status server requests currently being served",
		},
	)
)

func init() {
	prometheus.MustRegister(duration, inFlight)
}

// MetricsMiddleware counts requests in flight and records their latency by
// method and status code. Status requests only read a snapshot so the buckets
// stop at one second.
func MetricsMiddleware(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerInFlight(inFlight, promhttp.InstrumentHandlerDuration(duration, next))
}
