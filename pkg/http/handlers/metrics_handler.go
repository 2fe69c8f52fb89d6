package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goji "goji.io"
	"goji.io/pat"
)

// RegisterMetricsHandler serves the default registry at /metrics. When one
// collector fails to gather the remaining metrics are still served.
func RegisterMetricsHandler(mux *goji.Mux) {
	mux.Handle(pat.Get("/metrics"), promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	}))
}
