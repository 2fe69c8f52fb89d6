package client

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// InstrumentRoundTripperDuration is a helper function based on the
// implementation provided as part of the promhttp package, but we also
// partition by requested host as the device talks to separate ingestion and
// query hosts. Transport failures are observed with the code "error" so that a
// refused connection still shows up.
func InstrumentRoundTripperDuration(obs prometheus.ObserverVec, next http.RoundTripper) promhttp.RoundTripperFunc {
	return promhttp.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := next.RoundTrip(r)

		code := "error"
		if err == nil {
			code = strconv.Itoa(resp.StatusCode)
		}

		obs.With(
			prometheus.Labels{
				"code":   code,
				"method": r.Method,
				"host":   r.URL.Host,
			},
		).Observe(time.Since(start).Seconds())

		return resp, err
	})
}
