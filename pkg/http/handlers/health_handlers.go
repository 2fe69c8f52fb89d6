package handlers

import (
	"errors"
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"
	goji "goji.io"
	"goji.io/pat"

	"github.com/thingful/sensebox/pkg/device"
)

const goroutineThreshold = 100

// RegisterHealthCheck registers a couple of endpoints using the heptiolabs
// healthcheck library. /live reports whether the process should be restarted,
// /ready whether the station has network time and is uploading. A missing
// upload is not a restart reason since the radio may simply be out of range.
// now must read the same clock the scheduler stamps uploads with.
func RegisterHealthCheck(mux *goji.Mux, store *device.Store, maxUploadAge time.Duration, now func() time.Time) {
	health := healthcheck.NewMetricsHandler(prometheus.DefaultRegisterer, "sensebox")

	health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(goroutineThreshold))
	health.AddReadinessCheck("time-resolved", TimeResolvedCheck(store))
	health.AddReadinessCheck("upload-age", UploadAgeCheck(store, maxUploadAge, now))

	mux.HandleFunc(pat.Get("/ready"), health.ReadyEndpoint)
	mux.HandleFunc(pat.Get("/live"), health.LiveEndpoint)
}

// TimeResolvedCheck fails until network time has been resolved once
func TimeResolvedCheck(store *device.Store) healthcheck.Check {
	return func() error {
		if !store.Snapshot().TimeResolved {
			return errors.New("network time not resolved")
		}
		return nil
	}
}

// UploadAgeCheck fails when the last successful upload is older than maxAge.
// A zero maxAge disables the check.
func UploadAgeCheck(store *device.Store, maxAge time.Duration, now func() time.Time) healthcheck.Check {
	return func() error {
		if maxAge == 0 {
			return nil
		}

		last := store.Snapshot().LastUpload
		if !last.Valid {
			return errors.New("no upload yet")
		}

		if now().Sub(last.Time) > maxAge {
			return errors.New("last upload too old")
		}

		return nil
	}
}
