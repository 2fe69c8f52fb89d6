package handlers

import (
	"fmt"
	"net/http"

	"github.com/guregu/null"
	goji "goji.io"
	"goji.io/pat"

	"github.com/thingful/sensebox/pkg/device"
)

// RegisterReadingsHandlers registers the read only views of the device state
func RegisterReadingsHandlers(mux *goji.Mux, store *device.Store) {
	env := &Env{store: store}

	mux.Handle(pat.Get("/status"), Handler{env: env, handler: statusHandler})
	mux.Handle(pat.Get("/readings"), Handler{env: env, handler: readingsHandler})
	mux.Handle(pat.Get("/readings/:channel"), Handler{env: env, handler: channelHandler})
	mux.Handle(pat.Get("/trend"), Handler{env: env, handler: trendHandler})
}

// statusHandler returns the whole published snapshot
func statusHandler(env *Env, w http.ResponseWriter, r *http.Request) error {
	return writeJSON(w, env.store.Snapshot())
}

// readingsHandler returns the current readings
func readingsHandler(env *Env, w http.ResponseWriter, r *http.Request) error {
	return writeJSON(w, env.store.Snapshot().Readings)
}

type channelValue struct {
	Channel    device.Channel `json:"channel"`
	Value      float64        `json:"value"`
	CapturedAt null.Time      `json:"capturedAt"`
}

// channelHandler returns the value of one channel, or a 404 if the channel is
// unknown or has never produced a value
func channelHandler(env *Env, w http.ResponseWriter, r *http.Request) error {
	ch := device.Channel(pat.Param(r, "channel"))

	known := false
	for _, c := range device.Channels {
		if c == ch {
			known = true
		}
	}

	if !known {
		return &HTTPError{
			Code: http.StatusNotFound,
			Err:  fmt.Errorf("unknown channel %q", ch),
		}
	}

	readings := env.store.Snapshot().Readings

	v := readings.Value(ch)
	if !v.Valid {
		return &HTTPError{
			Code: http.StatusNotFound,
			Err:  fmt.Errorf("no value for channel %q", ch),
		}
	}

	return writeJSON(w, channelValue{
		Channel:    ch,
		Value:      v.Float64,
		CapturedAt: readings.CapturedAt,
	})
}

type trendResponse struct {
	Trend     device.TrendCategory `json:"trend"`
	LastTrend null.Time            `json:"lastTrend"`
}

// trendHandler returns the current trend and when it was last estimated
func trendHandler(env *Env, w http.ResponseWriter, r *http.Request) error {
	snapshot := env.store.Snapshot()

	return writeJSON(w, trendResponse{
		Trend:     snapshot.Trend,
		LastTrend: snapshot.LastTrend,
	})
}
