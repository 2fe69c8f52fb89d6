package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/guregu/null"
	"github.com/stretchr/testify/assert"
	goji "goji.io"

	"github.com/thingful/sensebox/pkg/device"
	"github.com/thingful/sensebox/pkg/http/handlers"
)

func newMux(state *device.State) *goji.Mux {
	store := device.NewStore()
	store.Publish(state.Snapshot())

	mux := goji.NewMux()
	handlers.RegisterReadingsHandlers(mux, store)

	return mux
}

func get(mux *goji.Mux, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, req)
	return recorder
}

func TestReadingsHandler(t *testing.T) {
	state := device.NewState(device.Intervals{})
	state.Readings.Set(device.Temperature, 21.5)
	state.Readings.Captured(time.Date(2019, 3, 7, 12, 0, 0, 0, time.UTC))

	recorder := get(newMux(state), "/readings")

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
	assert.JSONEq(
		t,
		`{"temperature":21.5,"pressure":null,"auxTemperature":null,"illuminance":null,"capturedAt":"2019-03-07T12:00:00Z"}`,
		recorder.Body.String(),
	)
}

func TestChannelHandler(t *testing.T) {
	state := device.NewState(device.Intervals{})
	state.Readings.Set(device.Illuminance, 400)
	state.Readings.Captured(time.Date(2019, 3, 7, 12, 0, 0, 0, time.UTC))

	mux := newMux(state)

	testcases := []struct {
		label    string
		path     string
		code     int
		expected string
	}{
		{
			"value",
			"/readings/illuminance",
			http.StatusOK,
			`{"channel":"illuminance","value":400,"capturedAt":"2019-03-07T12:00:00Z"}`,
		},
		{
			"no value yet",
			"/readings/auxTemperature",
			http.StatusNotFound,
			`{"status":404,"error":"no value for channel \"auxTemperature\""}`,
		},
		{
			"unknown channel",
			"/readings/humidity",
			http.StatusNotFound,
			`{"status":404,"error":"unknown channel \"humidity\""}`,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.label, func(t *testing.T) {
			recorder := get(mux, tc.path)
			assert.Equal(t, tc.code, recorder.Code)
			assert.JSONEq(t, tc.expected, recorder.Body.String())
		})
	}
}

func TestTrendHandler(t *testing.T) {
	state := device.NewState(device.Intervals{})
	state.Trend = device.HardRising
	state.LastTrend = null.TimeFrom(time.Date(2019, 3, 7, 12, 0, 0, 0, time.UTC))

	recorder := get(newMux(state), "/trend")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"trend":"HardRising","lastTrend":"2019-03-07T12:00:00Z"}`, recorder.Body.String())
}

func TestHealthChecks(t *testing.T) {
	store := device.NewStore()
	now := time.Date(2019, 3, 7, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	assert.NotNil(t, handlers.TimeResolvedCheck(store)())
	assert.NotNil(t, handlers.UploadAgeCheck(store, time.Hour, clock)())
	assert.Nil(t, handlers.UploadAgeCheck(store, 0, clock)())

	state := device.NewState(device.Intervals{})
	state.TimeResolved = true
	state.LastUpload = null.TimeFrom(now.Add(-30 * time.Minute))
	store.Publish(state.Snapshot())

	assert.Nil(t, handlers.TimeResolvedCheck(store)())
	assert.Nil(t, handlers.UploadAgeCheck(store, time.Hour, clock)())

	state.LastUpload = null.TimeFrom(now.Add(-2 * time.Hour))
	store.Publish(state.Snapshot())

	assert.NotNil(t, handlers.UploadAgeCheck(store, time.Hour, clock)())
}
