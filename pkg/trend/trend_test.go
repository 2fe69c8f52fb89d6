package trend_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"strings"
	"testing"
	"time"

	kitlog "github.com/go-kit/kit/log"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/thingful/sensebox/pkg/client"
	"github.com/thingful/sensebox/pkg/device"
	"github.com/thingful/sensebox/pkg/opensensemap"
	"github.com/thingful/sensebox/pkg/radio"
	"github.com/thingful/sensebox/pkg/trend"
)

func TestClassify(t *testing.T) {
	testcases := []struct {
		label      string
		value      float64
		thresholds trend.Thresholds
		expected   device.TrendCategory
	}{
		{"diff hard rising", 2.0, trend.DifferenceThresholds, device.HardRising},
		{"diff at hard bound", 1.5, trend.DifferenceThresholds, device.SlightRising},
		{"diff slight rising", 0.8, trend.DifferenceThresholds, device.SlightRising},
		{"diff at slight bound", 0.5, trend.DifferenceThresholds, device.Flat},
		{"diff flat", 0.0, trend.DifferenceThresholds, device.Flat},
		{"diff at negative slight bound", -0.5, trend.DifferenceThresholds, device.SlightFalling},
		{"diff slight falling", -1.0, trend.DifferenceThresholds, device.SlightFalling},
		{"diff at negative hard bound", -1.5, trend.DifferenceThresholds, device.HardFalling},
		{"diff hard falling", -3.0, trend.DifferenceThresholds, device.HardFalling},
		{"slope hard rising", 0.31, trend.SlopeThresholds, device.HardRising},
		{"slope at hard bound", 0.3, trend.SlopeThresholds, device.SlightRising},
		{"slope noise below hard bound", 0.29999999999, trend.SlopeThresholds, device.SlightRising},
		{"slope noise above hard bound", 0.30000000001, trend.SlopeThresholds, device.SlightRising},
		{"slope flat", 0.05, trend.SlopeThresholds, device.Flat},
		{"slope slight falling", -0.2, trend.SlopeThresholds, device.SlightFalling},
		{"slope hard falling", -0.5, trend.SlopeThresholds, device.HardFalling},
	}

	for _, tc := range testcases {
		t.Run(tc.label, func(t *testing.T) {
			assert.Equal(t, tc.expected, trend.Classify(tc.value, tc.thresholds))
			// deterministic
			assert.Equal(t, tc.expected, trend.Classify(tc.value, tc.thresholds))
		})
	}
}

func TestParseTidy(t *testing.T) {
	b, err := ioutil.ReadFile("../opensensemap/testdata/statistics_tidy.csv")
	assert.Nil(t, err)

	windows := trend.ParseTidy(b)
	assert.Len(t, windows, 4)

	values := []float64{}
	for _, w := range windows {
		values = append(values, w.Value)
	}
	assert.Equal(t, []float64{1013.0, 1013.2, 1014.0, 1015.0}, values)

	diff, err := trend.Difference(windows)
	assert.Nil(t, err)
	assert.InDelta(t, 2.0, diff, 1e-9)
	assert.Equal(t, device.HardRising, trend.Classify(diff, trend.DifferenceThresholds))
}

func TestParseTidyNoisy(t *testing.T) {
	b, err := ioutil.ReadFile("testdata/noisy_tidy.txt")
	assert.Nil(t, err)

	windows := trend.ParseTidy(b)
	assert.Len(t, windows, 4)

	assert.Equal(t, time.Date(2019, 3, 7, 0, 0, 0, 0, time.UTC), windows[0].Start.UTC())
	assert.Equal(t, 1013.0, windows[0].Value)
	assert.Equal(t, time.Date(2019, 3, 7, 12, 0, 0, 0, time.UTC), windows[3].Start.UTC())
	assert.Equal(t, 1015.0, windows[3].Value)
}

func TestParseTidyRejectsRows(t *testing.T) {
	testcases := []struct {
		label string
		row   string
	}{
		{"chunk size", "ad"},
		{"terminating chunk", "0"},
		{"header", "sensorId,time,arithmeticMean_10800000"},
		{"two fields", "5c8a1f2e9d3b4a0019e7c6f1,2019-03-07T00:00:00.000Z"},
		{"four fields", "5c8a1f2e9d3b4a0019e7c6f1,2019-03-07T00:00:00.000Z,1013.0,1"},
		{"short id", "5c8a1f2e9d,2019-03-07T00:00:00.000Z,1013.0"},
		{"bad timestamp", "5c8a1f2e9d3b4a0019e7c6f1,07.03.2019,1013.0"},
		{"not a number", "5c8a1f2e9d3b4a0019e7c6f1,2019-03-07T00:00:00.000Z,abc"},
		{"too low", "5c8a1f2e9d3b4a0019e7c6f1,2019-03-07T00:00:00.000Z,799.9"},
		{"too high", "5c8a1f2e9d3b4a0019e7c6f1,2019-03-07T00:00:00.000Z,1200.1"},
	}

	for _, tc := range testcases {
		t.Run(tc.label, func(t *testing.T) {
			assert.Len(t, trend.ParseTidy([]byte(tc.row)), 0)
		})
	}
}

func TestParseTidyAcceptsBounds(t *testing.T) {
	payload := "5c8a1f2e9d3b4a0019e7c6f1,2019-03-07T00:00:00.000Z,800\n5c8a1f2e9d3b4a0019e7c6f1,2019-03-07T03:00:00.000Z,1200\n"
	assert.Len(t, trend.ParseTidy([]byte(payload)), 2)
}

func TestDifferenceInsufficient(t *testing.T) {
	_, err := trend.Difference([]trend.Window{{Value: 1013.0}})
	assert.Equal(t, trend.ErrInsufficientData, err)
}

func TestIsolateJSON(t *testing.T) {
	framed := "HTTP/1.1 200 OK\r\nContent-Type: application/json\r\n\r\n2b\r\n[{\"value\":\"1013.50\"}]\r\n0\r\n\r\n"

	b, err := trend.IsolateJSON([]byte(framed))
	assert.Nil(t, err)
	assert.Equal(t, `[{"value":"1013.50"}]`, string(b))

	_, err = trend.IsolateJSON([]byte("HTTP/1.1 502 Bad Gateway"))
	assert.Equal(t, trend.ErrNoPayload, err)

	_, err = trend.IsolateJSON([]byte("] nothing ["))
	assert.Equal(t, trend.ErrNoPayload, err)
}

func TestParseSamples(t *testing.T) {
	b, err := ioutil.ReadFile("../opensensemap/testdata/sensor_data.json")
	assert.Nil(t, err)

	samples, err := trend.ParseSamples(b)
	assert.Nil(t, err)
	assert.Len(t, samples, 3)

	assert.Equal(t, 1014.45, samples[0].Value)
	assert.Equal(t, 0, samples[0].Index)
	assert.Equal(t, time.Date(2019, 3, 7, 11, 30, 0, 0, time.UTC), samples[0].Timestamp.UTC())

	chronological := trend.Chronological(samples)
	assert.Equal(t, 1014.35, chronological[0].Value)
	assert.Equal(t, 0, chronological[0].Index)
	assert.Equal(t, 1014.45, chronological[2].Value)
	assert.Equal(t, 2, chronological[2].Index)
}

func TestParseSamplesNumericValues(t *testing.T) {
	samples, err := trend.ParseSamples([]byte(`junk [{"value":1013.5},{"createdAt":"2019-03-07T11:30:00.000Z"},{"value":"1013.4"}] junk`))
	assert.Nil(t, err)
	assert.Len(t, samples, 2)
	assert.Equal(t, 1013.5, samples[0].Value)
	assert.Equal(t, 1013.4, samples[1].Value)
	assert.Equal(t, 1, samples[1].Index)
}

func TestParseSamplesMalformed(t *testing.T) {
	_, err := trend.ParseSamples([]byte(`[{"value":"high"}]`))
	assert.NotNil(t, err)

	_, err = trend.ParseSamples([]byte(`[{"value":`))
	assert.Equal(t, trend.ErrNoPayload, err)
}

func TestSlope(t *testing.T) {
	slope, err := trend.Slope([]float64{1000, 1002, 1004, 1006})
	assert.Nil(t, err)
	assert.InDelta(t, 2.0, slope, 1e-9)

	slope, err = trend.Slope([]float64{1013, 1013, 1013})
	assert.Nil(t, err)
	assert.InDelta(t, 0.0, slope, 1e-9)

	_, err = trend.Slope([]float64{1013})
	assert.Equal(t, trend.ErrInsufficientData, err)
}

// linear returns n newest first samples which rise by step per sample in
// chronological order
func linear(n int, start, step float64) []trend.Sample {
	samples := make([]trend.Sample, n)
	for i := 0; i < n; i++ {
		samples[i] = trend.Sample{Value: start + float64(n-1-i)*step, Index: i}
	}
	return samples
}

func TestSlopePerHour(t *testing.T) {
	r := trend.NewRegression(nil, "sensor")
	r.Cadence = 10 * time.Minute

	perHour, err := r.SlopePerHour(linear(10, 1000, 0.05))
	assert.Nil(t, err)
	assert.InDelta(t, 0.3, perHour, 1e-6)
	assert.Equal(t, device.SlightRising, trend.Classify(perHour, trend.SlopeThresholds))

	perHour, err = r.SlopePerHour(linear(12, 1000, -0.1))
	assert.Nil(t, err)
	assert.Equal(t, device.HardFalling, trend.Classify(perHour, trend.SlopeThresholds))
}

func TestSlopePerHourInsufficient(t *testing.T) {
	r := trend.NewRegression(nil, "sensor")

	_, err := r.SlopePerHour(linear(9, 1000, 0.05))
	assert.Equal(t, trend.ErrInsufficientData, pkgerrors.Cause(err))

	// implausible values do not count
	samples := linear(9, 1000, 0.05)
	samples = append(samples, trend.Sample{Value: 0})
	_, err = r.SlopePerHour(samples)
	assert.Equal(t, trend.ErrInsufficientData, pkgerrors.Cause(err))
}

func TestSlopePerHourCap(t *testing.T) {
	r := trend.NewRegression(nil, "sensor")
	r.Cadence = 10 * time.Minute

	// the oldest twenty rise gently, the newest five jump
	chronological := []float64{}
	for i := 0; i < 20; i++ {
		chronological = append(chronological, 1000+float64(i)*0.05)
	}
	for i := 0; i < 5; i++ {
		chronological = append(chronological, 1100)
	}

	newestFirst := []trend.Sample{}
	for i := len(chronological) - 1; i >= 0; i-- {
		newestFirst = append(newestFirst, trend.Sample{Value: chronological[i]})
	}

	perHour, err := r.SlopePerHour(newestFirst)
	assert.Nil(t, err)
	assert.InDelta(t, 0.3, perHour, 1e-6)
}

type fakeStatistics struct {
	payload string
	err     error
	query   opensensemap.StatisticsQuery
}

func (f *fakeStatistics) Statistics(ctx context.Context, q opensensemap.StatisticsQuery) ([]byte, error) {
	f.query = q
	return []byte(f.payload), f.err
}

type fakeSeries struct {
	payload  string
	err      error
	sensorID string
	from, to time.Time
}

func (f *fakeSeries) SensorData(ctx context.Context, sensorID string, from, to time.Time) ([]byte, error) {
	f.sensorID = sensorID
	f.from = from
	f.to = to
	return []byte(f.payload), f.err
}

func TestDifferencingStrategy(t *testing.T) {
	b, err := ioutil.ReadFile("../opensensemap/testdata/statistics_tidy.csv")
	assert.Nil(t, err)

	source := &fakeStatistics{payload: string(b)}
	now := time.Date(2019, 3, 7, 12, 0, 0, 0, time.UTC)

	d := trend.NewDifferencing(source)
	category, diff, err := d.Estimate(context.Background(), now)
	assert.Nil(t, err)
	assert.Equal(t, device.HardRising, category)
	assert.InDelta(t, 2.0, diff, 1e-9)

	assert.Equal(t, opensensemap.PressurePhenomenon, source.query.Phenomenon)
	assert.Equal(t, now.Add(-12*time.Hour), source.query.From)
	assert.Equal(t, now, source.query.To)
	assert.Equal(t, "arithmeticMean", source.query.Operation)
	assert.Equal(t, 3*time.Hour, source.query.Window)
}

func TestDifferencingStrategyOneWindow(t *testing.T) {
	source := &fakeStatistics{payload: "sensorId,time,arithmeticMean_10800000\n5c8a1f2e9d3b4a0019e7c6f1,2019-03-07T00:00:00.000Z,1013.0\n"}

	_, _, err := trend.NewDifferencing(source).Estimate(context.Background(), time.Now())
	assert.Equal(t, trend.ErrInsufficientData, pkgerrors.Cause(err))
}

func TestRegressionStrategy(t *testing.T) {
	entries := []string{}
	for i := 9; i >= 0; i-- {
		entries = append(entries, fmt.Sprintf(`{"value":"%.2f"}`, 1000+float64(i)*0.05))
	}

	source := &fakeSeries{payload: "[" + strings.Join(entries, ",") + "]"}
	now := time.Date(2019, 3, 7, 12, 0, 0, 0, time.UTC)

	r := trend.NewRegression(source, "pressure-sensor")
	r.Cadence = 10 * time.Minute
	category, perHour, err := r.Estimate(context.Background(), now)
	assert.Nil(t, err)
	assert.Equal(t, device.SlightRising, category)
	assert.InDelta(t, 0.3, perHour, 1e-6)

	assert.Equal(t, "pressure-sensor", source.sensorID)
	assert.Equal(t, now.Add(-200*time.Minute), source.from)
	assert.Equal(t, now, source.to)
}

// hourlyBox serves what a box fed by hourly uploads holds: one sample per
// hour rising by rate, newest first, restricted to the requested range.
type hourlyBox struct {
	start time.Time
	end   time.Time
	rate  float64
}

func (h *hourlyBox) SensorData(ctx context.Context, sensorID string, from, to time.Time) ([]byte, error) {
	entries := []string{}
	for at := h.end; !at.Before(h.start); at = at.Add(-time.Hour) {
		if at.Before(from) || at.After(to) {
			continue
		}
		value := 1000 + h.rate*at.Sub(h.start).Hours()
		entries = append(entries, fmt.Sprintf(`{"value":"%.2f","createdAt":"%s"}`, value, at.Format(time.RFC3339)))
	}
	return []byte("[" + strings.Join(entries, ",") + "]"), nil
}

func TestRegressionAtUploadCadence(t *testing.T) {
	now := time.Date(2019, 3, 7, 12, 0, 0, 0, time.UTC)
	box := &hourlyBox{start: now.Add(-72 * time.Hour), end: now, rate: 0.5}

	r := trend.NewRegression(box, "pressure-sensor")

	from, to := r.Window(now)
	assert.Equal(t, now.Add(-20*time.Hour), from)
	assert.Equal(t, now, to)

	category, perHour, err := r.Estimate(context.Background(), now)
	assert.Nil(t, err)
	assert.InDelta(t, 0.5, perHour, 1e-6)
	assert.Equal(t, device.HardRising, category)
}

func TestRegressionWindowHoldsMinSamples(t *testing.T) {
	now := time.Date(2019, 3, 7, 12, 0, 0, 0, time.UTC)

	r := trend.NewRegression(nil, "pressure-sensor")
	r.Cap = 5

	from, _ := r.Window(now)
	assert.Equal(t, now.Add(-10*time.Hour), from)
}

type fakeStrategy struct {
	category device.TrendCategory
	err      error
	calls    int
}

func (f *fakeStrategy) Name() string { return "fake" }

func (f *fakeStrategy) Estimate(ctx context.Context, now time.Time) (device.TrendCategory, float64, error) {
	f.calls++
	return f.category, 1.0, f.err
}

func session(t *testing.T) *radio.Session {
	m := radio.NewManager(&radio.Config{Radio: radio.Wired{}}, kitlog.NewNopLogger())
	s, err := m.Acquire(context.Background())
	assert.Nil(t, err)
	return s
}

func TestEstimatorSuccess(t *testing.T) {
	s := session(t)
	defer s.Release()

	strategy := &fakeStrategy{category: device.HardFalling}
	e := trend.NewEstimator(strategy, kitlog.NewNopLogger())

	state := device.NewState(device.Intervals{})
	now := time.Date(2019, 3, 7, 12, 0, 0, 0, time.UTC)

	e.Estimate(context.Background(), s, state, now)
	assert.Equal(t, device.HardFalling, state.Trend)
	assert.True(t, state.LastTrend.Valid)
	assert.Equal(t, now, state.LastTrend.Time)
}

func TestEstimatorKeepsStaleTrend(t *testing.T) {
	s := session(t)
	defer s.Release()

	testcases := []struct {
		label string
		err   error
		kind  string
	}{
		{"insufficient", pkgerrors.Wrap(trend.ErrInsufficientData, "1 windows accepted"), `kind="malformed remote data"`},
		{"degenerate", trend.ErrDegenerate, `kind="malformed remote data"`},
		{"network", errors.New("connection refused"), `kind="network failure"`},
		{"unknown sensor", client.NotFoundError, "kind=rejected"},
	}

	for _, tc := range testcases {
		t.Run(tc.label, func(t *testing.T) {
			buf := &bytes.Buffer{}
			e := trend.NewEstimator(&fakeStrategy{category: device.HardFalling, err: tc.err}, kitlog.NewLogfmtLogger(buf))

			state := device.NewState(device.Intervals{})
			state.Trend = device.SlightRising

			e.Estimate(context.Background(), s, state, time.Now())
			assert.Equal(t, device.SlightRising, state.Trend)
			assert.False(t, state.LastTrend.Valid)
			assert.Contains(t, buf.String(), tc.kind)
		})
	}
}

func TestEstimatorRequiresSession(t *testing.T) {
	strategy := &fakeStrategy{category: device.HardRising}
	e := trend.NewEstimator(strategy, kitlog.NewNopLogger())

	state := device.NewState(device.Intervals{})
	e.Estimate(context.Background(), nil, state, time.Now())

	assert.Equal(t, device.Flat, state.Trend)
	assert.Equal(t, 0, strategy.calls)

	_, _, err := e.Classify(context.Background(), nil, time.Now())
	assert.Equal(t, radio.ErrNoSession, err)
}
