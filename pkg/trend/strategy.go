package trend

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/thingful/sensebox/pkg/device"
	"github.com/thingful/sensebox/pkg/opensensemap"
)

const (
	// DefaultWindows is the number of aggregation windows requested
	DefaultWindows = 4

	// DefaultWindow is the length of one aggregation window
	DefaultWindow = 3 * time.Hour

	// MinWindows is the fewest accepted windows a difference can be taken over
	MinWindows = 2

	// DefaultCap bounds how many samples enter one regression
	DefaultCap = 20

	// MinSamples is the fewest raw samples a regression is attempted on
	MinSamples = 10

	// DefaultCadence is the interval the raw samples were produced at, the
	// default upload interval. The box only holds what the station uploads.
	DefaultCadence = time.Hour

	arithmeticMean = "arithmeticMean"
)

// Strategy classifies the recent pressure trajectory. The returned float is
// the quantity that was classified, for logging.
type Strategy interface {
	Name() string
	Estimate(ctx context.Context, now time.Time) (device.TrendCategory, float64, error)
}

// StatisticsSource returns windowed statistics in tidy format
type StatisticsSource interface {
	Statistics(ctx context.Context, q opensensemap.StatisticsQuery) ([]byte, error)
}

// SeriesSource returns raw measurements of one sensor as a JSON list
type SeriesSource interface {
	SensorData(ctx context.Context, sensorID string, from, to time.Time) ([]byte, error)
}

// Differencing compares the newest and oldest of a few long aggregation
// windows.
type Differencing struct {
	Source  StatisticsSource
	Windows int
	Window  time.Duration
}

// NewDifferencing returns a differencing strategy with the default windows.
func NewDifferencing(source StatisticsSource) *Differencing {
	return &Differencing{
		Source:  source,
		Windows: DefaultWindows,
		Window:  DefaultWindow,
	}
}

// Name is the strategy name as used in configuration
func (d *Differencing) Name() string {
	return "differencing"
}

// Estimate fetches the windows ending at now and classifies their difference
func (d *Differencing) Estimate(ctx context.Context, now time.Time) (device.TrendCategory, float64, error) {
	q := opensensemap.StatisticsQuery{
		Phenomenon: opensensemap.PressurePhenomenon,
		From:       now.Add(-time.Duration(d.Windows) * d.Window),
		To:         now,
		Operation:  arithmeticMean,
		Window:     d.Window,
	}

	payload, err := d.Source.Statistics(ctx, q)
	if err != nil {
		return device.Flat, 0, err
	}

	windows := ParseTidy(payload)
	if len(windows) < MinWindows {
		return device.Flat, 0, errors.Wrapf(ErrInsufficientData, "%d windows accepted", len(windows))
	}

	diff, err := Difference(windows)
	if err != nil {
		return device.Flat, 0, err
	}

	return Classify(diff, DifferenceThresholds), diff, nil
}

// Regression fits a least squares line through recent raw samples of the
// pressure sensor.
type Regression struct {
	Source     SeriesSource
	SensorID   string
	Cap        int
	MinSamples int
	Cadence    time.Duration
}

// NewRegression returns a regression strategy with the default bounds.
func NewRegression(source SeriesSource, sensorID string) *Regression {
	return &Regression{
		Source:     source,
		SensorID:   sensorID,
		Cap:        DefaultCap,
		MinSamples: MinSamples,
		Cadence:    DefaultCadence,
	}
}

// Name is the strategy name as used in configuration
func (r *Regression) Name() string {
	return "regression"
}

// Window returns the query range ending at now. It spans enough cadence
// periods to hold both MinSamples and Cap samples.
func (r *Regression) Window(now time.Time) (time.Time, time.Time) {
	periods := r.Cap
	if r.MinSamples > periods {
		periods = r.MinSamples
	}

	return now.Add(-time.Duration(periods) * r.Cadence), now
}

// Estimate fetches the samples of the last Window and classifies their slope
// per hour.
func (r *Regression) Estimate(ctx context.Context, now time.Time) (device.TrendCategory, float64, error) {
	from, to := r.Window(now)

	payload, err := r.Source.SensorData(ctx, r.SensorID, from, to)
	if err != nil {
		return device.Flat, 0, err
	}

	samples, err := ParseSamples(payload)
	if err != nil {
		return device.Flat, 0, err
	}

	perHour, err := r.SlopePerHour(samples)
	if err != nil {
		return device.Flat, 0, err
	}

	return Classify(perHour, SlopeThresholds), perHour, nil
}

// SlopePerHour takes newest first samples, drops implausible values, and
// returns the slope over the oldest Cap of them scaled to hPa per hour.
func (r *Regression) SlopePerHour(newestFirst []Sample) (float64, error) {
	plausible := make([]Sample, 0, len(newestFirst))
	for _, s := range newestFirst {
		if Plausible(s.Value) {
			plausible = append(plausible, s)
		}
	}

	if len(plausible) < r.MinSamples {
		return 0, errors.Wrapf(ErrInsufficientData, "%d samples", len(plausible))
	}

	samples := Chronological(plausible)
	if len(samples) > r.Cap {
		samples = samples[:r.Cap]
	}

	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = s.Value
	}

	slope, err := Slope(values)
	if err != nil {
		return 0, err
	}

	return slope * float64(time.Hour) / float64(r.Cadence), nil
}
