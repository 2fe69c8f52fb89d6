package trend

import (
	"math"

	"github.com/thingful/sensebox/pkg/device"
)

// Thresholds are the strict lower bounds of the rising categories. The
// falling bounds mirror them.
type Thresholds struct {
	Hard   float64
	Slight float64
}

var (
	// DifferenceThresholds classify an absolute pressure change in hPa
	DifferenceThresholds = Thresholds{Hard: 1.5, Slight: 0.5}

	// SlopeThresholds classify a pressure slope in hPa per hour
	SlopeThresholds = Thresholds{Hard: 0.3, Slight: 0.1}
)

// precision is the resolution the classified quantity is rounded to, so that
// float noise never pushes a value over a threshold.
const precision = 1e6

// Classify buckets v into a trend category. Comparisons are strict, so a
// value exactly on a threshold falls into the gentler category.
func Classify(v float64, t Thresholds) device.TrendCategory {
	v = math.Round(v*precision) / precision

	switch {
	case v > t.Hard:
		return device.HardRising
	case v > t.Slight:
		return device.SlightRising
	case v > -t.Slight:
		return device.Flat
	case v > -t.Hard:
		return device.SlightFalling
	default:
		return device.HardFalling
	}
}

// Difference returns the change from the oldest to the newest window. At
// least two windows are required.
func Difference(windows []Window) (float64, error) {
	if len(windows) < 2 {
		return 0, ErrInsufficientData
	}

	return windows[len(windows)-1].Value - windows[0].Value, nil
}

// degenerate guards the regression denominator
const degenerate = 1e-9

// Slope returns the least squares slope of the values against their index.
func Slope(values []float64) (float64, error) {
	n := float64(len(values))
	if len(values) < 2 {
		return 0, ErrInsufficientData
	}

	var sx, sy, sxy, sxx float64
	for i, y := range values {
		x := float64(i)
		sx += x
		sy += y
		sxy += x * y
		sxx += x * x
	}

	denominator := n*sxx - sx*sx
	if math.Abs(denominator) < degenerate {
		return 0, ErrDegenerate
	}

	return (n*sxy - sx*sy) / denominator, nil
}
