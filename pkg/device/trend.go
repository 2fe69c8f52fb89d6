package device

import "github.com/pkg/errors"

// TrendCategory is one of five buckets describing the short term direction
// and steepness of barometric pressure.
type TrendCategory int

const (
	// Flat is the zero value, so a device that has not yet estimated a trend
	// shows a horizontal arrow.
	Flat TrendCategory = iota
	HardRising
	SlightRising
	SlightFalling
	HardFalling
)

var trendNames = map[TrendCategory]string{
	Flat:          "Flat",
	HardRising:    "HardRising",
	SlightRising:  "SlightRising",
	SlightFalling: "SlightFalling",
	HardFalling:   "HardFalling",
}

// Trends lists every category from steepest rise to steepest fall.
var Trends = []TrendCategory{HardRising, SlightRising, Flat, SlightFalling, HardFalling}

// String fulfils the Stringer interface
func (t TrendCategory) String() string {
	if name, ok := trendNames[t]; ok {
		return name
	}
	return "Unknown"
}

// MarshalText renders the category by name in JSON output
func (t TrendCategory) MarshalText() ([]byte, error) {
	if _, ok := trendNames[t]; !ok {
		return nil, errors.Errorf("unknown trend category %d", int(t))
	}
	return []byte(t.String()), nil
}

// ParseTrendCategory returns the category with the given name.
func ParseTrendCategory(name string) (TrendCategory, error) {
	for t, n := range trendNames {
		if n == name {
			return t, nil
		}
	}
	return Flat, errors.Errorf("unknown trend category %q", name)
}
