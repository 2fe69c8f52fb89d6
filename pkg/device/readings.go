package device

import (
	"time"

	"github.com/guregu/null"
)

// Channel identifies one physical measurement channel of the station.
type Channel string

const (
	// Temperature is the calibrated temperature of the primary transducer in °C
	Temperature Channel = "temperature"

	// Pressure is the barometric pressure of the primary transducer in hPa
	Pressure Channel = "pressure"

	// AuxTemperature is the temperature of the auxiliary probe in °C
	AuxTemperature Channel = "auxTemperature"

	// Illuminance is the ambient light level in lux
	Illuminance Channel = "illuminance"
)

// Channels lists every channel in upload order.
var Channels = []Channel{Temperature, Pressure, AuxTemperature, Illuminance}

// ReadingSet holds the latest value of every channel. A channel that has
// never produced a value is null rather than zero. The set is overwritten in
// place on each sampling cycle, no history is kept.
type ReadingSet struct {
	Temperature    null.Float `json:"temperature"`
	Pressure       null.Float `json:"pressure"`
	AuxTemperature null.Float `json:"auxTemperature"`
	Illuminance    null.Float `json:"illuminance"`
	CapturedAt     null.Time  `json:"capturedAt"`
}

// Value returns the current value of the given channel.
func (r *ReadingSet) Value(ch Channel) null.Float {
	switch ch {
	case Temperature:
		return r.Temperature
	case Pressure:
		return r.Pressure
	case AuxTemperature:
		return r.AuxTemperature
	case Illuminance:
		return r.Illuminance
	}
	return null.Float{}
}

// Set records a new value for the given channel.
func (r *ReadingSet) Set(ch Channel, v float64) {
	switch ch {
	case Temperature:
		r.Temperature = null.FloatFrom(v)
	case Pressure:
		r.Pressure = null.FloatFrom(v)
	case AuxTemperature:
		r.AuxTemperature = null.FloatFrom(v)
	case Illuminance:
		r.Illuminance = null.FloatFrom(v)
	}
}

// Captured stamps the set with the wall clock time of the sampling cycle.
func (r *ReadingSet) Captured(at time.Time) {
	r.CapturedAt = null.TimeFrom(at)
}
