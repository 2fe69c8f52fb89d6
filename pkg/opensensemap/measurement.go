package opensensemap

import (
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"

	"github.com/thingful/sensebox/pkg/device"
)

// Sensors maps each channel of the station to the openSenseMap sensor
// identifier it is published under. Channels with an empty identifier are not
// uploaded.
type Sensors map[device.Channel]string

// Measurement is one entry of the upload body. The ingestion service expects
// the value as a decimal string.
type Measurement struct {
	Sensor string `json:"sensor"`
	Value  string `json:"value"`
}

// Measurements converts a reading set into upload entries, one per configured
// channel that currently holds a value, in fixed channel order.
func Measurements(readings device.ReadingSet, sensors Sensors) []Measurement {
	measurements := []Measurement{}

	for _, ch := range device.Channels {
		id := sensors[ch]
		if id == "" {
			continue
		}

		v := readings.Value(ch)
		if !v.Valid {
			continue
		}

		measurements = append(measurements, Measurement{
			Sensor: id,
			Value:  strconv.FormatFloat(v.Float64, 'f', 2, 64),
		})
	}

	return measurements
}

// EncodeMeasurements renders the upload body for a reading set.
func EncodeMeasurements(readings device.ReadingSet, sensors Sensors) ([]byte, int, error) {
	measurements := Measurements(readings, sensors)

	b, err := json.Marshal(measurements)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to marshal measurements")
	}

	return b, len(measurements), nil
}

// DecodeMeasurements parses an upload body back into a sensor to value map.
func DecodeMeasurements(b []byte) (map[string]float64, error) {
	var measurements []Measurement

	err := json.Unmarshal(b, &measurements)
	if err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal measurements")
	}

	values := make(map[string]float64, len(measurements))
	for _, m := range measurements {
		v, err := strconv.ParseFloat(m.Value, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid value for sensor %s", m.Sensor)
		}
		values[m.Sensor] = v
	}

	return values, nil
}
