package trend

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	tidyHeader = "sensorId"
	tidyFields = 3

	// minIDLength separates real sensor identifiers (24 hex characters) from
	// header or error tokens
	minIDLength = 10

	// MinPressure and MaxPressure bound physically plausible readings in hPa
	MinPressure = 800.0
	MaxPressure = 1200.0
)

// Window is one aggregated pressure value of the statistics endpoint.
type Window struct {
	SensorID string
	Start    time.Time
	Value    float64
}

// ParseTidy extracts the accepted rows of a tidy `sensorId,windowStart,value`
// response, ordered by window start. Rejected rows are skipped without
// affecting later rows.
func ParseTidy(payload []byte) []Window {
	windows := []Window{}

	for _, line := range IsolateTidy(payload) {
		w, ok := acceptRow(strings.Split(line, ","))
		if !ok {
			continue
		}
		windows = append(windows, w)
	}

	sort.SliceStable(windows, func(i, j int) bool {
		return windows[i].Start.Before(windows[j].Start)
	})

	return windows
}

// acceptRow reports whether a row is a data row: it must have exactly the
// expected number of fields, a sensor id long enough to be real, a timestamp
// and a plausible pressure value.
func acceptRow(fields []string) (Window, bool) {
	if len(fields) != tidyFields {
		return Window{}, false
	}

	id := strings.TrimSpace(fields[0])
	if len(id) <= minIDLength {
		return Window{}, false
	}

	start, err := time.Parse(time.RFC3339, strings.TrimSpace(fields[1]))
	if err != nil {
		return Window{}, false
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil || !Plausible(value) {
		return Window{}, false
	}

	return Window{
		SensorID: id,
		Start:    start,
		Value:    value,
	}, true
}

// Plausible reports whether v is a believable barometric pressure in hPa.
func Plausible(v float64) bool {
	return v >= MinPressure && v <= MaxPressure
}
