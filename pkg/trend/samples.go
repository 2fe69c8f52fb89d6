package trend

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Sample is one raw pressure measurement.
type Sample struct {
	Value     float64
	Index     int
	Timestamp time.Time
}

// sampleValue accepts a measurement value given either as a JSON number or as
// a decimal string, which is how the data endpoint returns it.
type sampleValue float64

func (v *sampleValue) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return errors.Wrap(err, "invalid measurement value")
		}
		*v = sampleValue(f)
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return errors.Wrap(err, "invalid measurement value")
	}
	*v = sampleValue(f)
	return nil
}

type rawSample struct {
	Value     *sampleValue `json:"value"`
	CreatedAt time.Time    `json:"createdAt"`
}

// ParseSamples extracts the samples of a JSON list response, keeping the
// order of the response (newest first). Entries without a value are skipped.
// Indices follow response order.
func ParseSamples(payload []byte) ([]Sample, error) {
	b, err := IsolateJSON(payload)
	if err != nil {
		return nil, err
	}

	var raw []rawSample
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal samples")
	}

	samples := make([]Sample, 0, len(raw))
	for _, r := range raw {
		if r.Value == nil {
			continue
		}

		samples = append(samples, Sample{
			Value:     float64(*r.Value),
			Index:     len(samples),
			Timestamp: r.CreatedAt,
		})
	}

	return samples, nil
}

// Chronological returns the samples reversed into oldest-first order with
// indices renumbered from zero.
func Chronological(newestFirst []Sample) []Sample {
	n := len(newestFirst)
	samples := make([]Sample, n)

	for i, s := range newestFirst {
		s.Index = n - 1 - i
		samples[n-1-i] = s
	}

	return samples
}
