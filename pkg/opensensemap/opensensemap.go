package opensensemap

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/thingful/sensebox/pkg/client"
	"github.com/thingful/sensebox/pkg/logger"
)

const (
	// IngressURL is the plain http host accepting measurement uploads
	IngressURL = "http://ingress.opensensemap.org"

	// APIURL is the host serving historical data and statistics
	APIURL = "https://api.opensensemap.org"

	// PressurePhenomenon is the phenomenon name the statistics endpoint
	// aggregates pressure sensors under
	PressurePhenomenon = "Pressure"

	// timeFormat is ISO-8601 in UTC with millisecond precision
	timeFormat = "2006-01-02T15:04:05.000Z"
)

// Config holds the provisioning values for one senseBox.
type Config struct {
	IngressURL string
	APIURL     string
	BoxID      string
	Token      string
}

// OSeM is our openSenseMap client instance.
type OSeM struct {
	client *client.Client
	*Config
}

// NewClient creates a new openSenseMap client. Empty URLs fall back to the
// public hosts.
func NewClient(c *client.Client, config *Config) *OSeM {
	if config.IngressURL == "" {
		config.IngressURL = IngressURL
	}

	if config.APIURL == "" {
		config.APIURL = APIURL
	}

	return &OSeM{
		client: c,
		Config: config,
	}
}

// PostMeasurements uploads an encoded measurement body for the box. The token
// is sent verbatim as the Authorization header. The response body is logged
// and discarded.
func (o *OSeM) PostMeasurements(ctx context.Context, body []byte) error {
	log := logger.FromContext(ctx)

	b, err := o.client.Post(ctx, o.measurementsURL(), o.Token, body)
	if err != nil {
		return errors.Wrap(err, "failed to post measurements")
	}

	log.Log("msg", "posted measurements", "response", string(b))

	return nil
}

// StatisticsQuery describes a request for windowed descriptive statistics of
// one phenomenon across the box.
type StatisticsQuery struct {
	Phenomenon string
	From       time.Time
	To         time.Time
	Operation  string
	Window     time.Duration
}

// Statistics fetches windowed statistics in the tidy delimited format, i.e.
// rows of `sensorId,windowStart,value`. The raw payload is returned for the
// caller to parse.
func (o *OSeM) Statistics(ctx context.Context, q StatisticsQuery) ([]byte, error) {
	b, err := o.client.Get(ctx, o.StatisticsURL(q))
	if err != nil {
		return nil, errors.Wrap(err, "failed to retrieve statistics")
	}

	return b, nil
}

// SensorData fetches raw measurements of one sensor between from and to as a
// JSON list, newest first.
func (o *OSeM) SensorData(ctx context.Context, sensorID string, from, to time.Time) ([]byte, error) {
	b, err := o.client.Get(ctx, o.SensorDataURL(sensorID, from, to))
	if err != nil {
		return nil, errors.Wrap(err, "failed to retrieve sensor data")
	}

	return b, nil
}

func (o *OSeM) measurementsURL() string {
	return fmt.Sprintf("%s/boxes/%s/data", o.IngressURL, url.PathEscape(o.BoxID))
}

// StatisticsURL returns the descriptive statistics URL for the query.
func (o *OSeM) StatisticsURL(q StatisticsQuery) string {
	v := url.Values{}
	v.Set("boxid", o.BoxID)
	v.Set("phenomenon", q.Phenomenon)
	v.Set("from-date", q.From.UTC().Format(timeFormat))
	v.Set("to-date", q.To.UTC().Format(timeFormat))
	v.Set("operation", q.Operation)
	v.Set("window", strconv.FormatInt(int64(q.Window/time.Millisecond), 10))
	v.Set("format", "tidy")

	return fmt.Sprintf("%s/statistics/descriptive?%s", o.APIURL, v.Encode())
}

// SensorDataURL returns the raw data URL for one sensor of the box.
func (o *OSeM) SensorDataURL(sensorID string, from, to time.Time) string {
	v := url.Values{}
	v.Set("format", "json")
	v.Set("from-date", from.UTC().Format(timeFormat))
	v.Set("to-date", to.UTC().Format(timeFormat))

	return fmt.Sprintf("%s/boxes/%s/data/%s?%s", o.APIURL, url.PathEscape(o.BoxID), url.PathEscape(sensorID), v.Encode())
}
