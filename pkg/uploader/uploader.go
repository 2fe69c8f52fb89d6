package uploader

import (
	"context"

	kitlog "github.com/go-kit/kit/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/thingful/sensebox/pkg/client"
	"github.com/thingful/sensebox/pkg/device"
	"github.com/thingful/sensebox/pkg/logger"
	"github.com/thingful/sensebox/pkg/opensensemap"
	"github.com/thingful/sensebox/pkg/radio"
)

// Error is a constant error type used for uploader sentinel values
type Error string

// Error is the implementation of the error interface
func (e Error) Error() string { return string(e) }

// ErrNothingToUpload is returned when no configured channel holds a value
const ErrNothingToUpload = Error("no readings to upload")

var uploads = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sensebox_uploads_total",
		Help: "Count of upload attempts by target and result",
	},
	[]string{"target", "result"},
)

func init() {
	prometheus.MustRegister(uploads)
}

// Uploader publishes the current readings while a radio session is held
type Uploader interface {
	Upload(ctx context.Context, session *radio.Session, readings device.ReadingSet) error
}

// Poster sends an encoded measurement body to the ingestion service
type Poster interface {
	PostMeasurements(ctx context.Context, body []byte) error
}

// HTTP uploads readings to the openSenseMap ingestion endpoint. A failed
// upload is not retried, the next scheduled upload is the retry.
type HTTP struct {
	poster  Poster
	sensors opensensemap.Sensors
	logger  kitlog.Logger
}

// NewHTTP returns a new ingestion uploader
func NewHTTP(poster Poster, sensors opensensemap.Sensors, logger kitlog.Logger) *HTTP {
	logger = kitlog.With(logger, "module", "uploader", "target", "http")

	return &HTTP{
		poster:  poster,
		sensors: sensors,
		logger:  logger,
	}
}

// Upload encodes and posts the readings
func (h *HTTP) Upload(ctx context.Context, session *radio.Session, readings device.ReadingSet) error {
	if !session.Active() {
		return radio.ErrNoSession
	}

	body, n, err := opensensemap.EncodeMeasurements(readings, h.sensors)
	if err != nil {
		return err
	}

	if n == 0 {
		return ErrNothingToUpload
	}

	err = h.poster.PostMeasurements(logger.ToContext(ctx, h.logger), body)
	if err != nil {
		result := "failed"
		if client.Rejected(err) {
			result = "rejected"
		}
		uploads.WithLabelValues("http", result).Inc()
		return err
	}

	uploads.WithLabelValues("http", "ok").Inc()
	h.logger.Log("msg", "uploaded readings", "measurements", n)

	return nil
}

// Mirror uploads to a primary target and additionally to any mirrors. Only
// the primary result is returned, mirror failures are logged.
type Mirror struct {
	primary Uploader
	mirrors []Uploader
	logger  kitlog.Logger
}

// NewMirror returns an uploader fanning out to the given mirrors
func NewMirror(primary Uploader, logger kitlog.Logger, mirrors ...Uploader) *Mirror {
	return &Mirror{
		primary: primary,
		mirrors: mirrors,
		logger:  kitlog.With(logger, "module", "uploader"),
	}
}

// Upload sends the readings to the primary, then to every mirror
func (m *Mirror) Upload(ctx context.Context, session *radio.Session, readings device.ReadingSet) error {
	err := m.primary.Upload(ctx, session, readings)

	for _, mirror := range m.mirrors {
		if merr := mirror.Upload(ctx, session, readings); merr != nil {
			m.logger.Log("msg", "mirror upload failed", "err", merr)
		}
	}

	return err
}
