package sensor

import (
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/thingful/sensebox/pkg/device"
)

// Error is a constant error type used for sentinel values
type Error string

// Error is the implementation of the error interface
func (e Error) Error() string { return string(e) }

const (
	// PrimaryMissingError is returned from Init when the pressure/temperature
	// transducer did not respond. The reader keeps running without it.
	PrimaryMissingError = Error("primary pressure sensor missing")
)

var (
	values = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "sensebox",
			Name:      "reading",
			Help:      "The latest value read from each channel",
		}, []string{"channel"},
	)

	failures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sensebox",
			Name:      "sensor_read_failures_total",
			Help:      "A counter of failed transducer reads partitioned by channel",
		}, []string{"channel"},
	)
)

func init() {
	prometheus.MustRegister(values, failures)
}

// Primary is the combined pressure and temperature transducer.
type Primary interface {
	Init() error

	// ReadTemperature returns the uncalibrated temperature in °C
	ReadTemperature() (float64, error)

	// ReadPressure returns the pressure in hPa
	ReadPressure() (float64, error)
}

// Probe is a single channel transducer.
type Probe interface {
	Init() error
	Read() (float64, error)
}

// Requester is implemented by probes that need an explicit conversion request
// before a value can be read. The reader waits ConversionTime between the
// request and the read.
type Requester interface {
	Request() error
	ConversionTime() time.Duration
}

// Config holds the transducers attached to the station. Any of them may be
// nil if the channel is not fitted.
type Config struct {
	Primary    Primary
	Aux        Probe
	Light      Probe
	Clock      clockwork.Clock
	TempOffset float64
}

// Reader polls the attached transducers. A transducer that failed to
// initialize is skipped from then on and its channel keeps whatever value it
// last had.
type Reader struct {
	*Config
	ok     map[device.Channel]bool
	logger kitlog.Logger
}

// NewReader returns a reader ready to be initialized.
func NewReader(config *Config, logger kitlog.Logger) *Reader {
	logger = kitlog.With(logger, "module", "sensor")

	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}

	logger.Log("msg", "configuring sensor reader", "tempOffset", config.TempOffset)

	return &Reader{
		Config: config,
		ok:     map[device.Channel]bool{},
		logger: logger,
	}
}

// Init initializes every fitted transducer. It returns PrimaryMissingError if
// the primary transducer failed, but other channels are still usable.
func (r *Reader) Init() error {
	if r.Primary != nil {
		if err := r.Primary.Init(); err != nil {
			r.logger.Log("msg", "failed to initialize primary sensor", "err", err)
		} else {
			r.ok[device.Temperature] = true
			r.ok[device.Pressure] = true
		}
	}

	r.initProbe(device.AuxTemperature, r.Aux)
	r.initProbe(device.Illuminance, r.Light)

	if !r.ok[device.Pressure] {
		return PrimaryMissingError
	}

	return nil
}

func (r *Reader) initProbe(ch device.Channel, p Probe) {
	if p == nil {
		return
	}

	if err := p.Init(); err != nil {
		r.logger.Log("msg", "failed to initialize probe", "channel", ch, "err", err)
		return
	}

	r.ok[ch] = true
}

// PrimaryOK reports whether the primary transducer initialized.
func (r *Reader) PrimaryOK() bool {
	return r.ok[device.Pressure]
}

// Sample reads every working channel into the state's reading set. A failed
// read keeps the previous value of that channel.
func (r *Reader) Sample(state *device.State, now time.Time) {
	if r.ok[device.Pressure] {
		r.read(state, device.Temperature, func() (float64, error) {
			t, err := r.Primary.ReadTemperature()
			return t + r.TempOffset, err
		})
		r.read(state, device.Pressure, r.Primary.ReadPressure)
	}

	if r.ok[device.AuxTemperature] {
		r.read(state, device.AuxTemperature, r.requestAndRead(r.Aux))
	}

	if r.ok[device.Illuminance] {
		r.read(state, device.Illuminance, r.requestAndRead(r.Light))
	}

	state.PrimaryOK = r.ok[device.Pressure]
	state.Readings.Captured(now)
}

func (r *Reader) read(state *device.State, ch device.Channel, fn func() (float64, error)) {
	v, err := fn()
	if err != nil {
		failures.WithLabelValues(string(ch)).Inc()
		r.logger.Log("msg", "failed to read channel", "channel", ch, "err", err)
		return
	}

	state.Readings.Set(ch, v)
	values.WithLabelValues(string(ch)).Set(v)
}

// requestAndRead triggers a conversion on probes that need one and waits for
// it to complete before reading.
func (r *Reader) requestAndRead(p Probe) func() (float64, error) {
	return func() (float64, error) {
		if req, ok := p.(Requester); ok {
			if err := req.Request(); err != nil {
				return 0, err
			}

			if d := req.ConversionTime(); d > 0 {
				r.Clock.Sleep(d)
			}
		}

		return p.Read()
	}
}
