package app

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
	"periph.io/x/periph/conn/i2c"

	"github.com/thingful/sensebox/pkg/client"
	"github.com/thingful/sensebox/pkg/clock"
	"github.com/thingful/sensebox/pkg/device"
	"github.com/thingful/sensebox/pkg/display"
	"github.com/thingful/sensebox/pkg/hardware"
	"github.com/thingful/sensebox/pkg/http"
	"github.com/thingful/sensebox/pkg/logger"
	"github.com/thingful/sensebox/pkg/opensensemap"
	"github.com/thingful/sensebox/pkg/radio"
	"github.com/thingful/sensebox/pkg/scheduler"
	"github.com/thingful/sensebox/pkg/sensor"
	"github.com/thingful/sensebox/pkg/trend"
	"github.com/thingful/sensebox/pkg/uploader"
	"github.com/thingful/sensebox/pkg/version"
)

// Config is the provisioning of one station, read once at start up.
type Config struct {
	BoxID      string
	Token      string
	IngressURL string
	APIURL     string
	Sensors    opensensemap.Sensors

	SSID      string
	Password  string
	Interface string
	Wired     bool

	I2CBus     string
	Light      bool
	Aux        bool
	AuxID      string
	W1Root     string
	TempOffset float64

	Night      display.NightWindow
	Location   *time.Location
	NTPServers []string

	Intervals     device.Intervals
	Tick          time.Duration
	TrendStrategy string
	TrendCadence  time.Duration
	ClientTimeout int
	Verbose       bool

	Addr         string
	MaxUploadAge time.Duration
	Rate         rate.Limit
	Burst        int
	Expiry       time.Duration

	MQTTBroker string
	MQTTTopic  string
}

// App is our core application instance - holds all the state and child
// components and is responsible for starting/stopping and managing
// communication between these elements.
type App struct {
	logger    kitlog.Logger
	bus       i2c.BusCloser
	panel     *hardware.SSD1306
	scheduler *scheduler.Scheduler
	http      *http.HTTP

	quitChan chan struct{}
	errChan  chan error
	wg       *sync.WaitGroup
}

// NewApp opens the hardware and wires every component. A display that does not
// respond is an error, every other device degrades gracefully.
func NewApp(config *Config) (*App, error) {
	logger := logger.NewLogger()

	logger.Log("msg", "configuring app", "version", version.VersionString(), "box", config.BoxID)

	quitChan := make(chan struct{})
	errChan := make(chan error, 2)
	var wg sync.WaitGroup

	bus, err := hardware.OpenBus(config.I2CBus)
	if err != nil {
		return nil, err
	}

	panel, err := hardware.NewSSD1306(bus, hardware.SSD1306Address, display.Width, display.Height)
	if err != nil {
		bus.Close()
		return nil, err
	}

	realClock := clockwork.NewRealClock()
	store := device.NewStore()

	osem := newOSeM(config)
	manager := newRadio(config, logger)

	estimator, err := NewEstimator(config, osem, logger)
	if err != nil {
		bus.Close()
		return nil, err
	}

	wallClock := clock.NewClock(&clock.Config{
		Servers:  config.NTPServers,
		Location: config.Location,
		Clock:    realClock,
	}, logger)

	s := scheduler.NewScheduler(&scheduler.Config{
		Intervals: config.Intervals,
		Tick:      config.Tick,
		Clock:     realClock,
		Sampler:   newReader(config, bus, realClock, logger),
		Renderer:  display.NewRenderer(panel, config.Night, logger),
		Radio:     manager,
		Uploader:  newUploader(config, osem, logger),
		Estimator: estimator,
		WallClock: wallClock,
		Store:     store,
		QuitChan:  quitChan,
		ErrChan:   errChan,
		WaitGroup: &wg,
	}, logger)

	var h *http.HTTP
	if config.Addr != "" {
		h = http.NewHTTP(&http.Config{
			Addr:         config.Addr,
			Store:        store,
			MaxUploadAge: config.MaxUploadAge,
			Verbose:      config.Verbose,
			Rate:         config.Rate,
			Burst:        config.Burst,
			Expiry:       config.Expiry,
			Clock:        realClock,
			Now:          wallClock.Now,
			QuitChan:     quitChan,
			ErrChan:      errChan,
			WaitGroup:    &wg,
		}, logger)
	}

	return &App{
		logger:    logger,
		bus:       bus,
		panel:     panel,
		scheduler: s,
		http:      h,
		quitChan:  quitChan,
		errChan:   errChan,
		wg:        &wg,
	}, nil
}

// Start runs the scheduler and the status server until the process is
// interrupted or one of them fails.
func (a *App) Start() error {
	a.logger.Log("msg", "starting app")

	defer a.shutdown()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM)

	a.wg.Add(1)
	go a.scheduler.Start()

	if a.http != nil {
		a.wg.Add(1)
		go a.http.Start()
	}

	select {
	case <-stopChan:
		a.logger.Log("msg", "stopping app")
		close(a.quitChan)
		a.wg.Wait()
	case err := <-a.errChan:
		close(a.quitChan)
		a.wg.Wait()
		return err
	}

	return nil
}

func (a *App) shutdown() {
	if err := a.panel.PowerOff(); err != nil {
		a.logger.Log("msg", "failed to power off display", "err", err)
	}

	if err := a.bus.Close(); err != nil {
		a.logger.Log("msg", "failed to close i2c bus", "err", err)
	}
}

// NewEstimator returns the trend estimator for the configured strategy.
func NewEstimator(config *Config, osem *opensensemap.OSeM, logger kitlog.Logger) (*trend.Estimator, error) {
	strategy, err := NewStrategy(config, osem)
	if err != nil {
		return nil, err
	}

	return trend.NewEstimator(strategy, logger), nil
}

// NewStrategy returns the configured trend strategy. The regression samples
// are the station's own uploads, so unless overridden their cadence is the
// upload interval.
func NewStrategy(config *Config, osem *opensensemap.OSeM) (trend.Strategy, error) {
	switch config.TrendStrategy {
	case "differencing":
		return trend.NewDifferencing(osem), nil
	case "regression", "":
		id := config.Sensors[device.Pressure]
		if id == "" {
			return nil, errors.New("regression trend requires the pressure sensor id")
		}

		r := trend.NewRegression(osem, id)
		switch {
		case config.TrendCadence > 0:
			if config.TrendCadence < config.Intervals.Upload {
				return nil, errors.Errorf("trend cadence %s is shorter than the upload interval %s", config.TrendCadence, config.Intervals.Upload)
			}
			r.Cadence = config.TrendCadence
		case config.Intervals.Upload > 0:
			r.Cadence = config.Intervals.Upload
		}
		return r, nil
	default:
		return nil, errors.Errorf("unknown trend strategy %q", config.TrendStrategy)
	}
}

// EstimateOnce acquires the radio and runs one trend estimation without
// touching the station hardware.
func EstimateOnce(ctx context.Context, config *Config) (device.TrendCategory, float64, error) {
	logger := logger.NewLogger()

	estimator, err := NewEstimator(config, newOSeM(config), logger)
	if err != nil {
		return device.Flat, 0, err
	}

	session, err := newRadio(config, logger).Acquire(ctx)
	if err != nil {
		return device.Flat, 0, err
	}
	defer session.Release()

	return estimator.Classify(ctx, session, time.Now())
}

// UploadOnce samples the sensors once and uploads the readings.
func UploadOnce(ctx context.Context, config *Config) (device.ReadingSet, error) {
	logger := logger.NewLogger()

	bus, err := hardware.OpenBus(config.I2CBus)
	if err != nil {
		return device.ReadingSet{}, err
	}
	defer bus.Close()

	reader := newReader(config, bus, clockwork.NewRealClock(), logger)
	if err := reader.Init(); err != nil {
		logger.Log("msg", "sensor initialisation failed", "err", err)
	}

	state := device.NewState(config.Intervals)
	reader.Sample(state, time.Now())

	session, err := newRadio(config, logger).Acquire(ctx)
	if err != nil {
		return state.Readings, err
	}
	defer session.Release()

	return state.Readings, newUploader(config, newOSeM(config), logger).Upload(ctx, session, state.Readings)
}

func newOSeM(config *Config) *opensensemap.OSeM {
	return opensensemap.NewClient(
		client.NewClient(config.ClientTimeout, config.Verbose),
		&opensensemap.Config{
			IngressURL: config.IngressURL,
			APIURL:     config.APIURL,
			BoxID:      config.BoxID,
			Token:      config.Token,
		},
	)
}

func newRadio(config *Config, logger kitlog.Logger) *radio.Manager {
	var r radio.Radio = radio.Wired{}
	if !config.Wired {
		r = hardware.NewNMCLI(config.Interface)
	}

	return radio.NewManager(&radio.Config{
		SSID:     config.SSID,
		Password: config.Password,
		Radio:    r,
	}, logger)
}

func newReader(config *Config, bus i2c.Bus, clock clockwork.Clock, logger kitlog.Logger) *sensor.Reader {
	c := &sensor.Config{
		Primary:    hardware.NewBMP280(bus),
		Clock:      clock,
		TempOffset: config.TempOffset,
	}

	if config.Aux {
		c.Aux = hardware.NewDS18B20(config.W1Root, config.AuxID)
	}

	if config.Light {
		c.Light = hardware.NewBH1750(bus, hardware.BH1750Address)
	}

	return sensor.NewReader(c, logger)
}

func newUploader(config *Config, osem *opensensemap.OSeM, logger kitlog.Logger) uploader.Uploader {
	primary := uploader.NewHTTP(osem, config.Sensors, logger)

	if config.MQTTBroker == "" {
		return primary
	}

	publisher := uploader.NewPaho(
		config.MQTTBroker,
		version.BinaryName+"-"+config.BoxID,
		time.Duration(config.ClientTimeout)*time.Second,
	)

	return uploader.NewMirror(primary, logger, uploader.NewMQTT(publisher, config.MQTTTopic, config.Sensors, logger))
}
