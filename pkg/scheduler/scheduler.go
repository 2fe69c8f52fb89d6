package scheduler

import (
	"context"
	"sync"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/guregu/null"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/thingful/sensebox/pkg/device"
	"github.com/thingful/sensebox/pkg/logger"
	"github.com/thingful/sensebox/pkg/radio"
	"github.com/thingful/sensebox/pkg/uploader"
)

const (
	// DefaultTick is the sleep between scheduler steps
	DefaultTick = 5 * time.Second

	// PrimaryMissing is shown when the pressure sensor cannot be initialised
	PrimaryMissing = "BMP280 MISSING"
)

// DefaultIntervals are the task periods of a station
var DefaultIntervals = device.Intervals{
	Sample:  time.Minute,
	Display: time.Minute,
	Upload:  time.Hour,
	Resync:  time.Hour,
}

var taskRuns = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sensebox_task_runs_total",
		Help: "Count of periodic task executions",
	},
	[]string{"task"},
)

func init() {
	prometheus.MustRegister(taskRuns)
}

// Sampler refreshes the readings of the state
type Sampler interface {
	Init() error
	Sample(state *device.State, now time.Time)
}

// Renderer draws the state on the display
type Renderer interface {
	Boot() error
	ShowError(msg string)
	Render(readings device.ReadingSet, now time.Time, trend device.TrendCategory)
}

// Radio hands out sessions during which network work may happen
type Radio interface {
	Acquire(ctx context.Context) (*radio.Session, error)
}

// Estimator updates the trend of the state
type Estimator interface {
	Estimate(ctx context.Context, session *radio.Session, state *device.State, now time.Time)
}

// WallClock is the network corrected local time
type WallClock interface {
	Now() time.Time
	Resolve(ctx context.Context, session *radio.Session) error
}

// Config holds the collaborators and periods of the scheduler
type Config struct {
	Intervals device.Intervals
	Tick      time.Duration
	Clock     clockwork.Clock

	Sampler   Sampler
	Renderer  Renderer
	Radio     Radio
	Uploader  uploader.Uploader
	Estimator Estimator
	WallClock WallClock
	Store     *device.Store

	QuitChan  <-chan struct{}
	ErrChan   chan<- error
	WaitGroup *sync.WaitGroup
}

// Scheduler runs the periodic tasks of the station one after another on a
// single goroutine, powering the radio only for batches of network work.
type Scheduler struct {
	*Config
	State  *device.State
	logger kitlog.Logger
}

// NewScheduler returns a scheduler with fresh device state, ready to boot.
func NewScheduler(config *Config, logger kitlog.Logger) *Scheduler {
	logger = kitlog.With(logger, "module", "scheduler")

	if config.Tick == 0 {
		config.Tick = DefaultTick
	}

	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}

	if config.Store == nil {
		config.Store = device.NewStore()
	}

	logger.Log(
		"msg", "configuring scheduler",
		"tick", config.Tick,
		"sample", config.Intervals.Sample,
		"display", config.Intervals.Display,
		"upload", config.Intervals.Upload,
		"resync", config.Intervals.Resync,
	)

	return &Scheduler{
		Config: config,
		State:  device.NewState(config.Intervals),
		logger: logger,
	}
}

// Start runs the scheduler until the quit channel closes. A boot failure is
// reported on the error channel.
func (s *Scheduler) Start() {
	defer s.WaitGroup.Done()

	s.logger.Log("msg", "starting scheduler")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-s.QuitChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := s.Run(ctx)
	if err != nil {
		s.ErrChan <- err
		return
	}

	s.logger.Log("msg", "stopping scheduler")
}

// Run boots the station then steps on every tick until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ctx = logger.ToContext(ctx, s.logger)

	err := s.Boot(ctx)
	if err != nil {
		return err
	}

	ticker := s.Clock.NewTicker(s.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			s.Step(ctx, s.Clock.Now())
		case <-ctx.Done():
			return nil
		}
	}
}

// Boot shows the splash screen, initialises the sensors, resolves time and
// the first trend over one radio session, then takes and shows the first
// readings. Only a display failure is returned.
func (s *Scheduler) Boot(ctx context.Context) error {
	err := s.Renderer.Boot()
	if err != nil {
		return errors.Wrap(err, "failed to boot display")
	}

	primaryOK := true

	err = s.Sampler.Init()
	if err != nil {
		s.logger.Log("msg", "sensor initialisation failed", "err", err)
		s.Renderer.ShowError(PrimaryMissing)
		primaryOK = false
	}

	s.withSession(ctx, func(session *radio.Session) {
		s.resync(ctx, session)
		s.Estimator.Estimate(ctx, session, s.State, s.WallClock.Now())
	})

	now := s.Clock.Now()
	s.State.Sample.Fire(now)
	s.State.Display.Fire(now)
	s.State.Upload.Fire(now)
	s.State.Resync.Fire(now)

	s.Sampler.Sample(s.State, s.WallClock.Now())

	// keep the diagnostic on screen until the next display period
	if primaryOK {
		s.Renderer.Render(s.State.Readings, s.WallClock.Now(), s.State.Trend)
	}

	s.publish()

	return nil
}

// Step runs every task that is due at now. Tasks are evaluated independently
// and run at most once. Upload and resync share one radio session. A timer is
// reset even if its task failed, the next period is the retry.
func (s *Scheduler) Step(ctx context.Context, now time.Time) {
	defer s.publish()

	if s.State.Sample.Due(now) {
		s.State.Sample.Fire(now)
		taskRuns.WithLabelValues("sample").Inc()
		s.Sampler.Sample(s.State, s.WallClock.Now())
	}

	if s.State.Display.Due(now) {
		s.State.Display.Fire(now)
		taskRuns.WithLabelValues("display").Inc()
		s.Renderer.Render(s.State.Readings, s.WallClock.Now(), s.State.Trend)
	}

	upload := s.State.Upload.Due(now)
	resync := s.State.Resync.Due(now)

	if !upload && !resync {
		return
	}

	if upload {
		s.State.Upload.Fire(now)
	}

	if resync {
		s.State.Resync.Fire(now)
	}

	s.withSession(ctx, func(session *radio.Session) {
		if upload {
			s.upload(ctx, session)
		}

		if resync {
			s.resync(ctx, session)
		}
	})
}

func (s *Scheduler) upload(ctx context.Context, session *radio.Session) {
	taskRuns.WithLabelValues("upload").Inc()

	err := s.Uploader.Upload(ctx, session, s.State.Readings)
	if err != nil {
		s.logger.Log("msg", "upload failed", "err", err)
	} else {
		s.State.LastUpload = null.TimeFrom(s.WallClock.Now())
	}

	taskRuns.WithLabelValues("trend").Inc()
	s.Estimator.Estimate(ctx, session, s.State, s.WallClock.Now())
}

func (s *Scheduler) resync(ctx context.Context, session *radio.Session) {
	taskRuns.WithLabelValues("resync").Inc()

	err := s.WallClock.Resolve(ctx, session)
	if err != nil {
		s.logger.Log("msg", "time resync failed", "err", err)
		return
	}

	s.State.TimeResolved = true
	s.State.LastSync = null.TimeFrom(s.WallClock.Now())
}

// withSession runs fn while holding a radio session, releasing it before
// returning. When association fails fn is skipped for this cycle.
func (s *Scheduler) withSession(ctx context.Context, fn func(session *radio.Session)) {
	session, err := s.Radio.Acquire(ctx)
	if err != nil {
		s.logger.Log("msg", "network unavailable, skipping network tasks", "err", err)
		return
	}
	defer session.Release()

	fn(session)
}

func (s *Scheduler) publish() {
	s.Store.Publish(s.State.Snapshot())
}
