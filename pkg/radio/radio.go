package radio

import (
	"context"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/lestrrat-go/backoff"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Error is a constant error type used for radio sentinel values
type Error string

// Error is the implementation of the error interface
func (e Error) Error() string { return string(e) }

const (
	// ErrSessionHeld is returned when a session is requested while another is
	// still held
	ErrSessionHeld = Error("radio session already held")

	// ErrNoSession is returned by network operations attempted without an
	// active session
	ErrNoSession = Error("no active radio session")

	errAttemptsExhausted = Error("association attempts exhausted")

	// DefaultAttempts is the number of association attempts before giving up
	DefaultAttempts = 20

	// DefaultWait is the pause between association attempts
	DefaultWait = 500 * time.Millisecond
)

var (
	associations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sensebox_radio_associations_total",
			Help: "Count of radio association attempts by result",
		},
		[]string{"result"},
	)

	sessionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sensebox_radio_session_duration_seconds",
			Help:    "How long the radio stayed powered for one batch of network work",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
)

func init() {
	prometheus.MustRegister(associations)
	prometheus.MustRegister(sessionDuration)
}

// Radio is the interface of the wireless hardware. Associate powers the radio
// and joins the network, returning an error if the network is not reachable
// yet. Teardown disconnects and powers the radio off.
type Radio interface {
	Associate(ctx context.Context, ssid, password string) error
	Teardown() error
}

// Config holds the network credentials and the association retry bounds
type Config struct {
	SSID     string
	Password string
	Attempts int
	Wait     time.Duration
	Radio    Radio
}

// Manager hands out at most one radio session at a time
type Manager struct {
	*Config

	logger kitlog.Logger
	held   bool
}

// NewManager returns a new manager for the given radio
func NewManager(config *Config, logger kitlog.Logger) *Manager {
	logger = kitlog.With(logger, "module", "radio")

	if config.Attempts <= 0 {
		config.Attempts = DefaultAttempts
	}

	if config.Wait <= 0 {
		config.Wait = DefaultWait
	}

	return &Manager{
		Config: config,
		logger: logger,
	}
}

// Acquire powers the radio and associates with the configured network. The
// returned session must be released once the batch of network work is done.
// On failure the radio is torn down again and no session is held.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	if m.held {
		return nil, ErrSessionHeld
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	policy := backoff.NewConstant(m.Wait, backoff.WithMaxRetries(m.Attempts))

	// the attempt bound is enforced here as well so the count is exact
	attempt := 0
	e := backoff.ExecuteFunc(func(ctx context.Context) error {
		if attempt >= m.Attempts {
			cancel()
			return errAttemptsExhausted
		}

		attempt++
		err := m.Radio.Associate(ctx, m.SSID, m.Password)
		if err != nil && attempt >= m.Attempts {
			cancel()
		}
		return err
	})

	err := backoff.Retry(ctx, policy, e)
	if err != nil {
		associations.WithLabelValues("failed").Inc()
		m.logger.Log("msg", "association failed", "ssid", m.SSID, "attempts", attempt, "err", err)

		if terr := m.Radio.Teardown(); terr != nil {
			m.logger.Log("msg", "teardown failed", "err", terr)
		}

		return nil, errors.Wrap(err, "failed to associate")
	}

	associations.WithLabelValues("ok").Inc()
	m.logger.Log("msg", "associated", "ssid", m.SSID, "attempts", attempt)

	m.held = true

	return &Session{
		manager: m,
		started: time.Now(),
		active:  true,
	}, nil
}

// Held reports whether a session is currently outstanding
func (m *Manager) Held() bool {
	return m.held
}

// Session represents the network being reachable right now
type Session struct {
	manager *Manager
	started time.Time
	active  bool
}

// Active returns true while the session has not been released. A nil session
// is never active.
func (s *Session) Active() bool {
	return s != nil && s.active
}

// Release tears the radio down. Releasing twice is a no-op.
func (s *Session) Release() {
	if !s.Active() {
		return
	}

	s.active = false
	s.manager.held = false

	sessionDuration.Observe(time.Since(s.started).Seconds())

	if err := s.manager.Radio.Teardown(); err != nil {
		s.manager.logger.Log("msg", "teardown failed", "err", err)
	}
}

// Wired is a radio for stations on a permanent connection, association
// always succeeds and teardown does nothing
type Wired struct{}

// Associate is a no-op
func (Wired) Associate(ctx context.Context, ssid, password string) error { return nil }

// Teardown is a no-op
func (Wired) Teardown() error { return nil }
