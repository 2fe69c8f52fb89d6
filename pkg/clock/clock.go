package clock

import (
	"context"
	"sync"
	"time"

	"github.com/beevik/ntp"
	kitlog "github.com/go-kit/kit/log"
	"github.com/jonboulle/clockwork"
	"github.com/lestrrat-go/backoff"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/thingful/sensebox/pkg/radio"
)

const (
	// DefaultServer is the NTP pool queried when no servers are configured
	DefaultServer = "pool.ntp.org"

	// DefaultAttempts bounds the number of time queries per resolution
	DefaultAttempts = 10

	// DefaultWait is the pause between time queries
	DefaultWait = time.Second

	queryTimeout = 5 * time.Second
)

var offsetGauge = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "sensebox_clock_offset_seconds",
		Help: "Offset of the local clock against network time",
	},
)

func init() {
	prometheus.MustRegister(offsetGauge)
}

// TimeSource returns the offset of the local clock against one time server
type TimeSource interface {
	Offset(ctx context.Context, server string) (time.Duration, error)
}

// NTP is a TimeSource querying NTP servers
type NTP struct {
	Timeout time.Duration
}

// Offset queries the server and validates its response
func (n NTP) Offset(ctx context.Context, server string) (time.Duration, error) {
	timeout := n.Timeout
	if timeout == 0 {
		timeout = queryTimeout
	}

	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	resp, err := ntp.QueryWithOptions(server, ntp.QueryOptions{Timeout: timeout})
	if err != nil {
		return 0, errors.Wrapf(err, "failed to query %s", server)
	}

	err = resp.Validate()
	if err != nil {
		return 0, errors.Wrapf(err, "invalid response from %s", server)
	}

	return resp.ClockOffset, nil
}

// Config holds the time servers, the local zone and the retry bounds
type Config struct {
	Servers  []string
	Location *time.Location
	Attempts int
	Wait     time.Duration
	Source   TimeSource
	Clock    clockwork.Clock
}

// Clock is the local wall clock corrected by the last network time offset. It
// may be read from other goroutines while the scheduler resolves it.
type Clock struct {
	*Config
	sync.RWMutex

	logger   kitlog.Logger
	offset   time.Duration
	resolved bool
}

// NewClock returns a new unresolved clock, filling in defaults
func NewClock(config *Config, logger kitlog.Logger) *Clock {
	logger = kitlog.With(logger, "module", "clock")

	if len(config.Servers) == 0 {
		config.Servers = []string{DefaultServer}
	}

	if config.Location == nil {
		config.Location = time.UTC
	}

	if config.Attempts <= 0 {
		config.Attempts = DefaultAttempts
	}

	if config.Wait <= 0 {
		config.Wait = DefaultWait
	}

	if config.Source == nil {
		config.Source = NTP{}
	}

	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}

	return &Clock{
		Config: config,
		logger: logger,
	}
}

// Resolve queries the configured servers in turn until one answers or the
// attempts run out. A failed resolution keeps the previous offset.
func (c *Clock) Resolve(ctx context.Context, session *radio.Session) error {
	if !session.Active() {
		return radio.ErrNoSession
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	policy := backoff.NewConstant(c.Wait, backoff.WithMaxRetries(c.Attempts))

	var offset time.Duration
	attempt := 0

	e := backoff.ExecuteFunc(func(ctx context.Context) error {
		if attempt >= c.Attempts {
			cancel()
			return errors.New("time resolution attempts exhausted")
		}

		server := c.Servers[attempt%len(c.Servers)]
		attempt++

		o, err := c.Source.Offset(ctx, server)
		if err != nil {
			c.logger.Log("msg", "time query failed", "server", server, "attempt", attempt, "err", err)
			if attempt >= c.Attempts {
				cancel()
			}
			return err
		}

		offset = o
		return nil
	})

	err := backoff.Retry(ctx, policy, e)
	if err != nil {
		return errors.Wrap(err, "failed to resolve network time")
	}

	c.Lock()
	c.offset = offset
	c.resolved = true
	c.Unlock()

	offsetGauge.Set(offset.Seconds())
	c.logger.Log("msg", "time resolved", "offset", offset, "now", c.Now().Format(time.RFC3339))

	return nil
}

// Now returns the corrected wall clock time in the configured zone
func (c *Clock) Now() time.Time {
	c.RLock()
	defer c.RUnlock()

	return c.Clock.Now().Add(c.offset).In(c.Location)
}

// Resolved returns true once network time has been resolved at least once
func (c *Clock) Resolved() bool {
	c.RLock()
	defer c.RUnlock()

	return c.resolved
}
