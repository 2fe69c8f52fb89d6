package trend

import (
	"context"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/guregu/null"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/thingful/sensebox/pkg/client"
	"github.com/thingful/sensebox/pkg/device"
	"github.com/thingful/sensebox/pkg/logger"
	"github.com/thingful/sensebox/pkg/radio"
)

var (
	estimates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sensebox_trend_estimates_total",
			Help: "Count of trend estimations by strategy and result",
		},
		[]string{"strategy", "result"},
	)

	category = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sensebox_trend_category",
			Help: "Current trend category, 0 flat, 1 hard rising, 2 slight rising, 3 slight falling, 4 hard falling",
		},
	)
)

func init() {
	prometheus.MustRegister(estimates)
	prometheus.MustRegister(category)
}

// Estimator updates the device trend using one strategy. A failed estimation
// leaves the previous trend in place.
type Estimator struct {
	strategy Strategy
	logger   kitlog.Logger
}

// NewEstimator returns an estimator for the given strategy
func NewEstimator(strategy Strategy, logger kitlog.Logger) *Estimator {
	logger = kitlog.With(logger, "module", "trend", "strategy", strategy.Name())

	return &Estimator{
		strategy: strategy,
		logger:   logger,
	}
}

// Estimate runs the strategy and stores the result in state. It never fails:
// errors are logged and counted, and the stale trend is kept.
func (e *Estimator) Estimate(ctx context.Context, session *radio.Session, state *device.State, now time.Time) {
	trend, value, err := e.Classify(ctx, session, now)
	if err != nil {
		e.logger.Log("msg", "trend estimation abandoned", "kind", kind(err), "keeping", state.Trend, "err", err)
		estimates.WithLabelValues(e.strategy.Name(), "failed").Inc()
		return
	}

	estimates.WithLabelValues(e.strategy.Name(), "ok").Inc()
	category.Set(float64(trend))

	e.logger.Log("msg", "trend estimated", "trend", trend, "value", value)

	state.Trend = trend
	state.LastTrend = null.TimeFrom(now)
}

// Classify runs the strategy once and returns its result. It requires an
// active radio session.
func (e *Estimator) Classify(ctx context.Context, session *radio.Session, now time.Time) (device.TrendCategory, float64, error) {
	if !session.Active() {
		return device.Flat, 0, radio.ErrNoSession
	}

	ctx = logger.ToContext(ctx, e.logger)

	return e.strategy.Estimate(ctx, now)
}

func kind(err error) string {
	if _, ok := errors.Cause(err).(Error); ok {
		return "malformed remote data"
	}
	if client.Rejected(err) {
		return "rejected"
	}
	return "network failure"
}
