package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/jonboulle/clockwork"
	goji "goji.io"
	"golang.org/x/time/rate"

	"github.com/thingful/sensebox/pkg/device"
	"github.com/thingful/sensebox/pkg/http/handlers"
	"github.com/thingful/sensebox/pkg/http/middleware"
)

const (
	// Timeout is a timeout we add on the server to enforce timeouts for slow
	// clients
	Timeout = 5
)

// HTTP exposes the read only status server of the station
type HTTP struct {
	logger kitlog.Logger
	srv    *http.Server
	*Config
}

// Config is a struct used to pass configuration into the HTTP instance
type Config struct {
	Addr         string
	Store        *device.Store
	MaxUploadAge time.Duration
	Verbose      bool
	Rate         rate.Limit
	Burst        int
	Expiry       time.Duration
	Clock        clockwork.Clock
	Now          func() time.Time
	QuitChan     <-chan struct{}
	ErrChan      chan<- error
	WaitGroup    *sync.WaitGroup
}

// NewHTTP returns a new HTTP instance configured and ready to use, but not yet
// started.
func NewHTTP(config *Config, logger kitlog.Logger) *HTTP {
	logger = kitlog.With(logger, "module", "http")

	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}

	// upload times are stamped in network time, not system time
	if config.Now == nil {
		config.Now = time.Now
	}

	srv := &http.Server{
		Addr:         config.Addr,
		ReadTimeout:  Timeout * time.Second,
		WriteTimeout: 2 * Timeout * time.Second,
	}

	logger.Log(
		"msg", "configuring http server",
		"addr", config.Addr,
		"readTimeout", Timeout,
		"writeTimeout", 2*Timeout,
	)

	return &HTTP{
		logger: logger,
		srv:    srv,
		Config: config,
	}
}

// Mux returns the configured multiplexer with all handlers and middleware
// attached.
func (h *HTTP) Mux(limiter *middleware.RateLimiterMiddleware) *goji.Mux {
	mux := goji.NewMux()

	handlers.RegisterHealthCheck(mux, h.Store, h.MaxUploadAge, h.Now)
	handlers.RegisterMetricsHandler(mux)
	handlers.RegisterReadingsHandlers(mux, h.Store)
	RegisterPulse(mux)

	mux.Use(middleware.RequestIDMiddleware)
	mux.Use(middleware.NewLoggingMiddleware(h.logger, h.Verbose).Handler)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(limiter.Handler)

	return mux
}

// Start starts the HTTP service running. It blocks until the quit channel is
// closed, listen errors are sent back on the error channel.
func (h *HTTP) Start() {
	defer h.WaitGroup.Done()

	h.logger.Log("msg", "starting http server")

	limiter := middleware.NewRateLimiterMiddleware(h.Clock, h.Rate, h.Burst, h.Expiry)
	go limiter.Start(h.QuitChan)

	h.srv.Handler = h.Mux(limiter)

	go func() {
		if err := h.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.ErrChan <- err
		}
	}()

	<-h.QuitChan

	h.logger.Log("msg", "stopping http service")

	ctx, cancelFn := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelFn()

	h.srv.Shutdown(ctx)
}
