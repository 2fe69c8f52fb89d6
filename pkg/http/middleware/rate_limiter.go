package middleware

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	registry "github.com/thingful/retryable-registry-prometheus"
	"golang.org/x/time/rate"
)

const (
	// DefaultRate is the request rate each client is allowed per second
	DefaultRate = 4

	// DefaultExpiry is how long an idle client's limiter is kept
	DefaultExpiry = time.Minute
)

var (
	limited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sensebox",
			Name:      "rate_limited_requests",
			Help:      "A counter of rate limited requests",
		}, []string{"path"},
	)
)

func init() {
	registry.MustRegister(limited)
}

// visitor holds the limiter of one client along with when it was last seen,
// so idle entries can be cleaned up.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func (v *visitor) expired(clock clockwork.Clock, expiry time.Duration) bool {
	return clock.Now().Sub(v.lastSeen) > expiry
}

// RateLimiterMiddleware limits requests per remote host. The status server
// runs on a small device so a misbehaving poller must not starve the
// scheduler of CPU.
type RateLimiterMiddleware struct {
	rate     rate.Limit
	burst    int
	expiry   time.Duration
	clock    clockwork.Clock
	visitors map[string]*visitor
	sync.Mutex
}

// NewRateLimiterMiddleware returns a new limiter. Zero values fall back to
// the defaults.
func NewRateLimiterMiddleware(clock clockwork.Clock, r rate.Limit, burst int, expiry time.Duration) *RateLimiterMiddleware {
	if r == 0 {
		r = DefaultRate
	}

	if burst == 0 {
		burst = int(r) * 2
	}

	if expiry == 0 {
		expiry = DefaultExpiry
	}

	return &RateLimiterMiddleware{
		rate:     r,
		burst:    burst,
		expiry:   expiry,
		clock:    clock,
		visitors: make(map[string]*visitor),
	}
}

// Start removes stale entries every expiry period until quit is closed
func (rm *RateLimiterMiddleware) Start(quit <-chan struct{}) {
	ticker := rm.clock.NewTicker(rm.expiry)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			rm.cleanupVisitors()
		case <-quit:
			return
		}
	}
}

// Handler is the middleware handler function
func (rm *RateLimiterMiddleware) Handler(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		limiter := rm.getVisitor(remoteHost(r))

		if !limiter.Allow() {
			limited.With(
				prometheus.Labels{
					"path": r.URL.Path,
				},
			).Inc()

			wait := time.Second
			if rm.rate > 0 {
				wait = time.Duration(float64(time.Second) / float64(rm.rate))
			}

			tooManyRequestsError(w, fmt.Errorf("rate limit exceeded, no more than %v req/sec allowed", rm.rate), wait)
			return
		}

		next.ServeHTTP(w, r)
	}

	return http.HandlerFunc(fn)
}

// getVisitor returns the limiter for host, creating it on first sight
func (rm *RateLimiterMiddleware) getVisitor(host string) *rate.Limiter {
	rm.Lock()
	defer rm.Unlock()

	v, ok := rm.visitors[host]
	if !ok {
		v = &visitor{
			limiter: rate.NewLimiter(rm.rate, rm.burst),
		}
		rm.visitors[host] = v
	}

	v.lastSeen = rm.clock.Now()

	return v.limiter
}

// cleanupVisitors removes visitors not seen for the expiry duration
func (rm *RateLimiterMiddleware) cleanupVisitors() {
	rm.Lock()
	defer rm.Unlock()

	for host, v := range rm.visitors {
		if v.expired(rm.clock, rm.expiry) {
			delete(rm.visitors, host)
		}
	}
}

// Visitors returns the number of clients currently tracked
func (rm *RateLimiterMiddleware) Visitors() int {
	rm.Lock()
	defer rm.Unlock()
	return len(rm.visitors)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
