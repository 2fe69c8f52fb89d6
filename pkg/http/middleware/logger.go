package middleware

import (
	"net/http"
	"time"

	kitlog "github.com/go-kit/kit/log"

	"github.com/thingful/sensebox/pkg/logger"
)

// statusRecorder remembers the code written by the wrapped handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// LoggingMiddleware hands each status request a logger tagged with its
// request id. Failed requests are always logged, the rest only when verbose.
type LoggingMiddleware struct {
	logger  kitlog.Logger
	verbose bool
}

// NewLoggingMiddleware returns a new instance of our logging middleware.
func NewLoggingMiddleware(logger kitlog.Logger, verbose bool) *LoggingMiddleware {
	return &LoggingMiddleware{
		logger:  logger,
		verbose: verbose,
	}
}

// Handler is the middleware handler function.
func (l *LoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		log := kitlog.With(l.logger, "requestID", RequestIDFromContext(r.Context()))

		begin := time.Now()
		next.ServeHTTP(rec, r.WithContext(logger.ToContext(r.Context(), log)))

		if !l.verbose && rec.status < http.StatusBadRequest {
			return
		}

		log.Log(
			"method", r.Method,
			"path", r.URL.Path,
			"remoteAddr", r.RemoteAddr,
			"status", rec.status,
			"duration", time.Since(begin),
		)
	})
}
