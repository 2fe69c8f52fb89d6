package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Correlation-ID"
	requestIDKey    = contextKey("requestID")

	// maxRequestIDLength bounds client supplied ids before they reach the log
	maxRequestIDLength = 64
)

// RequestIDMiddleware tags each status request with an id, keeping the one the
// client sent when it is short enough, and echoes it in the response.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get(requestIDHeader)
		if rid == "" || len(rid) > maxRequestIDLength {
			rid = uuid.New().String()
		}

		w.Header().Set(requestIDHeader, rid)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, rid)))
	})
}

// RequestIDFromContext returns the id RequestIDMiddleware stored, or "".
func RequestIDFromContext(ctx context.Context) string {
	rid, _ := ctx.Value(requestIDKey).(string)
	return rid
}
