package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// errorBody matches the body the status handlers return on failure
type errorBody struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
}

// tooManyRequestsError tells the client how long to wait before its bucket
// holds another token.
func tooManyRequestsError(w http.ResponseWriter, err error, wait time.Duration) {
	b, _ := json.Marshal(&errorBody{
		Status: http.StatusTooManyRequests,
		Error:  err.Error(),
	})

	secs := int(wait / time.Second)
	if wait%time.Second != 0 {
		secs++
	}

	if secs < 1 {
		secs = 1
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write(b)
}
