package handlers

import "encoding/json"

// Error is returned by status handlers that want a specific response code.
type Error interface {
	error
	Status() int
}

// HTTPError is our concrete implementation of the Error interface we return
// from handlers
type HTTPError struct {
	Code int
	Err  error
}

// Error returns the message
func (he *HTTPError) Error() string {
	return he.Err.Error()
}

// Status returns the status code associated with the error response.
func (he *HTTPError) Status() int {
	return he.Code
}

// MarshalJSON writes {"status":404,"error":"..."}
func (he *HTTPError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Status int    `json:"status"`
		Error  string `json:"error"`
	}{
		Status: he.Code,
		Error:  he.Err.Error(),
	})
}
