package client

import "github.com/pkg/errors"

// Error is a constant error type we use for sentinel errors
type Error string

// Error allows our custom error type to implement the error interface
func (e Error) Error() string { return string(e) }

const (
	// NotFoundError means the box or sensor id is unknown to openSenseMap
	NotFoundError = Error("Not found")

	// UnauthorizedError means the box access token was refused
	UnauthorizedError = Error("Unauthorized")

	// TimeoutError means the request, or reading its response, timed out
	TimeoutError = Error("Timeout")

	// UnexpectedError is for all other transport failures, e.g. a refused
	// connection or a radio that dropped mid request
	UnexpectedError = Error("Unexpected")
)

// Rejected reports whether openSenseMap refused the request itself. Unlike
// transport failures these recur on every schedule point until the station
// is reprovisioned.
func Rejected(err error) bool {
	switch errors.Cause(err) {
	case NotFoundError, UnauthorizedError:
		return true
	}
	return false
}
