package trend

// Error is a constant error type used for sentinel values
type Error string

// Error is the implementation of the error interface
func (e Error) Error() string { return string(e) }

const (
	// ErrNoPayload means the response did not contain anything shaped like the
	// expected format
	ErrNoPayload = Error("no payload found in response")

	// ErrInsufficientData means too few usable data points were returned to
	// classify a trend
	ErrInsufficientData = Error("insufficient data points")

	// ErrDegenerate means the regression had no index variance to work with
	ErrDegenerate = Error("degenerate series, cannot fit slope")
)
