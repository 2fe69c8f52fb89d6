package middleware

// contextKey is an unexported type for values this package stores in a
// request context
type contextKey string

func (c contextKey) String() string {
	return "sensebox middleware " + string(c)
}
