package logger

import (
	"context"
	"io"
	"os"

	kitlog "github.com/go-kit/kit/log"

	"github.com/thingful/sensebox/pkg/version"
)

type contextKey string

const (
	loggerKey = contextKey("logger")
)

// NewLogger returns a new kitlog.Logger instance writing logfmt lines to
// stdout.
func NewLogger() kitlog.Logger {
	return NewLoggerTo(os.Stdout)
}

// NewLoggerTo returns a logfmt logger writing to the given writer, tagged with
// the binary name and a UTC timestamp. The device console is usually a serial
// line so writes are synchronized.
func NewLoggerTo(w io.Writer) kitlog.Logger {
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(w))
	return kitlog.With(logger, "service", version.BinaryName, "ts", kitlog.DefaultTimestampUTC)
}

// FromContext returns a logger instance from the given context. If the logger
// is not found we return a new unscoped but usable logger.
func FromContext(ctx context.Context) kitlog.Logger {
	if logger, ok := ctx.Value(loggerKey).(kitlog.Logger); ok {
		return logger
	}

	logger := NewLogger()
	return kitlog.With(logger, "module", "logger")
}

// ToContext sets the given logger into a child context which it now returns.
func ToContext(ctx context.Context, logger kitlog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}
