package billing

import (
	"log/slog"
	"time"
)

// =============================================================================
// CLOCK AND TIME FORMATS
// =============================================================================

const (
	// DateLayout is how invoice dates are written on documents and in the ledger.
	DateLayout = "2006-01-02 15:04:05"

	// TimestampIDLayout is the second-granularity fallback invoice number.
	TimestampIDLayout = "20060102150405"
)

// Clock returns the current time. Tests pin it.
type Clock func() time.Time

// SystemClock is the wall clock.
func SystemClock() time.Time { return time.Now() }

func FormatDate(t time.Time) string  { return t.Format(DateLayout) }
func TimestampID(t time.Time) string { return t.Format(TimestampIDLayout) }

// =============================================================================
// OPTIONS - Shared by Ledger, Generator, Session and Finalizer
// =============================================================================

type options struct {
	logger *slog.Logger
	clock  Clock
}

// Option configures engine components.
type Option func(*options)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock sets the time source. Defaults to SystemClock.
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{logger: slog.Default(), clock: SystemClock}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
