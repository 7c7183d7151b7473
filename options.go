package predicateview

import (
	"log/slog"
	"time"

	"github.com/nlstn/go-predicateview/internal/expression"
	"github.com/nlstn/go-predicateview/internal/observability"
)

// DefaultCacheSize is the number of compiled predicates a control keeps.
const DefaultCacheSize = 64

type config struct {
	logger    *slog.Logger
	calendar  expression.Calendar
	debounce  time.Duration
	cacheSize int
	obs       []observability.Option
}

// Option configures a Control.
type Option func(*config)

// WithLogger sets the logger for recompile and decode records.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithCalendar sets the calendar date rows compile against.
func WithCalendar(cal Calendar) Option {
	return func(c *config) {
		c.calendar = cal
	}
}

// WithDebounce coalesces recompiles: edits only schedule a recompile, which
// Run performs once no further edit arrived for d.
func WithDebounce(d time.Duration) Option {
	return func(c *config) {
		c.debounce = d
	}
}

// WithCacheSize sets how many compiled predicates are memoised. Zero or a
// negative size disables the cache.
func WithCacheSize(n int) Option {
	return func(c *config) {
		c.cacheSize = n
	}
}

// WithObservability configures OpenTelemetry tracing and metrics.
func WithObservability(opts ...observability.Option) Option {
	return func(c *config) {
		c.obs = append(c.obs, opts...)
	}
}

// Observability options, re-exported for WithObservability.
var (
	WithTracerProvider    = observability.WithTracerProvider
	WithMeterProvider     = observability.WithMeterProvider
	WithServiceName       = observability.WithServiceName
	WithDetailedDBTracing = observability.WithDetailedDBTracing
)
