package lull

import (
	"time"

	"github.com/zoobzio/clockz"
)

// DefaultDelay is the quiet period used when no delay is configured.
const DefaultDelay = 300 * time.Millisecond

// settings holds the timing configuration shared by every coordinator.
type settings struct {
	name         string
	delay        time.Duration
	immediate    bool
	minLength    int
	flushOnEmpty bool
	clock        clockz.Clock
	metrics      MetricsProvider

	// Set when a negative delay or minLength was corrected to zero.
	clampedDelay     bool
	clampedMinLength bool
}

func defaultSettings() settings {
	return settings{
		delay:   DefaultDelay,
		clock:   clockz.RealClock,
		metrics: NoOpMetricsProvider{},
	}
}

// Option configures a Value, State, Search or Callback at construction.
type Option func(*settings)

func newSettings(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithDelay sets the quiet period that must elapse without a new source
// value before the output is updated. Negative durations are treated as zero.
func WithDelay(d time.Duration) Option {
	return func(s *settings) {
		s.clampedDelay = d < 0
		s.delay = max(d, 0)
	}
}

// WithImmediate makes the very first evaluation, at Start, publish the
// initial value straight away instead of waiting out the delay.
func WithImmediate() Option {
	return func(s *settings) {
		s.immediate = true
	}
}

// WithMinLength ignores string sources that are non-empty but shorter than
// n runes. It has no effect when the value type is not string-kinded.
func WithMinLength(n int) Option {
	return func(s *settings) {
		s.clampedMinLength = n < 0
		s.minLength = max(n, 0)
	}
}

// WithFlushOnEmpty publishes zero values immediately rather than debouncing
// them, so clearing an input clears its results without delay.
// Only State, and Search which always enables it, honour this option.
func WithFlushOnEmpty() Option {
	return func(s *settings) {
		s.flushOnEmpty = true
	}
}

// WithClock sets the clock used to schedule emissions.
// Use clockz.NewFakeClock() for deterministic tests.
func WithClock(clock clockz.Clock) Option {
	return func(s *settings) {
		s.clock = clock
	}
}

// WithName labels the coordinator in emitted signals.
func WithName(name string) Option {
	return func(s *settings) {
		s.name = name
	}
}

// WithMetrics sets a metrics provider that is told about every schedule,
// emission and cancellation.
func WithMetrics(provider MetricsProvider) Option {
	return func(s *settings) {
		if provider != nil {
			s.metrics = provider
		}
	}
}
