package lull

import "time"

// Reason describes why an emission happened or why a pending one was dropped.
type Reason string

const (
	// ReasonTimer is a scheduled emission reaching the end of its delay.
	ReasonTimer Reason = "timer"
	// ReasonImmediate is the first evaluation published without delay.
	ReasonImmediate Reason = "immediate"
	// ReasonFlush is an explicit Flush.
	ReasonFlush Reason = "flush"
	// ReasonEmpty is the zero-value fast path.
	ReasonEmpty Reason = "empty"
	// ReasonReset is an explicit Reset.
	ReasonReset Reason = "reset"
	// ReasonCancel is an explicit Cancel.
	ReasonCancel Reason = "cancel"
	// ReasonStop is teardown through Stop or context cancellation.
	ReasonStop Reason = "stop"
)

// MetricsProvider allows integration with metrics systems like Prometheus, StatsD, etc.
// Implement this interface to receive callbacks on scheduler and reloader events.
type MetricsProvider interface {
	// OnScheduled is called each time an emission is armed.
	OnScheduled(delay time.Duration)

	// OnEmitted is called when the output value is published.
	OnEmitted(reason Reason)

	// OnCanceled is called when an outstanding emission is dropped without
	// publishing. Superseding re-arms are reported through OnScheduled only.
	OnCanceled(reason Reason)

	// OnGated is called when a string source is shorter than the minimum length.
	OnGated(length int)

	// OnHealthChange is called when a Reloader transitions between health states.
	OnHealthChange(from, to Health)

	// OnReload is called after a Reloader processed a payload.
	OnReload(success bool, duration time.Duration)
}

// NoOpMetricsProvider is a no-op implementation of MetricsProvider.
// Use this as an embedded type to implement only the methods you need.
type NoOpMetricsProvider struct{}

func (NoOpMetricsProvider) OnScheduled(_ time.Duration)      {}
func (NoOpMetricsProvider) OnEmitted(_ Reason)               {}
func (NoOpMetricsProvider) OnCanceled(_ Reason)              {}
func (NoOpMetricsProvider) OnGated(_ int)                    {}
func (NoOpMetricsProvider) OnHealthChange(_, _ Health)       {}
func (NoOpMetricsProvider) OnReload(_ bool, _ time.Duration) {}
