package lull

import "github.com/zoobzio/capitan"

// Coordinator lifecycle signals.
var (
	// CoordinatorStarted is emitted when a Value, State, Search or Callback is activated.
	CoordinatorStarted = capitan.NewSignal(
		"lull.coordinator.started",
		"Coordinator activated",
	)

	// CoordinatorStopped is emitted when a coordinator is torn down.
	CoordinatorStopped = capitan.NewSignal(
		"lull.coordinator.stopped",
		"Coordinator torn down",
	)

	// ConfigClamped is emitted when a negative delay or minimum length was corrected to zero.
	ConfigClamped = capitan.NewSignal(
		"lull.config.clamped",
		"Invalid timing configuration clamped to zero",
	)
)

// Emission signals.
var (
	// EmissionScheduled is emitted when an emission is armed.
	EmissionScheduled = capitan.NewSignal(
		"lull.emission.scheduled",
		"Emission armed",
	)

	// EmissionPublished is emitted when the output value is updated or a callback runs.
	EmissionPublished = capitan.NewSignal(
		"lull.emission.published",
		"Output published",
	)

	// EmissionCanceled is emitted when an outstanding emission is dropped.
	EmissionCanceled = capitan.NewSignal(
		"lull.emission.canceled",
		"Outstanding emission dropped",
	)

	// SourceGated is emitted when a source is shorter than the minimum length.
	SourceGated = capitan.NewSignal(
		"lull.source.gated",
		"Source below minimum length ignored",
	)
)

// Reloader signals.
var (
	// ReloaderStarted is emitted when a Reloader begins watching.
	ReloaderStarted = capitan.NewSignal(
		"lull.reloader.started",
		"Reloader watching started",
	)

	// ReloaderStopped is emitted when a Reloader stops watching.
	ReloaderStopped = capitan.NewSignal(
		"lull.reloader.stopped",
		"Reloader watching stopped",
	)

	// ReloaderHealthChanged is emitted when a Reloader transitions between health states.
	ReloaderHealthChanged = capitan.NewSignal(
		"lull.reloader.health.changed",
		"Reloader health transition",
	)

	// ReloaderChangeReceived is emitted when raw data is received from the watcher.
	ReloaderChangeReceived = capitan.NewSignal(
		"lull.reloader.change.received",
		"Raw change received from watcher",
	)

	// ReloaderDecodeFailed is emitted when a payload cannot be decoded.
	ReloaderDecodeFailed = capitan.NewSignal(
		"lull.reloader.decode.failed",
		"Config decode failed",
	)

	// ReloaderValidationFailed is emitted when a decoded config fails validation.
	ReloaderValidationFailed = capitan.NewSignal(
		"lull.reloader.validation.failed",
		"Config validation failed",
	)

	// ReloaderApplyFailed is emitted when the apply stage or its middleware fails.
	ReloaderApplyFailed = capitan.NewSignal(
		"lull.reloader.apply.failed",
		"Config apply failed",
	)

	// ReloaderApplied is emitted when a config has been applied to every target.
	ReloaderApplied = capitan.NewSignal(
		"lull.reloader.applied",
		"Config applied to targets",
	)
)
