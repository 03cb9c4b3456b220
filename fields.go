package lull

import "github.com/zoobzio/capitan"

// Field keys for coordinator and reloader events.
var (
	// KeyName is the coordinator name set with WithName.
	KeyName = capitan.NewStringKey("name")

	// KeyDelay is the delay an emission was armed with.
	KeyDelay = capitan.NewDurationKey("delay")

	// KeyReason is why an emission was published or dropped.
	KeyReason = capitan.NewStringKey("reason")

	// KeyLength is the rune length of a gated source.
	KeyLength = capitan.NewIntKey("length")

	// KeyMinLength is the configured minimum length.
	KeyMinLength = capitan.NewIntKey("min_length")

	// KeyOldHealth is the Reloader health before a transition.
	KeyOldHealth = capitan.NewStringKey("old_health")

	// KeyNewHealth is the Reloader health after a transition.
	KeyNewHealth = capitan.NewStringKey("new_health")

	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")

	// KeyContentType is the content type of the codec used by a Reloader.
	KeyContentType = capitan.NewStringKey("content_type")

	// KeyTargets is the number of targets a Reloader configures.
	KeyTargets = capitan.NewIntKey("targets")
)
