package lull

// Health reports how far a Reloader has got with its configuration source.
type Health int32

const (
	// HealthLoading means Start is still waiting for the watcher's first
	// document. Targets run on the options they were built with.
	HealthLoading Health = iota

	// HealthHealthy means the latest document reached every target. Each
	// coordinator picks up its delay and gate at the next evaluation.
	HealthHealthy

	// HealthDegraded means the latest document was rejected after an earlier
	// one was applied. Targets stay on the timing of the last applied one.
	HealthDegraded

	// HealthEmpty means every document so far was rejected. Targets keep the
	// delay and minimum length from their construction options until one is
	// accepted.
	HealthEmpty
)

var healthNames = [...]string{
	HealthLoading:  "loading",
	HealthHealthy:  "healthy",
	HealthDegraded: "degraded",
	HealthEmpty:    "empty",
}

// String returns the name carried by lull.reloader.health.changed, or
// "unknown" for values outside the enum.
func (h Health) String() string {
	if h < 0 || int(h) >= len(healthNames) {
		return "unknown"
	}
	return healthNames[h]
}
