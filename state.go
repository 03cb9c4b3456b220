package lull

import "context"

// Phase is the position of a coordinator in its state machine.
type Phase int32

const (
	// PhaseIdle means no emission is outstanding.
	PhaseIdle Phase = iota

	// PhasePending means an emission is armed and has not yet fired,
	// been canceled, flushed or reset.
	PhasePending
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePending:
		return "pending"
	default:
		return "unknown"
	}
}

// State is a Value with a pending flag and imperative controls.
//
// The controls act on the single outstanding emission:
//
//	Cancel  drop it, keep the output
//	Flush   drop it, publish the latest source, notify OnChange
//	Reset   drop it, publish the latest source, do not notify
//
// With WithFlushOnEmpty a zero-valued source is flushed immediately
// instead of being debounced.
type State[T any] struct {
	c *coordinator[T]
}

// NewState creates a State whose source and output both start at initial.
// Nothing is scheduled until Start.
func NewState[T any](initial T, opts ...Option) *State[T] {
	return &State[T]{c: newCoordinator(initial, opts)}
}

// OnChange sets the function called with each published value.
// It is not called by Reset. Must be called before Start().
func (s *State[T]) OnChange(fn func(T)) *State[T] {
	s.c.onChange = fn
	return s
}

// Equal replaces the equality used to detect source changes.
// Default: reflect.DeepEqual. Must be called before Start().
func (s *State[T]) Equal(fn func(a, b T) bool) *State[T] {
	if fn != nil {
		s.c.equal = fn
	}
	return s
}

// Start activates the State and evaluates the initial source.
// Canceling ctx has the same effect as Stop.
//
// Start can only be called once. Subsequent calls return ErrAlreadyStarted.
func (s *State[T]) Start(ctx context.Context) error {
	return s.c.start(ctx)
}

// Set records a new source value.
func (s *State[T]) Set(source T) {
	s.c.set(source)
}

// Value returns the debounced output.
func (s *State[T]) Value() T {
	return s.c.value()
}

// Source returns the latest value passed to Set. This is the value Flush
// and Reset publish.
func (s *State[T]) Source() T {
	return s.c.latest()
}

// Pending reports whether an emission is outstanding.
func (s *State[T]) Pending() bool {
	return s.c.pending()
}

// Phase reports the state machine position.
func (s *State[T]) Phase() Phase {
	return s.c.phase()
}

// Cancel drops the outstanding emission without touching the output.
// Calling it with nothing outstanding, or after Stop, does nothing.
func (s *State[T]) Cancel() {
	s.c.cancel()
}

// Flush drops the outstanding emission and publishes the latest source
// right away, notifying OnChange once. The published value is the current
// source, not the snapshot the emission was armed with.
func (s *State[T]) Flush() {
	s.c.flush()
}

// Reset drops the outstanding emission and sets the output to the latest
// source without notifying OnChange.
//
// The latest source is tracked continuously, so Reset publishes the same
// value Flush would. It does not restore an earlier baseline.
func (s *State[T]) Reset() {
	s.c.reset()
}

// Configure replaces the timing settings. The change applies from the next
// Set; an outstanding emission keeps its delay.
func (s *State[T]) Configure(cfg Config) {
	s.c.configure(cfg)
}

// Stop cancels any outstanding emission. Nothing is published afterwards.
// Stop is idempotent.
func (s *State[T]) Stop() {
	s.c.stop()
}
