package lull

import "context"

// Value publishes a delayed copy of a rapidly changing source.
//
// Every Set restarts the quiet period; the output only changes once the
// source has been stable for the configured delay, and then only to the
// last value set. Value ignores WithFlushOnEmpty; use State for that.
//
// Example:
//
//	query := lull.NewValue("", lull.WithDelay(300*time.Millisecond), lull.WithMinLength(2)).
//	    OnChange(func(q string) { results.Refresh(q) })
//	if err := query.Start(ctx); err != nil {
//	    return err
//	}
//	defer query.Stop()
//
//	query.Set(input)
type Value[T any] struct {
	c *coordinator[T]
}

// NewValue creates a Value whose source and output both start at initial.
// Nothing is scheduled until Start.
func NewValue[T any](initial T, opts ...Option) *Value[T] {
	c := newCoordinator(initial, opts)
	c.honourEmpty = false
	return &Value[T]{c: c}
}

// OnChange sets the function called with each published value.
// It runs outside the Value's lock. Must be called before Start().
func (v *Value[T]) OnChange(fn func(T)) *Value[T] {
	v.c.onChange = fn
	return v
}

// Equal replaces the equality used to detect source changes.
// Default: reflect.DeepEqual. Must be called before Start().
func (v *Value[T]) Equal(fn func(a, b T) bool) *Value[T] {
	if fn != nil {
		v.c.equal = fn
	}
	return v
}

// Start activates the Value and evaluates the initial source: it is either
// published immediately (WithImmediate) or scheduled like any other change.
// Canceling ctx has the same effect as Stop.
//
// Start can only be called once. Subsequent calls return ErrAlreadyStarted.
func (v *Value[T]) Start(ctx context.Context) error {
	return v.c.start(ctx)
}

// Set records a new source value. Before Start it only replaces the
// initial value; after Stop it does nothing.
func (v *Value[T]) Set(source T) {
	v.c.set(source)
}

// Value returns the debounced output.
func (v *Value[T]) Value() T {
	return v.c.value()
}

// Phase reports whether an emission is outstanding.
func (v *Value[T]) Phase() Phase {
	return v.c.phase()
}

// Configure replaces the timing settings. The change applies from the next
// Set; an outstanding emission keeps its delay.
func (v *Value[T]) Configure(cfg Config) {
	v.c.configure(cfg)
}

// Stop cancels any outstanding emission. Nothing is published afterwards.
// Stop is idempotent.
func (v *Value[T]) Stop() {
	v.c.stop()
}
