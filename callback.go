package lull

import (
	"context"
	"time"
)

// Callback coalesces bursts of calls into a single trailing call of fn.
//
// Each Call replaces the pending arguments and restarts the delay; fn only
// runs once the callback has been quiet for the delay, with the arguments
// of the last Call. Use a struct for A when fn needs several arguments.
type Callback[A any] struct {
	c *coordinator[A]
}

// NewCallback wraps fn. Only WithDelay, WithClock, WithName and
// WithMetrics affect a Callback.
func NewCallback[A any](fn func(A), opts ...Option) *Callback[A] {
	var zero A
	c := newCoordinator(zero, opts)
	c.onChange = fn
	c.lazy = true
	c.honourEmpty = false
	c.settings.immediate = false
	c.settings.minLength = 0
	// Identical arguments still restart the delay.
	c.equal = func(_, _ A) bool { return false }
	return &Callback[A]{c: c}
}

// Start activates the Callback. Canceling ctx has the same effect as Stop.
//
// Start can only be called once. Subsequent calls return ErrAlreadyStarted.
func (cb *Callback[A]) Start(ctx context.Context) error {
	return cb.c.start(ctx)
}

// Call schedules fn with args, superseding any pending call.
// Calls before Start or after Stop do nothing.
func (cb *Callback[A]) Call(args A) {
	cb.c.mu.Lock()
	started := cb.c.started
	cb.c.mu.Unlock()
	if !started {
		return
	}
	cb.c.set(args)
}

// Pending reports whether a call is waiting for its delay.
func (cb *Callback[A]) Pending() bool {
	return cb.c.pending()
}

// Cancel drops the pending call.
func (cb *Callback[A]) Cancel() {
	cb.c.cancel()
}

// Flush runs the pending call now, if there is one.
func (cb *Callback[A]) Flush() {
	cb.c.flushPending()
}

// Configure applies the delay from cfg. Other fields are ignored.
func (cb *Callback[A]) Configure(cfg Config) {
	cb.c.configure(Config{Delay: cfg.Delay})
}

// SetDelay changes the delay used by subsequent calls.
func (cb *Callback[A]) SetDelay(d time.Duration) {
	cb.Configure(Config{Delay: Duration(d)})
}

// Stop drops the pending call. fn is never invoked afterwards.
// Stop is idempotent.
func (cb *Callback[A]) Stop() {
	cb.c.stop()
}
