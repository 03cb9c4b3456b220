package lull

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/petermattis/goid"
	"github.com/zoobzio/capitan"
)

var (
	// ErrAlreadyStarted is returned by Start when called more than once.
	ErrAlreadyStarted = errors.New("already started")

	// ErrStopped is returned by Start after the coordinator was stopped.
	ErrStopped = errors.New("already stopped")
)

type effectKind int

const (
	effectNone effectKind = iota
	effectSchedule
	effectPublish
	effectGate
	effectCancel
)

// effect records what an operation did under the lock so that signals,
// metrics and user callbacks can run after it is released.
type effect[T any] struct {
	kind      effectKind
	value     T
	reason    Reason
	notify    bool
	delay     time.Duration
	length    int
	minLength int
}

// coordinator is the debounce state machine behind Value, State, Search
// and Callback. All fields below mu are guarded by it.
//
// Effects are queued under mu in commit order and delivered by a single
// drainer at a time, outside the lock.
type coordinator[T any] struct {
	onChange func(T)
	equal    func(a, b T) bool

	// lazy coordinators do not evaluate their initial value at Start.
	lazy bool
	// honourEmpty is false for primitives that ignore WithFlushOnEmpty.
	honourEmpty bool

	mu        sync.Mutex
	settings  settings
	slot      slot
	ctx       context.Context
	source    T
	armed     T
	output    T
	started   bool
	stopped   bool
	evaluated bool
	stopAfter func() bool

	queue    []effect[T]
	draining bool
	drainer  int64 // goroutine id of the active drainer
	closing  int   // stop calls waiting on the drainer
	idle     *sync.Cond
}

func newCoordinator[T any](initial T, opts []Option) *coordinator[T] {
	s := newSettings(opts)
	c := &coordinator[T]{
		equal:       defaultEqual[T],
		honourEmpty: true,
		settings:    s,
		ctx:         context.Background(),
		source:      initial,
		output:      initial,
	}
	c.slot.clock = s.clock
	c.idle = sync.NewCond(&c.mu)
	return c
}

func defaultEqual[T any](a, b T) bool {
	return reflect.DeepEqual(a, b)
}

func (c *coordinator[T]) start(ctx context.Context) error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrStopped
	}
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.ctx = context.WithoutCancel(ctx)
	name, delay := c.settings.name, c.settings.delay
	clamped := c.takeClamped()

	if !c.lazy {
		c.push(c.evaluate(c.source))
	}
	c.stopAfter = context.AfterFunc(ctx, c.stop)
	c.mu.Unlock()

	capitan.Emit(c.ctx, CoordinatorStarted,
		KeyName.Field(name),
		KeyDelay.Field(delay),
	)
	c.emitClamped(clamped)
	c.drain()
	return nil
}

// set records a new source value and, once started, runs it through the
// debounce algorithm. Values equal to the current source are ignored.
func (c *coordinator[T]) set(v T) {
	c.commit(v)
	c.drain()
}

// commit is set without delivery. Callers that must order their own
// state with the source hold their lock across commit and call drain
// after releasing it.
func (c *coordinator[T]) commit(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || c.equal(c.source, v) {
		return
	}
	c.source = v
	if !c.started {
		c.output = v
		return
	}
	c.push(c.evaluate(v))
}

// evaluate applies the debounce rules to source. Caller holds mu.
func (c *coordinator[T]) evaluate(source T) effect[T] {
	first := !c.evaluated
	c.evaluated = true

	if c.honourEmpty && c.settings.flushOnEmpty && isZero(source) {
		return c.flushLocked(ReasonEmpty, true)
	}

	if first && c.settings.immediate {
		c.output = source
		return effect[T]{kind: effectPublish, value: source, reason: ReasonImmediate, notify: true}
	}

	if minLength := c.settings.minLength; minLength > 0 {
		if n, ok := runeLength(source); ok && n > 0 && n < minLength {
			return effect[T]{kind: effectGate, length: n, minLength: minLength}
		}
	}

	// The firing task reads armed rather than a captured copy of source.
	c.armed = source
	delay := c.settings.delay
	c.slot.arm(delay, c.fire)
	return effect[T]{kind: effectSchedule, delay: delay}
}

// fire runs on the handle's goroutine when its timer elapses.
func (c *coordinator[T]) fire(h *handle) {
	c.mu.Lock()
	if c.stopped || !c.slot.release(h) {
		c.mu.Unlock()
		return
	}
	c.output = c.armed
	c.push(effect[T]{kind: effectPublish, value: c.output, reason: ReasonTimer, notify: true})
	c.mu.Unlock()
	c.drain()
}

// flushLocked cancels any outstanding emission and publishes the current
// source, which may be newer than the armed snapshot. Caller holds mu.
func (c *coordinator[T]) flushLocked(reason Reason, notify bool) effect[T] {
	c.slot.cancelCurrent()
	c.output = c.source
	return effect[T]{kind: effectPublish, value: c.source, reason: reason, notify: notify}
}

func (c *coordinator[T]) flush() {
	c.mu.Lock()
	if !c.started || c.stopped {
		c.mu.Unlock()
		return
	}
	c.push(c.flushLocked(ReasonFlush, true))
	c.mu.Unlock()
	c.drain()
}

// flushPending publishes only if an emission is outstanding.
func (c *coordinator[T]) flushPending() {
	c.mu.Lock()
	if c.stopped || !c.slot.pending() {
		c.mu.Unlock()
		return
	}
	c.push(c.flushLocked(ReasonFlush, true))
	c.mu.Unlock()
	c.drain()
}

// reset publishes the latest source without notifying onChange.
func (c *coordinator[T]) reset() {
	c.mu.Lock()
	if !c.started || c.stopped {
		c.mu.Unlock()
		return
	}
	c.push(c.flushLocked(ReasonReset, false))
	c.mu.Unlock()
	c.drain()
}

func (c *coordinator[T]) cancel() {
	c.mu.Lock()
	if c.slot.cancelCurrent() {
		c.push(effect[T]{kind: effectCancel, reason: ReasonCancel})
	}
	c.mu.Unlock()
	c.drain()
}

// stop tears the coordinator down. No emission commits after it returns
// and onChange is not called again. Every call waits for a delivery
// running on another goroutine to finish.
func (c *coordinator[T]) stop() {
	c.mu.Lock()
	first := !c.stopped
	c.stopped = true
	canceled := first && c.slot.cancelCurrent()
	c.awaitDrain()
	wasStarted := first && c.started
	stopAfter := c.stopAfter
	name := c.settings.name
	c.mu.Unlock()

	if !first {
		return
	}
	if stopAfter != nil {
		stopAfter()
	}
	if canceled {
		c.deliver(effect[T]{kind: effectCancel, reason: ReasonStop})
	}
	if wasStarted {
		capitan.Emit(c.ctx, CoordinatorStopped, KeyName.Field(name))
	}
}

// configure replaces the timing settings. The outstanding emission keeps
// the delay it was armed with; new settings apply from the next evaluation.
func (c *coordinator[T]) configure(cfg Config) {
	c.mu.Lock()
	c.settings.configure(cfg)
	clamped := c.takeClamped()
	c.mu.Unlock()
	c.emitClamped(clamped)
}

func (c *coordinator[T]) value() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.output
}

func (c *coordinator[T]) latest() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source
}

func (c *coordinator[T]) pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slot.pending()
}

func (c *coordinator[T]) phase() Phase {
	if c.pending() {
		return PhasePending
	}
	return PhaseIdle
}

// clampReport carries clamped settings out of the lock.
type clampReport struct {
	delay     bool
	minLength bool
	name      string
}

// takeClamped reads and clears the clamp flags. Caller holds mu.
func (c *coordinator[T]) takeClamped() clampReport {
	r := clampReport{
		delay:     c.settings.clampedDelay,
		minLength: c.settings.clampedMinLength,
		name:      c.settings.name,
	}
	c.settings.clampedDelay = false
	c.settings.clampedMinLength = false
	return r
}

func (c *coordinator[T]) emitClamped(r clampReport) {
	if r.delay {
		capitan.Emit(c.ctx, ConfigClamped, KeyName.Field(r.name), KeyDelay.Field(0))
	}
	if r.minLength {
		capitan.Emit(c.ctx, ConfigClamped, KeyName.Field(r.name), KeyMinLength.Field(0))
	}
}

// push queues a committed effect. Caller holds mu.
func (c *coordinator[T]) push(e effect[T]) {
	if e.kind != effectNone {
		c.queue = append(c.queue, e)
	}
}

// drain delivers queued effects in commit order. If another drain is
// running, its drainer picks up the new effects and drain returns at once,
// so an onChange that re-enters the coordinator neither nests nor blocks.
func (c *coordinator[T]) drain() {
	c.mu.Lock()
	if c.draining {
		c.mu.Unlock()
		return
	}
	c.draining = true
	c.drainer = goid.Get()
	for len(c.queue) > 0 {
		e := c.queue[0]
		c.queue[0] = effect[T]{}
		c.queue = c.queue[1:]
		c.mu.Unlock()
		c.deliver(e)
		c.mu.Lock()
	}
	c.queue = nil
	c.draining = false
	c.drainer = 0
	c.idle.Broadcast()
	c.mu.Unlock()
}

// awaitDrain blocks until the active drainer finishes. A stop issued by
// the drainer itself, from onChange or a metrics hook, does not wait.
// Caller holds mu.
func (c *coordinator[T]) awaitDrain() {
	if !c.draining || c.drainer == goid.Get() {
		return
	}
	c.closing++
	for c.draining {
		c.idle.Wait()
	}
	c.closing--
}

// notifiable reports whether onChange may run: before stop, or while a
// stop call is still waiting for the drainer.
func (c *coordinator[T]) notifiable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.stopped || c.closing > 0
}

// deliver reports an effect to metrics and capitan and runs onChange.
// Called without mu held so callbacks may re-enter the coordinator.
func (c *coordinator[T]) deliver(e effect[T]) {
	m := c.settings.metrics
	name := c.settings.name
	switch e.kind {
	case effectSchedule:
		m.OnScheduled(e.delay)
		capitan.Emit(c.ctx, EmissionScheduled,
			KeyName.Field(name),
			KeyDelay.Field(e.delay),
		)
	case effectPublish:
		m.OnEmitted(e.reason)
		capitan.Emit(c.ctx, EmissionPublished,
			KeyName.Field(name),
			KeyReason.Field(string(e.reason)),
		)
		if e.notify && c.onChange != nil && c.notifiable() {
			c.onChange(e.value)
		}
	case effectGate:
		m.OnGated(e.length)
		capitan.Emit(c.ctx, SourceGated,
			KeyName.Field(name),
			KeyLength.Field(e.length),
			KeyMinLength.Field(e.minLength),
		)
	case effectCancel:
		m.OnCanceled(e.reason)
		capitan.Emit(c.ctx, EmissionCanceled,
			KeyName.Field(name),
			KeyReason.Field(string(e.reason)),
		)
	}
}

// isZero reports whether v is the zero value of its type, the Go
// counterpart of an empty or unset input.
func isZero[T any](v T) bool {
	return reflect.ValueOf(&v).Elem().IsZero()
}

// runeLength returns the rune count of string-kinded values.
// The boolean is false for every other kind.
func runeLength[T any](v T) (int, bool) {
	rv := reflect.ValueOf(&v).Elem()
	if rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	if !rv.IsValid() || rv.Kind() != reflect.String {
		return 0, false
	}
	return utf8.RuneCountInString(rv.String()), true
}
