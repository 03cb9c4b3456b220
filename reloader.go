package lull

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/pipz"
)

// DefaultReloadDebounce is the default quiet period applied to a watched
// configuration source before a new document is processed.
const DefaultReloadDebounce = 100 * time.Millisecond

// Reloader watches a configuration source and applies each valid Config
// to a set of coordinators, so delays and gates can be tuned without a
// restart. A rejected document leaves the targets on the last good Config.
//
// Example:
//
//	search := lull.NewSearch("")
//	reloader := lull.NewReloader(lull.NewFileWatcher("search.yaml"), search).
//	    Debounce(200 * time.Millisecond)
//	if err := reloader.Start(ctx); err != nil {
//	    log.Printf("using default search timing: %v", err)
//	}
type Reloader struct {
	watcher  Watcher
	targets  []Configurable
	debounce time.Duration
	clock    clockz.Clock
	codec    Codec
	metrics  MetricsProvider
	opts     []ReloadOption
	pipeline pipz.Chainable[*Reload]

	health     atomic.Int32
	current    atomic.Pointer[Config]
	lastError  atomic.Pointer[error]
	rejections *rejectionLog

	// process is serialized; the debounced path and the close path may race.
	processMu sync.Mutex

	mu      sync.Mutex
	started bool
	done    chan struct{}
}

// NewReloader creates a Reloader that configures targets from watcher.
func NewReloader(watcher Watcher, targets ...Configurable) *Reloader {
	r := &Reloader{
		watcher:  watcher,
		targets:  targets,
		debounce: DefaultReloadDebounce,
		clock:    clockz.RealClock,
		codec:    AutoCodec{},
		metrics:  NoOpMetricsProvider{},
		done:     make(chan struct{}),
	}
	r.health.Store(int32(HealthLoading))
	return r
}

// Debounce sets the quiet period for source changes.
// Default: 100ms. Must be called before Start().
func (r *Reloader) Debounce(d time.Duration) *Reloader {
	r.debounce = max(d, 0)
	return r
}

// Clock sets a custom clock for time operations.
// Use this with clockz.FakeClock for deterministic tests.
// Must be called before Start().
func (r *Reloader) Clock(clock clockz.Clock) *Reloader {
	r.clock = clock
	return r
}

// Codec sets the codec for decoding documents.
// Default: AutoCodec. Must be called before Start().
func (r *Reloader) Codec(codec Codec) *Reloader {
	r.codec = codec
	return r
}

// Metrics sets a metrics provider for health changes and reload outcomes.
// Must be called before Start().
func (r *Reloader) Metrics(provider MetricsProvider) *Reloader {
	if provider != nil {
		r.metrics = provider
	}
	return r
}

// Pipeline wraps the apply stage with pipz processors such as
// WithMiddleware, WithFallback and WithErrorHandler. Options apply in
// order, each wrapping the result of the previous one.
// Must be called before Start().
func (r *Reloader) Pipeline(opts ...ReloadOption) *Reloader {
	r.opts = append(r.opts, opts...)
	return r
}

// RejectionHistory keeps the last n rejected documents for inspection
// through Rejections. The history is cleared whenever a document is
// applied. Default: disabled. Must be called before Start().
func (r *Reloader) RejectionHistory(n int) *Reloader {
	r.rejections = newRejectionLog(n)
	return r
}

// Rejections returns the rejections since the last applied document,
// oldest first. Returns nil if RejectionHistory was not set.
func (r *Reloader) Rejections() []Rejection {
	return r.rejections.all()
}

// Health returns the current health of the Reloader.
func (r *Reloader) Health() Health {
	return Health(r.health.Load())
}

// Current returns the last applied Config and true, or the zero Config
// and false if none has been applied.
func (r *Reloader) Current() (Config, bool) {
	ptr := r.current.Load()
	if ptr == nil {
		return Config{}, false
	}
	return *ptr, true
}

// LastError returns the error from the last rejected document, or nil if
// the last document was applied.
func (r *Reloader) LastError() error {
	ptr := r.lastError.Load()
	if ptr == nil {
		return nil
	}
	return *ptr
}

// Done is closed once the Reloader has stopped watching.
func (r *Reloader) Done() <-chan struct{} {
	return r.done
}

// Start begins watching. It blocks until the watcher delivers its first
// document and that document is processed (success or failure), then
// continues watching asynchronously until ctx is canceled or the watcher
// closes its channel.
//
// A watcher with nothing to report delivers no first document. A file or
// Redis key that does not exist yet is silent until it is written, so
// Start blocks until the first write or until ctx is done, returning
// ctx.Err() with the Reloader still HealthLoading. Bound ctx with a
// deadline when the source may be absent.
//
// If the first document is rejected, Start returns the error but keeps
// watching for a valid one.
//
// Start can only be called once. Subsequent calls return ErrAlreadyStarted.
func (r *Reloader) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	r.started = true
	r.mu.Unlock()

	apply := pipz.Effect(applyID, func(_ context.Context, req *Reload) error {
		for _, target := range r.targets {
			target.Configure(req.Current)
		}
		return nil
	})
	r.pipeline = buildReloadPipeline(r.codec, apply, r.opts)

	capitan.Emit(ctx, ReloaderStarted,
		KeyDelay.Field(r.debounce),
		KeyContentType.Field(r.codec.ContentType()),
		KeyTargets.Field(len(r.targets)),
	)

	changes, err := r.watcher.Watch(ctx)
	if err != nil {
		close(r.done)
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	var initialErr error
	select {
	case <-ctx.Done():
		close(r.done)
		return ctx.Err()
	case raw, ok := <-changes:
		if !ok {
			close(r.done)
			return errors.New("watcher closed before emitting initial value")
		}
		capitan.Emit(ctx, ReloaderChangeReceived)
		initialErr = r.process(ctx, raw)
	}

	debounced := NewCallback(func(raw []byte) {
		_ = r.process(ctx, raw) //nolint:errcheck // Errors stored in lastError
	}, WithDelay(r.debounce), WithClock(r.clock), WithName("reloader"))
	if err := debounced.Start(ctx); err != nil {
		close(r.done)
		return fmt.Errorf("failed to start debounce: %w", err)
	}

	go r.watch(ctx, changes, debounced)

	return initialErr
}

// watch feeds changes into the debounced processor until the source
// closes or ctx is canceled.
func (r *Reloader) watch(ctx context.Context, changes <-chan []byte, debounced *Callback[[]byte]) {
	defer func() {
		debounced.Stop()
		capitan.Emit(context.WithoutCancel(ctx), ReloaderStopped,
			KeyNewHealth.Field(r.Health().String()),
		)
		close(r.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-changes:
			if !ok {
				// Source closed, apply whatever is still waiting.
				debounced.Flush()
				return
			}
			capitan.Emit(ctx, ReloaderChangeReceived)
			debounced.Call(raw)
		}
	}
}

// process runs a single document through the pipeline.
func (r *Reloader) process(ctx context.Context, raw []byte) error {
	r.processMu.Lock()
	defer r.processMu.Unlock()

	start := r.clock.Now()
	oldHealth := r.Health()

	prev := DefaultConfig()
	if ptr := r.current.Load(); ptr != nil {
		prev = *ptr
	}

	req := &Reload{Previous: prev, Raw: raw}
	processed, err := r.pipeline.Process(ctx, req)
	if err != nil {
		stage, reason := rejectedAt(err)
		r.reject(ctx, oldHealth, stage, reason, start)
		return reason
	}

	cfg := processed.Current
	r.current.Store(&cfg)
	r.lastError.Store(nil)
	r.rejections.clear()
	r.transition(ctx, oldHealth, HealthHealthy)
	r.metrics.OnReload(true, r.clock.Since(start))
	capitan.Emit(ctx, ReloaderApplied,
		KeyDelay.Field(time.Duration(cfg.Delay)),
		KeyMinLength.Field(cfg.MinLength),
		KeyTargets.Field(len(r.targets)),
	)
	return nil
}

func (r *Reloader) reject(ctx context.Context, oldHealth Health, stage string, err error, start time.Time) {
	r.lastError.Store(&err)
	r.rejections.push(Rejection{Stage: stage, Err: err, At: r.clock.Now()})
	r.transition(ctx, oldHealth, r.failureHealth())
	r.metrics.OnReload(false, r.clock.Since(start))

	signal := ReloaderApplyFailed
	switch stage {
	case stageDecode:
		signal = ReloaderDecodeFailed
	case stageValidate:
		signal = ReloaderValidationFailed
	}
	capitan.Emit(ctx, signal, KeyError.Field(err.Error()))
}

// failureHealth returns the appropriate failure state based on whether
// a valid configuration has ever been applied.
func (r *Reloader) failureHealth() Health {
	if r.current.Load() == nil {
		return HealthEmpty
	}
	return HealthDegraded
}

// transition updates the health and emits a change event if it changed.
func (r *Reloader) transition(ctx context.Context, from, to Health) {
	if from == to {
		return
	}
	r.health.Store(int32(to))
	r.metrics.OnHealthChange(from, to)
	capitan.Emit(ctx, ReloaderHealthChanged,
		KeyOldHealth.Field(from.String()),
		KeyNewHealth.Field(to.String()),
	)
}

var (
	_ Configurable = (*Value[string])(nil)
	_ Configurable = (*State[string])(nil)
	_ Configurable = (*Search)(nil)
	_ Configurable = (*Callback[string])(nil)
)
