package lull

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// waitFor polls a condition until it returns true or timeout is reached.
func waitFor(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return condition()
}

// settle gives timer goroutines a moment to run before asserting that
// nothing happened.
func settle() {
	time.Sleep(20 * time.Millisecond)
}

// recorder collects values passed to OnChange.
type recorder[T any] struct {
	mu     sync.Mutex
	values []T
}

func (r *recorder[T]) record(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder[T]) all() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.values))
	copy(out, r.values)
	return out
}

func (r *recorder[T]) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}

// countingMetrics counts MetricsProvider callbacks.
type countingMetrics struct {
	NoOpMetricsProvider

	scheduled atomic.Int32
	emitted   atomic.Int32
	canceled  atomic.Int32
	gated     atomic.Int32
	lastDelay atomic.Int64

	mu      sync.Mutex
	reasons []Reason
	health  []Health
	reloads []bool
}

func (m *countingMetrics) OnScheduled(d time.Duration) {
	m.scheduled.Add(1)
	m.lastDelay.Store(int64(d))
}

func (m *countingMetrics) OnEmitted(reason Reason) {
	m.emitted.Add(1)
	m.mu.Lock()
	m.reasons = append(m.reasons, reason)
	m.mu.Unlock()
}

func (m *countingMetrics) OnCanceled(reason Reason) {
	m.canceled.Add(1)
	m.mu.Lock()
	m.reasons = append(m.reasons, reason)
	m.mu.Unlock()
}

func (m *countingMetrics) OnGated(_ int) {
	m.gated.Add(1)
}

func (m *countingMetrics) OnHealthChange(_, to Health) {
	m.mu.Lock()
	m.health = append(m.health, to)
	m.mu.Unlock()
}

func (m *countingMetrics) OnReload(success bool, _ time.Duration) {
	m.mu.Lock()
	m.reloads = append(m.reloads, success)
	m.mu.Unlock()
}

func (m *countingMetrics) lastReason() Reason {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.reasons) == 0 {
		return ""
	}
	return m.reasons[len(m.reasons)-1]
}

// gatedMetrics holds the first timer publication inside OnEmitted until
// release is closed.
type gatedMetrics struct {
	NoOpMetricsProvider

	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedMetrics() *gatedMetrics {
	return &gatedMetrics{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (m *gatedMetrics) OnEmitted(reason Reason) {
	if reason != ReasonTimer {
		return
	}
	m.once.Do(func() {
		close(m.entered)
		<-m.release
	})
}

// await waits for a timer publication to reach OnEmitted.
func (m *gatedMetrics) await(t *testing.T) {
	t.Helper()
	select {
	case <-m.entered:
	case <-time.After(time.Second):
		t.Fatal("timer publication never reached the metrics provider")
	}
}
