package lull

import (
	"context"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

func newStartedState(t *testing.T, initial string, opts ...Option) (*State[string], *clockz.FakeClock, *recorder[string]) {
	t.Helper()
	clock := clockz.NewFakeClock()
	got := &recorder[string]{}
	opts = append([]Option{WithClock(clock), WithDelay(100 * time.Millisecond)}, opts...)
	s := NewState(initial, opts...).OnChange(got.record)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(s.Stop)
	return s, clock, got
}

func TestPhase_String(t *testing.T) {
	if s := PhaseIdle.String(); s != "idle" {
		t.Errorf("expected 'idle', got %q", s)
	}
	if s := PhasePending.String(); s != "pending" {
		t.Errorf("expected 'pending', got %q", s)
	}
	if s := Phase(99).String(); s != "unknown" {
		t.Errorf("expected 'unknown', got %q", s)
	}
}

func TestState_PendingLifecycle(t *testing.T) {
	s, clock, got := newStartedState(t, "", WithImmediate())

	if s.Pending() {
		t.Fatal("expected idle after immediate start")
	}

	s.Set("a")
	if !s.Pending() || s.Phase() != PhasePending {
		t.Fatal("expected pending after Set")
	}

	s.Set("ab")
	if !s.Pending() {
		t.Fatal("expected still pending after re-arm")
	}

	clock.Advance(100 * time.Millisecond)
	clock.BlockUntilReady()

	if !waitFor(t, time.Second, func() bool { return !s.Pending() }) {
		t.Fatal("expected idle after emission")
	}
	if s.Value() != "ab" {
		t.Errorf("expected output 'ab', got %q", s.Value())
	}
	if got.count() != 2 {
		t.Errorf("expected immediate plus one emission, got %v", got.all())
	}
}

func TestState_CancelKeepsOutput(t *testing.T) {
	s, clock, got := newStartedState(t, "old", WithImmediate())
	before := got.count()

	s.Set("new")
	s.Cancel()

	if s.Pending() {
		t.Error("expected pending=false after Cancel")
	}
	if s.Value() != "old" {
		t.Errorf("expected output unchanged, got %q", s.Value())
	}

	clock.Advance(time.Second)
	clock.BlockUntilReady()
	settle()

	if got.count() != before {
		t.Errorf("canceled emission fired: %v", got.all()[before:])
	}
}

func TestState_CancelIsIdempotent(t *testing.T) {
	metrics := &countingMetrics{}
	s, clock, got := newStartedState(t, "", WithImmediate(), WithMetrics(metrics))
	before := got.count()

	s.Cancel()
	s.Set("x")
	s.Cancel()
	s.Cancel()

	if metrics.canceled.Load() != 1 {
		t.Errorf("expected 1 cancellation, got %d", metrics.canceled.Load())
	}

	clock.Advance(time.Second)
	clock.BlockUntilReady()
	settle()
	s.Cancel()

	if got.count() != before {
		t.Errorf("expected no emissions, got %v", got.all()[before:])
	}
}

func TestState_CancelAfterFire(t *testing.T) {
	s, clock, got := newStartedState(t, "", WithImmediate())

	s.Set("x")
	clock.Advance(100 * time.Millisecond)
	clock.BlockUntilReady()
	if !waitFor(t, time.Second, func() bool { return s.Value() == "x" }) {
		t.Fatal("expected emission")
	}
	count := got.count()

	s.Cancel()
	s.Cancel()

	if s.Value() != "x" || got.count() != count {
		t.Error("cancel after fire must not change anything")
	}
}

func TestState_FlushPublishesFreshestValue(t *testing.T) {
	s, clock, got := newStartedState(t, "", WithImmediate())
	before := got.count()

	s.Set("v1")
	s.Set("v2")
	s.Flush()

	if s.Value() != "v2" {
		t.Errorf("expected output 'v2', got %q", s.Value())
	}
	if s.Pending() {
		t.Error("expected pending=false after Flush")
	}

	clock.Advance(time.Second)
	clock.BlockUntilReady()
	settle()

	values := got.all()[before:]
	if len(values) != 1 || values[0] != "v2" {
		t.Errorf("expected exactly one emission of 'v2', got %v", values)
	}
}

func TestState_FlushUsesSourceNotArmedSnapshot(t *testing.T) {
	s, _, _ := newStartedState(t, "", WithImmediate(), WithMinLength(2))

	s.Set("ab") // armed with "ab"
	s.Set("a")  // gated, source is now "a"
	s.Flush()

	if s.Value() != "a" {
		t.Errorf("expected flush to publish latest source 'a', got %q", s.Value())
	}
	if s.Source() != "a" {
		t.Errorf("expected source 'a', got %q", s.Source())
	}
}

func TestState_FlushWithNothingPending(t *testing.T) {
	metrics := &countingMetrics{}
	s, _, got := newStartedState(t, "keep", WithImmediate(), WithMetrics(metrics))
	before := got.count()

	s.Flush()

	if got.count() != before+1 {
		t.Error("expected Flush to publish even when idle")
	}
	if metrics.lastReason() != ReasonFlush {
		t.Errorf("expected reason flush, got %q", metrics.lastReason())
	}
}

func TestState_ResetPublishesSourceSilently(t *testing.T) {
	metrics := &countingMetrics{}
	s, clock, got := newStartedState(t, "", WithImmediate(), WithMetrics(metrics))
	before := got.count()

	s.Set("typed")
	s.Reset()

	if s.Value() != "typed" {
		t.Errorf("expected output 'typed', got %q", s.Value())
	}
	if s.Pending() {
		t.Error("expected pending=false after Reset")
	}
	if got.count() != before {
		t.Error("Reset must not notify OnChange")
	}
	if metrics.lastReason() != ReasonReset {
		t.Errorf("expected reason reset, got %q", metrics.lastReason())
	}

	clock.Advance(time.Second)
	clock.BlockUntilReady()
	settle()
	if got.count() != before {
		t.Error("reset emission fired later")
	}
}

// Reset tracks the latest source, so it lands on the same value as Flush.
func TestState_ResetMatchesFlush(t *testing.T) {
	flushed, _, _ := newStartedState(t, "base", WithImmediate())
	reset, _, _ := newStartedState(t, "base", WithImmediate())

	for _, s := range []*State[string]{flushed, reset} {
		s.Set("edit-1")
		s.Set("edit-2")
	}
	flushed.Flush()
	reset.Reset()

	if flushed.Value() != reset.Value() {
		t.Errorf("expected Reset and Flush to agree, got %q and %q", reset.Value(), flushed.Value())
	}
	if reset.Value() == "base" {
		t.Error("Reset does not restore the pre-edit baseline")
	}
}

func TestState_EmptyFastPath(t *testing.T) {
	s, clock, got := newStartedState(t, "", WithFlushOnEmpty())

	if s.Pending() {
		t.Fatal("empty initial value should be flushed at start")
	}

	s.Set("react")
	if !s.Pending() {
		t.Fatal("expected pending after Set")
	}

	s.Set("")
	if s.Value() != "" {
		t.Errorf("expected output '' immediately, got %q", s.Value())
	}
	if s.Pending() {
		t.Error("expected empty value to cancel the pending emission")
	}

	clock.Advance(time.Second)
	clock.BlockUntilReady()
	settle()

	for _, v := range got.all() {
		if v == "react" {
			t.Error("canceled 'react' emission fired")
		}
	}
}

func TestState_EmptyFastPathWithMinLength(t *testing.T) {
	s, _, _ := newStartedState(t, "", WithFlushOnEmpty(), WithMinLength(2))

	s.Set("r")
	if s.Value() != "" {
		t.Errorf("expected output unchanged, got %q", s.Value())
	}
	if s.Pending() {
		t.Error("expected pending=false for gated value")
	}

	s.Set("re")
	if !s.Pending() {
		t.Error("expected qualifying value to arm a debounce cycle")
	}
}

func TestState_EmptyFastPathForNonStrings(t *testing.T) {
	clock := clockz.NewFakeClock()
	s := NewState(5, WithFlushOnEmpty(), WithImmediate(), WithClock(clock))
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	s.Set(0)
	if s.Value() != 0 || s.Pending() {
		t.Errorf("expected zero value flushed immediately, got %d pending=%v", s.Value(), s.Pending())
	}
}

func TestState_ControlsAfterStop(t *testing.T) {
	s, clock, got := newStartedState(t, "", WithImmediate())
	s.Set("x")
	s.Stop()
	before := got.count()

	s.Cancel()
	s.Flush()
	s.Reset()
	s.Set("y")

	clock.Advance(time.Second)
	clock.BlockUntilReady()
	settle()

	if got.count() != before {
		t.Errorf("expected no emissions after Stop, got %v", got.all()[before:])
	}
	if s.Value() != "" {
		t.Errorf("expected output unchanged after Stop, got %q", s.Value())
	}
}

func TestState_ControlsBeforeStart(t *testing.T) {
	var got recorder[string]
	s := NewState("a", WithClock(clockz.NewFakeClock())).OnChange(got.record)

	s.Flush()
	s.Reset()
	s.Cancel()

	if got.count() != 0 {
		t.Error("controls before Start must do nothing")
	}
}

func TestState_StopReportsCancellation(t *testing.T) {
	metrics := &countingMetrics{}
	s, _, _ := newStartedState(t, "", WithImmediate(), WithMetrics(metrics))

	s.Set("x")
	s.Stop()

	if metrics.canceled.Load() != 1 {
		t.Errorf("expected 1 cancellation, got %d", metrics.canceled.Load())
	}
	if metrics.lastReason() != ReasonStop {
		t.Errorf("expected reason stop, got %q", metrics.lastReason())
	}
}

func TestState_OnChangeMayReenter(t *testing.T) {
	clock := clockz.NewFakeClock()
	var s *State[string]
	done := make(chan struct{})

	s = NewState("", WithImmediate(), WithDelay(100*time.Millisecond), WithClock(clock)).
		OnChange(func(v string) {
			if v == "go" {
				_ = s.Pending()
				s.Cancel()
				close(done)
			}
		})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	s.Set("go")
	clock.Advance(100 * time.Millisecond)
	clock.BlockUntilReady()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("OnChange did not run or deadlocked")
	}
}

func TestState_StopWaitsForDeliveryInFlight(t *testing.T) {
	metrics := newGatedMetrics()
	s, clock, got := newStartedState(t, "", WithMetrics(metrics))

	s.Set("abc")
	clock.Advance(100 * time.Millisecond)
	clock.BlockUntilReady()
	metrics.await(t)

	returned := make(chan int, 1)
	go func() {
		s.Stop()
		returned <- got.count()
	}()

	settle()
	select {
	case <-returned:
		t.Fatal("Stop returned while OnChange was still due")
	default:
	}

	close(metrics.release)
	var atReturn int
	select {
	case atReturn = <-returned:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the delivery finished")
	}

	settle()
	if after := got.count(); after != atReturn {
		t.Errorf("OnChange ran after Stop returned: %d calls at return, %d after (%v)", atReturn, after, got.all())
	}
}

func TestState_DeliveriesFollowCommitOrder(t *testing.T) {
	metrics := newGatedMetrics()
	s, clock, got := newStartedState(t, "", WithMetrics(metrics))

	s.Set("a")
	clock.Advance(100 * time.Millisecond)
	clock.BlockUntilReady()
	metrics.await(t)

	// "a" is committed and its delivery is held. "b" commits after it.
	s.Set("b")
	s.Flush()
	if s.Value() != "b" {
		t.Fatalf("expected output 'b', got %q", s.Value())
	}

	close(metrics.release)
	if !waitFor(t, time.Second, func() bool { return got.count() == 2 }) {
		t.Fatalf("expected two OnChange calls, got %v", got.all())
	}
	calls := got.all()
	if calls[0] != "a" || calls[1] != "b" {
		t.Errorf("expected OnChange order [a b], got %v", calls)
	}
	if last := calls[len(calls)-1]; last != s.Value() {
		t.Errorf("last OnChange %q disagrees with output %q", last, s.Value())
	}
}

func TestState_StopFromOnChange(t *testing.T) {
	var s *State[string]
	got := &recorder[string]{}
	s = NewState("", WithClock(clockz.NewFakeClock())).OnChange(func(v string) {
		got.record(v)
		if v == "x" {
			s.Stop()
		}
	})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		s.Set("x")
		s.Flush()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop from OnChange deadlocked")
	}

	s.Set("y")
	s.Flush()
	settle()
	if calls := got.all(); len(calls) != 1 || calls[0] != "x" {
		t.Errorf("expected only 'x' before Stop, got %v", calls)
	}
}
