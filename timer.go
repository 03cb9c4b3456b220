package lull

import (
	"sync"
	"time"

	"github.com/zoobzio/clockz"
)

// handle is a single armed emission. Its goroutine waits on the timer and
// exits as soon as the handle is canceled.
type handle struct {
	timer clockz.Timer
	done  chan struct{}
	once  sync.Once
}

// cancel stops the timer and releases the waiting goroutine.
// Safe to call any number of times, including after the timer fired.
func (h *handle) cancel() {
	h.once.Do(func() {
		h.timer.Stop()
		close(h.done)
	})
}

func (h *handle) wait(fire func(*handle)) {
	select {
	case <-h.timer.C():
		fire(h)
	case <-h.done:
	}
}

// slot owns at most one outstanding handle. It is not synchronized;
// the owning coordinator guards it with its own mutex.
type slot struct {
	clock   clockz.Clock
	current *handle
}

// arm cancels whatever handle the slot holds and schedules fire to run
// after d on a separate goroutine. fire receives the handle so it can
// confirm through release that it has not been superseded.
func (s *slot) arm(d time.Duration, fire func(*handle)) *handle {
	s.cancelCurrent()
	h := &handle{
		timer: s.clock.NewTimer(d),
		done:  make(chan struct{}),
	}
	s.current = h
	go h.wait(fire)
	return h
}

// cancel cancels h and forgets it if it is the current handle.
func (s *slot) cancel(h *handle) {
	if h == nil {
		return
	}
	h.cancel()
	if s.current == h {
		s.current = nil
	}
}

// cancelCurrent cancels the held handle, reporting whether one was outstanding.
func (s *slot) cancelCurrent() bool {
	if s.current == nil {
		return false
	}
	s.cancel(s.current)
	return true
}

// release clears h if it is still the current handle. A false return
// means h was canceled or superseded and must not deliver.
func (s *slot) release(h *handle) bool {
	if s.current != h {
		return false
	}
	s.current = nil
	h.cancel()
	return true
}

func (s *slot) pending() bool {
	return s.current != nil
}
