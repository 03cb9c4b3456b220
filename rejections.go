package lull

import (
	"slices"
	"sync"
	"time"
)

// Rejection describes a document the Reloader refused. When it was
// recorded, the targets kept the timing they already had.
type Rejection struct {
	// Stage is where the document failed: "decode", "validate" or "apply".
	Stage string

	// Err is the error LastError reported for the document.
	Err error

	// At comes from the Reloader's clock.
	At time.Time
}

// rejectionLog holds the newest rejections since the last applied
// document, at most limit of them. A nil log records nothing.
type rejectionLog struct {
	mu      sync.Mutex
	limit   int
	entries []Rejection
}

func newRejectionLog(limit int) *rejectionLog {
	if limit <= 0 {
		return nil
	}
	return &rejectionLog{limit: limit, entries: make([]Rejection, 0, limit)}
}

// push records r, dropping the oldest entry when the log is full.
func (l *rejectionLog) push(r Rejection) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) == l.limit {
		l.entries = slices.Delete(l.entries, 0, 1)
	}
	l.entries = append(l.entries, r)
}

// clear forgets every rejection once a document is applied.
func (l *rejectionLog) clear() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	clear(l.entries)
	l.entries = l.entries[:0]
}

// all returns a copy of the log, oldest first, or nil when it is empty.
func (l *rejectionLog) all() []Rejection {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) == 0 {
		return nil
	}
	return slices.Clone(l.entries)
}
