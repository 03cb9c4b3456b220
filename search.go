package lull

import (
	"context"
	"sync"
)

// Search is the search-box composition of State: it owns the input text,
// debounces it into a query, and clears the query without delay when the
// input is emptied.
//
// Example:
//
//	search := lull.NewSearch("", lull.WithDelay(250*time.Millisecond)).
//	    OnChange(func(q string) { table.Filter(q) })
//	_ = search.Start(ctx)
//
//	search.SetValue("reac")  // table filters 250ms after the last keystroke
//	search.Clear()           // table unfilters now
type Search struct {
	mu    sync.Mutex
	value string
	state *State[string]
}

// NewSearch creates a Search with the given input text. The minimum length
// is always zero and empty input always flushes, whatever opts say.
func NewSearch(initial string, opts ...Option) *Search {
	opts = append(opts, WithMinLength(0), WithFlushOnEmpty())
	return &Search{
		value: initial,
		state: NewState(initial, opts...),
	}
}

// OnChange sets the function called with each published query.
// Must be called before Start().
func (s *Search) OnChange(fn func(string)) *Search {
	s.state.OnChange(fn)
	return s
}

// Start activates the Search. Canceling ctx has the same effect as Stop.
func (s *Search) Start(ctx context.Context) error {
	return s.state.Start(ctx)
}

// Value returns the input text as last set, without delay.
func (s *Search) Value() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// SetValue replaces the input text and debounces it into the query.
// Concurrent calls leave the input and the query source on the same text.
func (s *Search) SetValue(v string) {
	s.mu.Lock()
	s.value = v
	s.state.c.commit(v)
	s.mu.Unlock()
	s.state.c.drain()
}

// DebouncedValue returns the current query.
func (s *Search) DebouncedValue() string {
	return s.state.Value()
}

// Pending reports whether the query is waiting to catch up with the input.
func (s *Search) Pending() bool {
	return s.state.Pending()
}

// Clear empties the input. The query is cleared immediately.
func (s *Search) Clear() {
	s.SetValue("")
}

// Flush publishes the current input as the query right away.
func (s *Search) Flush() {
	s.state.Flush()
}

// Configure replaces the delay and first-emission behaviour. MinLength
// and FlushOnEmpty in cfg are overridden.
func (s *Search) Configure(cfg Config) {
	cfg.MinLength = 0
	cfg.FlushOnEmpty = true
	s.state.Configure(cfg)
}

// Stop cancels any pending query update.
func (s *Search) Stop() {
	s.state.Stop()
}
