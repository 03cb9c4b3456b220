/*
Package lull decouples a rapidly changing input from the slower output
that drives expensive work, such as a search box feeding a network query
or a filter box feeding a large table.

Every primitive owns a single scheduled emission. A new source value
cancels it and arms a fresh one, so only the value present when the input
finally goes quiet is ever published.

# Primitives

Value publishes a delayed copy of its source:

	query := lull.NewValue("", lull.WithDelay(300*time.Millisecond), lull.WithMinLength(2))
	_ = query.Start(ctx)
	query.Set("re")   // published 300ms after the last Set
	query.Value()     // debounced output

State adds a pending flag and imperative controls:

	state := lull.NewState("", lull.WithFlushOnEmpty())
	state.Pending()   // an emission is armed
	state.Cancel()    // drop it, keep the output
	state.Flush()     // publish the latest source now
	state.Reset()     // publish the latest source silently

Callback coalesces bursts of calls into one trailing call:

	save := lull.NewCallback(func(d Draft) { store.Save(d) }, lull.WithDelay(time.Second))
	_ = save.Start(ctx)
	save.Call(draft)

Search composes an owned input with State for the search-box contract:

	search := lull.NewSearch("").OnChange(func(q string) { table.Filter(q) })
	_ = search.Start(ctx)
	search.SetValue("reac")
	search.Clear()    // the query clears immediately

# Lifecycle

Start activates a primitive. Stop, or canceling the context passed to
Start, tears it down: the outstanding emission is canceled and nothing is
published afterwards. Operations after Stop are no-ops.

# Runtime Configuration

A Reloader watches a YAML or JSON document and applies it to any number of
primitives through Configure:

	reloader := lull.NewReloader(lull.NewFileWatcher("search.yaml"), search)
	_ = reloader.Start(ctx)

Rejected documents leave the targets on the last applied Config. Each
document runs through a pipz pipeline (decode, validate, apply); Pipeline
adds middleware, fallbacks and error handlers around the apply stage.
Package pkg/redis provides a Watcher for timing shared through a Redis key.

# Observability

Scheduling, publication, cancellation and reloads are emitted as capitan
signals (see signals.go) and reported to an optional MetricsProvider.
Timers come from a clockz.Clock; tests use clockz.NewFakeClock().
*/
package lull
