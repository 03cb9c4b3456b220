// Package redis provides a lull.Watcher that reads a timing document from
// a Redis key, so a fleet of processes can share one set of debounce
// settings.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Watcher watches a Redis key using keyspace notifications.
// Requires Redis to have keyspace notifications enabled:
//
//	CONFIG SET notify-keyspace-events KEA
type Watcher struct {
	client *redis.Client
	key    string
	db     int
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDB sets the database index used in the keyspace channel.
// It must match the database the client is connected to. Default: 0.
func WithDB(db int) Option {
	return func(w *Watcher) {
		w.db = db
	}
}

// New creates a Watcher for key.
func New(client *redis.Client, key string, opts ...Option) *Watcher {
	w := &Watcher{
		client: client,
		key:    key,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// writeEvents are the keyspace events that replace the key's value.
var writeEvents = map[string]bool{
	"set":       true,
	"setex":     true,
	"psetex":    true,
	"setnx":     true,
	"mset":      true,
	"append":    true,
	"rename_to": true,
}

// Watch subscribes to the key's keyspace channel, emits the current value
// if the key exists, and then emits the new value after every write.
// Deleting the key emits nothing; targets keep their last settings.
//
// A key that does not exist yet emits nothing until it is first written,
// so a lull.Reloader started on it blocks in Start until that write or
// until ctx is done.
func (w *Watcher) Watch(ctx context.Context) (<-chan []byte, error) {
	channel := fmt.Sprintf("__keyspace@%d__:%s", w.db, w.key)
	pubsub := w.client.Subscribe(ctx, channel)

	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	out := make(chan []byte)

	go func() {
		defer close(out)
		defer pubsub.Close()

		send := func() bool {
			val, err := w.client.Get(ctx, w.key).Bytes()
			if err != nil {
				// Missing key or transient error; wait for the next write.
				return !errors.Is(err, context.Canceled)
			}
			select {
			case out <- val:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send() {
			return
		}

		notifications := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-notifications:
				if !ok {
					return
				}
				if !writeEvents[msg.Payload] {
					continue
				}
				if !send() {
					return
				}
			}
		}
	}()

	return out, nil
}
