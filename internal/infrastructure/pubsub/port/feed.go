package port

import (
	"context"
	"errors"
)

// Feed is the realtime push channel: publishers announce committed rows on a
// topic, subscribers receive whatever is published while they are subscribed.
// Nothing is buffered for absent subscribers and nothing is replayed.
type Feed interface {
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe returns once the backend confirmed the subscription, so every
	// payload published after it returns is delivered to Events.
	Subscribe(ctx context.Context, topic string) (Subscription, error)
}

// Subscription is one live topic subscription. Close is idempotent and
// closes the Events channel.
type Subscription interface {
	Topic() string
	Events() <-chan []byte
	Close() error
}

// ErrClosed is returned when publishing to or subscribing on a closed feed.
var ErrClosed = errors.New("pubsub: feed closed")
