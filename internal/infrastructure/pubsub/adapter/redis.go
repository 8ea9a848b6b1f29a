package adapter

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	redis "github.com/redis/go-redis/v9"

	"kala-setu/internal/infrastructure/pubsub/port"
)

const subscriptionBuffer = 64

// RedisFeed implements port.Feed with Redis PUBLISH/SUBSCRIBE so every API
// node sees inserts committed through any other node.
type RedisFeed struct {
	client *redis.Client
	prefix string
}

func NewRedisFeed(client *redis.Client, prefix string) *RedisFeed {
	return &RedisFeed{client: client, prefix: prefix}
}

var _ port.Feed = (*RedisFeed)(nil)

func (f *RedisFeed) Publish(ctx context.Context, topic string, payload []byte) error {
	return errors.Wrap(f.client.Publish(ctx, f.prefix+topic, payload).Err(), "pubsub: publish")
}

func (f *RedisFeed) Subscribe(ctx context.Context, topic string) (port.Subscription, error) {
	ps := f.client.Subscribe(ctx, f.prefix+topic)
	// Receive blocks until Redis confirms the SUBSCRIBE.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, errors.Wrap(err, "pubsub: subscribe")
	}

	s := &redisSubscription{
		topic:  topic,
		ps:     ps,
		events: make(chan []byte, subscriptionBuffer),
		done:   make(chan struct{}),
	}
	go s.pump(ps.Channel())
	return s, nil
}

type redisSubscription struct {
	topic  string
	ps     *redis.PubSub
	events chan []byte
	done   chan struct{}
	once   sync.Once
}

func (s *redisSubscription) Topic() string { return s.topic }

func (s *redisSubscription) Events() <-chan []byte { return s.events }

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return errors.Wrap(err, "pubsub: close")
}

func (s *redisSubscription) pump(in <-chan *redis.Message) {
	defer close(s.events)
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			select {
			case s.events <- []byte(msg.Payload):
			case <-s.done:
				return
			}
		}
	}
}
