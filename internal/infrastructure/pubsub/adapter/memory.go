package adapter

import (
	"context"
	"sync"

	"kala-setu/internal/infrastructure/pubsub/port"
)

// MemoryFeed is an in-process port.Feed. Publish blocks until every current
// subscriber accepted the payload, the subscriber went away, or ctx ends.
type MemoryFeed struct {
	mu     sync.RWMutex
	topics map[string]map[*memorySubscription]struct{}
	closed bool
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{topics: make(map[string]map[*memorySubscription]struct{})}
}

var _ port.Feed = (*MemoryFeed)(nil)

func (f *MemoryFeed) Publish(ctx context.Context, topic string, payload []byte) error {
	f.mu.RLock()
	if f.closed {
		f.mu.RUnlock()
		return port.ErrClosed
	}
	subs := make([]*memorySubscription, 0, len(f.topics[topic]))
	for s := range f.topics[topic] {
		subs = append(subs, s)
	}
	f.mu.RUnlock()

	for _, s := range subs {
		if err := s.deliver(ctx, payload); err != nil {
			return err
		}
	}
	return nil
}

func (f *MemoryFeed) Subscribe(_ context.Context, topic string) (port.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, port.ErrClosed
	}
	s := &memorySubscription{
		feed:   f,
		topic:  topic,
		events: make(chan []byte, subscriptionBuffer),
		done:   make(chan struct{}),
	}
	set := f.topics[topic]
	if set == nil {
		set = make(map[*memorySubscription]struct{})
		f.topics[topic] = set
	}
	set[s] = struct{}{}
	return s, nil
}

// Subscribers counts live subscriptions on topic.
func (f *MemoryFeed) Subscribers(topic string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.topics[topic])
}

// Close drops every subscription.
func (f *MemoryFeed) Close() {
	f.mu.Lock()
	var all []*memorySubscription
	for _, set := range f.topics {
		for s := range set {
			all = append(all, s)
		}
	}
	f.topics = make(map[string]map[*memorySubscription]struct{})
	f.closed = true
	f.mu.Unlock()

	for _, s := range all {
		_ = s.Close()
	}
}

func (f *MemoryFeed) remove(s *memorySubscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if set := f.topics[s.topic]; set != nil {
		delete(set, s)
		if len(set) == 0 {
			delete(f.topics, s.topic)
		}
	}
}

type memorySubscription struct {
	feed   *MemoryFeed
	topic  string
	events chan []byte

	mu       sync.Mutex // guards closed and inflight registration
	inflight sync.WaitGroup
	done     chan struct{}
	closed   bool
}

func (s *memorySubscription) Topic() string { return s.topic }

func (s *memorySubscription) Events() <-chan []byte { return s.events }

func (s *memorySubscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	s.feed.remove(s)
	s.inflight.Wait()
	close(s.events)
	return nil
}

func (s *memorySubscription) deliver(ctx context.Context, payload []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.inflight.Add(1)
	s.mu.Unlock()
	defer s.inflight.Done()

	msg := make([]byte, len(payload))
	copy(msg, payload)
	select {
	case s.events <- msg:
		return nil
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
