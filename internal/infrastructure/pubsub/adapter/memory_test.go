package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"kala-setu/internal/infrastructure/pubsub/port"
)

func receive(t *testing.T, s port.Subscription) []byte {
	t.Helper()
	select {
	case msg, ok := <-s.Events():
		if !ok {
			t.Fatal("events channel closed")
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return nil
}

func TestMemoryFeedDeliversToTopicSubscribers(t *testing.T) {
	ctx := context.Background()
	f := NewMemoryFeed()

	a, _ := f.Subscribe(ctx, "chat:conversation:1")
	b, _ := f.Subscribe(ctx, "chat:conversation:1")
	other, _ := f.Subscribe(ctx, "chat:conversation:2")

	if err := f.Publish(ctx, "chat:conversation:1", []byte("hello")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got := string(receive(t, a)); got != "hello" {
		t.Errorf("a got %q", got)
	}
	if got := string(receive(t, b)); got != "hello" {
		t.Errorf("b got %q", got)
	}
	select {
	case msg := <-other.Events():
		t.Errorf("other topic received %q", msg)
	default:
	}
}

func TestMemoryFeedCloseReleasesSubscription(t *testing.T) {
	ctx := context.Background()
	f := NewMemoryFeed()

	s, _ := f.Subscribe(ctx, "t")
	if f.Subscribers("t") != 1 {
		t.Fatalf("expected 1 subscriber")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if f.Subscribers("t") != 0 {
		t.Fatalf("expected subscription to be released")
	}
	if _, ok := <-s.Events(); ok {
		t.Fatalf("expected events channel to be closed")
	}
	// Publishing after the only subscriber left is a no-op, not an error.
	if err := f.Publish(ctx, "t", []byte("late")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
}

func TestMemoryFeedClosed(t *testing.T) {
	ctx := context.Background()
	f := NewMemoryFeed()
	s, _ := f.Subscribe(ctx, "t")
	f.Close()

	if _, ok := <-s.Events(); ok {
		t.Fatalf("expected events channel to be closed after feed close")
	}
	if err := f.Publish(ctx, "t", nil); !errors.Is(err, port.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := f.Subscribe(ctx, "t"); !errors.Is(err, port.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestMemoryFeedPublishHonorsContext(t *testing.T) {
	f := NewMemoryFeed()
	_, _ = f.Subscribe(context.Background(), "t")

	// Fill the buffer so the next publish has to wait.
	for i := 0; i < subscriptionBuffer; i++ {
		if err := f.Publish(context.Background(), "t", []byte("x")); err != nil {
			t.Fatalf("Publish %d: %v", i, err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := f.Publish(ctx, "t", []byte("x")); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
