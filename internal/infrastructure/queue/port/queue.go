package port

import (
	"context"
	"time"
)

// Task is a unit of background work: a stable type name plus the payload the
// registered handler decodes.
type Task struct {
	Type    string
	Payload []byte
}

// Handler runs one Task. A returned error schedules a retry unless the adapter
// is told otherwise; handlers must tolerate running more than once.
type Handler func(ctx context.Context, task Task) error

// EnqueueOption tunes how a task is scheduled. Zero fields keep the backend default.
type EnqueueOption struct {
	Queue     string
	MaxRetry  int
	ProcessIn time.Duration
	// Timeout bounds a single attempt.
	Timeout time.Duration
	// UniqueTTL rejects an identical task enqueued again within the window.
	UniqueTTL time.Duration
}

// Client enqueues tasks from the API process.
type Client interface {
	Enqueue(ctx context.Context, t Task, opts ...EnqueueOption) (id string, err error)
	Close() error
}

// Server runs the worker side. Run blocks until ctx is canceled.
type Server interface {
	Register(taskType string, h Handler)
	Run(ctx context.Context) error
	Stop(ctx context.Context) error
}
