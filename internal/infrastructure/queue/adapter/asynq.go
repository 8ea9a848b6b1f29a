package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"kala-setu/internal/infrastructure/queue/port"
)

// ===================== Client =====================

// AsynqClient implements port.Client using github.com/hibiken/asynq
// and Redis as the backing store.
type AsynqClient struct {
	client *asynq.Client
}

// NewAsynqClient constructs a client on the Redis instance at redisURL.
func NewAsynqClient(redisURL string) (*AsynqClient, error) {
	opt, err := redisOpt(redisURL)
	if err != nil {
		return nil, err
	}
	return &AsynqClient{client: asynq.NewClient(opt)}, nil
}

func redisOpt(redisURL string) (asynq.RedisConnOpt, error) {
	if redisURL == "" {
		return nil, errors.New("asynq: redis url is empty")
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("asynq: parse redis url: %w", err)
	}
	return opt, nil
}

// Ensure interface is satisfied
var _ port.Client = (*AsynqClient)(nil)

func (a *AsynqClient) Enqueue(ctx context.Context, t port.Task, opts ...port.EnqueueOption) (string, error) {
	if t.Type == "" {
		return "", errors.New("asynq: task type is required")
	}
	at := asynq.NewTask(t.Type, t.Payload)
	var asynqOpts []asynq.Option
	for _, op := range opts {
		asynqOpts = append(asynqOpts, asynqOptions(op)...)
	}
	info, err := a.client.EnqueueContext(ctx, at, asynqOpts...)
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

// asynqOptions maps the non-zero fields of op. Later options win in asynq,
// so callers may pass several.
func asynqOptions(op port.EnqueueOption) []asynq.Option {
	var out []asynq.Option
	if op.Queue != "" {
		out = append(out, asynq.Queue(op.Queue))
	}
	if op.MaxRetry > 0 {
		out = append(out, asynq.MaxRetry(op.MaxRetry))
	}
	if op.ProcessIn > 0 {
		out = append(out, asynq.ProcessIn(op.ProcessIn))
	}
	if op.Timeout > 0 {
		out = append(out, asynq.Timeout(op.Timeout))
	}
	if op.UniqueTTL > 0 {
		out = append(out, asynq.Unique(op.UniqueTTL))
	}
	return out
}

func (a *AsynqClient) Close() error {
	return a.client.Close()
}

// ===================== Server =====================

// AsynqServer implements port.Server using github.com/hibiken/asynq
type AsynqServer struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// ServerConfig carries the worker pool settings.
type ServerConfig struct {
	RedisURL    string
	Concurrency int
	Queues      map[string]int // queue name -> priority weight
}

// NewAsynqServer constructs a server whose task failures are logged through log.
func NewAsynqServer(cfg ServerConfig, log *zap.Logger) (*AsynqServer, error) {
	opt, err := redisOpt(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}
	// Default to consuming both "default" and "chat" queues
	if len(cfg.Queues) == 0 {
		cfg.Queues = map[string]int{"default": 1, "chat": 1}
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("asynq")

	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues:      cfg.Queues,
		Logger:      log.Sugar(),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			log.Error("task failed",
				zap.String("type", task.Type()),
				zap.Int("retried", retried),
				zap.Int("max_retry", maxRetry),
				zap.Error(err),
			)
		}),
	})
	return &AsynqServer{server: srv, mux: asynq.NewServeMux()}, nil
}

// Ensure interface is satisfied
var _ port.Server = (*AsynqServer)(nil)

func (s *AsynqServer) Register(taskType string, h port.Handler) {
	s.mux.HandleFunc(taskType, func(ctx context.Context, t *asynq.Task) error {
		pt := port.Task{Type: t.Type(), Payload: t.Payload()}
		return h(ctx, pt)
	})
}

// Run starts the server and blocks until the context is canceled, then gracefully shuts down.
func (s *AsynqServer) Run(ctx context.Context) error {
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	// Wait for cancellation
	<-ctx.Done()
	// Graceful shutdown (no context argument supported in current asynq version)
	s.server.Shutdown()
	return nil
}

// Stop gracefully shuts down the server.
func (s *AsynqServer) Stop(ctx context.Context) error {
	_ = ctx // context not used by current Shutdown signature
	s.server.Shutdown()
	return nil
}
