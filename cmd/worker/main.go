package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"kala-setu/internal/config"
	cacheAdapter "kala-setu/internal/infrastructure/cache/adapter"
	"kala-setu/internal/infrastructure/database"
	"kala-setu/internal/infrastructure/logger"
	pubsubAdapter "kala-setu/internal/infrastructure/pubsub/adapter"
	queueAdapter "kala-setu/internal/infrastructure/queue/adapter"
	translationAdapter "kala-setu/internal/infrastructure/translation/adapter"
	"kala-setu/internal/pkg/chat/application/task"
	"kala-setu/internal/pkg/chat/application/usecase"
	chatAdapter "kala-setu/internal/pkg/chat/persistence/repository/adapter"
)

// The worker drains the chat queue filled by POST .../messages/async.
// It shares the key prefix with the API so cached translations and feed
// topics line up.
const keyPrefix = "kala-setu:"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()
	zap.ReplaceGlobals(zlog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := database.Connect(startCtx, cfg.DatabaseURL, database.WithMaxConns(cfg.DBMaxConns))
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := cacheAdapter.NewRedisClient(startCtx, cfg.RedisURL)
	if err != nil {
		zlog.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()
	cache := cacheAdapter.NewRedisCache(rdb, keyPrefix)

	translator := translationAdapter.NewGateway(
		translationAdapter.NewGoogleBackend(cfg.TranslateURL, cfg.TranslateTimeout),
		cache, cfg.TranslationCacheTTL, zlog.Named("translation"),
	)
	sendUC := usecase.NewSendMessageUseCase(
		chatAdapter.NewPgChatRepository(pool),
		translator,
		pubsubAdapter.NewRedisFeed(rdb, keyPrefix),
		zlog,
	)

	srv, err := queueAdapter.NewAsynqServer(queueAdapter.ServerConfig{
		RedisURL:    cfg.RedisURL,
		Concurrency: cfg.AsynqConcurrency,
		Queues:      cfg.QueueWeights(),
	}, zlog)
	if err != nil {
		zlog.Fatal("failed to create worker", zap.Error(err))
	}
	task.RegisterSendMessageTask(srv, sendUC)

	zlog.Info("worker started",
		zap.Int("concurrency", cfg.AsynqConcurrency),
		zap.Any("queues", cfg.QueueWeights()),
	)
	if err := srv.Run(ctx); err != nil {
		zlog.Error("worker stopped", zap.Error(err))
	}
}
