package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	v1 "kala-setu/cmd/api/router/v1"
	"kala-setu/internal/config"
	cacheAdapter "kala-setu/internal/infrastructure/cache/adapter"
	cachePort "kala-setu/internal/infrastructure/cache/port"
	"kala-setu/internal/infrastructure/database"
	"kala-setu/internal/infrastructure/logger"
	pubsubAdapter "kala-setu/internal/infrastructure/pubsub/adapter"
	queueAdapter "kala-setu/internal/infrastructure/queue/adapter"
	"kala-setu/internal/infrastructure/realtime"
	storageAdapter "kala-setu/internal/infrastructure/storage/adapter"
	translationAdapter "kala-setu/internal/infrastructure/translation/adapter"
	chatAdapter "kala-setu/internal/pkg/chat/persistence/repository/adapter"
	httpHandler "kala-setu/internal/pkg/chat/presentation/http"
	profileAdapter "kala-setu/internal/repository/adapter"
)

const keyPrefix = "kala-setu:"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.ValidateAPI(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()
	zap.ReplaceGlobals(zlog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to the database on startup
	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := database.Connect(startCtx, cfg.DatabaseURL, database.WithMaxConns(cfg.DBMaxConns))
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()
	if err := database.Migrate(startCtx, pool); err != nil {
		zlog.Fatal("failed to migrate database", zap.Error(err))
	}

	rdb, err := cacheAdapter.NewRedisClient(startCtx, cfg.RedisURL)
	if err != nil {
		zlog.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()
	cache := cacheAdapter.NewRedisCache(rdb, keyPrefix)
	feed := pubsubAdapter.NewRedisFeed(rdb, keyPrefix)

	translator := translationAdapter.NewGateway(
		translationAdapter.NewGoogleBackend(cfg.TranslateURL, cfg.TranslateTimeout),
		cache, cfg.TranslationCacheTTL, zlog.Named("translation"),
	)

	store, err := storageAdapter.NewS3Store(startCtx, storageAdapter.S3Options{
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		PublicURL:       cfg.S3PublicURL,
	})
	if err != nil {
		zlog.Fatal("failed to configure object storage", zap.Error(err))
	}

	queue, err := queueAdapter.NewAsynqClient(cfg.RedisURL)
	if err != nil {
		zlog.Fatal("failed to create queue client", zap.Error(err))
	}
	defer queue.Close()

	sessions := realtime.NewRouter()
	defer sessions.Close()

	profiles := profileAdapter.NewPgProfileRepository(pool)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(logger.GinMiddleware(zlog.Named("http")), gin.Recovery())
	r.Use(cors.New(corsConfig(cfg.CORSAllowedOrigins)))
	r.MaxMultipartMemory = 8 << 20

	r.GET("/", healthHandler(pool, cache, sessions))

	v1.RegisterRoutes(r, cfg.JWTSecret, httpHandler.Dependencies{
		Chats:            chatAdapter.NewPgChatRepository(pool),
		Profiles:         profiles,
		Translator:       translator,
		Feed:             feed,
		Cache:            cache,
		Store:            store,
		Queue:            queue,
		Router:           sessions,
		Log:              zlog,
		AvatarBucket:     cfg.AvatarBucket,
		LanguageCacheTTL: cfg.LanguageCacheTTL,
		SendRateLimit:    cfg.SendRateLimit,
		SendRateWindow:   cfg.SendRateWindow,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zlog.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	// Hijacked websocket connections are not tracked by Shutdown.
	sessions.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("http server shutdown", zap.Error(err))
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

func healthHandler(pool *pgxpool.Pool, c cachePort.Cache, sessions *realtime.Router) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		pctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(pctx); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "DEGRADED", "postgres": err.Error()})
			return
		}
		if err := c.Ping(pctx); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "DEGRADED", "redis": err.Error()})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{
			"status":   "OK",
			"sessions": sessions.Sessions(),
		})
	}
}
