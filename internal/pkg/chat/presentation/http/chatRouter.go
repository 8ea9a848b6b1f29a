package http

import (
	"math"
	"net/http"
	"strconv"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"kala-setu/internal/auth"
	cache "kala-setu/internal/infrastructure/cache/port"
	pubsub "kala-setu/internal/infrastructure/pubsub/port"
	qport "kala-setu/internal/infrastructure/queue/port"
	"kala-setu/internal/infrastructure/realtime"
	storage "kala-setu/internal/infrastructure/storage/port"
	translation "kala-setu/internal/infrastructure/translation/port"
	"kala-setu/internal/pkg/chat/application/thread"
	"kala-setu/internal/pkg/chat/application/usecase"
	repository "kala-setu/internal/pkg/chat/persistence/repository/port"
	"kala-setu/internal/pkg/chat/presentation/controller"
	profiles "kala-setu/internal/repository/port"
)

// Dependencies are the adapters the chat routes are built from.
// Queue and Store may be nil; the routes that need them are then not mounted.
type Dependencies struct {
	Chats      repository.ChatRepository
	Profiles   profiles.ProfileRepository
	Translator translation.Translator
	Feed       pubsub.Feed
	Cache      cache.Cache
	Store      storage.ObjectStore
	Queue      qport.Client
	Router     *realtime.Router
	Log        *zap.Logger

	AvatarBucket     string
	LanguageCacheTTL time.Duration
	// A user may send SendRateLimit messages per SendRateWindow.
	SendRateLimit  uint
	SendRateWindow time.Duration
}

// RegisterRoutes registers chat-related HTTP endpoints under the given router group
// It constructs per-endpoint controllers and binds them directly to routes.
// The group is expected to carry auth.Middleware.
func RegisterRoutes(g *gin.RouterGroup, d Dependencies) {
	controller.RegisterValidators()

	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	sendUC := usecase.NewSendMessageUseCase(d.Chats, d.Translator, d.Feed, log)
	historyUC := usecase.NewFetchHistoryUseCase(d.Chats)
	joinUC := usecase.NewJoinConversationUseCase(d.Chats)
	languageUC := usecase.NewLanguagePreferenceUseCase(d.Profiles, d.Cache, d.LanguageCacheTTL, log)

	var presence usecase.Presence
	if d.Router != nil {
		presence = d.Router
	}

	sendBudget := newSendStore(d.SendRateLimit, d.SendRateWindow)
	limitSend := limitRateForSend(sendBudget)

	// GET /api/v1/languages -> selectable languages
	g.GET("/languages", controller.NewListLanguagesController().Handle())

	// GET|PUT /api/v1/profile/language -> the viewer's language
	g.GET("/profile/language", controller.NewGetLanguageController(languageUC).Handle())
	g.PUT("/profile/language", controller.NewSetLanguageController(languageUC).Handle())

	if d.Store != nil {
		avatarUC := usecase.NewUpdateAvatarUseCase(d.Profiles, d.Store, d.AvatarBucket)
		g.PUT("/profile/avatar", controller.NewUpdateAvatarController(avatarUC).Handle())
	}

	// GET|POST /api/v1/conversations -> list or open conversations
	g.GET("/conversations", controller.NewListConversationsController(usecase.NewListConversationsUseCase(d.Chats, presence)).Handle())
	g.POST("/conversations", controller.NewCreateChatController(usecase.NewCreateChatUseCase(d.Chats, d.Profiles)).Handle())

	// GET|POST /api/v1/conversations/:conversationId/messages -> history and send
	g.GET("/conversations/:conversationId/messages", controller.NewGetMessageController(historyUC).Handle())
	g.POST("/conversations/:conversationId/messages", limitSend, controller.NewSendMessageController(sendUC).Handle())
	if d.Queue != nil {
		g.POST("/conversations/:conversationId/messages/async", limitSend, controller.NewSendMessageAsyncController(d.Queue).Handle())
	}

	// GET /api/v1/chat/ws -> websocket endpoint for realtime chat
	if d.Router != nil {
		socketCtl := controller.NewChatSocketController(d.Router, languageUC, thread.Deps{
			Join:       joinUC,
			History:    historyUC,
			Send:       sendUC,
			Translator: d.Translator,
			Feed:       d.Feed,
			Log:        log,
		}, sendLimiter{store: sendBudget}, log)
		g.GET("/chat/ws", socketCtl.Handle())
	}
}

// newSendStore holds the per-user send budget shared by the HTTP send routes
// and websocket message frames.
func newSendStore(limit uint, window time.Duration) ratelimit.Store {
	if limit == 0 {
		limit = 5
	}
	if window < time.Second {
		window = time.Second
	}
	return ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  window,
		Limit: limit,
	})
}

// sendLimiter lets the socket controller draw from the same store.
type sendLimiter struct {
	store ratelimit.Store
}

func (l sendLimiter) Allow(c *gin.Context, key string) (time.Duration, bool) {
	info := l.store.Limit(key, c)
	if info.RateLimited {
		return time.Until(info.ResetTime), false
	}
	return 0, true
}

// limitRateForSend caps message sends per user.
func limitRateForSend(store ratelimit.Store) gin.HandlerFunc {
	return ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
			wait := int(math.Ceil(time.Until(info.ResetTime).Seconds()))
			if wait < 1 {
				wait = 1
			}
			c.Header("Retry-After", strconv.Itoa(wait))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many messages, slow down"})
		},
		KeyFunc: func(c *gin.Context) string {
			if id := auth.UserID(c); id != "" {
				return id
			}
			return c.ClientIP()
		},
	})
}
