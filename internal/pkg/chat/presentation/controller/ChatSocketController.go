package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"kala-setu/internal/auth"
	pubsub "kala-setu/internal/infrastructure/pubsub/port"
	"kala-setu/internal/infrastructure/realtime"
	chat "kala-setu/internal/pkg/chat/application/domain"
	"kala-setu/internal/pkg/chat/application/event"
	"kala-setu/internal/pkg/chat/application/thread"
	"kala-setu/internal/pkg/chat/application/usecase"
)

// ChatSocketController handles the websocket endpoint for realtime chat traffic.
// Each socket owns one thread.Controller: the conversation the user is looking at.
type ChatSocketController struct {
	router          *realtime.Router
	languages       *usecase.LanguagePreferenceUseCase
	deps            thread.Deps
	limiter         SendLimiter
	log             *zap.Logger
	inflightTimeout time.Duration
}

// SendLimiter meters outgoing messages per user. The HTTP send routes share
// the same budget, so a user cannot escape it by switching transports.
type SendLimiter interface {
	// Allow consumes one send for key and reports how long to wait when the
	// budget is exhausted.
	Allow(c *gin.Context, key string) (retryAfter time.Duration, ok bool)
}

// NewChatSocketController builds the socket endpoint. limiter may be nil.
func NewChatSocketController(router *realtime.Router, languages *usecase.LanguagePreferenceUseCase, deps thread.Deps, limiter SendLimiter, log *zap.Logger) *ChatSocketController {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChatSocketController{
		router:          router,
		languages:       languages,
		deps:            deps,
		limiter:         limiter,
		log:             log,
		inflightTimeout: 8 * time.Second,
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Tokens travel in the query string, so the origin check adds nothing.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type inboundFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	Content        string `json:"content,omitempty"`
	Language       string `json:"language,omitempty"`
}

type sessionFrame struct {
	Type     string        `json:"type"`
	UserID   string        `json:"user_id"`
	Language chat.Language `json:"language,omitempty"`
}

type languageRequiredFrame struct {
	Type    string                `json:"type"`
	Options []chat.LanguageOption `json:"options"`
}

type joinedFrame struct {
	Type           string        `json:"type"`
	ConversationID string        `json:"conversation_id"`
	Counterpart    *chat.Profile `json:"counterpart,omitempty"`
	Messages       []messageView `json:"messages"`
}

type ackFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type messageFrame struct {
	Type           string      `json:"type"`
	ConversationID string      `json:"conversation_id"`
	Message        messageView `json:"message"`
}

type conversationFrame struct {
	Type         string                    `json:"type"`
	Conversation *event.ConversationUpdate `json:"conversation"`
}

// errorFrame carries the unsent text back when a message could not be
// delivered, so the client can restore it into the input.
type errorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Error   string `json:"error"`
	Content string `json:"content,omitempty"`
}

// session is the per-socket state shared by the read loop and the sinks.
type session struct {
	ctl    *ChatSocketController
	gc     *gin.Context
	userID string
	conn   *realtime.Connection
	thread *thread.Controller
	log    *zap.Logger
}

// Handle upgrades HTTP connections to websocket and processes frames until the client disconnects.
func (ctl *ChatSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.UserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user"})
			return
		}

		// The language is read once per session; set_language updates it in place.
		lctx, lcancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		state, err := ctl.languages.Get(lctx, usecase.GetLanguageInput{
			UserID:   userID,
			FullName: c.GetString(auth.ContextUserName),
		})
		lcancel()
		if err != nil {
			respondError(c, err)
			return
		}

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response.
			ctl.log.Debug("websocket upgrade failed", zap.String("user_id", userID), zap.Error(err))
			return
		}

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		s := &session{
			ctl:    ctl,
			gc:     c,
			userID: userID,
			conn:   realtime.NewConnection(userID, ws),
			log:    ctl.log.With(zap.String("user_id", userID)),
		}
		s.thread = thread.New(ctx, userID, state.Language, ctl.deps, s.onUpdate)

		ctl.router.Attach(s.conn)
		defer func() {
			s.thread.Shutdown()
			ctl.router.Detach(s.conn)
			s.conn.Close(websocket.CloseNormalClosure, "session closed")
		}()

		inbox, err := ctl.deps.Feed.Subscribe(ctx, event.InboxTopic(userID))
		if err != nil {
			s.log.Error("inbox subscribe failed", zap.Error(err))
			s.replyError("internal_error", "realtime feed unavailable", "")
			return
		}
		defer inbox.Close()
		go s.forwardInbox(inbox)

		s.send(sessionFrame{Type: "connected", UserID: userID, Language: state.Language})
		if state.NeedsSelection {
			s.send(languageRequiredFrame{Type: "language_required", Options: state.Options})
		}

		err = s.conn.ReadLoop(func(data []byte) {
			var frame inboundFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				s.replyError("bad_request", "invalid payload", "")
				return
			}
			s.dispatch(ctx, frame)
		})
		if err != nil {
			s.log.Debug("websocket read ended", zap.Error(err))
		}
	}
}

func (s *session) dispatch(ctx context.Context, frame inboundFrame) {
	ctx, cancel := context.WithTimeout(ctx, s.ctl.inflightTimeout)
	defer cancel()

	switch frame.Type {
	case "join":
		s.handleJoin(ctx, frame)
	case "leave":
		s.handleLeave(frame)
	case "message":
		s.handleMessage(ctx, frame)
	case "set_language":
		s.handleSetLanguage(ctx, frame)
	default:
		s.replyError("unsupported_type", "unknown frame type", "")
	}
}

func (s *session) handleJoin(ctx context.Context, frame inboundFrame) {
	convID, err := parseConversationID(frame.ConversationID)
	if err != nil {
		s.replyError("bad_request", err.Error(), "")
		return
	}
	if err := s.thread.Open(ctx, convID); err != nil {
		if errorCode(err) == "language_required" {
			s.send(languageRequiredFrame{Type: "language_required", Options: chat.SupportedLanguages()})
			return
		}
		s.replyUseCaseError(err, "")
	}
}

func (s *session) handleLeave(frame inboundFrame) {
	current := s.thread.ConversationID()
	if frame.ConversationID != "" && frame.ConversationID != current {
		s.replyError("not_joined", "conversation is not open", "")
		return
	}
	if current == "" {
		s.send(ackFrame{Type: "left"})
		return
	}
	// The Closed update emits the "left" frame.
	s.thread.Close()
}

func (s *session) handleMessage(ctx context.Context, frame inboundFrame) {
	current := s.thread.ConversationID()
	if frame.ConversationID != "" && frame.ConversationID != current {
		s.replyError("not_joined", "conversation is not open", frame.Content)
		return
	}
	if s.ctl.limiter != nil {
		if wait, ok := s.ctl.limiter.Allow(s.gc, s.userID); !ok {
			secs := int(math.Ceil(wait.Seconds()))
			if secs < 1 {
				secs = 1
			}
			s.replyError("rate_limited", fmt.Sprintf("too many messages, retry in %ds", secs), frame.Content)
			return
		}
	}
	msg, err := s.thread.Send(ctx, frame.Content)
	if err != nil {
		s.replyUseCaseError(err, frame.Content)
		return
	}
	s.send(messageFrame{Type: "sent", ConversationID: msg.ConversationID, Message: viewOf(*msg, s.userID)})
}

func (s *session) handleSetLanguage(ctx context.Context, frame inboundFrame) {
	lang, err := s.ctl.languages.Set(ctx, usecase.SetLanguageInput{UserID: s.userID, Language: frame.Language})
	if err != nil {
		s.replyUseCaseError(err, "")
		return
	}
	s.send(sessionFrame{Type: "connected", UserID: s.userID, Language: lang})
	if err := s.thread.SetLanguage(ctx, lang); err != nil {
		s.replyUseCaseError(err, "")
	}
}

// onUpdate is the thread sink. It runs under the thread lock, and Send never blocks.
func (s *session) onUpdate(u thread.Update) {
	switch u.Kind {
	case thread.KindOpened:
		f := joinedFrame{
			Type:           "joined",
			ConversationID: u.ConversationID,
			Messages:       viewsOf(u.Messages, s.userID),
		}
		if u.Conversation != nil {
			if cp, ok := u.Conversation.Counterpart(s.userID); ok {
				f.Counterpart = &cp
			}
		}
		s.send(f)
	case thread.KindMessage, thread.KindTranslation:
		if u.Message == nil {
			return
		}
		s.send(messageFrame{Type: string(u.Kind), ConversationID: u.ConversationID, Message: viewOf(*u.Message, s.userID)})
	case thread.KindClosed:
		s.send(ackFrame{Type: "left", ConversationID: u.ConversationID})
	}
}

// forwardInbox relays conversation list updates until the subscription closes.
func (s *session) forwardInbox(sub pubsub.Subscription) {
	for payload := range sub.Events() {
		e, err := event.Decode(payload)
		if err != nil {
			s.log.Warn("dropping malformed inbox push", zap.Error(err))
			continue
		}
		if e.Type != event.TypeConversationUpdated {
			continue
		}
		s.send(conversationFrame{Type: e.Type, Conversation: e.Conversation})
	}
}

func (s *session) replyUseCaseError(err error, unsent string) {
	code := errorCode(err)
	msg := err.Error()
	if code == "internal_error" {
		s.log.Error("chat socket request failed", zap.Error(err))
		msg = "unexpected persistence error"
	}
	s.replyError(code, msg, unsent)
}

func (s *session) replyError(code, message, unsent string) {
	s.send(errorFrame{Type: "error", Code: code, Error: message, Content: unsent})
}

func (s *session) send(frame any) {
	payload, err := json.Marshal(frame)
	if err != nil {
		s.log.Error("encode frame", zap.Error(err))
		return
	}
	if err := s.conn.Send(payload); err != nil {
		s.log.Debug("frame dropped", zap.Error(err))
	}
}
