package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	pubsub "kala-setu/internal/infrastructure/pubsub/port"
	translation "kala-setu/internal/infrastructure/translation/port"
	chat "kala-setu/internal/pkg/chat/application/domain"
	"kala-setu/internal/pkg/chat/application/event"
	repository "kala-setu/internal/pkg/chat/persistence/repository/port"
)

// SendMessageInput carries the data needed to send a new message.
type SendMessageInput struct {
	ConversationID string
	SenderID       string
	Content        string
}

// SendMessageUseCase translates, persists and announces an outgoing message.
// The stored row keeps the original Content and a Translated copy for the
// counterpart; when translation is impossible Translated equals Content.
type SendMessageUseCase struct {
	Repo       repository.ChatRepository
	Translator translation.Translator
	Feed       pubsub.Feed
	Log        *zap.Logger
	Now        func() time.Time
}

func NewSendMessageUseCase(repo repository.ChatRepository, tr translation.Translator, feed pubsub.Feed, log *zap.Logger) *SendMessageUseCase {
	if log == nil {
		log = zap.NewNop()
	}
	return &SendMessageUseCase{Repo: repo, Translator: tr, Feed: feed, Log: log, Now: time.Now}
}

// Execute sends/persists a new message for a conversation
func (uc *SendMessageUseCase) Execute(ctx context.Context, in SendMessageInput) (*chat.Message, error) {
	if in.ConversationID == "" || in.SenderID == "" {
		return nil, fmt.Errorf("conversation_id and sender_id are required")
	}

	conv, err := uc.Repo.GetConversation(ctx, in.ConversationID)
	if err != nil {
		return nil, storeErr(err, chat.ErrConversationNotFound)
	}

	c := chat.Chat{Conversation: *conv}
	draft, err := c.PostMessage(in.SenderID, in.Content, uc.Now())
	if err != nil {
		return nil, err
	}

	translated := uc.Translator.Translate(ctx, draft.Message.Content, draft.SourceLanguage.String(), draft.TargetLanguage.String())
	msg := draft.Message.WithTranslation(translated)

	saved, err := uc.Repo.AppendMessage(ctx, msg)
	if err != nil {
		return nil, storeErr(err, chat.ErrConversationNotFound)
	}

	uc.announce(ctx, *conv, *saved)
	return saved, nil
}

// announce pushes the insert to the conversation topic and a preview refresh to
// both inboxes. The row is committed already, so failures are only logged.
func (uc *SendMessageUseCase) announce(ctx context.Context, conv chat.Conversation, m chat.Message) {
	if uc.Feed == nil {
		return
	}
	publish := func(topic string, e event.Envelope) {
		payload, err := event.Encode(e)
		if err == nil {
			err = uc.Feed.Publish(ctx, topic, payload)
		}
		if err != nil {
			uc.Log.Warn("publish failed",
				zap.String("topic", topic),
				zap.String("message_id", m.ID),
				zap.Error(err),
			)
		}
	}

	publish(event.ConversationTopic(conv.ID), event.MessageInserted(m))
	update := event.ConversationUpdated(m)
	publish(event.InboxTopic(conv.Participant1.ID), update)
	publish(event.InboxTopic(conv.Participant2.ID), update)
}
