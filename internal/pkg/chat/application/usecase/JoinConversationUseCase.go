package usecase

import (
	"context"
	"fmt"

	chat "kala-setu/internal/pkg/chat/application/domain"
	repository "kala-setu/internal/pkg/chat/persistence/repository/port"
)

// JoinConversationInput validates a request to attach a user session to a conversation.
// Language is the session's language, read once when the socket connected.
type JoinConversationInput struct {
	ConversationID string
	UserID         string
	Language       chat.Language
}

// JoinConversationUseCase ensures the user belongs to the conversation and has
// picked a language before the thread is opened.
type JoinConversationUseCase struct {
	Repo repository.ChatRepository
}

func NewJoinConversationUseCase(repo repository.ChatRepository) *JoinConversationUseCase {
	return &JoinConversationUseCase{Repo: repo}
}

func (uc *JoinConversationUseCase) Execute(ctx context.Context, in JoinConversationInput) (*chat.Conversation, error) {
	if in.ConversationID == "" || in.UserID == "" {
		return nil, fmt.Errorf("conversation_id and user_id are required")
	}
	if !in.Language.IsSet() {
		return nil, chat.ErrLanguageRequired
	}

	conv, err := uc.Repo.GetConversation(ctx, in.ConversationID)
	if err != nil {
		return nil, storeErr(err, chat.ErrConversationNotFound)
	}
	if !conv.HasParticipant(in.UserID) {
		return nil, chat.ErrNotParticipant
	}
	return conv, nil
}
