package usecase

import (
	"context"
	"fmt"

	chat "kala-setu/internal/pkg/chat/application/domain"
	repository "kala-setu/internal/pkg/chat/persistence/repository/port"
)

// FetchHistoryInput identifies the conversation and the viewer asking for it.
type FetchHistoryInput struct {
	ConversationID string
	UserID         string
}

// FetchHistoryUseCase returns the full history, oldest first, to a participant.
type FetchHistoryUseCase struct {
	Repo repository.ChatRepository
}

func NewFetchHistoryUseCase(repo repository.ChatRepository) *FetchHistoryUseCase {
	return &FetchHistoryUseCase{Repo: repo}
}

func (uc *FetchHistoryUseCase) Execute(ctx context.Context, in FetchHistoryInput) ([]chat.Message, error) {
	if in.ConversationID == "" || in.UserID == "" {
		return nil, fmt.Errorf("conversation_id and user_id are required")
	}

	conv, err := uc.Repo.GetConversation(ctx, in.ConversationID)
	if err != nil {
		return nil, storeErr(err, chat.ErrConversationNotFound)
	}
	if !conv.HasParticipant(in.UserID) {
		return nil, chat.ErrNotParticipant
	}

	msgs, err := uc.Repo.FetchHistory(ctx, in.ConversationID)
	if err != nil {
		return nil, storeErr(err)
	}
	return msgs, nil
}
