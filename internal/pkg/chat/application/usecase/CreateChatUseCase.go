package usecase

import (
	"context"
	"fmt"

	chat "kala-setu/internal/pkg/chat/application/domain"
	repository "kala-setu/internal/pkg/chat/persistence/repository/port"
	profiles "kala-setu/internal/repository/port"
)

// CreateChatInput names the two sides of the conversation to open.
type CreateChatInput struct {
	UserID        string
	CounterpartID string
	// FullName seeds the caller's profile when this is their first contact.
	FullName string
}

// CreateChatUseCase returns the conversation between a buyer and an artisan,
// creating it on first contact. Calling it again yields the same conversation.
type CreateChatUseCase struct {
	Repo     repository.ChatRepository
	Profiles profiles.ProfileRepository
}

func NewCreateChatUseCase(repo repository.ChatRepository, profileRepo profiles.ProfileRepository) *CreateChatUseCase {
	return &CreateChatUseCase{Repo: repo, Profiles: profileRepo}
}

func (uc *CreateChatUseCase) Execute(ctx context.Context, in CreateChatInput) (*chat.Conversation, error) {
	if in.UserID == "" || in.CounterpartID == "" {
		return nil, fmt.Errorf("user_id and counterpart_id are required")
	}
	if in.UserID == in.CounterpartID {
		return nil, chat.ErrSelfConversation
	}

	if _, err := uc.Profiles.GetProfile(ctx, in.CounterpartID); err != nil {
		return nil, storeErr(err, chat.ErrProfileNotFound)
	}
	// A buyer may contact an artisan before any other request created their row.
	if _, err := uc.Profiles.EnsureProfile(ctx, in.UserID, in.FullName); err != nil {
		return nil, storeErr(err)
	}

	conv, err := uc.Repo.CreateOrFetchConversation(ctx, in.UserID, in.CounterpartID)
	if err != nil {
		return nil, storeErr(err)
	}
	return conv, nil
}
