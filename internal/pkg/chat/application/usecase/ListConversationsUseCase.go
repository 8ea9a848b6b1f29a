package usecase

import (
	"context"
	"fmt"
	"time"

	chat "kala-setu/internal/pkg/chat/application/domain"
	repository "kala-setu/internal/pkg/chat/persistence/repository/port"
)

// Presence reports whether a user currently holds a live socket.
type Presence interface {
	IsOnline(userID string) bool
}

// ListConversationsInput wraps the viewer whose inbox is listed.
type ListConversationsInput struct {
	UserID string
}

// ConversationSummary is one row of the conversation list, seen from the viewer.
type ConversationSummary struct {
	ID          string       `json:"id"`
	Counterpart chat.Profile `json:"counterpart"`
	Online      bool         `json:"online"`
	LastMessage *string      `json:"last_message,omitempty"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// ListConversationsUseCase returns the viewer's conversations, most recent first.
type ListConversationsUseCase struct {
	Repo     repository.ChatRepository
	Presence Presence
}

func NewListConversationsUseCase(repo repository.ChatRepository, presence Presence) *ListConversationsUseCase {
	return &ListConversationsUseCase{Repo: repo, Presence: presence}
}

func (uc *ListConversationsUseCase) Execute(ctx context.Context, in ListConversationsInput) ([]ConversationSummary, error) {
	if in.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	convs, err := uc.Repo.ListConversations(ctx, in.UserID)
	if err != nil {
		return nil, storeErr(err)
	}

	summaries := make([]ConversationSummary, 0, len(convs))
	for _, c := range convs {
		cp, ok := c.Counterpart(in.UserID)
		if !ok {
			continue
		}
		s := ConversationSummary{
			ID:          c.ID,
			Counterpart: cp,
			LastMessage: c.LastMessage,
			UpdatedAt:   c.UpdatedAt,
		}
		if uc.Presence != nil {
			s.Online = uc.Presence.IsOnline(cp.ID)
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}
