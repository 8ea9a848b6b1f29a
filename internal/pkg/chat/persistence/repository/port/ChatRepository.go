package repository

import (
	"context"

	chat "kala-setu/internal/pkg/chat/application/domain"
)

// ChatRepository defines persistence operations for conversations and messages.
// Lookups of a missing conversation return chat.ErrConversationNotFound.
type ChatRepository interface {
	// FetchHistory returns every message of the conversation, oldest first.
	FetchHistory(ctx context.Context, conversationID string) ([]chat.Message, error)

	// AppendMessage inserts m and returns the stored row with its assigned ID
	// and timestamp. The conversation preview is refreshed in the same transaction.
	AppendMessage(ctx context.Context, m chat.Message) (*chat.Message, error)

	// CreateOrFetchConversation returns the conversation between a and b,
	// creating it when missing. Argument order does not matter.
	CreateOrFetchConversation(ctx context.Context, a, b string) (*chat.Conversation, error)

	GetConversation(ctx context.Context, id string) (*chat.Conversation, error)

	// ListConversations returns userID's conversations, most recently updated first.
	ListConversations(ctx context.Context, userID string) ([]chat.Conversation, error)
}
