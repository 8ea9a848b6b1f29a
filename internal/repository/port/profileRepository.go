package repository

import (
	"context"

	chat "kala-setu/internal/pkg/chat/application/domain"
)

// ProfileRepository is the contract for the profile fields the messenger owns.
// Missing profiles yield chat.ErrProfileNotFound.
type ProfileRepository interface {
	// EnsureProfile creates the profile on first contact and returns the stored row.
	// An existing row keeps its name unless it was empty.
	EnsureProfile(ctx context.Context, id, fullName string) (*chat.Profile, error)
	GetProfile(ctx context.Context, id string) (*chat.Profile, error)
	SetLanguage(ctx context.Context, id string, lang chat.Language) error
	SetAvatarURL(ctx context.Context, id, url string) error
}
