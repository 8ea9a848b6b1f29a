package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	cache "kala-setu/internal/infrastructure/cache/port"
	chat "kala-setu/internal/pkg/chat/application/domain"
	profiles "kala-setu/internal/repository/port"
)

// LanguageState is what a client needs to decide whether to show the
// one-time language prompt.
type LanguageState struct {
	Language       chat.Language         `json:"language,omitempty"`
	NeedsSelection bool                  `json:"needs_selection"`
	Options        []chat.LanguageOption `json:"options,omitempty"`
}

// GetLanguageInput identifies the viewer. FullName seeds the profile on first contact.
type GetLanguageInput struct {
	UserID   string
	FullName string
}

type SetLanguageInput struct {
	UserID   string
	Language string
}

// LanguagePreferenceUseCase reads and stores the viewer's preferred language.
// Set languages are cached; unset ones always go to the store so a selection
// made on another node is seen immediately.
type LanguagePreferenceUseCase struct {
	Profiles profiles.ProfileRepository
	Cache    cache.Cache
	TTL      time.Duration
	Log      *zap.Logger
}

func NewLanguagePreferenceUseCase(repo profiles.ProfileRepository, c cache.Cache, ttl time.Duration, log *zap.Logger) *LanguagePreferenceUseCase {
	if log == nil {
		log = zap.NewNop()
	}
	return &LanguagePreferenceUseCase{Profiles: repo, Cache: c, TTL: ttl, Log: log}
}

func languageKey(userID string) string { return "lang:" + userID }

// Get returns the viewer's language, with the selectable options when none is set.
func (uc *LanguagePreferenceUseCase) Get(ctx context.Context, in GetLanguageInput) (*LanguageState, error) {
	if in.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	if uc.Cache != nil {
		hit, err := uc.Cache.Get(ctx, languageKey(in.UserID))
		if err == nil {
			if lang := chat.Language(hit); lang.Supported() {
				return &LanguageState{Language: lang}, nil
			}
		} else if !errors.Is(err, cache.ErrMiss) {
			uc.Log.Warn("language cache get failed", zap.String("user_id", in.UserID), zap.Error(err))
		}
	}

	p, err := uc.Profiles.EnsureProfile(ctx, in.UserID, in.FullName)
	if err != nil {
		return nil, storeErr(err)
	}
	if p.NeedsLanguage() {
		return &LanguageState{NeedsSelection: true, Options: chat.SupportedLanguages()}, nil
	}
	uc.remember(ctx, in.UserID, p.Language)
	return &LanguageState{Language: p.Language}, nil
}

// Set validates and persists the selection.
func (uc *LanguagePreferenceUseCase) Set(ctx context.Context, in SetLanguageInput) (chat.Language, error) {
	if in.UserID == "" {
		return chat.LanguageUnset, fmt.Errorf("user_id is required")
	}
	lang, err := chat.ParseLanguage(in.Language)
	if err != nil {
		return chat.LanguageUnset, err
	}

	// Evict first: a failed write must not leave the old language cached.
	uc.forget(ctx, in.UserID)
	if err := uc.Profiles.SetLanguage(ctx, in.UserID, lang); err != nil {
		return chat.LanguageUnset, storeErr(err, chat.ErrProfileNotFound)
	}
	uc.remember(ctx, in.UserID, lang)
	return lang, nil
}

func (uc *LanguagePreferenceUseCase) remember(ctx context.Context, userID string, lang chat.Language) {
	if uc.Cache == nil {
		return
	}
	if err := uc.Cache.Set(ctx, languageKey(userID), lang.String(), uc.TTL); err != nil {
		uc.Log.Warn("language cache set failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (uc *LanguagePreferenceUseCase) forget(ctx context.Context, userID string) {
	if uc.Cache == nil {
		return
	}
	if _, err := uc.Cache.Del(ctx, languageKey(userID)); err != nil {
		uc.Log.Warn("language cache evict failed", zap.String("user_id", userID), zap.Error(err))
	}
}
