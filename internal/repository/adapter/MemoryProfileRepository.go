package adapter

import (
	"context"
	"sync"

	chat "kala-setu/internal/pkg/chat/application/domain"
	repository "kala-setu/internal/repository/port"
)

// MemoryProfileRepository is an in-process ProfileRepository.
type MemoryProfileRepository struct {
	mu       sync.RWMutex
	profiles map[string]chat.Profile
}

func NewMemoryProfileRepository(seed ...chat.Profile) *MemoryProfileRepository {
	r := &MemoryProfileRepository{profiles: make(map[string]chat.Profile)}
	for _, p := range seed {
		r.profiles[p.ID] = p
	}
	return r
}

var _ repository.ProfileRepository = (*MemoryProfileRepository)(nil)

func (r *MemoryProfileRepository) EnsureProfile(_ context.Context, id, fullName string) (*chat.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		p = chat.Profile{ID: id}
	}
	if p.FullName == "" {
		p.FullName = fullName
	}
	r.profiles[id] = p
	return &p, nil
}

func (r *MemoryProfileRepository) GetProfile(_ context.Context, id string) (*chat.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, chat.ErrProfileNotFound
	}
	return &p, nil
}

func (r *MemoryProfileRepository) SetLanguage(_ context.Context, id string, lang chat.Language) error {
	return r.update(id, func(p *chat.Profile) { p.Language = lang })
}

func (r *MemoryProfileRepository) SetAvatarURL(_ context.Context, id, url string) error {
	return r.update(id, func(p *chat.Profile) { p.AvatarURL = &url })
}

func (r *MemoryProfileRepository) update(id string, fn func(*chat.Profile)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return chat.ErrProfileNotFound
	}
	fn(&p)
	r.profiles[id] = p
	return nil
}
