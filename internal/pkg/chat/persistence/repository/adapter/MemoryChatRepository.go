package adapter

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	chat "kala-setu/internal/pkg/chat/application/domain"
	repository "kala-setu/internal/pkg/chat/persistence/repository/port"
	profiles "kala-setu/internal/repository/port"
)

// MemoryChatRepository is an in-process ChatRepository. Participant profiles
// are resolved through the profile repository on every read, like the SQL join.
type MemoryChatRepository struct {
	profiles profiles.ProfileRepository

	mu       sync.RWMutex
	convs    map[string]*memConversation
	messages map[string][]chat.Message
	now      func() time.Time
}

type memConversation struct {
	id          string
	p1, p2      string
	lastMessage *string
	updatedAt   time.Time
	createdAt   time.Time
}

func NewMemoryChatRepository(profileRepo profiles.ProfileRepository) *MemoryChatRepository {
	return &MemoryChatRepository{
		profiles: profileRepo,
		convs:    make(map[string]*memConversation),
		messages: make(map[string][]chat.Message),
		now:      time.Now,
	}
}

var _ repository.ChatRepository = (*MemoryChatRepository)(nil)

func (r *MemoryChatRepository) FetchHistory(ctx context.Context, conversationID string) ([]chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	src := r.messages[conversationID]
	out := make([]chat.Message, len(src))
	copy(out, src)
	return out, nil
}

func (r *MemoryChatRepository) AppendMessage(ctx context.Context, m chat.Message) (*chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[m.ConversationID]
	if !ok {
		return nil, chat.ErrConversationNotFound
	}

	// Keep timestamps strictly increasing so history order is insertion order.
	now := r.now().UTC()
	if msgs := r.messages[m.ConversationID]; len(msgs) > 0 && !now.After(msgs[len(msgs)-1].CreatedAt) {
		now = msgs[len(msgs)-1].CreatedAt.Add(time.Microsecond)
	}
	m.ID = uuid.NewString()
	m.CreatedAt = now
	if m.Translated != nil {
		t := *m.Translated
		m.Translated = &t
	}
	r.messages[m.ConversationID] = append(r.messages[m.ConversationID], m)

	preview := m.Content
	c.lastMessage = &preview
	c.updatedAt = now
	return &m, nil
}

func (r *MemoryChatRepository) CreateOrFetchConversation(ctx context.Context, a, b string) (*chat.Conversation, error) {
	p1, p2 := chat.CanonicalPair(a, b)
	// Both rows must exist, as the foreign keys require in Postgres.
	for _, pid := range []string{p1, p2} {
		if _, err := r.profiles.GetProfile(ctx, pid); err != nil {
			return nil, err
		}
	}
	r.mu.Lock()
	var id string
	for _, c := range r.convs {
		if c.p1 == p1 && c.p2 == p2 {
			id = c.id
			break
		}
	}
	if id == "" {
		now := r.now().UTC()
		id = uuid.NewString()
		r.convs[id] = &memConversation{id: id, p1: p1, p2: p2, updatedAt: now, createdAt: now}
	}
	r.mu.Unlock()
	return r.GetConversation(ctx, id)
}

func (r *MemoryChatRepository) GetConversation(ctx context.Context, id string) (*chat.Conversation, error) {
	r.mu.RLock()
	c, ok := r.convs[id]
	var snapshot memConversation
	if ok {
		snapshot = *c
	}
	r.mu.RUnlock()
	if !ok {
		return nil, chat.ErrConversationNotFound
	}
	return r.hydrate(ctx, snapshot)
}

func (r *MemoryChatRepository) ListConversations(ctx context.Context, userID string) ([]chat.Conversation, error) {
	r.mu.RLock()
	var rows []memConversation
	for _, c := range r.convs {
		if c.p1 == userID || c.p2 == userID {
			rows = append(rows, *c)
		}
	}
	r.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool { return rows[i].updatedAt.After(rows[j].updatedAt) })
	out := make([]chat.Conversation, 0, len(rows))
	for _, row := range rows {
		c, err := r.hydrate(ctx, row)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

func (r *MemoryChatRepository) hydrate(ctx context.Context, c memConversation) (*chat.Conversation, error) {
	p1, err := r.profiles.GetProfile(ctx, c.p1)
	if err != nil {
		return nil, err
	}
	p2, err := r.profiles.GetProfile(ctx, c.p2)
	if err != nil {
		return nil, err
	}
	return &chat.Conversation{
		ID:           c.id,
		Participant1: *p1,
		Participant2: *p2,
		LastMessage:  c.lastMessage,
		UpdatedAt:    c.updatedAt,
		CreatedAt:    c.createdAt,
	}, nil
}
