package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	pubsub "kala-setu/internal/infrastructure/pubsub/port"
	chat "kala-setu/internal/pkg/chat/application/domain"
	chatrepo "kala-setu/internal/pkg/chat/persistence/repository/adapter"
	profilerepo "kala-setu/internal/repository/adapter"
)

const (
	buyerID   = "11111111-1111-1111-1111-111111111111"
	artisanID = "22222222-2222-2222-2222-222222222222"
	strangeID = "33333333-3333-3333-3333-333333333333"
)

var errBoom = errors.New("boom")

// prefixTranslator tags text with the target language, or fails when fail is set.
type prefixTranslator struct {
	mu    sync.Mutex
	fail  bool
	calls []string
}

func (p *prefixTranslator) Translate(_ context.Context, text, src, tgt string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, src+"->"+tgt)
	if p.fail || src == tgt || chat.IsBlank(text) {
		return text
	}
	return "[" + tgt + "]" + text
}

// failingRepo wraps a working repository and fails selected calls.
type failingRepo struct {
	*chatrepo.MemoryChatRepository
	appendErr error
	fetchErr  error
	listErr   error
}

func (f *failingRepo) AppendMessage(ctx context.Context, m chat.Message) (*chat.Message, error) {
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	return f.MemoryChatRepository.AppendMessage(ctx, m)
}

func (f *failingRepo) FetchHistory(ctx context.Context, id string) ([]chat.Message, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.MemoryChatRepository.FetchHistory(ctx, id)
}

func (f *failingRepo) ListConversations(ctx context.Context, userID string) ([]chat.Conversation, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.MemoryChatRepository.ListConversations(ctx, userID)
}

type fixture struct {
	profiles *profilerepo.MemoryProfileRepository
	repo     *failingRepo
	conv     *chat.Conversation
}

// newFixture seeds an English-speaking buyer, a Hindi-speaking artisan, a third
// user and the buyer/artisan conversation.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	profiles := profilerepo.NewMemoryProfileRepository(
		chat.Profile{ID: buyerID, FullName: "Asha", Language: chat.LanguageEnglish},
		chat.Profile{ID: artisanID, FullName: "Ravi", Language: chat.LanguageHindi},
		chat.Profile{ID: strangeID, FullName: "Meena"},
	)
	repo := &failingRepo{MemoryChatRepository: chatrepo.NewMemoryChatRepository(profiles)}
	conv, err := repo.CreateOrFetchConversation(context.Background(), buyerID, artisanID)
	if err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	return &fixture{profiles: profiles, repo: repo, conv: conv}
}

func next(t *testing.T, s pubsub.Subscription) []byte {
	t.Helper()
	select {
	case b := <-s.Events():
		return b
	case <-time.After(time.Second):
		t.Fatalf("no event on %s", s.Topic())
	}
	return nil
}
