package adapter

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"kala-setu/internal/infrastructure/database"
	chat "kala-setu/internal/pkg/chat/application/domain"
	profiles "kala-setu/internal/repository/adapter"
)

// newTestPool connects to TEST_DB_URL; tests are skipped without it.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_URL")
	if dsn == "" {
		t.Skip("TEST_DB_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := database.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := database.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func TestPgChatRepositoryRoundTrip(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	people := profiles.NewPgProfileRepository(pool)
	repo := NewPgChatRepository(pool)

	buyer, artisan := uuid.NewString(), uuid.NewString()
	if _, err := people.EnsureProfile(ctx, buyer, "Asha"); err != nil {
		t.Fatalf("EnsureProfile: %v", err)
	}
	if _, err := people.EnsureProfile(ctx, artisan, "Ravi"); err != nil {
		t.Fatalf("EnsureProfile: %v", err)
	}
	if err := people.SetLanguage(ctx, artisan, chat.LanguageHindi); err != nil {
		t.Fatalf("SetLanguage: %v", err)
	}

	c1, err := repo.CreateOrFetchConversation(ctx, buyer, artisan)
	if err != nil {
		t.Fatalf("CreateOrFetchConversation: %v", err)
	}
	c2, err := repo.CreateOrFetchConversation(ctx, artisan, buyer)
	if err != nil {
		t.Fatalf("CreateOrFetchConversation reversed: %v", err)
	}
	if c1.ID != c2.ID {
		t.Fatalf("expected one conversation per pair, got %s and %s", c1.ID, c2.ID)
	}
	cp, _ := c1.Counterpart(buyer)
	if cp.ID != artisan || cp.Language != chat.LanguageHindi {
		t.Fatalf("counterpart = %+v", cp)
	}

	translated := "नमस्ते"
	for _, text := range []string{"hello", "second"} {
		m := chat.Message{ConversationID: c1.ID, SenderID: buyer, Content: text}
		if text == "hello" {
			m.Translated = &translated
		}
		saved, err := repo.AppendMessage(ctx, m)
		if err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
		if saved.ID == "" || saved.CreatedAt.IsZero() {
			t.Fatalf("server fields not assigned: %+v", saved)
		}
	}

	history, err := repo.FetchHistory(ctx, c1.ID)
	if err != nil {
		t.Fatalf("FetchHistory: %v", err)
	}
	if len(history) != 2 || history[0].Content != "hello" || history[1].Content != "second" {
		t.Fatalf("history = %+v", history)
	}
	if history[0].Translated == nil || *history[0].Translated != translated {
		t.Fatalf("translated content not stored: %+v", history[0])
	}

	got, err := repo.GetConversation(ctx, c1.ID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if got.LastMessage == nil || *got.LastMessage != "second" {
		t.Fatalf("preview = %v, want second", got.LastMessage)
	}

	list, err := repo.ListConversations(ctx, artisan)
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(list) != 1 || list[0].ID != c1.ID {
		t.Fatalf("list = %+v", list)
	}
}

func TestPgChatRepositoryNotFound(t *testing.T) {
	pool := newTestPool(t)
	repo := NewPgChatRepository(pool)

	_, err := repo.GetConversation(context.Background(), uuid.NewString())
	if !errors.Is(err, chat.ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}
