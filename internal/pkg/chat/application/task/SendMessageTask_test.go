package task

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"

	qport "kala-setu/internal/infrastructure/queue/port"
	chat "kala-setu/internal/pkg/chat/application/domain"
	"kala-setu/internal/pkg/chat/application/usecase"
	chatrepo "kala-setu/internal/pkg/chat/persistence/repository/adapter"
	profilerepo "kala-setu/internal/repository/adapter"
)

type echoTranslator struct{}

func (echoTranslator) Translate(_ context.Context, text, _, _ string) string { return text }

type recordingServer struct {
	handlers map[string]qport.Handler
}

func (s *recordingServer) Register(taskType string, h qport.Handler) { s.handlers[taskType] = h }
func (s *recordingServer) Run(context.Context) error { return nil }
func (s *recordingServer) Stop(context.Context) error { return nil }

func TestSendMessageTask(t *testing.T) {
	ctx := context.Background()
	profiles := profilerepo.NewMemoryProfileRepository(
		chat.Profile{ID: "a", Language: chat.LanguageEnglish},
		chat.Profile{ID: "b", Language: chat.LanguageHindi},
	)
	repo := chatrepo.NewMemoryChatRepository(profiles)
	conv, _ := repo.CreateOrFetchConversation(ctx, "a", "b")
	uc := usecase.NewSendMessageUseCase(repo, echoTranslator{}, nil, nil)

	srv := &recordingServer{handlers: map[string]qport.Handler{}}
	RegisterSendMessageTask(srv, uc)
	h := srv.handlers[SendMessageTaskType]
	if h == nil {
		t.Fatal("handler not registered")
	}

	task, err := NewSendMessageTask(SendMessageTaskPayload{ConversationID: conv.ID, SenderID: "a", Content: "hello"})
	if err != nil {
		t.Fatalf("NewSendMessageTask: %v", err)
	}
	if err := h(ctx, task); err != nil {
		t.Fatalf("handler: %v", err)
	}
	history, _ := repo.FetchHistory(ctx, conv.ID)
	if len(history) != 1 || history[0].Content != "hello" {
		t.Fatalf("history = %+v", history)
	}

	bad := []qport.Task{
		{Type: SendMessageTaskType, Payload: []byte("{")},
	}
	outsider, _ := NewSendMessageTask(SendMessageTaskPayload{ConversationID: conv.ID, SenderID: "z", Content: "hi"})
	blank, _ := NewSendMessageTask(SendMessageTaskPayload{ConversationID: conv.ID, SenderID: "a", Content: " "})
	bad = append(bad, outsider, blank)
	for _, b := range bad {
		if err := h(ctx, b); !errors.Is(err, asynq.SkipRetry) {
			t.Fatalf("payload %s: err = %v, want SkipRetry", b.Payload, err)
		}
	}
}
