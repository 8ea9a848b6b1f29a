package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	qport "kala-setu/internal/infrastructure/queue/port"
	"kala-setu/internal/pkg/chat/application/usecase"
)

// SendMessageTaskType is the queue task name for sending a message within the chat domain.
const SendMessageTaskType = "chat:send_message"

// SendMessageQueue is the logical queue the task is enqueued on.
const SendMessageQueue = "chat"

// SendMessageTaskPayload is the JSON payload transported via the queue.
// Kept decoupled from domain types to avoid tight coupling with JSON tags.
type SendMessageTaskPayload struct {
	ConversationID string `json:"conversationId"`
	SenderID       string `json:"senderId"`
	Content        string `json:"content"`
}

// NewSendMessageTask encodes the payload into a queue task.
func NewSendMessageTask(p SendMessageTaskPayload) (qport.Task, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return qport.Task{}, fmt.Errorf("encode %s payload: %w", SendMessageTaskType, err)
	}
	return qport.Task{Type: SendMessageTaskType, Payload: b}, nil
}

// RegisterSendMessageTask binds the task handler to the provided server.
// The handler runs the same send use case as the synchronous endpoint.
func RegisterSendMessageTask(srv qport.Server, uc *usecase.SendMessageUseCase) {
	srv.Register(SendMessageTaskType, HandleSendMessage(uc))
}

// HandleSendMessage decodes the payload and sends the message. Errors that a
// retry cannot fix skip the retry queue.
func HandleSendMessage(uc *usecase.SendMessageUseCase) qport.Handler {
	return func(ctx context.Context, t qport.Task) error {
		var p SendMessageTaskPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			// malformed payload: do not retry indefinitely
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		// give DB a reasonable time budget per task execution
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		_, err := uc.Execute(ctx, usecase.SendMessageInput{
			ConversationID: p.ConversationID,
			SenderID:       p.SenderID,
			Content:        p.Content,
		})
		if err != nil && !errors.Is(err, usecase.ErrPersistence) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
}
