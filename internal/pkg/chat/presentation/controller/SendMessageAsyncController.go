package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"kala-setu/internal/auth"
	queueport "kala-setu/internal/infrastructure/queue/port"
	chat "kala-setu/internal/pkg/chat/application/domain"
	"kala-setu/internal/pkg/chat/application/task"
)

// SendMessageAsyncController enqueues the send for the worker and answers
// immediately; the stored row reaches clients through the realtime feed.
type SendMessageAsyncController struct {
	Q queueport.Client
}

func NewSendMessageAsyncController(client queueport.Client) *SendMessageAsyncController {
	return &SendMessageAsyncController{Q: client}
}

func (h *SendMessageAsyncController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		conversationID, err := conversationParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var req sendMessageRequest
		if err := bindJSON(c, &req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if chat.IsBlank(req.Content) {
			c.JSON(http.StatusBadRequest, gin.H{"error": chat.ErrEmptyMessage.Error()})
			return
		}

		userID := auth.UserID(c)
		t, err := task.NewSendMessageTask(task.SendMessageTaskPayload{
			ConversationID: conversationID,
			SenderID:       userID,
			Content:        req.Content,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode task payload"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		opts := queueport.EnqueueOption{Queue: task.SendMessageQueue, MaxRetry: 20, Timeout: 30 * time.Second}
		id, err := h.Q.Enqueue(ctx, t, opts)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to enqueue message"})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"status":          "queued",
			"task_id":         id,
			"conversation_id": conversationID,
			"sender_id":       userID,
		})
	}
}
