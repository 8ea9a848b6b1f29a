package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"kala-setu/internal/auth"
	"kala-setu/internal/pkg/chat/application/usecase"
)

// GetMessageController returns a conversation's full history, oldest first,
// each message rendered for the viewer.
type GetMessageController struct {
	UC *usecase.FetchHistoryUseCase
}

func NewGetMessageController(uc *usecase.FetchHistoryUseCase) *GetMessageController {
	return &GetMessageController{UC: uc}
}

func (h *GetMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		conversationID, err := conversationParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		userID := auth.UserID(c)
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		msgs, err := h.UC.Execute(ctx, usecase.FetchHistoryInput{ConversationID: conversationID, UserID: userID})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"conversation_id": conversationID,
			"messages":        viewsOf(msgs, userID),
			"count":           len(msgs),
		})
	}
}
