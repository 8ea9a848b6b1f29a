package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"kala-setu/internal/auth"
	"kala-setu/internal/pkg/chat/application/usecase"
)

// CreateChatController opens (or reopens) the conversation with a counterpart.
type CreateChatController struct {
	UC *usecase.CreateChatUseCase
}

func NewCreateChatController(uc *usecase.CreateChatUseCase) *CreateChatController {
	return &CreateChatController{UC: uc}
}

type createChatRequest struct {
	CounterpartID string `json:"counterpart_id" binding:"required,uuid" conform:"trim,lower"`
}

func (h *CreateChatController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createChatRequest
		if err := bindJSON(c, &req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		userID := auth.UserID(c)
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		conv, err := h.UC.Execute(ctx, usecase.CreateChatInput{
			UserID:        userID,
			CounterpartID: req.CounterpartID,
			FullName:      c.GetString(auth.ContextUserName),
		})
		if err != nil {
			respondError(c, err)
			return
		}

		counterpart, _ := conv.Counterpart(userID)
		c.JSON(http.StatusCreated, gin.H{
			"id":           conv.ID,
			"counterpart":  counterpart,
			"last_message": conv.LastMessage,
			"created_at":   conv.CreatedAt,
			"updated_at":   conv.UpdatedAt,
		})
	}
}
