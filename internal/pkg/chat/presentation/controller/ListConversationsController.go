package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"kala-setu/internal/auth"
	"kala-setu/internal/pkg/chat/application/usecase"
)

// ListConversationsController returns the viewer's conversation list.
type ListConversationsController struct {
	UC *usecase.ListConversationsUseCase
}

func NewListConversationsController(uc *usecase.ListConversationsUseCase) *ListConversationsController {
	return &ListConversationsController{UC: uc}
}

func (h *ListConversationsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		list, err := h.UC.Execute(ctx, usecase.ListConversationsInput{UserID: auth.UserID(c)})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"conversations": list,
			"count":         len(list),
		})
	}
}
