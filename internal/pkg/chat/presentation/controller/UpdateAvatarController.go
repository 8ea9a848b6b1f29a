package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"kala-setu/internal/auth"
	"kala-setu/internal/pkg/chat/application/usecase"
)

// UpdateAvatarController accepts a multipart "file" upload and replaces the
// viewer's avatar.
type UpdateAvatarController struct {
	UC *usecase.UpdateAvatarUseCase
}

func NewUpdateAvatarController(uc *usecase.UpdateAvatarUseCase) *UpdateAvatarController {
	return &UpdateAvatarController{UC: uc}
}

func (h *UpdateAvatarController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		fh, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		if fh.Size > usecase.MaxAvatarBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file is too large"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read file"})
			return
		}
		defer f.Close()

		// Upload to object storage can be slow on mobile-sized images.
		ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
		defer cancel()

		url, err := h.UC.Execute(ctx, usecase.UpdateAvatarInput{UserID: auth.UserID(c), Image: f})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"avatar_url": url})
	}
}
