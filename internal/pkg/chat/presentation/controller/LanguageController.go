package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"kala-setu/internal/auth"
	chat "kala-setu/internal/pkg/chat/application/domain"
	"kala-setu/internal/pkg/chat/application/usecase"
)

// ListLanguagesController serves the fixed selection set.
type ListLanguagesController struct{}

func NewListLanguagesController() *ListLanguagesController {
	return &ListLanguagesController{}
}

func (h *ListLanguagesController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"languages": chat.SupportedLanguages(),
			"default":   chat.DefaultLanguage,
		})
	}
}

// GetLanguageController reports the viewer's language, or the options to pick from.
type GetLanguageController struct {
	UC *usecase.LanguagePreferenceUseCase
}

func NewGetLanguageController(uc *usecase.LanguagePreferenceUseCase) *GetLanguageController {
	return &GetLanguageController{UC: uc}
}

func (h *GetLanguageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		state, err := h.UC.Get(ctx, usecase.GetLanguageInput{
			UserID:   auth.UserID(c),
			FullName: c.GetString(auth.ContextUserName),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, state)
	}
}

// SetLanguageController stores the viewer's one-time language selection.
type SetLanguageController struct {
	UC *usecase.LanguagePreferenceUseCase
}

func NewSetLanguageController(uc *usecase.LanguagePreferenceUseCase) *SetLanguageController {
	return &SetLanguageController{UC: uc}
}

type setLanguageRequest struct {
	Language string `json:"language" binding:"required,language" conform:"trim,lower"`
}

func (h *SetLanguageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req setLanguageRequest
		if err := bindJSON(c, &req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		lang, err := h.UC.Set(ctx, usecase.SetLanguageInput{UserID: auth.UserID(c), Language: req.Language})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"language": lang})
	}
}
