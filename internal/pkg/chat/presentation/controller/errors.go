package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	chat "kala-setu/internal/pkg/chat/application/domain"
	"kala-setu/internal/pkg/chat/application/thread"
	"kala-setu/internal/pkg/chat/application/usecase"
)

// statusFor maps use case errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, usecase.ErrPersistence):
		return http.StatusInternalServerError
	case errors.Is(err, chat.ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, chat.ErrConversationNotFound), errors.Is(err, chat.ErrProfileNotFound):
		return http.StatusNotFound
	case errors.Is(err, chat.ErrLanguageRequired):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// respondError writes err as {"error": ...}. Internal failures are attached to
// the gin context for the request logger and not echoed to the client.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}

// errorCode is the websocket counterpart of statusFor.
func errorCode(err error) string {
	switch {
	case errors.Is(err, usecase.ErrPersistence):
		return "internal_error"
	case errors.Is(err, chat.ErrNotParticipant):
		return "forbidden"
	case errors.Is(err, chat.ErrConversationNotFound), errors.Is(err, chat.ErrProfileNotFound):
		return "not_found"
	case errors.Is(err, chat.ErrLanguageRequired):
		return "language_required"
	case errors.Is(err, thread.ErrNotOpen), errors.Is(err, thread.ErrSuperseded):
		return "not_joined"
	default:
		return "bad_request"
	}
}
