package v1

import (
	"github.com/gin-gonic/gin"

	"kala-setu/internal/auth"
	httpHandler "kala-setu/internal/pkg/chat/presentation/http"
)

// RegisterRoutes mounts all version 1 API routes under /api/v1.
// Every route requires a bearer token signed with jwtSecret.
func RegisterRoutes(r *gin.Engine, jwtSecret string, deps httpHandler.Dependencies) {
	v1 := r.Group("/api/v1", auth.Middleware(jwtSecret))
	httpHandler.RegisterRoutes(v1, deps)
}
