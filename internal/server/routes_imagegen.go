package server

import (
	"brandgen-go/internal/handlers/imagegen"

	"github.com/gin-gonic/gin"
)

// RegisterImageGenRoutes mounts image conversations under rg (normally /api/image-gen).
func RegisterImageGenRoutes(rg *gin.RouterGroup, h *imagegen.Handler) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.POST("/:conversationId/generate", h.Generate)
}
