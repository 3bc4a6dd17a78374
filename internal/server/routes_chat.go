package server

import (
	"brandgen-go/internal/handlers/chat"

	"github.com/gin-gonic/gin"
)

// RegisterChatRoutes mounts the chat relay under rg (normally /api/chat).
func RegisterChatRoutes(rg *gin.RouterGroup, h *chat.Handler) {
	rg.POST("/text/stream", h.Stream)
	rg.POST("/text", h.Text)
	rg.GET("/history", h.History)
}
