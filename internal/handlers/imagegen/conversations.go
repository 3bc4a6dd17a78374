package imagegen

import (
	"net/http"
	"strings"

	"brandgen-go/internal/handlers/common"
	"brandgen-go/internal/logging"
	"brandgen-go/internal/storage"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// List returns the caller's image conversations, most recently updated first.
func (h *Handler) List(c *gin.Context) {
	convs, err := h.images.ListConversations(c.Request.Context(), common.UserID(c))
	if err != nil {
		logging.WithReq(c, nil).WithError(err).Error("failed to list image conversations")
		common.AbortWithFailure(c, "Failed to load image conversations", err)
		return
	}
	c.JSON(http.StatusOK, convs)
}

type createRequest struct {
	Title string `json:"title"`
}

// Create starts an empty image conversation.
func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	if c.Request.ContentLength > 0 {
		if err := common.BindJSON(c, &req); err != nil {
			common.AbortValidation(c, err)
			return
		}
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = DefaultTitle
	}
	conv := &storage.ImageConversation{UserID: common.UserID(c), Title: title, Model: DisplayModel}
	if err := h.images.CreateConversation(c.Request.Context(), conv); err != nil {
		logging.WithReq(c, nil).WithError(err).Error("failed to create image conversation")
		common.AbortWithFailure(c, "Failed to create image conversation", err)
		return
	}
	logging.WithReq(c, log.Fields{"conversation_id": conv.ID}).Info("image conversation created")
	c.JSON(http.StatusOK, conv)
}
