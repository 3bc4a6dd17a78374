package chat

import (
	"net/http"

	"brandgen-go/internal/handlers/common"
	"brandgen-go/internal/logging"
	"brandgen-go/internal/storage"

	"github.com/gin-gonic/gin"
)

// History lists the caller's most recently updated conversations.
func (h *Handler) History(c *gin.Context) {
	items, err := h.history.ListRecent(c.Request.Context(), common.UserID(c), storage.HistoryLimit)
	if err != nil {
		logging.WithReq(c, nil).WithError(err).Error("failed to load chat history")
		common.AbortWithFailure(c, "Failed to load chat history", err)
		return
	}
	logging.WithReq(c, nil).WithField("count", len(items)).Debug("chat history loaded")
	c.JSON(http.StatusOK, items)
}
