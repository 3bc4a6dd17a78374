package chat

import (
	"net/http"
	"time"

	"brandgen-go/internal/handlers/common"
	"brandgen-go/internal/logging"
	"brandgen-go/internal/streaming"
	"brandgen-go/internal/upstream"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type textResponse struct {
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	ConversationID string    `json:"conversationId"`
}

// Text answers with the complete reply as JSON.
func (h *Handler) Text(c *gin.Context) {
	req, ok := bindChatRequest(c)
	if !ok {
		return
	}
	cfg := h.cfg.Current()
	model, mc := cfg.ModelFor(req.Model)
	userID := common.UserID(c)
	entry := logging.WithReq(c, log.Fields{"model": model, "messages": len(req.Messages)})
	c.Set("model", model)

	var content string
	if !mc.HasKey() {
		entry.Warn("model API key not configured, returning simulated response")
		content = streaming.FallbackMessage(model, req.lastContent())
	} else {
		ctx, cancel := common.WithUpstreamTimeout(c.Request.Context(), 0)
		defer cancel()
		reply, err := h.clients.Client(model, mc, cfg).Complete(ctx, upstream.ChatRequest{Messages: req.Messages})
		if err != nil {
			entry.WithError(err).Error("text chat failed")
			common.AbortUpstreamFailure(c, textErrorHeadline, err)
			return
		}
		content = reply
	}

	now := time.Now().UTC()
	if _, err := h.saveTurns(c.Request.Context(), userID, model, req, content, now); err != nil {
		entry.WithError(err).Error("failed to save chat history")
	}
	c.JSON(http.StatusOK, textResponse{Content: content, Timestamp: now, ConversationID: req.ConversationID})
}
