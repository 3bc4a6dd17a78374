package chat

import (
	"context"
	"time"

	"brandgen-go/internal/config"
	"brandgen-go/internal/handlers/common"
	"brandgen-go/internal/logging"
	"brandgen-go/internal/storage"
	"brandgen-go/internal/streaming"
	"brandgen-go/internal/upstream"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Stream relays a chat completion as SSE and persists the accumulated reply.
func (h *Handler) Stream(c *gin.Context) {
	req, ok := bindChatRequest(c)
	if !ok {
		return
	}
	cfg := h.cfg.Current()
	model, mc := cfg.ModelFor(req.Model)
	userID := common.UserID(c)
	entry := logging.WithReq(c, log.Fields{"model": model, "messages": len(req.Messages)})

	sess := streaming.NewSession(c.Writer, streaming.SessionConfig{
		Kind:          "chat",
		Model:         model,
		UserID:        userID,
		ErrorHeadline: streamErrorHeadline,
		MaxDuration:   cfg.Stream.MaxDuration(),
		Hook:          streaming.NewHook("chat", h.committer(req, model), h.guard, cfg.Storage.Timeout()),
		TerminalExtra: func() map[string]any {
			return map[string]any{"conversationId": req.ConversationID}
		},
	}, entry)
	common.TagSession(c, sess.ID, model)

	sess.Run(c.Request.Context(), h.producer(cfg, model, mc, req, entry))
}

func (h *Handler) producer(cfg *config.Config, model string, mc config.ModelConfig, req *chatRequest, entry *log.Entry) streaming.Producer {
	if !mc.HasKey() {
		entry.Warn("model API key not configured, sending simulated response")
		msg := streaming.FallbackMessage(model, req.lastContent())
		return streaming.NewFallback(cfg.Stream.FallbackInterval(), h.ticker).Producer(msg)
	}
	client := h.clients.Client(model, mc, cfg)
	return streaming.UpstreamProducer(client, upstream.ChatRequest{Messages: req.Messages}, upstream.OpenAIChatAdapter{}, entry)
}

// committer appends the not yet stored request messages and the assistant reply.
func (h *Handler) committer(req *chatRequest, model string) streaming.Committer {
	return streaming.CommitFunc(func(ctx context.Context, o streaming.Outcome) error {
		_, err := h.saveTurns(ctx, o.UserID, model, req, o.Content, o.EndedAt)
		return err
	})
}

func (h *Handler) saveTurns(ctx context.Context, userID, model string, req *chatRequest, reply string, at time.Time) (string, error) {
	prior, err := h.history.GetHistory(ctx, userID, req.ConversationID)
	switch {
	case err == nil:
	case storage.IsNotFound(err):
		prior = nil
	default:
		log.WithFields(log.Fields{"conversation_id": req.ConversationID}).WithError(err).
			Warn("failed to load chat history, appending trailing turns only")
		prior = &storage.ChatHistory{}
	}
	return h.history.AppendTurns(ctx, userID, req.ConversationID, model, req.turns(prior, reply, at))
}
