package imagegen

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"brandgen-go/internal/config"
	"brandgen-go/internal/handlers/common"
	"brandgen-go/internal/logging"
	"brandgen-go/internal/storage"
	"brandgen-go/internal/streaming"
	"brandgen-go/internal/upstream"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

var errNoImageURL = fmt.Errorf("no generated image url in model output: %w", streaming.ErrNothingToCommit)

// sampling parameters sent with every generation request
var generateParams = map[string]interface{}{
	"frequency_penalty": 0,
	"max_tokens":        4000,
	"presence_penalty":  0,
	"temperature":       0.5,
	"top_p":             1,
}

type generateRequest struct {
	Prompt      string `json:"prompt" form:"prompt"`
	Type        string `json:"type" form:"type"`
	SourceImage string `json:"sourceImage" form:"sourceImage"`
}

func (r *generateRequest) validate() error {
	r.Prompt = strings.TrimSpace(r.Prompt)
	r.Type = strings.TrimSpace(r.Type)
	r.SourceImage = strings.TrimSpace(r.SourceImage)
	if r.Prompt == "" {
		return common.NewValidationError("Prompt is required")
	}
	switch r.Type {
	case TypeText2Img:
	case TypeImg2Img:
		if r.SourceImage == "" {
			return common.NewValidationError("img2img requires a source image")
		}
	default:
		return common.NewValidationError("type must be text2img or img2img")
	}
	return nil
}

// promptHistory is every earlier prompt of the conversation followed by the new one.
func promptHistory(conv *storage.ImageConversation, prompt string) []upstream.Message {
	msgs := make([]upstream.Message, 0, len(conv.Images)+1)
	for _, img := range conv.Images {
		msgs = append(msgs, upstream.Message{Role: "user", Content: img.Prompt})
	}
	return append(msgs, upstream.Message{Role: "user", Content: prompt})
}

// Generate streams an image generation and stores the resulting image.
func (h *Handler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBind(&req); err != nil {
		common.AbortValidation(c, common.NewValidationError("invalid request: "+err.Error()))
		return
	}
	if err := req.validate(); err != nil {
		common.AbortValidation(c, err)
		return
	}

	conversationID := c.Param("conversationId")
	userID := common.UserID(c)
	conv, err := h.images.GetConversation(c.Request.Context(), userID, conversationID)
	if storage.IsNotFound(err) {
		common.AbortWithError(c, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		logging.WithReq(c, nil).WithError(err).Error("failed to load image conversation")
		common.AbortWithFailure(c, generateErrorHeadline, err)
		return
	}

	cfg := h.cfg.Current()
	entry := logging.WithReq(c, log.Fields{
		"conversation_id": conversationID,
		"type":            req.Type,
		"history":         len(conv.Images),
	})
	scanner := &streaming.ImageURLScanner{}
	sess := streaming.NewSession(c.Writer, streaming.SessionConfig{
		Kind:          "image",
		Model:         cfg.Image.Model,
		UserID:        userID,
		ErrorHeadline: generateErrorHeadline,
		MaxDuration:   cfg.Stream.MaxDuration(),
		Hook:          streaming.NewHook("image", h.committer(conversationID, &req, scanner), h.guard, cfg.Storage.Timeout()),
		Observe:       scanner.Observe,
		TerminalExtra: func() map[string]any {
			if url := scanner.Finish(); url != "" {
				return map[string]any{"imageUrl": url}
			}
			return nil
		},
	}, entry)
	common.TagSession(c, sess.ID, cfg.Image.Model)

	sess.Run(c.Request.Context(), h.producer(cfg, conv, &req, entry))
}

func (h *Handler) producer(cfg *config.Config, conv *storage.ImageConversation, req *generateRequest, entry *log.Entry) streaming.Producer {
	if !cfg.Image.HasKey() {
		entry.Warn("image API key not configured, sending simulated response")
		msg := streaming.FallbackMessage("image", req.Prompt)
		return streaming.NewFallback(cfg.Stream.FallbackInterval(), h.ticker).Producer(msg)
	}
	client := h.clients.Client("image", cfg.Image, cfg)
	chatReq := upstream.ChatRequest{Messages: promptHistory(conv, req.Prompt), Extra: generateParams}
	return streaming.UpstreamProducer(client, chatReq, upstream.ImageChatAdapter{}, entry)
}

func (h *Handler) committer(conversationID string, req *generateRequest, scanner *streaming.ImageURLScanner) streaming.Committer {
	return streaming.CommitFunc(func(ctx context.Context, o streaming.Outcome) error {
		url := scanner.Finish()
		if url == "" {
			return errNoImageURL
		}
		return h.images.AppendImage(ctx, o.UserID, conversationID, storage.GeneratedImage{
			Prompt:      req.Prompt,
			URL:         url,
			Timestamp:   o.EndedAt.UTC(),
			Model:       DisplayModel,
			Type:        req.Type,
			SourceImage: req.SourceImage,
		})
	})
}
