package imagegen

import (
	"brandgen-go/internal/config"
	"brandgen-go/internal/storage"
	"brandgen-go/internal/streaming"
	"brandgen-go/internal/upstream"
)

const (
	// DefaultTitle names new image conversations.
	DefaultTitle = "新图片对话"
	// DisplayModel is the model label stored on conversations and images.
	DisplayModel = "GPT-4o"

	TypeText2Img = "text2img"
	TypeImg2Img  = "img2img"

	generateErrorHeadline = "Image generation failed"
)

// Handler serves the image conversation endpoints.
type Handler struct {
	cfg     config.Source
	images  storage.ImageStore
	guard   streaming.Guard
	clients *upstream.Manager
	ticker  streaming.TickerFactory
}

type Option func(*Handler)

// WithTicker replaces the pacing clock of simulated responses.
func WithTicker(f streaming.TickerFactory) Option { return func(h *Handler) { h.ticker = f } }

func New(cfg config.Source, images storage.ImageStore, guard streaming.Guard, clients *upstream.Manager, opts ...Option) *Handler {
	if guard == nil {
		guard = streaming.NewMemoryGuard(0)
	}
	if clients == nil {
		clients = upstream.NewManager()
	}
	h := &Handler{cfg: cfg, images: images, guard: guard, clients: clients, ticker: streaming.RealTicker}
	for _, opt := range opts {
		opt(h)
	}
	return h
}
