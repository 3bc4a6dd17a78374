package chat

import (
	"brandgen-go/internal/config"
	"brandgen-go/internal/storage"
	"brandgen-go/internal/streaming"
	"brandgen-go/internal/upstream"
)

const (
	streamErrorHeadline = "Streaming chat failed"
	textErrorHeadline   = "Text chat failed"
)

// Handler serves the chat endpoints.
type Handler struct {
	cfg     config.Source
	history storage.HistoryStore
	guard   streaming.Guard
	clients *upstream.Manager
	ticker  streaming.TickerFactory
}

type Option func(*Handler)

// WithTicker replaces the pacing clock of simulated responses.
func WithTicker(f streaming.TickerFactory) Option { return func(h *Handler) { h.ticker = f } }

// New builds the chat handlers. guard may be nil for an in-process guard.
func New(cfg config.Source, history storage.HistoryStore, guard streaming.Guard, clients *upstream.Manager, opts ...Option) *Handler {
	if guard == nil {
		guard = streaming.NewMemoryGuard(0)
	}
	if clients == nil {
		clients = upstream.NewManager()
	}
	h := &Handler{cfg: cfg, history: history, guard: guard, clients: clients, ticker: streaming.RealTicker}
	for _, opt := range opts {
		opt(h)
	}
	return h
}
