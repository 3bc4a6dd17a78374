package storage

import (
	"context"

	"brandgen-go/internal/monitoring"
	"brandgen-go/internal/monitoring/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// WithInstrumentation wraps a backend with tracing and latency metrics.
func WithInstrumentation(inner Backend, label string) Backend {
	if inner == nil {
		return nil
	}
	if label == "" {
		label = BackendLabel(inner)
	}
	return &instrumentedBackend{Backend: inner, label: label}
}

type instrumentedBackend struct {
	Backend
	label string
}

// Unwrap returns the wrapped backend.
func (i *instrumentedBackend) Unwrap() Backend { return i.Backend }

func (i *instrumentedBackend) instrument(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, span := tracing.StartSpan(ctx, "storage", op, trace.WithAttributes(
		attribute.String("storage.backend", i.label),
	))
	err := monitoring.TrackStorage(ctx, i.label, op, fn)
	tracing.EndSpan(span, err)
	return err
}

func (i *instrumentedBackend) AppendTurns(ctx context.Context, userID, conversationID, model string, turns []Turn) (string, error) {
	var id string
	err := i.instrument(ctx, "append_turns", func(ctx context.Context) error {
		var innerErr error
		id, innerErr = i.Backend.AppendTurns(ctx, userID, conversationID, model, turns)
		return innerErr
	})
	return id, err
}

func (i *instrumentedBackend) ListRecent(ctx context.Context, userID string, limit int) ([]ChatHistory, error) {
	var out []ChatHistory
	err := i.instrument(ctx, "list_recent", func(ctx context.Context) error {
		var innerErr error
		out, innerErr = i.Backend.ListRecent(ctx, userID, limit)
		return innerErr
	})
	return out, err
}

func (i *instrumentedBackend) GetHistory(ctx context.Context, userID, conversationID string) (*ChatHistory, error) {
	var out *ChatHistory
	err := i.instrument(ctx, "get_history", func(ctx context.Context) error {
		var innerErr error
		out, innerErr = i.Backend.GetHistory(ctx, userID, conversationID)
		return innerErr
	})
	return out, err
}

func (i *instrumentedBackend) ListConversations(ctx context.Context, userID string) ([]ImageConversation, error) {
	var out []ImageConversation
	err := i.instrument(ctx, "list_conversations", func(ctx context.Context) error {
		var innerErr error
		out, innerErr = i.Backend.ListConversations(ctx, userID)
		return innerErr
	})
	return out, err
}

func (i *instrumentedBackend) CreateConversation(ctx context.Context, conv *ImageConversation) error {
	return i.instrument(ctx, "create_conversation", func(ctx context.Context) error {
		return i.Backend.CreateConversation(ctx, conv)
	})
}

func (i *instrumentedBackend) GetConversation(ctx context.Context, userID, id string) (*ImageConversation, error) {
	var out *ImageConversation
	err := i.instrument(ctx, "get_conversation", func(ctx context.Context) error {
		var innerErr error
		out, innerErr = i.Backend.GetConversation(ctx, userID, id)
		return innerErr
	})
	return out, err
}

func (i *instrumentedBackend) AppendImage(ctx context.Context, userID, id string, img GeneratedImage) error {
	return i.instrument(ctx, "append_image", func(ctx context.Context) error {
		return i.Backend.AppendImage(ctx, userID, id, img)
	})
}
