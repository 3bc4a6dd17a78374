package storage

import (
	"context"
	"time"

	storagecommon "brandgen-go/internal/storage/common"
)

// HistoryLimit is how many chat-history records a listing returns.
const HistoryLimit = 10

// Turn is one persisted chat message.
type Turn struct {
	ID        string    `json:"id,omitempty" bson:"id,omitempty"`
	Role      string    `json:"role" bson:"role"`
	Content   string    `json:"content" bson:"content"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	ParentID  string    `json:"parentId,omitempty" bson:"parentId,omitempty"`
}

// ChatHistory is one conversation of a user.
type ChatHistory struct {
	ID             string    `json:"_id"`
	UserID         string    `json:"userId"`
	ConversationID string    `json:"conversationId"`
	Model          string    `json:"model"`
	Messages       []Turn    `json:"messages"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// GeneratedImage is one image produced inside an image conversation.
type GeneratedImage struct {
	Prompt      string    `json:"prompt" bson:"prompt"`
	URL         string    `json:"url" bson:"url"`
	Timestamp   time.Time `json:"timestamp" bson:"timestamp"`
	Model       string    `json:"model" bson:"model"`
	Type        string    `json:"type" bson:"type"`
	SourceImage string    `json:"sourceImage,omitempty" bson:"sourceImage,omitempty"`
}

// ImageConversation groups the images a user generated in one thread.
type ImageConversation struct {
	ID        string           `json:"_id"`
	UserID    string           `json:"userId"`
	Title     string           `json:"title"`
	Model     string           `json:"model"`
	Images    []GeneratedImage `json:"images"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// HistoryStore persists chat turns.
type HistoryStore interface {
	// AppendTurns appends turns to the user's conversation, creating it when
	// conversationID is empty or unknown. It returns the conversation id.
	AppendTurns(ctx context.Context, userID, conversationID, model string, turns []Turn) (string, error)
	// ListRecent returns at most limit conversations, most recently updated first.
	ListRecent(ctx context.Context, userID string, limit int) ([]ChatHistory, error)
	// GetHistory returns ErrNotFound unless the user's conversation exists.
	GetHistory(ctx context.Context, userID, conversationID string) (*ChatHistory, error)
}

// ImageStore persists image conversations.
type ImageStore interface {
	ListConversations(ctx context.Context, userID string) ([]ImageConversation, error)
	// CreateConversation assigns conv.ID, CreatedAt and UpdatedAt.
	CreateConversation(ctx context.Context, conv *ImageConversation) error
	// GetConversation returns ErrNotFound unless id exists and belongs to userID.
	GetConversation(ctx context.Context, userID, id string) (*ImageConversation, error)
	AppendImage(ctx context.Context, userID, id string, img GeneratedImage) error
}

// Backend is a complete storage implementation.
type Backend interface {
	Initialize(ctx context.Context) error
	Close() error
	Health(ctx context.Context) error
	HistoryStore
	ImageStore
}

// ErrNotFound is returned when a record is missing or not owned by the caller.
type ErrNotFound = storagecommon.ErrNotFound

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return storagecommon.IsNotFound(err) }

func validateAppend(userID string, turns []Turn) error {
	if err := storagecommon.ValidateID("userId", userID); err != nil {
		return err
	}
	if len(turns) == 0 {
		return &storagecommon.ErrInvalidData{Reason: "no turns to append"}
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > HistoryLimit {
		return HistoryLimit
	}
	return limit
}
