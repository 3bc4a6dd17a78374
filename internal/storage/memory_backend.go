package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	storagecommon "brandgen-go/internal/storage/common"

	"github.com/google/uuid"
)

// MemoryBackend keeps everything in process memory. Data is lost on restart.
type MemoryBackend struct {
	mu      sync.RWMutex
	history map[string]*ChatHistory // userID + "/" + conversationID
	images  map[string]*ImageConversation
	now     func() time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		history: make(map[string]*ChatHistory),
		images:  make(map[string]*ImageConversation),
		now:     time.Now,
	}
}

func (m *MemoryBackend) Initialize(context.Context) error { return nil }
func (m *MemoryBackend) Close() error                     { return nil }
func (m *MemoryBackend) Health(context.Context) error     { return nil }

func (m *MemoryBackend) AppendTurns(_ context.Context, userID, conversationID, model string, turns []Turn) (string, error) {
	if err := validateAppend(userID, turns); err != nil {
		return "", err
	}
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	key := userID + "/" + conversationID
	h, ok := m.history[key]
	if !ok {
		h = &ChatHistory{ID: uuid.NewString(), UserID: userID, ConversationID: conversationID, CreatedAt: now}
		m.history[key] = h
	}
	h.Model = model
	h.Messages = append(h.Messages, turns...)
	h.UpdatedAt = now
	return conversationID, nil
}

func (m *MemoryBackend) GetHistory(_ context.Context, userID, conversationID string) (*ChatHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.history[userID+"/"+conversationID]
	if !ok || conversationID == "" {
		return nil, &ErrNotFound{Key: conversationID}
	}
	cp := *h
	cp.Messages = append([]Turn(nil), h.Messages...)
	return &cp, nil
}

func (m *MemoryBackend) ListRecent(_ context.Context, userID string, limit int) ([]ChatHistory, error) {
	m.mu.RLock()
	out := make([]ChatHistory, 0)
	for _, h := range m.history {
		if h.UserID != userID {
			continue
		}
		cp := *h
		cp.Messages = append([]Turn(nil), h.Messages...)
		out = append(out, cp)
	}
	m.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if n := clampLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (m *MemoryBackend) ListConversations(_ context.Context, userID string) ([]ImageConversation, error) {
	m.mu.RLock()
	out := make([]ImageConversation, 0)
	for _, c := range m.images {
		if c.UserID == userID {
			out = append(out, copyConversation(c))
		}
	}
	m.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *MemoryBackend) CreateConversation(_ context.Context, conv *ImageConversation) error {
	if err := storagecommon.ValidateID("userId", conv.UserID); err != nil {
		return err
	}
	now := m.now()
	conv.ID = uuid.NewString()
	conv.CreatedAt, conv.UpdatedAt = now, now
	if conv.Images == nil {
		conv.Images = []GeneratedImage{}
	}
	cp := copyConversation(conv)
	m.mu.Lock()
	m.images[conv.ID] = &cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) GetConversation(_ context.Context, userID, id string) (*ImageConversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.images[id]
	if !ok || c.UserID != userID {
		return nil, &ErrNotFound{Key: id}
	}
	cp := copyConversation(c)
	return &cp, nil
}

func (m *MemoryBackend) AppendImage(_ context.Context, userID, id string, img GeneratedImage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.images[id]
	if !ok || c.UserID != userID {
		return &ErrNotFound{Key: id}
	}
	c.Images = append(c.Images, img)
	c.UpdatedAt = m.now()
	return nil
}

func copyConversation(c *ImageConversation) ImageConversation {
	cp := *c
	cp.Images = append([]GeneratedImage{}, c.Images...)
	return cp
}
