package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	storagecommon "brandgen-go/internal/storage/common"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisBackend stores records as hashes (metadata) plus lists (turns, images),
// indexed per user by a sorted set scored with the update time.
type RedisBackend struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

// NewRedisBackend creates a new Redis storage backend
func NewRedisBackend(addr, password string, db int, prefix string, timeout time.Duration) *RedisBackend {
	if prefix == "" {
		prefix = "brandgen:"
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	return &RedisBackend{client: client, prefix: prefix, timeout: timeout}
}

// Client exposes the underlying connection so a RedisGuard can share it.
func (r *RedisBackend) Client() *redis.Client { return r.client }

// Prefix is the key namespace of this backend.
func (r *RedisBackend) Prefix() string { return r.prefix }

func (r *RedisBackend) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return storagecommon.WithStorageTimeout(ctx, r.timeout)
}

func (r *RedisBackend) Initialize(ctx context.Context) error {
	if err := r.Health(ctx); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

func (r *RedisBackend) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *RedisBackend) Health(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.client.Ping(ctx).Err()
}

func (r *RedisBackend) historyKey(userID, conversationID string) string {
	return r.prefix + "history:" + userID + ":" + conversationID
}

func (r *RedisBackend) historyIndexKey(userID string) string {
	return r.prefix + "history:index:" + userID
}

func (r *RedisBackend) imageKey(id string) string { return r.prefix + "imgconv:" + id }

func (r *RedisBackend) imageIndexKey(userID string) string {
	return r.prefix + "imgconv:index:" + userID
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func score(t time.Time) float64 { return float64(t.UnixNano()) }

func encodeAll[T any](items []T) ([]interface{}, error) {
	out := make([]interface{}, 0, len(items))
	for _, it := range items {
		b, err := json.Marshal(it)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func decodeAll[T any](raw []string) ([]T, error) {
	out := make([]T, 0, len(raw))
	for _, s := range raw {
		var v T
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, &storagecommon.ErrInvalidData{Reason: err.Error()}
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *RedisBackend) AppendTurns(ctx context.Context, userID, conversationID, model string, turns []Turn) (string, error) {
	if err := validateAppend(userID, turns); err != nil {
		return "", err
	}
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	payload, err := encodeAll(turns)
	if err != nil {
		return "", err
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	now := time.Now()
	key := r.historyKey(userID, conversationID)
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSetNX(ctx, key, "id", uuid.NewString())
		p.HSetNX(ctx, key, "createdAt", formatTime(now))
		p.HSet(ctx, key, "model", model, "updatedAt", formatTime(now))
		p.RPush(ctx, key+":messages", payload...)
		p.ZAdd(ctx, r.historyIndexKey(userID), redis.Z{Score: score(now), Member: conversationID})
		return nil
	})
	if err != nil {
		return "", storagecommon.MapRedisError(err, key)
	}
	return conversationID, nil
}

func (r *RedisBackend) ListRecent(ctx context.Context, userID string, limit int) ([]ChatHistory, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	ids, err := r.client.ZRevRange(ctx, r.historyIndexKey(userID), 0, int64(clampLimit(limit)-1)).Result()
	if err != nil {
		return nil, storagecommon.MapRedisError(err, userID)
	}
	if len(ids) == 0 {
		return []ChatHistory{}, nil
	}

	metas := make([]*redis.MapStringStringCmd, len(ids))
	msgs := make([]*redis.StringSliceCmd, len(ids))
	_, err = r.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range ids {
			key := r.historyKey(userID, id)
			metas[i] = p.HGetAll(ctx, key)
			msgs[i] = p.LRange(ctx, key+":messages", 0, -1)
		}
		return nil
	})
	if err != nil {
		return nil, storagecommon.MapRedisError(err, userID)
	}

	out := make([]ChatHistory, 0, len(ids))
	for i, id := range ids {
		meta := metas[i].Val()
		if len(meta) == 0 {
			continue
		}
		turns, err := decodeAll[Turn](msgs[i].Val())
		if err != nil {
			return nil, err
		}
		out = append(out, ChatHistory{
			ID:             meta["id"],
			UserID:         userID,
			ConversationID: id,
			Model:          meta["model"],
			Messages:       turns,
			CreatedAt:      parseTime(meta["createdAt"]),
			UpdatedAt:      parseTime(meta["updatedAt"]),
		})
	}
	return out, nil
}

func (r *RedisBackend) GetHistory(ctx context.Context, userID, conversationID string) (*ChatHistory, error) {
	key := r.historyKey(userID, conversationID)
	if conversationID == "" {
		return nil, &ErrNotFound{Key: key}
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var meta *redis.MapStringStringCmd
	var msgs *redis.StringSliceCmd
	_, err := r.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		meta = p.HGetAll(ctx, key)
		msgs = p.LRange(ctx, key+":messages", 0, -1)
		return nil
	})
	if err != nil {
		return nil, storagecommon.MapRedisError(err, key)
	}
	if len(meta.Val()) == 0 {
		return nil, &ErrNotFound{Key: key}
	}
	turns, err := decodeAll[Turn](msgs.Val())
	if err != nil {
		return nil, err
	}
	return &ChatHistory{
		ID:             meta.Val()["id"],
		UserID:         userID,
		ConversationID: conversationID,
		Model:          meta.Val()["model"],
		Messages:       turns,
		CreatedAt:      parseTime(meta.Val()["createdAt"]),
		UpdatedAt:      parseTime(meta.Val()["updatedAt"]),
	}, nil
}

func (r *RedisBackend) ListConversations(ctx context.Context, userID string) ([]ImageConversation, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	ids, err := r.client.ZRevRange(ctx, r.imageIndexKey(userID), 0, -1).Result()
	if err != nil {
		return nil, storagecommon.MapRedisError(err, userID)
	}
	out := make([]ImageConversation, 0, len(ids))
	for _, id := range ids {
		conv, err := r.loadConversation(ctx, userID, id)
		if IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *conv)
	}
	return out, nil
}

func (r *RedisBackend) CreateConversation(ctx context.Context, conv *ImageConversation) error {
	if err := storagecommon.ValidateID("userId", conv.UserID); err != nil {
		return err
	}
	if conv.Images == nil {
		conv.Images = []GeneratedImage{}
	}
	payload, err := encodeAll(conv.Images)
	if err != nil {
		return err
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	now := time.Now()
	conv.ID = uuid.NewString()
	conv.CreatedAt, conv.UpdatedAt = now.UTC(), now.UTC()
	key := r.imageKey(conv.ID)
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key,
			"userId", conv.UserID,
			"title", conv.Title,
			"model", conv.Model,
			"createdAt", formatTime(now),
			"updatedAt", formatTime(now),
		)
		if len(payload) > 0 {
			p.RPush(ctx, key+":images", payload...)
		}
		p.ZAdd(ctx, r.imageIndexKey(conv.UserID), redis.Z{Score: score(now), Member: conv.ID})
		return nil
	})
	return storagecommon.MapRedisError(err, key)
}

func (r *RedisBackend) loadConversation(ctx context.Context, userID, id string) (*ImageConversation, error) {
	key := r.imageKey(id)
	meta, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, storagecommon.MapRedisError(err, key)
	}
	if len(meta) == 0 || meta["userId"] != userID {
		return nil, &ErrNotFound{Key: id}
	}
	raw, err := r.client.LRange(ctx, key+":images", 0, -1).Result()
	if err != nil {
		return nil, storagecommon.MapRedisError(err, key)
	}
	images, err := decodeAll[GeneratedImage](raw)
	if err != nil {
		return nil, err
	}
	return &ImageConversation{
		ID:        id,
		UserID:    userID,
		Title:     meta["title"],
		Model:     meta["model"],
		Images:    images,
		CreatedAt: parseTime(meta["createdAt"]),
		UpdatedAt: parseTime(meta["updatedAt"]),
	}, nil
}

func (r *RedisBackend) GetConversation(ctx context.Context, userID, id string) (*ImageConversation, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.loadConversation(ctx, userID, id)
}

func (r *RedisBackend) AppendImage(ctx context.Context, userID, id string, img GeneratedImage) error {
	b, err := json.Marshal(img)
	if err != nil {
		return err
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	key := r.imageKey(id)
	owner, err := r.client.HGet(ctx, key, "userId").Result()
	if err != nil {
		return storagecommon.MapRedisError(err, id)
	}
	if owner != userID {
		return &ErrNotFound{Key: id}
	}
	now := time.Now()
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, key+":images", b)
		p.HSet(ctx, key, "updatedAt", formatTime(now))
		p.ZAdd(ctx, r.imageIndexKey(userID), redis.Z{Score: score(now), Member: id})
		return nil
	})
	return storagecommon.MapRedisError(err, key)
}

// RedisGuard admits a key once across instances using SET NX with a TTL.
type RedisGuard struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisGuard(client *redis.Client, prefix string, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisGuard{client: client, prefix: prefix, ttl: ttl}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.prefix+"persisted:"+key, strconv.FormatInt(time.Now().Unix(), 10), g.ttl).Result()
	if err != nil {
		return false, storagecommon.MapRedisError(err, key)
	}
	return ok, nil
}
