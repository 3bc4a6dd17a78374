package storage

import (
	"context"
	"fmt"
	"strings"

	"brandgen-go/internal/config"

	log "github.com/sirupsen/logrus"
)

// New builds and initializes the configured backend. The returned raw backend
// is the concrete type (e.g. *MongoDBBackend); wrapped adds instrumentation.
func New(ctx context.Context, cfg config.StorageConfig) (raw Backend, wrapped Backend, err error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "mongodb", "mongo", "":
		raw = NewMongoDBBackend(cfg.MongoURI, cfg.MongoDatabase, cfg.Timeout())
	case "redis":
		raw = NewRedisBackend(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix, cfg.Timeout())
	case "memory":
		raw = NewMemoryBackend()
	default:
		return nil, nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
	if err := raw.Initialize(ctx); err != nil {
		_ = raw.Close()
		return nil, nil, fmt.Errorf("initialize %s storage: %w", BackendLabel(raw), err)
	}
	log.WithField("backend", BackendLabel(raw)).Info("storage backend initialized")
	return raw, WithInstrumentation(raw, ""), nil
}
