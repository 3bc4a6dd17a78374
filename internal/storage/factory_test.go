package storage

import (
	"context"
	"testing"

	"brandgen-go/internal/config"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestNewMemoryBackend(t *testing.T) {
	raw, wrapped, err := New(context.Background(), config.StorageConfig{Backend: "memory"})
	require.NoError(t, err)
	require.IsType(t, &MemoryBackend{}, raw)
	require.Equal(t, "memory", BackendLabel(wrapped))
	require.Equal(t, raw, wrapped.(interface{ Unwrap() Backend }).Unwrap())
}

func TestNewRedisBackendFromConfig(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Skipf("miniredis unavailable: %v", err)
	}
	defer mr.Close()

	raw, wrapped, err := New(context.Background(), config.StorageConfig{Backend: "Redis", RedisAddr: mr.Addr(), RedisPrefix: "x:"})
	require.NoError(t, err)
	defer raw.Close()
	require.Equal(t, "redis", BackendLabel(wrapped))
	require.Equal(t, "x:", raw.(*RedisBackend).Prefix())
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	_, _, err := New(context.Background(), config.StorageConfig{Backend: "postgres"})
	require.Error(t, err)
}
