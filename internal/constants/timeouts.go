package constants

import "time"

const (
	// UpstreamIdleTimeout bounds the gap between two upstream reads.
	UpstreamIdleTimeout = 60 * time.Second
	// UpstreamStreamTimeout enforces max duration for streaming requests.
	UpstreamStreamTimeout = 10 * time.Minute
	// UpstreamGenerateTimeout enforces max duration for non-stream requests.
	UpstreamGenerateTimeout = 180 * time.Second
	// FallbackInterval paces simulated deltas when no API key is configured.
	FallbackInterval = 100 * time.Millisecond
	// PersistTimeout bounds a single history write after the stream ended.
	PersistTimeout = 10 * time.Second
	// PersistGuardTTL keeps idempotency markers for committed sessions.
	PersistGuardTTL = 24 * time.Hour
	// ServerShutdownTimeout bounds graceful HTTP server shutdown.
	ServerShutdownTimeout = 30 * time.Second
	// StorageHealthInterval paces the background storage health check.
	StorageHealthInterval = 30 * time.Second
)
