package constants

const (
	// SSEReadBufferSize is the chunk size used when reading upstream SSE bodies (32KB).
	SSEReadBufferSize = 32 * 1024
	// SSEMaxLineSize caps a single buffered SSE line (4MB). Longer lines are dropped.
	SSEMaxLineSize = 4 * 1024 * 1024
)
