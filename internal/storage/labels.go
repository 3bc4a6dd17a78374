package storage

// BackendLabel returns the metrics label of a backend.
func BackendLabel(backend Backend) string {
	switch b := backend.(type) {
	case *MongoDBBackend:
		return "mongodb"
	case *RedisBackend:
		return "redis"
	case *MemoryBackend:
		return "memory"
	case *instrumentedBackend:
		return b.label
	default:
		return "unknown"
	}
}
