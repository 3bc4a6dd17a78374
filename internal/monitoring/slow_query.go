package monitoring

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// SlowQueryThreshold 慢查询阈值
const SlowQueryThreshold = 200 * time.Millisecond

// TrackStorage times a storage operation, records it in the storage histogram
// and logs it at warn when it exceeds SlowQueryThreshold.
func TrackStorage(ctx context.Context, backend, operation string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)

	result := "ok"
	if err != nil {
		result = "error"
	}
	StorageOperationDuration.WithLabelValues(backend, operation, result).Observe(duration.Seconds())

	if duration >= SlowQueryThreshold {
		entry := log.WithFields(log.Fields{
			"backend":     backend,
			"operation":   operation,
			"duration_ms": duration.Milliseconds(),
		})
		if err != nil {
			entry = entry.WithError(err)
		}
		entry.Warn("slow storage operation")
	}
	return err
}
