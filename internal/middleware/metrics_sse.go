package middleware

import (
	"math"
	"time"

	"brandgen-go/internal/monitoring"
)

// RecordSSEClose increments an SSE disconnect reason counter.
func RecordSSEClose(reason string) {
	if reason == "" {
		reason = "other"
	}
	monitoring.SSEDisconnectsTotal.WithLabelValues(reason).Inc()
}

// RecordUpstream records time-to-headers and status class for a provider.
func RecordUpstream(provider string, dur time.Duration, status int, networkErr bool) {
	cls := monitoring.StatusClass(status)
	if networkErr {
		cls = "network_error"
	}
	durSec := dur.Seconds()
	if math.IsNaN(durSec) || math.IsInf(durSec, 0) {
		durSec = 0
	}
	monitoring.UpstreamRequestsTotal.WithLabelValues(provider, cls).Inc()
	monitoring.UpstreamRequestDuration.WithLabelValues(provider).Observe(durSec)
}
