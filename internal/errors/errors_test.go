package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapHTTPErrorExtractsMessage(t *testing.T) {
	err := MapHTTPError(http.StatusUnauthorized, []byte(`{"error":{"message":"bad key","type":"auth"}}`))
	require.Equal(t, "invalid_api_key", err.Code)
	require.Equal(t, "bad key", err.Message)
	require.False(t, err.IsRetryable())

	err = MapHTTPError(http.StatusTooManyRequests, []byte(`{"message":"slow down"}`))
	require.Equal(t, "slow down", err.Message)
	require.True(t, err.IsRetryable())

	err = MapHTTPError(http.StatusBadGateway, []byte("upstream exploded"))
	require.Equal(t, "upstream exploded", err.Message)

	err = MapHTTPError(418, nil)
	require.Equal(t, "HTTP 418 error", err.Message)
}

func TestMapNetworkError(t *testing.T) {
	require.Equal(t, "request_canceled", MapNetworkError(fmt.Errorf("read: %w", context.Canceled)).Code)
	require.Equal(t, "timeout", MapNetworkError(context.DeadlineExceeded).Code)
	require.Equal(t, "connection_error", MapNetworkError(stdErrors.New("dial tcp: connection refused")).Code)
	require.Equal(t, "dns_error", MapNetworkError(stdErrors.New("lookup x: no such host")).Code)
	require.Equal(t, "network_error", MapNetworkError(stdErrors.New("weird")).Code)

	orig := New(http.StatusBadGateway, "idle_timeout", "timeout_error", "idle")
	require.Same(t, orig, MapNetworkError(fmt.Errorf("wrapped: %w", orig)))
}

func TestEnvelopeFor(t *testing.T) {
	status, env := EnvelopeFor("Failed to generate response", fmt.Errorf("stream: %w", MapHTTPError(http.StatusUnauthorized, nil)))
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "Failed to generate response", env.Message)
	require.Equal(t, "Invalid authentication", env.Error)
	require.NotEmpty(t, env.Tip)

	status, env = EnvelopeFor("boom", stdErrors.New("plain"))
	require.Equal(t, http.StatusInternalServerError, status)
	require.Equal(t, "plain", env.Error)
}
