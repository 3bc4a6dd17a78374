package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// APIError is the normalized error for upstream and request failures.
type APIError struct {
	HTTPStatus int
	Code       string
	Message    string
	Type       string
	Details    map[string]interface{}
}

// Envelope is the JSON body returned to browsers before any stream byte is sent.
type Envelope struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Tip     string `json:"tip,omitempty"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.HTTPStatus, e.Message)
}

func New(httpStatus int, code, errType, message string) *APIError {
	return &APIError{HTTPStatus: httpStatus, Code: code, Type: errType, Message: message}
}

func (e *APIError) WithDetails(details map[string]interface{}) *APIError {
	e.Details = details
	return e
}

// As extracts an *APIError from a wrapped chain.
func As(err error) (*APIError, bool) {
	var apiErr *APIError
	if stdErrors.As(err, &apiErr) && apiErr != nil {
		return apiErr, true
	}
	return nil, false
}

func (e *APIError) IsRetryable() bool {
	switch e.HTTPStatus {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusRequestTimeout:
		return true
	}
	switch e.Code {
	case "timeout", "connection_error", "network_error", "dns_error":
		return true
	}
	return false
}

// Tip returns a short operator hint shown next to the error message.
func (e *APIError) Tip() string {
	switch e.Code {
	case "invalid_api_key", "permission_denied":
		return "Check that the model API key is valid and has access to the configured model."
	case "rate_limit_exceeded":
		return "The model provider is rate limiting requests. Try again shortly."
	case "timeout", "idle_timeout":
		return "The model provider did not respond in time. Try again later."
	case "connection_error", "dns_error", "tls_error", "network_error":
		return "The model provider could not be reached. Check network connectivity and the base URL."
	}
	return "Check server logs for more details."
}
