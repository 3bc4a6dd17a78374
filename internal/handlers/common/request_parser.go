package common

import (
	"net/http"

	apperrors "brandgen-go/internal/errors"

	"github.com/gin-gonic/gin"
)

// ValidationError is a client error answered with 400 `{"message"}`.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// APIError converts the validation failure to the shared error type.
func (e *ValidationError) APIError() *apperrors.APIError {
	return apperrors.New(http.StatusBadRequest, "invalid_request", "invalid_request_error", e.Message)
}

func NewValidationError(msg string) *ValidationError { return &ValidationError{Message: msg} }

// BindJSON decodes the request body into dst. Malformed JSON is a ValidationError.
func BindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return NewValidationError("invalid json: " + err.Error())
	}
	return nil
}

// AbortValidation answers 400 with the validation message.
func AbortValidation(c *gin.Context, err error) {
	msg := "invalid request"
	if ve, ok := err.(*ValidationError); ok {
		msg = ve.Message
	} else if err != nil {
		msg = err.Error()
	}
	AbortWithError(c, http.StatusBadRequest, msg)
}
