package common

import (
	"net/http"
	"strings"

	apperrors "brandgen-go/internal/errors"

	"github.com/gin-gonic/gin"
)

// AbortWithAPIError answers with the relay's JSON envelope
// `{"message","error","tip"}` and aborts the request.
func AbortWithAPIError(c *gin.Context, headline string, err *apperrors.APIError) {
	if err == nil {
		err = apperrors.New(http.StatusInternalServerError, "server_error", "server_error", "unknown error")
	}
	c.AbortWithStatusJSON(safeStatus(err.HTTPStatus), err.ToEnvelope(headline))
}

// AbortWithFailure maps any error to the JSON envelope. Errors that are not
// APIErrors become 500s.
func AbortWithFailure(c *gin.Context, headline string, err error) {
	status, env := apperrors.EnvelopeFor(headline, err)
	c.AbortWithStatusJSON(safeStatus(status), env)
}

// AbortWithError answers `{"message": message}`.
func AbortWithError(c *gin.Context, status int, message string) {
	if strings.TrimSpace(message) == "" {
		message = http.StatusText(safeStatus(status))
	}
	c.AbortWithStatusJSON(safeStatus(status), gin.H{"message": message})
}

func safeStatus(status int) int {
	if status >= 400 && status <= 599 {
		return status
	}
	return http.StatusInternalServerError
}

// AbortUpstreamFailure answers 500 with the envelope whatever the upstream
// status was.
func AbortUpstreamFailure(c *gin.Context, headline string, err error) {
	_, env := apperrors.EnvelopeFor(headline, err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, env)
}
