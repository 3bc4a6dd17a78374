package middleware

import (
	"errors"
	"net/http"

	"brandgen-go/internal/access"
	"brandgen-go/internal/auth"
	"brandgen-go/internal/logging"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// JWTAuth requires a valid bearer token and stores the caller's id under
// "user_id".
func JWTAuth(v auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := v.Verify(auth.BearerToken(c.GetHeader("Authorization")))
		if err != nil {
			msg := "Invalid token"
			if errors.Is(err, auth.ErrMissingToken) {
				msg = "Please log in first"
			}
			logging.WithReq(c, log.Fields{"reason": err.Error()}).Warn("authentication failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": msg})
			return
		}
		c.Set("user_id", id.UserID)
		c.Next()
	}
}

// RequireAccess rejects users the checker refuses with 403. Other checker
// errors map to 500.
func RequireAccess(checker access.Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if checker == nil {
			c.Next()
			return
		}
		err := checker.Check(c.Request.Context(), c.GetString("user_id"))
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, access.ErrDenied):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "An active plan is required to use this feature"})
		default:
			logging.WithReq(c, nil).WithError(err).Error("access check failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Access check failed", "error": err.Error()})
		}
	}
}
