package server

import (
	"strings"

	"warehouse-askdb/internal/common/errors"
	"warehouse-askdb/internal/common/validation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDKey = "requestId"

// RequestID attaches a request identifier to the context and response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// PermissionGate restricts querying to the allowed user list. An empty list
// leaves the endpoint open. The caller identifies via the X-User-Email header.
func PermissionGate(allowedUsers []string, errHandler *errors.Handler) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedUsers))
	for _, u := range allowedUsers {
		allowed[strings.ToLower(strings.TrimSpace(u))] = true
	}

	return func(c *gin.Context) {
		if len(allowed) == 0 {
			c.Next()
			return
		}

		email := strings.ToLower(strings.TrimSpace(c.GetHeader("X-User-Email")))
		if email == "" || !validation.ValidateEmail(email) || !allowed[email] {
			status, resp := errHandler.HandleRequestError(
				c.GetString(requestIDKey), errors.NewPermissionDeniedError(email))
			c.AbortWithStatusJSON(status, resp)
			return
		}

		c.Next()
	}
}
