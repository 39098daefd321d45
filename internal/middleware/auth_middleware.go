package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "focusflow/internal/errors"
	"focusflow/internal/model"
	"focusflow/internal/service"
)

const (
	UserIDContextKey = "userID"
	OriginContextKey = "origin"

	// AccessTokenParam carries the token for EventSource clients, which
	// cannot set headers. Only GET requests may use it.
	AccessTokenParam = "access_token"
)

func Auth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, apiErr := bearerToken(c)
		if apiErr != nil {
			writeError(c, apiErr)
			return
		}

		userID, apiErr := authService.ParseToken(token)
		if apiErr != nil {
			writeError(c, apiErr)
			return
		}

		c.Set(UserIDContextKey, userID)
		c.Set(OriginContextKey, strings.TrimSpace(c.GetHeader(model.OriginHeader)))
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, *apperrors.APIError) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if c.Request.Method == http.MethodGet {
			if token := strings.TrimSpace(c.Query(AccessTokenParam)); token != "" {
				return token, nil
			}
		}
		return "", apperrors.Unauthorized("missing authorization header")
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", apperrors.Unauthorized("invalid authorization format")
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", apperrors.Unauthorized("invalid authorization format")
	}
	return token, nil
}

func UserID(c *gin.Context) string {
	return contextString(c, UserIDContextKey)
}

// Origin is the X-FocusFlow-Client id the caller sent, or "".
func Origin(c *gin.Context) string {
	return contextString(c, OriginContextKey)
}

func contextString(c *gin.Context, key string) string {
	value, ok := c.Get(key)
	if !ok {
		return ""
	}
	s, ok := value.(string)
	if !ok {
		return ""
	}
	return s
}

func writeError(c *gin.Context, apiErr *apperrors.APIError) {
	c.AbortWithStatusJSON(apiErr.Status, gin.H{
		"error": gin.H{
			"code":    apiErr.Code,
			"message": apiErr.Message,
			"details": apiErr.Details,
		},
	})
}
