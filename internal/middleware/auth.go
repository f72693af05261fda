package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chatrelay/api/internal/config"
	"chatrelay/api/internal/security"
)

// ClaimsKey is the gin context key the verified session claims are stored
// under for downstream handlers.
const ClaimsKey = "session_claims"

func Auth(cfg *config.AppConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication_required"})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := security.ParseSessionToken(tokenStr, cfg.Security.JWTSecret)
		if err != nil {
			reason := "invalid_token"
			if errors.Is(err, security.ErrExpiredToken) {
				reason = "token_expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": reason})
			return
		}

		c.Set(ClaimsKey, *claims)
		c.Next()
	}
}

// CurrentClaims returns the session claims attached by Auth.
func CurrentClaims(c *gin.Context) (security.SessionClaims, bool) {
	val, exists := c.Get(ClaimsKey)
	if !exists {
		return security.SessionClaims{}, false
	}
	claims, ok := val.(security.SessionClaims)
	return claims, ok
}
