package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yorumine/groupwarden/cache"
	"github.com/yorumine/groupwarden/config"
)

const OperatorIDKey = "operator_id"

// Auth validates the Bearer JWT token and checks the session cache.
func Auth(sec config.SecurityConfig, c cache.Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		claims, err := ParseToken(tokenStr, sec.JWTSecret)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		// Check session still valid in cache.
		sessionKey := "session:" + tokenStr
		cacheCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		exists, err := c.Exists(cacheCtx, sessionKey)
		if err != nil || !exists {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}

		ctx.Set(OperatorIDKey, claims.OperatorID)
		ctx.Next()
	}
}

// GetOperatorID retrieves the authenticated operator ID from the Gin context.
func GetOperatorID(c *gin.Context) int64 {
	if v, exists := c.Get(OperatorIDKey); exists {
		return v.(int64)
	}
	return 0
}

// AdminAuth gates a route group behind the configured admin key. An empty
// key disables the routes entirely.
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if adminKey == "" || ctx.GetHeader("X-Admin-Key") != adminKey {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		ctx.Next()
	}
}
