package middleware

import (
	"net/http"
	"strings"

	"github.com/IT-Nick/testbot/internal/domain/dto"
	"github.com/IT-Nick/testbot/internal/infra/auth"
	"github.com/gin-gonic/gin"
)

// JWTAuth пропускает запросы с Bearer-токеном роли admin
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			dto.JsonError(c, http.StatusUnauthorized, "Authorization header is required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			dto.JsonError(c, http.StatusUnauthorized, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := auth.ParseToken(secret, parts[1])
		if err != nil {
			dto.JsonError(c, http.StatusUnauthorized, "Invalid token")
			c.Abort()
			return
		}
		if claims.Role != auth.RoleAdmin {
			dto.JsonError(c, http.StatusForbidden, "Admin role required")
			c.Abort()
			return
		}

		c.Set("subject", claims.Subject)
		c.Next()
	}
}
