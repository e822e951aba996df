package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"erpsite/api/logger"
	"erpsite/api/models"
	"erpsite/api/utils"
)

// Context keys set by AuthRequired.
const (
	CtxUserID    = "user_id"
	CtxUserEmail = "user_email"
	CtxUserRole  = "user_role"
)

// AuthCookie carries the dashboard JWT.
const AuthCookie = "jwt_token"

// AuthRequired admits requests holding a valid dashboard JWT (cookie or bearer header) or the
// shared X-API-KEY. An empty apiKey disables key access.
func AuthRequired(issuer *utils.TokenIssuer, apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader("X-API-KEY"); apiKey != "" && key != "" &&
			subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
			c.Set(CtxUserRole, models.RoleAdmin)
			c.Next()
			return
		}

		tokenString, err := c.Cookie(AuthCookie)
		if err != nil || tokenString == "" {
			tokenString = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
			if tokenString == "" {
				logger.Debug("AuthRequired: no token in cookie or header", "path", c.FullPath())
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: No token provided"})
				return
			}
		}

		claims, err := issuer.Validate(tokenString)
		if err != nil {
			logger.Info("AuthRequired: invalid token", "error", err, "request_id", RequestIDFrom(c))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid or expired token"})
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxUserEmail, claims.Email)
		c.Set(CtxUserRole, claims.Role)
		c.Next()
	}
}
