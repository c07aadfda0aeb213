package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-shop/pkg/helpers"
)

const (
	CtxUserIDKey  = "userID"
	CtxIsAdminKey = "isAdmin"
)

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

func setClaims(c *gin.Context, claims *helpers.Claims) {
	c.Set(CtxUserIDKey, claims.UserID)
	c.Set(CtxIsAdminKey, claims.IsAdmin)
}

// OptionalAuth injects the caller's identity when a valid bearer token is
// present and lets anonymous requests through untouched.
func OptionalAuth(jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if claims, err := jwt.ParseToken(token); err == nil {
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}

// IsAdmin reports whether the authenticated caller carries the admin claim.
func IsAdmin(c *gin.Context) bool {
	return c.GetBool(CtxIsAdminKey)
}
