package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-shop/internal/domain/apperror"
	"github.com/oksasatya/go-ddd-shop/pkg/helpers"
	"github.com/oksasatya/go-ddd-shop/pkg/response"
)

var errMissingToken = apperror.New(apperror.KindInvalidToken, "missing bearer token")

// Auth validates the bearer token and sets userID and isAdmin in the Gin context.
func Auth(jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.FromError(c, errMissingToken)
			c.Abort()
			return
		}
		claims, err := jwt.ParseToken(token)
		if err != nil {
			response.FromError(c, err)
			c.Abort()
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// AdminOnly must run after Auth.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			response.FromError(c, apperror.New(apperror.KindForbidden, "admin access required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// SelfOrAdmin lets a user act on their own resources, named by the route
// parameter param, and admins act on anyone's. Must run after Auth.
func SelfOrAdmin(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxUserIDKey) == c.Param(param) || IsAdmin(c) {
			c.Next()
			return
		}
		response.FromError(c, apperror.New(apperror.KindForbidden, "not allowed to access this user"))
		c.Abort()
	}
}
