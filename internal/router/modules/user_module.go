package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-shop/internal/container"
	handlers "github.com/oksasatya/go-ddd-shop/internal/interface/http"
	"github.com/oksasatya/go-ddd-shop/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-shop/pkg/helpers"
)

// UserModule wires account routes.
// Public: POST /api/users/register, POST /api/users/login
// Admin: GET /api/users
// Self or admin: GET/PUT/DELETE /api/users/:id
type UserModule struct {
	Handler *handlers.UserHandler
	JWT     *helpers.JWTManager
}

func NewUserModule(h *handlers.UserHandler, jwt *helpers.JWTManager) *UserModule {
	return &UserModule{Handler: h, JWT: jwt}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	registerLimiter := middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByIPAndPath(), nil) // 10 req/min per IP
	loginLimiter := middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByIPAndPath(), nil)

	// a valid admin token lets the caller create admins
	rg.POST("/users/register", registerLimiter, middleware.OptionalAuth(m.JWT), m.Handler.Register)
	rg.POST("/users/login", loginLimiter, m.Handler.Login)

	auth := rg.Group("/users")
	auth.Use(
		middleware.Auth(m.JWT),
		middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByUserID(), middleware.AllowAdmin()),
	)
	{
		auth.GET("", middleware.AdminOnly(), m.Handler.List)
		auth.GET("/:id", middleware.SelfOrAdmin("id"), m.Handler.GetProfile)
		auth.PUT("/:id", middleware.SelfOrAdmin("id"), m.Handler.UpdateProfile)
		auth.DELETE("/:id", middleware.SelfOrAdmin("id"), m.Handler.Delete)
	}
}
