package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-shop/internal/container"
	handlers "github.com/oksasatya/go-ddd-shop/internal/interface/http"
	"github.com/oksasatya/go-ddd-shop/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-shop/pkg/helpers"
)

// CartModule wires cart and wishlist routes under /api/users/:id, self or admin only.
type CartModule struct {
	Handler *handlers.CartHandler
	JWT     *helpers.JWTManager
}

func NewCartModule(h *handlers.CartHandler, jwt *helpers.JWTManager) *CartModule {
	return &CartModule{Handler: h, JWT: jwt}
}

func (m *CartModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/users/:id")
	g.Use(
		middleware.Auth(m.JWT),
		middleware.SelfOrAdmin("id"),
		middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByUserID(), middleware.AllowAdmin()),
	)
	{
		g.GET("/cart", m.Handler.GetCart)
		g.POST("/cart", m.Handler.AddToCart)
		g.POST("/cart/:productId", m.Handler.AdjustQuantity)
		g.DELETE("/cart/:productId", m.Handler.RemoveFromCart)

		g.GET("/wishlist", m.Handler.GetWishlist)
		g.POST("/wishlist", m.Handler.AddToWishlist)
		g.DELETE("/wishlist/:productId", m.Handler.RemoveFromWishlist)
	}
}
