package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-shop/internal/container"
	handlers "github.com/oksasatya/go-ddd-shop/internal/interface/http"
	"github.com/oksasatya/go-ddd-shop/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-shop/pkg/helpers"
)

// CatalogModule wires product and category routes. Reads are public, writes are admin only.
type CatalogModule struct {
	Handler *handlers.CatalogHandler
	JWT     *helpers.JWTManager
}

func NewCatalogModule(h *handlers.CatalogHandler, jwt *helpers.JWTManager) *CatalogModule {
	return &CatalogModule{Handler: h, JWT: jwt}
}

func (m *CatalogModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	public := rg.Group("/")
	public.Use(middleware.RateLimit(rdb, 300, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP()))
	{
		public.GET("/products", m.Handler.ListProducts)
		public.GET("/products/search", m.Handler.SearchProducts)
		public.GET("/products/count", m.Handler.CountProducts)
		public.GET("/products/featured", m.Handler.FeaturedProducts)
		public.GET("/products/:id", m.Handler.GetProduct)
		public.GET("/categories", m.Handler.ListCategories)
		public.GET("/categories/:id", m.Handler.GetCategory)
	}

	admin := rg.Group("/")
	admin.Use(middleware.Auth(m.JWT), middleware.AdminOnly())
	{
		admin.POST("/products", m.Handler.CreateProduct)
		admin.PUT("/products/:id", m.Handler.UpdateProduct)
		admin.DELETE("/products/:id", m.Handler.DeleteProduct)
		admin.POST("/products/:id/image", m.Handler.UploadImage)
		admin.POST("/categories", m.Handler.CreateCategory)
		admin.DELETE("/categories/:id", m.Handler.DeleteCategory)
	}
}
