package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-shop/internal/application"
	"github.com/oksasatya/go-ddd-shop/internal/domain/entity"
	"github.com/oksasatya/go-ddd-shop/pkg/response"
)

// CartHandler serves /users/:id/cart and /users/:id/wishlist. Every mutation
// answers with the whole updated collection.
type CartHandler struct {
	Svc    *application.CartService
	Logger *logrus.Logger
}

func NewCartHandler(svc *application.CartService, logger *logrus.Logger) *CartHandler {
	return &CartHandler{Svc: svc, Logger: logger}
}

type productRefRequest struct {
	Product string `json:"product" binding:"required"`
}

type adjustQuantityRequest struct {
	Count int `json:"count" binding:"required,min=-10000,max=10000"`
}

func (h *CartHandler) cart(c *gin.Context, lines []entity.ResolvedCartLine, err error, message string) {
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toCartResponse(c.Param("id"), lines), message, nil)
}

func (h *CartHandler) wishlist(c *gin.Context, lines []entity.ResolvedWishlistLine, err error, message string) {
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toWishlistResponse(c.Param("id"), lines), message, nil)
}

func (h *CartHandler) GetCart(c *gin.Context) {
	lines, err := h.Svc.ReadCart(c.Request.Context(), c.Param("id"))
	h.cart(c, lines, err, "cart")
}

func (h *CartHandler) AddToCart(c *gin.Context) {
	var req productRefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	lines, err := h.Svc.AddToCart(c.Request.Context(), c.Param("id"), req.Product)
	h.cart(c, lines, err, "product added to cart")
}

// AdjustQuantity applies a signed count to an existing cart line.
func (h *CartHandler) AdjustQuantity(c *gin.Context) {
	var req adjustQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	lines, err := h.Svc.AdjustCartQuantity(c.Request.Context(), c.Param("id"), c.Param("productId"), req.Count)
	h.cart(c, lines, err, "cart quantity updated")
}

func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	lines, err := h.Svc.RemoveFromCart(c.Request.Context(), c.Param("id"), c.Param("productId"))
	h.cart(c, lines, err, "product removed from cart")
}

func (h *CartHandler) GetWishlist(c *gin.Context) {
	lines, err := h.Svc.ReadWishlist(c.Request.Context(), c.Param("id"))
	h.wishlist(c, lines, err, "wishlist")
}

func (h *CartHandler) AddToWishlist(c *gin.Context) {
	var req productRefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	lines, err := h.Svc.AddToWishlist(c.Request.Context(), c.Param("id"), req.Product)
	h.wishlist(c, lines, err, "product added to wishlist")
}

func (h *CartHandler) RemoveFromWishlist(c *gin.Context) {
	lines, err := h.Svc.RemoveFromWishlist(c.Request.Context(), c.Param("id"), c.Param("productId"))
	h.wishlist(c, lines, err, "product removed from wishlist")
}
