package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-shop/internal/application"
	"github.com/oksasatya/go-ddd-shop/internal/domain/apperror"
	"github.com/oksasatya/go-ddd-shop/pkg/response"
)

type CatalogHandler struct {
	Svc    *application.CatalogService
	Logger *logrus.Logger
}

func NewCatalogHandler(svc *application.CatalogService, logger *logrus.Logger) *CatalogHandler {
	return &CatalogHandler{Svc: svc, Logger: logger}
}

type listProductsQuery struct {
	Category string `form:"category"` // comma-separated category ids
}

type searchQuery struct {
	Q    string `form:"q" binding:"required"`
	Size int    `form:"size" binding:"omitempty,min=1,max=50"`
}

type featuredQuery struct {
	Count int `form:"count" binding:"omitempty,min=0"`
}

func splitIDs(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (h *CatalogHandler) ListProducts(c *gin.Context) {
	var q listProductsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}
	products, err := h.Svc.ListProducts(c.Request.Context(), splitIDs(q.Category))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toProductList(products), "products", nil)
}

func (h *CatalogHandler) GetProduct(c *gin.Context) {
	p, err := h.Svc.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toProductResponse(p), "product", nil)
}

func (h *CatalogHandler) SearchProducts(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}
	products, err := h.Svc.SearchProducts(c.Request.Context(), q.Q, q.Size)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toProductList(products), "search results", nil)
}

func (h *CatalogHandler) CountProducts(c *gin.Context) {
	n, err := h.Svc.CountProducts(c.Request.Context())
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"productCount": n}, "product count", nil)
}

func (h *CatalogHandler) FeaturedProducts(c *gin.Context) {
	var q featuredQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}
	products, err := h.Svc.FeaturedProducts(c.Request.Context(), q.Count)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toProductList(products), "featured products", nil)
}

func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req application.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	p, err := h.Svc.CreateProduct(c.Request.Context(), req)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, toProductResponse(p), "product created", nil)
}

func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	var req application.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	p, err := h.Svc.UpdateProduct(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toProductResponse(p), "product updated", nil)
}

func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	if err := h.Svc.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"deleted": true}, "product has been deleted", nil)
}

// UploadImage accepts a multipart "image" field (png, jpg or jpeg).
func (h *CatalogHandler) UploadImage(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		fail(c, h.Logger, apperror.Wrap(apperror.KindValidation, "image file is required", err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, h.Logger, apperror.Wrap(apperror.KindValidation, "cannot read image", err))
		return
	}
	defer func() { _ = f.Close() }()

	p, err := h.Svc.UploadProductImage(c.Request.Context(), c.Param("id"), fh.Filename, fh.Header.Get("Content-Type"), fh.Size, f)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toProductResponse(p), "image uploaded", nil)
}

func (h *CatalogHandler) ListCategories(c *gin.Context) {
	cats, err := h.Svc.ListCategories(c.Request.Context())
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	out := make([]categoryResponse, 0, len(cats))
	for i := range cats {
		out = append(out, toCategoryResponse(&cats[i]))
	}
	response.Success(c, http.StatusOK, gin.H{"categories": out, "count": len(out)}, "categories", nil)
}

func (h *CatalogHandler) GetCategory(c *gin.Context) {
	cat, err := h.Svc.GetCategory(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toCategoryResponse(cat), "category", nil)
}

func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req application.CategoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	cat, err := h.Svc.CreateCategory(c.Request.Context(), req)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, toCategoryResponse(cat), "category created", nil)
}

func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	if err := h.Svc.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"deleted": true}, "category has been deleted", nil)
}
