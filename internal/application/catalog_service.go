package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-shop/internal/domain/apperror"
	"github.com/oksasatya/go-ddd-shop/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-shop/internal/domain/repository"
	"github.com/oksasatya/go-ddd-shop/pkg/helpers"
	"github.com/oksasatya/go-ddd-shop/pkg/validation"
)

// ImageStore persists uploaded product images and returns their public URL.
type ImageStore interface {
	Put(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

const defaultMaxImageBytes = 1 << 20

// CatalogService is a thin layer over the product and category stores. It also
// keeps the product cache used by cart reads and the search index in step.
type CatalogService struct {
	Products      repo.ProductRepository
	Categories    repo.CategoryRepository
	Redis         *redis.Client
	CacheTTL      time.Duration
	ES            *elasticsearch.Client
	ESIndex       string
	Images        ImageStore
	MaxImageBytes int64
	Logger        *logrus.Logger
	now           func() time.Time
}

func NewCatalogService(products repo.ProductRepository, categories repo.CategoryRepository, logger *logrus.Logger) *CatalogService {
	return &CatalogService{
		Products:      products,
		Categories:    categories,
		Logger:        logger,
		MaxImageBytes: defaultMaxImageBytes,
		now:           time.Now,
	}
}

// WithCache enables the Redis product cache.
func (s *CatalogService) WithCache(rdb *redis.Client, ttl time.Duration) *CatalogService {
	s.Redis = rdb
	s.CacheTTL = ttl
	return s
}

// WithSearch enables Elasticsearch indexing and search. A nil client keeps the in-store fallback.
func (s *CatalogService) WithSearch(es *elasticsearch.Client, index string) *CatalogService {
	s.ES = es
	s.ESIndex = index
	return s
}

func (s *CatalogService) WithImages(store ImageStore, maxBytes int64) *CatalogService {
	s.Images = store
	if maxBytes > 0 {
		s.MaxImageBytes = maxBytes
	}
	return s
}

func (s *CatalogService) log() *logrus.Logger {
	if s.Logger == nil {
		return logrus.StandardLogger()
	}
	return s.Logger
}

type ProductInput struct {
	Name             string  `json:"name" binding:"required"`
	ShortDescription string  `json:"shortDescription"`
	Description      string  `json:"description" binding:"required"`
	Image            string  `json:"image" binding:"omitempty,url"`
	Brand            string  `json:"brand"`
	Price            float64 `json:"price" binding:"gte=0"`
	CategoryID       string  `json:"category" binding:"required,uuid"`
	CountInStock     int     `json:"countInStock" binding:"gte=0,lte=255"`
	Rating           float64 `json:"rating" binding:"gte=0,lte=5"`
	Reviews          int     `json:"reviews" binding:"gte=0"`
	IsFeatured       bool    `json:"isFeatured"`
}

type CategoryInput struct {
	Name  string `json:"name" binding:"required"`
	Icon  string `json:"icon"`
	Color string `json:"color" binding:"omitempty,hexcolor"`
}

func productCacheKey(id string) string {
	return "product:" + id
}

func (s *CatalogService) checkCategory(ctx context.Context, id string) error {
	_, err := s.Categories.GetByID(ctx, id)
	if errors.Is(err, apperror.ErrNotFound) {
		return apperror.New(apperror.KindValidation, "invalid category")
	}
	return err
}

func (s *CatalogService) ListProducts(ctx context.Context, categoryIDs []string) ([]entity.Product, error) {
	return s.Products.List(ctx, categoryIDs)
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (*entity.Product, error) {
	return s.LookupProduct(ctx, id)
}

// LookupProduct reads through the Redis cache when one is configured.
// Cache failures are logged and fall back to the store.
func (s *CatalogService) LookupProduct(ctx context.Context, id string) (*entity.Product, error) {
	key := productCacheKey(id)
	if s.Redis != nil {
		var cached entity.Product
		hit, err := helpers.RedisGetJSON(ctx, s.Redis, key, &cached)
		if err != nil {
			s.log().WithError(err).WithField("key", key).Warn("product cache read failed")
		} else if hit {
			return &cached, nil
		}
	}
	p, err := s.Products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Redis != nil {
		if err := helpers.RedisSetJSON(ctx, s.Redis, key, p, s.CacheTTL); err != nil {
			s.log().WithError(err).WithField("key", key).Warn("product cache write failed")
		}
	}
	return p, nil
}

func (s *CatalogService) invalidate(ctx context.Context, id string) {
	if s.Redis == nil {
		return
	}
	if err := helpers.RedisDel(ctx, s.Redis, productCacheKey(id)); err != nil {
		s.log().WithError(err).WithField("product_id", id).Warn("product cache invalidation failed")
	}
}

func (s *CatalogService) CountProducts(ctx context.Context) (int, error) {
	all, err := s.Products.List(ctx, nil)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

// FeaturedProducts returns featured products; limit <= 0 means no limit.
func (s *CatalogService) FeaturedProducts(ctx context.Context, limit int) ([]entity.Product, error) {
	all, err := s.Products.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Product, 0)
	for _, p := range all {
		if !p.IsFeatured {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func productFromInput(in ProductInput) *entity.Product {
	return &entity.Product{
		Name:             strings.TrimSpace(in.Name),
		ShortDescription: in.ShortDescription,
		Description:      in.Description,
		Image:            in.Image,
		Brand:            in.Brand,
		Price:            in.Price,
		CategoryID:       in.CategoryID,
		CountInStock:     in.CountInStock,
		Rating:           in.Rating,
		Reviews:          in.Reviews,
		IsFeatured:       in.IsFeatured,
	}
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*entity.Product, error) {
	if err := validation.Struct(in); err != nil {
		return nil, invalid("invalid product", err)
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}
	p := productFromInput(in)
	if err := s.Products.Create(ctx, p); err != nil {
		return nil, err
	}
	s.indexProduct(ctx, p)
	return p, nil
}

// UpdateProduct replaces every field of the product. An empty image keeps the current one.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, in ProductInput) (*entity.Product, error) {
	if err := validation.Struct(in); err != nil {
		return nil, invalid("invalid product", err)
	}
	current, err := s.Products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}
	p := productFromInput(in)
	p.ID = current.ID
	p.CreatedAt = current.CreatedAt
	if p.Image == "" {
		p.Image = current.Image
	}
	if err := s.Products.Update(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	s.indexProduct(ctx, p)
	return p, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.Products.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	s.unindexProduct(ctx, id)
	return nil
}

var unsafeNameChars = regexp.MustCompile(`[ ,.]`)

// UploadProductImage stores a png/jpg/jpeg image for the product and points the product at it.
func (s *CatalogService) UploadProductImage(ctx context.Context, productID, filename, contentType string, size int64, r io.Reader) (*entity.Product, error) {
	if s.Images == nil {
		return nil, apperror.New(apperror.KindServiceUnavailable, "image storage is not configured")
	}
	ext, ok := helpers.ImageExtensions[contentType]
	if !ok {
		return nil, apperror.New(apperror.KindValidation, "only .png, .jpg and .jpeg images are allowed")
	}
	if size > s.MaxImageBytes {
		return nil, apperror.Newf(apperror.KindValidation, "image exceeds %d bytes", s.MaxImageBytes)
	}
	p, err := s.Products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	base := unsafeNameChars.ReplaceAllString(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)), "-")
	objectPath := fmt.Sprintf("products/%s/%s-%d.%s", p.CategoryID, base, s.now().UnixMilli(), ext)
	// one extra byte lets a lying size header still be caught
	body, err := io.ReadAll(io.LimitReader(r, s.MaxImageBytes+1))
	if err != nil {
		return nil, apperror.Wrap(apperror.KindValidation, "read upload", err)
	}
	if int64(len(body)) > s.MaxImageBytes {
		return nil, apperror.Newf(apperror.KindValidation, "image exceeds %d bytes", s.MaxImageBytes)
	}
	url, err := s.Images.Put(ctx, objectPath, contentType, bytes.NewReader(body))
	if err != nil {
		s.log().WithError(err).WithField("product_id", productID).Warn("image upload failed")
		return nil, apperror.Wrap(apperror.KindServiceUnavailable, "upload image", err)
	}

	p.Image = url
	if err := s.Products.Update(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx, productID)
	s.indexProduct(ctx, p)
	return p, nil
}

// productDoc is the search document shape.
type productDoc struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	ShortDescription string    `json:"shortDescription"`
	Description      string    `json:"description"`
	Brand            string    `json:"brand"`
	CategoryID       string    `json:"category"`
	Price            float64   `json:"price"`
	IsFeatured       bool      `json:"isFeatured"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (s *CatalogService) indexProduct(ctx context.Context, p *entity.Product) {
	if s.ES == nil || s.ESIndex == "" {
		return
	}
	b, _ := json.Marshal(productDoc{
		ID:               p.ID,
		Name:             p.Name,
		ShortDescription: p.ShortDescription,
		Description:      p.Description,
		Brand:            p.Brand,
		CategoryID:       p.CategoryID,
		Price:            p.Price,
		IsFeatured:       p.IsFeatured,
		UpdatedAt:        p.UpdatedAt,
	})
	req := esapi.IndexRequest{Index: s.ESIndex, DocumentID: p.ID, Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		s.log().WithError(err).WithField("product_id", p.ID).Warn("es index failed")
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		s.log().WithField("status", res.Status()).WithField("product_id", p.ID).Warn("es index response error")
	}
}

func (s *CatalogService) unindexProduct(ctx context.Context, id string) {
	if s.ES == nil || s.ESIndex == "" {
		return
	}
	req := esapi.DeleteRequest{Index: s.ESIndex, DocumentID: id}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		s.log().WithError(err).WithField("product_id", id).Warn("es delete failed")
		return
	}
	_ = res.Body.Close()
}

// SearchProducts runs a multi_match query over name, brand and descriptions.
// Without Elasticsearch it falls back to a substring match over the store.
func (s *CatalogService) SearchProducts(ctx context.Context, q string, size int) ([]entity.Product, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperror.New(apperror.KindValidation, "query is required")
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	if s.ES == nil || s.ESIndex == "" {
		return s.searchStore(ctx, q, size)
	}

	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"name^3", "brand^2", "shortDescription", "description"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(s.ES.Search.WithContext(c), s.ES.Search.WithIndex(s.ESIndex), s.ES.Search.WithBody(bytes.NewReader(b)))
	if err != nil {
		return nil, apperror.Wrap(apperror.KindServiceUnavailable, "search products", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, apperror.Newf(apperror.KindServiceUnavailable, "search products: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "decode search response", err)
	}

	// the index only ranks; product data comes from the store so stale documents drop out
	out := make([]entity.Product, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		p, err := s.LookupProduct(ctx, h.ID)
		if errors.Is(err, apperror.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

func (s *CatalogService) searchStore(ctx context.Context, q string, size int) ([]entity.Product, error) {
	all, err := s.Products.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(q)
	out := make([]entity.Product, 0)
	for _, p := range all {
		hay := strings.ToLower(p.Name + " " + p.Brand + " " + p.ShortDescription + " " + p.Description)
		if strings.Contains(hay, needle) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.Contains(strings.ToLower(out[i].Name), needle) && !strings.Contains(strings.ToLower(out[j].Name), needle)
	})
	if len(out) > size {
		out = out[:size]
	}
	return out, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]entity.Category, error) {
	return s.Categories.List(ctx)
}

func (s *CatalogService) GetCategory(ctx context.Context, id string) (*entity.Category, error) {
	return s.Categories.GetByID(ctx, id)
}

func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (*entity.Category, error) {
	if err := validation.Struct(in); err != nil {
		return nil, invalid("invalid category", err)
	}
	c := &entity.Category{Name: strings.TrimSpace(in.Name), Icon: in.Icon, Color: in.Color}
	if err := s.Categories.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCategory fails with a validation error while products still use the category.
func (s *CatalogService) DeleteCategory(ctx context.Context, id string) error {
	return s.Categories.Delete(ctx, id)
}
