package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-shop/internal/domain/apperror"
	"github.com/oksasatya/go-ddd-shop/internal/domain/entity"
	"github.com/oksasatya/go-ddd-shop/internal/domain/repository"
)

var (
	errProductNotFound  = apperror.New(apperror.KindNotFound, "product not found")
	errCategoryNotFound = apperror.New(apperror.KindNotFound, "category not found")
)

type CatalogStore struct {
	mu         sync.RWMutex
	products   map[string]entity.Product
	categories map[string]entity.Category
}

func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		products:   make(map[string]entity.Product),
		categories: make(map[string]entity.Category),
	}
}

// Products and Categories expose the store through the two repository contracts.
func (s *CatalogStore) Products() repository.ProductRepository   { return productView{s} }
func (s *CatalogStore) Categories() repository.CategoryRepository { return categoryView{s} }

type productView struct{ s *CatalogStore }

func (v productView) Create(ctx context.Context, p *entity.Product) error {
	if err := live(ctx, "products.create"); err != nil {
		return err
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.categories[p.CategoryID]; !ok {
		return errCategoryNotFound
	}
	now := time.Now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt, p.UpdatedAt = now, now
	v.s.products[p.ID] = *p
	return nil
}

func (v productView) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	if err := live(ctx, "products.get"); err != nil {
		return nil, err
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	p, ok := v.s.products[id]
	if !ok {
		return nil, errProductNotFound
	}
	return &p, nil
}

func (v productView) List(ctx context.Context, categoryIDs []string) ([]entity.Product, error) {
	if err := live(ctx, "products.list"); err != nil {
		return nil, err
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	want := make(map[string]bool, len(categoryIDs))
	for _, id := range categoryIDs {
		want[id] = true
	}
	out := make([]entity.Product, 0, len(v.s.products))
	for _, p := range v.s.products {
		if len(want) == 0 || want[p.CategoryID] {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (v productView) Update(ctx context.Context, p *entity.Product) error {
	if err := live(ctx, "products.update"); err != nil {
		return err
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.products[p.ID]; !ok {
		return errProductNotFound
	}
	if _, ok := v.s.categories[p.CategoryID]; !ok {
		return errCategoryNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	v.s.products[p.ID] = *p
	return nil
}

func (v productView) Delete(ctx context.Context, id string) error {
	if err := live(ctx, "products.delete"); err != nil {
		return err
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.products[id]; !ok {
		return errProductNotFound
	}
	delete(v.s.products, id)
	return nil
}

type categoryView struct{ s *CatalogStore }

func (v categoryView) Create(ctx context.Context, c *entity.Category) error {
	if err := live(ctx, "categories.create"); err != nil {
		return err
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	c.ID = uuid.NewString()
	v.s.categories[c.ID] = *c
	return nil
}

func (v categoryView) GetByID(ctx context.Context, id string) (*entity.Category, error) {
	if err := live(ctx, "categories.get"); err != nil {
		return nil, err
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	c, ok := v.s.categories[id]
	if !ok {
		return nil, errCategoryNotFound
	}
	return &c, nil
}

func (v categoryView) List(ctx context.Context) ([]entity.Category, error) {
	if err := live(ctx, "categories.list"); err != nil {
		return nil, err
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	out := make([]entity.Category, 0, len(v.s.categories))
	for _, c := range v.s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (v categoryView) Delete(ctx context.Context, id string) error {
	if err := live(ctx, "categories.delete"); err != nil {
		return err
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.categories[id]; !ok {
		return errCategoryNotFound
	}
	for _, p := range v.s.products {
		if p.CategoryID == id {
			return apperror.New(apperror.KindValidation, "category still has products")
		}
	}
	delete(v.s.categories, id)
	return nil
}
