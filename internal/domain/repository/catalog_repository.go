package repository

import (
	"context"

	"github.com/oksasatya/go-ddd-shop/internal/domain/entity"
)

type ProductRepository interface {
	Create(ctx context.Context, p *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// List returns all products, or only those in categoryIDs when it is non-empty.
	List(ctx context.Context, categoryIDs []string) ([]entity.Product, error)
	Update(ctx context.Context, p *entity.Product) error
	Delete(ctx context.Context, id string) error
}

type CategoryRepository interface {
	Create(ctx context.Context, c *entity.Category) error
	GetByID(ctx context.Context, id string) (*entity.Category, error)
	List(ctx context.Context) ([]entity.Category, error)
	Delete(ctx context.Context, id string) error
}
