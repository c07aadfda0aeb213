package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-ddd-shop/internal/domain/apperror"
	"github.com/oksasatya/go-ddd-shop/internal/domain/entity"
	"github.com/oksasatya/go-ddd-shop/internal/domain/repository"
)

var (
	errProductNotFound  = apperror.New(apperror.KindNotFound, "product not found")
	errCategoryNotFound = apperror.New(apperror.KindNotFound, "category not found")
)

const productColumns = `id, name, short_description, description, image, brand, price::float8, category_id,
	count_in_stock, rating::float8, reviews, is_featured, created_at, updated_at`

type ProductRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

func NewProductRepository(pool *pgxpool.Pool, timeout time.Duration) *ProductRepository {
	return &ProductRepository{pool: pool, timeout: timeout}
}

func scanProduct(row pgx.Row) (*entity.Product, error) {
	p := &entity.Product{}
	if err := row.Scan(&p.ID, &p.Name, &p.ShortDescription, &p.Description, &p.Image, &p.Brand, &p.Price,
		&p.CategoryID, &p.CountInStock, &p.Rating, &p.Reviews, &p.IsFeatured, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ProductRepository) Create(ctx context.Context, p *entity.Product) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO products (name, short_description, description, image, brand, price, category_id,
			count_in_stock, rating, reviews, is_featured)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`, p.Name, p.ShortDescription, p.Description, p.Image, p.Brand, p.Price, p.CategoryID,
		p.CountInStock, p.Rating, p.Reviews, p.IsFeatured)
	if err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if isForeignKeyViolation(err) {
			return errCategoryNotFound
		}
		return mapError("products.create", err, errProductNotFound)
	}
	return nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		return nil, mapError("products.get", err, errProductNotFound)
	}
	return p, nil
}

func (r *ProductRepository) List(ctx context.Context, categoryIDs []string) ([]entity.Product, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var (
		rows pgx.Rows
		err  error
	)
	if len(categoryIDs) > 0 {
		rows, err = r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE category_id = ANY($1::uuid[]) ORDER BY created_at`, categoryIDs)
	} else {
		rows, err = r.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at`)
	}
	if err != nil {
		return nil, mapError("products.list", err, errCategoryNotFound)
	}
	defer rows.Close()

	out := make([]entity.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, mapError("products.list", err, errProductNotFound)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("products.list", err, errCategoryNotFound)
	}
	return out, nil
}

func (r *ProductRepository) Update(ctx context.Context, p *entity.Product) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	err := r.pool.QueryRow(ctx, `
		UPDATE products SET
			name = $2, short_description = $3, description = $4, image = $5, brand = $6, price = $7,
			category_id = $8, count_in_stock = $9, rating = $10, reviews = $11, is_featured = $12,
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, p.ID, p.Name, p.ShortDescription, p.Description, p.Image, p.Brand, p.Price,
		p.CategoryID, p.CountInStock, p.Rating, p.Reviews, p.IsFeatured).Scan(&p.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return errCategoryNotFound
		}
		return mapError("products.update", err, errProductNotFound)
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return mapError("products.delete", err, errProductNotFound)
	}
	if res.RowsAffected() == 0 {
		return errProductNotFound
	}
	return nil
}

type CategoryRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

func NewCategoryRepository(pool *pgxpool.Pool, timeout time.Duration) *CategoryRepository {
	return &CategoryRepository{pool: pool, timeout: timeout}
}

func (r *CategoryRepository) Create(ctx context.Context, c *entity.Category) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	err := r.pool.QueryRow(ctx, `
		INSERT INTO categories (name, icon, color) VALUES ($1, $2, $3) RETURNING id
	`, c.Name, c.Icon, c.Color).Scan(&c.ID)
	return mapError("categories.create", err, errCategoryNotFound)
}

func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*entity.Category, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	c := &entity.Category{}
	err := r.pool.QueryRow(ctx, `SELECT id, name, icon, color FROM categories WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Icon, &c.Color)
	if err != nil {
		return nil, mapError("categories.get", err, errCategoryNotFound)
	}
	return c, nil
}

func (r *CategoryRepository) List(ctx context.Context) ([]entity.Category, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `SELECT id, name, icon, color FROM categories ORDER BY name`)
	if err != nil {
		return nil, mapError("categories.list", err, errCategoryNotFound)
	}
	defer rows.Close()

	out := make([]entity.Category, 0)
	for rows.Next() {
		var c entity.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.Color); err != nil {
			return nil, mapError("categories.list", err, errCategoryNotFound)
		}
		out = append(out, c)
	}
	return out, mapError("categories.list", rows.Err(), errCategoryNotFound)
}

// Delete fails with a validation error while products still reference the category.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.New(apperror.KindValidation, "category still has products")
		}
		return mapError("categories.delete", err, errCategoryNotFound)
	}
	if res.RowsAffected() == 0 {
		return errCategoryNotFound
	}
	return nil
}

var (
	_ repository.ProductRepository  = (*ProductRepository)(nil)
	_ repository.CategoryRepository = (*CategoryRepository)(nil)
)
