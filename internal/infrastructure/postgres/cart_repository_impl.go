package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-ddd-shop/internal/domain/apperror"
	"github.com/oksasatya/go-ddd-shop/internal/domain/entity"
	"github.com/oksasatya/go-ddd-shop/internal/domain/repository"
)

var (
	errCartLineNotFound     = apperror.New(apperror.KindNotFound, "product not found in cart")
	errWishlistLineNotFound = apperror.New(apperror.KindNotFound, "product not found in wishlist")
	errCartDuplicate        = apperror.New(apperror.KindDuplicateItem, "product is already in cart")
	errWishlistDuplicate    = apperror.New(apperror.KindDuplicateItem, "product is already in wishlist")
)

// CartRepository stores cart and wishlist lines in per-user tables keyed by
// (user_id, product_id). Every mutation is a single statement, so concurrent
// requests for the same user are linearized by Postgres row locking and the
// primary key rather than by application-level read-modify-write.
type CartRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

func NewCartRepository(pool *pgxpool.Pool, timeout time.Duration) *CartRepository {
	return &CartRepository{pool: pool, timeout: timeout}
}

func (r *CartRepository) AddCartLine(ctx context.Context, userID, productID string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.pool.Exec(ctx, `
		INSERT INTO user_cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, product_id) DO NOTHING
	`, userID, productID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return errUserNotFound
		}
		return mapError("cart.add", err, errUserNotFound)
	}
	if res.RowsAffected() == 0 {
		return errCartDuplicate
	}
	return nil
}

// AdjustCartLine only writes when the resulting quantity stays positive.
// When no row is updated a read-only lookup decides between a missing line and
// a rejected quantity.
func (r *CartRepository) AdjustCartLine(ctx context.Context, userID, productID string, delta int) (entity.CartLine, error) {
	// keeps quantity + delta inside int4
	if delta > entity.MaxCartQuantity || delta < -entity.MaxCartQuantity {
		return entity.CartLine{}, apperror.Newf(apperror.KindInvalidQuantity,
			"product quantity cannot change by %d", delta)
	}
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	line := entity.CartLine{ProductID: productID}
	err := r.pool.QueryRow(ctx, `
		UPDATE user_cart_items
		SET quantity = quantity + $3
		WHERE user_id = $1 AND product_id = $2 AND quantity + $3 BETWEEN 1 AND $4
		RETURNING quantity, added_at
	`, userID, productID, delta, entity.MaxCartQuantity).Scan(&line.Quantity, &line.AddedAt)
	if err == nil {
		return line, nil
	}
	mapped := mapError("cart.adjust", err, errCartLineNotFound)
	if mapped != errCartLineNotFound {
		return entity.CartLine{}, mapped
	}

	var current int
	lookup := r.pool.QueryRow(ctx, `
		SELECT quantity FROM user_cart_items WHERE user_id = $1 AND product_id = $2
	`, userID, productID).Scan(&current)
	if lookup != nil {
		return entity.CartLine{}, mapError("cart.adjust", lookup, errCartLineNotFound)
	}
	if current+delta > entity.MaxCartQuantity {
		return entity.CartLine{}, apperror.Newf(apperror.KindInvalidQuantity,
			"product quantity cannot exceed %d", entity.MaxCartQuantity)
	}
	return entity.CartLine{}, apperror.Newf(apperror.KindInvalidQuantity,
		"product quantity cannot drop to %d", current+delta)
}

func (r *CartRepository) RemoveCartLine(ctx context.Context, userID, productID string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.pool.Exec(ctx, `DELETE FROM user_cart_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return mapError("cart.remove", err, errCartLineNotFound)
	}
	if res.RowsAffected() == 0 {
		return errCartLineNotFound
	}
	return nil
}

func (r *CartRepository) CartLines(ctx context.Context, userID string) ([]entity.CartLine, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
		SELECT product_id, quantity, added_at
		FROM user_cart_items
		WHERE user_id = $1
		ORDER BY added_at, product_id
	`, userID)
	if err != nil {
		return nil, mapError("cart.lines", err, errUserNotFound)
	}
	defer rows.Close()

	out := make([]entity.CartLine, 0)
	for rows.Next() {
		var l entity.CartLine
		if err := rows.Scan(&l.ProductID, &l.Quantity, &l.AddedAt); err != nil {
			return nil, mapError("cart.lines", err, errUserNotFound)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("cart.lines", err, errUserNotFound)
	}
	return out, nil
}

func (r *CartRepository) AddWishlistLine(ctx context.Context, userID, productID string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.pool.Exec(ctx, `
		INSERT INTO user_wishlist_items (user_id, product_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, product_id) DO NOTHING
	`, userID, productID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return errUserNotFound
		}
		return mapError("wishlist.add", err, errUserNotFound)
	}
	if res.RowsAffected() == 0 {
		return errWishlistDuplicate
	}
	return nil
}

func (r *CartRepository) RemoveWishlistLine(ctx context.Context, userID, productID string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.pool.Exec(ctx, `DELETE FROM user_wishlist_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return mapError("wishlist.remove", err, errWishlistLineNotFound)
	}
	if res.RowsAffected() == 0 {
		return errWishlistLineNotFound
	}
	return nil
}

func (r *CartRepository) WishlistLines(ctx context.Context, userID string) ([]entity.WishlistLine, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
		SELECT product_id, added_at
		FROM user_wishlist_items
		WHERE user_id = $1
		ORDER BY added_at, product_id
	`, userID)
	if err != nil {
		return nil, mapError("wishlist.lines", err, errUserNotFound)
	}
	defer rows.Close()

	out := make([]entity.WishlistLine, 0)
	for rows.Next() {
		var l entity.WishlistLine
		if err := rows.Scan(&l.ProductID, &l.AddedAt); err != nil {
			return nil, mapError("wishlist.lines", err, errUserNotFound)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("wishlist.lines", err, errUserNotFound)
	}
	return out, nil
}

var _ repository.CartRepository = (*CartRepository)(nil)
