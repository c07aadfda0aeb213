package repository

import (
	"context"

	"github.com/oksasatya/go-ddd-shop/internal/domain/entity"
)

// CartRepository mutates the cart and wishlist embedded in a user.
// Each mutation is linearized per user by the implementation; callers never
// read-then-write these collections themselves.
type CartRepository interface {
	// AddCartLine appends a line with quantity 1. Fails with ErrNotFound if the
	// user is absent and ErrDuplicateItem if the product is already in the cart.
	AddCartLine(ctx context.Context, userID, productID string) error
	// AdjustCartLine adds delta to the line quantity. Fails with ErrNotFound if
	// there is no such line and ErrInvalidQuantity if the result would be <= 0,
	// in which case nothing is written.
	AdjustCartLine(ctx context.Context, userID, productID string, delta int) (entity.CartLine, error)
	RemoveCartLine(ctx context.Context, userID, productID string) error
	CartLines(ctx context.Context, userID string) ([]entity.CartLine, error)

	AddWishlistLine(ctx context.Context, userID, productID string) error
	RemoveWishlistLine(ctx context.Context, userID, productID string) error
	WishlistLines(ctx context.Context, userID string) ([]entity.WishlistLine, error)
}
