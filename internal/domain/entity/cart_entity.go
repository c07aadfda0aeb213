package entity

import "time"

// MaxCartQuantity caps a single cart line. Adjustments are bounded by the same
// value in either direction.
const MaxCartQuantity = 10000

// CartLine is one product/quantity pair in a user's cart. Quantity is always >= 1.
type CartLine struct {
	ProductID string
	Quantity  int
	AddedAt   time.Time
}

// WishlistLine marks a product as present in a user's wishlist.
type WishlistLine struct {
	ProductID string
	AddedAt   time.Time
}

// ResolvedCartLine is a cart line with its product looked up at read time.
// Product is nil when the referenced product no longer exists.
type ResolvedCartLine struct {
	CartLine
	Product *Product
}

type ResolvedWishlistLine struct {
	WishlistLine
	Product *Product
}
