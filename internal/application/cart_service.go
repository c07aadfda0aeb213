package application

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-shop/internal/domain/apperror"
	"github.com/oksasatya/go-ddd-shop/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-shop/internal/domain/repository"
)

// ProductLookup resolves product references held in carts and wishlists.
// It fails with apperror.ErrNotFound when the product does not exist.
type ProductLookup interface {
	LookupProduct(ctx context.Context, id string) (*entity.Product, error)
}

// CartService mutates a user's cart and wishlist. The invariants (one line per
// product, quantity >= 1) are enforced atomically by the CartRepository; the
// service checks references and returns the resolved collection after each change.
type CartService struct {
	Users    repo.UserRepository
	Carts    repo.CartRepository
	Products ProductLookup
	Logger   *logrus.Logger
}

func NewCartService(users repo.UserRepository, carts repo.CartRepository, products ProductLookup, logger *logrus.Logger) *CartService {
	return &CartService{Users: users, Carts: carts, Products: products, Logger: logger}
}

func (s *CartService) log() *logrus.Logger {
	if s.Logger == nil {
		return logrus.StandardLogger()
	}
	return s.Logger
}

func (s *CartService) ensureUser(ctx context.Context, userID string) error {
	_, err := s.Users.GetByID(ctx, userID)
	return err
}

func (s *CartService) ensureProduct(ctx context.Context, productID string) error {
	if productID == "" {
		return apperror.New(apperror.KindValidation, "product is required")
	}
	_, err := s.Products.LookupProduct(ctx, productID)
	return err
}

// resolve returns nil for products that no longer exist.
func (s *CartService) resolve(ctx context.Context, productID string) (*entity.Product, error) {
	p, err := s.Products.LookupProduct(ctx, productID)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, nil
	}
	return p, err
}

func (s *CartService) AddToCart(ctx context.Context, userID, productID string) ([]entity.ResolvedCartLine, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.ensureProduct(ctx, productID); err != nil {
		return nil, err
	}
	if err := s.Carts.AddCartLine(ctx, userID, productID); err != nil {
		return nil, err
	}
	s.log().WithFields(logrus.Fields{"user_id": userID, "product_id": productID}).Debug("cart line added")
	return s.ReadCart(ctx, userID)
}

// AdjustCartQuantity adds delta to an existing line. A result <= 0 is rejected
// and the stored quantity stays as it was.
func (s *CartService) AdjustCartQuantity(ctx context.Context, userID, productID string, delta int) ([]entity.ResolvedCartLine, error) {
	if delta == 0 {
		return nil, apperror.New(apperror.KindValidation, "count must not be zero")
	}
	if delta > entity.MaxCartQuantity || delta < -entity.MaxCartQuantity {
		return nil, apperror.Newf(apperror.KindValidation, "count must be between %d and %d", -entity.MaxCartQuantity, entity.MaxCartQuantity)
	}
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	if _, err := s.Carts.AdjustCartLine(ctx, userID, productID, delta); err != nil {
		return nil, err
	}
	return s.ReadCart(ctx, userID)
}

func (s *CartService) RemoveFromCart(ctx context.Context, userID, productID string) ([]entity.ResolvedCartLine, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.Carts.RemoveCartLine(ctx, userID, productID); err != nil {
		return nil, err
	}
	return s.ReadCart(ctx, userID)
}

func (s *CartService) ReadCart(ctx context.Context, userID string) ([]entity.ResolvedCartLine, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	lines, err := s.Carts.CartLines(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]entity.ResolvedCartLine, 0, len(lines))
	for _, l := range lines {
		p, err := s.resolve(ctx, l.ProductID)
		if err != nil {
			return nil, err
		}
		out = append(out, entity.ResolvedCartLine{CartLine: l, Product: p})
	}
	return out, nil
}

func (s *CartService) AddToWishlist(ctx context.Context, userID, productID string) ([]entity.ResolvedWishlistLine, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.ensureProduct(ctx, productID); err != nil {
		return nil, err
	}
	if err := s.Carts.AddWishlistLine(ctx, userID, productID); err != nil {
		return nil, err
	}
	return s.ReadWishlist(ctx, userID)
}

func (s *CartService) RemoveFromWishlist(ctx context.Context, userID, productID string) ([]entity.ResolvedWishlistLine, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.Carts.RemoveWishlistLine(ctx, userID, productID); err != nil {
		return nil, err
	}
	return s.ReadWishlist(ctx, userID)
}

func (s *CartService) ReadWishlist(ctx context.Context, userID string) ([]entity.ResolvedWishlistLine, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	lines, err := s.Carts.WishlistLines(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]entity.ResolvedWishlistLine, 0, len(lines))
	for _, l := range lines {
		p, err := s.resolve(ctx, l.ProductID)
		if err != nil {
			return nil, err
		}
		out = append(out, entity.ResolvedWishlistLine{WishlistLine: l, Product: p})
	}
	return out, nil
}
