// Package memory is a process-local implementation of the repositories.
// It backs tests and local runs without Postgres.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-shop/internal/domain/apperror"
	"github.com/oksasatya/go-ddd-shop/internal/domain/entity"
	"github.com/oksasatya/go-ddd-shop/internal/domain/repository"
)

var (
	errUserNotFound         = apperror.New(apperror.KindNotFound, "user not found")
	errCartLineNotFound     = apperror.New(apperror.KindNotFound, "product not found in cart")
	errWishlistLineNotFound = apperror.New(apperror.KindNotFound, "product not found in wishlist")
	errCartDuplicate        = apperror.New(apperror.KindDuplicateItem, "product is already in cart")
	errWishlistDuplicate    = apperror.New(apperror.KindDuplicateItem, "product is already in wishlist")
)

// userDoc is the stored shape: the user with its embedded collections.
type userDoc struct {
	user     entity.User
	cart     []entity.CartLine
	wishlist []entity.WishlistLine
}

// UserStore keeps users in a map. mu guards the maps themselves; cart and
// wishlist read-modify-write sequences additionally hold the per-user lock
// from locks so two mutations of one user never interleave.
type UserStore struct {
	mu      sync.RWMutex
	byID    map[string]*userDoc
	byEmail map[string]string
	locks   *KeyedMutex
	now     func() time.Time
}

func NewUserStore() *UserStore {
	return &UserStore{
		byID:    make(map[string]*userDoc),
		byEmail: make(map[string]string),
		locks:   NewKeyedMutex(),
		now:     time.Now,
	}
}

func cloneUser(u entity.User) *entity.User {
	u.AddressIDs = append([]string{}, u.AddressIDs...)
	return &u
}

// live reports a cancelled or expired ctx the way the postgres repositories do.
func live(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return apperror.Wrap(apperror.KindServiceUnavailable, op, err)
	}
	return nil
}

func (s *UserStore) Create(ctx context.Context, u *entity.User) error {
	if err := live(ctx, "users.create"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(u.Email)
	if _, taken := s.byEmail[email]; taken {
		return apperror.ErrDuplicateEmail
	}
	now := s.now().UTC()
	u.ID = uuid.NewString()
	u.Email = email
	u.CreatedAt, u.UpdatedAt = now, now
	if u.AddressIDs == nil {
		u.AddressIDs = []string{}
	}
	s.byID[u.ID] = &userDoc{user: *cloneUser(*u)}
	s.byEmail[email] = u.ID
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if err := live(ctx, "users.get"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.byID[id]
	if !ok {
		return nil, errUserNotFound
	}
	return cloneUser(doc.user), nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	if err := live(ctx, "users.get_by_email"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, errUserNotFound
	}
	return cloneUser(s.byID[id].user), nil
}

func (s *UserStore) List(ctx context.Context) ([]entity.User, error) {
	if err := live(ctx, "users.list"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.User, 0, len(s.byID))
	for _, doc := range s.byID {
		out = append(out, *cloneUser(doc.user))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *UserStore) Update(ctx context.Context, id string, patch entity.UserPatch) (*entity.User, error) {
	if err := live(ctx, "users.update"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.byID[id]
	if !ok {
		return nil, errUserNotFound
	}
	updated := *cloneUser(doc.user)
	patch.Apply(&updated)
	updated.Email = strings.ToLower(updated.Email)
	if updated.Email != doc.user.Email {
		if _, taken := s.byEmail[updated.Email]; taken {
			return nil, apperror.ErrDuplicateEmail
		}
		delete(s.byEmail, doc.user.Email)
		s.byEmail[updated.Email] = id
	}
	updated.UpdatedAt = s.now().UTC()
	doc.user = updated
	return cloneUser(updated), nil
}

func (s *UserStore) Delete(ctx context.Context, id string) error {
	if err := live(ctx, "users.delete"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.byID[id]
	if !ok {
		return errUserNotFound
	}
	delete(s.byEmail, doc.user.Email)
	delete(s.byID, id)
	return nil
}

// mutate runs fn on the user's document under the per-user lock. fn works on
// copies and returns the collections to store; an error leaves the stored
// document untouched.
func (s *UserStore) mutate(ctx context.Context, op, userID string, fn func(doc userDoc) (userDoc, error)) error {
	if err := live(ctx, op); err != nil {
		return err
	}
	unlock := s.locks.Lock(userID)
	defer unlock()
	// the wait for the user lock may have outlived the caller
	if err := live(ctx, op); err != nil {
		return err
	}

	s.mu.RLock()
	doc, ok := s.byID[userID]
	var snapshot userDoc
	if ok {
		snapshot = userDoc{
			user:     doc.user,
			cart:     append([]entity.CartLine(nil), doc.cart...),
			wishlist: append([]entity.WishlistLine(nil), doc.wishlist...),
		}
	}
	s.mu.RUnlock()
	if !ok {
		return errUserNotFound
	}

	next, err := fn(snapshot)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byID[userID]
	if !ok {
		// deleted while we held the user lock
		return errUserNotFound
	}
	cur.cart = next.cart
	cur.wishlist = next.wishlist
	return nil
}

func (s *UserStore) AddCartLine(ctx context.Context, userID, productID string) error {
	return s.mutate(ctx, "cart.add", userID, func(doc userDoc) (userDoc, error) {
		for _, l := range doc.cart {
			if l.ProductID == productID {
				return doc, errCartDuplicate
			}
		}
		doc.cart = append(doc.cart, entity.CartLine{ProductID: productID, Quantity: 1, AddedAt: s.now().UTC()})
		return doc, nil
	})
}

func (s *UserStore) AdjustCartLine(ctx context.Context, userID, productID string, delta int) (entity.CartLine, error) {
	var result entity.CartLine
	err := s.mutate(ctx, "cart.adjust", userID, func(doc userDoc) (userDoc, error) {
		for i, l := range doc.cart {
			if l.ProductID != productID {
				continue
			}
			if delta > entity.MaxCartQuantity-l.Quantity {
				return doc, apperror.Newf(apperror.KindInvalidQuantity, "product quantity cannot exceed %d", entity.MaxCartQuantity)
			}
			next := l.Quantity + delta
			if next <= 0 {
				return doc, apperror.Newf(apperror.KindInvalidQuantity, "product quantity cannot drop to %d", next)
			}
			doc.cart[i].Quantity = next
			result = doc.cart[i]
			return doc, nil
		}
		return doc, errCartLineNotFound
	})
	if err != nil {
		return entity.CartLine{}, err
	}
	return result, nil
}

func (s *UserStore) RemoveCartLine(ctx context.Context, userID, productID string) error {
	err := s.mutate(ctx, "cart.remove", userID, func(doc userDoc) (userDoc, error) {
		for i, l := range doc.cart {
			if l.ProductID == productID {
				doc.cart = append(doc.cart[:i], doc.cart[i+1:]...)
				return doc, nil
			}
		}
		return doc, errCartLineNotFound
	})
	if err == errUserNotFound {
		return errCartLineNotFound
	}
	return err
}

func (s *UserStore) CartLines(ctx context.Context, userID string) ([]entity.CartLine, error) {
	if err := live(ctx, "cart.list"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.byID[userID]
	if !ok {
		return []entity.CartLine{}, nil
	}
	return append([]entity.CartLine{}, doc.cart...), nil
}

func (s *UserStore) AddWishlistLine(ctx context.Context, userID, productID string) error {
	return s.mutate(ctx, "wishlist.add", userID, func(doc userDoc) (userDoc, error) {
		for _, l := range doc.wishlist {
			if l.ProductID == productID {
				return doc, errWishlistDuplicate
			}
		}
		doc.wishlist = append(doc.wishlist, entity.WishlistLine{ProductID: productID, AddedAt: s.now().UTC()})
		return doc, nil
	})
}

func (s *UserStore) RemoveWishlistLine(ctx context.Context, userID, productID string) error {
	err := s.mutate(ctx, "wishlist.remove", userID, func(doc userDoc) (userDoc, error) {
		for i, l := range doc.wishlist {
			if l.ProductID == productID {
				doc.wishlist = append(doc.wishlist[:i], doc.wishlist[i+1:]...)
				return doc, nil
			}
		}
		return doc, errWishlistLineNotFound
	})
	if err == errUserNotFound {
		return errWishlistLineNotFound
	}
	return err
}

func (s *UserStore) WishlistLines(ctx context.Context, userID string) ([]entity.WishlistLine, error) {
	if err := live(ctx, "wishlist.list"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.byID[userID]
	if !ok {
		return []entity.WishlistLine{}, nil
	}
	return append([]entity.WishlistLine{}, doc.wishlist...), nil
}

var (
	_ repository.UserRepository = (*UserStore)(nil)
	_ repository.CartRepository = (*UserStore)(nil)
)
