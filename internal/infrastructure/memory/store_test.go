package memory

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-shop/internal/domain/apperror"
	"github.com/oksasatya/go-ddd-shop/internal/domain/entity"
)

func newUser(t *testing.T, s *UserStore) *entity.User {
	t.Helper()
	u := &entity.User{
		Name:         gofakeit.Name(),
		Email:        gofakeit.Email(),
		PasswordHash: "hash",
		Phone:        gofakeit.Phone(),
	}
	require.NoError(t, s.Create(context.Background(), u))
	return u
}

func TestUserStore_CreateRejectsDuplicateEmail(t *testing.T) {
	s := NewUserStore()
	ctx := context.Background()
	u := newUser(t, s)

	dup := &entity.User{Name: "B", Email: strings.ToUpper(u.Email), PasswordHash: "other", Phone: "2"}
	err := s.Create(ctx, dup)
	assert.ErrorIs(t, err, apperror.ErrDuplicateEmail)

	stored, err := s.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Name, stored.Name)
	assert.Equal(t, "hash", stored.PasswordHash)
}

func TestUserStore_ConcurrentCreateSameEmail(t *testing.T) {
	s := NewUserStore()
	email := gofakeit.Email()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Create(context.Background(), &entity.User{Name: "x", Email: email, PasswordHash: "h", Phone: "1"})
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)
}

func TestUserStore_UpdateEmailConflict(t *testing.T) {
	s := NewUserStore()
	ctx := context.Background()
	a := newUser(t, s)
	b := newUser(t, s)

	_, err := s.Update(ctx, b.ID, entity.UserPatch{Email: &a.Email})
	assert.ErrorIs(t, err, apperror.ErrDuplicateEmail)

	name := "Renamed"
	got, err := s.Update(ctx, b.ID, entity.UserPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, b.Email, got.Email)

	_, err = s.Update(ctx, uuid.NewString(), entity.UserPatch{Name: &name})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUserStore_CartInvariants(t *testing.T) {
	s := NewUserStore()
	ctx := context.Background()
	u := newUser(t, s)
	product := uuid.NewString()

	require.NoError(t, s.AddCartLine(ctx, u.ID, product))
	assert.ErrorIs(t, s.AddCartLine(ctx, u.ID, product), apperror.ErrDuplicateItem)

	line, err := s.AdjustCartLine(ctx, u.ID, product, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, line.Quantity)

	_, err = s.AdjustCartLine(ctx, u.ID, product, -3)
	assert.ErrorIs(t, err, apperror.ErrInvalidQuantity)

	lines, err := s.CartLines(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)

	_, err = s.AdjustCartLine(ctx, u.ID, uuid.NewString(), 1)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	assert.ErrorIs(t, s.AddCartLine(ctx, uuid.NewString(), product), apperror.ErrNotFound)
}

func TestUserStore_ConcurrentCartAddsKeepEveryLine(t *testing.T) {
	s := NewUserStore()
	ctx := context.Background()
	u := newUser(t, s)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.AddCartLine(ctx, u.ID, uuid.NewString()))
		}()
	}
	wg.Wait()

	lines, err := s.CartLines(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, lines, n)
	assert.Equal(t, 0, s.locks.size())
}

func TestUserStore_ConcurrentAdjustsAreLinearized(t *testing.T) {
	s := NewUserStore()
	ctx := context.Background()
	u := newUser(t, s)
	product := uuid.NewString()
	require.NoError(t, s.AddCartLine(ctx, u.ID, product))

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AdjustCartLine(ctx, u.ID, product, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	lines, err := s.CartLines(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 41, lines[0].Quantity)
}

func TestUserStore_WishlistAndDeleteCascade(t *testing.T) {
	s := NewUserStore()
	ctx := context.Background()
	u := newUser(t, s)
	product := uuid.NewString()

	require.NoError(t, s.AddWishlistLine(ctx, u.ID, product))
	assert.ErrorIs(t, s.AddWishlistLine(ctx, u.ID, product), apperror.ErrDuplicateItem)
	require.NoError(t, s.AddCartLine(ctx, u.ID, product))

	require.NoError(t, s.Delete(ctx, u.ID))
	assert.ErrorIs(t, s.Delete(ctx, u.ID), apperror.ErrNotFound)

	cart, _ := s.CartLines(ctx, u.ID)
	wish, _ := s.WishlistLines(ctx, u.ID)
	assert.Empty(t, cart)
	assert.Empty(t, wish)

	_, err := s.GetByEmail(ctx, u.Email)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCatalogStore_ListFiltersByCategory(t *testing.T) {
	s := NewCatalogStore()
	ctx := context.Background()
	shoes := &entity.Category{Name: "Shoes"}
	hats := &entity.Category{Name: "Hats"}
	require.NoError(t, s.Categories().Create(ctx, shoes))
	require.NoError(t, s.Categories().Create(ctx, hats))

	require.NoError(t, s.Products().Create(ctx, &entity.Product{Name: "Runner", CategoryID: shoes.ID}))
	require.NoError(t, s.Products().Create(ctx, &entity.Product{Name: "Cap", CategoryID: hats.ID}))
	err := s.Products().Create(ctx, &entity.Product{Name: "Orphan", CategoryID: uuid.NewString()})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	all, err := s.Products().List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyShoes, err := s.Products().List(ctx, []string{shoes.ID})
	require.NoError(t, err)
	require.Len(t, onlyShoes, 1)
	assert.Equal(t, "Runner", onlyShoes[0].Name)

	assert.ErrorIs(t, s.Categories().Delete(ctx, shoes.ID), apperror.ErrValidation)
}

func TestStoresHonorCancelledContext(t *testing.T) {
	users := NewUserStore()
	catalog := NewCatalogStore()
	u := newUser(t, users)
	productID := uuid.NewString()
	require.NoError(t, users.AddCartLine(context.Background(), u.ID, productID))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := users.GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, apperror.ErrServiceUnavailable)
	_, err = users.GetByEmail(ctx, u.Email)
	assert.ErrorIs(t, err, apperror.ErrServiceUnavailable)
	_, err = users.List(ctx)
	assert.ErrorIs(t, err, apperror.ErrServiceUnavailable)
	_, err = users.Update(ctx, u.ID, entity.UserPatch{})
	assert.ErrorIs(t, err, apperror.ErrServiceUnavailable)
	assert.ErrorIs(t, users.Delete(ctx, u.ID), apperror.ErrServiceUnavailable)

	assert.ErrorIs(t, users.AddCartLine(ctx, u.ID, uuid.NewString()), apperror.ErrServiceUnavailable)
	_, err = users.AdjustCartLine(ctx, u.ID, productID, 1)
	assert.ErrorIs(t, err, apperror.ErrServiceUnavailable)
	assert.ErrorIs(t, users.RemoveCartLine(ctx, u.ID, productID), apperror.ErrServiceUnavailable)
	_, err = users.CartLines(ctx, u.ID)
	assert.ErrorIs(t, err, apperror.ErrServiceUnavailable)
	assert.ErrorIs(t, users.AddWishlistLine(ctx, u.ID, productID), apperror.ErrServiceUnavailable)
	assert.ErrorIs(t, users.RemoveWishlistLine(ctx, u.ID, productID), apperror.ErrServiceUnavailable)
	_, err = users.WishlistLines(ctx, u.ID)
	assert.ErrorIs(t, err, apperror.ErrServiceUnavailable)

	_, err = catalog.Products().List(ctx, nil)
	assert.ErrorIs(t, err, apperror.ErrServiceUnavailable)
	assert.ErrorIs(t, catalog.Categories().Create(ctx, &entity.Category{Name: "x"}), apperror.ErrServiceUnavailable)

	// nothing was written
	lines, err := users.CartLines(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Quantity)
	cats, err := catalog.Categories().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cats)
}

func TestUserStore_CancelWhileWaitingForLock(t *testing.T) {
	s := NewUserStore()
	u := newUser(t, s)
	productID := uuid.NewString()
	require.NoError(t, s.AddCartLine(context.Background(), u.ID, productID))

	unlock := s.locks.Lock(u.ID)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := s.AdjustCartLine(ctx, u.ID, productID, 5)
		done <- err
	}()
	cancel()
	unlock()

	assert.ErrorIs(t, <-done, apperror.ErrServiceUnavailable)
	lines, err := s.CartLines(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, lines[0].Quantity)
}
